// Package staging accumulates the files of one submission and runs the
// per-pipeline name, format and pairing checks on them.
package staging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"primerid/api/models/dtos"
	"primerid/api/models/jobs"

	"github.com/samber/lo"
)

const (
	MsgUnsupportedExtension = "Please use a supported file extension."
	MsgCompressed           = "Please use uncompressed files."
	MsgMaxSize              = "Maximum cumulative file size of 16MB per submission."
	MsgNoSequences          = "No sequences found."
	MsgSubjectNaming        = "Please name files as {subject}_{sample}.fasta"
	MsgWPI                  = "Sequence names require a string of '_xxxx_xxxWPI' to process."
	MsgDuplicates           = "Duplicate files were skipped"
	MsgCheckFileErrors      = "Please check file errors above."
)

var ErrNoFiles = errors.New("No files selected.")

// File is a staged upload. Open returns a fresh reader over its bytes.
type File struct {
	Name  string
	Type  string
	Size  int64
	Group string

	// errors found on the file itself; pairing and remote errors are kept by the Stage
	Errors []string

	Open func() (io.ReadCloser, error)
}

// FromBytes stages in-memory content.
func FromBytes(name string, contentType string, content []byte) File {
	return File{
		Name: name,
		Type: contentType,
		Size: int64(len(content)),
		Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(content)), nil },
	}
}

// FromPath stages a file on disk; its content is read lazily.
func FromPath(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, err
	}
	if info.IsDir() {
		return File{}, fmt.Errorf("%s is a directory", path)
	}
	return File{
		Name: filepath.Base(path),
		Type: ContentType(path),
		Size: info.Size(),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

// ContentType guesses from the extension, falling back to octet-stream.
func ContentType(name string) string {
	if strings.HasSuffix(strings.ToLower(name), ".gz") {
		return "application/gzip"
	}
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}

func (f File) ReadAll() ([]byte, error) {
	if f.Open == nil {
		return nil, fmt.Errorf("%s has no content", f.Name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// RemoteValidator checks names against the external file name service.
type RemoteValidator interface {
	ValidateFiles(ctx context.Context, fileNames []string) (dtos.ValidateFilesResponseDto, error)
}

// Stage holds the files of one submission session.
type Stage struct {
	policy Policy

	files     []File
	records   map[string][]Record
	remote    map[string][]string
	totalSize int64
	err       string
}

func New(policy Policy) *Stage {
	return &Stage{
		policy:  policy,
		records: map[string][]Record{},
		remote:  map[string][]string{},
	}
}

func (s *Stage) Policy() Policy { return s.policy }

// AddFiles stages new files. Files with per-file problems stay listed with
// their errors; only duplicates, badly named OGV files and files over the
// size cap are left out. The returned error is the aggregate message.
func (s *Stage) AddFiles(files []File) error {
	s.err = ""
	if len(files) == 0 {
		return s.fail(ErrNoFiles.Error())
	}

	var (
		aggregate  []string
		duplicates []string
		unnamed    []string
		overCap    bool
	)

	for _, f := range files {
		if strings.HasPrefix(f.Name, ".") {
			continue
		}
		if s.policy.Subjects {
			f.Name = jobs.SanitizeFilename(f.Name)
		}
		if s.has(f.Name) {
			duplicates = append(duplicates, f.Name)
			continue
		}
		if s.policy.Subjects && !jobs.HasSubject(f.Name) {
			unnamed = append(unnamed, f.Name)
			continue
		}
		if s.policy.MaxTotalBytes > 0 && s.totalSize+f.Size > s.policy.MaxTotalBytes {
			overCap = true
			continue
		}

		f.Errors = s.checkFile(&f)
		f.Group = s.groupOf(f.Name)
		if f.Type == "" {
			f.Type = ContentType(f.Name)
		}

		s.files = append(s.files, f)
		s.totalSize += f.Size
	}

	if len(duplicates) > 0 {
		aggregate = append(aggregate, fmt.Sprintf("%s: %s", MsgDuplicates, strings.Join(duplicates, ", ")))
	}
	if len(unnamed) > 0 {
		aggregate = append(aggregate, fmt.Sprintf("%s: %s", MsgSubjectNaming, strings.Join(unnamed, ", ")))
	}
	if overCap {
		aggregate = append(aggregate, MsgMaxSize)
	}
	if len(aggregate) > 0 {
		return s.fail(strings.Join(aggregate, " "))
	}
	return nil
}

func (s *Stage) RemoveFile(name string) {
	for i, f := range s.files {
		if f.Name == name {
			s.totalSize -= f.Size
			s.files = append(s.files[:i], s.files[i+1:]...)
			delete(s.records, name)
			delete(s.remote, name)
			return
		}
	}
}

func (s *Stage) Files() []File {
	return append([]File(nil), s.files...)
}

func (s *Stage) Names() []string {
	return lo.Map(s.files, func(f File, _ int) string { return f.Name })
}

// Errors merges file, pairing and remote errors per file name.
func (s *Stage) Errors() map[string][]string {
	out := map[string][]string{}
	add := func(name string, msgs ...string) {
		for _, m := range msgs {
			if m != "" && !lo.Contains(out[name], m) {
				out[name] = append(out[name], m)
			}
		}
	}

	for _, f := range s.files {
		add(f.Name, f.Errors...)
	}
	if s.policy.PairedReads {
		for name, msg := range jobs.ValidatePairedReads(s.Names()) {
			add(name, msg)
		}
	}
	for name, msgs := range s.remote {
		add(name, msgs...)
	}
	return out
}

// Error is the last aggregate message, empty when none.
func (s *Stage) Error() string {
	return s.err
}

func (s *Stage) HasErrors() bool {
	return len(s.Errors()) > 0
}

// CanContinue gates the wizard's next section.
func (s *Stage) CanContinue() bool {
	if len(s.files) == 0 {
		return false
	}
	return s.policy.ContinueWithErrors || !s.HasErrors()
}

// Groups lists the distinct subject or library labels in staging order.
func (s *Stage) Groups() []string {
	groups := lo.Map(s.files, func(f File, _ int) string { return f.Group })
	return lo.Uniq(lo.Filter(groups, func(g string, _ int) bool { return g != "" }))
}

// Uploads is what the job payload references for the staged files.
func (s *Stage) Uploads() []jobs.Upload {
	return lo.Map(s.files, func(f File, _ int) jobs.Upload {
		u := jobs.Upload{FileName: f.Name, Type: f.Type}
		if s.policy.Subjects {
			u.LibName = f.Group
		} else {
			u.PoolName = f.Group
		}
		return u
	})
}

// SequenceText joins the records of every file that parsed cleanly.
func (s *Stage) SequenceText() string {
	var all []Record
	for _, f := range s.files {
		if len(f.Errors) == 0 {
			all = append(all, s.records[f.Name]...)
		}
	}
	return FormatFasta(all)
}

// ValidateRemote sends the staged names to the file name service and
// merges its per-file errors and library labels.
func (s *Stage) ValidateRemote(ctx context.Context, v RemoteValidator) error {
	if len(s.files) == 0 {
		return s.fail(ErrNoFiles.Error())
	}

	res, err := v.ValidateFiles(ctx, s.Names())
	if err != nil {
		return err
	}

	s.remote = map[string][]string{}
	for _, rf := range res.Files {
		if len(rf.Errors) > 0 {
			s.remote[rf.FileName] = append([]string(nil), rf.Errors...)
		}
		if rf.LibName == "" {
			continue
		}
		for i := range s.files {
			if s.files[i].Name == rf.FileName {
				s.files[i].Group = rf.LibName
			}
		}
	}

	switch {
	case res.Error != "":
		return s.fail(res.Error)
	case !res.AllPass:
		return s.fail(MsgCheckFileErrors)
	}
	s.err = ""
	return nil
}

func (s *Stage) fail(msg string) error {
	s.err = msg
	return errors.New(msg)
}

func (s *Stage) has(name string) bool {
	return lo.ContainsBy(s.files, func(f File) bool { return f.Name == name })
}

func (s *Stage) groupOf(name string) string {
	switch {
	case s.policy.Subjects:
		return jobs.SubjectFromFilename(name)
	case s.policy.PairedReads:
		return jobs.LibraryLabel(name)
	default:
		return ""
	}
}

func (s *Stage) checkFile(f *File) []string {
	lower := strings.ToLower(f.Name)

	if s.policy.RejectCompressed && (strings.HasSuffix(lower, ".gz") || strings.HasSuffix(lower, ".zip")) {
		return []string{MsgCompressed}
	}
	if len(s.policy.Extensions) > 0 && !lo.ContainsBy(s.policy.Extensions, func(ext string) bool {
		return strings.HasSuffix(lower, "."+ext)
	}) {
		return []string{MsgUnsupportedExtension}
	}

	if !s.policy.Sequences && !s.policy.RequireWPI {
		return nil
	}

	content, err := f.ReadAll()
	if err != nil {
		return []string{fmt.Sprintf("Could not read file: %v", err)}
	}
	records, err := ParseFasta(bytes.NewReader(content))
	if err != nil {
		return []string{"Error parsing sequences: " + err.Error()}
	}
	if len(records) == 0 {
		return []string{MsgNoSequences}
	}
	s.records[f.Name] = records

	if s.policy.RequireWPI && lo.SomeBy(records, func(r Record) bool {
		return !strings.Contains(r.ID+" "+r.Description, "WPI")
	}) {
		return []string{MsgWPI}
	}
	return nil
}
