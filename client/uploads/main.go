// Package uploads PUTs staged files to the signed URLs a job create returns.
package uploads

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"primerid/api/client/staging"
	"primerid/api/models/jobs"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultBatchSize = 4
	DefaultTimeout   = 10 * time.Minute
)

type State int

const (
	Pending State = iota
	Uploading
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Uploading:
		return "uploading"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "pending"
	}
}

// FileStatus is the last known state of one file.
type FileStatus struct {
	State    State
	Progress int
	Err      error
}

// entry is a file's status and the run that last claimed the file.
type entry struct {
	FileStatus
	run uint64
}

// Uploader runs at most BatchSize PUTs at a time. A failed PUT does not
// stop the others, so every file ends with a terminal status. Each
// UploadAll call is a run; a run only writes the statuses it still owns,
// so a superseded run finishing late never overwrites a newer result.
type Uploader struct {
	BatchSize int
	// Timeout bounds each PUT.
	Timeout    time.Duration
	OnProgress func(fileName string, pct int)

	client *http.Client

	mu     sync.Mutex
	run    uint64
	status map[string]entry
	// serializes OnProgress
	cbMu sync.Mutex
}

func New() *Uploader {
	return &Uploader{
		BatchSize: DefaultBatchSize,
		Timeout:   DefaultTimeout,
		client:    &http.Client{},
		status:    map[string]entry{},
	}
}

func (u *Uploader) Status(fileName string) FileStatus {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.status[fileName].FileStatus
}

// UploadAll returns true iff every signed URL got a 2xx. Signed URLs
// naming a file that is not staged fail the batch before anything is sent.
func (u *Uploader) UploadAll(ctx context.Context, files []staging.File, signed []jobs.SignedUpload) bool {
	byName := map[string]staging.File{}
	for _, f := range files {
		byName[f.Name] = f
	}

	u.mu.Lock()
	u.run++
	run := u.run
	u.mu.Unlock()

	missing := false
	for _, s := range signed {
		if _, ok := byName[s.FileName]; !ok {
			u.claim(run, s.FileName, FileStatus{State: Failed, Err: fmt.Errorf("%s is not staged", s.FileName)})
			missing = true
		}
	}
	if missing {
		return false
	}

	limit := u.BatchSize
	if limit <= 0 {
		limit = DefaultBatchSize
	}

	var (
		g      errgroup.Group
		mu     sync.Mutex
		allOk  = true
		result = func(ok bool) {
			mu.Lock()
			allOk = allOk && ok
			mu.Unlock()
		}
	)
	g.SetLimit(limit)

	for _, s := range signed {
		f, url := byName[s.FileName], s.SignedURL
		u.claim(run, f.Name, FileStatus{State: Pending})
		g.Go(func() error {
			err := u.put(ctx, run, f, url)
			if err != nil {
				u.update(run, f.Name, func(st *FileStatus) {
					st.State, st.Err = Failed, err
				})
				result(false)
				return nil
			}
			u.progress(run, f.Name, 100)
			u.update(run, f.Name, func(st *FileStatus) {
				*st = FileStatus{State: Done, Progress: 100}
			})
			result(true)
			return nil
		})
	}
	g.Wait()

	return allOk
}

func (u *Uploader) put(ctx context.Context, run uint64, f staging.File, url string) error {
	if u.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.Timeout)
		defer cancel()
	}

	u.update(run, f.Name, func(st *FileStatus) { st.State = Uploading })

	body, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer body.Close()

	var reader io.Reader = &progressReader{r: body, total: f.Size, report: func(pct int) { u.progress(run, f.Name, pct) }}
	if f.Size == 0 {
		reader = http.NoBody
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, reader)
	if err != nil {
		return err
	}
	req.ContentLength = f.Size
	req.Header.Set("Content-Type", f.Type)

	res, err := u.client.Do(req)
	if err != nil {
		return fmt.Errorf("upload %s: %w", f.Name, err)
	}
	defer res.Body.Close()
	io.Copy(io.Discard, res.Body)

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("upload %s: %s", f.Name, res.Status)
	}
	return nil
}

// claim hands the file's status to run.
func (u *Uploader) claim(run uint64, name string, s FileStatus) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.status[name] = entry{FileStatus: s, run: run}
}

// update applies fn only while run still owns the file.
func (u *Uploader) update(run uint64, name string, fn func(*FileStatus)) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	e, ok := u.status[name]
	if !ok || e.run != run {
		return false
	}
	fn(&e.FileStatus)
	u.status[name] = e
	return true
}

// progress records pct and reports it once; callbacks never overlap.
func (u *Uploader) progress(run uint64, name string, pct int) {
	advanced := u.update(run, name, func(st *FileStatus) {
		if pct > st.Progress {
			st.Progress = pct
		} else {
			pct = -1
		}
	})
	if !advanced || pct < 0 {
		return
	}

	if u.OnProgress != nil {
		u.cbMu.Lock()
		defer u.cbMu.Unlock()
		u.OnProgress(name, pct)
	}
}

type progressReader struct {
	r      io.Reader
	total  int64
	sent   int64
	report func(pct int)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.sent += int64(n)
	if n > 0 && p.total > 0 {
		pct := int(p.sent * 100 / p.total)
		if pct > 100 {
			pct = 100
		}
		p.report(pct)
	}
	return n, err
}
