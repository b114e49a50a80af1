// Package forms holds the parameter forms that sit between file staging
// and the confirmation step of each pipeline.
package forms

import (
	"fmt"
	"sort"
	"strings"

	"primerid/api/models/constants"
	resultsFormat "primerid/api/models/constants/results-format"
	"primerid/api/models/jobs"
	"primerid/api/utils"
)

const (
	MsgInvalidEmail     = "Please enter a valid email address."
	MsgResultsFormat    = "Results format must be tar or zip."
	MsgHtsfRequired     = "Please provide an HTSF location."
	MsgPoolNameRequired = "Pool name is required with an HTSF location."
	MsgWeeksRequired    = "Please set the number of weeks since start of ART"
)

// ValidationError maps a field (or subject) to the message shown next to it.
type ValidationError struct {
	Fields map[string]string
}

func (v *ValidationError) Error() string {
	keys := make([]string, 0, len(v.Fields))
	for k := range v.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, v.Fields[k]))
	}
	return strings.Join(parts, "; ")
}

func validationError(fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

type Source int

const (
	SourceUploads Source = iota
	SourceHtsf
)

// Shared is the part of the form every pipeline has.
type Shared struct {
	Email         string
	JobID         string
	ResultsFormat constants.ResultsFormat

	Source   Source
	Htsf     string
	PoolName string
}

func NewShared() Shared {
	return Shared{ResultsFormat: resultsFormat.Tar}
}

func (s Shared) Validate() error {
	e := map[string]string{}
	if !strings.Contains(s.Email, "@") {
		e["email"] = MsgInvalidEmail
	}
	if !resultsFormat.IsKnownResultsFormat(string(s.ResultsFormat)) {
		e["resultsFormat"] = MsgResultsFormat
	}
	if s.Source == SourceHtsf {
		if strings.TrimSpace(s.Htsf) == "" {
			e["htsf"] = MsgHtsfRequired
		}
		if strings.TrimSpace(s.PoolName) == "" {
			e["poolName"] = MsgPoolNameRequired
		}
	}
	return validationError(e)
}

// ResultsName is the archive name the results arrive under.
func (s Shared) ResultsName(prefix string) string {
	id := utils.SanitizeJobLabel(s.JobID)
	if id == "" {
		id = "{id}"
	}
	ext := ".zip"
	if resultsFormat.CastToResultsFormat(string(s.ResultsFormat)) == resultsFormat.Tar {
		ext = ".tar.gz"
	}
	return fmt.Sprintf("%s_%s%s", prefix, id, ext)
}

// Apply copies the shared fields into a job payload. Uploads are only
// kept when the source is file uploads.
func (s Shared) Apply(j *jobs.Job, uploads []jobs.Upload) {
	j.Email = strings.TrimSpace(s.Email)
	j.JobID = utils.SanitizeJobLabel(s.JobID)
	j.ResultsFormat = resultsFormat.CastToResultsFormat(string(s.ResultsFormat))

	if s.Source == SourceHtsf {
		j.Uploads = nil
		j.Htsf = strings.TrimSpace(s.Htsf)
		j.PoolName = strings.TrimSpace(s.PoolName)
		return
	}
	j.Uploads = uploads
	j.Htsf = ""
	j.PoolName = ""
}
