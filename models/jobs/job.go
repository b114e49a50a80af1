package jobs

import (
	"primerid/api/models/constants"
	"time"
)

type Upload struct {
	FileName string `json:"fileName" mapstructure:"fileName"`
	PoolName string `json:"poolName,omitempty" mapstructure:"poolName"`
	LibName  string `json:"libName,omitempty" mapstructure:"libName"`
	Type     string `json:"type,omitempty" mapstructure:"type"`
}

// Group is the pool/lib/subject label the file is partitioned under.
func (u Upload) Group() string {
	if u.PoolName != "" {
		return u.PoolName
	}
	return u.LibName
}

type SignedUpload struct {
	Upload
	SignedURL string `json:"signedURL"`
}

// Job is the persisted submission record shared by every pipeline.
// Payload fields that do not apply to a pipeline stay zero valued.
type Job struct {
	Id       string             `json:"id"`
	Pipeline constants.Pipeline `json:"pipeline"`

	Email         string                  `json:"email"`
	JobID         string                  `json:"jobID"`
	ResultsFormat constants.ResultsFormat `json:"resultsFormat"`

	Uploads  []Upload `json:"uploads"`
	Htsf     string   `json:"htsf,omitempty"`
	PoolName string   `json:"poolName,omitempty"`
	Dropbox  string   `json:"dropbox,omitempty"`

	Submit          bool      `json:"submit"`
	Pending         bool      `json:"pending"`
	Complete        bool      `json:"complete"`
	ProcessingError bool      `json:"processingError"`
	Results         string    `json:"results,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`

	// tcs / dr
	Primers        []Primer `json:"primers,omitempty"`
	ErrorRate      float64  `json:"errorRate,omitempty"`
	PlatformFormat int      `json:"platformFormat,omitempty"`
	IsDR           bool     `json:"isDR,omitempty"`
	DrVersion      string   `json:"drVersion,omitempty"`

	// ogv
	Conversion map[string]int `json:"conversion,omitempty"`

	// splicing
	Strain   string `json:"strain,omitempty"`
	Assay    string `json:"assay,omitempty"`
	Distance *int   `json:"distance,omitempty"`
	Sequence string `json:"sequence,omitempty"`

	// intactness / coreceptor
	Sequences string `json:"sequences,omitempty"`
}

func (j Job) UploadCount() int {
	return len(j.Uploads)
}

// Listable is the filter the external worker polls with.
func (j Job) Listable() bool {
	return (j.Submit || j.Pending) && !j.ProcessingError
}

func (j Job) Summary() PublicJobSummary {
	return PublicJobSummary{
		Id:          j.Id,
		Submit:      j.Submit,
		Pending:     j.Pending,
		CreatedAt:   j.CreatedAt,
		UploadCount: j.UploadCount(),
	}
}

type PublicJobSummary struct {
	Id          string    `json:"id"`
	Submit      bool      `json:"submit"`
	Pending     bool      `json:"pending"`
	CreatedAt   time.Time `json:"createdAt"`
	UploadCount int       `json:"uploadCount"`
}

type CreateJobResponse struct {
	Job
	SignedURLs []SignedUpload `json:"signedURLs"`
}

// Filter selects what FindMany returns.
type Filter struct {
	Pipeline constants.Pipeline
	// OnlyListable restricts results to submit/pending jobs without a processing error.
	OnlyListable bool
	// Stale, when non-zero, restricts results to uncommitted jobs created before it.
	Stale time.Time
}

func (f Filter) Matches(j Job) bool {
	if f.Pipeline != "" && j.Pipeline != f.Pipeline {
		return false
	}
	if f.OnlyListable && !j.Listable() {
		return false
	}
	if !f.Stale.IsZero() && (j.Submit || !j.CreatedAt.Before(f.Stale)) {
		return false
	}
	return true
}
