// Package apiclient talks to the portal's per-pipeline job API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"primerid/api/models/constants"
	"primerid/api/models/dtos"
	"primerid/api/models/jobs"
	"primerid/api/utils"

	"github.com/Jeffail/gabs"
)

const GenericErrorMessage = "An error has occurred. Please try again."

// RemoteError is a non-2xx answer from the portal.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (r *RemoteError) Error() string {
	return r.Message
}

// NetworkError wraps a transport failure; the request may not have arrived.
type NetworkError struct {
	Err error
}

func (n *NetworkError) Error() string { return "network error: " + n.Err.Error() }
func (n *NetworkError) Unwrap() error { return n.Err }

// Message is what a banner should show for err.
func Message(err error) string {
	var re *RemoteError
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}
	return GenericErrorMessage
}

type Client struct {
	baseURL string
	client  *http.Client
	// ApiKey is sent on worker routes when set.
	ApiKey string
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  utils.NewHttpClient(timeout),
	}
}

func (c *Client) Create(ctx context.Context, p constants.Pipeline, job jobs.Job) (jobs.CreateJobResponse, error) {
	var out jobs.CreateJobResponse
	err := c.do(ctx, http.MethodPost, "/api/"+string(p), job, &out)
	return out, err
}

// Commit marks the job submittable. Committing twice is harmless.
func (c *Client) Commit(ctx context.Context, p constants.Pipeline, id string) (dtos.CommitResponseDto, error) {
	var out dtos.CommitResponseDto
	err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/%s/submit/%s", p, id), nil, &out)
	return out, err
}

func (c *Client) List(ctx context.Context, p constants.Pipeline) ([]jobs.PublicJobSummary, error) {
	out := []jobs.PublicJobSummary{}
	err := c.do(ctx, http.MethodGet, "/api/"+string(p), nil, &out)
	return out, err
}

func (c *Client) ListAll(ctx context.Context, p constants.Pipeline, password string) ([]jobs.Job, error) {
	out := []jobs.Job{}
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/%s/list", p), dtos.ListRequestDto{Password: password}, &out)
	return out, err
}

func (c *Client) Get(ctx context.Context, p constants.Pipeline, id string) (jobs.Job, error) {
	var out jobs.Job
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/%s/%s", p, id), nil, &out)
	return out, err
}

// ValidateFiles asks the TCS/DR file name validator about staged names.
func (c *Client) ValidateFiles(ctx context.Context, fileNames []string) (dtos.ValidateFilesResponseDto, error) {
	var out dtos.ValidateFilesResponseDto
	err := c.do(ctx, http.MethodPost, "/api/tcsdr/validateFiles", dtos.ValidateFilesRequestDto{FileNames: fileNames}, &out)
	return out, err
}

// DrParams returns the DR parameter catalog keyed by version.
func (c *Client) DrParams(ctx context.Context) (*gabs.Container, error) {
	body, err := c.raw(ctx, http.MethodGet, "/api/tcsdr/params", nil)
	if err != nil {
		return nil, err
	}
	return gabs.ParseJSON(body)
}

func (c *Client) do(ctx context.Context, method string, path string, in interface{}, out interface{}) error {
	body, err := c.raw(ctx, method, path, in)
	if err != nil {
		return err
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) raw(ctx context.Context, method string, path string, in interface{}) ([]byte, error) {
	var reader io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.ApiKey != "" {
		req.Header.Set("x-api-key", c.ApiKey)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, &RemoteError{StatusCode: res.StatusCode, Message: errorMessage(body)}
	}
	return body, nil
}

// errorMessage pulls `error`, then the first of `errors`, out of a failure body.
func errorMessage(body []byte) string {
	parsed, err := gabs.ParseJSON(body)
	if err != nil {
		return GenericErrorMessage
	}
	if msg, ok := parsed.Path("error").Data().(string); ok && msg != "" {
		return msg
	}
	if errs, err := parsed.S("errors").Children(); err == nil && len(errs) > 0 {
		if msg, ok := errs[0].Path("message").Data().(string); ok && msg != "" {
			return msg
		}
	}
	return GenericErrorMessage
}
