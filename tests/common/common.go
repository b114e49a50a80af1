package common

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"runtime"
	"testing"

	"primerid/api/models"
	"primerid/api/models/constants"
	"primerid/api/models/jobs"

	"github.com/stretchr/testify/assert"
	yaml "gopkg.in/yaml.v2"
)

const (
	JobsPath   string = "%s/api/%s"
	CommitPath string = "%s/api/%s/submit/%s"
)

func InitConfig() *models.Config {
	var cfg models.Config

	// get this file's path
	_, filename, _, _ := runtime.Caller(0)
	folderpath := path.Dir(filename)

	// retrieve common's test.config
	f, err := os.Open(fmt.Sprintf("%s/test.config.yml", folderpath))
	if err != nil {
		processError(err)
	}
	defer f.Close()

	decoder := yaml.NewDecoder(f)
	err = decoder.Decode(&cfg)
	if err != nil {
		processError(err)
	}

	if cfg.Debug {
		http.DefaultTransport.(*http.Transport).TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &cfg
}

func processError(err error) {
	fmt.Println(err)
	os.Exit(2)
}

// RequireLiveApi skips tests that need a running portal.
func RequireLiveApi(_t *testing.T) {
	if os.Getenv("PRIMERID_INTEGRATION") == "" {
		_t.Skip("PRIMERID_INTEGRATION not set")
	}
}

func CreateJob(_t *testing.T, _cfg *models.Config, p constants.Pipeline, job jobs.Job) jobs.CreateJobResponse {
	payload, _ := json.Marshal(job)
	request, _ := http.NewRequest(http.MethodPost, fmt.Sprintf(JobsPath, _cfg.Api.Url, p), bytes.NewReader(payload))
	request.Header.Set("Content-Type", "application/json")

	response, responseErr := http.DefaultClient.Do(request)
	assert.Nil(_t, responseErr)
	defer response.Body.Close()

	shouldBe := 200
	body, _ := io.ReadAll(response.Body)
	assert.Equal(_t, shouldBe, response.StatusCode, fmt.Sprintf("Error -- Api POST /api/%s Status: %s ; Body: %s", p, response.Status, body))

	var created jobs.CreateJobResponse
	assert.Nil(_t, json.Unmarshal(body, &created))
	return created
}

func CommitJob(_t *testing.T, _cfg *models.Config, p constants.Pipeline, id string) {
	request, _ := http.NewRequest(http.MethodDelete, fmt.Sprintf(CommitPath, _cfg.Api.Url, p, id), nil)

	response, responseErr := http.DefaultClient.Do(request)
	assert.Nil(_t, responseErr)
	defer response.Body.Close()

	assert.Equal(_t, 200, response.StatusCode)
}

func ListJobs(_t *testing.T, _cfg *models.Config, p constants.Pipeline) []jobs.PublicJobSummary {
	response, responseErr := http.Get(fmt.Sprintf(JobsPath, _cfg.Api.Url, p))
	assert.Nil(_t, responseErr)
	defer response.Body.Close()

	var summaries []jobs.PublicJobSummary
	assert.Nil(_t, json.NewDecoder(response.Body).Decode(&summaries))
	return summaries
}
