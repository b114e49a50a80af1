package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"primerid/api/contexts"
	"primerid/api/models/constants/pipeline"
	"primerid/api/tests/common"

	"github.com/labstack/echo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setUpEcho(method string, body string) (*contexts.PortalContext, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	gc := &contexts.PortalContext{
		Context: c,
		Config:  common.InitConfig(),
	}
	return gc, rec
}

func reached(called *bool) echo.HandlerFunc {
	return func(c echo.Context) error {
		*called = true
		return c.NoContent(http.StatusNoContent)
	}
}

func TestMandatePipelinePathParam(t *testing.T) {
	t.Run("should forward the cast pipeline", func(t *testing.T) {
		gc, rec := setUpEcho(http.MethodGet, "")
		gc.SetParamNames("pipeline")
		gc.SetParamValues("DR")

		var called bool
		require.NoError(t, MandatePipelinePathParam(reached(&called))(gc))
		assert.True(t, called)
		assert.Equal(t, pipeline.TCSDR, gc.Pipeline)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("should 404 anything else", func(t *testing.T) {
		gc, rec := setUpEcho(http.MethodGet, "")
		gc.SetParamNames("pipeline")
		gc.SetParamValues("variants")

		var called bool
		MandatePipelinePathParam(reached(&called))(gc)
		assert.False(t, called)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestMandateTcsDrPipeline(t *testing.T) {
	gc, rec := setUpEcho(http.MethodGet, "")
	gc.Pipeline = pipeline.OGV

	var called bool
	MandateTcsDrPipeline(reached(&called))(gc)
	assert.False(t, called)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	gc, _ = setUpEcho(http.MethodGet, "")
	gc.Pipeline = pipeline.TCSDR
	MandateTcsDrPipeline(reached(&called))(gc)
	assert.True(t, called)
}

func TestMandateJobIdPathParam(t *testing.T) {
	gc, rec := setUpEcho(http.MethodGet, "")
	gc.SetParamNames("id")
	gc.SetParamValues(" ")

	var called bool
	MandateJobIdPathParam(reached(&called))(gc)
	assert.False(t, called)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Missing id")

	gc, _ = setUpEcho(http.MethodGet, "")
	gc.SetParamNames("id")
	gc.SetParamValues("abc")
	MandateJobIdPathParam(reached(&called))(gc)
	assert.True(t, called)
	assert.Equal(t, "abc", gc.JobId)
}

func TestMandateApiKey(t *testing.T) {
	t.Run("should refuse a missing key", func(t *testing.T) {
		gc, rec := setUpEcho(http.MethodGet, "")

		var called bool
		MandateApiKey(reached(&called))(gc)
		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("should refuse when no key is configured", func(t *testing.T) {
		gc, rec := setUpEcho(http.MethodGet, "")
		gc.Config.Api.ApiKey = ""
		gc.Request().Header.Set(ApiKeyHeader, "")

		var called bool
		MandateApiKey(reached(&called))(gc)
		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("should pass the shared secret", func(t *testing.T) {
		gc, _ := setUpEcho(http.MethodGet, "")
		gc.Request().Header.Set(ApiKeyHeader, gc.Config.Api.ApiKey)

		var called bool
		MandateApiKey(reached(&called))(gc)
		assert.True(t, called)
	})
}

func TestMandateAdminPassword(t *testing.T) {
	t.Run("should pass and keep the body readable", func(t *testing.T) {
		body := `{"password": "test-admin-password"}`
		gc, _ := setUpEcho(http.MethodPost, body)

		var called bool
		var seen string
		MandateAdminPassword(func(c echo.Context) error {
			called = true
			b, _ := io.ReadAll(c.Request().Body)
			seen = string(b)
			return nil
		})(gc)
		assert.True(t, called)
		assert.Equal(t, body, seen)
	})

	t.Run("should refuse a wrong password", func(t *testing.T) {
		gc, rec := setUpEcho(http.MethodPost, `{"password": "guess"}`)

		var called bool
		MandateAdminPassword(reached(&called))(gc)
		assert.False(t, called)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("should reject garbage", func(t *testing.T) {
		gc, rec := setUpEcho(http.MethodPost, `password=1`)

		var called bool
		MandateAdminPassword(reached(&called))(gc)
		assert.False(t, called)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
