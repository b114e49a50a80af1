package middleware

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"primerid/api/contexts"
	"primerid/api/models/dtos"
	"primerid/api/models/dtos/errors"

	"github.com/labstack/echo"
)

const ApiKeyHeader = "x-api-key"

// MandateApiKey guards the worker routes with the shared secret.
func MandateApiKey(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		gc := c.(*contexts.PortalContext)

		if !secretsMatch(c.Request().Header.Get(ApiKeyHeader), gc.Config.Api.ApiKey) {
			return c.JSON(http.StatusUnauthorized, errors.CreateSimpleUnauthorized("Unauthorized"))
		}
		return next(gc)
	}
}

// MandateAdminPassword checks the `password` field of the JSON body.
// The body is restored so handlers can bind it again.
func MandateAdminPassword(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		gc := c.(*contexts.PortalContext)

		body, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errors.CreateSimpleBadRequest("unreadable body"))
		}
		c.Request().Body = io.NopCloser(bytes.NewReader(body))

		var req dtos.ListRequestDto
		if len(body) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				return c.JSON(http.StatusBadRequest, errors.CreateSimpleBadRequest("invalid body"))
			}
		}

		if !secretsMatch(req.Password, gc.Config.Api.LoginPassword) {
			return c.JSON(http.StatusUnauthorized, errors.CreateSimpleUnauthorized("Unauthorized"))
		}
		return next(gc)
	}
}

// an unset secret never matches
func secretsMatch(given string, expected string) bool {
	if expected == "" || given == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(given), []byte(expected)) == 1
}
