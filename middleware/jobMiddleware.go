package middleware

import (
	"net/http"
	"primerid/api/contexts"
	"primerid/api/models/dtos/errors"
	"strings"

	"github.com/labstack/echo"
)

func MandateJobIdPathParam(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := strings.TrimSpace(c.Param("id"))
		if len(id) == 0 {
			return c.JSON(http.StatusBadRequest, errors.CreateSimpleBadRequest("Missing id"))
		}

		gc := c.(*contexts.PortalContext)
		gc.JobId = id

		return next(gc)
	}
}
