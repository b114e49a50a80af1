package mvc

import (
	"context"
	"errors"
	"net/http"
	"time"

	"primerid/api/contexts"
	dtoErrors "primerid/api/models/dtos/errors"
	"primerid/api/repositories"
	"primerid/api/services"

	"github.com/labstack/echo"
)

const defaultRequestTimeout = 30 * time.Second

// RequestContext bounds downstream calls of one request.
func RequestContext(c echo.Context) (context.Context, context.CancelFunc) {
	timeout := defaultRequestTimeout
	if gc, ok := c.(*contexts.PortalContext); ok && gc.Config != nil && gc.Config.Api.RequestTimeout > 0 {
		timeout = gc.Config.Api.RequestTimeout
	}
	return context.WithTimeout(c.Request().Context(), timeout)
}

// RespondWithError maps service errors onto JSON error bodies;
// no failure leaves the handler without one.
func RespondWithError(c echo.Context, err error) error {
	var (
		verr *services.ValidationError
		serr *services.StorageError
	)

	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, dtoErrors.CreateValidationBadRequest(verr.Messages))
	case errors.Is(err, repositories.ErrNotFound):
		return c.JSON(http.StatusNotFound, dtoErrors.CreateSimpleNotFound("Job not found."))
	case errors.As(err, &serr):
		return c.JSON(http.StatusInternalServerError, dtoErrors.CreateSimpleInternalServerError(services.MsgSigningError))
	case errors.Is(err, context.DeadlineExceeded):
		return c.JSON(http.StatusInternalServerError, dtoErrors.CreateSimpleInternalServerError(services.MsgNetworkError))
	default:
		c.Logger().Errorf("unhandled: %v", err)
		return c.JSON(http.StatusBadRequest, dtoErrors.CreateSimpleBadRequest(services.MsgDatabaseError))
	}
}
