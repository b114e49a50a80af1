package tcsdr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"primerid/api/contexts"
	"primerid/api/models/dtos"
	dtoErrors "primerid/api/models/dtos/errors"
	"primerid/api/mvc"
	"primerid/api/services"

	"github.com/labstack/echo"
	"github.com/samber/lo"
)

// ValidateFiles relays staged file names to the external validator.
func ValidateFiles(c echo.Context) error {
	fmt.Printf("[%s] - ValidateFiles hit!\n", time.Now())
	gc := c.(*contexts.PortalContext)

	var req dtos.ValidateFilesRequestDto
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return c.JSON(http.StatusBadRequest, dtoErrors.CreateSimpleBadRequest("Invalid request payload."))
	}
	names := lo.Filter(lo.Map(req.FileNames, func(n string, _ int) string { return strings.TrimSpace(n) }),
		func(n string, _ int) bool { return n != "" })
	if len(names) == 0 {
		return c.JSON(http.StatusBadRequest, dtoErrors.CreateSimpleBadRequest("fileNames cannot be empty"))
	}

	ctx, cancel := mvc.RequestContext(c)
	defer cancel()

	res, err := gc.Validator.Validate(ctx, names)
	if errors.Is(err, services.ErrValidatorNotConfigured) {
		return c.JSON(http.StatusNotFound, dtoErrors.CreateSimpleNotFound(err.Error()))
	} else if err != nil {
		c.Logger().Errorf("validate files: %v", err)
		return c.JSON(http.StatusBadGateway, dtoErrors.CreateSimpleBadGateway(services.MsgNetworkError))
	}
	return c.JSON(http.StatusOK, res)
}

// GetDrParams returns the whole versioned DR parameter catalog.
func GetDrParams(c echo.Context) error {
	fmt.Printf("[%s] - GetDrParams hit!\n", time.Now())
	gc := c.(*contexts.PortalContext)

	if gc.Catalog == nil || !gc.Catalog.Enabled() {
		return c.JSON(http.StatusNotFound, dtoErrors.CreateSimpleNotFound(services.ErrCatalogNotConfigured.Error()))
	}

	ctx, cancel := mvc.RequestContext(c)
	defer cancel()

	catalog, err := gc.Catalog.Catalog(ctx)
	if err != nil {
		c.Logger().Errorf("dr catalog: %v", err)
		return c.JSON(http.StatusBadGateway, dtoErrors.CreateSimpleBadGateway(services.MsgNetworkError))
	}
	return c.JSON(http.StatusOK, catalog.Data())
}
