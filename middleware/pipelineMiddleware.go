package middleware

import (
	"fmt"
	"net/http"
	"primerid/api/contexts"
	"primerid/api/models/constants/pipeline"
	"primerid/api/models/dtos/errors"

	"github.com/labstack/echo"
)

/*
Echo middleware to ensure a known `pipeline` HTTP path parameter was provided
*/
func MandatePipelinePathParam(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		p := pipeline.CastToPipeline(c.Param("pipeline"))
		if p == pipeline.Unknown {
			fmt.Printf("Unknown pipeline %s\n", c.Param("pipeline"))
			return c.JSON(http.StatusNotFound, errors.CreateSimpleNotFound(fmt.Sprintf("unknown pipeline %s", c.Param("pipeline"))))
		}

		// forward a type-safe value down the pipeline
		gc := c.(*contexts.PortalContext)
		gc.Pipeline = p

		return next(gc)
	}
}

/*
Restricts a route to the TCS/DR pipeline; other pipelines 404
*/
func MandateTcsDrPipeline(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		gc := c.(*contexts.PortalContext)
		if gc.Pipeline != pipeline.TCSDR {
			return c.JSON(http.StatusNotFound, errors.CreateSimpleNotFound(fmt.Sprintf("not available for %s", gc.Pipeline)))
		}
		return next(gc)
	}
}
