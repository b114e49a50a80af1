package serviceInfo

import (
	"fmt"
	"net/http"
	"time"

	"primerid/api/models/constants/pipeline"
	serviceInfo "primerid/api/models/constants/service-info"

	"github.com/labstack/echo"
)

func GetRoot(c echo.Context) error {
	fmt.Printf("[%s] - Root hit!\n", time.Now())
	return c.JSON(http.StatusOK, serviceInfo.SERVICE_WELCOME)
}

// GA4GH service-info: https://github.com/ga4gh-discovery/ga4gh-service-info
func GetServiceInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"id":          serviceInfo.SERVICE_ID,
		"name":        serviceInfo.SERVICE_NAME,
		"type":        serviceInfo.SERVICE_TYPE,
		"description": serviceInfo.SERVICE_DESCRIPTION,
		"organization": map[string]string{
			"name": "UNC Center for AIDS Research",
			"url":  "https://www.primer-id.org",
		},
		"contactUrl": serviceInfo.SERVICE_CONTACT,
		"version":    serviceInfo.SERVICE_VERSION,
		"pipelines":  pipeline.All,
	})
}
