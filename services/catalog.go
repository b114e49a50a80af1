package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"

	"primerid/api/models"
	"primerid/api/utils"

	"github.com/Jeffail/gabs"
	"github.com/cenkalti/backoff"
	lru "github.com/hashicorp/golang-lru/v2"
)

const catalogKey = "catalog"

var ErrCatalogNotConfigured = fmt.Errorf("dr parameter catalog is not configured")

// DrCatalog reads the versioned DR parameter sets from the external
// catalog service and keeps them for the life of the process.
type DrCatalog struct {
	url        string
	client     *http.Client
	cache      *lru.Cache[string, *gabs.Container]
	maxRetries uint64
	logger     Logger

	NewBackOff func() backoff.BackOff
}

func NewDrCatalog(cfg *models.Config, logger Logger) (*DrCatalog, error) {
	size := cfg.Services.CatalogCacheSize
	if size <= 0 {
		size = 8
	}
	cache, err := lru.New[string, *gabs.Container](size)
	if err != nil {
		return nil, fmt.Errorf("create catalog cache: %w", err)
	}
	return &DrCatalog{
		url:        cfg.Services.DrCatalogUrl,
		client:     utils.NewHttpClient(cfg.Api.RequestTimeout),
		cache:      cache,
		maxRetries: cfg.Services.MaxRetries,
		logger:     logger,
		NewBackOff: func() backoff.BackOff { return backoff.NewExponentialBackOff() },
	}, nil
}

func (c *DrCatalog) Enabled() bool {
	return c != nil && c.url != ""
}

// Catalog returns the full `{version: {...params}}` document.
func (c *DrCatalog) Catalog(ctx context.Context) (*gabs.Container, error) {
	if !c.Enabled() {
		return nil, ErrCatalogNotConfigured
	}
	if cached, ok := c.cache.Get(catalogKey); ok {
		return cached, nil
	}

	body, err := c.fetch(ctx)
	if err != nil {
		return nil, err
	}
	parsed, err := gabs.ParseJSON(body)
	if err != nil {
		return nil, fmt.Errorf("parse dr catalog: %w", err)
	}
	if _, err := parsed.ChildrenMap(); err != nil {
		return nil, fmt.Errorf("dr catalog is not an object: %w", err)
	}

	c.cache.Add(catalogKey, parsed)
	return parsed, nil
}

func (c *DrCatalog) Versions(ctx context.Context) ([]string, error) {
	catalog, err := c.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	children, _ := catalog.ChildrenMap()
	versions := make([]string, 0, len(children))
	for v := range children {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	return versions, nil
}

func (c *DrCatalog) HasVersion(ctx context.Context, version string) (bool, error) {
	if !c.Enabled() {
		return true, nil
	}
	catalog, err := c.Catalog(ctx)
	if err != nil {
		return false, err
	}
	return catalog.Exists(version), nil
}

// Params returns the nested parameter set of one version.
func (c *DrCatalog) Params(ctx context.Context, version string) (interface{}, error) {
	catalog, err := c.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	if !catalog.Exists(version) {
		return nil, fmt.Errorf("unknown dr version %q", version)
	}
	return catalog.S(version).Data(), nil
}

func (c *DrCatalog) fetch(ctx context.Context) ([]byte, error) {
	var (
		body      []byte
		permanent error
		attempt   int
	)

	operation := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
		if err != nil {
			permanent = err
			return nil
		}
		res, err := c.client.Do(req)
		if err != nil {
			c.logger.Warnf("dr catalog attempt %d: %v", attempt, err)
			return err
		}
		defer res.Body.Close()

		if res.StatusCode >= 500 || res.StatusCode == http.StatusTooManyRequests {
			c.logger.Warnf("dr catalog attempt %d: %s", attempt, res.Status)
			return fmt.Errorf("dr catalog: %s", res.Status)
		}
		if res.StatusCode >= 400 {
			// not worth retrying
			permanent = fmt.Errorf("dr catalog: %s", res.Status)
			return nil
		}

		body, err = io.ReadAll(res.Body)
		return err
	}

	b := backoff.WithMaxRetries(backoff.WithContext(c.NewBackOff(), ctx), c.maxRetries)
	if err := backoff.Retry(operation, b); err != nil {
		return nil, fmt.Errorf("fetch dr catalog: %w", err)
	}
	if permanent != nil {
		return nil, permanent
	}
	return body, nil
}
