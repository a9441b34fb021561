// Package geodata fetches the countries geometry dataset over HTTP.
package geodata

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/been-map-service/internal/domain"
)

// maxBody bounds the dataset size read from the server.
const maxBody = 32 << 20

// Client implements domain.CatalogFetcher against a static JSON resource.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a dataset client. A zero timeout disables the client
// timeout, so a slow server delays the catalog rather than forcing the fallback.
func NewClient(url string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// FetchCatalog retrieves and decodes the countries dataset.
func (c *Client) FetchCatalog(ctx context.Context) (domain.Catalog, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("countries data request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("countries data: status %d: %s", resp.StatusCode, body)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read countries data: %w", err)
	}

	catalog, err := domain.ParseCatalog(data)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("countries data fetched",
		"url", c.url,
		"countries", len(catalog),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return catalog, nil
}
