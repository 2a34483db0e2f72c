// Package wri fetches dataset metadata from the World Resources Institute
// CKAN catalog.
package wri

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/geo-risk-service/internal/domain"
	"github.com/couchcryptid/geo-risk-service/internal/observability"
)

// SourceName identifies catalog results fetched from WRI.
const SourceName = "wri"

// maxResponseBytes caps the package_show body read into memory.
const maxResponseBytes = 4 << 20

// ErrDatasetUnavailable is returned when CKAN answers but reports failure
// or omits the dataset.
var ErrDatasetUnavailable = errors.New("dataset unavailable")

// Client implements domain.CatalogFetcher using the CKAN package_show action.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a catalog client for the CKAN action API at baseURL.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// Dataset fetches the title, notes, and modification time of a dataset.
func (c *Client) Dataset(ctx context.Context, id string) (domain.DatasetInfo, error) {
	u := fmt.Sprintf("%s/package_show?%s", c.baseURL, url.Values{"id": {id}}.Encode())

	start := time.Now()
	info, err := c.doRequest(ctx, u, id)
	c.metrics.CatalogAPIDuration.Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, ErrDatasetUnavailable):
		c.metrics.CatalogRequests.WithLabelValues("empty").Inc()
	case err != nil:
		c.metrics.CatalogRequests.WithLabelValues("error").Inc()
	default:
		c.metrics.CatalogRequests.WithLabelValues("success").Inc()
	}
	if err != nil {
		c.logger.Warn("catalog request failed", "dataset", id, "error", err)
	}
	return info, err
}

func (c *Client) doRequest(ctx context.Context, fullURL, id string) (domain.DatasetInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.DatasetInfo{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.DatasetInfo{}, fmt.Errorf("package_show request: %w", err)
	}
	defer resp.Body.Close()

	body := io.LimitReader(resp.Body, maxResponseBytes)

	// CKAN reports a missing dataset as 404 with a JSON error body.
	if resp.StatusCode == http.StatusNotFound {
		return domain.DatasetInfo{}, fmt.Errorf("%w: %s", ErrDatasetUnavailable, id)
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(body, 512))
		return domain.DatasetInfo{}, fmt.Errorf("wri API error: status %d: %s", resp.StatusCode, msg)
	}

	var ckanResp response
	if err := json.NewDecoder(body).Decode(&ckanResp); err != nil {
		return domain.DatasetInfo{}, fmt.Errorf("decode response: %w", err)
	}
	if !ckanResp.Success || ckanResp.Result == nil {
		return domain.DatasetInfo{}, fmt.Errorf("%w: %s", ErrDatasetUnavailable, id)
	}

	r := ckanResp.Result
	info := domain.DatasetInfo{
		ID:     id,
		Title:  r.Title,
		Notes:  r.Notes,
		Source: SourceName,
	}
	if r.Name != "" {
		info.ID = r.Name
	}
	if t, ok := parseModified(r.MetadataModified); ok {
		info.LastModified = t
	}
	return info, nil
}

// CKAN timestamps are UTC without a zone designator.
var modifiedLayouts = []string{
	"2006-01-02T15:04:05.999999",
	time.RFC3339Nano,
}

func parseModified(s string) (time.Time, bool) {
	for _, layout := range modifiedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// CKAN action API response types.

type response struct {
	Success bool    `json:"success"`
	Result  *result `json:"result"`
}

type result struct {
	Name             string `json:"name"`
	Title            string `json:"title"`
	Notes            string `json:"notes"`
	MetadataModified string `json:"metadata_modified"`
}
