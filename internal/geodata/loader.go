package geodata

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

// maxLayerBytes caps the size of a downloaded or read layer.
const maxLayerBytes = 64 << 20

// Loader reads risk layers from local files or http(s) URLs.
type Loader struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewLoader creates a Loader whose remote fetches time out after timeout.
func NewLoader(timeout time.Duration, logger *slog.Logger) *Loader {
	return &Loader{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Load reads and decodes the layer at source.
func (l *Loader) Load(ctx context.Context, source string) (*Layer, error) {
	start := time.Now()

	var (
		data []byte
		err  error
	)
	if isRemote(source) {
		data, err = l.fetch(ctx, source)
	} else {
		data, err = readFile(source)
	}
	if err != nil {
		return nil, err
	}

	layer, err := Decode(data, source)
	if err != nil {
		return nil, err
	}
	l.logger.Info("risk layer loaded",
		"source", source,
		"features", layer.Len(),
		"bytes", len(data),
		"duration", time.Since(start),
	)
	return layer, nil
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch layer %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch layer %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxLayerBytes))
	if err != nil {
		return nil, fmt.Errorf("read layer %s: %w", url, err)
	}
	return body, nil
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open layer: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxLayerBytes))
	if err != nil {
		return nil, fmt.Errorf("read layer %s: %w", path, err)
	}
	return data, nil
}
