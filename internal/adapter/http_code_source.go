package adapter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gooze.dev/pkg/testbench/internal/loader"
)

// maxUnitSize bounds the body accepted from a code server.
const maxUnitSize = 16 << 20

// HTTPCodeSource fetches units from a CodeServer.
type HTTPCodeSource struct {
	base   string
	key    string
	client *http.Client
}

// NewHTTPCodeSource creates a source fetching units of key from base.
// A nil client uses a client with a 30 second timeout.
func NewHTTPCodeSource(base, key string, client *http.Client) *HTTPCodeSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &HTTPCodeSource{base: strings.TrimRight(base, "/"), key: key, client: client}
}

// Key implements loader.CodeSource.
func (s *HTTPCodeSource) Key() string {
	return s.key
}

// GetUnit implements loader.CodeSource.
func (s *HTTPCodeSource) GetUnit(ctx context.Context, key, name string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/units/%s/%s", s.base, url.PathEscape(key), url.PathEscape(name))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", name, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", name, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%s: %w", name, loader.ErrUnitNotFound)
	default:
		return nil, fmt.Errorf("fetching %s: unexpected status %s", name, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxUnitSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}

	if len(data) > maxUnitSize {
		return nil, fmt.Errorf("unit %s exceeds %d bytes", name, maxUnitSize)
	}

	return data, nil
}
