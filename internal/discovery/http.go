package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/a3tai/mcp-pdf-mapper/internal/mapping"
)

const defaultHTTPTimeout = 30 * time.Second

// HTTPService fetches discovery results from a remote discovery endpoint.
// The endpoint is expected to serve GET {base}/templates/{id}/fields with
// a Payload JSON body.
type HTTPService struct {
	baseURL string
	client  *http.Client
}

// NewHTTPService creates a discovery client for the given base URL.
// client may be nil, in which case a client with a 30s timeout is used.
func NewHTTPService(baseURL string, client *http.Client) *HTTPService {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &HTTPService{
		baseURL: baseURL,
		client:  client,
	}
}

// DiscoverFields implements mapping.Discoverer.
func (s *HTTPService) DiscoverFields(ctx context.Context, templateID string) (*mapping.DiscoveryResult, error) {
	endpoint := fmt.Sprintf("%s/templates/%s/fields", s.baseURL, url.PathEscape(templateID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build discovery request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("discovery request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("discovery service returned %d: %s", resp.StatusCode, string(body))
	}

	var payload Payload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode discovery response: %w", err)
	}

	return payload.toResult(), nil
}
