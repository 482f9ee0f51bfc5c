package heygen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// doJSON performs an authenticated JSON request against the provider and
// decodes the response into out when out is non-nil.
func (s *Service) doJSON(ctx context.Context, method, url string, body any, out any) error {
	if s.config.APIKey == "" {
		return fmt.Errorf("heygen API key is not configured")
	}

	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Api-Key", s.config.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return s.do(req, out)
}

// doRaw performs an authenticated request with a raw binary body, used for
// asset uploads.
func (s *Service) doRaw(ctx context.Context, method, url string, data []byte, contentType string, out any) error {
	if s.config.APIKey == "" {
		return fmt.Errorf("heygen API key is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("X-Api-Key", s.config.APIKey)
	req.Header.Set("Content-Type", contentType)

	return s.do(req, out)
}

func (s *Service) do(req *http.Request, out any) error {
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("heygen API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}
