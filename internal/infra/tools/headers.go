package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Headers fetches a URL and reports the security-relevant response
// headers, marking absent ones as "Missing".
type Headers struct {
	Client *http.Client
}

func NewHeaders() *Headers {
	return &Headers{Client: &http.Client{Timeout: 10 * time.Second}}
}

var securityHeaders = []string{
	"X-Frame-Options",
	"X-Content-Type-Options",
	"Strict-Transport-Security",
	"Content-Security-Policy",
	"X-XSS-Protection",
}

type headersResult struct {
	URL             string            `json:"url"`
	StatusCode      int               `json:"status_code"`
	Server          string            `json:"server"`
	SecurityHeaders map[string]string `json:"security_headers"`
}

// Run implements the provider port. The query must already be a
// sanitized http(s) URL.
func (h *Headers) Run(ctx context.Context, query string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, query, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch headers: %w", err)
	}
	defer resp.Body.Close()

	sec := make(map[string]string, len(securityHeaders))
	for _, name := range securityHeaders {
		v := resp.Header.Get(name)
		if v == "" {
			v = "Missing"
		}
		sec[name] = v
	}
	server := resp.Header.Get("Server")
	if server == "" {
		server = "Unknown"
	}

	return json.Marshal(headersResult{
		URL:             query,
		StatusCode:      resp.StatusCode,
		Server:          server,
		SecurityHeaders: sec,
	})
}
