// Package remote implements the DocumentStore port against the toolkit
// backend: per-document CRUD plus a query subscription over websocket.
// The backend is multi-tenant; its access policy, not this client,
// enforces that a writer only touches its own documents.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/bryanwahyu/reportsync/internal/domain/reports"
)

type Client struct {
	baseURL string
	http    *http.Client
	token   func() string // current signed credential, may change per call
	log     *slog.Logger
}

func New(baseURL string, token func() string, log *slog.Logger) *Client {
	if token == nil {
		token = func() string { return "" }
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		token:   token,
		log:     log,
	}
}

type createResponse struct {
	ID reports.ReportID `json:"id"`
}

// Create posts the draft; the server assigns id and created_at
// (server time).
func (c *Client) Create(ctx context.Context, collection string, d reports.Draft) (reports.ReportID, error) {
	body, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("encode draft: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.documentsURL(collection), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: create: %v", reports.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", statusError("create", resp)
	}

	var out createResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode create response: %w", err)
	}
	return out.ID, nil
}

func (c *Client) Delete(ctx context.Context, collection string, id reports.ReportID) error {
	u := c.documentsURL(collection) + "/" + url.PathEscape(string(id))
	req, err := c.newRequest(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: delete: %v", reports.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return statusError("delete", resp)
	}
	return nil
}

type fetchResponse struct {
	Documents []reports.Report `json:"documents"`
}

// FetchOnce runs the per-user, created_at-descending query once. Used
// directly by the fallback poller.
func (c *Client) FetchOnce(ctx context.Context, q reports.Query) ([]reports.Report, error) {
	u := c.documentsURL(q.Collection) + "?" + queryParams(q).Encode()
	req, err := c.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch: %v", reports.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, queryStatusError("fetch", resp)
	}

	var out fetchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode fetch response: %w", err)
	}
	return out.Documents, nil
}

func (c *Client) newRequest(ctx context.Context, method, u string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	return req, nil
}

func (c *Client) documentsURL(collection string) string {
	return fmt.Sprintf("%s/v1/collections/%s/documents", c.baseURL, url.PathEscape(collection))
}

func queryParams(q reports.Query) url.Values {
	v := url.Values{}
	v.Set("user_id", q.UserID)
	v.Set("order_by", "created_at")
	v.Set("dir", "desc")
	return v
}

// statusError maps the backend's failure taxonomy onto domain errors:
// failed preconditions, denied credentials, a rejected document on
// writes, and everything else as transient unavailability.
func statusError(op string, resp *http.Response) error {
	var base error
	switch resp.StatusCode {
	case http.StatusPreconditionFailed:
		base = reports.ErrPrecondition
	case http.StatusBadRequest:
		base = reports.ErrInvalidReport
	case http.StatusUnauthorized, http.StatusForbidden:
		base = reports.ErrPermissionDenied
	default:
		base = reports.ErrUnavailable
	}
	return fmt.Errorf("%w: %s: status %d", base, op, resp.StatusCode)
}

// queryStatusError additionally treats a plain 400 as a failed
// precondition: the backend signals a missing composite index that way
// on queries and watch handshakes.
func queryStatusError(op string, resp *http.Response) error {
	if resp.StatusCode == http.StatusBadRequest {
		return fmt.Errorf("%w: %s: status %d", reports.ErrPrecondition, op, resp.StatusCode)
	}
	return statusError(op, resp)
}
