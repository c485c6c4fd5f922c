package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alfredjeanlab/parkgate/internal/idgen"
	"github.com/alfredjeanlab/parkgate/internal/model"
)

// HTTPClient implements ParkingClient using the backend's HTTP/JSON REST API.
type HTTPClient struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithTimeout bounds every request, including reading the response body.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) { c.httpClient.Timeout = d }
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.httpClient = hc }
}

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:3000/api/v1"). When tokens is non-nil and yields a
// non-empty token, an Authorization header is set on every request.
func NewHTTPClient(baseURL string, tokens TokenSource, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// --- Auth ---

func (c *HTTPClient) Login(ctx context.Context, req *model.LoginRequest) (*model.LoginResponse, error) {
	var resp model.LoginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// --- Master data ---

func (c *HTTPClient) ListGates(ctx context.Context) ([]model.Gate, error) {
	var gates []model.Gate
	if err := c.doJSON(ctx, http.MethodGet, "/master/gates", nil, &gates); err != nil {
		return nil, err
	}
	return gates, nil
}

func (c *HTTPClient) ListZones(ctx context.Context, gateID string) ([]model.Zone, error) {
	path := "/master/zones"
	if gateID != "" {
		q := url.Values{}
		q.Set("gateId", gateID)
		path += "?" + q.Encode()
	}
	var zones []model.Zone
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &zones); err != nil {
		return nil, err
	}
	return zones, nil
}

// --- Subscriptions ---

func (c *HTTPClient) GetSubscription(ctx context.Context, id string) (*model.Subscription, error) {
	var sub model.Subscription
	if err := c.doJSON(ctx, http.MethodGet, "/subscriptions/"+url.PathEscape(id), nil, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// --- Tickets ---

func (c *HTTPClient) Checkin(ctx context.Context, req *model.CheckinRequest) (*model.CheckinResponse, error) {
	var resp model.CheckinResponse
	if err := c.doJSON(ctx, http.MethodPost, "/tickets/checkin", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) Checkout(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResult, error) {
	var result model.CheckoutResult
	if err := c.doJSON(ctx, http.MethodPost, "/tickets/checkout", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) GetTicket(ctx context.Context, id string) (*model.Ticket, error) {
	var ticket model.Ticket
	if err := c.doJSON(ctx, http.MethodGet, "/tickets/"+url.PathEscape(id), nil, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// --- Admin ---

func (c *HTTPClient) ParkingState(ctx context.Context) ([]model.ParkingState, error) {
	var rows []model.ParkingState
	if err := c.doJSON(ctx, http.MethodGet, "/admin/reports/parking-state", nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *HTTPClient) SetZoneOpen(ctx context.Context, zoneID string, open bool) error {
	body := map[string]bool{"open": open}
	return c.doJSON(ctx, http.MethodPut, "/admin/zones/"+url.PathEscape(zoneID)+"/open", body, nil)
}

// --- internal helpers ---

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// ErrorMessage returns the server-supplied message carried by err, or
// fallback when err is not an *APIError or its message is empty.
func ErrorMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded (for PUT/204 responses).
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	if id, err := idgen.GenerateWithPrefix(idgen.RequestPrefix); err == nil {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	// 204 No Content: success with no body.
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil {
			if errResp.Message != "" {
				return &APIError{StatusCode: resp.StatusCode, Message: errResp.Message}
			}
			if errResp.Error != "" {
				return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
			}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
