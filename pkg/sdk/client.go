package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// Client talks to a remote evidex decision service.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithAPIKey sets the Bearer token sent with each request.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		c.http = h
	}
}

// New creates a Client for the service at baseURL.
func New(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Decide submits a query and returns the service decision.
func (c *Client) Decide(ctx context.Context, query string, entities ...string) (Decision, error) {
	var dec Decision
	err := c.post(ctx, "/v1/decisions", decideRequest{Query: query, Entities: entities}, &dec)
	if err != nil {
		return Decision{}, fmt.Errorf("decide: %w", err)
	}
	return dec, nil
}

// Select resolves a clarification choice against a prior ambiguous decision.
func (c *Client) Select(ctx context.Context, prior Decision, optionID string) (Decision, error) {
	var dec Decision
	err := c.post(ctx, "/v1/decisions/select", selectRequest{Decision: prior, SelectedOption: optionID}, &dec)
	if err != nil {
		return Decision{}, fmt.Errorf("select: %w", err)
	}
	return dec, nil
}

// Health reports the service health.
func (c *Client) Health(ctx context.Context) (HealthReport, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return HealthReport{}, fmt.Errorf("health: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return HealthReport{}, fmt.Errorf("health: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var report HealthReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return HealthReport{}, fmt.Errorf("health: decode response: %w", err)
	}
	return report, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return parseAPIError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// APIError is a non-200 response from the service.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("evidex api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

func parseAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var er errorResponse
	if json.Unmarshal(body, &er) == nil && er.Code != "" {
		return &APIError{StatusCode: resp.StatusCode, Code: er.Code, Message: er.Message}
	}
	return &APIError{StatusCode: resp.StatusCode, Code: "unknown", Message: string(body)}
}
