package gateway

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

	"go.uber.org/zap"

	"github.com/Zuzuna54/fintech-app-demo/internal/logger"
	"github.com/Zuzuna54/fintech-app-demo/internal/token"
)

// ErrorKind classifies a gateway failure for logging and branching.
type ErrorKind string

const (
	KindRequest    ErrorKind = "REQUEST_ERROR"    // request could not be built or sent
	KindAPI        ErrorKind = "API_ERROR"        // backend answered with a non-2xx status
	KindValidation ErrorKind = "VALIDATION_ERROR" // response decoded but had the wrong shape
)

// APIError is the normalized shape of every gateway failure.
type APIError struct {
	Kind      ErrorKind `json:"type"`
	Status    int       `json:"status,omitempty"`
	URL       string    `json:"url,omitempty"`
	Method    string    `json:"method,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Message)
}

// IsUnauthorized reports whether err is an APIError with status 401.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// IsAuthError reports whether err is an APIError with status 401 or 403.
func IsAuthError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) &&
		(apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden)
}

// IsTransient reports whether err looks like infrastructure trouble: a
// network failure or a 5xx. Transient failures never end a session.
func IsTransient(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == 0 || apiErr.Status >= 500
}

// Config holds gateway settings
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client is the single HTTP client through which every backend call flows.
// The access token is read from the token store per request — client
// defaults are never mutated, so a logout can't leave a stale header
// behind.
type Client struct {
	http    *http.Client
	baseURL *url.URL
	store   token.Store
	log     *logger.Logger

	// OnAuthFailure runs when an authenticated call comes back 401/403:
	// the last-resort safety net for tokens revoked or expired mid-flight.
	OnAuthFailure func(method, path string)
}

// NewClient creates a gateway client for the backend at cfg.BaseURL.
func NewClient(cfg Config, store token.Store, log *logger.Logger) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend base URL: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = logger.Get()
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: base,
		store:   store,
		log:     log,
	}, nil
}

// Transport returns a RoundTripper that attaches the stored bearer token to
// every request. Used by the resource proxy so forwarded traffic carries
// the same credentials as typed calls and triggers the same OnAuthFailure
// teardown when the backend answers 401/403.
func (c *Client) Transport() http.RoundTripper {
	return &authTransport{base: http.DefaultTransport, client: c}
}

type authTransport struct {
	base   http.RoundTripper
	client *Client
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	access, err := t.client.store.Access(req.Context())
	if err == nil && access != "" {
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+access)
	}
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	// Proxied traffic is always established-session traffic, so a 401/403
	// here means the tokens are dead server-side.
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		if t.client.OnAuthFailure != nil {
			t.client.OnAuthFailure(req.Method, req.URL.Path)
		}
	}
	return resp, nil
}

// do performs a backend call. authed marks calls made with an established
// session; only those trigger the OnAuthFailure teardown on 401/403 —
// login and refresh handle their own rejections.
func (c *Client) do(ctx context.Context, method, path string, body, out any, authed bool) error {
	u := c.baseURL.JoinPath(path).String()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return c.fail(&APIError{Kind: KindRequest, Method: method, URL: u,
				Message: fmt.Sprintf("failed to encode request: %v", err)})
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return c.fail(&APIError{Kind: KindRequest, Method: method, URL: u, Message: err.Error()})
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if authed {
		access, err := c.store.Access(ctx)
		if err == nil {
			req.Header.Set("Authorization", "Bearer "+access)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.fail(&APIError{Kind: KindAPI, Method: method, URL: u, Message: err.Error()})
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		apiErr := &APIError{Kind: KindAPI, Status: resp.StatusCode, Method: method, URL: u,
			Message: readErrorMessage(resp)}
		if authed && c.OnAuthFailure != nil {
			c.OnAuthFailure(method, path)
		}
		return c.fail(apiErr)
	}

	if resp.StatusCode >= 400 {
		return c.fail(&APIError{Kind: KindAPI, Status: resp.StatusCode, Method: method, URL: u,
			Message: readErrorMessage(resp)})
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return c.fail(&APIError{Kind: KindValidation, Status: resp.StatusCode, Method: method,
				URL: u, Message: fmt.Sprintf("failed to decode response: %v", err)})
		}
	}
	return nil
}

// fail stamps, logs, and returns the error. Logging happens before any
// caller-side state mutation so the log reflects what was attempted.
func (c *Client) fail(apiErr *APIError) error {
	apiErr.Timestamp = time.Now().UTC()
	c.log.Error("backend request failed",
		zap.String("kind", string(apiErr.Kind)),
		zap.Int("status", apiErr.Status),
		zap.String("method", apiErr.Method),
		zap.String("url", apiErr.URL),
		zap.String("message", apiErr.Message),
		zap.Time("timestamp", apiErr.Timestamp),
	)
	return apiErr
}

// readErrorMessage extracts a human-readable message from an error body.
// The backend answers either {"detail": "..."} or the envelope
// {"error": {"message": "..."}}.
func readErrorMessage(resp *http.Response) string {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(raw) == 0 {
		return http.StatusText(resp.StatusCode)
	}

	var detail struct {
		Detail string `json:"detail"`
		Error  struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &detail); err == nil {
		switch {
		case detail.Detail != "":
			return detail.Detail
		case detail.Error.Message != "":
			return detail.Error.Message
		case detail.Message != "":
			return detail.Message
		}
	}

	msg := strings.TrimSpace(string(raw))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if msg == "" {
		return http.StatusText(resp.StatusCode)
	}
	return msg
}
