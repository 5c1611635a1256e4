package proxy

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Zuzuna54/fintech-app-demo/internal/middleware"
	"github.com/Zuzuna54/fintech-app-demo/internal/telemetry"
)

// Config holds reverse proxy settings for the single back-office backend.
type Config struct {
	// BackendURL is the base URL of the back-office API.
	BackendURL string
	// StripPrefix is removed from the request path before forwarding
	// (e.g. "/api" so /api/accounts reaches the backend as /accounts).
	StripPrefix string
	// Timeout bounds each forwarded request.
	Timeout time.Duration
	// Transport carries the bearer token. Forwarded traffic goes through
	// the same credential path as typed gateway calls.
	Transport http.RoundTripper
}

// ResourceProxy forwards domain resource requests to the backend with the
// operator's credentials attached.
type ResourceProxy struct {
	config Config
	target *url.URL
	proxy  *httputil.ReverseProxy
	client *http.Client
}

// New creates a resource proxy for the configured backend.
func New(cfg Config) (*ResourceProxy, error) {
	target, err := url.Parse(cfg.BackendURL)
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	transport := cfg.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	rp := &ResourceProxy{
		config: cfg,
		target: target,
		client: &http.Client{Transport: transport, Timeout: cfg.Timeout},
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.Transport = transport

	originalDirector := proxy.Director
	proxy.Director = func(req *http.Request) {
		originalDirector(req)
		req.Host = target.Host
	}

	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		w.Header().Set("Content-Type", "application/json")
		if isTimeoutError(err) {
			w.WriteHeader(http.StatusGatewayTimeout)
			io.WriteString(w, `{"success":false,"error":{"code":"GATEWAY_TIMEOUT","message":"Backend timed out"}}`)
			return
		}
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, `{"success":false,"error":{"code":"BAD_GATEWAY","message":"Backend unavailable"}}`)
	}

	proxy.ModifyResponse = func(resp *http.Response) error {
		resp.Header.Set("X-Proxied-By", "console")
		return nil
	}

	rp.proxy = proxy
	return rp, nil
}

// Handler returns a Gin handler that forwards the request to the backend.
func (rp *ResourceProxy) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := telemetry.StartSpan(c.Request.Context(), "console.proxy")
		defer span.End()

		span.SetAttributes(
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.path", c.Request.URL.Path),
			attribute.String("target.host", rp.target.Host),
		)

		if rp.config.StripPrefix != "" {
			c.Request.URL.Path = strings.TrimPrefix(c.Request.URL.Path, rp.config.StripPrefix)
			if c.Request.URL.Path == "" {
				c.Request.URL.Path = "/"
			}
		}

		if requestID := middleware.GetRequestID(c); requestID != "" {
			c.Request.Header.Set(middleware.RequestIDHeader, requestID)
		}

		timeoutCtx, cancel := context.WithTimeout(ctx, rp.config.Timeout)
		defer cancel()
		c.Request = c.Request.WithContext(timeoutCtx)

		span.SetStatus(codes.Ok, "")

		func() {
			defer func() {
				if r := recover(); r != nil {
					span.SetStatus(codes.Error, fmt.Sprintf("panic: %v", r))
					span.RecordError(fmt.Errorf("panic: %v", r))
				}
			}()
			rp.proxy.ServeHTTP(c.Writer, c.Request)
		}()
	}
}

// HealthCheck reports whether the backend answers its health endpoint.
func (rp *ResourceProxy) HealthCheck(ctx context.Context) bool {
	healthURL := rp.target.JoinPath("/health").String()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
	if err != nil {
		return false
	}
	resp, err := rp.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
		return true
	}
	if err == context.DeadlineExceeded {
		return true
	}
	return strings.Contains(err.Error(), "timeout")
}
