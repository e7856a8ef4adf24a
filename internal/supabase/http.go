package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
)

const (
	headerAPIKey        = "apikey"
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	headerClientInfo    = "X-Client-Info"
	contentTypeJSON     = "application/json"
	clientInfo          = "pos-dashboard-go/1.0.0"
)

// ErrProviderUnavailable is returned while the circuit breaker is open.
var ErrProviderUnavailable = errors.New("supabase: provider unavailable")

// errServerStatus marks a 5xx response as a breaker failure.
var errServerStatus = errors.New("server error status")

// request describes one call to a Supabase service.
type request struct {
	method string
	path   string
	query  url.Values
	header http.Header
	body   any
	// token is the bearer token. Empty means the API key.
	token string
}

// doRequest performs an HTTP request and handles common error cases.
// It returns the response headers so callers can read Content-Range.
func (c *Client) doRequest(ctx context.Context, r request, result any) (http.Header, error) {
	reqURL := c.baseURL + r.path
	if len(r.query) > 0 {
		reqURL += "?" + r.query.Encode()
	}

	var bodyReader io.Reader
	if r.body != nil {
		bodyBytes, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, reqURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	token := r.token
	if token == "" {
		token = c.apiKey
	}
	req.Header.Set(headerAPIKey, c.apiKey)
	req.Header.Set(headerAuthorization, "Bearer "+token)
	req.Header.Set(headerClientInfo, clientInfo)
	if r.body != nil {
		req.Header.Set(headerContentType, contentTypeJSON)
	}
	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return resp.Header, parseError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return resp.Header, fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return resp.Header, nil
}

// NewHTTPClient returns an HTTP client whose transport trips a circuit
// breaker after repeated transport failures or 5xx responses. While open,
// requests fail immediately with ErrProviderUnavailable.
func NewHTTPClient(timeout time.Duration, logger *slog.Logger) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: newBreakerTransport(http.DefaultTransport, logger),
	}
}

type breakerTransport struct {
	base http.RoundTripper
	cb   *gobreaker.CircuitBreaker
}

func newBreakerTransport(base http.RoundTripper, logger *slog.Logger) *breakerTransport {
	if logger == nil {
		logger = slog.Default()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "supabase",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})
	return &breakerTransport{base: base, cb: cb}
}

func (t *breakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	_, err := t.cb.Execute(func() (interface{}, error) {
		r, err := t.base.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		resp = r
		if r.StatusCode >= 500 {
			return nil, errServerStatus
		}
		return nil, nil
	})

	// A 5xx counts against the breaker but is still handed to the caller.
	if resp != nil {
		return resp, nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	return nil, err
}
