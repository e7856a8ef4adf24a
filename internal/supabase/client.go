// Package supabase is a small client for the Supabase services used by the
// dashboard: GoTrue auth, the GoTrue admin API and PostgREST.
package supabase

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 10 * time.Second

// Client is a handle to one Supabase project. A Client built by
// NewServerClient is bound to a single request and must not be shared.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	storage    SessionStorage
	storageKey string
	persist    bool
	logger     *slog.Logger
	now        func() time.Time

	// Auth is the GoTrue client.
	Auth *AuthService
	// Admin is the GoTrue admin client. It only works with the service role key.
	Admin *AdminService
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithStorage sets where the session is kept.
func WithStorage(storage SessionStorage) Option {
	return func(c *Client) {
		c.storage = storage
	}
}

// WithoutSessionPersistence makes the client ignore stored sessions and never
// write one. Calls authenticate with the API key only.
func WithoutSessionPersistence() Option {
	return func(c *Client) {
		c.persist = false
	}
}

func newClient(baseURL, apiKey, storageKey string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		storageKey: storageKey,
		persist:    true,
		logger:     slog.Default(),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = NewHTTPClient(timeout, c.logger)
	}
	if c.storage == nil {
		c.storage = NewMemoryStorage()
	}

	c.Auth = &AuthService{client: c}
	c.Admin = &AdminService{client: c}
	return c
}

// URL returns the project URL.
func (c *Client) URL() string {
	return c.baseURL
}

// StorageKey returns the key the session is stored under.
func (c *Client) StorageKey() string {
	return c.storageKey
}

// loadSession reads the stored session. A missing or unreadable value is no session.
func (c *Client) loadSession() *Session {
	if !c.persist {
		return nil
	}
	raw, err := c.storage.GetItem(c.storageKey)
	if err != nil {
		c.logger.Debug("failed to read session", slog.String("error", err.Error()))
		return nil
	}
	if raw == "" {
		return nil
	}

	var s Session
	if err := json.Unmarshal([]byte(raw), &s); err != nil || s.AccessToken == "" {
		c.logger.Debug("discarding malformed session")
		return nil
	}
	return &s
}

func (c *Client) saveSession(s *Session) error {
	if !c.persist {
		return nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return c.storage.SetItem(c.storageKey, string(data))
}

func (c *Client) removeSession() error {
	if !c.persist {
		return nil
	}
	return c.storage.RemoveItem(c.storageKey)
}

func (c *Client) verifierKey() string {
	return c.storageKey + "-code-verifier"
}
