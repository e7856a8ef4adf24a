package supabase

import (
	"log/slog"

	"github.com/handidevproject/pos-dashboard/internal/config"
)

// ServerOptions select how a request-scoped client is built.
type ServerOptions struct {
	// Admin selects the service role key. Row-level security does not apply
	// and the client never reads or writes the caller's session.
	Admin bool
	// Cookie sets the attributes of written auth cookies. The zero value
	// means DefaultCookieOptions.
	Cookie CookieOptions
}

// NewBrowserClient builds a client from the public URL and anon key, for
// contexts without request cookies (the CLI, interactive tools). The session
// lives in memory unless WithStorage is given.
func NewBrowserClient(cfg config.SupabaseConfig, opts ...Option) (*Client, error) {
	if cfg.URL == "" || cfg.AnonKey == "" {
		return nil, ErrMissingPublicConfig
	}

	return newClient(cfg.URL, cfg.AnonKey, authStorageKey(cfg), cfg.Timeout, opts...), nil
}

// NewServerClient builds a client bound to one request. The session is read
// from and written to cookies through cookies. Failed cookie writes are logged
// and dropped. Pass a shared WithHTTPClient so the circuit breaker sees every
// request rather than one.
func NewServerClient(cfg config.SupabaseConfig, cookies CookieMethods, so ServerOptions, opts ...Option) (*Client, error) {
	if cfg.URL == "" || cfg.AnonKey == "" || cfg.ServiceRoleKey == "" {
		return nil, ErrMissingServerConfig
	}

	key := cfg.AnonKey
	if so.Admin {
		key = cfg.ServiceRoleKey
	}

	cookieOpts := so.Cookie
	if cookieOpts == (CookieOptions{}) {
		cookieOpts = DefaultCookieOptions()
	}

	c := newClient(cfg.URL, key, authStorageKey(cfg), cfg.Timeout, opts...)
	c.storage = newCookieStorage(tolerantCookies{CookieMethods: cookies, logger: c.logger}, cookieOpts, c.logger)
	if so.Admin {
		c.persist = false
	}

	c.logger.Debug("supabase server client created",
		slog.Bool("admin", so.Admin),
		slog.String("storage_key", c.storageKey),
	)
	return c, nil
}

// authStorageKey is the cookie name the JavaScript clients use, so sessions
// are shared with them.
func authStorageKey(cfg config.SupabaseConfig) string {
	return "sb-" + cfg.ProjectRef() + "-auth-token"
}
