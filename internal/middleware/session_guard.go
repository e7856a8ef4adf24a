package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/handidevproject/pos-dashboard/internal/config"
	"github.com/handidevproject/pos-dashboard/internal/supabase"
)

// staticPrefixes and staticExtensions are never guarded.
var (
	staticPrefixes   = []string{"/static/", "/_next/static", "/_next/image", "/favicon.ico"}
	staticExtensions = map[string]bool{
		".svg": true, ".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
	}
)

// GuardConfig configures the session guard.
type GuardConfig struct {
	Supabase    config.SupabaseConfig
	HTTPClient  *http.Client
	Cookie      supabase.CookieOptions
	LoginPath   string
	HomePath    string
	PublicPaths []string // entries ending in "/" are prefixes
	Logger      *slog.Logger
}

// SessionGuard refreshes the Supabase session of every matched request and
// redirects by authentication state:
//
//	no user, path != login  -> login
//	user,    path == login  -> home
//	otherwise               -> next, with the user in the context
//
// Cookies written by the refresh go to the response and, rewritten into the
// Cookie header, to the forwarded request.
type SessionGuard struct {
	cfg            GuardConfig
	public         map[string]bool
	publicPrefixes []string
	logger         *slog.Logger
}

// NewSessionGuard creates a session guard.
func NewSessionGuard(cfg GuardConfig) *SessionGuard {
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}
	if cfg.HomePath == "" {
		cfg.HomePath = "/"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	g := &SessionGuard{cfg: cfg, public: make(map[string]bool, len(cfg.PublicPaths)), logger: cfg.Logger}
	for _, p := range cfg.PublicPaths {
		if strings.HasSuffix(p, "/") {
			g.publicPrefixes = append(g.publicPrefixes, p)
			continue
		}
		g.public[p] = true
	}
	return g
}

// isPublic reports whether p may be served without a user.
func (g *SessionGuard) isPublic(p string) bool {
	if g.public[p] {
		return true
	}
	for _, prefix := range g.publicPrefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// Handler returns the guard as middleware.
func (g *SessionGuard) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !Matches(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		cookies := newForwardedCookies(r)
		user := g.resolveUser(r, cookies)
		cookies.apply(w)

		p := r.URL.Path
		switch {
		case user == nil && p != g.cfg.LoginPath && !g.isPublic(p):
			guardDecisionsTotal.WithLabelValues("redirect_login").Inc()
			redirect(w, r, g.cfg.LoginPath)
		case user != nil && p == g.cfg.LoginPath:
			guardDecisionsTotal.WithLabelValues("redirect_home").Inc()
			redirect(w, r, g.cfg.HomePath)
		default:
			guardDecisionsTotal.WithLabelValues("pass").Inc()
			ctx := r.Context()
			if user != nil {
				ctx = WithUser(ctx, user)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		}
	})
}

// resolveUser returns the validated user, or nil. Provider failures count
// as no user; the session cookies are then left as they were.
func (g *SessionGuard) resolveUser(r *http.Request, cookies supabase.CookieMethods) *supabase.User {
	opts := []supabase.Option{supabase.WithLogger(g.logger)}
	if g.cfg.HTTPClient != nil {
		opts = append(opts, supabase.WithHTTPClient(g.cfg.HTTPClient))
	}

	client, err := supabase.NewServerClient(g.cfg.Supabase, cookies, supabase.ServerOptions{Cookie: g.cfg.Cookie}, opts...)
	if err != nil {
		g.logger.Error("session guard cannot create supabase client", slog.String("error", err.Error()))
		return nil
	}

	user, err := client.Auth.GetUser(r.Context())
	if err != nil {
		if errors.Is(err, supabase.ErrSessionMissing) {
			return nil
		}
		// A rejected token is a signed-out user, not a provider failure.
		if sbErr, ok := supabase.AsError(err); !ok || !sbErr.IsUnauthorized() {
			IncrementProviderErrors("get_user")
		}
		g.logger.Debug("session not accepted",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		return nil
	}
	return user
}

// Matches reports whether the guard runs for path. Static assets and images
// are skipped.
func Matches(p string) bool {
	for _, prefix := range staticPrefixes {
		if strings.HasPrefix(p, prefix) {
			return false
		}
	}
	return !staticExtensions[strings.ToLower(path.Ext(p))]
}

// redirect sends a 302 to target, keeping the query string. htmx requests
// get an HX-Redirect header instead so the whole page navigates.
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	u := *r.URL
	u.Path = target
	u.RawPath = ""
	location := u.RequestURI()

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", location)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, location, http.StatusFound)
}

// forwardedCookies is the guard's CookieMethods. Writes are queued for the
// response and mirrored into the request's Cookie header so handlers see the
// refreshed session.
type forwardedCookies struct {
	r       *http.Request
	current map[string]string
	order   []string
	pending []supabase.Cookie
}

func newForwardedCookies(r *http.Request) *forwardedCookies {
	fc := &forwardedCookies{r: r, current: make(map[string]string)}
	for _, c := range r.Cookies() {
		if _, ok := fc.current[c.Name]; ok {
			continue
		}
		fc.current[c.Name] = c.Value
		fc.order = append(fc.order, c.Name)
	}
	return fc
}

func (fc *forwardedCookies) GetAll() []*http.Cookie {
	out := make([]*http.Cookie, 0, len(fc.order))
	for _, name := range fc.order {
		if value, ok := fc.current[name]; ok {
			out = append(out, &http.Cookie{Name: name, Value: value})
		}
	}
	return out
}

func (fc *forwardedCookies) SetAll(cookies []supabase.Cookie) error {
	for _, c := range cookies {
		if c.Deleted() {
			delete(fc.current, c.Name)
		} else {
			if _, ok := fc.current[c.Name]; !ok {
				fc.order = append(fc.order, c.Name)
			}
			fc.current[c.Name] = c.Value
		}
		fc.pending = append(fc.pending, c)
	}
	fc.rewriteRequest()
	return nil
}

func (fc *forwardedCookies) rewriteRequest() {
	fc.r.Header.Del("Cookie")
	for _, c := range fc.GetAll() {
		fc.r.AddCookie(c)
	}
}

// apply writes the queued cookies to the response.
func (fc *forwardedCookies) apply(w http.ResponseWriter) {
	for _, c := range fc.pending {
		http.SetCookie(w, c.HTTPCookie())
	}
	fc.pending = nil
}
