package supabase

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
)

const (
	// maxChunkSize is the largest cookie value written before splitting into chunks.
	maxChunkSize = 3180
	// base64Prefix marks cookie values that carry base64url encoded JSON.
	base64Prefix = "base64-"
	// defaultCookieMaxAge keeps auth cookies for 400 days, the browser maximum.
	defaultCookieMaxAge = 400 * 24 * 60 * 60
)

// CookieOptions are the attributes applied to auth cookies.
type CookieOptions struct {
	Path     string
	Domain   string
	MaxAge   int
	HttpOnly bool
	Secure   bool
	SameSite http.SameSite
}

// DefaultCookieOptions returns the attributes used when none are configured.
func DefaultCookieOptions() CookieOptions {
	return CookieOptions{
		Path:     "/",
		MaxAge:   defaultCookieMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// Cookie is a cookie to be written by CookieMethods.SetAll.
// A negative MaxAge deletes the cookie.
type Cookie struct {
	Name    string
	Value   string
	Options CookieOptions
}

// Deleted reports whether the cookie removes a previous value.
func (c Cookie) Deleted() bool {
	return c.Options.MaxAge < 0
}

// HTTPCookie converts the cookie to its net/http form.
func (c Cookie) HTTPCookie() *http.Cookie {
	return &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Options.Path,
		Domain:   c.Options.Domain,
		MaxAge:   c.Options.MaxAge,
		HttpOnly: c.Options.HttpOnly,
		Secure:   c.Options.Secure,
		SameSite: c.Options.SameSite,
	}
}

// CookieMethods gives a client access to the cookies of the current request.
// Implementations are request scoped and are never shared between requests.
type CookieMethods interface {
	// GetAll returns the cookies visible to the current request.
	GetAll() []*http.Cookie
	// SetAll writes cookies to the response.
	SetAll(cookies []Cookie) error
}

// cookieStorage adapts CookieMethods to SessionStorage, splitting large values
// into numbered chunks (name.0, name.1, ...).
type cookieStorage struct {
	methods CookieMethods
	options CookieOptions
	logger  *slog.Logger
}

func newCookieStorage(methods CookieMethods, options CookieOptions, logger *slog.Logger) *cookieStorage {
	return &cookieStorage{methods: methods, options: options, logger: logger}
}

func (s *cookieStorage) GetItem(key string) (string, error) {
	byName := make(map[string]string)
	for _, c := range s.methods.GetAll() {
		byName[c.Name] = c.Value
	}

	value, ok := byName[key]
	if !ok {
		var b strings.Builder
		for i := 0; ; i++ {
			chunk, ok := byName[chunkName(key, i)]
			if !ok {
				break
			}
			b.WriteString(chunk)
		}
		value = b.String()
	}
	if value == "" {
		return "", nil
	}

	if strings.HasPrefix(value, base64Prefix) {
		decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(value, base64Prefix))
		if err != nil {
			// Unreadable cookie reads as no session.
			s.logger.Debug("discarding undecodable auth cookie", slog.String("cookie", key))
			return "", nil
		}
		return string(decoded), nil
	}
	return value, nil
}

func (s *cookieStorage) SetItem(key, value string) error {
	encoded := base64Prefix + base64.RawURLEncoding.EncodeToString([]byte(value))
	chunks := splitChunks(encoded, maxChunkSize)

	var cookies []Cookie
	written := make(map[string]bool, len(chunks))
	if len(chunks) == 1 {
		cookies = append(cookies, Cookie{Name: key, Value: chunks[0], Options: s.options})
		written[key] = true
	} else {
		for i, chunk := range chunks {
			name := chunkName(key, i)
			cookies = append(cookies, Cookie{Name: name, Value: chunk, Options: s.options})
			written[name] = true
		}
	}

	// Drop chunks left over from a longer previous value.
	for _, name := range s.existing(key) {
		if !written[name] {
			cookies = append(cookies, s.deletion(name))
		}
	}

	return s.methods.SetAll(cookies)
}

func (s *cookieStorage) RemoveItem(key string) error {
	names := s.existing(key)
	if len(names) == 0 {
		return nil
	}

	cookies := make([]Cookie, 0, len(names))
	for _, name := range names {
		cookies = append(cookies, s.deletion(name))
	}
	return s.methods.SetAll(cookies)
}

// existing returns the names of the cookies currently holding key, sorted.
func (s *cookieStorage) existing(key string) []string {
	var names []string
	for _, c := range s.methods.GetAll() {
		if c.Name == key || isChunkOf(c.Name, key) {
			names = append(names, c.Name)
		}
	}
	sort.Strings(names)
	return names
}

func (s *cookieStorage) deletion(name string) Cookie {
	opts := s.options
	opts.MaxAge = -1
	return Cookie{Name: name, Value: "", Options: opts}
}

func chunkName(key string, i int) string {
	return key + "." + strconv.Itoa(i)
}

func isChunkOf(name, key string) bool {
	suffix, ok := strings.CutPrefix(name, key+".")
	if !ok || suffix == "" {
		return false
	}
	_, err := strconv.Atoi(suffix)
	return err == nil
}

func splitChunks(value string, size int) []string {
	if len(value) <= size {
		return []string{value}
	}
	var chunks []string
	for len(value) > size {
		chunks = append(chunks, value[:size])
		value = value[size:]
	}
	if value != "" {
		chunks = append(chunks, value)
	}
	return chunks
}

// headerWriter is implemented by response writers that track whether the
// status line has been sent.
type headerWriter interface {
	HeaderWritten() bool
}

// RequestCookies is the CookieMethods of a page handler or form action:
// cookies are read from the request and written to the response. Cookies set
// during the request are visible to later GetAll calls.
type RequestCookies struct {
	r       *http.Request
	w       http.ResponseWriter
	written map[string]*http.Cookie
	order   []string
}

// NewRequestCookies creates the cookie accessor for one request.
// w may be nil when no response can be written (background work, tests).
func NewRequestCookies(w http.ResponseWriter, r *http.Request) *RequestCookies {
	return &RequestCookies{r: r, w: w, written: make(map[string]*http.Cookie)}
}

// GetAll returns the request cookies overlaid with the ones set since.
func (c *RequestCookies) GetAll() []*http.Cookie {
	var out []*http.Cookie
	seen := make(map[string]bool)
	if c.r != nil {
		for _, ck := range c.r.Cookies() {
			if seen[ck.Name] {
				continue
			}
			seen[ck.Name] = true
			if set, ok := c.written[ck.Name]; ok {
				if set.MaxAge >= 0 {
					out = append(out, set)
				}
				continue
			}
			out = append(out, ck)
		}
	}
	for _, name := range c.order {
		if seen[name] {
			continue
		}
		if set := c.written[name]; set.MaxAge >= 0 {
			out = append(out, set)
		}
	}
	return out
}

// SetAll writes the cookies to the response.
func (c *RequestCookies) SetAll(cookies []Cookie) error {
	if c.w == nil {
		return ErrOutsideRequest
	}
	if hw, ok := c.w.(headerWriter); ok && hw.HeaderWritten() {
		return ErrHeadersWritten
	}

	for _, ck := range cookies {
		hc := ck.HTTPCookie()
		http.SetCookie(c.w, hc)
		if _, ok := c.written[ck.Name]; !ok {
			c.order = append(c.order, ck.Name)
		}
		c.written[ck.Name] = hc
	}
	return nil
}

// tolerantCookies logs and drops SetAll failures. Writes made after the
// response started, or with no response at all, have nowhere to go.
type tolerantCookies struct {
	CookieMethods
	logger *slog.Logger
}

func (t tolerantCookies) SetAll(cookies []Cookie) error {
	if err := t.CookieMethods.SetAll(cookies); err != nil {
		t.logger.Debug("ignoring auth cookie write",
			slog.Int("cookies", len(cookies)),
			slog.String("error", err.Error()),
		)
	}
	return nil
}
