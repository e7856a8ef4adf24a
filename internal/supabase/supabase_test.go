package supabase

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/handidevproject/pos-dashboard/internal/config"
)

const (
	testAnonKey    = "anon-key"
	testServiceKey = "service-key"
)

// fakeProject is an httptest server speaking the parts of GoTrue and
// PostgREST the client uses. Handlers can be replaced per test.
type fakeProject struct {
	t      *testing.T
	server *httptest.Server
	mux    *http.ServeMux

	calls atomic.Int32
}

func newFakeProject(t *testing.T) *fakeProject {
	t.Helper()
	fp := &fakeProject{t: t, mux: http.NewServeMux()}
	fp.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fp.calls.Add(1)
		fp.mux.ServeHTTP(w, r)
	}))
	t.Cleanup(fp.server.Close)
	return fp
}

func (fp *fakeProject) handle(pattern string, h http.HandlerFunc) {
	fp.mux.HandleFunc(pattern, h)
}

func (fp *fakeProject) config() config.SupabaseConfig {
	return config.SupabaseConfig{
		URL:            fp.server.URL,
		AnonKey:        testAnonKey,
		ServiceRoleKey: testServiceKey,
		Timeout:        2 * time.Second,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	data, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	body := map[string]any{}
	require.NoError(t, json.Unmarshal(data, &body))
	return body
}

func sessionJSON(access, refresh string, expiresAt time.Time) map[string]any {
	return map[string]any{
		"access_token":  access,
		"refresh_token": refresh,
		"token_type":    "bearer",
		"expires_in":    3600,
		"expires_at":    expiresAt.Unix(),
		"user": map[string]any{
			"id":    "8f0e6a52-39b1-4c43-9a4a-7f0b4c1d2e3f",
			"email": "admin@example.com",
			"role":  "authenticated",
		},
	}
}

// cookieJar is a CookieMethods over a plain slice, recording every write.
type cookieJar struct {
	cookies []*http.Cookie
	writes  [][]Cookie
	err     error
}

func (j *cookieJar) GetAll() []*http.Cookie {
	return j.cookies
}

func (j *cookieJar) SetAll(cookies []Cookie) error {
	if j.err != nil {
		return j.err
	}
	j.writes = append(j.writes, cookies)
	for _, c := range cookies {
		j.remove(c.Name)
		if !c.Deleted() {
			j.cookies = append(j.cookies, &http.Cookie{Name: c.Name, Value: c.Value})
		}
	}
	return nil
}

func (j *cookieJar) remove(name string) {
	kept := j.cookies[:0]
	for _, c := range j.cookies {
		if c.Name != name {
			kept = append(kept, c)
		}
	}
	j.cookies = kept
}

func (j *cookieJar) value(name string) string {
	for _, c := range j.cookies {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}
