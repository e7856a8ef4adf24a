package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeSupabase(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret" {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"code":400,"error_code":"invalid_credentials","msg":"Invalid login credentials"}`)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "access-1",
			"refresh_token": "refresh-1",
			"token_type":    "bearer",
			"expires_in":    3600,
			"expires_at":    time.Now().Add(time.Hour).Unix(),
			"user":          map[string]any{"id": "u1", "email": body["email"]},
		})
	})
	mux.HandleFunc("GET /auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-1" {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"code":401,"msg":"invalid JWT"}`)
			return
		}
		io.WriteString(w, `{"id":"u1","email":"admin@example.com","user_metadata":{"name":"Ada","role":"admin"}}`)
	})
	mux.HandleFunc("POST /auth/v1/signup", func(w http.ResponseWriter, r *http.Request) {
		assert.NotEqual(t, "Bearer access-1", r.Header.Get("Authorization"), "sign up never uses the caller's session")
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, `{"code":422,"error_code":"user_already_exists","msg":"User already registered"}`)
	})
	mux.HandleFunc("GET /rest/v1/profiles", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Range", "0-0/1")
		io.WriteString(w, `[{"id":"8f0e6a52-39b1-4c43-9a4a-7f0b4c1d2e3f","name":"Ana Lima","role":"cashier","created_at":"2024-05-01T10:00:00Z"}]`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	t.Setenv("SUPABASE_URL", srv.URL)
	t.Setenv("SUPABASE_ANON_KEY", "anon")
	t.Setenv("POSCTL_PASSWORD", "")
	return srv
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	jsonOut, verbose, sessionFile = false, false, ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetIn(strings.NewReader(""))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestLoginWhoamiLogout(t *testing.T) {
	fakeSupabase(t)
	session := filepath.Join(t.TempDir(), "session.json")

	out, err := runCLI(t, "login", "--session", session, "--email", "admin@example.com", "--password", "secret")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as admin@example.com")

	out, err = runCLI(t, "whoami", "--session", session)
	require.NoError(t, err)
	assert.Contains(t, out, "Role:   admin")

	_, err = runCLI(t, "logout", "--session", session)
	require.NoError(t, err)

	_, err = runCLI(t, "whoami", "--session", session)
	assert.Error(t, err)
}

func TestLogin_Invalid(t *testing.T) {
	fakeSupabase(t)
	session := filepath.Join(t.TempDir(), "session.json")

	_, err := runCLI(t, "login", "--session", session, "--email", "not-an-email", "--password", "x")
	require.Error(t, err)
	assert.Equal(t, "email: Invalid email format", err.Error())

	_, err = runCLI(t, "login", "--session", session, "--email", "admin@example.com", "--password", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid login credentials", err.Error())
}

func TestUsersList(t *testing.T) {
	fakeSupabase(t)

	out, err := runCLI(t, "users", "list", "--session", filepath.Join(t.TempDir(), "s.json"), "--limit", "25")
	require.NoError(t, err)
	assert.Contains(t, out, "Ana Lima")
	assert.Contains(t, out, "Page 1 of 1 (1 users)")
}

func TestUsersCreate_ProviderError(t *testing.T) {
	fakeSupabase(t)

	_, err := runCLI(t, "users", "create",
		"--email", "ana@example.com", "--password", "secret", "--name", "Ana", "--role", "cashier")
	require.Error(t, err)
	assert.Equal(t, "User already registered", err.Error())

	_, err = runCLI(t, "users", "create", "--email", "", "--password", "secret", "--name", "Ana", "--role", "cashier")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email: Email is required")
}
