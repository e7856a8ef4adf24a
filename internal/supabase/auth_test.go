package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newServerClientForTest(t *testing.T, fp *fakeProject, jar *cookieJar, admin bool) *Client {
	t.Helper()
	c, err := NewServerClient(fp.config(), jar, ServerOptions{Admin: admin})
	require.NoError(t, err)
	return c
}

func storeSession(t *testing.T, c *Client, s map[string]any) {
	t.Helper()
	data, err := json.Marshal(s)
	require.NoError(t, err)
	require.NoError(t, c.storage.SetItem(c.storageKey, string(data)))
}

func TestAuth_SignInWithPasswordStoresSession(t *testing.T) {
	fp := newFakeProject(t)
	fp.handle("POST /auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, testAnonKey, r.Header.Get("apikey"))
		body := decodeBody(t, r)
		assert.Equal(t, "admin@example.com", body["email"])
		writeJSON(w, http.StatusOK, sessionJSON("access-1", "refresh-1", time.Now().Add(time.Hour)))
	})

	jar := &cookieJar{}
	c := newServerClientForTest(t, fp, jar, false)

	session, err := c.Auth.SignInWithPassword(context.Background(), "admin@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "access-1", session.AccessToken)
	assert.NotEmpty(t, jar.value(c.StorageKey()))

	stored := c.loadSession()
	require.NotNil(t, stored)
	assert.Equal(t, "refresh-1", stored.RefreshToken)
}

func TestAuth_SignInWithPasswordInvalidCredentials(t *testing.T) {
	fp := newFakeProject(t)
	fp.handle("POST /auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":             "invalid_grant",
			"error_description": "Invalid login credentials",
		})
	})

	jar := &cookieJar{}
	c := newServerClientForTest(t, fp, jar, false)

	_, err := c.Auth.SignInWithPassword(context.Background(), "admin@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid login credentials", err.Error())
	assert.Empty(t, jar.writes)
}

func TestAuth_GetUserWithFreshSession(t *testing.T) {
	fp := newFakeProject(t)
	fp.handle("GET /auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access-1", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{"id": "u1", "email": "admin@example.com"})
	})

	jar := &cookieJar{}
	c := newServerClientForTest(t, fp, jar, false)
	storeSession(t, c, sessionJSON("access-1", "refresh-1", time.Now().Add(time.Hour)))
	jar.writes = nil

	user, err := c.Auth.GetUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Empty(t, jar.writes, "a fresh session is not rewritten")
}

func TestAuth_GetUserRefreshesExpiringSession(t *testing.T) {
	fp := newFakeProject(t)
	fp.handle("POST /auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "refresh_token", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "refresh-1", decodeBody(t, r)["refresh_token"])
		writeJSON(w, http.StatusOK, sessionJSON("access-2", "refresh-2", time.Now().Add(time.Hour)))
	})
	fp.handle("GET /auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access-2", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{"id": "u1"})
	})

	jar := &cookieJar{}
	c := newServerClientForTest(t, fp, jar, false)
	storeSession(t, c, sessionJSON("access-1", "refresh-1", time.Now().Add(30*time.Second)))

	user, err := c.Auth.GetUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)

	stored := c.loadSession()
	require.NotNil(t, stored)
	assert.Equal(t, "access-2", stored.AccessToken)
}

func TestAuth_RejectedRefreshClearsSession(t *testing.T) {
	fp := newFakeProject(t)
	fp.handle("POST /auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"code":       400,
			"error_code": "refresh_token_not_found",
			"msg":        "Invalid Refresh Token: Refresh Token Not Found",
		})
	})

	jar := &cookieJar{}
	c := newServerClientForTest(t, fp, jar, false)
	storeSession(t, c, sessionJSON("access-1", "refresh-1", time.Now().Add(-time.Minute)))

	_, err := c.Auth.GetUser(context.Background())
	require.Error(t, err)
	assert.Empty(t, jar.value(c.StorageKey()))
	assert.Nil(t, c.loadSession())
}

func TestAuth_UnreachableProviderKeepsSession(t *testing.T) {
	fp := newFakeProject(t)
	jar := &cookieJar{}
	c := newServerClientForTest(t, fp, jar, false)
	storeSession(t, c, sessionJSON("access-1", "refresh-1", time.Now().Add(-time.Minute)))
	fp.server.Close()

	_, err := c.Auth.GetUser(context.Background())
	require.Error(t, err)
	assert.NotNil(t, c.loadSession())
}

func TestAuth_GetUserWithoutSession(t *testing.T) {
	fp := newFakeProject(t)
	c := newServerClientForTest(t, fp, &cookieJar{}, false)

	_, err := c.Auth.GetUser(context.Background())
	assert.ErrorIs(t, err, ErrSessionMissing)
	assert.Zero(t, fp.calls.Load())
}

func TestAuth_SignUpWithoutConfirmationReturnsUser(t *testing.T) {
	fp := newFakeProject(t)
	fp.handle("POST /auth/v1/signup", func(w http.ResponseWriter, r *http.Request) {
		body := decodeBody(t, r)
		assert.Equal(t, "new@example.com", body["email"])
		assert.Equal(t, map[string]any{"name": "New", "role": "cashier"}, body["data"])
		writeJSON(w, http.StatusOK, map[string]any{"id": "u2", "email": "new@example.com"})
	})

	jar := &cookieJar{}
	c := newServerClientForTest(t, fp, jar, true)

	resp, err := c.Auth.SignUp(context.Background(), SignUpParams{
		Email:    "new@example.com",
		Password: "secret",
		Data:     map[string]any{"name": "New", "role": "cashier"},
	})
	require.NoError(t, err)
	assert.Equal(t, "u2", resp.User.ID)
	assert.Nil(t, resp.Session)
}

func TestAuth_AdminSignUpDoesNotTouchCookies(t *testing.T) {
	fp := newFakeProject(t)
	fp.handle("POST /auth/v1/signup", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, testServiceKey, r.Header.Get("apikey"))
		writeJSON(w, http.StatusOK, sessionJSON("new-access", "new-refresh", time.Now().Add(time.Hour)))
	})

	jar := &cookieJar{}
	c := newServerClientForTest(t, fp, jar, true)

	resp, err := c.Auth.SignUp(context.Background(), SignUpParams{Email: "new@example.com", Password: "secret"})
	require.NoError(t, err)
	require.NotNil(t, resp.Session)
	assert.Empty(t, jar.writes)
}

func TestAuth_SignUpDuplicateEmail(t *testing.T) {
	fp := newFakeProject(t)
	fp.handle("POST /auth/v1/signup", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"code":       422,
			"error_code": "user_already_exists",
			"msg":        "User already registered",
		})
	})

	c := newServerClientForTest(t, fp, &cookieJar{}, true)
	_, err := c.Auth.SignUp(context.Background(), SignUpParams{Email: "dup@example.com", Password: "secret"})

	sbErr, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, "user_already_exists", sbErr.Code)
	assert.Equal(t, "User already registered", sbErr.Message)
}

func TestAuth_SignOutRemovesSessionEvenWhenRejected(t *testing.T) {
	fp := newFakeProject(t)
	fp.handle("POST /auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"msg": "invalid JWT"})
	})

	jar := &cookieJar{}
	c := newServerClientForTest(t, fp, jar, false)
	storeSession(t, c, sessionJSON("access-1", "refresh-1", time.Now().Add(time.Hour)))

	require.NoError(t, c.Auth.SignOut(context.Background()))
	assert.Empty(t, jar.value(c.StorageKey()))
}

func TestAuth_OAuthRoundTrip(t *testing.T) {
	fp := newFakeProject(t)
	jar := &cookieJar{}
	c := newServerClientForTest(t, fp, jar, false)

	rawURL, err := c.Auth.OAuthURL("github", "http://localhost:8080/auth/callback")
	require.NoError(t, err)

	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	assert.Equal(t, "/auth/v1/authorize", u.Path)
	assert.Equal(t, "github", u.Query().Get("provider"))
	assert.Equal(t, "s256", u.Query().Get("code_challenge_method"))
	challenge := u.Query().Get("code_challenge")

	fp.handle("POST /auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "pkce", r.URL.Query().Get("grant_type"))
		body := decodeBody(t, r)
		assert.Equal(t, "the-code", body["auth_code"])
		verifier, _ := body["code_verifier"].(string)
		assert.Equal(t, challenge, oauth2.S256ChallengeFromVerifier(verifier))
		writeJSON(w, http.StatusOK, sessionJSON("access-1", "refresh-1", time.Now().Add(time.Hour)))
	})

	session, err := c.Auth.ExchangeCodeForSession(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "access-1", session.AccessToken)
	assert.Empty(t, jar.value(c.verifierKey()))
	assert.True(t, strings.HasPrefix(jar.value(c.StorageKey()), base64Prefix))
}

func TestAuth_ExchangeWithoutVerifier(t *testing.T) {
	fp := newFakeProject(t)
	c := newServerClientForTest(t, fp, &cookieJar{}, false)

	_, err := c.Auth.ExchangeCodeForSession(context.Background(), "code")
	assert.ErrorIs(t, err, ErrCodeVerifierMissing)
}

func TestAdmin_UpdateAndDeleteUser(t *testing.T) {
	fp := newFakeProject(t)
	fp.handle("PUT /auth/v1/admin/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "u1", r.PathValue("id"))
		assert.Equal(t, "Bearer "+testServiceKey, r.Header.Get("Authorization"))
		body := decodeBody(t, r)
		assert.Equal(t, map[string]any{"name": "Renamed"}, body["user_metadata"])
		writeJSON(w, http.StatusOK, map[string]any{"id": "u1", "user_metadata": map[string]any{"name": "Renamed"}})
	})
	fp.handle("DELETE /auth/v1/admin/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "u1", r.PathValue("id"))
		writeJSON(w, http.StatusOK, map[string]any{})
	})

	c := newServerClientForTest(t, fp, &cookieJar{}, true)

	user, err := c.Admin.UpdateUserByID(context.Background(), "u1", UserAttributes{
		UserMetadata: map[string]any{"name": "Renamed"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", user.MetadataString("name"))

	require.NoError(t, c.Admin.DeleteUser(context.Background(), "u1"))
}
