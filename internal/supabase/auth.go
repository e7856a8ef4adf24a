package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"
)

// AuthService talks to GoTrue and keeps the client's session in its storage.
type AuthService struct {
	client *Client
}

// SignUpParams are the inputs of SignUp. Data is stored as user metadata.
type SignUpParams struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Data     map[string]any `json:"data,omitempty"`
}

// SignUp registers a new user. The session is nil when the project requires
// email confirmation.
func (s *AuthService) SignUp(ctx context.Context, params SignUpParams) (*AuthResponse, error) {
	var raw json.RawMessage
	if _, err := s.client.doRequest(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/signup",
		body:   params,
	}, &raw); err != nil {
		return nil, err
	}

	// GoTrue answers with a session when auto-confirm is on, otherwise with the user.
	var peek struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(raw, &peek); err != nil {
		return nil, fmt.Errorf("failed to parse sign up response: %w", err)
	}

	if peek.AccessToken == "" {
		var user User
		if err := json.Unmarshal(raw, &user); err != nil {
			return nil, fmt.Errorf("failed to parse sign up response: %w", err)
		}
		return &AuthResponse{User: &user}, nil
	}

	var session Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("failed to parse sign up response: %w", err)
	}
	session.stamp(s.client.now())
	if err := s.client.saveSession(&session); err != nil {
		return nil, err
	}
	return &AuthResponse{User: session.User, Session: &session}, nil
}

// SignInWithPassword exchanges credentials for a session and stores it.
func (s *AuthService) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	return s.grant(ctx, "password", map[string]string{
		"email":    email,
		"password": password,
	})
}

// GetSession returns the stored session, refreshing it when the access token
// is about to expire. It returns nil, nil when there is no session.
func (s *AuthService) GetSession(ctx context.Context) (*Session, error) {
	session := s.client.loadSession()
	if session == nil {
		return nil, nil
	}
	if !session.ExpiresSoon(s.client.now()) {
		return session, nil
	}
	return s.RefreshSession(ctx, session.RefreshToken)
}

// RefreshSession trades a refresh token for a new session. When GoTrue
// rejects the token the stored session is removed. Transport failures keep
// it, so a provider outage does not sign everybody out.
func (s *AuthService) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		_ = s.client.removeSession()
		return nil, ErrSessionMissing
	}

	session, err := s.grant(ctx, "refresh_token", map[string]string{
		"refresh_token": refreshToken,
	})
	if err != nil {
		if sbErr, ok := AsError(err); ok && sbErr.IsClientError() {
			if rmErr := s.client.removeSession(); rmErr != nil {
				s.client.logger.Debug("failed to remove rejected session", slog.String("error", rmErr.Error()))
			}
		}
		return nil, err
	}
	return session, nil
}

// GetUser returns the user of the current session, validated by GoTrue.
func (s *AuthService) GetUser(ctx context.Context) (*User, error) {
	session, err := s.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionMissing
	}
	return s.UserForToken(ctx, session.AccessToken)
}

// UserForToken returns the user an access token belongs to.
func (s *AuthService) UserForToken(ctx context.Context, accessToken string) (*User, error) {
	var user User
	if _, err := s.client.doRequest(ctx, request{
		method: http.MethodGet,
		path:   "/auth/v1/user",
		token:  accessToken,
	}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// SignOut revokes the session and removes it from storage. The local session
// is removed even when GoTrue no longer knows it.
func (s *AuthService) SignOut(ctx context.Context) error {
	session := s.client.loadSession()
	var err error
	if session != nil {
		_, err = s.client.doRequest(ctx, request{
			method: http.MethodPost,
			path:   "/auth/v1/logout",
			token:  session.AccessToken,
		}, nil)
	}

	if rmErr := s.client.removeSession(); rmErr != nil {
		return rmErr
	}
	if sbErr, ok := AsError(err); ok && sbErr.IsClientError() {
		return nil
	}
	return err
}

// OAuthURL returns the URL that starts an OAuth sign-in with provider. A PKCE
// verifier is stored so the callback can finish with ExchangeCodeForSession.
func (s *AuthService) OAuthURL(provider, redirectTo string) (string, error) {
	if provider == "" {
		return "", errors.New("supabase: provider is required")
	}

	verifier := oauth2.GenerateVerifier()
	if err := s.client.storage.SetItem(s.client.verifierKey(), verifier); err != nil {
		return "", fmt.Errorf("failed to store code verifier: %w", err)
	}

	q := url.Values{}
	q.Set("provider", provider)
	if redirectTo != "" {
		q.Set("redirect_to", redirectTo)
	}
	q.Set("code_challenge", oauth2.S256ChallengeFromVerifier(verifier))
	q.Set("code_challenge_method", "s256")

	return s.client.baseURL + "/auth/v1/authorize?" + q.Encode(), nil
}

// ExchangeCodeForSession completes a PKCE sign-in started by OAuthURL.
func (s *AuthService) ExchangeCodeForSession(ctx context.Context, code string) (*Session, error) {
	verifier, err := s.client.storage.GetItem(s.client.verifierKey())
	if err != nil {
		return nil, fmt.Errorf("failed to read code verifier: %w", err)
	}
	if verifier == "" {
		return nil, ErrCodeVerifierMissing
	}

	session, err := s.grant(ctx, "pkce", map[string]string{
		"auth_code":     code,
		"code_verifier": verifier,
	})
	if rmErr := s.client.storage.RemoveItem(s.client.verifierKey()); rmErr != nil {
		s.client.logger.Debug("failed to remove code verifier", slog.String("error", rmErr.Error()))
	}
	return session, err
}

// grant calls the token endpoint and stores the resulting session.
func (s *AuthService) grant(ctx context.Context, grantType string, body map[string]string) (*Session, error) {
	var session Session
	if _, err := s.client.doRequest(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {grantType}},
		body:   body,
	}, &session); err != nil {
		return nil, err
	}

	session.stamp(s.client.now())
	if err := s.client.saveSession(&session); err != nil {
		return nil, err
	}
	return &session, nil
}
