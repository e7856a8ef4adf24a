package supabase

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// expiryMargin is how long before expiry an access token is refreshed.
const expiryMargin = 90 * time.Second

// User is an authenticated identity as returned by GoTrue.
type User struct {
	ID               string         `json:"id"`
	Aud              string         `json:"aud,omitempty"`
	Role             string         `json:"role,omitempty"`
	Email            string         `json:"email"`
	Phone            string         `json:"phone,omitempty"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at,omitempty"`
	LastSignInAt     *time.Time     `json:"last_sign_in_at,omitempty"`
	AppMetadata      map[string]any `json:"app_metadata,omitempty"`
	UserMetadata     map[string]any `json:"user_metadata,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// MetadataString returns a string value from the user metadata, or "".
func (u *User) MetadataString(key string) string {
	if u == nil || u.UserMetadata == nil {
		return ""
	}
	s, _ := u.UserMetadata[key].(string)
	return s
}

// Session is the access/refresh token pair issued by GoTrue.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user,omitempty"`
}

// Expiry returns when the access token expires. It prefers expires_at and
// falls back to the token's exp claim. The zero time means unknown.
func (s *Session) Expiry() time.Time {
	if s.ExpiresAt > 0 {
		return time.Unix(s.ExpiresAt, 0)
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(s.AccessToken, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// ExpiresSoon reports whether the access token should be refreshed before use.
// A session without a known expiry is always refreshed.
func (s *Session) ExpiresSoon(now time.Time) bool {
	exp := s.Expiry()
	if exp.IsZero() {
		return true
	}
	return !now.Add(expiryMargin).Before(exp)
}

// stamp fills expires_at from expires_in when the server omitted it.
func (s *Session) stamp(now time.Time) {
	if s.ExpiresAt == 0 && s.ExpiresIn > 0 {
		s.ExpiresAt = now.Unix() + s.ExpiresIn
	}
}

// AuthResponse is the result of a sign-up. Session is nil when the project
// requires email confirmation.
type AuthResponse struct {
	User    *User
	Session *Session
}
