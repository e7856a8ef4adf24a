package supabase

import (
	"context"
	"net/http"
	"net/url"
)

// AdminService wraps the GoTrue admin endpoints. Requests are authorized with
// the client's API key, which must be the service role key.
type AdminService struct {
	client *Client
}

// UserAttributes are the fields an admin may change on a user.
// Zero values are left untouched.
type UserAttributes struct {
	Email        string         `json:"email,omitempty"`
	Password     string         `json:"password,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

// UpdateUserByID updates a user and returns the stored result.
func (s *AdminService) UpdateUserByID(ctx context.Context, id string, attrs UserAttributes) (*User, error) {
	var user User
	if _, err := s.client.doRequest(ctx, request{
		method: http.MethodPut,
		path:   "/auth/v1/admin/users/" + url.PathEscape(id),
		body:   attrs,
	}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteUser removes a user. Their profile row goes with them through the
// foreign key on the database side.
func (s *AdminService) DeleteUser(ctx context.Context, id string) error {
	_, err := s.client.doRequest(ctx, request{
		method: http.MethodDelete,
		path:   "/auth/v1/admin/users/" + url.PathEscape(id),
	}, nil)
	return err
}
