// Package service implements the dashboard's form actions. Each action takes
// the request-scoped Supabase services it needs and returns the next form
// state; provider failures never escape as errors.
package service

import (
	"context"
	"errors"
	"mime/multipart"

	"github.com/handidevproject/pos-dashboard/internal/models"
	"github.com/handidevproject/pos-dashboard/internal/supabase"
	"github.com/handidevproject/pos-dashboard/internal/validation"
)

// Messages shown under the general form key.
const (
	msgUnavailable = "Service temporarily unavailable, try again later"
	msgUnexpected  = "Something went wrong, try again"
)

// SignUpper registers auth users.
type SignUpper interface {
	SignUp(ctx context.Context, params supabase.SignUpParams) (*supabase.AuthResponse, error)
}

// PasswordAuth signs users in and out.
type PasswordAuth interface {
	SignInWithPassword(ctx context.Context, email, password string) (*supabase.Session, error)
	SignOut(ctx context.Context) error
}

// UserAdmin manages auth users with the service role.
type UserAdmin interface {
	UpdateUserByID(ctx context.Context, id string, attrs supabase.UserAttributes) (*supabase.User, error)
	DeleteUser(ctx context.Context, id string) error
}

// AvatarUploader stores avatar images and returns their public URL.
type AvatarUploader interface {
	Enabled() bool
	Upload(ctx context.Context, fh *multipart.FileHeader) (string, error)
}

// providerMessage is the text shown to the user for a failed provider call.
// Messages of 4xx rejections are shown as sent; 5xx messages describe
// provider internals and are replaced by msgUnavailable.
func providerMessage(err error) string {
	if errors.Is(err, supabase.ErrProviderUnavailable) {
		return msgUnavailable
	}
	if perr, ok := supabase.AsError(err); ok && perr.Message != "" {
		if perr.StatusCode >= 500 {
			return msgUnavailable
		}
		return perr.Message
	}
	return msgUnexpected
}

// validationFailed turns field errors into an error state. The general key is
// always present so forms can render it unconditionally.
func validationFailed(fe validation.FieldErrors) models.FormState {
	errs := map[string][]string(fe)
	if _, ok := errs[validation.FormKey]; !ok {
		errs[validation.FormKey] = []string{}
	}
	return models.Failed(errs)
}

// providerFailed merges the provider message over the previous state's errors.
func providerFailed(prev models.FormState, field, msg string) models.FormState {
	errs := prev.Errors()
	errs[field] = []string{msg}
	return models.Failed(errs)
}

func supabaseSignUp(email, password string, meta models.UserMetadata) supabase.SignUpParams {
	return supabase.SignUpParams{Email: email, Password: password, Data: meta.Map()}
}

func supabaseAttrs(meta models.UserMetadata) supabase.UserAttributes {
	return supabase.UserAttributes{UserMetadata: meta.Map()}
}
