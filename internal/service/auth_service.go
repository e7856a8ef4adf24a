package service

import (
	"context"
	"log/slog"

	"github.com/handidevproject/pos-dashboard/internal/models"
	"github.com/handidevproject/pos-dashboard/internal/validation"
)

// AuthService signs dashboard users in and out.
type AuthService interface {
	// Login validates the credentials and starts a session.
	Login(ctx context.Context, auth PasswordAuth, prev models.FormState, fd validation.FormData) models.FormState
	// Logout ends the session. The local session is cleared even when the
	// provider call fails.
	Logout(ctx context.Context, auth PasswordAuth) error
}

type authService struct {
	logger *slog.Logger
}

// NewAuthService creates an auth service.
func NewAuthService(logger *slog.Logger) AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &authService{logger: logger}
}

// Login runs the sign-in action.
func (s *authService) Login(ctx context.Context, auth PasswordAuth, prev models.FormState, fd validation.FormData) models.FormState {
	form, fe := validation.ParseLogin(fd)
	if fe.HasErrors() {
		return validationFailed(fe)
	}

	session, err := auth.SignInWithPassword(ctx, form.Email, form.Password)
	if err != nil {
		s.logger.Info("sign in rejected",
			slog.String("email", form.Email),
			slog.String("error", err.Error()),
		)
		return providerFailed(prev, validation.FormKey, providerMessage(err))
	}

	if session.User != nil {
		s.logger.Info("user signed in", slog.String("user_id", session.User.ID))
	}
	return models.Success()
}

// Logout runs the sign-out action.
func (s *authService) Logout(ctx context.Context, auth PasswordAuth) error {
	if err := auth.SignOut(ctx); err != nil {
		s.logger.Warn("sign out failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}
