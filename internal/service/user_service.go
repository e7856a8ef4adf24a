package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/handidevproject/pos-dashboard/internal/models"
	"github.com/handidevproject/pos-dashboard/internal/repository"
	"github.com/handidevproject/pos-dashboard/internal/storage"
	"github.com/handidevproject/pos-dashboard/internal/validation"
)

// UserService manages dashboard users.
type UserService interface {
	// CreateUser validates the form, uploads the avatar and signs the user up.
	CreateUser(ctx context.Context, auth SignUpper, prev models.FormState, fd validation.FormData) models.FormState
	// UpdateUser changes the auth metadata and profile row of a user.
	UpdateUser(ctx context.Context, admin UserAdmin, profiles repository.ProfileRepository, id uuid.UUID, prev models.FormState, fd validation.FormData) models.FormState
	// DeleteUser removes an auth user. The profile row goes with it by cascade.
	DeleteUser(ctx context.Context, admin UserAdmin, id uuid.UUID) error
	// GetUser returns the profile of one user.
	GetUser(ctx context.Context, profiles repository.ProfileRepository, id uuid.UUID) (*models.Profile, error)
	// ListUsers returns one page of profiles.
	ListUsers(ctx context.Context, profiles repository.ProfileRepository, q repository.ProfileQuery) (*models.ProfileList, error)
}

type userService struct {
	avatars AvatarUploader
	logger  *slog.Logger
}

// NewUserService creates a user service. avatars may be nil when uploads are
// not configured.
func NewUserService(avatars AvatarUploader, logger *slog.Logger) UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &userService{avatars: avatars, logger: logger}
}

// CreateUser runs the create user action. Nothing is sent to the provider
// unless the form is valid. A profile row is created by the database from the
// sign-up metadata; a failure there is not compensated.
func (s *userService) CreateUser(ctx context.Context, auth SignUpper, prev models.FormState, fd validation.FormData) models.FormState {
	form, fe := validation.ParseCreateUser(fd)
	if fe.HasErrors() {
		return validationFailed(fe)
	}

	avatarURL, failed := s.avatarURL(ctx, prev, form.Avatar)
	if failed != nil {
		return *failed
	}

	meta := models.UserMetadata{Name: form.Name, Role: form.Role, AvatarURL: avatarURL}
	resp, err := auth.SignUp(ctx, supabaseSignUp(form.Email, form.Password, meta))
	if err != nil {
		s.logger.Warn("sign up rejected",
			slog.String("email", form.Email),
			slog.String("error", err.Error()),
		)
		return providerFailed(prev, validation.FormKey, providerMessage(err))
	}

	attrs := []any{slog.String("email", form.Email), slog.String("role", form.Role)}
	if resp != nil && resp.User != nil {
		attrs = append(attrs, slog.String("user_id", resp.User.ID))
	}
	s.logger.Info("user created", attrs...)
	return models.Success()
}

// UpdateUser runs the update user action.
func (s *userService) UpdateUser(ctx context.Context, admin UserAdmin, profiles repository.ProfileRepository, id uuid.UUID, prev models.FormState, fd validation.FormData) models.FormState {
	form, fe := validation.ParseUpdateUser(fd)
	if fe.HasErrors() {
		return validationFailed(fe)
	}

	avatarURL, failed := s.avatarURL(ctx, prev, form.Avatar)
	if failed != nil {
		return *failed
	}

	meta := models.UserMetadata{Name: form.Name, Role: form.Role, AvatarURL: avatarURL}
	if _, err := admin.UpdateUserByID(ctx, id.String(), supabaseAttrs(meta)); err != nil {
		s.logger.Warn("user update rejected",
			slog.String("user_id", id.String()),
			slog.String("error", err.Error()),
		)
		return providerFailed(prev, validation.FormKey, providerMessage(err))
	}

	_, err := profiles.Update(ctx, id, repository.ProfileUpdate{Name: form.Name, Role: form.Role, AvatarURL: avatarURL})
	if errors.Is(err, repository.ErrProfileNotFound) {
		return providerFailed(prev, validation.FormKey, "User not found")
	}
	if err != nil {
		s.logger.Warn("profile update rejected",
			slog.String("user_id", id.String()),
			slog.String("error", err.Error()),
		)
		return providerFailed(prev, validation.FormKey, providerMessage(err))
	}

	s.logger.Info("user updated", slog.String("user_id", id.String()))
	return models.Success()
}

// DeleteUser removes a user.
func (s *userService) DeleteUser(ctx context.Context, admin UserAdmin, id uuid.UUID) error {
	if err := admin.DeleteUser(ctx, id.String()); err != nil {
		return err
	}
	s.logger.Info("user deleted", slog.String("user_id", id.String()))
	return nil
}

// GetUser returns the profile of one user.
func (s *userService) GetUser(ctx context.Context, profiles repository.ProfileRepository, id uuid.UUID) (*models.Profile, error) {
	return profiles.GetByID(ctx, id)
}

// ListUsers returns one page of profiles.
func (s *userService) ListUsers(ctx context.Context, profiles repository.ProfileRepository, q repository.ProfileQuery) (*models.ProfileList, error) {
	return profiles.List(ctx, q)
}

// avatarURL resolves the avatar to a URL, uploading a file when one was given.
// A non-nil state is returned when the upload failed.
func (s *userService) avatarURL(ctx context.Context, prev models.FormState, a validation.Avatar) (string, *models.FormState) {
	if a.File == nil {
		return a.URL, nil
	}
	if s.avatars == nil || !s.avatars.Enabled() {
		st := providerFailed(prev, "avatar", "Avatar uploads are not available, use an image URL")
		return "", &st
	}

	url, err := s.avatars.Upload(ctx, a.File)
	if err != nil {
		s.logger.Error("avatar upload failed", slog.String("error", err.Error()))
		msg := "Avatar could not be uploaded"
		if errors.Is(err, storage.ErrUploadsDisabled) {
			msg = "Avatar uploads are not available, use an image URL"
		}
		st := providerFailed(prev, "avatar", msg)
		return "", &st
	}
	return url, nil
}
