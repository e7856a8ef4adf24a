package service

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/handidevproject/pos-dashboard/internal/models"
	"github.com/handidevproject/pos-dashboard/internal/pkg/pagination"
	"github.com/handidevproject/pos-dashboard/internal/repository"
	"github.com/handidevproject/pos-dashboard/internal/supabase"
	"github.com/handidevproject/pos-dashboard/internal/validation"
)

var validCreate = []string{"email", "ana@example.com", "password", "secret", "name", "Ana", "role", "cashier"}

func TestCreateUser_EmptyEmailSkipsProvider(t *testing.T) {
	auth := new(mockAuth)
	svc := NewUserService(nil, discardLogger())

	st := svc.CreateUser(context.Background(), auth, models.Idle(), formValues("email", "", "password", "secret", "name", "Ana", "role", "cashier"))

	assert.Equal(t, models.StatusError, st.Status())
	assert.NotEmpty(t, st.FieldErrors("email"))
	assert.Contains(t, st.Errors(), validation.FormKey)
	assert.Empty(t, st.FieldErrors(validation.FormKey))
	auth.AssertNotCalled(t, "SignUp", mock.Anything, mock.Anything)
}

func TestCreateUser_ProviderFailure(t *testing.T) {
	auth := new(mockAuth)
	auth.On("SignUp", mock.Anything, mock.Anything).
		Return(nil, &supabase.Error{StatusCode: http.StatusUnprocessableEntity, Code: "user_already_exists", Message: "User already registered"})
	svc := NewUserService(nil, discardLogger())

	st := svc.CreateUser(context.Background(), auth, models.Idle(), formValues(validCreate...))

	assert.JSONEq(t, `{"status":"error","errors":{"_form":["User already registered"]}}`, stateJSON(t, st))
	auth.AssertExpectations(t)
}

func TestCreateUser_ProviderServerErrorHidesDetails(t *testing.T) {
	auth := new(mockAuth)
	auth.On("SignUp", mock.Anything, mock.Anything).
		Return(nil, &supabase.Error{StatusCode: http.StatusInternalServerError, Code: "unexpected_failure", Message: "Database error saving new user"})
	svc := NewUserService(nil, discardLogger())

	st := svc.CreateUser(context.Background(), auth, models.Idle(), formValues(validCreate...))

	assert.Equal(t, []string{msgUnavailable}, st.FieldErrors(validation.FormKey))
	assert.NotContains(t, stateJSON(t, st), "Database error")
}

func TestCreateUser_ProviderFailureMergesPrevious(t *testing.T) {
	auth := new(mockAuth)
	auth.On("SignUp", mock.Anything, mock.Anything).Return(nil, supabase.ErrProviderUnavailable)
	svc := NewUserService(nil, discardLogger())

	prev := models.Failed(map[string][]string{"name": {"Name is required"}, validation.FormKey: {"old"}})
	st := svc.CreateUser(context.Background(), auth, prev, formValues(validCreate...))

	assert.Equal(t, []string{"Name is required"}, st.FieldErrors("name"))
	assert.Equal(t, []string{msgUnavailable}, st.FieldErrors(validation.FormKey))
}

func TestCreateUser_Success(t *testing.T) {
	auth := new(mockAuth)
	auth.On("SignUp", mock.Anything, supabase.SignUpParams{
		Email:    "ana@example.com",
		Password: "secret",
		Data:     map[string]any{"name": "Ana", "role": "cashier"},
	}).Return(&supabase.AuthResponse{User: &supabase.User{ID: "u1"}}, nil)
	svc := NewUserService(nil, discardLogger())

	st := svc.CreateUser(context.Background(), auth, models.Idle(), formValues(validCreate...))

	assert.JSONEq(t, `{"status":"success","errors":{}}`, stateJSON(t, st))
	auth.AssertExpectations(t)
}

func TestCreateUser_UploadsAvatar(t *testing.T) {
	auth := new(mockAuth)
	auth.On("SignUp", mock.Anything, mock.MatchedBy(func(p supabase.SignUpParams) bool {
		return p.Data["avatar_url"] == "https://cdn.example.com/avatars/x.png"
	})).Return(&supabase.AuthResponse{}, nil)

	uploader := new(mockUploader)
	uploader.On("Enabled").Return(true)
	uploader.On("Upload", mock.Anything, mock.Anything).Return("https://cdn.example.com/avatars/x.png", nil)

	svc := NewUserService(uploader, discardLogger())
	fd := formWithAvatar(t, map[string]string{"email": "ana@example.com", "password": "secret", "name": "Ana", "role": "admin"})

	st := svc.CreateUser(context.Background(), auth, models.Idle(), fd)

	assert.Equal(t, models.StatusSuccess, st.Status())
	uploader.AssertExpectations(t)
	auth.AssertExpectations(t)
}

func TestCreateUser_UploadFailureStopsSignUp(t *testing.T) {
	auth := new(mockAuth)
	uploader := new(mockUploader)
	uploader.On("Enabled").Return(true)
	uploader.On("Upload", mock.Anything, mock.Anything).Return("", errors.New("s3 down"))

	svc := NewUserService(uploader, discardLogger())
	fd := formWithAvatar(t, map[string]string{"email": "ana@example.com", "password": "secret", "name": "Ana", "role": "admin"})

	st := svc.CreateUser(context.Background(), auth, models.Idle(), fd)

	assert.Equal(t, []string{"Avatar could not be uploaded"}, st.FieldErrors("avatar"))
	auth.AssertNotCalled(t, "SignUp", mock.Anything, mock.Anything)
}

func TestCreateUser_UploadsDisabled(t *testing.T) {
	auth := new(mockAuth)
	svc := NewUserService(nil, discardLogger())
	fd := formWithAvatar(t, map[string]string{"email": "ana@example.com", "password": "secret", "name": "Ana", "role": "admin"})

	st := svc.CreateUser(context.Background(), auth, models.Idle(), fd)

	assert.True(t, st.HasError("avatar"))
	auth.AssertNotCalled(t, "SignUp", mock.Anything, mock.Anything)
}

func TestUpdateUser(t *testing.T) {
	id := uuid.New()
	admin := new(mockAdmin)
	admin.On("UpdateUserByID", mock.Anything, id.String(), supabase.UserAttributes{
		UserMetadata: map[string]any{"name": "Ana B", "role": "kitchen"},
	}).Return(&supabase.User{ID: id.String()}, nil)

	profiles := new(MockProfileRepository)
	profiles.On("Update", mock.Anything, id, repository.ProfileUpdate{Name: "Ana B", Role: "kitchen"}).
		Return(&models.Profile{ID: id, Name: "Ana B", Role: "kitchen"}, nil)

	svc := NewUserService(nil, discardLogger())
	st := svc.UpdateUser(context.Background(), admin, profiles, id, models.Idle(), formValues("name", "Ana B", "role", "kitchen"))

	assert.Equal(t, models.StatusSuccess, st.Status())
	admin.AssertExpectations(t)
	profiles.AssertExpectations(t)
}

func TestUpdateUser_Invalid(t *testing.T) {
	admin := new(mockAdmin)
	profiles := new(MockProfileRepository)
	svc := NewUserService(nil, discardLogger())

	st := svc.UpdateUser(context.Background(), admin, profiles, uuid.New(), models.Idle(), formValues("name", "", "role", "kitchen"))

	assert.True(t, st.HasError("name"))
	admin.AssertNotCalled(t, "UpdateUserByID", mock.Anything, mock.Anything, mock.Anything)
	profiles.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateUser_ProfileMissing(t *testing.T) {
	id := uuid.New()
	admin := new(mockAdmin)
	admin.On("UpdateUserByID", mock.Anything, id.String(), mock.Anything).Return(&supabase.User{}, nil)
	profiles := new(MockProfileRepository)
	profiles.On("Update", mock.Anything, id, mock.Anything).Return(nil, repository.ErrProfileNotFound)

	svc := NewUserService(nil, discardLogger())
	st := svc.UpdateUser(context.Background(), admin, profiles, id, models.Idle(), formValues("name", "Ana", "role", "admin"))

	assert.Equal(t, []string{"User not found"}, st.FieldErrors(validation.FormKey))
}

func TestDeleteUser(t *testing.T) {
	id := uuid.New()
	admin := new(mockAdmin)
	admin.On("DeleteUser", mock.Anything, id.String()).Return(nil).Once()
	svc := NewUserService(nil, discardLogger())

	require.NoError(t, svc.DeleteUser(context.Background(), admin, id))

	failing := new(mockAdmin)
	failing.On("DeleteUser", mock.Anything, id.String()).Return(&supabase.Error{StatusCode: http.StatusNotFound, Message: "User not found"})
	err := svc.DeleteUser(context.Background(), failing, id)
	sbErr, ok := supabase.AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, sbErr.StatusCode)
}

func TestListUsers(t *testing.T) {
	q := repository.ProfileQuery{Search: "ana", Page: pagination.New()}
	profiles := new(MockProfileRepository)
	profiles.On("List", mock.Anything, q).Return(&models.ProfileList{Total: 3}, nil)

	svc := NewUserService(nil, discardLogger())
	list, err := svc.ListUsers(context.Background(), profiles, q)

	require.NoError(t, err)
	assert.Equal(t, int64(3), list.Total)
}

func TestGetUser(t *testing.T) {
	id := uuid.New()
	profiles := new(MockProfileRepository)
	profiles.On("GetByID", mock.Anything, id).Return(&models.Profile{ID: id, Name: "Ana"}, nil)
	profiles.On("GetByID", mock.Anything, mock.Anything).Return(nil, repository.ErrProfileNotFound)

	svc := NewUserService(nil, discardLogger())
	p, err := svc.GetUser(context.Background(), profiles, id)
	require.NoError(t, err)
	assert.Equal(t, "Ana", p.Name)

	_, err = svc.GetUser(context.Background(), profiles, uuid.New())
	assert.ErrorIs(t, err, repository.ErrProfileNotFound)
}

func TestProviderMessage(t *testing.T) {
	assert.Equal(t, msgUnavailable, providerMessage(supabase.ErrProviderUnavailable))
	assert.Equal(t, "Invalid login credentials", providerMessage(&supabase.Error{StatusCode: 400, Message: "Invalid login credentials"}))
	assert.Equal(t, msgUnavailable, providerMessage(&supabase.Error{StatusCode: 503, Message: "upstream"}))
	assert.Equal(t, msgUnexpected, providerMessage(errors.New("boom")))
}
