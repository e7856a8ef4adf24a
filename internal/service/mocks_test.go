package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/handidevproject/pos-dashboard/internal/models"
	"github.com/handidevproject/pos-dashboard/internal/repository"
	"github.com/handidevproject/pos-dashboard/internal/supabase"
	"github.com/handidevproject/pos-dashboard/internal/validation"
)

type mockAuth struct {
	mock.Mock
}

func (m *mockAuth) SignUp(ctx context.Context, params supabase.SignUpParams) (*supabase.AuthResponse, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*supabase.AuthResponse), args.Error(1)
}

func (m *mockAuth) SignInWithPassword(ctx context.Context, email, password string) (*supabase.Session, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*supabase.Session), args.Error(1)
}

func (m *mockAuth) SignOut(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockAdmin struct {
	mock.Mock
}

func (m *mockAdmin) UpdateUserByID(ctx context.Context, id string, attrs supabase.UserAttributes) (*supabase.User, error) {
	args := m.Called(ctx, id, attrs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*supabase.User), args.Error(1)
}

func (m *mockAdmin) DeleteUser(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockUploader struct {
	mock.Mock
}

func (m *mockUploader) Enabled() bool {
	return m.Called().Bool(0)
}

func (m *mockUploader) Upload(ctx context.Context, fh *multipart.FileHeader) (string, error) {
	args := m.Called(ctx, fh)
	return args.String(0), args.Error(1)
}

// MockProfileRepository is a mock implementation of repository.ProfileRepository.
type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) List(ctx context.Context, q repository.ProfileQuery) (*models.ProfileList, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ProfileList), args.Error(1)
}

func (m *MockProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func (m *MockProfileRepository) Update(ctx context.Context, id uuid.UUID, upd repository.ProfileUpdate) (*models.Profile, error) {
	args := m.Called(ctx, id, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func formValues(kv ...string) validation.FormData {
	v := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		v.Set(kv[i], kv[i+1])
	}
	return validation.FormData{Values: v}
}

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func formWithAvatar(t *testing.T, fields map[string]string) validation.FormData {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("avatar", "me.png")
	require.NoError(t, err)
	_, err = fw.Write(pngBytes)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/admin/user", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	fd, err := validation.FormDataFromRequest(req, 1<<20)
	require.NoError(t, err)
	return fd
}

func stateJSON(t *testing.T, st models.FormState) string {
	t.Helper()
	data, err := json.Marshal(st)
	require.NoError(t, err)
	return string(data)
}
