// Package repository provides data access over the Supabase REST API. Row
// level security applies with the caller's credential.
package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/handidevproject/pos-dashboard/internal/models"
	"github.com/handidevproject/pos-dashboard/internal/pkg/pagination"
	"github.com/handidevproject/pos-dashboard/internal/supabase"
)

const profilesTable = "profiles"

// ErrProfileNotFound is returned when no profile row matches.
var ErrProfileNotFound = errors.New("profile not found")

// ProfileQuery selects a page of profiles. Search matches names
// case-insensitively.
type ProfileQuery struct {
	Search string
	Page   pagination.State
}

// ProfileUpdate holds the profile columns the dashboard edits. An empty
// AvatarURL keeps the stored avatar.
type ProfileUpdate struct {
	Name      string
	Role      string
	AvatarURL string
}

// ProfileRepository defines the profile data operations.
type ProfileRepository interface {
	List(ctx context.Context, q ProfileQuery) (*models.ProfileList, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	Update(ctx context.Context, id uuid.UUID, upd ProfileUpdate) (*models.Profile, error)
}

type profileRepo struct {
	db *supabase.Client
}

// NewProfileRepository creates a profile repository over a Supabase client.
func NewProfileRepository(db *supabase.Client) ProfileRepository {
	return &profileRepo{db: db}
}

// List returns one page of profiles ordered by creation time, oldest first,
// with the total count of matching rows.
func (r *profileRepo) List(ctx context.Context, q ProfileQuery) (*models.ProfileList, error) {
	page := q.Page
	if page.Limit == 0 {
		page = pagination.New()
	}
	from, to := page.Range()

	query := r.db.From(profilesTable).
		Select("id,name,role,avatar_url,created_at", true).
		Order("created_at", true).
		Range(from, to)
	if term := searchTerm(q.Search); term != "" {
		query = query.ILike("name", "*"+term+"*")
	}

	var rows []models.Profile
	total, err := query.Execute(ctx, &rows)
	if err != nil {
		return nil, err
	}
	if total < 0 {
		total = int64(len(rows))
	}
	if rows == nil {
		rows = []models.Profile{}
	}
	return &models.ProfileList{Profiles: rows, Total: total}, nil
}

// GetByID returns one profile.
func (r *profileRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var rows []models.Profile
	_, err := r.db.From(profilesTable).
		Select("id,name,role,avatar_url,created_at", false).
		Eq("id", id.String()).
		Execute(ctx, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrProfileNotFound
	}
	return &rows[0], nil
}

// Update changes a profile and returns the stored row.
func (r *profileRepo) Update(ctx context.Context, id uuid.UUID, upd ProfileUpdate) (*models.Profile, error) {
	values := map[string]any{
		"name": upd.Name,
		"role": upd.Role,
	}
	if upd.AvatarURL != "" {
		values["avatar_url"] = upd.AvatarURL
	}

	var rows []models.Profile
	_, err := r.db.From(profilesTable).
		Update(values).
		Eq("id", id.String()).
		Execute(ctx, &rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrProfileNotFound
	}
	return &rows[0], nil
}

// searchTerm strips the characters PostgREST treats as wildcards or
// separators so user input stays a literal.
func searchTerm(s string) string {
	return strings.TrimSpace(strings.NewReplacer("*", "", "%", "", ",", " ", "(", "", ")", "").Replace(s))
}
