package models

import (
	"time"

	"github.com/google/uuid"
)

// Roles a dashboard user can hold.
const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
	RoleKitchen = "kitchen"
)

// Roles lists the roles offered by the user forms, in display order.
var Roles = []string{RoleAdmin, RoleCashier, RoleKitchen}

// Profile is a row of the profiles table. Rows are created by a database
// trigger from the metadata given at sign-up.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Initials returns up to two initials of the name, for avatar placeholders.
func (p Profile) Initials() string {
	var out []rune
	start := true
	for _, r := range p.Name {
		if r == ' ' {
			start = true
			continue
		}
		if start {
			out = append(out, r)
			start = false
			if len(out) == 2 {
				break
			}
		}
	}
	return string(out)
}

// UserMetadata is what sign-up stores on the auth user and copies to the profile.
type UserMetadata struct {
	Name      string `json:"name"`
	Role      string `json:"role"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// Map returns the metadata in the shape GoTrue expects.
func (m UserMetadata) Map() map[string]any {
	out := map[string]any{
		"name": m.Name,
		"role": m.Role,
	}
	if m.AvatarURL != "" {
		out["avatar_url"] = m.AvatarURL
	}
	return out
}

// ProfileList is one page of profiles with the total row count.
type ProfileList struct {
	Profiles []Profile `json:"profiles"`
	Total    int64     `json:"total"`
}
