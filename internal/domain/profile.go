package domain

import (
	"time"

	"github.com/google/uuid"
)

type Profile struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name"`
	PasswordHash string    `json:"-"`
	AvatarURL    *string   `json:"avatar_url,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ProfileSummary is the display projection attached to messages and
// conversations. All fields except the avatar are required.
type ProfileSummary struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
}

// UnknownProfile is the placeholder used when a lookup misses. A miss
// never fails the caller; the placeholder flows through instead.
func UnknownProfile(id uuid.UUID) *ProfileSummary {
	return &ProfileSummary{
		ID:          id,
		Username:    "unknown",
		DisplayName: "Unknown User",
	}
}

func (p *Profile) Summary() *ProfileSummary {
	return &ProfileSummary{
		ID:          p.ID,
		Username:    p.Username,
		DisplayName: p.DisplayName,
		AvatarURL:   p.AvatarURL,
	}
}
