package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Conversation struct {
	ID        uuid.UUID `json:"id"`
	IsGroup   bool      `json:"is_group"`
	Name      *string   `json:"name,omitempty"`
	AvatarURL *string   `json:"avatar_url,omitempty"`
	CreatedBy uuid.UUID `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	// Counterpart is resolved for direct conversations only.
	Counterpart *ProfileSummary `json:"counterpart,omitempty"`
}

// Membership joins a profile to a conversation. No attributes beyond
// the two foreign keys.
type Membership struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	UserID         uuid.UUID `json:"user_id"`
}

// DisplayName resolves the name shown for a conversation: the group
// name for groups, otherwise the counterpart's display name with the
// same fallbacks the lookup placeholder uses.
func (c *Conversation) DisplayName() string {
	if c.IsGroup {
		if c.Name != nil && *c.Name != "" {
			return *c.Name
		}
		return "Group Chat"
	}
	if c.Counterpart != nil {
		if c.Counterpart.DisplayName != "" {
			return c.Counterpart.DisplayName
		}
		if c.Counterpart.Username != "" {
			return c.Counterpart.Username
		}
	}
	return "Unknown User"
}

// DisplayAvatar returns the conversation avatar for groups, or the
// counterpart's avatar for direct conversations.
func (c *Conversation) DisplayAvatar() *string {
	if c.IsGroup {
		return c.AvatarURL
	}
	if c.Counterpart != nil {
		return c.Counterpart.AvatarURL
	}
	return nil
}

// Initials derives the avatar-fallback initials from a display name.
func Initials(name string) string {
	parts := strings.Fields(name)
	if len(parts) == 0 {
		return "U"
	}
	var b strings.Builder
	for _, p := range parts {
		r := []rune(p)
		b.WriteString(strings.ToUpper(string(r[0])))
		if len([]rune(b.String())) >= 2 {
			break
		}
	}
	return b.String()
}
