package client

import (
	"strings"

	"github.com/google/uuid"
	"github.com/mivanic/parley/internal/domain"
)

// FilterConversations returns the subset whose resolved display name
// contains the query, case-insensitively. Purely local; no round-trip.
func FilterConversations(convs []domain.Conversation, query string) []domain.Conversation {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return convs
	}
	out := make([]domain.Conversation, 0, len(convs))
	for _, c := range convs {
		if strings.Contains(strings.ToLower(c.DisplayName()), query) {
			out = append(out, c)
		}
	}
	return out
}

// FilterProfiles matches the query against username and display name.
func FilterProfiles(profiles []domain.Profile, query string) []domain.Profile {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return profiles
	}
	out := make([]domain.Profile, 0, len(profiles))
	for _, p := range profiles {
		if strings.Contains(strings.ToLower(p.Username), query) ||
			strings.Contains(strings.ToLower(p.DisplayName), query) {
			out = append(out, p)
		}
	}
	return out
}

// Selection is the multi-select set backing bulk deletion.
type Selection map[uuid.UUID]struct{}

func NewSelection() Selection {
	return make(Selection)
}

func (s Selection) Toggle(id uuid.UUID) {
	if _, ok := s[id]; ok {
		delete(s, id)
	} else {
		s[id] = struct{}{}
	}
}

func (s Selection) Has(id uuid.UUID) bool {
	_, ok := s[id]
	return ok
}

func (s Selection) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	return ids
}

func (s Selection) Clear() {
	for id := range s {
		delete(s, id)
	}
}
