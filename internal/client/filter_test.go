package client

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/mivanic/parley/internal/domain"
)

func direct(counterpart string) domain.Conversation {
	return domain.Conversation{
		ID:          uuid.New(),
		Counterpart: &domain.ProfileSummary{ID: uuid.New(), Username: "u", DisplayName: counterpart},
	}
}

func group(name string) domain.Conversation {
	return domain.Conversation{ID: uuid.New(), IsGroup: true, Name: &name}
}

func TestFilterConversationsCaseInsensitive(t *testing.T) {
	convs := []domain.Conversation{direct("Alice Smith"), direct("Bob Jones"), group("Alpine Trip")}

	got := FilterConversations(convs, "al")
	assert.Len(t, got, 2)

	got = FilterConversations(convs, "ALICE")
	assert.Len(t, got, 1)
	assert.Equal(t, "Alice Smith", got[0].DisplayName())
}

func TestFilterConversationsEmptyQueryReturnsAll(t *testing.T) {
	convs := []domain.Conversation{direct("Alice"), group("Hiking")}
	assert.Len(t, FilterConversations(convs, ""), 2)
	assert.Len(t, FilterConversations(convs, "   "), 2)
}

func TestFilterConversationsMatchesFallbackName(t *testing.T) {
	// A direct conversation with a missing counterpart filters under
	// its placeholder display name.
	convs := []domain.Conversation{{ID: uuid.New()}}
	got := FilterConversations(convs, "unknown")
	assert.Len(t, got, 1)
}

func TestFilterProfiles(t *testing.T) {
	profiles := []domain.Profile{
		{ID: uuid.New(), Username: "asmith", DisplayName: "Alice Smith"},
		{ID: uuid.New(), Username: "bjones", DisplayName: "Bob Jones"},
	}

	assert.Len(t, FilterProfiles(profiles, "smith"), 1)
	assert.Len(t, FilterProfiles(profiles, "bjones"), 1)
	assert.Empty(t, FilterProfiles(profiles, "carol"))
}

func TestSelectionToggle(t *testing.T) {
	sel := NewSelection()
	a, b := uuid.New(), uuid.New()

	sel.Toggle(a)
	sel.Toggle(b)
	assert.True(t, sel.Has(a))
	assert.Len(t, sel.IDs(), 2)

	sel.Toggle(a)
	assert.False(t, sel.Has(a))
	assert.Equal(t, []uuid.UUID{b}, sel.IDs())

	sel.Clear()
	assert.Empty(t, sel.IDs())
}
