package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mivanic/parley/internal/domain"
)

func seedProfiles(t *testing.T, n int) []domain.Profile {
	t.Helper()
	profiles := make([]domain.Profile, n)
	for i := range profiles {
		profiles[i] = domain.Profile{
			ID:          uuid.New(),
			Email:       uuid.NewString() + "@example.com",
			Username:    string(rune('a'+i)) + "user",
			DisplayName: "User " + string(rune('A'+i)),
		}
	}
	return profiles
}

func TestCreateDirectDeduplicates(t *testing.T) {
	profiles := seedProfiles(t, 2)
	alice, bob := profiles[0], profiles[1]

	convRepo := newFakeConversationRepo()
	directory := NewDirectoryService(newFakeProfileRepo(alice, bob))
	composer := NewComposerService(convRepo, directory)

	ctx := context.Background()

	first, created, err := composer.CreateDirect(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, first.Counterpart)
	assert.Equal(t, bob.ID, first.Counterpart.ID)

	members, err := convRepo.ListMemberIDs(ctx, first.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	// The same pair from either side resolves to the existing
	// conversation and inserts nothing.
	second, created, err := composer.CreateDirect(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	third, created, err := composer.CreateDirect(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, third.ID)

	convs, err := convRepo.ListByUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, convs, 1)
}

func TestCreateDirectRejectsSelf(t *testing.T) {
	profiles := seedProfiles(t, 1)
	composer := NewComposerService(newFakeConversationRepo(), NewDirectoryService(newFakeProfileRepo(profiles[0])))

	_, _, err := composer.CreateDirect(context.Background(), profiles[0].ID, profiles[0].ID)
	assert.ErrorIs(t, err, ErrSelfConversation)
}

func TestCreateDirectUnknownCounterpart(t *testing.T) {
	profiles := seedProfiles(t, 1)
	composer := NewComposerService(newFakeConversationRepo(), NewDirectoryService(newFakeProfileRepo(profiles[0])))

	_, _, err := composer.CreateDirect(context.Background(), profiles[0].ID, uuid.New())
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestCreateDirectNotifiesBothMembers(t *testing.T) {
	profiles := seedProfiles(t, 2)
	convRepo := newFakeConversationRepo()
	composer := NewComposerService(convRepo, NewDirectoryService(newFakeProfileRepo(profiles...)))
	notifier := &fakeNotifier{}
	composer.SetNotifier(notifier)

	conv, created, err := composer.CreateDirect(context.Background(), profiles[0].ID, profiles[1].ID)
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, []uuid.UUID{conv.ID, conv.ID}, notifier.joined)
}

func TestListCandidatesExcludesExistingCounterparts(t *testing.T) {
	profiles := seedProfiles(t, 4)
	me := profiles[0]

	convRepo := newFakeConversationRepo()
	directory := NewDirectoryService(newFakeProfileRepo(profiles...))
	composer := NewComposerService(convRepo, directory)

	ctx := context.Background()

	// Direct chat with profiles[1]; a group with profiles[2] must not
	// exclude them from the candidate pool.
	_, _, err := composer.CreateDirect(ctx, me.ID, profiles[1].ID)
	require.NoError(t, err)
	_, err = composer.CreateGroup(ctx, me.ID, "weekend", []uuid.UUID{profiles[2].ID})
	require.NoError(t, err)

	candidates, err := composer.ListCandidates(ctx, me.ID)
	require.NoError(t, err)

	ids := make(map[uuid.UUID]bool)
	for _, c := range candidates {
		ids[c.ID] = true
	}
	assert.False(t, ids[me.ID])
	assert.False(t, ids[profiles[1].ID])
	assert.True(t, ids[profiles[2].ID])
	assert.True(t, ids[profiles[3].ID])
}

func TestCreateGroupValidation(t *testing.T) {
	profiles := seedProfiles(t, 2)
	composer := NewComposerService(newFakeConversationRepo(), NewDirectoryService(newFakeProfileRepo(profiles...)))
	ctx := context.Background()

	_, err := composer.CreateGroup(ctx, profiles[0].ID, "   ", []uuid.UUID{profiles[1].ID})
	assert.ErrorIs(t, err, ErrGroupNameMissing)

	_, err = composer.CreateGroup(ctx, profiles[0].ID, "solo", nil)
	assert.ErrorIs(t, err, ErrNoGroupMembers)

	// The creator in the member list does not count twice.
	_, err = composer.CreateGroup(ctx, profiles[0].ID, "echo", []uuid.UUID{profiles[0].ID})
	assert.ErrorIs(t, err, ErrNoGroupMembers)
}

func TestCreateGroupIncludesCreator(t *testing.T) {
	profiles := seedProfiles(t, 3)
	convRepo := newFakeConversationRepo()
	composer := NewComposerService(convRepo, NewDirectoryService(newFakeProfileRepo(profiles...)))

	conv, err := composer.CreateGroup(context.Background(), profiles[0].ID, "trio", []uuid.UUID{profiles[1].ID, profiles[2].ID})
	require.NoError(t, err)
	assert.True(t, conv.IsGroup)
	require.NotNil(t, conv.Name)
	assert.Equal(t, "trio", *conv.Name)

	members, err := convRepo.ListMemberIDs(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Len(t, members, 3)
	assert.Contains(t, members, profiles[0].ID)
}

// racingConversationRepo misses the first pair lookup, simulating a
// concurrent create landing between the existence check and the insert.
type racingConversationRepo struct {
	*fakeConversationRepo
	missed bool
}

func (r *racingConversationRepo) FindDirectByMembers(ctx context.Context, userID, counterpartID uuid.UUID) (*domain.Conversation, error) {
	if !r.missed {
		r.missed = true
		return nil, nil
	}
	return r.fakeConversationRepo.FindDirectByMembers(ctx, userID, counterpartID)
}

func TestCreateDirectRaceFallsBackToWinner(t *testing.T) {
	profiles := seedProfiles(t, 2)
	convRepo := &racingConversationRepo{fakeConversationRepo: newFakeConversationRepo()}
	directory := NewDirectoryService(newFakeProfileRepo(profiles...))
	composer := NewComposerService(convRepo, directory)

	ctx := context.Background()

	winner := &domain.Conversation{ID: uuid.New(), CreatedBy: profiles[1].ID, CreatedAt: time.Now()}
	require.NoError(t, convRepo.Create(ctx, winner, []uuid.UUID{profiles[1].ID, profiles[0].ID}))

	// The insert collides with the winner's pair key; the composer
	// reads the winner back instead of failing.
	conv, created, err := composer.CreateDirect(ctx, profiles[0].ID, profiles[1].ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, winner.ID, conv.ID)
}
