package service

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/mivanic/parley/internal/domain"
	"github.com/mivanic/parley/internal/repository"
)

// DirectoryService resolves user identifiers to display profiles. It is
// the leaf dependency of the registry, stream and composer. There is no
// caching layer; every lookup goes to the store.
type DirectoryService struct {
	profiles repository.ProfileRepository
}

func NewDirectoryService(profiles repository.ProfileRepository) *DirectoryService {
	return &DirectoryService{profiles: profiles}
}

// Lookup returns the display profile for an id, or (nil, nil) when no
// such profile exists.
func (s *DirectoryService) Lookup(ctx context.Context, id uuid.UUID) (*domain.ProfileSummary, error) {
	profile, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, nil
	}
	return profile.Summary(), nil
}

// Resolve is Lookup with the degraded path folded in: a miss or a
// failed query yields the "Unknown User" placeholder so the caller is
// never blocked on a missing sender or counterpart.
func (s *DirectoryService) Resolve(ctx context.Context, id uuid.UUID) *domain.ProfileSummary {
	summary, err := s.Lookup(ctx, id)
	if err != nil {
		log.Printf("directory: lookup %s: %v", id, err)
		return domain.UnknownProfile(id)
	}
	if summary == nil {
		return domain.UnknownProfile(id)
	}
	return summary
}

// ListAllExcept returns every profile other than the given user, the
// composer's raw candidate pool.
func (s *DirectoryService) ListAllExcept(ctx context.Context, id uuid.UUID) ([]domain.Profile, error) {
	profiles, err := s.profiles.ListAllExcept(ctx, id)
	if err != nil {
		return nil, err
	}
	if profiles == nil {
		profiles = []domain.Profile{}
	}
	return profiles, nil
}
