package inmemdb

import (
	"context"

	"github.com/trezcool/matricula/core/profile"
)

type profileRepository struct {
	db *DB
}

var _ profile.Repository = (*profileRepository)(nil) // interface compliance check

func NewProfileRepository(db *DB) profile.Repository {
	return &profileRepository{db: db}
}

func (repo *profileRepository) GetProfile(_ context.Context, userID string) (profile.Profile, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.profiles[userID]; ok {
		return *p, nil
	}
	return profile.Profile{}, profile.ErrNotFound
}

func (repo *profileRepository) UpdateProfile(_ context.Context, p profile.Profile) (profile.Profile, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.profiles[p.UserID]
	if !ok {
		return profile.Profile{}, profile.ErrNotFound
	}
	// the stage only moves through ChangeStage
	p.EnrollmentStage = orig.EnrollmentStage
	repo.db.profiles[p.UserID] = &p
	return p, nil
}

func (repo *profileRepository) QueryProfiles(_ context.Context, filter profile.QueryFilter) ([]profile.Profile, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	profiles := make([]profile.Profile, 0, len(repo.db.profiles))
	for _, usr := range repo.db.users {
		p, ok := repo.db.profiles[usr.ID]
		if !ok {
			continue
		}
		if len(filter.Stages) > 0 && !hasStage(filter.Stages, p.EnrollmentStage) {
			continue
		}
		profiles = append(profiles, *p)
	}
	return profiles, nil
}

func hasStage(stages []profile.Stage, s profile.Stage) bool {
	for _, st := range stages {
		if st == s {
			return true
		}
	}
	return false
}

func (repo *profileRepository) ChangeStage(_ context.Context, h profile.StageHistory) (profile.Profile, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	p, ok := repo.db.profiles[h.UserID]
	if !ok {
		return profile.Profile{}, profile.ErrNotFound
	}
	if p.EnrollmentStage != h.PreviousStage {
		return profile.Profile{}, profile.ErrStageChanged
	}

	updated := *p
	updated.EnrollmentStage = h.NewStage
	updated.UpdatedAt = h.CreatedAt
	repo.db.profiles[h.UserID] = &updated
	repo.db.history = append(repo.db.history, h)
	return updated, nil
}

func (repo *profileRepository) QueryStageHistory(_ context.Context, userID string) ([]profile.StageHistory, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	history := make([]profile.StageHistory, 0)
	for _, h := range repo.db.history {
		if h.UserID == userID {
			history = append(history, h)
		}
	}
	return history, nil
}
