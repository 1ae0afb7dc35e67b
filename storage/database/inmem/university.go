package inmemdb

import (
	"context"

	"github.com/trezcool/matricula/core/university"
)

type universityRepository struct {
	db *DB
}

var _ university.Repository = (*universityRepository)(nil) // interface compliance check

func NewUniversityRepository(db *DB) university.Repository {
	return &universityRepository{db: db}
}

func (repo *universityRepository) QueryUniversities(_ context.Context) ([]university.University, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	unis := make([]university.University, len(repo.db.universities))
	copy(unis, repo.db.universities)
	return unis, nil
}

func (repo *universityRepository) GetUniversity(_ context.Context, id string) (university.University, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, u := range repo.db.universities {
		if u.ID == id {
			return u, nil
		}
	}
	return university.University{}, university.ErrNotFound
}

func (repo *universityRepository) QueryPrograms(_ context.Context, universityID string) ([]university.Program, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	progs := make([]university.Program, 0)
	for _, p := range repo.db.programs {
		if p.UniversityID == universityID {
			progs = append(progs, p)
		}
	}
	return progs, nil
}
