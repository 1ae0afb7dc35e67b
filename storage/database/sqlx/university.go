package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/matricula/core/university"
)

const (
	universityColumns = "id, name, code, city, country, created_at"
	programColumns    = "id, university_id, name, degree, modality, duration_semesters, created_at"
)

type universityRepository struct {
	db *sqlx.DB
}

var _ university.Repository = (*universityRepository)(nil) // interface compliance check

func NewUniversityRepository(db *sqlx.DB) *universityRepository {
	return &universityRepository{db: db}
}

func (repo universityRepository) QueryUniversities(ctx context.Context) ([]university.University, error) {
	unis := make([]university.University, 0)
	q := psql.Select(universityColumns).From("universities").OrderBy("name ASC")
	if err := selectAll(ctx, repo.db, &unis, q); err != nil {
		return nil, errors.Wrap(err, "querying universities")
	}
	return unis, nil
}

func (repo universityRepository) GetUniversity(ctx context.Context, id string) (university.University, error) {
	if !isUUID(id) {
		return university.University{}, university.ErrNotFound
	}
	var uni university.University
	q := psql.Select(universityColumns).From("universities").Where(sq.Eq{"id": id})
	if err := get(ctx, repo.db, &uni, q); err != nil {
		return university.University{}, trapNoRowsErr(err, university.ErrNotFound, "finding university")
	}
	return uni, nil
}

func (repo universityRepository) QueryPrograms(ctx context.Context, universityID string) ([]university.Program, error) {
	progs := make([]university.Program, 0)
	if !isUUID(universityID) {
		return progs, nil
	}
	q := psql.Select(programColumns).
		From("programs").
		Where(sq.Eq{"university_id": universityID}).
		OrderBy("name ASC")
	if err := selectAll(ctx, repo.db, &progs, q); err != nil {
		return nil, errors.Wrap(err, "querying programs")
	}
	return progs, nil
}
