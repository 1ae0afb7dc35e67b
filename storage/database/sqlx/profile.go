package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/matricula/core/profile"
)

const (
	profileColumns = "user_id, first_name, last_name, document_number, phone, birth_date, address, city, " +
		"university_id, program_id, enrollment_stage, created_at, updated_at"
	historyColumns = "id, user_id, previous_stage, new_stage, changed_by, comments, validation_status, validation_notes, created_at"
	insertHistory  = `INSERT INTO enrollment_stage_history (` + historyColumns + `) VALUES ` +
		`(:id, :user_id, :previous_stage, :new_stage, :changed_by, :comments, :validation_status, :validation_notes, :created_at)`
)

type profileRepository struct {
	db *sqlx.DB
}

var _ profile.Repository = (*profileRepository)(nil) // interface compliance check

func NewProfileRepository(db *sqlx.DB) *profileRepository {
	return &profileRepository{db: db}
}

func (repo profileRepository) GetProfile(ctx context.Context, userID string) (profile.Profile, error) {
	if !isUUID(userID) {
		return profile.Profile{}, profile.ErrNotFound
	}
	var p profile.Profile
	q := psql.Select(profileColumns).From("profiles").Where(sq.Eq{"user_id": userID})
	if err := get(ctx, repo.db, &p, q); err != nil {
		return profile.Profile{}, trapNoRowsErr(err, profile.ErrNotFound, "finding profile")
	}
	return p, nil
}

// UpdateProfile writes the personal data only, never enrollment_stage.
func (repo profileRepository) UpdateProfile(ctx context.Context, p profile.Profile) (profile.Profile, error) {
	q := psql.Update("profiles").
		SetMap(map[string]interface{}{
			"first_name":      p.FirstName,
			"last_name":       p.LastName,
			"document_number": p.DocumentNumber,
			"phone":           p.Phone,
			"birth_date":      p.BirthDate,
			"address":         p.Address,
			"city":            p.City,
			"university_id":   p.UniversityID,
			"program_id":      p.ProgramID,
			"updated_at":      p.UpdatedAt,
		}).
		Where(sq.Eq{"user_id": p.UserID}).
		Suffix("RETURNING " + profileColumns)

	var updated profile.Profile
	if err := get(ctx, repo.db, &updated, q); err != nil {
		return profile.Profile{}, trapNoRowsErr(err, profile.ErrNotFound, "updating profile")
	}
	return updated, nil
}

func (repo profileRepository) QueryProfiles(ctx context.Context, filter profile.QueryFilter) ([]profile.Profile, error) {
	q := psql.Select(profileColumns).From("profiles").OrderBy("created_at ASC")
	if len(filter.Stages) > 0 {
		q = q.Where(sq.Eq{"enrollment_stage": filter.Stages})
	}

	profiles := make([]profile.Profile, 0)
	if err := selectAll(ctx, repo.db, &profiles, q); err != nil {
		return nil, errors.Wrap(err, "querying profiles")
	}
	return profiles, nil
}

// ChangeStage updates the stage only if it still is h.PreviousStage, and inserts h, in one transaction.
func (repo profileRepository) ChangeStage(ctx context.Context, h profile.StageHistory) (profile.Profile, error) {
	var p profile.Profile
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := psql.Update("profiles").
			Set("enrollment_stage", h.NewStage).
			Set("updated_at", h.CreatedAt).
			Where(sq.Eq{"user_id": h.UserID, "enrollment_stage": h.PreviousStage}).
			Suffix("RETURNING " + profileColumns)
		if err := get(ctx, tx, &p, q); err != nil {
			return trapNoRowsErr(err, profile.ErrStageChanged, "updating enrollment stage")
		}
		if _, err := tx.NamedExecContext(ctx, insertHistory, h); err != nil {
			return errors.Wrap(err, "inserting stage history")
		}
		return nil
	})
	if err != nil {
		return profile.Profile{}, err
	}
	return p, nil
}

func (repo profileRepository) QueryStageHistory(ctx context.Context, userID string) ([]profile.StageHistory, error) {
	history := make([]profile.StageHistory, 0)
	if !isUUID(userID) {
		return history, nil
	}
	q := psql.Select(historyColumns).
		From("enrollment_stage_history").
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at ASC")
	if err := selectAll(ctx, repo.db, &history, q); err != nil {
		return nil, errors.Wrap(err, "querying stage history")
	}
	return history, nil
}
