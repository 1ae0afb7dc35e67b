package university

import (
	"context"
	"time"

	"github.com/kat-co/vala"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/matricula/core"
)

var ErrNotFound = core.NewNotFoundError("university not found")

type University struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Code      string    `json:"code" db:"code"`
	City      string    `json:"city" db:"city"`
	Country   string    `json:"country" db:"country"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Program struct {
	ID                string    `json:"id" db:"id"`
	UniversityID      string    `json:"university_id" db:"university_id"`
	Name              string    `json:"name" db:"name"`
	Degree            string    `json:"degree" db:"degree"`
	Modality          string    `json:"modality" db:"modality"`
	DurationSemesters int       `json:"duration_semesters" db:"duration_semesters"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
}

type (
	// Repository is read only: universities and programs are seeded by migrations.
	Repository interface {
		QueryUniversities(ctx context.Context) ([]University, error)
		GetUniversity(ctx context.Context, id string) (University, error)
		QueryPrograms(ctx context.Context, universityID string) ([]Program, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	vala.BeginValidation().Validate(vala.IsNotNil(repo, "repo")).CheckAndPanic()
	return &Service{repo: repo}
}

func (svc *Service) List(ctx context.Context) ([]University, error) {
	return svc.repo.QueryUniversities(ctx)
}

func (svc *Service) Programs(ctx context.Context, universityID string) ([]Program, error) {
	if _, err := svc.repo.GetUniversity(ctx, universityID); err != nil {
		return nil, err
	}
	return svc.repo.QueryPrograms(ctx, universityID)
}

// CheckProgram validates a profile's university and program pair.
// A program requires its university, and must belong to it.
func (svc *Service) CheckProgram(ctx context.Context, universityID, programID null.String) error {
	if !universityID.Valid {
		if programID.Valid {
			return core.NewValidationError(nil, core.FieldError{Field: "university_id", Error: "this field is required"})
		}
		return nil
	}
	if _, err := svc.repo.GetUniversity(ctx, universityID.String); err != nil {
		if core.IsNotFound(err) {
			return core.NewValidationError(nil, core.FieldError{Field: "university_id", Error: "unknown university"})
		}
		return err
	}
	if !programID.Valid {
		return nil
	}
	progs, err := svc.repo.QueryPrograms(ctx, universityID.String)
	if err != nil {
		return err
	}
	for _, p := range progs {
		if p.ID == programID.String {
			return nil
		}
	}
	return core.NewValidationError(nil, core.FieldError{Field: "program_id", Error: "unknown program for this university"})
}
