package profile

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/matricula/core"
)

// ValidationApproved is the validationStatus recorded for every accepted stage change.
const ValidationApproved = "approved"

type Profile struct {
	UserID          string      `json:"user_id" db:"user_id"`
	FirstName       string      `json:"first_name" db:"first_name"`
	LastName        string      `json:"last_name" db:"last_name"`
	DocumentNumber  string      `json:"document_number" db:"document_number"`
	Phone           string      `json:"phone" db:"phone"`
	BirthDate       null.Time   `json:"birth_date" db:"birth_date"`
	Address         string      `json:"address" db:"address"`
	City            string      `json:"city" db:"city"`
	UniversityID    null.String `json:"university_id" db:"university_id"`
	ProgramID       null.String `json:"program_id" db:"program_id"`
	EnrollmentStage Stage       `json:"enrollment_stage" db:"enrollment_stage"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at" db:"updated_at"`
}

func (p Profile) FullName() string {
	return core.CleanString(p.FirstName + " " + p.LastName)
}

// New returns the empty profile every user starts with.
func New(userID string, now time.Time) Profile {
	return Profile{
		UserID:          userID,
		EnrollmentStage: StageSubscribed,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// StageHistory is an immutable audit row written on every accepted stage change.
type StageHistory struct {
	ID               string      `json:"id" db:"id"`
	UserID           string      `json:"user_id" db:"user_id"`
	PreviousStage    Stage       `json:"previous_stage" db:"previous_stage"`
	NewStage         Stage       `json:"new_stage" db:"new_stage"`
	ChangedBy        string      `json:"changed_by" db:"changed_by"`
	Comments         null.String `json:"comments" db:"comments"`
	ValidationStatus string      `json:"validation_status" db:"validation_status"`
	ValidationNotes  null.String `json:"validation_notes" db:"validation_notes"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
}

// UpdateProfile holds the personal data a student (or an admin) may change.
// The enrollment stage is not part of it.
type UpdateProfile struct {
	FirstName      string      `json:"first_name" validate:"max=128"`
	LastName       string      `json:"last_name" validate:"max=128"`
	DocumentNumber string      `json:"document_number" validate:"max=64"`
	Phone          string      `json:"phone" validate:"max=32"`
	BirthDate      null.Time   `json:"birth_date"`
	Address        string      `json:"address" validate:"max=255"`
	City           string      `json:"city" validate:"max=128"`
	UniversityID   null.String `json:"university_id"`
	ProgramID      null.String `json:"program_id"`
}

func (up *UpdateProfile) Validate(validate *validator.Validate) error {
	up.FirstName = core.CleanString(up.FirstName)
	up.LastName = core.CleanString(up.LastName)
	up.DocumentNumber = core.CleanString(up.DocumentNumber)
	up.Phone = core.CleanString(up.Phone)
	up.Address = core.CleanString(up.Address)
	up.City = core.CleanString(up.City)
	return validate.Struct(up)
}

// ChangeStage is the payload of a stage transition.
type ChangeStage struct {
	Stage           Stage  `json:"stage" validate:"required"`
	Comments        string `json:"comments" validate:"max=2000"`
	ValidationNotes string `json:"validation_notes" validate:"max=2000"`
}

func (cs *ChangeStage) Validate(validate *validator.Validate) error {
	cs.Stage = Stage(core.CleanString(string(cs.Stage)))
	cs.Comments = core.CleanString(cs.Comments)
	cs.ValidationNotes = core.CleanString(cs.ValidationNotes)
	if err := validate.Struct(cs); err != nil {
		return err
	}
	if !cs.Stage.IsValid() {
		return core.NewValidationError(nil, core.FieldError{Field: "stage", Error: "invalid enrollment stage"})
	}
	return nil
}

type QueryFilter struct {
	Stages []Stage `query:"stage"`
}

