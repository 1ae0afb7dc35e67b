package request

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/matricula/core"
)

type Status string

const (
	StatusPending    Status = "pendiente"
	StatusInProgress Status = "en_proceso"
	StatusCompleted  Status = "completada"
	StatusRejected   Status = "rechazada"
)

// OpenStatuses are the statuses counted as pending by the enrollment stage rules.
var OpenStatuses = []Status{StatusPending, StatusInProgress}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusRejected:
		return true
	}
	return false
}

func (s Status) IsOpen() bool {
	return s == StatusPending || s == StatusInProgress
}

type Request struct {
	ID          string      `json:"id" db:"id"`
	UserID      string      `json:"user_id" db:"user_id"`
	Type        string      `json:"type" db:"type"`
	Subject     string      `json:"subject" db:"subject"`
	Description string      `json:"description" db:"description"`
	Status      Status      `json:"status" db:"status"`
	Response    null.String `json:"response" db:"response"`
	RespondedBy null.String `json:"responded_by" db:"responded_by"`
	RespondedAt null.Time   `json:"responded_at" db:"responded_at"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

type NewRequest struct {
	Type        string `json:"type" validate:"required,max=64"`
	Subject     string `json:"subject" validate:"required,max=255"`
	Description string `json:"description" validate:"max=5000"`
}

func (nr *NewRequest) Validate(validate *validator.Validate) error {
	nr.Type = core.CleanString(nr.Type, true /* lower */)
	nr.Subject = core.CleanString(nr.Subject)
	nr.Description = core.CleanString(nr.Description)
	return validate.Struct(nr)
}

// Response is an admin answer to a request.
type Response struct {
	Response string `json:"response" validate:"notblank"`
	Status   Status `json:"status" validate:"required"`
}

func (r *Response) Validate(validate *validator.Validate) error {
	r.Response = core.CleanString(r.Response)
	if err := validate.Struct(r); err != nil {
		return err
	}
	switch r.Status {
	case StatusInProgress, StatusCompleted, StatusRejected:
		return nil
	}
	return core.NewValidationError(nil, core.FieldError{
		Field: "status",
		Error: "status must be en_proceso, completada or rechazada",
	})
}

type QueryFilter struct {
	UserID   string   `query:"user_id"`
	Statuses []Status `query:"status"`
}
