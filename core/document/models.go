package document

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/matricula/core"
)

type Type string

const (
	TypeIDCard      Type = "cedula"
	TypeDiploma     Type = "diploma"
	TypeRecord      Type = "acta"
	TypePhoto       Type = "foto"
	TypeReceipt     Type = "recibo"
	TypeForm        Type = "formulario"
	TypeCertificate Type = "certificado"
	TypeOther       Type = "otro"
)

var Types = []Type{TypeIDCard, TypeDiploma, TypeRecord, TypePhoto, TypeReceipt, TypeForm, TypeCertificate, TypeOther}

func (t Type) IsValid() bool {
	for _, v := range Types {
		if t == v {
			return true
		}
	}
	return false
}

type Status string

const (
	StatusPending  Status = "pendiente"
	StatusApproved Status = "aprobado"
	StatusRejected Status = "rechazado"
	StatusInReview Status = "en_revision"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusInReview:
		return true
	}
	return false
}

type Document struct {
	ID              string      `json:"id" db:"id"`
	UserID          string      `json:"user_id" db:"user_id"`
	Type            Type        `json:"type" db:"type"`
	Name            string      `json:"name" db:"name"`
	Location        string      `json:"-" db:"location"`
	Size            int64       `json:"size" db:"size"`
	Status          Status      `json:"status" db:"status"`
	RejectionReason null.String `json:"rejection_reason" db:"rejection_reason"`
	ReviewedBy      null.String `json:"reviewed_by" db:"reviewed_by"`
	ReviewedAt      null.Time   `json:"reviewed_at" db:"reviewed_at"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at" db:"updated_at"`
}

type NewDocument struct {
	Type Type
	File core.Upload
}

func (nd *NewDocument) Validate(maxSize int64) error {
	nd.Type = Type(core.CleanString(string(nd.Type), true /* lower */))
	if nd.Type == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "type", Error: "this field is required"})
	}
	if !nd.Type.IsValid() {
		return core.NewValidationError(nil, core.FieldError{Field: "type", Error: "invalid document type"})
	}
	return nd.File.Check(maxSize)
}

// Review is an admin decision on a pending document.
type Review struct {
	Status          Status `json:"status"`
	RejectionReason string `json:"rejection_reason"`
}

func (rv *Review) Validate() error {
	rv.RejectionReason = core.CleanString(rv.RejectionReason)
	switch rv.Status {
	case StatusApproved:
		rv.RejectionReason = ""
	case StatusRejected:
		if rv.RejectionReason == "" {
			return core.NewValidationError(nil, core.FieldError{
				Field: "rejection_reason",
				Error: "a rejection reason is required when rejecting a document",
			})
		}
	case "":
		return core.NewValidationError(nil, core.FieldError{Field: "status", Error: "this field is required"})
	default:
		return core.NewValidationError(nil, core.FieldError{Field: "status", Error: "status must be aprobado or rechazado"})
	}
	return nil
}

type QueryFilter struct {
	UserID string `query:"user_id"`
	Status Status `query:"status"`
	Type   Type   `query:"type"`
}
