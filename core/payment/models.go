package payment

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/matricula/core"
)

const dateLayout = "2006-01-02"

type InstallmentStatus string

const (
	InstallmentPending InstallmentStatus = "pendiente"
	InstallmentPaid    InstallmentStatus = "pagada"
	InstallmentOverdue InstallmentStatus = "vencida"
	InstallmentPartial InstallmentStatus = "parcial"
)

func (s InstallmentStatus) IsValid() bool {
	switch s {
	case InstallmentPending, InstallmentPaid, InstallmentOverdue, InstallmentPartial:
		return true
	}
	return false
}

type Status string

const (
	StatusPending  Status = "pendiente"
	StatusApproved Status = "aprobado"
	StatusRejected Status = "rechazado"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Installment is one quota of a student's payment plan.
type Installment struct {
	ID                string            `json:"id" db:"id"`
	UserID            string            `json:"user_id" db:"user_id"`
	Number            int               `json:"number" db:"number"`
	Amount            float64           `json:"amount" db:"amount"`
	DueDate           time.Time         `json:"due_date" db:"due_date"`
	Status            InstallmentStatus `json:"status" db:"status"`
	Notes             null.String       `json:"notes" db:"notes"`
	SupportLocation   null.String       `json:"-" db:"support_location"`
	SupportName       null.String       `json:"support_name" db:"support_name"`
	SupportUploadedAt null.Time         `json:"support_uploaded_at" db:"support_uploaded_at"`
	CreatedAt         time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at" db:"updated_at"`
}

type Payment struct {
	ID              string      `json:"id" db:"id"`
	UserID          string      `json:"user_id" db:"user_id"`
	InstallmentID   null.String `json:"installment_id" db:"installment_id"`
	Amount          float64     `json:"amount" db:"amount"`
	Method          string      `json:"method" db:"method"`
	Reference       string      `json:"reference" db:"reference"`
	Status          Status      `json:"status" db:"status"`
	RejectionReason null.String `json:"rejection_reason" db:"rejection_reason"`
	ReviewedBy      null.String `json:"reviewed_by" db:"reviewed_by"`
	ReviewedAt      null.Time   `json:"reviewed_at" db:"reviewed_at"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at" db:"updated_at"`
}

// Summary is what a student sees of their payments.
type Summary struct {
	Installments []Installment `json:"installments"`
	Payments     []Payment     `json:"payments"`
}

type NewInstallment struct {
	Amount  float64 `json:"amount" validate:"gt=0"`
	DueDate string  `json:"due_date" validate:"required,datetime=2006-01-02"`
	Notes   string  `json:"notes" validate:"max=2000"`

	dueDate time.Time
}

// NewPlan adds installments to a student's plan. Numbers continue after the existing ones.
type NewPlan struct {
	Installments []NewInstallment `json:"installments" validate:"required,min=1,dive"`
}

func (np *NewPlan) Validate(validate *validator.Validate) error {
	for i := range np.Installments {
		np.Installments[i].Notes = core.CleanString(np.Installments[i].Notes)
		np.Installments[i].DueDate = core.CleanString(np.Installments[i].DueDate)
	}
	if err := validate.Struct(np); err != nil {
		return err
	}
	for i := range np.Installments {
		d, err := time.Parse(dateLayout, np.Installments[i].DueDate)
		if err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "due_date", Error: "invalid date"})
		}
		np.Installments[i].dueDate = d
	}
	return nil
}

type NewPayment struct {
	InstallmentID string  `json:"installment_id" validate:"omitempty,uuid"`
	Amount        float64 `json:"amount" validate:"gt=0"`
	Method        string  `json:"method" validate:"required,max=64"`
	Reference     string  `json:"reference" validate:"max=128"`
}

func (np *NewPayment) Validate(validate *validator.Validate) error {
	np.InstallmentID = core.CleanString(np.InstallmentID)
	np.Method = core.CleanString(np.Method, true /* lower */)
	np.Reference = core.CleanString(np.Reference)
	return validate.Struct(np)
}

// QuotaUpdate sets the status of one installment as part of a payment review.
type QuotaUpdate struct {
	QuotaID   string            `json:"quota_id"`
	NewStatus InstallmentStatus `json:"new_status"`
}

// Review is an admin decision on a pending payment.
type Review struct {
	Status          Status        `json:"status"`
	RejectionReason string        `json:"rejection_reason"`
	QuotaUpdates    []QuotaUpdate `json:"quota_updates"`
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
				Error: "a rejection reason is required when rejecting a payment",
			})
		}
	case "":
		return core.NewValidationError(nil, core.FieldError{Field: "status", Error: "this field is required"})
	default:
		return core.NewValidationError(nil, core.FieldError{Field: "status", Error: "status must be aprobado or rechazado"})
	}
	for _, qu := range rv.QuotaUpdates {
		if qu.QuotaID == "" || !qu.NewStatus.IsValid() {
			return core.NewValidationError(nil, core.FieldError{
				Field: "quota_updates",
				Error: "each update needs a quota_id and a new_status among pendiente, pagada, vencida, parcial",
			})
		}
	}
	return nil
}

type InstallmentStatusUpdate struct {
	Status InstallmentStatus `json:"status"`
	Notes  string            `json:"notes"`
}

func (u *InstallmentStatusUpdate) Validate() error {
	u.Notes = core.CleanString(u.Notes)
	if !u.Status.IsValid() {
		return core.NewValidationError(nil, core.FieldError{
			Field: "status",
			Error: "status must be pendiente, pagada, vencida or parcial",
		})
	}
	return nil
}

type InstallmentFilter struct {
	UserID string
	IDs    []string
}

type QueryFilter struct {
	UserID string `query:"user_id"`
	Status Status `query:"status"`
}
