package payment

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/matricula/core"
	"github.com/trezcool/matricula/core/notification"
	"github.com/trezcool/matricula/core/user"
)

const supportsFolder = "supports"

var (
	ErrNotFound            = core.NewNotFoundError("payment not found")
	ErrInstallmentNotFound = core.NewNotFoundError("installment not found")
	// ErrAlreadyReviewed is returned by Repository.ReviewPayment when the payment is no longer pending.
	ErrAlreadyReviewed = errors.New("payment already reviewed")
	// ErrInstallmentNumberTaken is returned by Repository.CreateInstallments on a duplicate (user, number) pair.
	ErrInstallmentNumberTaken = errors.New("installment number already taken")
)

type (
	Repository interface {
		// CreateInstallments inserts all installments in a single transaction.
		CreateInstallments(ctx context.Context, insts []Installment) ([]Installment, error)
		GetInstallment(ctx context.Context, id string) (Installment, error)
		// QueryInstallments returns installments ordered by user and number.
		QueryInstallments(ctx context.Context, filter InstallmentFilter) ([]Installment, error)
		UpdateInstallment(ctx context.Context, inst Installment) (Installment, error)

		CreatePayment(ctx context.Context, p Payment) (Payment, error)
		GetPayment(ctx context.Context, id string) (Payment, error)
		// QueryPayments returns the newest payments first.
		QueryPayments(ctx context.Context, filter QueryFilter) ([]Payment, error)
		// ReviewPayment stores the review fields of p, only if the stored payment is still pending,
		// and applies the quota updates, all in a single transaction.
		ReviewPayment(ctx context.Context, p Payment, updates []QuotaUpdate) (Payment, []Installment, error)
	}

	Service struct {
		repo       Repository
		users      notification.UserGetter
		files      core.FileStore
		dispatcher notification.Dispatcher
		logger     core.Logger
		maxSize    int64
	}
)

func NewService(
	repo Repository,
	users notification.UserGetter,
	files core.FileStore,
	dispatcher notification.Dispatcher,
	logger core.Logger,
	conf *core.Config,
) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(users, "users"),
		vala.IsNotNil(files, "files"),
		vala.IsNotNil(dispatcher, "dispatcher"),
		vala.IsNotNil(logger, "logger"),
		vala.IsNotNil(conf, "conf"),
	).CheckAndPanic()

	return &Service{
		repo:       repo,
		users:      users,
		files:      files,
		dispatcher: dispatcher,
		logger:     logger,
		maxSize:    conf.Storage.MaxUploadSize,
	}
}

// CreatePlan appends the installments of np to the plan of userID.
func (svc *Service) CreatePlan(ctx context.Context, actor user.User, userID string, np NewPlan) ([]Installment, error) {
	if !actor.IsAdmin() {
		return nil, core.ErrPermissionDenied
	}
	if _, err := svc.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	existing, err := svc.repo.QueryInstallments(ctx, InstallmentFilter{UserID: userID})
	if err != nil {
		return nil, err
	}
	next := 1
	for _, inst := range existing {
		if inst.Number >= next {
			next = inst.Number + 1
		}
	}

	now := core.NowFunc()
	insts := make([]Installment, 0, len(np.Installments))
	for i, ni := range np.Installments {
		insts = append(insts, Installment{
			ID:        uuid.NewString(),
			UserID:    userID,
			Number:    next + i,
			Amount:    ni.Amount,
			DueDate:   ni.dueDate,
			Status:    InstallmentPending,
			Notes:     null.NewString(ni.Notes, ni.Notes != ""),
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	insts, err = svc.repo.CreateInstallments(ctx, insts)
	if err != nil {
		if errors.Cause(err) == ErrInstallmentNumberTaken {
			return nil, core.NewDomainError("installment plan changed concurrently, retry", err.Error())
		}
		return nil, err
	}

	svc.dispatcher.Dispatch(notification.Job{
		UserID: userID,
		Title:  "Plan de pagos actualizado",
		Body:   fmt.Sprintf("Se agregaron %d cuota(s) a tu plan de pagos.", len(insts)),
		Type:   notification.TypePayment,
		Link:   "/pagos",
	})
	return insts, nil
}

func (svc *Service) Mine(ctx context.Context, userID string) (Summary, error) {
	insts, err := svc.repo.QueryInstallments(ctx, InstallmentFilter{UserID: userID})
	if err != nil {
		return Summary{}, err
	}
	pmts, err := svc.repo.QueryPayments(ctx, QueryFilter{UserID: userID})
	if err != nil {
		return Summary{}, err
	}
	return Summary{Installments: insts, Payments: pmts}, nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Payment, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "status", Error: "invalid payment status"})
	}
	return svc.repo.QueryPayments(ctx, filter)
}

// Report records a pending payment made by userID, optionally against one of their installments.
func (svc *Service) Report(ctx context.Context, userID string, np NewPayment) (Payment, error) {
	if np.InstallmentID != "" {
		inst, err := svc.repo.GetInstallment(ctx, np.InstallmentID)
		if err != nil && !core.IsNotFound(err) {
			return Payment{}, err
		}
		if err != nil || inst.UserID != userID {
			return Payment{}, core.NewValidationError(nil, core.FieldError{Field: "installment_id", Error: "unknown installment"})
		}
	}

	now := core.NowFunc()
	return svc.repo.CreatePayment(ctx, Payment{
		ID:            uuid.NewString(),
		UserID:        userID,
		InstallmentID: null.NewString(np.InstallmentID, np.InstallmentID != ""),
		Amount:        np.Amount,
		Method:        np.Method,
		Reference:     np.Reference,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
}

func (svc *Service) getInstallment(ctx context.Context, actor user.User, id string) (Installment, error) {
	inst, err := svc.repo.GetInstallment(ctx, id)
	if err != nil {
		return Installment{}, err
	}
	if inst.UserID != actor.ID && !actor.IsAdmin() {
		return Installment{}, core.ErrPermissionDenied
	}
	return inst, nil
}

// UploadSupport attaches a payment proof to one of the actor's installments, replacing any previous one.
func (svc *Service) UploadSupport(ctx context.Context, actor user.User, installmentID string, file core.Upload) (Installment, error) {
	if err := file.Check(svc.maxSize); err != nil {
		return Installment{}, err
	}
	inst, err := svc.repo.GetInstallment(ctx, installmentID)
	if err != nil {
		return Installment{}, err
	}
	if inst.UserID != actor.ID {
		return Installment{}, core.ErrPermissionDenied
	}

	filename := uuid.NewString() + strings.ToLower(filepath.Ext(file.Filename))
	loc, err := svc.files.Save(ctx, supportsFolder+"/"+inst.UserID, filename, file.Content)
	if err != nil {
		return Installment{}, errors.Wrap(err, "saving support file")
	}

	prev := inst.SupportLocation
	now := core.NowFunc()
	inst.SupportLocation = null.StringFrom(loc)
	inst.SupportName = null.StringFrom(filepath.Base(file.Filename))
	inst.SupportUploadedAt = null.TimeFrom(now)
	inst.UpdatedAt = now
	if inst, err = svc.repo.UpdateInstallment(ctx, inst); err != nil {
		svc.removeFile(ctx, loc)
		return Installment{}, err
	}
	if prev.Valid {
		svc.removeFile(ctx, prev.String)
	}
	return inst, nil
}

// OpenSupport returns the installment and its support file. The caller must close the reader.
func (svc *Service) OpenSupport(ctx context.Context, actor user.User, installmentID string) (Installment, io.ReadCloser, error) {
	inst, err := svc.getInstallment(ctx, actor, installmentID)
	if err != nil {
		return Installment{}, nil, err
	}
	if !inst.SupportLocation.Valid {
		return Installment{}, nil, core.NewNotFoundError("support file not found")
	}
	rc, err := svc.files.Open(ctx, inst.SupportLocation.String)
	if err != nil {
		return Installment{}, nil, errors.Wrapf(err, "opening support of installment %s", inst.ID)
	}
	return inst, rc, nil
}

func (svc *Service) removeFile(ctx context.Context, loc string) {
	if err := svc.files.Delete(ctx, loc); err != nil {
		svc.logger.Warn(fmt.Sprintf("deleting file %s", loc), err)
	}
}

// Review approves or rejects a pending payment. Quota updates are applied in the same transaction,
// whatever the decision.
func (svc *Service) Review(ctx context.Context, actor user.User, id string, rv Review) (Payment, error) {
	if !actor.IsAdmin() {
		return Payment{}, core.ErrPermissionDenied
	}
	if err := rv.Validate(); err != nil {
		return Payment{}, err
	}

	p, err := svc.repo.GetPayment(ctx, id)
	if err != nil {
		return Payment{}, err
	}
	if p.Status != StatusPending {
		return Payment{}, core.NewDomainError(ErrAlreadyReviewed.Error())
	}

	if len(rv.QuotaUpdates) > 0 {
		ids := make([]string, 0, len(rv.QuotaUpdates))
		for _, qu := range rv.QuotaUpdates {
			ids = append(ids, qu.QuotaID)
		}
		insts, err := svc.repo.QueryInstallments(ctx, InstallmentFilter{IDs: ids})
		if err != nil {
			return Payment{}, err
		}
		owned := make(map[string]bool, len(insts))
		for _, inst := range insts {
			owned[inst.ID] = inst.UserID == p.UserID
		}
		for _, qid := range ids {
			if !owned[qid] {
				return Payment{}, core.NewValidationError(nil, core.FieldError{
					Field: "quota_updates",
					Error: fmt.Sprintf("unknown installment %s", qid),
				})
			}
		}
	}

	now := core.NowFunc()
	p.Status = rv.Status
	p.RejectionReason = null.NewString(rv.RejectionReason, rv.Status == StatusRejected)
	p.ReviewedBy = null.StringFrom(actor.ID)
	p.ReviewedAt = null.TimeFrom(now)
	p.UpdatedAt = now

	p, updated, err := svc.repo.ReviewPayment(ctx, p, rv.QuotaUpdates)
	if err != nil {
		if errors.Cause(err) == ErrAlreadyReviewed {
			return Payment{}, core.NewDomainError(ErrAlreadyReviewed.Error())
		}
		return Payment{}, err
	}

	jobs := []notification.Job{paymentReviewedJob(p)}
	for _, inst := range updated {
		jobs = append(jobs, installmentUpdatedJob(inst, actor.ID))
	}
	svc.dispatcher.Dispatch(jobs...)
	return p, nil
}

// UpdateInstallmentStatus lets an admin set an installment status directly.
func (svc *Service) UpdateInstallmentStatus(ctx context.Context, actor user.User, id string, u InstallmentStatusUpdate) (Installment, error) {
	if !actor.IsAdmin() {
		return Installment{}, core.ErrPermissionDenied
	}
	if err := u.Validate(); err != nil {
		return Installment{}, err
	}
	inst, err := svc.repo.GetInstallment(ctx, id)
	if err != nil {
		return Installment{}, err
	}

	inst.Status = u.Status
	if u.Notes != "" {
		inst.Notes = null.StringFrom(u.Notes)
	}
	inst.UpdatedAt = core.NowFunc()
	if inst, err = svc.repo.UpdateInstallment(ctx, inst); err != nil {
		return Installment{}, err
	}

	svc.dispatcher.Dispatch(installmentUpdatedJob(inst, actor.ID))
	return inst, nil
}

func paymentReviewedJob(p Payment) notification.Job {
	job := notification.Job{
		UserID: p.UserID,
		Type:   notification.TypePayment,
		Link:   "/pagos",
		Email:  true,
		Event: &notification.Event{
			Key: core.EventPaymentReviewed,
			Payload: map[string]interface{}{
				"payment_id":       p.ID,
				"user_id":          p.UserID,
				"installment_id":   p.InstallmentID,
				"amount":           p.Amount,
				"status":           p.Status,
				"rejection_reason": p.RejectionReason,
				"reviewed_by":      p.ReviewedBy,
				"reviewed_at":      p.ReviewedAt,
			},
		},
	}
	if p.Status == StatusApproved {
		job.Title = "Pago aprobado"
		job.Body = fmt.Sprintf("Tu pago de %.2f fue aprobado.", p.Amount)
	} else {
		job.Title = "Pago rechazado"
		job.Body = fmt.Sprintf("Tu pago de %.2f fue rechazado. Motivo: %s", p.Amount, p.RejectionReason.String)
	}
	return job
}

func installmentUpdatedJob(inst Installment, actorID string) notification.Job {
	return notification.Job{
		UserID: inst.UserID,
		Title:  fmt.Sprintf("Cuota %d actualizada", inst.Number),
		Body:   fmt.Sprintf("El estado de tu cuota %d ahora es \"%s\".", inst.Number, inst.Status),
		Type:   notification.TypePayment,
		Link:   "/pagos",
		Event: &notification.Event{
			Key: core.EventInstallmentUpdated,
			Payload: map[string]interface{}{
				"installment_id": inst.ID,
				"user_id":        inst.UserID,
				"number":         inst.Number,
				"status":         inst.Status,
				"updated_by":     actorID,
			},
		},
	}
}
