package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/matricula/core/payment"
)

const (
	installmentColumns = "id, user_id, number, amount, due_date, status, notes, " +
		"support_location, support_name, support_uploaded_at, created_at, updated_at"
	insertInstallment = `INSERT INTO installments (` + installmentColumns + `) VALUES ` +
		`(:id, :user_id, :number, :amount, :due_date, :status, :notes, ` +
		`:support_location, :support_name, :support_uploaded_at, :created_at, :updated_at)`

	paymentColumns = "id, user_id, installment_id, amount, method, reference, status, " +
		"rejection_reason, reviewed_by, reviewed_at, created_at, updated_at"
	insertPayment = `INSERT INTO payments (` + paymentColumns + `) VALUES ` +
		`(:id, :user_id, :installment_id, :amount, :method, :reference, :status, ` +
		`:rejection_reason, :reviewed_by, :reviewed_at, :created_at, :updated_at)`
)

type paymentRepository struct {
	db *sqlx.DB
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *sqlx.DB) *paymentRepository {
	return &paymentRepository{db: db}
}

func (repo paymentRepository) CreateInstallments(ctx context.Context, insts []payment.Installment) ([]payment.Installment, error) {
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		for _, inst := range insts {
			if _, err := tx.NamedExecContext(ctx, insertInstallment, inst); err != nil {
				if _, ok := uniqueConstraint(err); ok {
					return payment.ErrInstallmentNumberTaken
				}
				return errors.Wrap(err, "inserting installment")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return insts, nil
}

func (repo paymentRepository) GetInstallment(ctx context.Context, id string) (payment.Installment, error) {
	if !isUUID(id) {
		return payment.Installment{}, payment.ErrInstallmentNotFound
	}
	var inst payment.Installment
	q := psql.Select(installmentColumns).From("installments").Where(sq.Eq{"id": id})
	if err := get(ctx, repo.db, &inst, q); err != nil {
		return payment.Installment{}, trapNoRowsErr(err, payment.ErrInstallmentNotFound, "finding installment")
	}
	return inst, nil
}

func (repo paymentRepository) QueryInstallments(ctx context.Context, filter payment.InstallmentFilter) ([]payment.Installment, error) {
	insts := make([]payment.Installment, 0)
	q := psql.Select(installmentColumns).From("installments").OrderBy("user_id ASC", "number ASC")
	if filter.UserID != "" {
		if !isUUID(filter.UserID) {
			return insts, nil
		}
		q = q.Where(sq.Eq{"user_id": filter.UserID})
	}
	if len(filter.IDs) > 0 {
		q = q.Where(sq.Eq{"id": validUUIDs(filter.IDs)})
	}
	if err := selectAll(ctx, repo.db, &insts, q); err != nil {
		return nil, errors.Wrap(err, "querying installments")
	}
	return insts, nil
}

func (repo paymentRepository) UpdateInstallment(ctx context.Context, inst payment.Installment) (payment.Installment, error) {
	q := psql.Update("installments").
		SetMap(map[string]interface{}{
			"status":              inst.Status,
			"notes":               inst.Notes,
			"support_location":    inst.SupportLocation,
			"support_name":        inst.SupportName,
			"support_uploaded_at": inst.SupportUploadedAt,
			"updated_at":          inst.UpdatedAt,
		}).
		Where(sq.Eq{"id": inst.ID})

	n, err := exec(ctx, repo.db, q)
	if err != nil {
		return payment.Installment{}, errors.Wrap(err, "updating installment")
	}
	if n == 0 {
		return payment.Installment{}, payment.ErrInstallmentNotFound
	}
	return inst, nil
}

func (repo paymentRepository) CreatePayment(ctx context.Context, p payment.Payment) (payment.Payment, error) {
	if _, err := repo.db.NamedExecContext(ctx, insertPayment, p); err != nil {
		return payment.Payment{}, errors.Wrap(err, "inserting payment")
	}
	return p, nil
}

func (repo paymentRepository) GetPayment(ctx context.Context, id string) (payment.Payment, error) {
	if !isUUID(id) {
		return payment.Payment{}, payment.ErrNotFound
	}
	var p payment.Payment
	q := psql.Select(paymentColumns).From("payments").Where(sq.Eq{"id": id})
	if err := get(ctx, repo.db, &p, q); err != nil {
		return payment.Payment{}, trapNoRowsErr(err, payment.ErrNotFound, "finding payment")
	}
	return p, nil
}

func (repo paymentRepository) QueryPayments(ctx context.Context, filter payment.QueryFilter) ([]payment.Payment, error) {
	pmts := make([]payment.Payment, 0)
	q := psql.Select(paymentColumns).From("payments").OrderBy("created_at DESC")
	if filter.UserID != "" {
		if !isUUID(filter.UserID) {
			return pmts, nil
		}
		q = q.Where(sq.Eq{"user_id": filter.UserID})
	}
	if filter.Status != "" {
		q = q.Where(sq.Eq{"status": filter.Status})
	}
	if err := selectAll(ctx, repo.db, &pmts, q); err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}
	return pmts, nil
}

func (repo paymentRepository) ReviewPayment(
	ctx context.Context,
	p payment.Payment,
	updates []payment.QuotaUpdate,
) (payment.Payment, []payment.Installment, error) {
	var (
		reviewed payment.Payment
		insts    = make([]payment.Installment, 0, len(updates))
	)

	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		q := psql.Update("payments").
			SetMap(map[string]interface{}{
				"status":           p.Status,
				"rejection_reason": p.RejectionReason,
				"reviewed_by":      p.ReviewedBy,
				"reviewed_at":      p.ReviewedAt,
				"updated_at":       p.UpdatedAt,
			}).
			Where(sq.Eq{"id": p.ID, "status": payment.StatusPending}).
			Suffix("RETURNING " + paymentColumns)
		if err := get(ctx, tx, &reviewed, q); err != nil {
			return trapNoRowsErr(err, payment.ErrAlreadyReviewed, "reviewing payment")
		}

		for _, qu := range updates {
			var inst payment.Installment
			uq := psql.Update("installments").
				Set("status", qu.NewStatus).
				Set("updated_at", p.UpdatedAt).
				Where(sq.Eq{"id": qu.QuotaID}).
				Suffix("RETURNING " + installmentColumns)
			if err := get(ctx, tx, &inst, uq); err != nil {
				return trapNoRowsErr(err, payment.ErrInstallmentNotFound, "updating installment status")
			}
			insts = append(insts, inst)
		}
		return nil
	})
	if err != nil {
		return payment.Payment{}, nil, err
	}
	return reviewed, insts, nil
}
