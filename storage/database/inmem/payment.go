package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/matricula/core/payment"
)

type paymentRepository struct {
	db *DB
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *DB) payment.Repository {
	return &paymentRepository{db: db}
}

func (repo *paymentRepository) CreateInstallments(_ context.Context, insts []payment.Installment) ([]payment.Installment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, inst := range insts {
		for _, stored := range repo.db.installments {
			if stored.UserID == inst.UserID && stored.Number == inst.Number {
				return nil, payment.ErrInstallmentNumberTaken
			}
		}
	}
	for _, inst := range insts {
		i := inst
		repo.db.installments = append(repo.db.installments, &i)
	}
	return insts, nil
}

func (repo *paymentRepository) findInstallment(id string) (int, bool) {
	for i, inst := range repo.db.installments {
		if inst.ID == id {
			return i, true
		}
	}
	return -1, false
}

func (repo *paymentRepository) GetInstallment(_ context.Context, id string) (payment.Installment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if i, ok := repo.findInstallment(id); ok {
		return *repo.db.installments[i], nil
	}
	return payment.Installment{}, payment.ErrInstallmentNotFound
}

func (repo *paymentRepository) QueryInstallments(_ context.Context, filter payment.InstallmentFilter) ([]payment.Installment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	insts := make([]payment.Installment, 0)
	for _, inst := range repo.db.installments {
		if filter.UserID != "" && inst.UserID != filter.UserID {
			continue
		}
		if len(filter.IDs) > 0 && !containsID(inst.ID, filter.IDs) {
			continue
		}
		insts = append(insts, *inst)
	}
	sort.SliceStable(insts, func(i, j int) bool {
		if insts[i].UserID != insts[j].UserID {
			return insts[i].UserID < insts[j].UserID
		}
		return insts[i].Number < insts[j].Number
	})
	return insts, nil
}

func (repo *paymentRepository) UpdateInstallment(_ context.Context, inst payment.Installment) (payment.Installment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	i, ok := repo.findInstallment(inst.ID)
	if !ok {
		return payment.Installment{}, payment.ErrInstallmentNotFound
	}
	updated := inst
	repo.db.installments[i] = &updated
	return inst, nil
}

func (repo *paymentRepository) CreatePayment(_ context.Context, p payment.Payment) (payment.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored := p
	repo.db.payments = append(repo.db.payments, &stored)
	return p, nil
}

func (repo *paymentRepository) findPayment(id string) (int, bool) {
	for i, p := range repo.db.payments {
		if p.ID == id {
			return i, true
		}
	}
	return -1, false
}

func (repo *paymentRepository) GetPayment(_ context.Context, id string) (payment.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if i, ok := repo.findPayment(id); ok {
		return *repo.db.payments[i], nil
	}
	return payment.Payment{}, payment.ErrNotFound
}

func (repo *paymentRepository) QueryPayments(_ context.Context, filter payment.QueryFilter) ([]payment.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	pmts := make([]payment.Payment, 0)
	for i := len(repo.db.payments) - 1; i >= 0; i-- {
		p := repo.db.payments[i]
		if filter.UserID != "" && p.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		pmts = append(pmts, *p)
	}
	return pmts, nil
}

func (repo *paymentRepository) ReviewPayment(
	_ context.Context,
	p payment.Payment,
	updates []payment.QuotaUpdate,
) (payment.Payment, []payment.Installment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	pi, ok := repo.findPayment(p.ID)
	if !ok {
		return payment.Payment{}, nil, payment.ErrNotFound
	}
	if repo.db.payments[pi].Status != payment.StatusPending {
		return payment.Payment{}, nil, payment.ErrAlreadyReviewed
	}

	// check every installment first, nothing is written on failure
	idx := make([]int, 0, len(updates))
	for _, qu := range updates {
		i, ok := repo.findInstallment(qu.QuotaID)
		if !ok {
			return payment.Payment{}, nil, payment.ErrInstallmentNotFound
		}
		idx = append(idx, i)
	}

	reviewed := *repo.db.payments[pi]
	reviewed.Status = p.Status
	reviewed.RejectionReason = p.RejectionReason
	reviewed.ReviewedBy = p.ReviewedBy
	reviewed.ReviewedAt = p.ReviewedAt
	reviewed.UpdatedAt = p.UpdatedAt
	repo.db.payments[pi] = &reviewed

	insts := make([]payment.Installment, 0, len(updates))
	for n, qu := range updates {
		inst := *repo.db.installments[idx[n]]
		inst.Status = qu.NewStatus
		inst.UpdatedAt = p.UpdatedAt
		repo.db.installments[idx[n]] = &inst
		insts = append(insts, inst)
	}
	return reviewed, insts, nil
}
