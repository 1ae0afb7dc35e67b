package payment_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/matricula/core"
	"github.com/trezcool/matricula/core/payment"
	"github.com/trezcool/matricula/testutil"
)

func newPlan(t *testing.T, stack *testutil.Stack, dueDates ...string) payment.NewPlan {
	t.Helper()
	np := payment.NewPlan{}
	for _, d := range dueDates {
		np.Installments = append(np.Installments, payment.NewInstallment{Amount: 200, DueDate: d})
	}
	require.NoError(t, np.Validate(stack.Validate))
	return np
}

func TestService_Review_rejectionStillUpdatesQuotas(t *testing.T) {
	stack := testutil.NewStack(t)
	ctx := context.Background()
	ana := stack.CreateStudent(t, "ana")
	admin := stack.CreateAdmin(t, "admin")

	insts, err := stack.Payments.CreatePlan(ctx, admin, ana.ID, newPlan(t, stack, "2024-02-01", "2024-03-01"))
	require.NoError(t, err)
	require.Len(t, insts, 2)
	assert.Equal(t, 2024, insts[0].DueDate.Year())

	pmt, err := stack.Payments.Report(ctx, ana.ID, payment.NewPayment{InstallmentID: insts[1].ID, Amount: 100, Method: "deposito"})
	require.NoError(t, err)

	reviewed, err := stack.Payments.Review(ctx, admin, pmt.ID, payment.Review{
		Status:          payment.StatusRejected,
		RejectionReason: "monto incompleto",
		QuotaUpdates:    []payment.QuotaUpdate{{QuotaID: insts[1].ID, NewStatus: payment.InstallmentPartial}},
	})
	require.NoError(t, err)
	assert.Equal(t, payment.StatusRejected, reviewed.Status)
	assert.Equal(t, "monto incompleto", reviewed.RejectionReason.String)

	summary, err := stack.Payments.Mine(ctx, ana.ID)
	require.NoError(t, err)
	statuses := make(map[string]payment.InstallmentStatus, len(summary.Installments))
	for _, inst := range summary.Installments {
		statuses[inst.ID] = inst.Status
	}
	assert.Equal(t, payment.InstallmentPending, statuses[insts[0].ID])
	assert.Equal(t, payment.InstallmentPartial, statuses[insts[1].ID])
}

func TestService_Review_unknownQuotaWritesNothing(t *testing.T) {
	stack := testutil.NewStack(t)
	ctx := context.Background()
	ana := stack.CreateStudent(t, "ana")
	admin := stack.CreateAdmin(t, "admin")

	insts, err := stack.Payments.CreatePlan(ctx, admin, ana.ID, newPlan(t, stack, "2024-02-01"))
	require.NoError(t, err)
	pmt, err := stack.Payments.Report(ctx, ana.ID, payment.NewPayment{Amount: 200, Method: "efectivo"})
	require.NoError(t, err)

	_, err = stack.Payments.Review(ctx, admin, pmt.ID, payment.Review{
		Status: payment.StatusApproved,
		QuotaUpdates: []payment.QuotaUpdate{
			{QuotaID: insts[0].ID, NewStatus: payment.InstallmentPaid},
			{QuotaID: "missing", NewStatus: payment.InstallmentPaid},
		},
	})
	var verr *core.ValidationError
	require.ErrorAs(t, err, &verr)

	summary, err := stack.Payments.Mine(ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.StatusPending, summary.Payments[0].Status)
	assert.Equal(t, payment.InstallmentPending, summary.Installments[0].Status)
}

func TestService_permissions(t *testing.T) {
	stack := testutil.NewStack(t)
	ctx := context.Background()
	ana := stack.CreateStudent(t, "ana")

	_, err := stack.Payments.CreatePlan(ctx, ana, ana.ID, newPlan(t, stack, "2024-02-01"))
	assert.Equal(t, core.ErrPermissionDenied, err)
	_, err = stack.Payments.Review(ctx, ana, "any", payment.Review{Status: payment.StatusApproved})
	assert.Equal(t, core.ErrPermissionDenied, err)
	_, err = stack.Payments.UpdateInstallmentStatus(ctx, ana, "any", payment.InstallmentStatusUpdate{Status: payment.InstallmentPaid})
	assert.Equal(t, core.ErrPermissionDenied, err)

	_, err = stack.Payments.Query(ctx, payment.QueryFilter{Status: "perdido"})
	var verr *core.ValidationError
	assert.ErrorAs(t, err, &verr)
}
