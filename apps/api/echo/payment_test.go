package echoapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/matricula/core/notification"
	"github.com/trezcool/matricula/core/payment"
)

var pngContent = []byte("\x89PNG\r\n\x1a\n comprobante")

func createPlan(t *testing.T, srv http.Handler, token, userID string, dueDates ...string) []payment.Installment {
	t.Helper()
	plan := payment.NewPlan{}
	for _, d := range dueDates {
		plan.Installments = append(plan.Installments, payment.NewInstallment{Amount: 150.5, DueDate: d})
	}
	req, rec := newAuthRequest(http.MethodPost, "/api/admin/users/"+userID+"/installments", token, marshallObj(t, plan))
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var insts []payment.Installment
	decode(t, rec, &insts)
	return insts
}

func Test_paymentApi_plan(t *testing.T) {
	stack, srv := setup(t)
	ana := stack.CreateStudent(t, "ana")
	admin := stack.CreateAdmin(t, "admin")
	adminToken := getToken(t, srv, admin)

	first := createPlan(t, srv, adminToken, ana.ID, "2024-03-01", "2024-04-01")
	require.Len(t, first, 2)
	assert.Equal(t, 1, first[0].Number)
	assert.Equal(t, 2, first[1].Number)
	assert.Equal(t, payment.InstallmentPending, first[0].Status)

	// numbering continues
	more := createPlan(t, srv, adminToken, ana.ID, "2024-05-01")
	require.Len(t, more, 1)
	assert.Equal(t, 3, more[0].Number)

	runHTTPTests(t, srv, []httpTest{
		{
			name: "empty plan", method: http.MethodPost, path: "/api/admin/users/" + ana.ID + "/installments", token: adminToken,
			body: []byte(`{"installments":[]}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "bad due date", method: http.MethodPost, path: "/api/admin/users/" + ana.ID + "/installments", token: adminToken,
			body: []byte(`{"installments":[{"amount":10,"due_date":"01/03/2024"}]}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown student", method: http.MethodPost, path: "/api/admin/users/00000000-0000-0000-0000-000000000000/installments",
			token: adminToken, body: []byte(`{"installments":[{"amount":10,"due_date":"2024-03-01"}]}`), wantCode: http.StatusNotFound,
		},
		{
			name: "students are denied", method: http.MethodPost, path: "/api/admin/users/" + ana.ID + "/installments",
			token: getToken(t, srv, ana), body: []byte(`{"installments":[{"amount":10,"due_date":"2024-03-01"}]}`),
			wantCode: http.StatusForbidden,
		},
	})

	notifs, err := stack.Notifications.List(context.Background(), notification.QueryFilter{UserID: ana.ID})
	require.NoError(t, err)
	assert.Len(t, notifs, 2)
}

func Test_paymentApi_reportAndReview(t *testing.T) {
	stack, srv := setup(t)
	ctx := context.Background()
	ana := stack.CreateStudent(t, "ana")
	luis := stack.CreateStudent(t, "luis")
	admin := stack.CreateAdmin(t, "admin")
	adminToken := getToken(t, srv, admin)
	anaToken := getToken(t, srv, ana)

	insts := createPlan(t, srv, adminToken, ana.ID, "2024-03-01", "2024-04-01")
	luisInsts := createPlan(t, srv, adminToken, luis.ID, "2024-03-01")

	body := marshallObj(t, payment.NewPayment{InstallmentID: insts[0].ID, Amount: 150.5, Method: "Transferencia", Reference: "TX-001"})
	req, rec := newAuthRequest(http.MethodPost, "/api/payments", anaToken, body)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var pmt payment.Payment
	decode(t, rec, &pmt)
	assert.Equal(t, payment.StatusPending, pmt.Status)
	assert.Equal(t, "transferencia", pmt.Method)
	assert.Equal(t, insts[0].ID, pmt.InstallmentID.String)

	reviewPath := "/api/payments/" + pmt.ID + "/status"
	runHTTPTests(t, srv, []httpTest{
		{
			name: "pay someone else's installment", method: http.MethodPost, path: "/api/payments", token: anaToken,
			body:     marshallObj(t, payment.NewPayment{InstallmentID: luisInsts[0].ID, Amount: 10, Method: "efectivo"}),
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, map[string]string{"installment_id": "unknown installment"}),
		},
		{
			name: "non positive amount", method: http.MethodPost, path: "/api/payments", token: anaToken,
			body: marshallObj(t, payment.NewPayment{Amount: 0, Method: "efectivo"}), wantCode: http.StatusBadRequest,
		},
		{
			name: "reject without reason", method: http.MethodPut, path: reviewPath, token: adminToken,
			body:     marshallObj(t, payment.Review{Status: payment.StatusRejected}),
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, map[string]string{"rejection_reason": "a rejection reason is required when rejecting a payment"}),
		},
		{
			name: "quota of another student", method: http.MethodPut, path: reviewPath, token: adminToken,
			body: marshallObj(t, payment.Review{
				Status:       payment.StatusApproved,
				QuotaUpdates: []payment.QuotaUpdate{{QuotaID: luisInsts[0].ID, NewStatus: payment.InstallmentPaid}},
			}),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"quota_updates": "unknown installment " + luisInsts[0].ID}),
		},
		{
			name: "students cannot review", method: http.MethodPut, path: reviewPath, token: anaToken,
			body: marshallObj(t, payment.Review{Status: payment.StatusApproved}), wantCode: http.StatusForbidden,
		},
	})

	// nothing was written by the failed reviews
	summary, err := stack.Payments.Mine(ctx, ana.ID)
	require.NoError(t, err)
	require.Len(t, summary.Payments, 1)
	assert.Equal(t, payment.StatusPending, summary.Payments[0].Status)

	approve := marshallObj(t, payment.Review{
		Status:       payment.StatusApproved,
		QuotaUpdates: []payment.QuotaUpdate{{QuotaID: insts[0].ID, NewStatus: payment.InstallmentPaid}},
	})
	req, rec = newAuthRequest(http.MethodPut, reviewPath, adminToken, approve)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &pmt)
	assert.Equal(t, payment.StatusApproved, pmt.Status)
	assert.Equal(t, admin.ID, pmt.ReviewedBy.String)

	req, rec = newAuthRequest(http.MethodPut, reviewPath, adminToken, approve)
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"payment already reviewed","details":[]}`, rec.Body.String())

	req, rec = newAuthRequest(http.MethodGet, "/api/payments/me", anaToken)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &summary)
	require.Len(t, summary.Installments, 2)
	for _, inst := range summary.Installments {
		want := payment.InstallmentPending
		if inst.ID == insts[0].ID {
			want = payment.InstallmentPaid
		}
		assert.Equal(t, want, inst.Status, "installment %d", inst.Number)
	}

	notifs, err := stack.Notifications.List(ctx, notification.QueryFilter{UserID: ana.ID})
	require.NoError(t, err)
	titles := make([]string, 0, len(notifs))
	for _, n := range notifs {
		titles = append(titles, n.Title)
	}
	assert.Contains(t, titles, "Pago aprobado")
	assert.Contains(t, titles, "Cuota 1 actualizada")

	req, rec = newAuthRequest(http.MethodGet, "/api/admin/payments?status=aprobado", adminToken)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var pmts []payment.Payment
	decode(t, rec, &pmts)
	assert.Len(t, pmts, 1)
}

func Test_paymentApi_support(t *testing.T) {
	stack, srv := setup(t)
	ana := stack.CreateStudent(t, "ana")
	luis := stack.CreateStudent(t, "luis")
	admin := stack.CreateAdmin(t, "admin")
	adminToken := getToken(t, srv, admin)
	anaToken := getToken(t, srv, ana)
	luisToken := getToken(t, srv, luis)

	inst := createPlan(t, srv, adminToken, ana.ID, "2024-03-01")[0]
	path := "/api/payments/installments/" + inst.ID + "/support"

	runHTTPTests(t, srv, []httpTest{
		{name: "no support yet", path: path, token: anaToken, wantCode: http.StatusNotFound},
	})

	req, rec := newUploadRequest(t, path, luisToken, nil, "pago.png", pngContent)
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req, rec = newUploadRequest(t, path, anaToken, nil, "pago.txt", pngContent)
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req, rec = newUploadRequest(t, path, anaToken, nil, "pago.png", pngContent)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated payment.Installment
	decode(t, rec, &updated)
	assert.Equal(t, "pago.png", updated.SupportName.String)
	assert.True(t, updated.SupportUploadedAt.Valid)

	for _, token := range []string{anaToken, adminToken} {
		req, rec = newAuthRequest(http.MethodGet, path, token)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
		assert.Equal(t, pngContent, rec.Body.Bytes())
	}

	req, rec = newAuthRequest(http.MethodGet, path, luisToken)
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	runHTTPTests(t, srv, []httpTest{
		{
			name: "admin marks overdue", method: http.MethodPut, path: "/api/payments/installments/" + inst.ID + "/status",
			token: adminToken, body: []byte(`{"status":"vencida","notes":"sin pago"}`), wantCode: http.StatusOK,
		},
		{
			name: "invalid installment status", method: http.MethodPut, path: "/api/payments/installments/" + inst.ID + "/status",
			token:    adminToken, body: []byte(`{"status":"perdida"}`),
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, map[string]string{"status": "status must be pendiente, pagada, vencida or parcial"}),
		},
		{
			name: "students cannot set installment status", method: http.MethodPut, path: "/api/payments/installments/" + inst.ID + "/status",
			token: anaToken, body: []byte(`{"status":"pagada"}`), wantCode: http.StatusForbidden,
		},
	})
}
