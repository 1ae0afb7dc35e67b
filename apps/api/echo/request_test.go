package echoapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/matricula/core/notification"
	"github.com/trezcool/matricula/core/request"
)

func Test_requestApi(t *testing.T) {
	stack, srv := setup(t)
	ctx := context.Background()
	ana := stack.CreateStudent(t, "ana")
	luis := stack.CreateStudent(t, "luis")
	admin := stack.CreateAdmin(t, "admin")
	anaToken := getToken(t, srv, ana)
	adminToken := getToken(t, srv, admin)

	body := marshallObj(t, request.NewRequest{Type: " Certificado ", Subject: "Certificado de notas", Description: "Para beca"})
	req, rec := newAuthRequest(http.MethodPost, "/api/requests", anaToken, body)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created request.Request
	decode(t, rec, &created)
	assert.Equal(t, request.StatusPending, created.Status)
	assert.Equal(t, "certificado", created.Type)

	stack.CreateRequest(t, luis.ID, request.StatusCompleted)

	pending, err := stack.Requests.CountPendingRequests(ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)

	respondPath := "/api/requests/" + created.ID + "/respond"
	runHTTPTests(t, srv, []httpTest{
		{
			name: "subject is required", method: http.MethodPost, path: "/api/requests", token: anaToken,
			body: []byte(`{"type":"certificado"}`), wantCode: http.StatusBadRequest,
		},
		{name: "own requests only", path: "/api/requests", token: getToken(t, srv, luis), wantCode: http.StatusOK},
		{
			name: "blank response", method: http.MethodPut, path: respondPath, token: adminToken,
			body: []byte(`{"response":"   ","status":"completada"}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "cannot reopen", method: http.MethodPut, path: respondPath, token: adminToken,
			body:     []byte(`{"response":"ok","status":"pendiente"}`),
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, map[string]string{"status": "status must be en_proceso, completada or rechazada"}),
		},
		{
			name: "students cannot respond", method: http.MethodPut, path: respondPath, token: anaToken,
			body: []byte(`{"response":"ok","status":"completada"}`), wantCode: http.StatusForbidden,
		},
		{
			name: "unknown request", method: http.MethodPut, path: "/api/requests/00000000-0000-0000-0000-000000000000/respond",
			token: adminToken, body: []byte(`{"response":"ok","status":"completada"}`), wantCode: http.StatusNotFound,
		},
		{name: "filter by open statuses", path: "/api/admin/requests?status=pendiente&status=en_proceso", token: adminToken, wantCode: http.StatusOK},
		{
			name: "filter by unknown status", path: "/api/admin/requests?status=nope", token: adminToken,
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, map[string]string{"status": "invalid request status"}),
		},
	})

	req, rec = newAuthRequest(http.MethodPut, respondPath, adminToken, []byte(`{"response":"En trámite","status":"en_proceso"}`))
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// an en_proceso request still counts as pending
	pending, err = stack.Requests.CountPendingRequests(ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)

	req, rec = newAuthRequest(http.MethodPut, respondPath, adminToken, []byte(`{"response":"Listo, retire en secretaría","status":"completada"}`))
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var answered request.Request
	decode(t, rec, &answered)
	assert.Equal(t, request.StatusCompleted, answered.Status)
	assert.Equal(t, "Listo, retire en secretaría", answered.Response.String)
	assert.Equal(t, admin.ID, answered.RespondedBy.String)

	pending, err = stack.Requests.CountPendingRequests(ctx, ana.ID)
	require.NoError(t, err)
	assert.Zero(t, pending)

	notifs, err := stack.Notifications.List(ctx, notification.QueryFilter{UserID: ana.ID})
	require.NoError(t, err)
	require.Len(t, notifs, 2)
	assert.Equal(t, notification.TypeRequest, notifs[0].Type)
	assert.Contains(t, notifs[0].Body, "completada")

	req, rec = newAuthRequest(http.MethodGet, "/api/admin/requests?status=completada", adminToken)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var reqs []request.Request
	decode(t, rec, &reqs)
	assert.Len(t, reqs, 2)
}
