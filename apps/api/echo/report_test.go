package echoapi_test

import (
	"encoding/csv"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/matricula/core/document"
	"github.com/trezcool/matricula/core/profile"
	"github.com/trezcool/matricula/core/request"
)

func Test_reportApi_enrollment(t *testing.T) {
	stack, srv := setup(t)
	admin := stack.CreateAdmin(t, "admin")
	ana := stack.CreateStudent(t, "ana")
	stack.SetStage(t, ana.ID, profile.StageDocumentsComplete)
	stack.CreateDocument(t, ana.ID, document.StatusApproved)
	stack.CreateDocument(t, ana.ID, document.StatusPending)
	stack.CreateRequest(t, ana.ID, request.StatusInProgress)
	stack.CreateRequest(t, ana.ID, request.StatusRejected)
	luis := stack.CreateStudent(t, "luis")

	req, rec := newAuthRequest(http.MethodGet, "/api/admin/reports/enrollment", getToken(t, srv, admin))
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "matriculas.csv")

	rows, err := csv.NewReader(strings.NewReader(rec.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3, "header plus one row per student")
	assert.Equal(t, []string{"user_id", "name", "username", "email", "stage", "stage_label", "documents", "pending_requests"}, rows[0])

	byUser := make(map[string][]string, 2)
	for _, row := range rows[1:] {
		byUser[row[0]] = row
	}
	assert.Equal(t, []string{ana.ID, "Student ana", "ana", "ana@test.ec", "documentos_completos", "Documentos completos", "2", "1"}, byUser[ana.ID])
	assert.Equal(t, []string{luis.ID, "Student luis", "luis", "luis@test.ec", "suscrito", "Suscrito", "0", "0"}, byUser[luis.ID])

	req, rec = newAuthRequest(http.MethodGet, "/api/admin/reports/enrollment", getToken(t, srv, ana))
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
