package echoapi_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/matricula/core"
	"github.com/trezcool/matricula/core/document"
	"github.com/trezcool/matricula/core/notification"
	"github.com/trezcool/matricula/core/profile"
	"github.com/trezcool/matricula/core/request"
)

func stageBody(t *testing.T, stage profile.Stage) []byte {
	return marshallObj(t, map[string]string{"stage": string(stage), "comments": "revisado"})
}

func Test_profileApi_changeStage_accepted(t *testing.T) {
	stack, srv := setup(t)
	ctx := context.Background()
	admin := stack.CreateAdmin(t, "admin")
	ana := stack.CreateStudent(t, "ana")
	stack.SetStage(t, ana.ID, profile.StageRegistryValidated)
	for i := 0; i < 3; i++ {
		stack.CreateDocument(t, ana.ID, document.StatusApproved)
	}
	stack.CreateRequest(t, ana.ID, request.StatusCompleted)

	before, err := stack.Repos.Profiles.QueryStageHistory(ctx, ana.ID)
	require.NoError(t, err)

	req, rec := newAuthRequest(http.MethodPut, "/api/profiles/"+ana.ID+"/stage", getToken(t, srv, admin), stageBody(t, profile.StageEnrolled))
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var p profile.Profile
	decode(t, rec, &p)
	assert.Equal(t, profile.StageEnrolled, p.EnrollmentStage)

	after, err := stack.Repos.Profiles.QueryStageHistory(ctx, ana.ID)
	require.NoError(t, err)
	require.Len(t, after, len(before)+1)
	last := after[len(after)-1]
	assert.Equal(t, profile.StageRegistryValidated, last.PreviousStage)
	assert.Equal(t, profile.StageEnrolled, last.NewStage)
	assert.Equal(t, admin.ID, last.ChangedBy)

	notifs, err := stack.Notifications.List(ctx, notification.QueryFilter{UserID: ana.ID})
	require.NoError(t, err)
	require.Len(t, notifs, 1)
	assert.Contains(t, notifs[0].Title, "Matriculado")
	assert.Equal(t, notification.TypeStage, notifs[0].Type)
	assert.Contains(t, stack.Events.Keys(), core.EventStageChanged)
}

func Test_profileApi_changeStage_rejected(t *testing.T) {
	stack, srv := setup(t)
	ctx := context.Background()
	admin := stack.CreateAdmin(t, "admin")
	adminToken := getToken(t, srv, admin)

	ana := stack.CreateStudent(t, "ana")
	stack.CreateDocument(t, ana.ID, document.StatusPending)

	luis := stack.CreateStudent(t, "luis")
	stack.SetStage(t, luis.ID, profile.StageRegistryValidated)
	stack.CreateRequest(t, luis.ID, request.StatusInProgress)

	eva := stack.CreateStudent(t, "eva")
	stack.SetStage(t, eva.ID, profile.StageEnrolled)

	tests := []struct {
		name    string
		userID  string
		stage   profile.Stage
		current profile.Stage
		detail  string
	}{
		{"not enough documents", ana.ID, profile.StageDocumentsComplete, profile.StageSubscribed, "documentsCount < 3"},
		{"open requests", luis.ID, profile.StageEnrolled, profile.StageRegistryValidated, "pendingRequestsCount > 0"},
		{"too far back", eva.ID, profile.StageSubscribed, profile.StageEnrolled, "at most one stage back"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before, err := stack.Repos.Profiles.QueryStageHistory(ctx, tt.userID)
			require.NoError(t, err)

			req, rec := newAuthRequest(http.MethodPut, "/api/profiles/"+tt.userID+"/stage", adminToken, stageBody(t, tt.stage))
			srv.ServeHTTP(rec, req)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

			var res domainErr
			decode(t, rec, &res)
			assert.Equal(t, "stage transition rejected", res.Error)
			require.Len(t, res.Details, 1)
			assert.True(t, strings.Contains(res.Details[0], tt.detail), res.Details[0])

			p, err := stack.Repos.Profiles.GetProfile(ctx, tt.userID)
			require.NoError(t, err)
			assert.Equal(t, tt.current, p.EnrollmentStage)
			after, err := stack.Repos.Profiles.QueryStageHistory(ctx, tt.userID)
			require.NoError(t, err)
			assert.Len(t, after, len(before))
		})
	}
}

func Test_profileApi_access(t *testing.T) {
	stack, srv := setup(t)
	admin := stack.CreateAdmin(t, "admin")
	ana := stack.CreateStudent(t, "ana")
	luis := stack.CreateStudent(t, "luis")
	anaToken := getToken(t, srv, ana)
	adminToken := getToken(t, srv, admin)
	forbidden := marshallObj(t, httpErr{Error: "permission denied"})

	runHTTPTests(t, srv, []httpTest{
		{name: "own profile", path: "/api/profiles/" + ana.ID, token: anaToken, wantCode: http.StatusOK},
		{name: "someone else's profile", path: "/api/profiles/" + luis.ID, token: anaToken, wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "admin reads any profile", path: "/api/profiles/" + luis.ID, token: adminToken, wantCode: http.StatusOK},
		{
			name: "student cannot change stages", method: http.MethodPut, path: "/api/profiles/" + ana.ID + "/stage",
			token: anaToken, body: stageBody(t, profile.StageDocumentsComplete), wantCode: http.StatusForbidden, wantData: forbidden,
		},
		{
			name: "unknown stage", method: http.MethodPut, path: "/api/profiles/" + ana.ID + "/stage",
			token: adminToken, body: stageBody(t, "graduado"),
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, map[string]string{"stage": "invalid enrollment stage"}),
		},
		{
			name: "unknown student", method: http.MethodPut, path: "/api/profiles/00000000-0000-0000-0000-000000000000/stage",
			token: adminToken, body: stageBody(t, profile.StageDocumentsComplete),
			wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: "profile not found"}),
		},
		{name: "history is admin only", path: "/api/profiles/" + ana.ID + "/stage-history", token: anaToken, wantCode: http.StatusForbidden},
		{name: "history", path: "/api/profiles/" + ana.ID + "/stage-history", token: adminToken, wantCode: http.StatusOK, wantData: []byte(`[]`)},
		{
			name: "filter by unknown stage", path: "/api/admin/profiles?stage=nope", token: adminToken,
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, map[string]string{"stage": "invalid enrollment stage"}),
		},
	})
}

func Test_profileApi_updateMine(t *testing.T) {
	stack, srv := setup(t)
	ana := stack.CreateStudent(t, "ana")
	token := getToken(t, srv, ana)

	unis, err := stack.Universities.List(context.Background())
	require.NoError(t, err)
	progs, err := stack.Universities.Programs(context.Background(), unis[0].ID)
	require.NoError(t, err)

	body := marshallObj(t, map[string]interface{}{
		"first_name":       "  Ana ",
		"last_name":        "Pérez",
		"city":             "Quito",
		"university_id":    unis[0].ID,
		"program_id":       progs[0].ID,
		"enrollment_stage": profile.StageProcessFinished,
	})
	req, rec := newAuthRequest(http.MethodPut, "/api/profiles/me", token, body)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var p profile.Profile
	decode(t, rec, &p)
	assert.Equal(t, "Ana", p.FirstName)
	assert.Equal(t, progs[0].ID, p.ProgramID.String)
	assert.Equal(t, profile.StageSubscribed, p.EnrollmentStage, "the stage is not writable here")

	// program of another university
	other, err := stack.Universities.Programs(context.Background(), unis[1].ID)
	require.NoError(t, err)
	body = marshallObj(t, map[string]interface{}{"university_id": unis[0].ID, "program_id": other[0].ID})
	req, rec = newAuthRequest(http.MethodPut, "/api/profiles/me", token, body)
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
