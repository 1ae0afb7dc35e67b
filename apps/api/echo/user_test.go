package echoapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/matricula/core/user"
	"github.com/trezcool/matricula/testutil"
)

func Test_userApi(t *testing.T) {
	stack, srv := setup(t)
	root := testutil.CreateUser(t, stack.Repos.Users, "Root", "root", "root@test.ec", "", user.RoleSuperuser, true)
	admin := stack.CreateAdmin(t, "admin")
	ana := stack.CreateStudent(t, "ana")
	rootToken := getToken(t, srv, root)

	newUser := marshallObj(t, user.NewUser{
		Name:            "Marta Secretaria",
		Username:        "Marta",
		Email:           "marta@test.ec",
		Password:        testPassword,
		PasswordConfirm: testPassword,
		Role:            user.RoleSuperAdmin,
	})
	req, rec := newAuthRequest(http.MethodPost, "/api/admin/users", rootToken, newUser)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var marta user.User
	decode(t, rec, &marta)
	assert.Equal(t, "marta", marta.Username)
	assert.Equal(t, user.RoleSuperAdmin, marta.Role)
	assert.True(t, marta.IsActive)

	forbidden := marshallObj(t, httpErr{Error: "permission denied"})
	runHTTPTests(t, srv, []httpTest{
		{name: "admins cannot manage users", path: "/api/admin/users", token: getToken(t, srv, admin), wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "students cannot manage users", path: "/api/admin/users", token: getToken(t, srv, ana), wantCode: http.StatusForbidden, wantData: forbidden},
		{name: "list", path: "/api/admin/users?role=estudiante", token: rootToken, wantCode: http.StatusOK},
		{name: "roles", path: "/api/admin/users/roles", token: rootToken, wantCode: http.StatusOK},
		{
			name: "duplicate email", method: http.MethodPost, path: "/api/admin/users", token: rootToken,
			body: marshallObj(t, user.NewUser{
				Name: "Otra", Username: "otra", Email: "MARTA@test.ec", Password: testPassword, PasswordConfirm: testPassword,
			}),
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, map[string]string{"email": "a user with this email already exists"}),
		},
		{
			name: "unknown role", method: http.MethodPost, path: "/api/admin/users", token: rootToken,
			body: marshallObj(t, user.NewUser{
				Name: "Otra", Username: "otra", Email: "otra@test.ec", Password: testPassword, PasswordConfirm: testPassword, Role: "rector",
			}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "deactivate", method: http.MethodPatch, path: "/api/admin/users/" + ana.ID, token: rootToken,
			body: []byte(`{"is_active":false}`), wantCode: http.StatusOK,
		},
		{name: "cannot delete oneself", method: http.MethodDelete, path: "/api/admin/users/" + root.ID, token: rootToken, wantCode: http.StatusForbidden},
		{name: "delete", method: http.MethodDelete, path: "/api/admin/users/" + marta.ID, token: rootToken, wantCode: http.StatusNoContent},
		{name: "deleted", path: "/api/admin/users/" + marta.ID, token: rootToken, wantCode: http.StatusNotFound},
	})

	usr, err := stack.Users.GetByID(context.Background(), ana.ID)
	require.NoError(t, err)
	assert.False(t, usr.IsActive)
	assert.Equal(t, "ana", usr.Username, "omitted fields are kept")
}
