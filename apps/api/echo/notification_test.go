package echoapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/matricula/core/notification"
)

func Test_notificationApi(t *testing.T) {
	stack, srv := setup(t)
	ctx := context.Background()
	ana := stack.CreateStudent(t, "ana")
	luis := stack.CreateStudent(t, "luis")
	anaToken := getToken(t, srv, ana)

	var ids []string
	for _, title := range []string{"uno", "dos", "tres"} {
		n, err := stack.Notifications.Create(ctx, notification.Job{UserID: ana.ID, Title: title, Type: notification.TypeSystem})
		require.NoError(t, err)
		ids = append(ids, n.ID)
	}
	luisNotif, err := stack.Notifications.Create(ctx, notification.Job{UserID: luis.ID, Title: "otro", Type: notification.TypeSystem})
	require.NoError(t, err)

	list := func(query string) []notification.Notification {
		req, rec := newAuthRequest(http.MethodGet, "/api/notifications"+query, anaToken)
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var notifs []notification.Notification
		decode(t, rec, &notifs)
		return notifs
	}

	notifs := list("")
	require.Len(t, notifs, 3)
	assert.Equal(t, "tres", notifs[0].Title, "newest first")

	runHTTPTests(t, srv, []httpTest{
		{name: "mark one read", method: http.MethodPatch, path: "/api/notifications/" + ids[0] + "/read", token: anaToken, wantCode: http.StatusNoContent},
		{name: "mark read again", method: http.MethodPatch, path: "/api/notifications/" + ids[0] + "/read", token: anaToken, wantCode: http.StatusNoContent},
		{
			name: "someone else's notification", method: http.MethodPatch, path: "/api/notifications/" + luisNotif.ID + "/read", token: anaToken,
			wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: "notification not found"}),
		},
	})
	assert.Len(t, list("?unread=true"), 2)

	req, rec := newAuthRequest(http.MethodPatch, "/api/notifications/read", anaToken)
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"updated":2}`, rec.Body.String())
	assert.Empty(t, list("?unread=true"))

	// luis is untouched
	unread, err := stack.Notifications.List(ctx, notification.QueryFilter{UserID: luis.ID, UnreadOnly: true})
	require.NoError(t, err)
	assert.Len(t, unread, 1)
}
