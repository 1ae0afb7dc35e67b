package echoapi_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/matricula/core/profile"
)

func Test_serveWS(t *testing.T) {
	stack, srv := setup(t)
	ana := stack.CreateStudent(t, "ana")
	admin := stack.CreateAdmin(t, "admin")

	ts := httptest.NewServer(srv)
	defer ts.Close()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"

	_, res, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	if res != nil {
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?token="+getToken(t, srv, ana), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return stack.Hub.Connections(ana.ID) == 1 }, time.Second, 10*time.Millisecond)

	req, rec := newAuthRequest(http.MethodPut, "/api/profiles/"+ana.ID+"/stage", getToken(t, srv, admin), stageBody(t, profile.StageUniversityProcess))
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg struct {
		Type string `json:"type"`
		Data struct {
			Title  string `json:"title"`
			UserID string `json:"user_id"`
		} `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "notification", msg.Type)
	assert.Equal(t, ana.ID, msg.Data.UserID)
	assert.Contains(t, msg.Data.Title, "Proceso universitario")
}
