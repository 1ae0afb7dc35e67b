package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// serveWS upgrades the connection and keeps it registered in the push hub until the client leaves.
func (s *Server) serveWS(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	conn, err := s.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		// the upgrader already answered the client
		s.deps.Logger.Warn("websocket upgrade failed", errors.Wrap(err, "upgrading"), usr)
		return nil
	}
	s.deps.Hub.Serve(usr.ID, conn)
	return nil
}
