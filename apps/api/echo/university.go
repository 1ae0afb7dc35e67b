package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/matricula/core/university"
)

type universityApi struct {
	svc *university.Service
}

func registerUniversityAPI(authed *echo.Group, deps *Deps) {
	api := universityApi{svc: deps.UniversitySvc}

	authed.GET("/universities", api.list)
	authed.GET("/universities/:id/programs", api.programs)
}

func (api *universityApi) list(ctx echo.Context) error {
	unis, err := api.svc.List(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "listing universities")
	}
	return ctx.JSON(http.StatusOK, unis)
}

func (api *universityApi) programs(ctx echo.Context) error {
	progs, err := api.svc.Programs(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "listing programs")
	}
	return ctx.JSON(http.StatusOK, progs)
}
