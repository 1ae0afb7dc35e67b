package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/matricula/core/request"
)

type requestApi struct {
	svc      *request.Service
	validate *validator.Validate
}

func registerRequestAPI(authed, admin *echo.Group, deps *Deps) {
	api := requestApi{svc: deps.RequestSvc, validate: deps.Validate}

	rg := authed.Group("/requests")
	rg.GET("", api.listMine)
	rg.POST("", api.create)
	rg.PUT("/:id/respond", api.respond, adminMiddleware)

	admin.GET("/requests", api.query)
}

func (api *requestApi) listMine(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	reqs, err := api.svc.ListMine(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "listing requests")
	}
	return ctx.JSON(http.StatusOK, reqs)
}

func (api *requestApi) create(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data request.NewRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRequest")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	req, err := api.svc.Create(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "creating request")
	}
	return ctx.JSON(http.StatusCreated, req)
}

func (api *requestApi) respond(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data request.Response
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to request.Response")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	req, err := api.svc.Respond(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "responding to request")
	}
	return ctx.JSON(http.StatusOK, req)
}

func (api *requestApi) query(ctx echo.Context) error {
	var filter request.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to request.QueryFilter")
	}
	reqs, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying requests")
	}
	return ctx.JSON(http.StatusOK, reqs)
}
