package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/matricula/core/profile"
)

type profileApi struct {
	svc      *profile.Service
	validate *validator.Validate
}

func registerProfileAPI(authed, admin *echo.Group, deps *Deps) {
	api := profileApi{svc: deps.ProfileSvc, validate: deps.Validate}

	pg := authed.Group("/profiles")
	pg.GET("/me", api.retrieveMine)
	pg.PUT("/me", api.updateMine)
	pg.GET("/:userId", api.retrieve)
	pg.PUT("/:userId/stage", api.changeStage, adminMiddleware)
	pg.GET("/:userId/stage-history", api.history, adminMiddleware)

	admin.GET("/profiles", api.query)
}

func (api *profileApi) retrieveMine(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	p, err := api.svc.Get(ctx.Request().Context(), usr, usr.ID)
	if err != nil {
		return errors.Wrap(err, "getting profile")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *profileApi) updateMine(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	var data profile.UpdateProfile
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	p, err := api.svc.Update(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *profileApi) retrieve(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	p, err := api.svc.Get(ctx.Request().Context(), usr, ctx.Param("userId"))
	if err != nil {
		return errors.Wrap(err, "getting profile")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *profileApi) changeStage(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	var data profile.ChangeStage
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChangeStage")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	p, err := api.svc.ChangeStage(ctx.Request().Context(), usr, ctx.Param("userId"), data)
	if err != nil {
		return errors.Wrap(err, "changing enrollment stage")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *profileApi) history(ctx echo.Context) error {
	history, err := api.svc.History(ctx.Request().Context(), ctx.Param("userId"))
	if err != nil {
		return errors.Wrap(err, "querying stage history")
	}
	return ctx.JSON(http.StatusOK, history)
}

func (api *profileApi) query(ctx echo.Context) error {
	var filter profile.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to profile.QueryFilter")
	}
	profiles, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying profiles")
	}
	return ctx.JSON(http.StatusOK, profiles)
}
