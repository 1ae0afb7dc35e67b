package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/matricula/core/payment"
)

type paymentApi struct {
	svc      *payment.Service
	validate *validator.Validate
}

func registerPaymentAPI(authed, admin *echo.Group, deps *Deps) {
	api := paymentApi{svc: deps.PaymentSvc, validate: deps.Validate}

	pg := authed.Group("/payments")
	pg.GET("/me", api.mine)
	pg.POST("", api.report)
	pg.PUT("/:id/status", api.review, adminMiddleware)
	pg.POST("/installments/:id/support", api.uploadSupport)
	pg.GET("/installments/:id/support", api.downloadSupport)
	pg.PUT("/installments/:id/status", api.updateInstallment, adminMiddleware)

	admin.POST("/users/:id/installments", api.createPlan)
	admin.GET("/payments", api.query)
}

func (api *paymentApi) mine(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	summary, err := api.svc.Mine(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "listing payments")
	}
	return ctx.JSON(http.StatusOK, summary)
}

func (api *paymentApi) report(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data payment.NewPayment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayment")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	p, err := api.svc.Report(ctx.Request().Context(), usr.ID, data)
	if err != nil {
		return errors.Wrap(err, "reporting payment")
	}
	return ctx.JSON(http.StatusCreated, p)
}

func (api *paymentApi) review(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data payment.Review
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to payment.Review")
	}

	p, err := api.svc.Review(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "reviewing payment")
	}
	return ctx.JSON(http.StatusOK, p)
}

func (api *paymentApi) uploadSupport(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	file, closeFile, err := bindUpload(ctx, "file")
	if err != nil {
		return err
	}
	defer closeFile()

	inst, err := api.svc.UploadSupport(ctx.Request().Context(), usr, ctx.Param("id"), file)
	if err != nil {
		return errors.Wrap(err, "uploading support")
	}
	return ctx.JSON(http.StatusOK, inst)
}

func (api *paymentApi) downloadSupport(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	inst, rc, err := api.svc.OpenSupport(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "opening support")
	}
	return sendFile(ctx, inst.SupportName.String, rc)
}

func (api *paymentApi) updateInstallment(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data payment.InstallmentStatusUpdate
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to InstallmentStatusUpdate")
	}

	inst, err := api.svc.UpdateInstallmentStatus(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating installment status")
	}
	return ctx.JSON(http.StatusOK, inst)
}

func (api *paymentApi) createPlan(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data payment.NewPlan
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPlan")
	}
	if err = data.Validate(api.validate); err != nil {
		return err
	}

	insts, err := api.svc.CreatePlan(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "creating payment plan")
	}
	return ctx.JSON(http.StatusCreated, insts)
}

func (api *paymentApi) query(ctx echo.Context) error {
	var filter payment.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to payment.QueryFilter")
	}
	pmts, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	return ctx.JSON(http.StatusOK, pmts)
}
