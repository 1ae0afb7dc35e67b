package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/matricula/core/document"
)

type documentApi struct {
	svc *document.Service
}

func registerDocumentAPI(authed, admin *echo.Group, deps *Deps) {
	api := documentApi{svc: deps.DocumentSvc}

	dg := authed.Group("/documents")
	dg.GET("", api.listMine)
	dg.POST("", api.upload)
	dg.GET("/:id/file", api.download)
	dg.DELETE("/:id", api.destroy)
	dg.PUT("/:id/status", api.review, adminMiddleware)

	admin.GET("/documents", api.query)
}

func (api *documentApi) listMine(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	docs, err := api.svc.ListMine(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "listing documents")
	}
	return ctx.JSON(http.StatusOK, docs)
}

// upload expects a multipart form with `file` and `type`.
func (api *documentApi) upload(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	file, closeFile, err := bindUpload(ctx, "file")
	if err != nil {
		return err
	}
	defer closeFile()

	doc, err := api.svc.Upload(ctx.Request().Context(), usr.ID, document.NewDocument{
		Type: document.Type(ctx.FormValue("type")),
		File: file,
	})
	if err != nil {
		return errors.Wrap(err, "uploading document")
	}
	return ctx.JSON(http.StatusCreated, doc)
}

func (api *documentApi) download(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	doc, rc, err := api.svc.Open(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "opening document")
	}
	return sendFile(ctx, doc.Name, rc)
}

func (api *documentApi) destroy(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	if err = api.svc.Delete(ctx.Request().Context(), usr, ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting document")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *documentApi) review(ctx echo.Context) error {
	usr, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	var data document.Review
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to document.Review")
	}

	doc, err := api.svc.Review(ctx.Request().Context(), usr, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "reviewing document")
	}
	return ctx.JSON(http.StatusOK, doc)
}

func (api *documentApi) query(ctx echo.Context) error {
	var filter document.QueryFilter
	if err := ctx.Bind(&filter); err != nil {
		return errors.Wrap(err, "binding to document.QueryFilter")
	}
	docs, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying documents")
	}
	return ctx.JSON(http.StatusOK, docs)
}
