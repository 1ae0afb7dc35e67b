package echoapi

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/matricula/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// bindUpload reads the multipart file `field`. A missing file yields an empty Upload, rejected later by Upload.Check.
// The returned close func must always be called.
func bindUpload(ctx echo.Context, field string) (core.Upload, func(), error) {
	noop := func() {}
	fh, err := ctx.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return core.Upload{}, noop, nil
		}
		return core.Upload{}, noop, errors.Wrap(err, "reading multipart file")
	}
	f, err := fh.Open()
	if err != nil {
		return core.Upload{}, noop, errors.Wrap(err, "opening multipart file")
	}
	return uploadOf(fh, f), func() { _ = f.Close() }, nil
}

func uploadOf(fh *multipart.FileHeader, f multipart.File) core.Upload {
	return core.Upload{Filename: filepath.Base(fh.Filename), Size: fh.Size, Content: f}
}

// sendFile streams rc as an inline attachment named filename.
func sendFile(ctx echo.Context, filename string, rc io.ReadCloser) error {
	defer rc.Close()
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", filename))
	return ctx.Stream(http.StatusOK, core.ContentType(filename), rc)
}
