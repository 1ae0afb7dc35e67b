package echoapi

import (
	"encoding/csv"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/matricula/core/profile"
	"github.com/trezcool/matricula/core/user"
)

var enrollmentReportHeader = []string{
	"user_id", "name", "username", "email", "stage", "stage_label", "documents", "pending_requests",
}

type reportApi struct {
	deps *Deps
}

func registerReportAPI(admin *echo.Group, deps *Deps) {
	api := reportApi{deps: deps}
	admin.GET("/reports/enrollment", api.enrollment)
}

// enrollment writes one CSV row per student.
func (api *reportApi) enrollment(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	students, err := api.deps.UserSvc.Query(reqCtx, &user.QueryFilter{Roles: []string{user.RoleStudent}}, nil)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	profiles, err := api.deps.ProfileSvc.Query(reqCtx, profile.QueryFilter{})
	if err != nil {
		return errors.Wrap(err, "querying profiles")
	}
	stages := make(map[string]profile.Stage, len(profiles))
	for _, p := range profiles {
		stages[p.UserID] = p.EnrollmentStage
	}

	rows := make([][]string, 0, len(students)+1)
	rows = append(rows, enrollmentReportHeader)
	for _, usr := range students {
		docs, err := api.deps.DocumentSvc.CountDocuments(reqCtx, usr.ID)
		if err != nil {
			return errors.Wrap(err, "counting documents")
		}
		reqs, err := api.deps.RequestSvc.CountPendingRequests(reqCtx, usr.ID)
		if err != nil {
			return errors.Wrap(err, "counting pending requests")
		}
		stage := stages[usr.ID]
		rows = append(rows, []string{
			usr.ID, usr.Name, usr.Username, usr.Email,
			string(stage), stage.Label(),
			strconv.Itoa(docs), strconv.Itoa(reqs),
		})
	}

	res := ctx.Response()
	res.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	res.Header().Set(echo.HeaderContentDisposition, `attachment; filename="matriculas.csv"`)
	res.WriteHeader(http.StatusOK)

	w := csv.NewWriter(res)
	if err = w.WriteAll(rows); err != nil {
		return errors.Wrap(err, "writing enrollment report")
	}
	return nil
}
