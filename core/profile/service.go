package profile

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/matricula/core"
	"github.com/trezcool/matricula/core/notification"
	"github.com/trezcool/matricula/core/user"
)

var (
	ErrNotFound = core.NewNotFoundError("profile not found")
	// ErrStageChanged is returned by Repository.ChangeStage when the stored stage is no longer the history's previous stage.
	ErrStageChanged = errors.New("enrollment stage was changed concurrently")
)

type (
	Repository interface {
		GetProfile(ctx context.Context, userID string) (Profile, error)
		UpdateProfile(ctx context.Context, p Profile) (Profile, error)
		// QueryProfiles returns profiles whose stage is one of filter.Stages, or all of them if empty.
		QueryProfiles(ctx context.Context, filter QueryFilter) ([]Profile, error)
		// ChangeStage inserts h and moves the profile from h.PreviousStage to h.NewStage in a single transaction.
		ChangeStage(ctx context.Context, h StageHistory) (Profile, error)
		// QueryStageHistory returns the user's history, oldest first.
		QueryStageHistory(ctx context.Context, userID string) ([]StageHistory, error)
	}

	DocumentCounter interface {
		CountDocuments(ctx context.Context, userID string) (int, error)
	}

	PendingRequestCounter interface {
		CountPendingRequests(ctx context.Context, userID string) (int, error)
	}

	ProgramChecker interface {
		CheckProgram(ctx context.Context, universityID, programID null.String) error
	}

	Service struct {
		repo       Repository
		docs       DocumentCounter
		reqs       PendingRequestCounter
		programs   ProgramChecker
		dispatcher notification.Dispatcher
	}
)

func NewService(
	repo Repository,
	docs DocumentCounter,
	reqs PendingRequestCounter,
	programs ProgramChecker,
	dispatcher notification.Dispatcher,
) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(docs, "docs"),
		vala.IsNotNil(reqs, "reqs"),
		vala.IsNotNil(programs, "programs"),
		vala.IsNotNil(dispatcher, "dispatcher"),
	).CheckAndPanic()

	return &Service{
		repo:       repo,
		docs:       docs,
		reqs:       reqs,
		programs:   programs,
		dispatcher: dispatcher,
	}
}

// Get returns the profile of userID, visible to its owner and to admins.
func (svc *Service) Get(ctx context.Context, actor user.User, userID string) (Profile, error) {
	if actor.ID != userID && !actor.IsAdmin() {
		return Profile{}, core.ErrPermissionDenied
	}
	return svc.repo.GetProfile(ctx, userID)
}

func (svc *Service) Update(ctx context.Context, userID string, up UpdateProfile) (Profile, error) {
	p, err := svc.repo.GetProfile(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	if err = svc.programs.CheckProgram(ctx, up.UniversityID, up.ProgramID); err != nil {
		return Profile{}, err
	}

	p.FirstName = up.FirstName
	p.LastName = up.LastName
	p.DocumentNumber = up.DocumentNumber
	p.Phone = up.Phone
	p.BirthDate = up.BirthDate
	p.Address = up.Address
	p.City = up.City
	p.UniversityID = up.UniversityID
	p.ProgramID = up.ProgramID
	p.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateProfile(ctx, p)
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Profile, error) {
	for _, s := range filter.Stages {
		if !s.IsValid() {
			return nil, core.NewValidationError(nil, core.FieldError{Field: "stage", Error: "invalid enrollment stage"})
		}
	}
	return svc.repo.QueryProfiles(ctx, filter)
}

func (svc *Service) History(ctx context.Context, userID string) ([]StageHistory, error) {
	if _, err := svc.repo.GetProfile(ctx, userID); err != nil {
		return nil, err
	}
	return svc.repo.QueryStageHistory(ctx, userID)
}

// ChangeStage moves the student's enrollment stage to cs.Stage when every transition rule holds.
// A rejection is a *core.DomainError listing each failed rule and leaves nothing written.
func (svc *Service) ChangeStage(ctx context.Context, actor user.User, userID string, cs ChangeStage) (Profile, error) {
	if !actor.IsAdmin() {
		return Profile{}, core.ErrPermissionDenied
	}

	p, err := svc.repo.GetProfile(ctx, userID)
	if err != nil {
		return Profile{}, err
	}

	docCount, err := svc.docs.CountDocuments(ctx, userID)
	if err != nil {
		return Profile{}, errors.Wrap(err, "counting documents")
	}
	reqCount, err := svc.reqs.CountPendingRequests(ctx, userID)
	if err != nil {
		return Profile{}, errors.Wrap(err, "counting pending requests")
	}

	failures := CheckTransition(Transition{
		Current:              p.EnrollmentStage,
		Next:                 cs.Stage,
		DocumentsCount:       docCount,
		PendingRequestsCount: reqCount,
	})
	if len(failures) > 0 {
		details := make([]string, 0, len(failures))
		for _, f := range failures {
			details = append(details, f.Message)
		}
		return Profile{}, core.NewDomainError("stage transition rejected", details...)
	}

	h := StageHistory{
		ID:               uuid.NewString(),
		UserID:           userID,
		PreviousStage:    p.EnrollmentStage,
		NewStage:         cs.Stage,
		ChangedBy:        actor.ID,
		Comments:         null.NewString(cs.Comments, cs.Comments != ""),
		ValidationStatus: ValidationApproved,
		ValidationNotes:  null.NewString(cs.ValidationNotes, cs.ValidationNotes != ""),
		CreatedAt:        core.NowFunc(),
	}
	p, err = svc.repo.ChangeStage(ctx, h)
	if err != nil {
		if errors.Cause(err) == ErrStageChanged {
			return Profile{}, core.NewDomainError("stage transition rejected", err.Error())
		}
		return Profile{}, err
	}

	svc.dispatcher.Dispatch(stageChangedJob(h))
	return p, nil
}

func stageChangedJob(h StageHistory) notification.Job {
	body := fmt.Sprintf("Tu etapa de matrícula cambió a \"%s\".", h.NewStage.Label())
	if h.Comments.Valid {
		body += " Comentarios: " + h.Comments.String
	}
	return notification.Job{
		UserID: h.UserID,
		Title:  "Etapa de matrícula actualizada: " + h.NewStage.Label(),
		Body:   body,
		Type:   notification.TypeStage,
		Link:   "/perfil",
		Email:  true,
		Event: &notification.Event{
			Key: core.EventStageChanged,
			Payload: map[string]interface{}{
				"user_id":        h.UserID,
				"previous_stage": h.PreviousStage,
				"new_stage":      h.NewStage,
				"changed_by":     h.ChangedBy,
				"changed_at":     h.CreatedAt,
			},
		},
	}
}
