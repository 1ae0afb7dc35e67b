package request

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/matricula/core"
	"github.com/trezcool/matricula/core/notification"
	"github.com/trezcool/matricula/core/user"
)

var ErrNotFound = core.NewNotFoundError("request not found")

type (
	Repository interface {
		CreateRequest(ctx context.Context, req Request) (Request, error)
		GetRequest(ctx context.Context, id string) (Request, error)
		// QueryRequests returns the newest requests first.
		QueryRequests(ctx context.Context, filter QueryFilter) ([]Request, error)
		CountRequests(ctx context.Context, filter QueryFilter) (int, error)
		UpdateRequest(ctx context.Context, req Request) (Request, error)
	}

	Service struct {
		repo       Repository
		dispatcher notification.Dispatcher
	}
)

func NewService(repo Repository, dispatcher notification.Dispatcher) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(dispatcher, "dispatcher"),
	).CheckAndPanic()

	return &Service{repo: repo, dispatcher: dispatcher}
}

func (svc *Service) Create(ctx context.Context, userID string, nr NewRequest) (Request, error) {
	now := core.NowFunc()
	return svc.repo.CreateRequest(ctx, Request{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        nr.Type,
		Subject:     nr.Subject,
		Description: nr.Description,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (svc *Service) ListMine(ctx context.Context, userID string) ([]Request, error) {
	return svc.repo.QueryRequests(ctx, QueryFilter{UserID: userID})
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Request, error) {
	for _, s := range filter.Statuses {
		if !s.IsValid() {
			return nil, core.NewValidationError(nil, core.FieldError{Field: "status", Error: "invalid request status"})
		}
	}
	return svc.repo.QueryRequests(ctx, filter)
}

// CountPendingRequests counts the user's requests that are still pendiente or en_proceso.
func (svc *Service) CountPendingRequests(ctx context.Context, userID string) (int, error) {
	return svc.repo.CountRequests(ctx, QueryFilter{UserID: userID, Statuses: OpenStatuses})
}

// Respond records an admin answer. Requests may be answered again, the last answer wins.
func (svc *Service) Respond(ctx context.Context, actor user.User, id string, r Response) (Request, error) {
	if !actor.IsAdmin() {
		return Request{}, core.ErrPermissionDenied
	}
	req, err := svc.repo.GetRequest(ctx, id)
	if err != nil {
		return Request{}, err
	}

	now := core.NowFunc()
	req.Response = null.StringFrom(r.Response)
	req.Status = r.Status
	req.RespondedBy = null.StringFrom(actor.ID)
	req.RespondedAt = null.TimeFrom(now)
	req.UpdatedAt = now
	if req, err = svc.repo.UpdateRequest(ctx, req); err != nil {
		return Request{}, err
	}

	svc.dispatcher.Dispatch(notification.Job{
		UserID: req.UserID,
		Title:  "Respuesta a tu solicitud",
		Body:   fmt.Sprintf("Tu solicitud \"%s\" fue respondida (%s): %s", req.Subject, statusLabels[req.Status], req.Response.String),
		Type:   notification.TypeRequest,
		Link:   "/solicitudes",
		Email:  true,
		Event: &notification.Event{
			Key: core.EventRequestAnswered,
			Payload: map[string]interface{}{
				"request_id":   req.ID,
				"user_id":      req.UserID,
				"status":       req.Status,
				"responded_by": actor.ID,
				"responded_at": now,
			},
		},
	})
	return req, nil
}

var statusLabels = map[Status]string{
	StatusPending:    "pendiente",
	StatusInProgress: "en proceso",
	StatusCompleted:  "completada",
	StatusRejected:   "rechazada",
}
