package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/matricula/core"
)

// Notification types
const (
	TypeDocument = "documento"
	TypePayment  = "pago"
	TypeRequest  = "solicitud"
	TypeStage    = "etapa"
	TypeSystem   = "sistema"
)

var ErrNotFound = core.NewNotFoundError("notification not found")

type Notification struct {
	ID        string      `json:"id" db:"id"`
	UserID    string      `json:"user_id" db:"user_id"`
	Title     string      `json:"title" db:"title"`
	Body      string      `json:"body" db:"body"`
	Type      string      `json:"type" db:"type"`
	IsRead    bool        `json:"is_read" db:"is_read"`
	Link      null.String `json:"link" db:"link"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"`
}

type QueryFilter struct {
	UserID     string `query:"-"`
	UnreadOnly bool   `query:"unread"`
}

type (
	Repository interface {
		CreateNotification(ctx context.Context, n Notification) (Notification, error)
		// QueryNotifications returns the newest notifications first.
		QueryNotifications(ctx context.Context, filter QueryFilter) ([]Notification, error)
		// MarkRead flips isRead on the user's notifications with the given ids, or on all of them if none.
		// It returns the number of notifications changed.
		MarkRead(ctx context.Context, userID string, ids ...string) (int, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	vala.BeginValidation().Validate(vala.IsNotNil(repo, "repo")).CheckAndPanic()
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, job Job) (Notification, error) {
	n := Notification{
		ID:        uuid.NewString(),
		UserID:    job.UserID,
		Title:     job.Title,
		Body:      job.Body,
		Type:      job.Type,
		Link:      null.NewString(job.Link, job.Link != ""),
		CreatedAt: core.NowFunc(),
	}
	return svc.repo.CreateNotification(ctx, n)
}

func (svc *Service) List(ctx context.Context, filter QueryFilter) ([]Notification, error) {
	return svc.repo.QueryNotifications(ctx, filter)
}

func (svc *Service) MarkRead(ctx context.Context, userID, id string) error {
	n, err := svc.repo.MarkRead(ctx, userID, id)
	if err != nil {
		return err
	}
	if n == 0 {
		// already read notifications are not changed, tell them apart from unknown ones
		notifs, err := svc.repo.QueryNotifications(ctx, QueryFilter{UserID: userID})
		if err != nil {
			return err
		}
		for _, notif := range notifs {
			if notif.ID == id {
				return nil
			}
		}
		return ErrNotFound
	}
	return nil
}

func (svc *Service) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return svc.repo.MarkRead(ctx, userID)
}
