package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/matricula/core/notification"
)

const (
	notificationColumns = "id, user_id, title, body, type, is_read, link, created_at"
	insertNotification  = `INSERT INTO notifications (` + notificationColumns + `) VALUES ` +
		`(:id, :user_id, :title, :body, :type, :is_read, :link, :created_at)`
)

type notificationRepository struct {
	db *sqlx.DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *sqlx.DB) *notificationRepository {
	return &notificationRepository{db: db}
}

func (repo notificationRepository) CreateNotification(ctx context.Context, n notification.Notification) (notification.Notification, error) {
	if _, err := repo.db.NamedExecContext(ctx, insertNotification, n); err != nil {
		return notification.Notification{}, errors.Wrap(err, "inserting notification")
	}
	return n, nil
}

func (repo notificationRepository) QueryNotifications(ctx context.Context, filter notification.QueryFilter) ([]notification.Notification, error) {
	notifs := make([]notification.Notification, 0)
	q := psql.Select(notificationColumns).From("notifications").OrderBy("created_at DESC")
	if filter.UserID != "" {
		if !isUUID(filter.UserID) {
			return notifs, nil
		}
		q = q.Where(sq.Eq{"user_id": filter.UserID})
	}
	if filter.UnreadOnly {
		q = q.Where(sq.Eq{"is_read": false})
	}
	if err := selectAll(ctx, repo.db, &notifs, q); err != nil {
		return nil, errors.Wrap(err, "querying notifications")
	}
	return notifs, nil
}

func (repo notificationRepository) MarkRead(ctx context.Context, userID string, ids ...string) (int, error) {
	if !isUUID(userID) {
		return 0, nil
	}
	q := psql.Update("notifications").
		Set("is_read", true).
		Where(sq.Eq{"user_id": userID, "is_read": false})
	if len(ids) > 0 {
		q = q.Where(sq.Eq{"id": validUUIDs(ids)})
	}

	n, err := exec(ctx, repo.db, q)
	if err != nil {
		return 0, errors.Wrap(err, "marking notifications read")
	}
	return int(n), nil
}
