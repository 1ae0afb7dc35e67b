package inmemdb

import (
	"context"

	"github.com/trezcool/matricula/core/notification"
)

type notificationRepository struct {
	db *DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) notification.Repository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotification(_ context.Context, n notification.Notification) (notification.Notification, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	stored := n
	repo.db.notifications = append(repo.db.notifications, &stored)
	return n, nil
}

func (repo *notificationRepository) QueryNotifications(_ context.Context, filter notification.QueryFilter) ([]notification.Notification, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	notifs := make([]notification.Notification, 0)
	for i := len(repo.db.notifications) - 1; i >= 0; i-- {
		n := repo.db.notifications[i]
		if filter.UserID != "" && n.UserID != filter.UserID {
			continue
		}
		if filter.UnreadOnly && n.IsRead {
			continue
		}
		notifs = append(notifs, *n)
	}
	return notifs, nil
}

func (repo *notificationRepository) MarkRead(_ context.Context, userID string, ids ...string) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	changed := 0
	for i, n := range repo.db.notifications {
		if n.UserID != userID || n.IsRead {
			continue
		}
		if len(ids) > 0 && !containsID(n.ID, ids) {
			continue
		}
		updated := *n
		updated.IsRead = true
		repo.db.notifications[i] = &updated
		changed++
	}
	return changed, nil
}
