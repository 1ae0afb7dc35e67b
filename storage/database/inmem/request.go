package inmemdb

import (
	"context"

	"github.com/trezcool/matricula/core/request"
)

type requestRepository struct {
	db *DB
}

var _ request.Repository = (*requestRepository)(nil) // interface compliance check

func NewRequestRepository(db *DB) request.Repository {
	return &requestRepository{db: db}
}

func (repo *requestRepository) CreateRequest(_ context.Context, req request.Request) (request.Request, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	r := req
	repo.db.requests = append(repo.db.requests, &r)
	return req, nil
}

func (repo *requestRepository) GetRequest(_ context.Context, id string) (request.Request, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, r := range repo.db.requests {
		if r.ID == id {
			return *r, nil
		}
	}
	return request.Request{}, request.ErrNotFound
}

func (repo *requestRepository) filter(filter request.QueryFilter) []request.Request {
	reqs := make([]request.Request, 0)
	for i := len(repo.db.requests) - 1; i >= 0; i-- {
		r := repo.db.requests[i]
		if filter.UserID != "" && r.UserID != filter.UserID {
			continue
		}
		if len(filter.Statuses) > 0 && !hasStatus(filter.Statuses, r.Status) {
			continue
		}
		reqs = append(reqs, *r)
	}
	return reqs
}

func hasStatus(statuses []request.Status, s request.Status) bool {
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}

func (repo *requestRepository) QueryRequests(_ context.Context, filter request.QueryFilter) ([]request.Request, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.filter(filter), nil
}

func (repo *requestRepository) CountRequests(_ context.Context, filter request.QueryFilter) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return len(repo.filter(filter)), nil
}

func (repo *requestRepository) UpdateRequest(_ context.Context, req request.Request) (request.Request, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for i, r := range repo.db.requests {
		if r.ID == req.ID {
			updated := req
			repo.db.requests[i] = &updated
			return req, nil
		}
	}
	return request.Request{}, request.ErrNotFound
}
