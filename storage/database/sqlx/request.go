package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/matricula/core/request"
)

const (
	requestColumns = "id, user_id, type, subject, description, status, response, responded_by, responded_at, created_at, updated_at"
	insertRequest  = `INSERT INTO requests (` + requestColumns + `) VALUES ` +
		`(:id, :user_id, :type, :subject, :description, :status, :response, :responded_by, :responded_at, :created_at, :updated_at)`
)

type requestRepository struct {
	db *sqlx.DB
}

var _ request.Repository = (*requestRepository)(nil) // interface compliance check

func NewRequestRepository(db *sqlx.DB) *requestRepository {
	return &requestRepository{db: db}
}

func (repo requestRepository) CreateRequest(ctx context.Context, req request.Request) (request.Request, error) {
	if _, err := repo.db.NamedExecContext(ctx, insertRequest, req); err != nil {
		return request.Request{}, errors.Wrap(err, "inserting request")
	}
	return req, nil
}

func (repo requestRepository) GetRequest(ctx context.Context, id string) (request.Request, error) {
	if !isUUID(id) {
		return request.Request{}, request.ErrNotFound
	}
	var req request.Request
	q := psql.Select(requestColumns).From("requests").Where(sq.Eq{"id": id})
	if err := get(ctx, repo.db, &req, q); err != nil {
		return request.Request{}, trapNoRowsErr(err, request.ErrNotFound, "finding request")
	}
	return req, nil
}

func whereRequests(q sq.SelectBuilder, filter request.QueryFilter) (sq.SelectBuilder, bool) {
	if filter.UserID != "" {
		if !isUUID(filter.UserID) {
			return q, false
		}
		q = q.Where(sq.Eq{"user_id": filter.UserID})
	}
	if len(filter.Statuses) > 0 {
		q = q.Where(sq.Eq{"status": filter.Statuses})
	}
	return q, true
}

func (repo requestRepository) QueryRequests(ctx context.Context, filter request.QueryFilter) ([]request.Request, error) {
	reqs := make([]request.Request, 0)
	q, ok := whereRequests(psql.Select(requestColumns).From("requests").OrderBy("created_at DESC"), filter)
	if !ok {
		return reqs, nil
	}
	if err := selectAll(ctx, repo.db, &reqs, q); err != nil {
		return nil, errors.Wrap(err, "querying requests")
	}
	return reqs, nil
}

func (repo requestRepository) CountRequests(ctx context.Context, filter request.QueryFilter) (int, error) {
	q, ok := whereRequests(psql.Select("COUNT(*)").From("requests"), filter)
	if !ok {
		return 0, nil
	}
	var n int
	if err := get(ctx, repo.db, &n, q); err != nil {
		return 0, errors.Wrap(err, "counting requests")
	}
	return n, nil
}

func (repo requestRepository) UpdateRequest(ctx context.Context, req request.Request) (request.Request, error) {
	q := psql.Update("requests").
		SetMap(map[string]interface{}{
			"status":       req.Status,
			"response":     req.Response,
			"responded_by": req.RespondedBy,
			"responded_at": req.RespondedAt,
			"updated_at":   req.UpdatedAt,
		}).
		Where(sq.Eq{"id": req.ID})

	n, err := exec(ctx, repo.db, q)
	if err != nil {
		return request.Request{}, errors.Wrap(err, "updating request")
	}
	if n == 0 {
		return request.Request{}, request.ErrNotFound
	}
	return req, nil
}
