package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/matricula/core/document"
)

const (
	documentColumns = "id, user_id, type, name, location, size, status, rejection_reason, reviewed_by, reviewed_at, created_at, updated_at"
	insertDocument  = `INSERT INTO documents (` + documentColumns + `) VALUES ` +
		`(:id, :user_id, :type, :name, :location, :size, :status, :rejection_reason, :reviewed_by, :reviewed_at, :created_at, :updated_at)`
)

type documentRepository struct {
	db *sqlx.DB
}

var _ document.Repository = (*documentRepository)(nil) // interface compliance check

func NewDocumentRepository(db *sqlx.DB) *documentRepository {
	return &documentRepository{db: db}
}

func (repo documentRepository) CreateDocument(ctx context.Context, doc document.Document) (document.Document, error) {
	if _, err := repo.db.NamedExecContext(ctx, insertDocument, doc); err != nil {
		return document.Document{}, errors.Wrap(err, "inserting document")
	}
	return doc, nil
}

func (repo documentRepository) GetDocument(ctx context.Context, id string) (document.Document, error) {
	if !isUUID(id) {
		return document.Document{}, document.ErrNotFound
	}
	var doc document.Document
	q := psql.Select(documentColumns).From("documents").Where(sq.Eq{"id": id})
	if err := get(ctx, repo.db, &doc, q); err != nil {
		return document.Document{}, trapNoRowsErr(err, document.ErrNotFound, "finding document")
	}
	return doc, nil
}

func (repo documentRepository) QueryDocuments(ctx context.Context, filter document.QueryFilter) ([]document.Document, error) {
	docs := make([]document.Document, 0)
	q := psql.Select(documentColumns).From("documents").OrderBy("created_at DESC")
	if filter.UserID != "" {
		if !isUUID(filter.UserID) {
			return docs, nil
		}
		q = q.Where(sq.Eq{"user_id": filter.UserID})
	}
	if filter.Status != "" {
		q = q.Where(sq.Eq{"status": filter.Status})
	}
	if filter.Type != "" {
		q = q.Where(sq.Eq{"type": filter.Type})
	}

	if err := selectAll(ctx, repo.db, &docs, q); err != nil {
		return nil, errors.Wrap(err, "querying documents")
	}
	return docs, nil
}

func (repo documentRepository) CountDocuments(ctx context.Context, userID string) (int, error) {
	if !isUUID(userID) {
		return 0, nil
	}
	var n int
	q := psql.Select("COUNT(*)").From("documents").Where(sq.Eq{"user_id": userID})
	if err := get(ctx, repo.db, &n, q); err != nil {
		return 0, errors.Wrap(err, "counting documents")
	}
	return n, nil
}

// ReviewDocument is a conditional update: of two concurrent reviews only one finds the document pending.
func (repo documentRepository) ReviewDocument(ctx context.Context, doc document.Document) (document.Document, error) {
	q := psql.Update("documents").
		SetMap(map[string]interface{}{
			"status":           doc.Status,
			"rejection_reason": doc.RejectionReason,
			"reviewed_by":      doc.ReviewedBy,
			"reviewed_at":      doc.ReviewedAt,
			"updated_at":       doc.UpdatedAt,
		}).
		Where(sq.Eq{"id": doc.ID, "status": document.StatusPending}).
		Suffix("RETURNING " + documentColumns)

	var updated document.Document
	if err := get(ctx, repo.db, &updated, q); err != nil {
		return document.Document{}, trapNoRowsErr(err, document.ErrAlreadyReviewed, "reviewing document")
	}
	return updated, nil
}

func (repo documentRepository) DeleteDocument(ctx context.Context, id string) error {
	if !isUUID(id) {
		return document.ErrNotFound
	}
	n, err := exec(ctx, repo.db, psql.Delete("documents").Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting document")
	}
	if n == 0 {
		return document.ErrNotFound
	}
	return nil
}
