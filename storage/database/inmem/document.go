package inmemdb

import (
	"context"

	"github.com/trezcool/matricula/core/document"
)

type documentRepository struct {
	db *DB
}

var _ document.Repository = (*documentRepository)(nil) // interface compliance check

func NewDocumentRepository(db *DB) document.Repository {
	return &documentRepository{db: db}
}

func (repo *documentRepository) CreateDocument(_ context.Context, doc document.Document) (document.Document, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	d := doc
	repo.db.documents = append(repo.db.documents, &d)
	return doc, nil
}

func (repo *documentRepository) find(id string) (int, bool) {
	for i, d := range repo.db.documents {
		if d.ID == id {
			return i, true
		}
	}
	return -1, false
}

func (repo *documentRepository) GetDocument(_ context.Context, id string) (document.Document, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if i, ok := repo.find(id); ok {
		return *repo.db.documents[i], nil
	}
	return document.Document{}, document.ErrNotFound
}

func (repo *documentRepository) QueryDocuments(_ context.Context, filter document.QueryFilter) ([]document.Document, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	docs := make([]document.Document, 0)
	for i := len(repo.db.documents) - 1; i >= 0; i-- {
		d := repo.db.documents[i]
		if filter.UserID != "" && d.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		if filter.Type != "" && d.Type != filter.Type {
			continue
		}
		docs = append(docs, *d)
	}
	return docs, nil
}

func (repo *documentRepository) CountDocuments(_ context.Context, userID string) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	n := 0
	for _, d := range repo.db.documents {
		if d.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (repo *documentRepository) ReviewDocument(_ context.Context, doc document.Document) (document.Document, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	i, ok := repo.find(doc.ID)
	if !ok {
		return document.Document{}, document.ErrNotFound
	}
	stored := repo.db.documents[i]
	if stored.Status != document.StatusPending {
		return document.Document{}, document.ErrAlreadyReviewed
	}

	updated := *stored
	updated.Status = doc.Status
	updated.RejectionReason = doc.RejectionReason
	updated.ReviewedBy = doc.ReviewedBy
	updated.ReviewedAt = doc.ReviewedAt
	updated.UpdatedAt = doc.UpdatedAt
	repo.db.documents[i] = &updated
	return updated, nil
}

func (repo *documentRepository) DeleteDocument(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	i, ok := repo.find(id)
	if !ok {
		return document.ErrNotFound
	}
	repo.db.documents = append(repo.db.documents[:i], repo.db.documents[i+1:]...)
	return nil
}
