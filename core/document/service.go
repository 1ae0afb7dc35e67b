package document

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/matricula/core"
	"github.com/trezcool/matricula/core/notification"
	"github.com/trezcool/matricula/core/user"
)

const filesFolder = "documents"

var (
	ErrNotFound = core.NewNotFoundError("document not found")
	// ErrAlreadyReviewed is returned by Repository.ReviewDocument when the document is no longer pending.
	ErrAlreadyReviewed = errors.New("document already reviewed")
)

type (
	Repository interface {
		CreateDocument(ctx context.Context, doc Document) (Document, error)
		GetDocument(ctx context.Context, id string) (Document, error)
		// QueryDocuments returns the newest documents first.
		QueryDocuments(ctx context.Context, filter QueryFilter) ([]Document, error)
		CountDocuments(ctx context.Context, userID string) (int, error)
		// ReviewDocument stores the review fields of doc only if the stored document is still pending.
		ReviewDocument(ctx context.Context, doc Document) (Document, error)
		DeleteDocument(ctx context.Context, id string) error
	}

	Service struct {
		repo       Repository
		files      core.FileStore
		dispatcher notification.Dispatcher
		logger     core.Logger
		maxSize    int64
	}
)

func NewService(
	repo Repository,
	files core.FileStore,
	dispatcher notification.Dispatcher,
	logger core.Logger,
	conf *core.Config,
) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(files, "files"),
		vala.IsNotNil(dispatcher, "dispatcher"),
		vala.IsNotNil(logger, "logger"),
		vala.IsNotNil(conf, "conf"),
	).CheckAndPanic()

	return &Service{
		repo:       repo,
		files:      files,
		dispatcher: dispatcher,
		logger:     logger,
		maxSize:    conf.Storage.MaxUploadSize,
	}
}

// Upload stores the file and creates a pending document owned by userID.
func (svc *Service) Upload(ctx context.Context, userID string, nd NewDocument) (Document, error) {
	if err := nd.Validate(svc.maxSize); err != nil {
		return Document{}, err
	}

	id := uuid.NewString()
	filename := id + strings.ToLower(filepath.Ext(nd.File.Filename))
	loc, err := svc.files.Save(ctx, filesFolder+"/"+userID, filename, nd.File.Content)
	if err != nil {
		return Document{}, errors.Wrap(err, "saving document file")
	}

	now := core.NowFunc()
	doc, err := svc.repo.CreateDocument(ctx, Document{
		ID:        id,
		UserID:    userID,
		Type:      nd.Type,
		Name:      filepath.Base(nd.File.Filename),
		Location:  loc,
		Size:      nd.File.Size,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		svc.removeFile(ctx, loc)
		return Document{}, err
	}
	return doc, nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Document, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "status", Error: "invalid document status"})
	}
	if filter.Type != "" && !filter.Type.IsValid() {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "type", Error: "invalid document type"})
	}
	return svc.repo.QueryDocuments(ctx, filter)
}

// ListMine returns the documents owned by userID.
func (svc *Service) ListMine(ctx context.Context, userID string) ([]Document, error) {
	return svc.repo.QueryDocuments(ctx, QueryFilter{UserID: userID})
}

func (svc *Service) CountDocuments(ctx context.Context, userID string) (int, error) {
	return svc.repo.CountDocuments(ctx, userID)
}

// Get returns the document with id if actor owns it or is an admin.
func (svc *Service) Get(ctx context.Context, actor user.User, id string) (Document, error) {
	doc, err := svc.repo.GetDocument(ctx, id)
	if err != nil {
		return Document{}, err
	}
	if doc.UserID != actor.ID && !actor.IsAdmin() {
		return Document{}, core.ErrPermissionDenied
	}
	return doc, nil
}

// Open returns the document and its file content. The caller must close the reader.
func (svc *Service) Open(ctx context.Context, actor user.User, id string) (Document, io.ReadCloser, error) {
	doc, err := svc.Get(ctx, actor, id)
	if err != nil {
		return Document{}, nil, err
	}
	rc, err := svc.files.Open(ctx, doc.Location)
	if err != nil {
		return Document{}, nil, errors.Wrapf(err, "opening file of document %s", doc.ID)
	}
	return doc, rc, nil
}

func (svc *Service) Delete(ctx context.Context, actor user.User, id string) error {
	doc, err := svc.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if err = svc.repo.DeleteDocument(ctx, doc.ID); err != nil {
		return err
	}
	svc.removeFile(ctx, doc.Location)
	return nil
}

func (svc *Service) removeFile(ctx context.Context, loc string) {
	if err := svc.files.Delete(ctx, loc); err != nil {
		svc.logger.Warn(fmt.Sprintf("deleting file %s", loc), err)
	}
}

// Review approves or rejects a pending document and notifies its owner.
func (svc *Service) Review(ctx context.Context, actor user.User, id string, rv Review) (Document, error) {
	if !actor.IsAdmin() {
		return Document{}, core.ErrPermissionDenied
	}
	if err := rv.Validate(); err != nil {
		return Document{}, err
	}

	doc, err := svc.repo.GetDocument(ctx, id)
	if err != nil {
		return Document{}, err
	}
	if doc.Status != StatusPending {
		return Document{}, core.NewDomainError(ErrAlreadyReviewed.Error())
	}

	now := core.NowFunc()
	doc.Status = rv.Status
	doc.RejectionReason = null.NewString(rv.RejectionReason, rv.Status == StatusRejected)
	doc.ReviewedBy = null.StringFrom(actor.ID)
	doc.ReviewedAt = null.TimeFrom(now)
	doc.UpdatedAt = now

	doc, err = svc.repo.ReviewDocument(ctx, doc)
	if err != nil {
		if errors.Cause(err) == ErrAlreadyReviewed {
			return Document{}, core.NewDomainError(ErrAlreadyReviewed.Error())
		}
		return Document{}, err
	}

	jobs := []notification.Job{reviewedJob(doc)}
	if doc.Status == StatusApproved {
		all, err := svc.allApproved(ctx, doc.UserID)
		if err != nil {
			svc.logger.Error(fmt.Sprintf("checking documents of user %s", doc.UserID), err)
		} else if all {
			jobs = append(jobs, notification.Job{
				UserID: doc.UserID,
				Title:  "Todos tus documentos fueron aprobados",
				Body:   "Todos los documentos que subiste fueron aprobados.",
				Type:   notification.TypeDocument,
				Link:   "/documentos",
				Email:  true,
			})
		}
	}
	svc.dispatcher.Dispatch(jobs...)
	return doc, nil
}

func (svc *Service) allApproved(ctx context.Context, userID string) (bool, error) {
	docs, err := svc.repo.QueryDocuments(ctx, QueryFilter{UserID: userID})
	if err != nil {
		return false, err
	}
	if len(docs) == 0 {
		return false, nil
	}
	for _, d := range docs {
		if d.Status != StatusApproved {
			return false, nil
		}
	}
	return true, nil
}

func reviewedJob(doc Document) notification.Job {
	job := notification.Job{
		UserID: doc.UserID,
		Type:   notification.TypeDocument,
		Link:   "/documentos",
		Email:  true,
		Event: &notification.Event{
			Key: core.EventDocumentReviewed,
			Payload: map[string]interface{}{
				"document_id":      doc.ID,
				"user_id":          doc.UserID,
				"type":             doc.Type,
				"status":           doc.Status,
				"rejection_reason": doc.RejectionReason,
				"reviewed_by":      doc.ReviewedBy,
				"reviewed_at":      doc.ReviewedAt,
			},
		},
	}
	if doc.Status == StatusApproved {
		job.Title = "Documento aprobado"
		job.Body = fmt.Sprintf("Tu documento \"%s\" fue aprobado.", doc.Name)
	} else {
		job.Title = "Documento rechazado"
		job.Body = fmt.Sprintf("Tu documento \"%s\" fue rechazado. Motivo: %s", doc.Name, doc.RejectionReason.String)
	}
	return job
}
