// Package testutil wires the whole application on the in-memory database for tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/trezcool/matricula/core"
	"github.com/trezcool/matricula/core/document"
	"github.com/trezcool/matricula/core/notification"
	"github.com/trezcool/matricula/core/payment"
	"github.com/trezcool/matricula/core/profile"
	"github.com/trezcool/matricula/core/request"
	"github.com/trezcool/matricula/core/university"
	"github.com/trezcool/matricula/core/user"
	brokersvc "github.com/trezcool/matricula/services/broker"
	emailsvc "github.com/trezcool/matricula/services/email"
	logsvc "github.com/trezcool/matricula/services/logger"
	pushsvc "github.com/trezcool/matricula/services/push"
	inmemdb "github.com/trezcool/matricula/storage/database/inmem"
	"github.com/trezcool/matricula/storage/files"
)

// Stack holds every service of the application, backed by an in-memory DB and a temp upload dir.
// Notifications are delivered synchronously.
type Stack struct {
	Conf       *core.Config
	Logger     core.Logger
	DB         *inmemdb.DB
	Repos      inmemdb.Repositories
	Validate   *validator.Validate
	Translator ut.Translator
	Files      core.FileStore
	Mail       core.EmailService
	Events     *brokersvc.Recorder
	Hub        *pushsvc.Hub

	Users         *user.Service
	Profiles      *profile.Service
	Documents     *document.Service
	Payments      *payment.Service
	Requests      *request.Service
	Notifications *notification.Service
	Universities  *university.Service
}

func NewTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func NewStack(t *testing.T) *Stack {
	t.Helper()

	conf := core.NewTestConfig()
	conf.Storage.UploadDir = t.TempDir()
	logger := logsvc.NewTestLogger()

	validate := validator.New()
	translator := NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	user.LoadCommonPasswords(logger)
	core.ParseEmailTemplates(conf, logger)

	store, err := files.NewLocalStore(conf.Storage.UploadDir)
	if err != nil {
		t.Fatalf("NewLocalStore() failed: %v", err)
	}

	db := inmemdb.Open()
	repos := inmemdb.NewRepositories(db)
	mail := emailsvc.NewConsoleServiceMock(conf, logger)
	events := new(brokersvc.Recorder)
	hub := pushsvc.NewHub(logger)

	s := &Stack{
		Conf:       conf,
		Logger:     logger,
		DB:         db,
		Repos:      repos,
		Validate:   validate,
		Translator: translator,
		Files:      store,
		Mail:       mail,
		Events:     events,
		Hub:        hub,
	}

	s.Users = user.NewService(repos.Users, mail, conf)
	s.Notifications = notification.NewService(repos.Notifications)
	dispatcher := notification.NewInlineDispatcher(notification.DispatcherDeps{
		Notifications: s.Notifications,
		Users:         s.Users,
		Mail:          mail,
		Pusher:        hub,
		Events:        events,
		Logger:        logger,
	})
	s.Universities = university.NewService(repos.Universities)
	s.Requests = request.NewService(repos.Requests, dispatcher)
	s.Documents = document.NewService(repos.Documents, store, dispatcher, logger, conf)
	s.Profiles = profile.NewService(repos.Profiles, s.Documents, s.Requests, s.Universities, dispatcher)
	s.Payments = payment.NewService(repos.Payments, s.Users, store, dispatcher, logger, conf)
	return s
}

// CreateUser inserts a user, and its profile, straight into the repository.
func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd, role string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        uuid.NewString(),
		Name:      name,
		Username:  uname,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func (s *Stack) CreateStudent(t *testing.T, uname string) user.User {
	t.Helper()
	return CreateUser(t, s.Repos.Users, "Student "+uname, uname, uname+"@test.ec", "", user.RoleStudent, true)
}

func (s *Stack) CreateAdmin(t *testing.T, uname string) user.User {
	t.Helper()
	return CreateUser(t, s.Repos.Users, "Admin "+uname, uname, uname+"@test.ec", "", user.RoleAdmin, true)
}

// SetStage forces the stored stage of userID, bypassing the transition rules.
func (s *Stack) SetStage(t *testing.T, userID string, stage profile.Stage) {
	t.Helper()
	p, err := s.Repos.Profiles.GetProfile(context.Background(), userID)
	if err != nil {
		t.Fatalf("SetStage() failed: %v", err)
	}
	_, err = s.Repos.Profiles.ChangeStage(context.Background(), profile.StageHistory{
		ID:            uuid.NewString(),
		UserID:        userID,
		PreviousStage: p.EnrollmentStage,
		NewStage:      stage,
		ChangedBy:     userID,
		CreatedAt:     time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("SetStage() failed: %v", err)
	}
}

// CreateDocument inserts a document record without a stored file.
func (s *Stack) CreateDocument(t *testing.T, userID string, status document.Status) document.Document {
	t.Helper()
	now := time.Now().UTC()
	doc, err := s.Repos.Documents.CreateDocument(context.Background(), document.Document{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      document.TypeIDCard,
		Name:      "cedula.pdf",
		Location:  "documents/" + userID + "/missing.pdf",
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateDocument() failed: %v", err)
	}
	return doc
}

func (s *Stack) CreateRequest(t *testing.T, userID string, status request.Status) request.Request {
	t.Helper()
	now := time.Now().UTC()
	req, err := s.Repos.Requests.CreateRequest(context.Background(), request.Request{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      "certificado",
		Subject:   "Certificado de matrícula",
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateRequest() failed: %v", err)
	}
	return req
}
