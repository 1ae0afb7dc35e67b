package dig_container

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/matricula/apps/api/echo"
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
	"github.com/trezcool/matricula/storage/database"
	inmemdb "github.com/trezcool/matricula/storage/database/inmem"
	sqlxrepos "github.com/trezcool/matricula/storage/database/sqlx"
	"github.com/trezcool/matricula/storage/files"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// DBCloser releases the database connections, if any.
type DBCloser func() error

type repositories struct {
	dig.Out
	Users         user.Repository
	Profiles      profile.Repository
	Documents     document.Repository
	Payments      payment.Repository
	Requests      request.Repository
	Notifications notification.Repository
	Universities  university.Repository
	Closer        DBCloser
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

// newRepositories opens the configured database engine, migrating Postgres on the way.
func newRepositories(conf *core.Config, loggerParam DBLoggerParam) repositories {
	if conf.Database.Engine == "memory" {
		loggerParam.Logger.Info("using the in-memory database, data is lost on exit")
		repos := inmemdb.NewRepositories(inmemdb.Open())
		return repositories{
			Users:         repos.Users,
			Profiles:      repos.Profiles,
			Documents:     repos.Documents,
			Payments:      repos.Payments,
			Requests:      repos.Requests,
			Notifications: repos.Notifications,
			Universities:  repos.Universities,
			Closer:        func() error { return nil },
		}
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	db, err := database.OpenSqlx(conf)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	if err = database.Migrate(db.DB); err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("migrating database: %v", err), err)
	}

	repos := sqlxrepos.NewRepositories(db)
	return repositories{
		Users:         repos.Users,
		Profiles:      repos.Profiles,
		Documents:     repos.Documents,
		Payments:      repos.Payments,
		Requests:      repos.Requests,
		Notifications: repos.Notifications,
		Universities:  repos.Universities,
		Closer:        db.Close,
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate
}

func newQueue(
	conf *core.Config,
	notifications *notification.Service,
	users *user.Service,
	mail core.EmailService,
	hub *pushsvc.Hub,
	events core.EventPublisher,
	logger core.Logger,
) *notification.Queue {
	deps := notification.DispatcherDeps{
		Notifications: notifications,
		Users:         users,
		Mail:          mail,
		Pusher:        hub,
		Events:        events,
		Logger:        logger,
	}
	return notification.NewQueue(deps, conf.Notifications.Workers, conf.Notifications.QueueSize)
}

func newProfileService(
	repo profile.Repository,
	docs *document.Service,
	reqs *request.Service,
	unis *university.Service,
	dispatcher notification.Dispatcher,
) *profile.Service {
	return profile.NewService(repo, docs, reqs, unis, dispatcher)
}

func newPaymentService(
	repo payment.Repository,
	users *user.Service,
	store core.FileStore,
	dispatcher notification.Dispatcher,
	logger core.Logger,
	conf *core.Config,
) *payment.Service {
	return payment.NewService(repo, users, store, dispatcher, logger, conf)
}

type serverParams struct {
	dig.In
	Conf            *core.Config
	Logger          core.Logger
	Validate        *validator.Validate
	Translator      ut.Translator
	UserSvc         *user.Service
	ProfileSvc      *profile.Service
	DocumentSvc     *document.Service
	PaymentSvc      *payment.Service
	RequestSvc      *request.Service
	NotificationSvc *notification.Service
	UniversitySvc   *university.Service
	Hub             *pushsvc.Hub
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(&echoapi.Deps{
		Conf:            p.Conf,
		Logger:          p.Logger,
		Validate:        p.Validate,
		Translator:      p.Translator,
		UserSvc:         p.UserSvc,
		ProfileSvc:      p.ProfileSvc,
		DocumentSvc:     p.DocumentSvc,
		PaymentSvc:      p.PaymentSvc,
		RequestSvc:      p.RequestSvc,
		NotificationSvc: p.NotificationSvc,
		UniversitySvc:   p.UniversitySvc,
		Hub:             p.Hub,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newRepositories))
	must(c.Provide(newTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(emailsvc.NewService))
	must(c.Provide(files.NewStore))
	must(c.Provide(brokersvc.NewPublisher))
	must(c.Provide(pushsvc.NewHub))

	must(c.Provide(user.NewService))
	must(c.Provide(notification.NewService))
	must(c.Provide(newQueue))
	must(c.Provide(func(q *notification.Queue) notification.Dispatcher { return q }))
	must(c.Provide(university.NewService))
	must(c.Provide(request.NewService))
	must(c.Provide(document.NewService))
	must(c.Provide(newProfileService))
	must(c.Provide(newPaymentService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
