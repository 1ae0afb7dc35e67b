package notification

import (
	"context"
	"fmt"
	"net/mail"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/matricula/core"
	"github.com/trezcool/matricula/core/user"
)

var (
	deliveryTimeout = 10 * time.Second

	ErrQueueStopped = errors.New("notification queue stopped")
)

type (
	// Event is a domain event published to the outbound broker along with a Job.
	Event struct {
		Key     string
		Payload interface{}
	}

	// Job is one outbound notification: an in-app row, a live push and optionally an email and an event.
	Job struct {
		UserID string
		Title  string
		Body   string
		Type   string
		Link   string
		Email  bool
		Event  *Event
	}

	// Dispatcher accepts notification jobs after the state change they describe has been committed.
	Dispatcher interface {
		Dispatch(jobs ...Job)
	}

	// Pusher delivers a payload to the live connections of a user.
	Pusher interface {
		Push(userID string, payload interface{}) error
	}

	UserGetter interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	DispatcherDeps struct {
		Notifications *Service
		Users         UserGetter
		Mail          core.EmailService
		Pusher        Pusher              // optional
		Events        core.EventPublisher // optional
		Logger        core.Logger
	}
)

type emailData struct {
	Name  string
	Title string
	Body  string
	Link  string
}

// deliver runs every step of job. Failures are logged and never returned: the state change is already committed.
func deliver(ctx context.Context, deps DispatcherDeps, job Job) {
	n, err := deps.Notifications.Create(ctx, job)
	if err != nil {
		deps.Logger.Error(fmt.Sprintf("creating notification for user %s", job.UserID), err)
	} else if deps.Pusher != nil {
		if err = deps.Pusher.Push(job.UserID, n); err != nil {
			deps.Logger.Warn(fmt.Sprintf("pushing notification to user %s", job.UserID), err)
		}
	}

	if job.Email && deps.Mail != nil && deps.Users != nil {
		usr, err := deps.Users.GetByID(ctx, job.UserID)
		if err != nil {
			deps.Logger.Error(fmt.Sprintf("getting user %s for notification email", job.UserID), err)
		} else {
			deps.Mail.SendMessages(&core.EmailMessage{
				To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
				Subject:      job.Title,
				TemplateName: "notification",
				TemplateData: emailData{Name: usr.Name, Title: job.Title, Body: job.Body, Link: job.Link},
			})
		}
	}

	if job.Event != nil && deps.Events != nil {
		if err = deps.Events.Publish(ctx, job.Event.Key, job.Event.Payload); err != nil {
			deps.Logger.Error(fmt.Sprintf("publishing event %s", job.Event.Key), err)
		}
	}
}

// Queue is the async Dispatcher: jobs are buffered and delivered by worker goroutines.
type Queue struct {
	deps    DispatcherDeps
	jobs    chan Job
	workers int
	wg      sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

var _ Dispatcher = (*Queue)(nil)

func NewQueue(deps DispatcherDeps, workers, size int) *Queue {
	if workers < 1 {
		workers = 1
	}
	if size < 0 {
		size = 0
	}
	return &Queue{
		deps:    deps,
		jobs:    make(chan Job, size),
		workers: workers,
	}
}

// Start launches the workers.
func (q *Queue) Start() {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
}

func (q *Queue) work() {
	defer q.wg.Done()
	for job := range q.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		deliver(ctx, q.deps, job)
		cancel()
	}
}

// Dispatch enqueues jobs without blocking. Jobs that do not fit in the queue are dropped and logged.
func (q *Queue) Dispatch(jobs ...Job) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	for _, job := range jobs {
		if q.stopped {
			q.deps.Logger.Error(fmt.Sprintf("dropping notification for user %s", job.UserID), ErrQueueStopped)
			continue
		}
		select {
		case q.jobs <- job:
		default:
			q.deps.Logger.Error(fmt.Sprintf("notification queue full, dropping notification for user %s", job.UserID))
		}
	}
}

// Stop stops accepting jobs and waits for queued ones to be delivered, or for ctx to be done.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return nil
	}
	q.stopped = true
	close(q.jobs)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "draining notification queue")
	}
}

// InlineDispatcher delivers jobs synchronously, in the caller's goroutine.
type InlineDispatcher struct {
	deps DispatcherDeps
}

var _ Dispatcher = (*InlineDispatcher)(nil)

func NewInlineDispatcher(deps DispatcherDeps) *InlineDispatcher {
	return &InlineDispatcher{deps: deps}
}

func (d *InlineDispatcher) Dispatch(jobs ...Job) {
	for _, job := range jobs {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		deliver(ctx, d.deps, job)
		cancel()
	}
}
