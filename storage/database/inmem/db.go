package inmemdb

import (
	"sync"
	"time"

	"github.com/trezcool/matricula/core/document"
	"github.com/trezcool/matricula/core/notification"
	"github.com/trezcool/matricula/core/payment"
	"github.com/trezcool/matricula/core/profile"
	"github.com/trezcool/matricula/core/request"
	"github.com/trezcool/matricula/core/university"
	"github.com/trezcool/matricula/core/user"
)

// DB is an in-memory database. A single lock guards every table, so each repository method is atomic.
// Slices keep insertion order.
type DB struct {
	sync.RWMutex
	users         []*user.User
	profiles      map[string]*profile.Profile
	history       []profile.StageHistory
	documents     []*document.Document
	installments  []*payment.Installment
	payments      []*payment.Payment
	requests      []*request.Request
	notifications []*notification.Notification
	universities  []university.University
	programs      []university.Program
}

// Open returns an empty DB holding the same reference data as the SQL seed migration.
func Open() *DB {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	uce := "5b0d7c1e-8a3f-4c6e-9b1a-0f2e3d4c5a01"
	utn := "5b0d7c1e-8a3f-4c6e-9b1a-0f2e3d4c5a02"
	ug := "5b0d7c1e-8a3f-4c6e-9b1a-0f2e3d4c5a03"

	return &DB{
		profiles: make(map[string]*profile.Profile),
		universities: []university.University{
			{ID: uce, Name: "Universidad Central", Code: "UCE", City: "Quito", Country: "Ecuador", CreatedAt: created},
			{ID: utn, Name: "Universidad Técnica del Norte", Code: "UTN", City: "Ibarra", Country: "Ecuador", CreatedAt: created},
			{ID: ug, Name: "Universidad de Guayaquil", Code: "UG", City: "Guayaquil", Country: "Ecuador", CreatedAt: created},
		},
		programs: []university.Program{
			{ID: "7e4a2b90-1c5d-4f7e-8a9b-3c2d1e0f9a01", UniversityID: uce, Name: "Ingeniería de Software", Degree: "Ingeniería", Modality: "presencial", DurationSemesters: 9, CreatedAt: created},
			{ID: "7e4a2b90-1c5d-4f7e-8a9b-3c2d1e0f9a02", UniversityID: uce, Name: "Derecho", Degree: "Licenciatura", Modality: "presencial", DurationSemesters: 10, CreatedAt: created},
			{ID: "7e4a2b90-1c5d-4f7e-8a9b-3c2d1e0f9a03", UniversityID: utn, Name: "Enfermería", Degree: "Licenciatura", Modality: "presencial", DurationSemesters: 9, CreatedAt: created},
			{ID: "7e4a2b90-1c5d-4f7e-8a9b-3c2d1e0f9a04", UniversityID: utn, Name: "Administración de Empresas", Degree: "Licenciatura", Modality: "en línea", DurationSemesters: 8, CreatedAt: created},
			{ID: "7e4a2b90-1c5d-4f7e-8a9b-3c2d1e0f9a05", UniversityID: ug, Name: "Medicina", Degree: "Doctorado", Modality: "presencial", DurationSemesters: 12, CreatedAt: created},
		},
	}
}

// Repositories bundles every repository backed by one DB.
type Repositories struct {
	Users         user.Repository
	Profiles      profile.Repository
	Documents     document.Repository
	Payments      payment.Repository
	Requests      request.Repository
	Notifications notification.Repository
	Universities  university.Repository
}

func NewRepositories(db *DB) Repositories {
	return Repositories{
		Users:         NewUserRepository(db),
		Profiles:      NewProfileRepository(db),
		Documents:     NewDocumentRepository(db),
		Payments:      NewPaymentRepository(db),
		Requests:      NewRequestRepository(db),
		Notifications: NewNotificationRepository(db),
		Universities:  NewUniversityRepository(db),
	}
}

// deleteUserRows removes everything owned by userID. The caller holds the lock.
func (db *DB) deleteUserRows(userID string) {
	delete(db.profiles, userID)

	history := db.history[:0]
	for _, h := range db.history {
		if h.UserID != userID {
			history = append(history, h)
		}
	}
	db.history = history

	docs := db.documents[:0]
	for _, d := range db.documents {
		if d.UserID != userID {
			docs = append(docs, d)
		}
	}
	db.documents = docs

	insts := db.installments[:0]
	for _, i := range db.installments {
		if i.UserID != userID {
			insts = append(insts, i)
		}
	}
	db.installments = insts

	pmts := db.payments[:0]
	for _, p := range db.payments {
		if p.UserID != userID {
			pmts = append(pmts, p)
		}
	}
	db.payments = pmts

	reqs := db.requests[:0]
	for _, r := range db.requests {
		if r.UserID != userID {
			reqs = append(reqs, r)
		}
	}
	db.requests = reqs

	notifs := db.notifications[:0]
	for _, n := range db.notifications {
		if n.UserID != userID {
			notifs = append(notifs, n)
		}
	}
	db.notifications = notifs
}
