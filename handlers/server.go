// Package handlers serves the task board pages, the session propagation
// endpoint and the JSON API.
package handlers

import (
	"context"
	"net/http"
	"time"

	"taskboard/models"
	"taskboard/tasks"
)

// Identity is the provider-side session adapter. *firebase.Client
// implements it.
type Identity interface {
	SignIn(ctx context.Context, email, password string) (*models.Session, error)
	SignUp(ctx context.Context, email, password string) (*models.PendingConfirmation, error)
	SignOut(ctx context.Context, userID string) error
}

// SessionStore is the server-side session adapter. *session.Store
// implements it.
type SessionStore interface {
	Load(r *http.Request) (*models.Session, error)
	Save(w http.ResponseWriter, r *http.Request, pair models.TokenPair) (*models.Session, error)
	Clear(w http.ResponseWriter, r *http.Request)
}

// TaskService is implemented by *tasks.Service.
type TaskService interface {
	List(ctx context.Context, userID string) ([]models.Task, error)
	Get(ctx context.Context, userID, id string) (models.Task, error)
	Create(ctx context.Context, userID string, in tasks.Input) (models.Task, error)
	Update(ctx context.Context, userID, id string, in tasks.Input) (models.Task, error)
	Delete(ctx context.Context, userID, id string) error
}

// Pinger reports storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	identity Identity
	sessions SessionStore
	tasks    TaskService
	health   Pinger
	views    *views
	now      func() time.Time
}

// NewServer parses the embedded templates. health may be nil.
func NewServer(identity Identity, sessions SessionStore, taskService TaskService, health Pinger) (*Server, error) {
	v, err := loadViews()
	if err != nil {
		return nil, err
	}
	return &Server{
		identity: identity,
		sessions: sessions,
		tasks:    taskService,
		health:   health,
		views:    v,
		now:      time.Now,
	}, nil
}

// HealthHandler answers GET /healthz.
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
