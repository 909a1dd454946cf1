package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"taskboard/apperrors"
	"taskboard/models"
	"taskboard/session"
)

func TestInputFromValues(t *testing.T) {
	t.Parallel()

	in, err := inputFromValues("test", url.Values{
		"title":           {"Ship it"},
		"status":          {"in_progress"},
		"priority":        {"high"},
		"estimated_hours": {" 2.5 "},
		"actual_hours":    {""},
		"due_date":        {"2031-02-03"},
	})
	if err != nil {
		t.Fatalf("inputFromValues() error = %v", err)
	}
	if in.EstimatedHours != 2.5 || in.ActualHours != 0 {
		t.Fatalf("hours = %v/%v, want 2.5/0", in.EstimatedHours, in.ActualHours)
	}
	if got := in.DueDate.String(); got != "2031-02-03" {
		t.Fatalf("DueDate = %q, want %q", got, "2031-02-03")
	}
	if in.Status != models.StatusInProgress || in.Priority != models.PriorityHigh {
		t.Fatalf("status/priority = %q/%q", in.Status, in.Priority)
	}
}

func TestInputFromValuesRejectsBadFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		field string
		value string
	}{
		{field: "estimated_hours", value: "many"},
		{field: "actual_hours", value: "NaN"},
		{field: "due_date", value: "next week"},
	}
	for _, tc := range tests {
		t.Run(tc.field, func(t *testing.T) {
			t.Parallel()
			in, err := inputFromValues("test", url.Values{"title": {"kept"}, tc.field: {tc.value}})
			var appErr *apperrors.Error
			if !errors.As(err, &appErr) || appErr.Kind != apperrors.KindValidation {
				t.Fatalf("error = %v, want a validation error", err)
			}
			if appErr.Field != tc.field {
				t.Fatalf("Field = %q, want %q", appErr.Field, tc.field)
			}
			if in.Title != "kept" {
				t.Fatalf("Title = %q, want the partial input kept", in.Title)
			}
		})
	}
}

func TestWriteErrorEnvelope(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	writeError(rec, apperrors.Invalid("test", "title", "Title is required."))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
	want := `{"error":"Title is required.","kind":"validation","field":"title"}`
	if got := strings.TrimSpace(rec.Body.String()); got != want {
		t.Fatalf("body = %s, want %s", got, want)
	}
}

func TestWriteErrorHidesInternalCause(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	writeError(rec, apperrors.E(apperrors.KindInternal, "test", errors.New("pq: password authentication failed")))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	if strings.Contains(rec.Body.String(), "pq:") {
		t.Fatalf("body leaks the cause: %s", rec.Body.String())
	}
}

func TestWantsJSON(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/auth/signout", nil)
	if wantsJSON(req) {
		t.Fatalf("wantsJSON() = true for a bare form post")
	}
	req.Header.Set("Accept", "application/json")
	if !wantsJSON(req) {
		t.Fatalf("wantsJSON() = false with Accept: application/json")
	}
}

func TestLoggingMiddlewareKeepsFirstStatus(t *testing.T) {
	t.Parallel()

	h := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}
}

type stubSessions struct {
	sess *models.Session
	err  error
}

func (s stubSessions) Load(r *http.Request) (*models.Session, error) { return s.sess, s.err }
func (s stubSessions) Save(w http.ResponseWriter, r *http.Request, pair models.TokenPair) (*models.Session, error) {
	return s.sess, s.err
}
func (s stubSessions) Clear(w http.ResponseWriter, r *http.Request) {}

func TestRequireSession(t *testing.T) {
	t.Parallel()

	sess := &models.Session{TokenPair: models.TokenPair{AccessToken: "a", RefreshToken: "r"}, User: models.User{ID: "u1"}}
	tests := []struct {
		name     string
		sessions stubSessions
		ctx      *models.Session
		want     int
	}{
		{name: "from context", sessions: stubSessions{err: errors.New("not called")}, ctx: sess, want: http.StatusOK},
		{name: "loaded", sessions: stubSessions{sess: sess}, want: http.StatusOK},
		{name: "missing", sessions: stubSessions{err: apperrors.E(apperrors.KindSessionMissing, "test", nil)}, want: http.StatusUnauthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := &Server{sessions: tc.sessions}
			h := srv.RequireSession(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if session.UserID(r.Context()) != "u1" {
					t.Errorf("UserID() = %q, want %q", session.UserID(r.Context()), "u1")
				}
				w.WriteHeader(http.StatusOK)
			}))
			req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
			if tc.ctx != nil {
				req = req.WithContext(session.WithSession(context.Background(), tc.ctx))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
		})
	}
}

func TestViewsRenderEveryPage(t *testing.T) {
	t.Parallel()

	v, err := loadViews()
	if err != nil {
		t.Fatalf("loadViews() error = %v", err)
	}
	pagesData := map[string]any{
		"entry.html":     entryView{Email: "ada@example.com", Message: "hi"},
		"dashboard.html": dashboardView{User: models.User{ID: "u1", Email: "ada@example.com"}, Tasks: []models.Task{{ID: "t1", Title: "One", Status: models.StatusPlanning, Priority: models.PriorityLow}}},
		"task_form.html": taskFormView{Task: &models.Task{ID: "t1"}, Message: "Title is required.", Field: "title"},
		"not_found.html": nil,
		"error.html":     errorView{Message: "Something went wrong."},
	}
	for page, data := range pagesData {
		rec := httptest.NewRecorder()
		v.render(rec, http.StatusOK, page, data)
		if rec.Code != http.StatusOK {
			t.Fatalf("render(%s) status = %d, want %d", page, rec.Code, http.StatusOK)
		}
		if !strings.Contains(rec.Body.String(), "<html") {
			t.Fatalf("render(%s) did not use the layout", page)
		}
	}
}
