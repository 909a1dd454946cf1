package handlers

import (
	"errors"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"taskboard/apperrors"
	"taskboard/models"
	"taskboard/session"
	"taskboard/tasks"
	"taskboard/utilities"
)

// currentSession returns the session the guard attached. Protected pages
// never run without one; the redirect covers a misconfigured router.
func currentSession(w http.ResponseWriter, r *http.Request) (*models.Session, bool) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
	return sess, ok
}

// pageError renders the page matching err.
func (s *Server) pageError(w http.ResponseWriter, r *http.Request, err error) {
	switch apperrors.KindOf(err) {
	case apperrors.KindNotFound:
		s.views.render(w, http.StatusNotFound, "not_found.html", nil)
	case apperrors.KindSessionMissing, apperrors.KindSessionInvalid:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	default:
		utilities.LogError(err, "render task page")
		s.views.render(w, apperrors.HTTPStatus(err), "error.html", errorView{Message: apperrors.Message(err)})
	}
}

// DashboardPage lists the user's tasks.
func (s *Server) DashboardPage(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}
	list, err := s.tasks.List(r.Context(), sess.User.ID)
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	s.views.render(w, http.StatusOK, "dashboard.html", dashboardView{User: sess.User, Tasks: list})
}

func (s *Server) NewTaskPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentSession(w, r); !ok {
		return
	}
	s.views.render(w, http.StatusOK, "task_form.html", taskFormView{Input: tasks.DefaultInput(s.now())})
}

func (s *Server) CreateTaskHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}
	in, err := parseTaskForm(r)
	if err == nil {
		_, err = s.tasks.Create(r.Context(), sess.User.ID, in)
	}
	if err != nil {
		s.formError(w, r, nil, in, err)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) EditTaskPage(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}
	task, err := s.tasks.Get(r.Context(), sess.User.ID, mux.Vars(r)["id"])
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	s.views.render(w, http.StatusOK, "task_form.html", taskFormView{Task: &task, Input: tasks.InputOf(task)})
}

func (s *Server) UpdateTaskHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	in, err := parseTaskForm(r)
	if err == nil {
		_, err = s.tasks.Update(r.Context(), sess.User.ID, id, in)
	}
	if err != nil {
		s.formError(w, r, &models.Task{ID: id}, in, err)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) DeleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}
	if err := s.tasks.Delete(r.Context(), sess.User.ID, mux.Vars(r)["id"]); err != nil {
		s.pageError(w, r, err)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// formError re-renders the task form with the message inline for
// validation errors and falls back to the error pages otherwise.
func (s *Server) formError(w http.ResponseWriter, r *http.Request, task *models.Task, in tasks.Input, err error) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperrors.KindValidation {
		s.pageError(w, r, err)
		return
	}
	s.views.render(w, http.StatusUnprocessableEntity, "task_form.html", taskFormView{
		Task:    task,
		Input:   in,
		Message: apperrors.Message(err),
		Field:   appErr.Field,
	})
}

// parseTaskForm reads a submitted task form. On error the partially parsed
// input is still returned so the form can be re-rendered with it.
func parseTaskForm(r *http.Request) (tasks.Input, error) {
	const op = "handlers.parseTaskForm"

	if err := r.ParseForm(); err != nil {
		return tasks.Input{}, apperrors.Invalid(op, "form", "The form could not be read.")
	}
	return inputFromValues(op, r.PostForm)
}

func inputFromValues(op string, v url.Values) (tasks.Input, error) {
	in := tasks.Input{
		Title:       v.Get("title"),
		Description: v.Get("description"),
		Status:      models.Status(v.Get("status")),
		Priority:    models.Priority(v.Get("priority")),
	}

	var err error
	if in.EstimatedHours, err = parseHours(v.Get("estimated_hours")); err != nil {
		return in, apperrors.Invalid(op, "estimated_hours", "Estimated hours must be a number.")
	}
	if in.ActualHours, err = parseHours(v.Get("actual_hours")); err != nil {
		return in, apperrors.Invalid(op, "actual_hours", "Actual hours must be a number.")
	}
	if in.DueDate, err = models.ParseDate(v.Get("due_date")); err != nil {
		return in, apperrors.Invalid(op, "due_date", "Due date must be a date.")
	}
	return in, nil
}

func parseHours(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	h, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(h) || math.IsInf(h, 0) {
		return 0, errors.New("not a number")
	}
	return h, nil
}
