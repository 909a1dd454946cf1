package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"taskboard/session"
	"taskboard/tasks"
)

// The JSON handlers run behind RequireSession.

func (s *Server) ListTasksAPI(w http.ResponseWriter, r *http.Request) {
	list, err := s.tasks.List(r.Context(), session.UserID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) GetTaskAPI(w http.ResponseWriter, r *http.Request) {
	task, err := s.tasks.Get(r.Context(), session.UserID(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) CreateTaskAPI(w http.ResponseWriter, r *http.Request) {
	var in tasks.Input
	if err := decodeJSON(w, r, "handlers.CreateTask", &in); err != nil {
		writeError(w, err)
		return
	}
	task, err := s.tasks.Create(r.Context(), session.UserID(r.Context()), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) UpdateTaskAPI(w http.ResponseWriter, r *http.Request) {
	var in tasks.Input
	if err := decodeJSON(w, r, "handlers.UpdateTask", &in); err != nil {
		writeError(w, err)
		return
	}
	task, err := s.tasks.Update(r.Context(), session.UserID(r.Context()), mux.Vars(r)["id"], in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (s *Server) DeleteTaskAPI(w http.ResponseWriter, r *http.Request) {
	if err := s.tasks.Delete(r.Context(), session.UserID(r.Context()), mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
