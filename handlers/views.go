package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"taskboard/models"
	"taskboard/tasks"
	"taskboard/utilities"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = []string{"entry.html", "dashboard.html", "task_form.html", "not_found.html", "error.html"}

type views struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"statuses":   func() []models.Status { return models.Statuses },
	"priorities": func() []models.Priority { return models.Priorities },
	"hours": func(h float64) string {
		return fmt.Sprintf("%g", h)
	},
}

func loadViews() (*views, error) {
	v := &views{pages: make(map[string]*template.Template, len(pages))}
	for _, page := range pages {
		t, err := template.New(page).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		v.pages[page] = t
	}
	return v, nil
}

// render buffers the page so a template error still yields a clean 500.
func (v *views) render(w http.ResponseWriter, status int, page string, data any) {
	t, ok := v.pages[page]
	if !ok {
		utilities.LogError(fmt.Errorf("unknown page %q", page), "render")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		utilities.LogError(err, "render "+page)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type entryView struct {
	Email   string
	Message string
	IsError bool
}

type dashboardView struct {
	User  models.User
	Tasks []models.Task
}

type taskFormView struct {
	Task    *models.Task
	Input   tasks.Input
	Message string
	Field   string
}

// Action is the form target: create for a blank form, update otherwise.
func (v taskFormView) Action() string {
	if v.Task == nil {
		return "/tasks"
	}
	return "/tasks/" + v.Task.ID
}

type errorView struct {
	Message string
}
