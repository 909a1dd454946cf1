package main

import (
	"net/http"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"taskboard/guard"
	"taskboard/handlers"
	"taskboard/utilities"
)

const setSessionPath = "/api/auth/set"

// NewRouter registers every route and wraps the router in the guard and
// the ambient middleware. The guard sits outside mux so it sees each
// request before routing.
func NewRouter(srv *handlers.Server, sessions guard.SessionLoader, allowedOrigins []string) http.Handler {
	r := mux.NewRouter()

	// --- Public and auth routes ---
	r.HandleFunc("/", srv.EntryPage).Methods(http.MethodGet)
	r.HandleFunc("/healthz", srv.HealthHandler).Methods(http.MethodGet)
	r.HandleFunc(setSessionPath, srv.SetSessionHandler)
	r.HandleFunc("/auth/signin", srv.SignInHandler).Methods(http.MethodPost)
	r.HandleFunc("/auth/signup", srv.SignUpHandler).Methods(http.MethodPost)
	r.HandleFunc("/auth/signout", srv.SignOutHandler).Methods(http.MethodPost)

	// --- Pages (guarded) ---
	r.HandleFunc("/dashboard", srv.DashboardPage).Methods(http.MethodGet)
	r.HandleFunc("/tasks/new", srv.NewTaskPage).Methods(http.MethodGet)
	r.HandleFunc("/tasks", srv.CreateTaskHandler).Methods(http.MethodPost)
	r.HandleFunc("/tasks/{id}", srv.EditTaskPage).Methods(http.MethodGet)
	r.HandleFunc("/tasks/{id}", srv.UpdateTaskHandler).Methods(http.MethodPost)
	r.HandleFunc("/tasks/{id}/delete", srv.DeleteTaskHandler).Methods(http.MethodPost)

	// --- JSON API ---
	api := r.PathPrefix("/api/tasks").Subrouter()
	api.Use(srv.RequireSession)
	api.HandleFunc("", srv.ListTasksAPI).Methods(http.MethodGet)
	api.HandleFunc("", srv.CreateTaskAPI).Methods(http.MethodPost)
	api.HandleFunc("/{id}", srv.GetTaskAPI).Methods(http.MethodGet)
	api.HandleFunc("/{id}", srv.UpdateTaskAPI).Methods(http.MethodPut)
	api.HandleFunc("/{id}", srv.DeleteTaskAPI).Methods(http.MethodDelete)

	headers := gorillahandlers.AllowedHeaders([]string{"X-Requested-With", "Content-Type", "Authorization"})
	methods := gorillahandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
		utilities.LogWarn("CORS_ALLOWED_ORIGINS not set, allowing every origin")
	}
	origins := gorillahandlers.AllowedOrigins(allowedOrigins)
	utilities.LogDebug("CORS allowed origins: %v", allowedOrigins)

	guarded := guard.Middleware(sessions)(r)
	cors := gorillahandlers.CORS(headers, methods, origins)(guarded)
	// The propagation endpoint is same-origin only and answers every method
	// itself, OPTIONS included, so the CORS preflight handler stays off it.
	var h http.Handler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.URL.Path == setSessionPath {
			guarded.ServeHTTP(w, req)
			return
		}
		cors.ServeHTTP(w, req)
	})
	h = gorillahandlers.RecoveryHandler(
		gorillahandlers.RecoveryLogger(recoveryLogger{}),
		gorillahandlers.PrintRecoveryStack(false),
	)(h)
	h = handlers.LoggingMiddleware(h)
	return otelhttp.NewHandler(h, "taskboard")
}

// recoveryLogger routes recovered panics into the process logger.
type recoveryLogger struct{}

func (recoveryLogger) Println(v ...interface{}) {
	utilities.Logger().Error().Interface("panic", v).Msg("recovered from panic")
}

// logWriter lets net/http's own error log go through zerolog.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	utilities.Logger().Error().Str("source", "net/http").Msg(string(p))
	return len(p), nil
}
