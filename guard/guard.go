// Package guard decides, once per request, whether a browser may reach a
// page given its session.
package guard

import (
	"net/http"
	"path"
	"strings"

	"taskboard/apperrors"
	"taskboard/models"
	"taskboard/session"
	"taskboard/utilities"
)

const (
	EntryPath     = "/"
	DashboardPath = "/dashboard"
)

// Class is the guard's view of a path.
type Class int

const (
	// Unguarded paths are never examined.
	Unguarded Class = iota
	PublicEntry
	Protected
)

var protectedRoots = []string{"/dashboard", "/tasks"}

// Normalize cleans p so that equivalent spellings of a path get the same
// decision. Normalize(Normalize(p)) == Normalize(p).
func Normalize(p string) string {
	if p == "" || p[0] != '/' {
		p = "/" + p
	}
	return path.Clean(p)
}

// Classify normalizes p and reports its class.
func Classify(p string) Class {
	p = Normalize(p)
	if p == EntryPath {
		return PublicEntry
	}
	for _, root := range protectedRoots {
		if p == root || strings.HasPrefix(p, root+"/") {
			return Protected
		}
	}
	return Unguarded
}

// Decision is what the guard does with a request.
type Decision struct {
	Redirect string
}

// Pass reports whether the request continues to its handler.
func (d Decision) Pass() bool { return d.Redirect == "" }

// Decide is the pure routing policy.
func Decide(p string, hasSession bool) Decision {
	switch Classify(p) {
	case Protected:
		if !hasSession {
			return Decision{Redirect: EntryPath}
		}
	case PublicEntry:
		if hasSession {
			return Decision{Redirect: DashboardPath}
		}
	}
	return Decision{}
}

// SessionLoader is satisfied by *session.Store.
type SessionLoader interface {
	Load(r *http.Request) (*models.Session, error)
	Clear(w http.ResponseWriter, r *http.Request)
}

// Middleware applies Decide to every request before routing. Any failure to
// resolve the session counts as no session. A session that resolves is
// attached to the request context.
func Middleware(sessions SessionLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if Classify(r.URL.Path) == Unguarded {
				next.ServeHTTP(w, r)
				return
			}

			s, err := sessions.Load(r)
			hasSession := err == nil && s.Valid()
			if err != nil {
				if !apperrors.IsKind(err, apperrors.KindSessionMissing) {
					utilities.LogDebug("guard: treating %s as signed out: %v", r.URL.Path, err)
				}
				if apperrors.IsKind(err, apperrors.KindSessionInvalid) && session.HasCookie(r) {
					sessions.Clear(w, r)
				}
			}

			if d := Decide(r.URL.Path, hasSession); !d.Pass() {
				http.Redirect(w, r, d.Redirect, http.StatusSeeOther)
				return
			}
			if hasSession {
				r = r.WithContext(session.WithSession(r.Context(), s))
			}
			next.ServeHTTP(w, r)
		})
	}
}
