package guard

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"taskboard/apperrors"
	"taskboard/models"
	"taskboard/session"
)

func TestDecide(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path       string
		hasSession bool
		want       string
	}{
		{"/dashboard", false, "/"},
		{"/dashboard/x", false, "/"},
		{"/tasks/new", false, "/"},
		{"/tasks", false, "/"},
		{"/", true, "/dashboard"},
		{"/", false, ""},
		{"/dashboard", true, ""},
		{"/tasks/abc", true, ""},
		{"/dashboards", false, ""},
		{"/tasksx", false, ""},
		{"/api/auth/set", false, ""},
		{"/healthz", true, ""},
	}
	for _, tc := range tests {
		if got := Decide(tc.path, tc.hasSession).Redirect; got != tc.want {
			t.Fatalf("Decide(%q, %v) redirect = %q, want %q", tc.path, tc.hasSession, got, tc.want)
		}
	}
}

func TestNormalizationIsIdempotentAndEquivalent(t *testing.T) {
	t.Parallel()

	paths := []string{"/dashboard//x", "/dashboard/x/", "/dashboard/./x", "/tasks/../dashboard/x", "dashboard/x", "//", ""}
	for _, p := range paths {
		once := Normalize(p)
		if twice := Normalize(once); twice != once {
			t.Fatalf("Normalize not idempotent for %q: %q then %q", p, once, twice)
		}
	}

	for _, hasSession := range []bool{true, false} {
		a := Decide("/dashboard//x", hasSession)
		b := Decide("/dashboard/x", hasSession)
		if a != b {
			t.Fatalf("decisions differ for equivalent paths (session=%v): %+v vs %+v", hasSession, a, b)
		}
	}
	if Decide("//", true).Redirect != "/dashboard" {
		t.Fatal("expected // to be treated as the entry path")
	}
}

type fakeSessions struct {
	session *models.Session
	err     error
	cleared bool
}

func (f *fakeSessions) Load(r *http.Request) (*models.Session, error) {
	return f.session, f.err
}

func (f *fakeSessions) Clear(w http.ResponseWriter, r *http.Request) {
	f.cleared = true
}

func validSession() *models.Session {
	return &models.Session{TokenPair: models.TokenPair{AccessToken: "a", RefreshToken: "r"}, User: models.User{ID: "uid-1"}}
}

func serve(t *testing.T, sessions SessionLoader, target string, cookie bool) (*httptest.ResponseRecorder, string) {
	t.Helper()

	var seenUser string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenUser = session.UserID(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if cookie {
		req.AddCookie(&http.Cookie{Name: session.AccessCookie, Value: "stale"})
	}
	rec := httptest.NewRecorder()
	Middleware(sessions)(next).ServeHTTP(rec, req)
	return rec, seenUser
}

func TestMiddlewareRedirectsWithoutSession(t *testing.T) {
	t.Parallel()

	rec, _ := serve(t, &fakeSessions{err: apperrors.E(apperrors.KindSessionMissing, "", nil)}, "/dashboard", false)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Fatalf("Location = %q, want /", loc)
	}
}

func TestMiddlewareRedirectsSignedInEntry(t *testing.T) {
	t.Parallel()

	rec, _ := serve(t, &fakeSessions{session: validSession()}, "/", true)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/dashboard" {
		t.Fatalf("got %d to %q, want 303 to /dashboard", rec.Code, rec.Header().Get("Location"))
	}
}

func TestMiddlewareAttachesSession(t *testing.T) {
	t.Parallel()

	rec, user := serve(t, &fakeSessions{session: validSession()}, "/tasks/abc", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if user != "uid-1" {
		t.Fatalf("handler saw user %q, want uid-1", user)
	}
}

func TestMiddlewareFailsClosed(t *testing.T) {
	t.Parallel()

	sessions := &fakeSessions{err: apperrors.E(apperrors.KindProviderUnavailable, "", errors.New("timeout"))}
	rec, _ := serve(t, sessions, "/dashboard", true)
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Fatalf("got %d to %q, want 303 to /", rec.Code, rec.Header().Get("Location"))
	}
	if sessions.cleared {
		t.Fatal("an outage must not clear a possibly valid cookie")
	}
}

func TestMiddlewareClearsInvalidCookie(t *testing.T) {
	t.Parallel()

	sessions := &fakeSessions{err: apperrors.E(apperrors.KindSessionInvalid, "", nil)}
	rec, _ := serve(t, sessions, "/", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for the entry page", rec.Code)
	}
	if !sessions.cleared {
		t.Fatal("expected invalid cookie to be cleared")
	}
}

func TestMiddlewareSkipsUnguardedPaths(t *testing.T) {
	t.Parallel()

	sessions := &fakeSessions{err: errors.New("must not be called")}
	rec, _ := serve(t, sessions, "/api/tasks", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
