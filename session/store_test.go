package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"taskboard/apperrors"
	"taskboard/models"
)

type fakeVerifier struct {
	users map[string]models.User
	err   error
}

func (f *fakeVerifier) VerifySession(ctx context.Context, accessToken string) (models.User, error) {
	if f.err != nil {
		return models.User{}, f.err
	}
	user, ok := f.users[accessToken]
	if !ok {
		return models.User{}, apperrors.E(apperrors.KindSessionInvalid, "fake", errors.New("unknown token"))
	}
	return user, nil
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "uid-1",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return token
}

func cookieMap(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

func TestSaveThenLoad(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	access := signedToken(t, now.Add(time.Hour))
	verifier := &fakeVerifier{users: map[string]models.User{access: {ID: "uid-1", Email: "a@example.com"}}}
	store := NewStore(verifier, Options{RefreshMaxAge: 24 * time.Hour})
	store.now = func() time.Time { return now }

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/set", nil)
	saved, err := store.Save(rec, req, models.TokenPair{AccessToken: access, RefreshToken: "refresh-1"})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if saved.User.ID != "uid-1" {
		t.Fatalf("saved user = %q, want uid-1", saved.User.ID)
	}

	cookies := cookieMap(rec)
	ac, ok := cookies[AccessCookie]
	if !ok {
		t.Fatalf("access cookie not set")
	}
	if !ac.HttpOnly || ac.SameSite != http.SameSiteLaxMode || ac.Path != "/" {
		t.Fatalf("unexpected access cookie attributes: %+v", ac)
	}
	if ac.Secure {
		t.Fatalf("plain HTTP request must not get a Secure cookie")
	}
	if ac.MaxAge != 3600 {
		t.Fatalf("access MaxAge = %d, want 3600", ac.MaxAge)
	}
	if rc := cookies[RefreshCookie]; rc == nil || rc.Value != "refresh-1" || rc.MaxAge != 86400 {
		t.Fatalf("unexpected refresh cookie: %+v", rc)
	}

	next := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	for _, c := range rec.Result().Cookies() {
		next.AddCookie(c)
	}
	loaded, err := store.Load(next)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.AccessToken != access || loaded.RefreshToken != "refresh-1" {
		t.Fatalf("Load() tokens = %+v, want the saved pair", loaded.TokenPair)
	}
	if !loaded.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("ExpiresAt = %v, want %v", loaded.ExpiresAt, now.Add(time.Hour))
	}
}

func TestSaveRejectsInvalidPair(t *testing.T) {
	t.Parallel()

	store := NewStore(&fakeVerifier{}, Options{})
	req := httptest.NewRequest(http.MethodPost, "/api/auth/set", nil)

	rec := httptest.NewRecorder()
	if _, err := store.Save(rec, req, models.TokenPair{RefreshToken: "r"}); !apperrors.IsKind(err, apperrors.KindValidation) {
		t.Fatalf("Save(empty access) error = %v, want validation", err)
	}

	rec = httptest.NewRecorder()
	_, err := store.Save(rec, req, models.TokenPair{AccessToken: "forged", RefreshToken: "r"})
	if !apperrors.IsKind(err, apperrors.KindSessionInvalid) {
		t.Fatalf("Save(forged) error = %v, want session_invalid", err)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatalf("rejected pair must not set cookies")
	}
}

func TestLoadMissingAndBearer(t *testing.T) {
	t.Parallel()

	verifier := &fakeVerifier{users: map[string]models.User{"api-token": {ID: "uid-2"}}}
	store := NewStore(verifier, Options{})

	if _, err := store.Load(httptest.NewRequest(http.MethodGet, "/", nil)); !apperrors.IsKind(err, apperrors.KindSessionMissing) {
		t.Fatalf("Load() error = %v, want session_missing", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.Header.Set("Authorization", "Bearer api-token")
	s, err := store.Load(req)
	if err != nil {
		t.Fatalf("Load(bearer) error = %v", err)
	}
	if s.User.ID != "uid-2" {
		t.Fatalf("user = %q, want uid-2", s.User.ID)
	}
}

func TestLoadPropagatesProviderOutage(t *testing.T) {
	t.Parallel()

	store := NewStore(&fakeVerifier{err: apperrors.E(apperrors.KindProviderUnavailable, "fake", nil)}, Options{})
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: AccessCookie, Value: "tok"})

	if _, err := store.Load(req); !apperrors.IsKind(err, apperrors.KindProviderUnavailable) {
		t.Fatalf("Load() error = %v, want provider_unavailable", err)
	}
}

func TestSecureCookieBehindProxy(t *testing.T) {
	t.Parallel()

	verifier := &fakeVerifier{users: map[string]models.User{"tok": {ID: "uid-1"}}}
	req := httptest.NewRequest(http.MethodPost, "/api/auth/set", nil)
	req.Header.Set("X-Forwarded-Proto", "https")

	rec := httptest.NewRecorder()
	if _, err := NewStore(verifier, Options{}).Save(rec, req, models.TokenPair{AccessToken: "tok", RefreshToken: "r"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if cookieMap(rec)[AccessCookie].Secure {
		t.Fatal("untrusted forwarded proto must not mark the cookie Secure")
	}

	rec = httptest.NewRecorder()
	if _, err := NewStore(verifier, Options{TrustForwardedProto: true}).Save(rec, req, models.TokenPair{AccessToken: "tok", RefreshToken: "r"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !cookieMap(rec)[AccessCookie].Secure {
		t.Fatal("trusted forwarded proto must mark the cookie Secure")
	}
}

func TestClearExpiresCookies(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	NewStore(&fakeVerifier{}, Options{}).Clear(rec, httptest.NewRequest(http.MethodPost, "/auth/signout", nil))

	cookies := cookieMap(rec)
	for _, name := range []string{AccessCookie, RefreshCookie} {
		c, ok := cookies[name]
		if !ok || c.MaxAge >= 0 {
			t.Fatalf("cookie %s not expired: %+v", name, c)
		}
	}
}

func TestContextHelpers(t *testing.T) {
	t.Parallel()

	if _, ok := FromContext(context.Background()); ok {
		t.Fatal("empty context must carry no session")
	}
	s := &models.Session{TokenPair: models.TokenPair{AccessToken: "a"}, User: models.User{ID: "uid-1"}}
	ctx := WithSession(context.Background(), s)
	if UserID(ctx) != "uid-1" {
		t.Fatalf("UserID() = %q, want uid-1", UserID(ctx))
	}
	if UserID(WithSession(context.Background(), &models.Session{})) != "" {
		t.Fatal("invalid session must not yield a user id")
	}
}
