// Package session keeps the server's copy of a user session in HTTP
// cookies.
package session

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"taskboard/apperrors"
	"taskboard/models"
)

const (
	AccessCookie  = "taskboard-access-token"
	RefreshCookie = "taskboard-refresh-token"
)

// Verifier resolves an access token to the user it was issued to.
type Verifier interface {
	VerifySession(ctx context.Context, accessToken string) (models.User, error)
}

// Options tune cookie attributes.
type Options struct {
	// TrustForwardedProto treats X-Forwarded-Proto: https as a TLS request.
	TrustForwardedProto bool
	// RefreshMaxAge bounds the refresh cookie lifetime. Zero keeps it for
	// the browser session only.
	RefreshMaxAge time.Duration
}

// Store reads and writes sessions on requests and responses.
type Store struct {
	verifier Verifier
	opts     Options
	now      func() time.Time
}

func NewStore(verifier Verifier, opts Options) *Store {
	return &Store{verifier: verifier, opts: opts, now: time.Now}
}

// Load returns the session carried by r. The access cookie wins over an
// Authorization bearer token. The token is always checked with the
// provider, so a returned session is valid.
func (s *Store) Load(r *http.Request) (*models.Session, error) {
	const op = "session.Load"

	pair, ok := readPair(r)
	if !ok {
		return nil, apperrors.E(apperrors.KindSessionMissing, op, nil)
	}

	user, err := s.verifier.VerifySession(r.Context(), pair.AccessToken)
	if err != nil {
		return nil, apperrors.E(apperrors.KindOf(err), op, err)
	}
	if user.ID == "" {
		return nil, apperrors.E(apperrors.KindSessionInvalid, op, errors.New("identity without user id"))
	}

	return &models.Session{TokenPair: pair, User: user, ExpiresAt: expiry(pair.AccessToken)}, nil
}

// Save verifies pair and stores it in the response cookies. Calling it again
// with the same pair only refreshes the cookies.
func (s *Store) Save(w http.ResponseWriter, r *http.Request, pair models.TokenPair) (*models.Session, error) {
	const op = "session.Save"

	pair.AccessToken = strings.TrimSpace(pair.AccessToken)
	pair.RefreshToken = strings.TrimSpace(pair.RefreshToken)
	if pair.AccessToken == "" {
		return nil, apperrors.Invalid(op, "access_token", "access_token is required")
	}
	if pair.RefreshToken == "" {
		return nil, apperrors.Invalid(op, "refresh_token", "refresh_token is required")
	}

	user, err := s.verifier.VerifySession(r.Context(), pair.AccessToken)
	if err != nil {
		return nil, apperrors.E(apperrors.KindOf(err), op, err)
	}
	if user.ID == "" {
		return nil, apperrors.E(apperrors.KindSessionInvalid, op, errors.New("identity without user id"))
	}

	expiresAt := expiry(pair.AccessToken)
	secure := s.isHTTPS(r)

	access := &http.Cookie{
		Name:     AccessCookie,
		Value:    pair.AccessToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	if !expiresAt.IsZero() {
		access.MaxAge = max(int(expiresAt.Sub(s.now()).Seconds()), 1)
	}
	http.SetCookie(w, access)

	refresh := &http.Cookie{
		Name:     RefreshCookie,
		Value:    pair.RefreshToken,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	if s.opts.RefreshMaxAge > 0 {
		refresh.MaxAge = int(s.opts.RefreshMaxAge.Seconds())
	}
	http.SetCookie(w, refresh)

	return &models.Session{TokenPair: pair, User: user, ExpiresAt: expiresAt}, nil
}

// Clear expires both session cookies.
func (s *Store) Clear(w http.ResponseWriter, r *http.Request) {
	secure := s.isHTTPS(r)
	for _, name := range []string{AccessCookie, RefreshCookie} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			HttpOnly: true,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   -1,
		})
	}
}

// HasCookie reports whether r carries a non-empty access cookie.
func HasCookie(r *http.Request) bool {
	_, ok := readCookie(r, AccessCookie)
	return ok
}

func (s *Store) isHTTPS(r *http.Request) bool {
	if r == nil {
		return false
	}
	if r.TLS != nil {
		return true
	}
	return s.opts.TrustForwardedProto && strings.EqualFold(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")), "https")
}

func readPair(r *http.Request) (models.TokenPair, bool) {
	if access, ok := readCookie(r, AccessCookie); ok {
		refresh, _ := readCookie(r, RefreshCookie)
		return models.TokenPair{AccessToken: access, RefreshToken: refresh}, true
	}
	if bearer, ok := BearerToken(r); ok {
		return models.TokenPair{AccessToken: bearer}, true
	}
	return models.TokenPair{}, false
}

func readCookie(r *http.Request, name string) (string, bool) {
	if r == nil {
		return "", false
	}
	c, err := r.Cookie(name)
	if err != nil {
		return "", false
	}
	v := strings.TrimSpace(c.Value)
	return v, v != ""
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	if r == nil {
		return "", false
	}
	scheme, token, found := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// expiry reads the exp claim without checking the signature. The provider
// has already verified the token; the claim only sizes the cookie.
func expiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.UTC()
}
