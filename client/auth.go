package client

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"taskboard/apperrors"
	"taskboard/models"
)

// Provider performs password flows against the identity provider.
// *firebase.Client implements it.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*models.Session, error)
	SignUp(ctx context.Context, email, password string) (*models.PendingConfirmation, error)
}

// Auth is the client-context session adapter.
type Auth struct {
	provider Provider
	storage  Storage
	now      func() time.Time
}

func NewAuth(provider Provider, storage Storage) *Auth {
	return &Auth{provider: provider, storage: storage, now: time.Now}
}

// SignIn signs in with the provider and stores the session.
func (a *Auth) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	s, err := a.provider.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if err := a.storage.Save(s); err != nil {
		return nil, apperrors.E(apperrors.KindInternal, "client.SignIn", err)
	}
	return s, nil
}

// SignUp never stores anything: the account is unconfirmed.
func (a *Auth) SignUp(ctx context.Context, email, password string) (*models.PendingConfirmation, error) {
	return a.provider.SignUp(ctx, email, password)
}

// GetSession returns the stored session, or nil when there is none or it
// has expired.
func (a *Auth) GetSession(ctx context.Context) (*models.Session, error) {
	s, err := a.storage.Load()
	if err != nil {
		return nil, apperrors.E(apperrors.KindInternal, "client.GetSession", err)
	}
	if !s.Valid() || s.Expired(a.now()) {
		return nil, nil
	}
	return s, nil
}

// SetSession stores a token pair obtained elsewhere. The identity is read
// from the access token claims; the server verifies it on first use.
func (a *Auth) SetSession(ctx context.Context, pair models.TokenPair) (*models.Session, error) {
	const op = "client.SetSession"

	if strings.TrimSpace(pair.AccessToken) == "" || strings.TrimSpace(pair.RefreshToken) == "" {
		return nil, apperrors.Invalid(op, "tokens", "access_token and refresh_token are required")
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(pair.AccessToken, claims); err != nil {
		return nil, apperrors.E(apperrors.KindSessionInvalid, op, err)
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, apperrors.E(apperrors.KindSessionInvalid, op, errors.New("token has no subject"))
	}
	email, _ := claims["email"].(string)

	s := &models.Session{TokenPair: pair, User: models.User{ID: sub, Email: email}}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		s.ExpiresAt = exp.UTC()
	}
	if s.Expired(a.now()) {
		return nil, apperrors.E(apperrors.KindSessionInvalid, op, errors.New("token expired"))
	}
	if err := a.storage.Save(s); err != nil {
		return nil, apperrors.E(apperrors.KindInternal, op, err)
	}
	return s, nil
}

// SignOut forgets the local session.
func (a *Auth) SignOut(ctx context.Context) error {
	if err := a.storage.Clear(); err != nil {
		return apperrors.E(apperrors.KindInternal, "client.SignOut", err)
	}
	return nil
}
