package firebase

import (
	"context"
	"fmt"

	identitytoolkit "google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"
)

// PasswordAuth is the subset of the Identity Toolkit relying party API the
// Client needs. It is the only part of the provider reachable with just an
// API key, which is what the command line client has.
type PasswordAuth interface {
	VerifyPassword(ctx context.Context, email, password string) (*TokenResponse, error)
	SignupNewUser(ctx context.Context, email, password string) (*TokenResponse, error)
	SendEmailVerification(ctx context.Context, idToken string) error
}

// TokenResponse is the provider's answer to a password sign-in or sign-up.
type TokenResponse struct {
	LocalID      string
	Email        string
	IDToken      string
	RefreshToken string
	ExpiresIn    int64
}

type identityToolkit struct {
	svc *identitytoolkit.Service
}

// NewPasswordAuth talks to the Identity Toolkit v3 REST API. A non-empty
// endpoint replaces the base URL, e.g. to target the auth emulator.
func NewPasswordAuth(ctx context.Context, apiKey, endpoint string) (PasswordAuth, error) {
	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	svc, err := identitytoolkit.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create identity toolkit client: %w", err)
	}
	return &identityToolkit{svc: svc}, nil
}

func (it *identityToolkit) VerifyPassword(ctx context.Context, email, password string) (*TokenResponse, error) {
	resp, err := it.svc.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return &TokenResponse{
		LocalID:      resp.LocalId,
		Email:        resp.Email,
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
	}, nil
}

func (it *identityToolkit) SignupNewUser(ctx context.Context, email, password string) (*TokenResponse, error) {
	resp, err := it.svc.Relyingparty.SignupNewUser(&identitytoolkit.IdentitytoolkitRelyingpartySignupNewUserRequest{
		Email:    email,
		Password: password,
	}).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return &TokenResponse{
		LocalID:      resp.LocalId,
		Email:        resp.Email,
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
	}, nil
}

func (it *identityToolkit) SendEmailVerification(ctx context.Context, idToken string) error {
	_, err := it.svc.Relyingparty.GetOobConfirmationCode(&identitytoolkit.Relyingparty{
		RequestType: "VERIFY_EMAIL",
		IdToken:     idToken,
	}).Context(ctx).Do()
	return err
}
