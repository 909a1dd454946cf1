package firebase

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"firebase.google.com/go/v4/auth"

	"taskboard/apperrors"
	"taskboard/models"
	"taskboard/utilities"
)

// MinPasswordLength is the shortest password the provider accepts.
const MinPasswordLength = 6

const defaultTimeout = 10 * time.Second

// TokenVerifier is the Admin SDK surface used for session checks.
// *auth.Client implements it. Verification also checks revocation so a
// signed out session stops working before its access token expires.
type TokenVerifier interface {
	VerifyIDTokenAndCheckRevoked(ctx context.Context, idToken string) (*auth.Token, error)
	RevokeRefreshTokens(ctx context.Context, uid string) error
}

// Client is the provider-side session adapter.
type Client struct {
	tokens    TokenVerifier
	passwords PasswordAuth
	timeout   time.Duration
	now       func() time.Time
}

// New builds a Client. tokens may be nil in processes that only sign in and
// sign up, such as the command line client.
func New(tokens TokenVerifier, passwords PasswordAuth, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{tokens: tokens, passwords: passwords, timeout: timeout, now: time.Now}
}

// SignIn exchanges email and password for a session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	const op = "firebase.SignIn"

	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperrors.E(apperrors.KindMalformedEmail, op, errors.New("email is required"))
	}
	if password == "" {
		return nil, apperrors.E(apperrors.KindInvalidCredentials, op, errors.New("password is required"))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.passwords.VerifyPassword(ctx, email, password)
	if err != nil {
		utilities.LogDebug("password sign-in rejected for %s: %v", email, err)
		return nil, wrap(op, err)
	}
	if resp.LocalID == "" || resp.IDToken == "" {
		return nil, apperrors.E(apperrors.KindInternal, op, errors.New("provider returned no session"))
	}
	return c.sessionFrom(resp), nil
}

// SignUp registers a new account and asks the provider to send the
// confirmation mail. The account stays unconfirmed and no session is
// returned.
func (c *Client) SignUp(ctx context.Context, email, password string) (*models.PendingConfirmation, error) {
	const op = "firebase.SignUp"

	email, err := normalizeEmail(email)
	if err != nil {
		return nil, apperrors.E(apperrors.KindMalformedEmail, op, err)
	}
	if len([]rune(password)) < MinPasswordLength {
		return nil, apperrors.E(apperrors.KindWeakPassword, op, errors.New("password too short"))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.passwords.SignupNewUser(ctx, email, password)
	if err != nil {
		return nil, wrap(op, err)
	}
	if err := c.passwords.SendEmailVerification(ctx, resp.IDToken); err != nil {
		// the account exists; the user can ask for another mail later
		utilities.LogError(err, "send verification email")
	}

	pending := &models.PendingConfirmation{UserID: resp.LocalID, Email: resp.Email}
	if pending.Email == "" {
		pending.Email = email
	}
	utilities.LogInfo("account %s registered, awaiting confirmation", pending.UserID)
	return pending, nil
}

// VerifySession checks an access token and returns the identity it carries.
func (c *Client) VerifySession(ctx context.Context, accessToken string) (models.User, error) {
	const op = "firebase.VerifySession"

	if accessToken == "" {
		return models.User{}, apperrors.E(apperrors.KindSessionMissing, op, nil)
	}
	if c.tokens == nil {
		return models.User{}, apperrors.E(apperrors.KindInternal, op, errors.New("token verification is not configured"))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	token, err := c.tokens.VerifyIDTokenAndCheckRevoked(ctx, accessToken)
	if err != nil {
		kind := Classify(err)
		if kind == apperrors.KindInternal {
			// anything the SDK cannot explain is a token it refuses
			kind = apperrors.KindSessionInvalid
		}
		return models.User{}, apperrors.E(kind, op, err)
	}
	if token.UID == "" {
		return models.User{}, apperrors.E(apperrors.KindSessionInvalid, op, errors.New("token has no subject"))
	}

	email, _ := token.Claims["email"].(string)
	return models.User{ID: token.UID, Email: email}, nil
}

// SignOut revokes every refresh token issued to the user.
func (c *Client) SignOut(ctx context.Context, userID string) error {
	const op = "firebase.SignOut"

	if userID == "" {
		return apperrors.E(apperrors.KindSessionMissing, op, nil)
	}
	if c.tokens == nil {
		return apperrors.E(apperrors.KindInternal, op, errors.New("token revocation is not configured"))
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.tokens.RevokeRefreshTokens(ctx, userID); err != nil {
		return wrap(op, err)
	}
	return nil
}

func (c *Client) sessionFrom(resp *TokenResponse) *models.Session {
	s := &models.Session{
		TokenPair: models.TokenPair{AccessToken: resp.IDToken, RefreshToken: resp.RefreshToken},
		User:      models.User{ID: resp.LocalID, Email: resp.Email},
	}
	if resp.ExpiresIn > 0 {
		s.ExpiresAt = c.now().Add(time.Duration(resp.ExpiresIn) * time.Second).UTC()
	}
	return s
}

// normalizeEmail accepts a bare address only, no display name.
func normalizeEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("email is required")
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw || addr.Name != "" {
		return "", errors.New("email is malformed")
	}
	return addr.Address, nil
}
