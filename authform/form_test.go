package authform

import (
	"context"
	"errors"
	"testing"

	"taskboard/apperrors"
	"taskboard/models"
	"taskboard/uistate"
)

type fakeAuth struct {
	signInErr  error
	signUpErr  error
	stored     *models.Session
	signInHook func()
	signInN    int
	signUpN    int
}

func (f *fakeAuth) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	f.signInN++
	if f.signInHook != nil {
		f.signInHook()
	}
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	f.stored = &models.Session{
		TokenPair: models.TokenPair{AccessToken: "access", RefreshToken: "refresh"},
		User:      models.User{ID: "uid-1", Email: email},
	}
	return f.stored, nil
}

func (f *fakeAuth) SignUp(ctx context.Context, email, password string) (*models.PendingConfirmation, error) {
	f.signUpN++
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	return &models.PendingConfirmation{UserID: "uid-2", Email: email}, nil
}

func (f *fakeAuth) GetSession(ctx context.Context) (*models.Session, error) {
	return f.stored, nil
}

type recordingPropagator struct {
	pairs []models.TokenPair
	err   error
}

func (p *recordingPropagator) Propagate(ctx context.Context, pair models.TokenPair) error {
	p.pairs = append(p.pairs, pair)
	return p.err
}

func TestSignInPropagatesAndNavigates(t *testing.T) {
	t.Parallel()

	auth := &fakeAuth{}
	prop := &recordingPropagator{}
	form := New(auth, prop)

	res, err := form.SignIn(context.Background(), "a@example.com", "secret")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if res.State != uistate.Succeeded || res.Redirect != "/dashboard" || !res.FullNavigation {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(prop.pairs) != 1 || prop.pairs[0].AccessToken != "access" || prop.pairs[0].RefreshToken != "refresh" {
		t.Fatalf("propagated %+v, want the stored pair once", prop.pairs)
	}
}

func TestSignInFailureShowsMessage(t *testing.T) {
	t.Parallel()

	auth := &fakeAuth{signInErr: apperrors.E(apperrors.KindInvalidCredentials, "fake", nil)}
	prop := &recordingPropagator{}
	form := New(auth, prop)

	res, err := form.SignIn(context.Background(), "a@example.com", "wrong")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if res.State != uistate.Failed || res.Message != apperrors.Message(auth.signInErr) {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !apperrors.IsKind(res.Err, apperrors.KindInvalidCredentials) {
		t.Fatalf("res.Err = %v, want invalid_credentials", res.Err)
	}
	if len(prop.pairs) != 0 {
		t.Fatal("failed sign-in must not propagate anything")
	}
}

type sessionlessAuth struct{ fakeAuth }

func (a *sessionlessAuth) GetSession(ctx context.Context) (*models.Session, error) {
	return nil, nil
}

func TestSignInWithoutStoredSession(t *testing.T) {
	t.Parallel()

	form := New(&sessionlessAuth{}, &recordingPropagator{})
	res, err := form.SignIn(context.Background(), "a@example.com", "secret")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if res.State != uistate.Failed || res.Message != MsgSessionMissing {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestSignInPropagationFailure(t *testing.T) {
	t.Parallel()

	prop := &recordingPropagator{err: apperrors.E(apperrors.KindSessionInvalid, "fake", nil)}
	res, err := New(&fakeAuth{}, prop).SignIn(context.Background(), "a@example.com", "secret")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if res.State != uistate.Failed || res.Redirect != "" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestSignUpNeverSignsIn(t *testing.T) {
	t.Parallel()

	auth := &fakeAuth{}
	prop := &recordingPropagator{}
	res, err := New(auth, prop).SignUp(context.Background(), "b@example.com", "secret1")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if res.State != uistate.Succeeded || res.Message != MsgCheckEmail || res.Redirect != "" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if auth.signInN != 0 || len(prop.pairs) != 0 {
		t.Fatal("sign-up must not sign in or propagate")
	}
	if res.Pending == nil || res.Pending.Email != "b@example.com" {
		t.Fatalf("Pending = %+v, want the confirmation", res.Pending)
	}
}

func TestSignUpWeakPassword(t *testing.T) {
	t.Parallel()

	auth := &fakeAuth{signUpErr: apperrors.E(apperrors.KindWeakPassword, "fake", errors.New("too short"))}
	res, err := New(auth, &recordingPropagator{}).SignUp(context.Background(), "b@example.com", "123")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}
	if res.State != uistate.Failed || !apperrors.IsKind(res.Err, apperrors.KindWeakPassword) {
		t.Fatalf("unexpected result: %+v", res)
	}
	if auth.stored != nil {
		t.Fatal("no session may be stored after a failed sign-up")
	}
}

func TestBusyFormRejectsSecondAction(t *testing.T) {
	t.Parallel()

	auth := &fakeAuth{}
	form := New(auth, &recordingPropagator{})
	auth.signInHook = func() {
		if _, err := form.SignUp(context.Background(), "b@example.com", "secret1"); !errors.Is(err, uistate.ErrBusy) {
			t.Errorf("SignUp() during sign-in error = %v, want ErrBusy", err)
		}
	}

	if _, err := form.SignIn(context.Background(), "a@example.com", "secret"); err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if auth.signUpN != 0 {
		t.Fatal("rejected sign-up reached the provider")
	}
}

func TestCloseDiscardsLateResult(t *testing.T) {
	t.Parallel()

	auth := &fakeAuth{}
	prop := &recordingPropagator{}
	form := New(auth, prop)
	auth.signInHook = form.Close

	_, err := form.SignIn(context.Background(), "a@example.com", "secret")
	if !errors.Is(err, uistate.ErrClosed) {
		t.Fatalf("SignIn() error = %v, want ErrClosed", err)
	}
	if len(prop.pairs) != 0 {
		t.Fatal("a closed form must not propagate its session")
	}
}
