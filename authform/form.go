// Package authform drives the sign-in and sign-up form.
package authform

import (
	"context"
	"errors"

	"taskboard/apperrors"
	"taskboard/models"
	"taskboard/uistate"
)

const (
	MsgCheckEmail     = "Check your email for the confirmation link."
	MsgSessionMissing = "Session could not be created. Please try again."
)

// Authenticator is the client-side session adapter.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) (*models.Session, error)
	SignUp(ctx context.Context, email, password string) (*models.PendingConfirmation, error)
	GetSession(ctx context.Context) (*models.Session, error)
}

// Propagator hands a token pair to the server so it can set its cookies.
type Propagator interface {
	Propagate(ctx context.Context, pair models.TokenPair) error
}

// PropagatorFunc adapts a function to Propagator.
type PropagatorFunc func(ctx context.Context, pair models.TokenPair) error

func (f PropagatorFunc) Propagate(ctx context.Context, pair models.TokenPair) error {
	return f(ctx, pair)
}

// Result is the outcome of one submission.
type Result struct {
	uistate.Snapshot
	// FullNavigation asks the driver to load Redirect as a fresh request so
	// the server sees the new cookies.
	FullNavigation bool
	Session        *models.Session
	Pending        *models.PendingConfirmation
	Err            error
}

// Form shares one busy flag between its two actions.
type Form struct {
	auth    Authenticator
	prop    Propagator
	machine uistate.Machine
}

func New(auth Authenticator, prop Propagator) *Form {
	return &Form{auth: auth, prop: prop}
}

// SignIn signs in, re-reads the stored session and propagates it. The
// returned error is only set when the submission was not accepted
// (uistate.ErrBusy) or its outcome was discarded (uistate.ErrClosed).
func (f *Form) SignIn(ctx context.Context, email, password string) (Result, error) {
	ctx, err := f.machine.Begin(ctx)
	if err != nil {
		return Result{}, err
	}

	if _, err := f.auth.SignIn(ctx, email, password); err != nil {
		return f.fail(err, apperrors.Message(err))
	}

	s, err := f.auth.GetSession(ctx)
	if err != nil || !s.Valid() {
		cause := err
		if cause == nil {
			cause = errors.New("no session after sign-in")
		}
		return f.fail(apperrors.E(apperrors.KindSessionMissing, "authform.SignIn", cause), MsgSessionMissing)
	}

	if err := ctx.Err(); err != nil {
		return f.fail(err, apperrors.Message(err))
	}
	if err := f.prop.Propagate(ctx, s.TokenPair); err != nil {
		return f.fail(err, apperrors.Message(err))
	}

	if !f.machine.Succeed("", "/dashboard") {
		return Result{}, uistate.ErrClosed
	}
	return Result{Snapshot: f.machine.Snapshot(), FullNavigation: true, Session: s}, nil
}

// SignUp registers the account. No session exists until the address is
// confirmed, so there is nothing to propagate.
func (f *Form) SignUp(ctx context.Context, email, password string) (Result, error) {
	ctx, err := f.machine.Begin(ctx)
	if err != nil {
		return Result{}, err
	}

	pending, err := f.auth.SignUp(ctx, email, password)
	if err != nil {
		return f.fail(err, apperrors.Message(err))
	}

	if !f.machine.Succeed(MsgCheckEmail, "") {
		return Result{}, uistate.ErrClosed
	}
	return Result{Snapshot: f.machine.Snapshot(), Pending: pending}, nil
}

// Close models the form going away: later outcomes are dropped.
func (f *Form) Close() {
	f.machine.Close()
}

func (f *Form) Snapshot() uistate.Snapshot {
	return f.machine.Snapshot()
}

func (f *Form) fail(cause error, message string) (Result, error) {
	if !f.machine.Fail(message) {
		return Result{}, uistate.ErrClosed
	}
	return Result{Snapshot: f.machine.Snapshot(), Err: cause}, nil
}
