// Package uistate models the lifecycle of a user-facing form or list: one
// operation in flight at a time, and no updates after the view is gone.
package uistate

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrBusy rejects a submission while another is in flight.
	ErrBusy = errors.New("an operation is already in progress")
	// ErrClosed rejects work on a closed machine.
	ErrClosed = errors.New("view is closed")
)

type State int

const (
	Idle State = iota
	Submitting
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "idle"
	}
}

// Snapshot is what a view renders.
type Snapshot struct {
	State    State
	Message  string
	Redirect string
}

// Busy reports whether controls should be disabled.
func (s Snapshot) Busy() bool { return s.State == Submitting }

// Machine is safe for concurrent use.
type Machine struct {
	mu     sync.Mutex
	snap   Snapshot
	closed bool
	cancel context.CancelFunc
}

// Begin moves the machine to Submitting. The returned context is canceled
// when the machine is closed, and the operation must report its outcome
// through Succeed or Fail.
func (m *Machine) Begin(ctx context.Context) (context.Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	if m.snap.State == Submitting {
		return nil, ErrBusy
	}
	opCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.snap = Snapshot{State: Submitting}
	return opCtx, nil
}

// Succeed records a successful outcome. It returns false when the outcome
// was discarded because the machine was closed meanwhile.
func (m *Machine) Succeed(message, redirect string) bool {
	return m.finish(Snapshot{State: Succeeded, Message: message, Redirect: redirect})
}

// Fail records a failed outcome with the message to show.
func (m *Machine) Fail(message string) bool {
	return m.finish(Snapshot{State: Failed, Message: message})
}

func (m *Machine) finish(next Snapshot) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed || m.snap.State != Submitting {
		return false
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.snap = next
	return true
}

// Close discards any in-flight outcome and cancels its context.
func (m *Machine) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func (m *Machine) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap
}
