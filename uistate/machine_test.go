package uistate

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestMachineRejectsSecondSubmission(t *testing.T) {
	t.Parallel()

	var m Machine
	if _, err := m.Begin(context.Background()); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if !m.Snapshot().Busy() {
		t.Fatal("expected machine to be busy")
	}
	if _, err := m.Begin(context.Background()); !errors.Is(err, ErrBusy) {
		t.Fatalf("second Begin() error = %v, want ErrBusy", err)
	}

	if !m.Fail("wrong password") {
		t.Fatal("Fail() discarded the outcome")
	}
	snap := m.Snapshot()
	if snap.State != Failed || snap.Message != "wrong password" {
		t.Fatalf("snapshot = %+v, want failed with message", snap)
	}

	if _, err := m.Begin(context.Background()); err != nil {
		t.Fatalf("Begin() after failure error = %v", err)
	}
	if !m.Succeed("", "/dashboard") {
		t.Fatal("Succeed() discarded the outcome")
	}
	if got := m.Snapshot(); got.State != Succeeded || got.Redirect != "/dashboard" {
		t.Fatalf("snapshot = %+v, want succeeded with redirect", got)
	}
}

func TestMachineCloseDiscardsResults(t *testing.T) {
	t.Parallel()

	var m Machine
	ctx, err := m.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	m.Close()

	if ctx.Err() == nil {
		t.Fatal("expected operation context to be canceled on Close")
	}
	if m.Succeed("done", "/dashboard") {
		t.Fatal("Succeed() after Close must be discarded")
	}
	if got := m.Snapshot(); got.State != Submitting {
		t.Fatalf("state = %v, want it frozen at submitting", got.State)
	}
	if _, err := m.Begin(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("Begin() after Close error = %v, want ErrClosed", err)
	}
}

func TestMachineOutcomeWithoutBegin(t *testing.T) {
	t.Parallel()

	var m Machine
	if m.Fail("stray") {
		t.Fatal("outcome without Begin must be ignored")
	}
	if m.Snapshot().State != Idle {
		t.Fatal("expected machine to stay idle")
	}
}

func TestMachineConcurrentBegin(t *testing.T) {
	t.Parallel()

	var (
		m     Machine
		wg    sync.WaitGroup
		mu    sync.Mutex
		began int
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Begin(context.Background()); err == nil {
				mu.Lock()
				began++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if began != 1 {
		t.Fatalf("%d submissions began, want exactly 1", began)
	}
}
