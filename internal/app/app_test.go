package app

import "testing"

func TestCloseIsIdempotent(t *testing.T) {
	calls := 0
	a := &App{dbCleanup: func() { calls++ }}

	if err := a.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second Close() = %v", err)
	}
	if calls != 1 {
		t.Errorf("cleanup ran %d times, want 1", calls)
	}
}

func TestCloseOnPartialApp(t *testing.T) {
	// Setup defers Close on failure, so it must tolerate an App with
	// nothing initialized yet.
	a := &App{}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() on empty app = %v", err)
	}
}
