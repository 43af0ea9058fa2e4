package watcher_test

import (
	"context"
	"testing"
	"time"

	"podwatch/internal/jobstore"
	"podwatch/internal/logging"
	"podwatch/internal/session"
	"podwatch/internal/testsupport"
	"podwatch/internal/watcher"
)

func newWatcher(t *testing.T) *watcher.Watcher {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	w, err := watcher.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("watcher.New: %v", err)
	}
	t.Cleanup(func() {
		w.Close()
	})
	return w
}

func TestWatcherStartRejectsSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, err := watcher.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("watcher.New: %v", err)
	}
	t.Cleanup(func() { first.Close() })

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}

	second, err := watcher.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("watcher.New second: %v", err)
	}
	t.Cleanup(func() { second.Close() })

	if err := second.Start(ctx); err == nil {
		t.Fatal("expected second instance to fail on the lock")
	}
}

func TestWatcherSignInSignOutRoundTrip(t *testing.T) {
	w := newWatcher(t)
	ctx := context.Background()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := w.SignIn(ctx, "a@example.com", "tok1", "device-1"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	status := w.Status(ctx)
	if !status.SignedIn || status.Email != "a@example.com" {
		t.Fatalf("expected signed-in status, got %#v", status)
	}

	if err := w.SignOut(ctx); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	status = w.Status(ctx)
	if status.SignedIn || status.Email != "" {
		t.Fatalf("expected signed-out status, got %#v", status)
	}
}

func TestWatcherSignInRequiresToken(t *testing.T) {
	w := newWatcher(t)
	if err := w.SignIn(context.Background(), "a@example.com", "", ""); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestWatcherRestoresPersistedSession(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	store, err := session.OpenStore(cfg.SessionDBPath())
	if err != nil {
		t.Fatalf("session.OpenStore: %v", err)
	}
	saved := session.Session{Email: "a@example.com", Token: "tok1", DeviceID: "device-1", CreatedAt: time.Now().UTC()}
	if err := store.Save(ctx, saved); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	w, err := watcher.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("watcher.New: %v", err)
	}
	t.Cleanup(func() { w.Close() })

	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	status := w.Status(ctx)
	if !status.SignedIn || status.Email != "a@example.com" {
		t.Fatalf("expected restored session, got %#v", status)
	}
}

func TestWatcherJobQueries(t *testing.T) {
	w := newWatcher(t)
	ctx := context.Background()
	if err := w.SignIn(ctx, "a@example.com", "tok1", ""); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	if jobs := w.Jobs(nil); len(jobs) != 0 {
		t.Fatalf("expected empty cache, got %d", len(jobs))
	}
	if _, ok := w.Job(jobstore.KindConversion, "missing"); ok {
		t.Fatal("expected lookup miss")
	}
	if w.ClearJob(jobstore.KindConversion, "missing") {
		t.Fatal("expected clear of absent job to report false")
	}
}

func TestWatcherTestNotificationUnconfigured(t *testing.T) {
	w := newWatcher(t)
	sent, message, err := w.TestNotification(context.Background())
	if err != nil {
		t.Fatalf("TestNotification: %v", err)
	}
	if sent || message == "" {
		t.Fatalf("expected unsent with explanation, got sent=%v message=%q", sent, message)
	}
}
