package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"podwatch/internal/testsupport"
)

func TestCLIStatusWithoutSession(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "no session")
	requireContains(t, out, "No cached job statuses")
}

func TestCLIStatusShowsInstalledSession(t *testing.T) {
	env := setupCLITestEnv(t)

	if err := env.watcher.SignIn(context.Background(), "a@example.com", "tok1", "device-1"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	out, _, err := runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "a@example.com")
}

func TestCLIJobsEmptyAndClearMiss(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"jobs"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("jobs: %v", err)
	}
	requireContains(t, out, "No cached job statuses")

	out, _, err = runCLI(t, []string{"jobs", "clear", "conversion", "a1"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("jobs clear: %v", err)
	}
	requireContains(t, out, "No cached status for conversion job a1")

	if _, _, err := runCLI(t, []string{"jobs", "show", "conversion", "a1"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected error for missing job")
	}
	if _, _, err := runCLI(t, []string{"jobs", "--kind", "mixtape"}, env.socketPath, env.configPath); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestCLILoginInstallsSession(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/users/login" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok1", "email": "a@example.com"})
	}))
	t.Cleanup(backend.Close)

	env := setupCLITestEnv(t, testsupport.WithBaseURL(backend.URL))

	out, _, err := runCLI(t, []string{"login", "--email", "a@example.com", "--password", "hunter2"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	requireContains(t, out, "Signed in as a@example.com")

	out, _, err = runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status after login: %v", err)
	}
	requireContains(t, out, "a@example.com")

	out, _, err = runCLI(t, []string{"logout"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	requireContains(t, out, "Signed out")

	out, _, err = runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status after logout: %v", err)
	}
	requireContains(t, out, "no session")
}

func TestCLITestNotifyUnconfigured(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"test-notify"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "ntfy topic not configured")
	requireContains(t, out, "Set notifications.ntfy_topic")
}

func TestCLIVersionReportsWatcher(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"version"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	requireContains(t, out, "podwatch 0.1.0")
	requireContains(t, out, "watcher 0.1.0")
}
