package schedule

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"easyapply/internal/workspace"
)

func addAccount(t *testing.T, cfg, name, spec string, active bool) {
	t.Helper()
	_, err := workspace.AddAccount(workspace.AddAccountOptions{
		ConfigPath: cfg,
		Name:       name,
		Username:   name + "@example.com",
		Keyword:    "go",
		Schedule:   spec,
		Active:     &active,
	})
	if err != nil {
		t.Fatalf("add account %s failed: %v", name, err)
	}
}

func TestLoadRegistersScheduledActiveAccounts(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "accounts.json")
	addAccount(t, cfg, "daily", "0 9 * * *", true)
	addAccount(t, cfg, "hourly", "@every 1h", true)
	addAccount(t, cfg, "manual", "", true)
	addAccount(t, cfg, "paused", "@every 1h", false)
	addAccount(t, cfg, "broken", "not a cron spec", true)

	s := New(cfg, func(workspace.Account) (string, error) { return "", nil }, nil)
	n, err := s.Load()
	if err == nil || !strings.Contains(err.Error(), "broken") {
		t.Fatalf("expected error naming the broken account, got %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 scheduled accounts, got %d", n)
	}

	s.Start()
	defer func() { _ = s.Shutdown(context.Background()) }()
	entries := s.Entries()
	if len(entries) != 2 || entries[0].Account != "daily" || entries[1].Account != "hourly" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if entries[1].Next.IsZero() {
		t.Fatal("expected next firing time once started")
	}
}

func TestLoadWithoutAccounts(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "accounts.json"), nil, nil)
	n, err := s.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no entries, got %d", n)
	}
}

func TestFireStartsFreshAccount(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "accounts.json")
	addAccount(t, cfg, "main", "@every 1h", true)

	started := make(chan workspace.Account, 1)
	s := New(cfg, func(a workspace.Account) (string, error) {
		started <- a
		return "run-1", nil
	}, nil)

	// Edit after load: the firing must see the new keyword.
	if _, err := workspace.AddAccount(workspace.AddAccountOptions{
		ConfigPath: cfg, Name: "main", Username: "main@example.com", Keyword: "rust", Schedule: "@every 1h", ReplaceIfNameExists: true,
	}); err != nil {
		t.Fatalf("replace account failed: %v", err)
	}
	s.fire("main")

	select {
	case a := <-started:
		if a.Keyword != "rust" {
			t.Fatalf("expected fresh account, got keyword %q", a.Keyword)
		}
	case <-time.After(time.Second):
		t.Fatal("run was not started")
	}

	s.fire("nobody")
	if len(started) != 0 {
		t.Fatal("unknown account must not start a run")
	}
}

func TestValidate(t *testing.T) {
	for _, spec := range []string{"0 9 * * 1-5", "@daily", "@every 90m"} {
		if err := Validate(spec); err != nil {
			t.Fatalf("expected %q to be valid: %v", spec, err)
		}
	}
	if err := Validate("every morning"); err == nil {
		t.Fatal("expected error for free-form schedule")
	}
}
