package cli

import (
	"errors"
	"path/filepath"
	"testing"

	"easyapply/internal/ledger"
	"easyapply/internal/model"
	"easyapply/internal/runstore"
)

func seedLedger(t *testing.T, dataDir string) (string, []model.JobSummary) {
	t.Helper()
	jobs := []model.JobSummary{
		{CardTitle: "Go Dev", CompanyName: "Acme", Location: "Remote", EmploymentType: "Full-time", CardSummary: "a"},
		{CardTitle: "SRE", CompanyName: "Globex", Location: "Austin, TX", EmploymentType: "Contract", CardSummary: "b"},
	}
	jobs[0].SetApplied(true)
	jobs[1].SetApplied(false)
	path := runstore.LedgerPath(filepath.Join(dataDir, "ledgers"), "jane@example.com")
	if err := ledger.Save(path, jobs); err != nil {
		t.Fatal(err)
	}
	return path, jobs
}

func TestJobsRequiresTarget(t *testing.T) {
	if err := Run([]string{"jobs", "--config", filepath.Join(t.TempDir(), "accounts.json")}); err == nil {
		t.Fatal("expected jobs to require --account or --username")
	}
}

func TestMarkAppliedByIndex(t *testing.T) {
	tmp := t.TempDir()
	dataDir := filepath.Join(tmp, "data")
	configPath := filepath.Join(tmp, "accounts.json")
	path, _ := seedLedger(t, dataDir)

	if err := Run([]string{"jobs", "--username", "jane@example.com", "--not-applied", "--config", configPath, "--data-dir", dataDir}); err != nil {
		t.Fatalf("jobs failed: %v", err)
	}
	if err := Run([]string{"mark-applied", "--username", "jane@example.com", "--index", "2", "--config", configPath, "--data-dir", dataDir}); err != nil {
		t.Fatalf("mark-applied failed: %v", err)
	}

	entries := ledger.Load(path)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if !entries[1].Applied() {
		t.Fatal("expected second entry marked applied")
	}

	if err := Run([]string{"mark-applied", "--username", "jane@example.com", "--index", "3", "--config", configPath, "--data-dir", dataDir}); err == nil {
		t.Fatal("expected out of range index to fail")
	}
}

func TestMarkAppliedByIdentityNeverAdds(t *testing.T) {
	tmp := t.TempDir()
	dataDir := filepath.Join(tmp, "data")
	configPath := filepath.Join(tmp, "accounts.json")
	path, _ := seedLedger(t, dataDir)

	if err := Run([]string{
		"mark-applied",
		"--username", "jane@example.com",
		"--title", "Unknown", "--company", "Initech",
		"--config", configPath, "--data-dir", dataDir,
	}); err != nil {
		t.Fatalf("mark-applied failed: %v", err)
	}
	if got := len(ledger.Load(path)); got != 2 {
		t.Fatalf("expected ledger unchanged at 2 entries, got %d", got)
	}

	if err := Run([]string{
		"mark-applied",
		"--username", "jane@example.com",
		"--title", "SRE", "--company", "Globex", "--location", "Austin, TX",
		"--employment-type", "Contract", "--summary", "b",
		"--config", configPath, "--data-dir", dataDir,
	}); err != nil {
		t.Fatalf("mark-applied failed: %v", err)
	}
	if !ledger.Load(path)[1].Applied() {
		t.Fatal("expected identity match to be marked applied")
	}
}

func TestMarkAppliedRefusedWhileAccountRunning(t *testing.T) {
	tmp := t.TempDir()
	dataDir := filepath.Join(tmp, "data")
	configPath := filepath.Join(tmp, "accounts.json")
	path, _ := seedLedger(t, dataDir)

	lock, err := runstore.AcquireAccountLock(runstore.LocksDir(dataDir), "jane@example.com", "run-1")
	if err != nil {
		t.Fatalf("acquire lock: %v", err)
	}
	args := []string{"mark-applied", "--username", "jane@example.com", "--index", "2", "--config", configPath, "--data-dir", dataDir}
	err = Run(args)
	if !errors.Is(err, runstore.ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}
	if ledger.Load(path)[1].Applied() {
		t.Fatal("ledger must not change while a run holds the account")
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("release lock: %v", err)
	}
	if err := Run(args); err != nil {
		t.Fatalf("mark-applied after release failed: %v", err)
	}
	if !ledger.Load(path)[1].Applied() {
		t.Fatal("expected second entry marked applied")
	}
}
