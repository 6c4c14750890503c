package runstore

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestAcquireAccountLock_BlocksConcurrentAcquire(t *testing.T) {
	locksDir := t.TempDir()

	lock, err := AcquireAccountLock(locksDir, "jane@example.com", "run-1")
	if err != nil {
		t.Fatalf("acquire first lock: %v", err)
	}
	defer func() {
		_ = lock.Release()
	}()

	_, err = AcquireAccountLock(locksDir, "JANE@example.com", "run-2")
	if err == nil {
		t.Fatalf("expected second acquire to fail")
	}
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}
	if !strings.Contains(err.Error(), "run_id=run-1") {
		t.Fatalf("expected lock owner in error, got %v", err)
	}

	other, err := AcquireAccountLock(locksDir, "someone-else", "run-3")
	if err != nil {
		t.Fatalf("different account should not be blocked: %v", err)
	}
	_ = other.Release()

	if err := lock.Release(); err != nil {
		t.Fatalf("release lock: %v", err)
	}

	lock2, err := AcquireAccountLock(locksDir, "jane@example.com", "run-4")
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	if err := lock2.Release(); err != nil {
		t.Fatalf("release second lock: %v", err)
	}
}

func exitedPID(t *testing.T) int {
	t.Helper()
	cmd := exec.Command(os.Args[0], "-test.run=^$")
	if err := cmd.Run(); err != nil {
		t.Fatalf("run helper process: %v", err)
	}
	return cmd.Process.Pid
}

func writeLockOwner(t *testing.T, locksDir, username string, owner accountLockOwner) {
	t.Helper()
	lockDir := filepath.Join(locksDir, AccountToken(username)+".lock")
	if err := os.MkdirAll(lockDir, 0o755); err != nil {
		t.Fatalf("create lock dir: %v", err)
	}
	if err := WriteJSON(filepath.Join(lockDir, accountLockOwnerFile), owner); err != nil {
		t.Fatalf("write lock owner: %v", err)
	}
}

func TestAcquireAccountLock_ReclaimsLockOfDeadProcess(t *testing.T) {
	locksDir := t.TempDir()
	writeLockOwner(t, locksDir, "jane@example.com", accountLockOwner{
		PID:       exitedPID(t),
		RunID:     "killed-run",
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Hostname:  hostnameOrUnknown(),
	})

	lock, err := AcquireAccountLock(locksDir, "jane@example.com", "run-2")
	if err != nil {
		t.Fatalf("expected stale lock to be reclaimed, got %v", err)
	}
	defer func() {
		_ = lock.Release()
	}()

	var owner accountLockOwner
	if err := ReadJSON(filepath.Join(lock.lockDir, accountLockOwnerFile), &owner); err != nil {
		t.Fatalf("read new owner: %v", err)
	}
	if owner.RunID != "run-2" || owner.PID != os.Getpid() {
		t.Fatalf("unexpected lock owner after reclaim: %+v", owner)
	}
}

func TestAcquireAccountLock_KeepsLockFromOtherHost(t *testing.T) {
	locksDir := t.TempDir()
	writeLockOwner(t, locksDir, "jane@example.com", accountLockOwner{
		PID:       exitedPID(t),
		RunID:     "remote-run",
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Hostname:  hostnameOrUnknown() + "-elsewhere",
	})

	_, err := AcquireAccountLock(locksDir, "jane@example.com", "run-2")
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked for another host's lock, got %v", err)
	}
}
