package runstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const accountLockOwnerFile = "owner.json"

var ErrAccountLocked = errors.New("account is locked")

// AccountLock guards one account's ledger against a second concurrent run,
// including runs started by another process.
type AccountLock struct {
	lockDir string
}

type accountLockOwner struct {
	PID       int    `json:"pid"`
	RunID     string `json:"run_id,omitempty"`
	CreatedAt string `json:"created_at"`
	Hostname  string `json:"hostname,omitempty"`
}

func AcquireAccountLock(locksDir, username, runID string) (AccountLock, error) {
	target := strings.TrimSpace(locksDir)
	if target == "" {
		return AccountLock{}, fmt.Errorf("locks directory is required")
	}
	if err := Mkdir(target); err != nil {
		return AccountLock{}, err
	}

	token := AccountToken(username)
	lockDir := filepath.Join(target, token+".lock")
	err := os.Mkdir(lockDir, 0o755)
	if os.IsExist(err) && clearStaleLock(lockDir) {
		err = os.Mkdir(lockDir, 0o755)
	}
	if err != nil {
		if os.IsExist(err) {
			var owner accountLockOwner
			if readErr := ReadJSON(filepath.Join(lockDir, accountLockOwnerFile), &owner); readErr == nil && owner.PID > 0 && owner.CreatedAt != "" {
				return AccountLock{}, fmt.Errorf(
					"%w: %s (pid=%d run_id=%s created_at=%s host=%s)",
					ErrAccountLocked, token, owner.PID, owner.RunID, owner.CreatedAt, owner.Hostname,
				)
			}
			return AccountLock{}, fmt.Errorf("%w: %s", ErrAccountLocked, token)
		}
		return AccountLock{}, fmt.Errorf("acquire account lock for %s: %w", token, err)
	}

	owner := accountLockOwner{
		PID:       os.Getpid(),
		RunID:     runID,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Hostname:  hostnameOrUnknown(),
	}
	if err := WriteJSON(filepath.Join(lockDir, accountLockOwnerFile), owner); err != nil {
		_ = os.RemoveAll(lockDir)
		return AccountLock{}, fmt.Errorf("write account lock owner for %s: %w", token, err)
	}

	return AccountLock{lockDir: lockDir}, nil
}

func (l AccountLock) Release() error {
	if strings.TrimSpace(l.lockDir) == "" {
		return nil
	}
	if err := os.RemoveAll(l.lockDir); err != nil {
		return fmt.Errorf("release account lock %s: %w", l.lockDir, err)
	}
	return nil
}

// clearStaleLock removes lockDir when its owner ran on this host and is no longer
// alive. Locks from other hosts, or without a readable owner, are left alone.
func clearStaleLock(lockDir string) bool {
	var owner accountLockOwner
	if err := ReadJSON(filepath.Join(lockDir, accountLockOwnerFile), &owner); err != nil {
		return false
	}
	if owner.PID <= 0 || owner.Hostname != hostnameOrUnknown() || processAlive(owner.PID) {
		return false
	}
	return os.RemoveAll(lockDir) == nil
}

func hostnameOrUnknown() string {
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	host = strings.TrimSpace(host)
	if host == "" {
		return "unknown"
	}
	return host
}
