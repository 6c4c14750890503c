package ledger

import (
	"fmt"
	"strings"

	"easyapply/internal/model"
	"easyapply/internal/runstore"
)

// Store is one account's ledger file. Every call reloads from disk so edits made
// by another writer between calls are observed.
type Store struct {
	path string
}

func NewStore(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("ledger path is required")
	}
	return &Store{path: path}, nil
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) All() []model.JobSummary {
	return Load(s.path)
}

func (s *Store) IsProcessed(job model.JobSummary) bool {
	return Contains(Load(s.path), job)
}

func (s *Store) Record(job model.JobSummary) (UpsertAction, error) {
	entries, action := Upsert(Load(s.path), job)
	if err := Save(s.path, entries); err != nil {
		return action, fmt.Errorf("save ledger: %w", err)
	}
	return action, nil
}

// MarkApplied flags an existing entry as applied. It never adds entries and
// reports false when nothing matched.
func (s *Store) MarkApplied(job model.JobSummary) (bool, error) {
	entries := Load(s.path)
	idx := Find(entries, job)
	if idx == NotFound {
		return false, nil
	}
	entries[idx].SetApplied(true)
	if err := Save(s.path, entries); err != nil {
		return false, fmt.Errorf("save ledger: %w", err)
	}
	return true, nil
}

// MarkAppliedLocked is MarkApplied under the account lock, so the edit cannot
// interleave with a run's load and save of the same file. It fails with
// runstore.ErrAccountLocked while a run holds the account.
func (s *Store) MarkAppliedLocked(locksDir, username string, job model.JobSummary) (bool, error) {
	lock, err := runstore.AcquireAccountLock(locksDir, username, "mark-applied")
	if err != nil {
		return false, err
	}
	defer func() {
		_ = lock.Release()
	}()
	return s.MarkApplied(job)
}

// Stats summarizes a ledger for status views.
type Stats struct {
	Total       int    `json:"total"`
	Applied     int    `json:"applied"`
	NotApplied  int    `json:"not_applied"`
	LastApplied string `json:"last_applied,omitempty"`
}

func Summarize(entries []model.JobSummary) Stats {
	st := Stats{Total: len(entries)}
	for _, e := range entries {
		if e.Applied() {
			st.Applied++
			if e.AppliedDate > st.LastApplied {
				st.LastApplied = e.AppliedDate
			}
			continue
		}
		st.NotApplied++
	}
	return st
}
