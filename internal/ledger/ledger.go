// Package ledger keeps the per-account list of jobs a run has already handled.
package ledger

import (
	"encoding/json"
	"os"

	"easyapply/internal/model"
	"easyapply/internal/runstore"
)

// NotFound is returned by Find when no entry shares the job's identity.
const NotFound = -1

type UpsertAction string

const (
	Added   UpsertAction = "added"
	Updated UpsertAction = "updated"
)

// Find returns the index of the first entry with the same identity as job.
func Find(entries []model.JobSummary, job model.JobSummary) int {
	for i := range entries {
		if model.SameJob(entries[i], job) {
			return i
		}
	}
	return NotFound
}

func Contains(entries []model.JobSummary, job model.JobSummary) bool {
	return Find(entries, job) != NotFound
}

// Upsert replaces the matching entry wholesale, or appends job when none matches.
func Upsert(entries []model.JobSummary, job model.JobSummary) ([]model.JobSummary, UpsertAction) {
	if idx := Find(entries, job); idx != NotFound {
		entries[idx] = job
		return entries, Updated
	}
	return append(entries, job), Added
}

// Load never fails. A missing, unreadable or malformed file yields an empty ledger.
func Load(path string) []model.JobSummary {
	data, err := os.ReadFile(path)
	if err != nil {
		return []model.JobSummary{}
	}
	var entries []model.JobSummary
	if err := json.Unmarshal(data, &entries); err != nil || entries == nil {
		return []model.JobSummary{}
	}
	return entries
}

// Save overwrites path with the full list.
func Save(path string, entries []model.JobSummary) error {
	if entries == nil {
		entries = []model.JobSummary{}
	}
	return runstore.WriteJSON(path, entries)
}
