package runstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"easyapply/internal/model"
)

// RunRecord is the persisted summary of one run, written when the run starts and again when it ends.
type RunRecord struct {
	RunID      string            `json:"run_id"`
	Account    string            `json:"account"`
	Trigger    string            `json:"trigger,omitempty"`
	StartedAt  string            `json:"started_at"`
	FinishedAt string            `json:"finished_at,omitempty"`
	Status     string            `json:"status"`
	Reason     string            `json:"reason,omitempty"`
	Error      string            `json:"error,omitempty"`
	Counters   model.RunCounters `json:"counters"`
}

func RunRecordPath(runsDir, runID string) string {
	return filepath.Join(runsDir, runID+".json")
}

func SaveRunRecord(runsDir string, rec RunRecord) error {
	if strings.TrimSpace(rec.RunID) == "" {
		return fmt.Errorf("run id is required")
	}
	return WriteJSON(RunRecordPath(runsDir, rec.RunID), rec)
}

func LoadRunRecord(runsDir, runID string) (RunRecord, error) {
	var rec RunRecord
	if err := ReadJSON(RunRecordPath(runsDir, runID), &rec); err != nil {
		return RunRecord{}, err
	}
	return rec, nil
}

// ListRunRecords returns every readable record, newest first. Unreadable files are skipped.
func ListRunRecords(runsDir string) ([]RunRecord, error) {
	entries, err := os.ReadDir(runsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunRecord{}, nil
		}
		return nil, fmt.Errorf("read runs directory %s: %w", runsDir, err)
	}

	out := make([]RunRecord, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		var rec RunRecord
		if err := ReadJSON(filepath.Join(runsDir, e.Name()), &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartedAt == out[j].StartedAt {
			return out[i].RunID > out[j].RunID
		}
		return out[i].StartedAt > out[j].StartedAt
	})
	return out, nil
}
