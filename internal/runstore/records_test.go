package runstore

import (
	"os"
	"path/filepath"
	"testing"

	"easyapply/internal/model"
)

func TestRunRecords_SaveListNewestFirst(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "runs")

	older := RunRecord{RunID: "a", Account: "jane", StartedAt: "2026-01-01T10:00:00Z", Status: model.StatusCompleted}
	newer := RunRecord{RunID: "b", Account: "jane", StartedAt: "2026-01-02T10:00:00Z", Status: model.StatusRunning}
	newer.Counters.ApplicationsSubmitted = 3

	for _, rec := range []RunRecord{older, newer} {
		if err := SaveRunRecord(dir, rec); err != nil {
			t.Fatalf("save %s: %v", rec.RunID, err)
		}
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o644); err != nil {
		t.Fatalf("write broken record: %v", err)
	}

	recs, err := ListRunRecords(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].RunID != "b" || recs[0].Counters.ApplicationsSubmitted != 3 {
		t.Fatalf("unexpected first record: %+v", recs[0])
	}

	loaded, err := LoadRunRecord(dir, "a")
	if err != nil || loaded.Status != model.StatusCompleted {
		t.Fatalf("load a: %+v %v", loaded, err)
	}
}

func TestListRunRecords_MissingDir(t *testing.T) {
	recs, err := ListRunRecords(filepath.Join(t.TempDir(), "absent"))
	if err != nil || len(recs) != 0 {
		t.Fatalf("expected empty list, got %v %v", recs, err)
	}
}
