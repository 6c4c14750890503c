package ledger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"easyapply/internal/model"
	"easyapply/internal/runstore"
)

func TestStore_RecordAndIsProcessed(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "nested", "ledger.json"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	job := sampleJob("A")
	if store.IsProcessed(job) {
		t.Fatalf("fresh ledger should be empty")
	}
	job.SetApplied(false)
	action, err := store.Record(job)
	if err != nil || action != Added {
		t.Fatalf("record: action=%s err=%v", action, err)
	}
	if !store.IsProcessed(sampleJob("A")) {
		t.Fatalf("recorded job should be processed")
	}
	job.SetApplied(true)
	if action, err := store.Record(job); err != nil || action != Updated {
		t.Fatalf("re-record: action=%s err=%v", action, err)
	}
	if all := store.All(); len(all) != 1 || !all[0].Applied() {
		t.Fatalf("unexpected ledger: %+v", all)
	}
}

func TestStore_ReloadsBeforeEveryOperation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	store, _ := NewStore(path)
	if _, err := store.Record(sampleJob("A")); err != nil {
		t.Fatalf("record: %v", err)
	}

	// Another writer replaces the file between calls.
	if err := Save(path, []model.JobSummary{sampleJob("B")}); err != nil {
		t.Fatalf("external save: %v", err)
	}
	if store.IsProcessed(sampleJob("A")) {
		t.Fatalf("store should observe the external overwrite")
	}
	if _, err := store.Record(sampleJob("C")); err != nil {
		t.Fatalf("record: %v", err)
	}
	all := store.All()
	if len(all) != 2 || all[0].CardTitle != "B" || all[1].CardTitle != "C" {
		t.Fatalf("unexpected ledger after external edit: %+v", all)
	}
}

func TestStore_MalformedFileTreatedAsEmptyThenOverwritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	if err := os.WriteFile(path, []byte("]]]"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	store, _ := NewStore(path)
	if store.IsProcessed(sampleJob("A")) {
		t.Fatalf("malformed ledger should look empty")
	}
	if _, err := store.Record(sampleJob("A")); err != nil {
		t.Fatalf("record: %v", err)
	}
	if all := Load(path); len(all) != 1 {
		t.Fatalf("expected rewritten ledger with one entry, got %+v", all)
	}
}

func TestStore_MarkAppliedNeverAdds(t *testing.T) {
	store, _ := NewStore(filepath.Join(t.TempDir(), "ledger.json"))
	ok, err := store.MarkApplied(sampleJob("ghost"))
	if err != nil || ok {
		t.Fatalf("mark on missing entry: ok=%v err=%v", ok, err)
	}
	if len(store.All()) != 0 {
		t.Fatalf("mark-applied must not add entries")
	}

	skipped := sampleJob("A")
	skipped.SetApplied(false)
	if _, err := store.Record(skipped); err != nil {
		t.Fatalf("record: %v", err)
	}
	ok, err = store.MarkApplied(sampleJob("A"))
	if err != nil || !ok {
		t.Fatalf("mark existing: ok=%v err=%v", ok, err)
	}
	if !store.All()[0].Applied() {
		t.Fatalf("entry should be applied")
	}
}

func TestStore_MarkAppliedLockedRefusedWhileRunHoldsAccount(t *testing.T) {
	dir := t.TempDir()
	locksDir := filepath.Join(dir, "locks")
	store, _ := NewStore(filepath.Join(dir, "ledger.json"))

	skipped := sampleJob("A")
	skipped.SetApplied(false)
	if _, err := store.Record(skipped); err != nil {
		t.Fatalf("record: %v", err)
	}

	runLock, err := runstore.AcquireAccountLock(locksDir, "jane@example.com", "run-1")
	if err != nil {
		t.Fatalf("acquire run lock: %v", err)
	}

	// the run loads, the operator edit is attempted, then the run saves
	runView := store.All()
	ok, err := store.MarkAppliedLocked(locksDir, "jane@example.com", sampleJob("A"))
	if !errors.Is(err, runstore.ErrAccountLocked) || ok {
		t.Fatalf("expected ErrAccountLocked while run holds the account, got ok=%v err=%v", ok, err)
	}
	runView, _ = Upsert(runView, sampleJob("B"))
	if err := Save(store.Path(), runView); err != nil {
		t.Fatalf("run save: %v", err)
	}
	if err := runLock.Release(); err != nil {
		t.Fatalf("release run lock: %v", err)
	}

	ok, err = store.MarkAppliedLocked(locksDir, "jane@example.com", sampleJob("A"))
	if err != nil || !ok {
		t.Fatalf("mark after run finished: ok=%v err=%v", ok, err)
	}
	entries := store.All()
	if len(entries) != 2 || !entries[0].Applied() {
		t.Fatalf("expected A applied and B kept, got %+v", entries)
	}

	again, err := runstore.AcquireAccountLock(locksDir, "jane@example.com", "run-2")
	if err != nil {
		t.Fatalf("mark-applied must release the account lock: %v", err)
	}
	_ = again.Release()
}

func TestSummarize(t *testing.T) {
	a := sampleJob("A")
	a.SetApplied(true)
	a.AppliedDate = "2026-02-01T00:00:00Z"
	b := sampleJob("B")
	b.SetApplied(true)
	b.AppliedDate = "2026-03-01T00:00:00Z"
	c := sampleJob("C")

	st := Summarize([]model.JobSummary{a, b, c})
	if st.Total != 3 || st.Applied != 2 || st.NotApplied != 1 || st.LastApplied != b.AppliedDate {
		t.Fatalf("unexpected stats: %+v", st)
	}
}
