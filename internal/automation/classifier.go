package automation

import (
	"fmt"
	"time"

	"easyapply/internal/ledger"
	"easyapply/internal/model"
)

// LedgerStore is the slice of the ledger a run needs.
type LedgerStore interface {
	IsProcessed(job model.JobSummary) bool
	Record(job model.JobSummary) (ledger.UpsertAction, error)
}

// Classified is the effect of one listing on the run.
type Classified struct {
	Outcome      model.Outcome
	ShortCircuit bool
	Ledger       ledger.UpsertAction // empty when nothing was written
}

// Classify maps an apply result to its outcome.
func Classify(r model.ApplyResult) model.Outcome {
	return model.Classify(r)
}

type Classifier struct {
	store LedgerStore
	now   func() time.Time
}

func NewClassifier(store LedgerStore) *Classifier {
	return &Classifier{store: store, now: time.Now}
}

// PreCheck reports whether a job must be skipped without opening it: the card
// carries the "applied" ribbon, or the ledger already holds its identity.
// A ledger entry counts even when its apply_status is false.
func (c *Classifier) PreCheck(job model.JobSummary, appliedRibbon bool) (string, bool) {
	if appliedRibbon {
		return "card marked as applied", true
	}
	if c.store != nil && c.store.IsProcessed(job) {
		return "job already in ledger", true
	}
	return "", false
}

// ShortCircuit counts a pre-checked job as already applied. Nothing is written.
func (c *Classifier) ShortCircuit(counters *model.RunCounters) Classified {
	counters.Record(model.OutcomeAlreadyApplied)
	return Classified{Outcome: model.OutcomeAlreadyApplied, ShortCircuit: true}
}

// Record applies the counter effect of an apply attempt, then persists the job.
// The counter effect stands even when the ledger write fails.
func (c *Classifier) Record(counters *model.RunCounters, job model.JobSummary, result model.ApplyResult) (Classified, error) {
	outcome := Classify(result)
	counters.Record(outcome)
	out := Classified{Outcome: outcome}

	if result.JobURL != "" {
		job.JobURL = result.JobURL
	}
	if result.PublishDate != "" {
		job.PublishDate = result.PublishDate
	}
	switch outcome {
	case model.OutcomeApplied:
		job.SetApplied(true)
		job.AppliedDate = c.now().UTC().Format(time.RFC3339)
	case model.OutcomeAlreadyApplied:
		job.SetApplied(true)
	case model.OutcomeSkipped:
		job.SetApplied(false)
	default:
		return out, nil
	}

	if c.store == nil {
		return out, nil
	}
	action, err := c.store.Record(job)
	if err != nil {
		return out, fmt.Errorf("record %q at %q: %w", job.CardTitle, job.CompanyName, err)
	}
	out.Ledger = action
	return out, nil
}
