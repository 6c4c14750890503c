package automation

import (
	"time"

	"easyapply/internal/model"
)

// Tracker owns the counters and state of one run and emits a snapshot on every change.
type Tracker struct {
	RunID    string
	Account  string
	Counters model.RunCounters
	State    model.RunState

	reporter Reporter
	now      func() time.Time
	last     model.StatusSnapshot
}

func NewTracker(runID, account string, maxApplications int, reporter Reporter) *Tracker {
	if reporter == nil {
		reporter = Fanout(nil)
	}
	return &Tracker{
		RunID:    runID,
		Account:  account,
		Counters: model.NewRunCounters(maxApplications),
		reporter: reporter,
		now:      time.Now,
	}
}

// Emit reports the current counters and state with the given status and message.
func (t *Tracker) Emit(status, message string) {
	s := model.StatusSnapshot{
		RunID:           t.RunID,
		Account:         t.Account,
		Status:          status,
		Message:         message,
		State:           t.State,
		Counters:        t.Counters,
		ProgressPercent: t.Counters.ProgressPercent(),
		Finished:        t.State == model.StateTerminated,
		UpdatedAt:       t.now().UTC().Format(time.RFC3339),
	}
	t.last = s
	func() {
		defer func() { _ = recover() }()
		t.reporter.Report(s)
	}()
}

// Transition moves the run to next and reports it. An illegal move is reported and refused.
func (t *Tracker) Transition(next model.RunState, message string) error {
	if err := model.TransitionRunState(&t.State, next); err != nil {
		t.Emit(model.StatusError, err.Error())
		return err
	}
	t.Emit(model.StatusRunning, message)
	return nil
}

func (t *Tracker) Last() model.StatusSnapshot {
	return t.last
}
