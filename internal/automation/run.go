package automation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"easyapply/internal/browser"
	"easyapply/internal/logging"
	"easyapply/internal/model"
)

type RunRequest struct {
	RunID           string
	Account         string
	Username        string
	Password        string
	Keyword         string
	Location        string
	MaxApplications int
	Filters         model.Filters
	PageWait        time.Duration
	JobPause        time.Duration
}

type RunDeps struct {
	Driver   browser.Driver
	Ledger   LedgerStore
	Reporter Reporter
	Log      *logging.Logger
}

// Result is the summary a run always returns, whether it completed or not.
type Result struct {
	Success               bool                 `json:"success"`
	Reason                string               `json:"reason,omitempty"`
	Error                 string               `json:"error,omitempty"`
	ApplicationsSubmitted int                  `json:"applications_submitted"`
	JobsProcessed         int                  `json:"jobs_processed"`
	AlreadyApplied        int                  `json:"already_applied"`
	JobSkipped            int                  `json:"job_skipped"`
	JobErrors             int                  `json:"job_errors"`
	Status                model.StatusSnapshot `json:"status"`
}

// Run logs in, searches, applies filters and then drives the controller to the end.
// It never panics and never returns an error: failures are folded into the Result.
func Run(ctx context.Context, req RunRequest, deps RunDeps) (res Result) {
	log := deps.Log
	if log == nil {
		log = logging.Nop()
	}
	log = log.With("run_id", req.RunID, "account", req.Account)

	reporters := Fanout{LogReporter{Log: log}}
	if deps.Reporter != nil {
		reporters = append(reporters, deps.Reporter)
	}
	tr := NewTracker(req.RunID, req.Account, req.MaxApplications, reporters)

	defer func() {
		if r := recover(); r != nil {
			log.Error("run panicked", "panic", fmt.Sprint(r))
			tr.State = model.StateTerminated
			tr.Emit(model.StatusError, fmt.Sprintf("An error occurred: %v", r))
			res = buildResult(tr, false, ReasonInternalError, fmt.Sprint(r))
		}
	}()

	tr.Emit(model.StatusInitializing, "Starting automation...")

	if deps.Driver == nil {
		return abort(tr, fmt.Errorf("%w: no browser session", ErrLoginFailed))
	}
	if err := deps.Driver.Login(ctx, req.Username, req.Password); err != nil {
		return abort(tr, fmt.Errorf("%w: %v", ErrLoginFailed, err))
	}
	tr.Emit(model.StatusSuccess, "Login successful")

	if err := deps.Driver.Search(ctx, req.Keyword, req.Location); err != nil {
		return abort(tr, fmt.Errorf("%w: %v", ErrSearchFailed, err))
	}
	tr.Emit(model.StatusRunning, "Search completed successfully.")

	if err := deps.Driver.ApplyFilters(ctx, req.Filters); err != nil {
		return abort(tr, fmt.Errorf("%w: %v", ErrFilterFailed, err))
	}
	tr.Emit(model.StatusRunning, "Filters applied successfully.")

	if total, err := deps.Driver.TotalJobCount(ctx); err == nil && strings.TrimSpace(total) != "" {
		tr.Counters.TotalJobs = strings.TrimSpace(total)
		tr.Emit(model.StatusRunning, fmt.Sprintf("A total of %s jobs have been searched.", tr.Counters.TotalJobs))
	}

	ctrl := NewController(ControllerOptions{
		Session:    deps.Driver,
		Apply:      deps.Driver,
		Classifier: NewClassifier(deps.Ledger),
		Filters:    req.Filters,
		Log:        log,
		PageWait:   req.PageWait,
		JobPause:   req.JobPause,
	})
	if err := ctrl.Run(ctx, tr); err != nil {
		log.Error("controller stopped", "err", err)
		tr.State = model.StateTerminated
		tr.Emit(model.StatusError, fmt.Sprintf("An error occurred: %v", err))
		return buildResult(tr, false, ReasonInternalError, err.Error())
	}

	if tr.Counters.ApplicationsSubmitted > 0 {
		tr.Emit(model.StatusCompleted, fmt.Sprintf("Completed! Applied to %d out of %d target jobs",
			tr.Counters.ApplicationsSubmitted, tr.Counters.MaxApplications))
	} else {
		tr.Emit(model.StatusCompletedNoApplications, "Completed - No applications submitted")
	}
	return buildResult(tr, true, "", "")
}

func abort(tr *Tracker, err error) Result {
	reason := ReasonFor(err)
	if terr := tr.Transition(model.StateTerminated, "Run aborted"); terr != nil {
		tr.State = model.StateTerminated
	}
	tr.Emit(model.StatusError, err.Error())
	return buildResult(tr, false, reason, err.Error())
}

func buildResult(tr *Tracker, success bool, reason, errText string) Result {
	c := tr.Counters
	return Result{
		Success:               success,
		Reason:                reason,
		Error:                 errText,
		ApplicationsSubmitted: c.ApplicationsSubmitted,
		JobsProcessed:         c.JobsProcessed,
		AlreadyApplied:        c.AlreadyApplied,
		JobSkipped:            c.JobSkipped,
		JobErrors:             c.JobErrors,
		Status:                tr.Last(),
	}
}
