package runs

import (
	"context"
	"fmt"
	"time"

	"easyapply/internal/automation"
	"easyapply/internal/browser"
	"easyapply/internal/ledger"
	"easyapply/internal/logging"
	"easyapply/internal/model"
)

// Request is one run to execute, fully resolved.
type Request struct {
	Account         string        `json:"account"`
	Username        string        `json:"username"`
	Password        string        `json:"-"`
	Keyword         string        `json:"keyword"`
	Location        string        `json:"location"`
	MaxApplications int           `json:"max_applications"`
	Filters         model.Filters `json:"filters"`
	Proxy           string        `json:"-"`
	Headless        bool          `json:"headless"`
	LedgerPath      string        `json:"ledger_path"`
	PageWait        time.Duration `json:"-"`
	JobPause        time.Duration `json:"-"`
	Trigger         string        `json:"trigger,omitempty"`
}

// Executor runs a request to completion and reports through reporter.
type Executor interface {
	Execute(ctx context.Context, runID string, req Request, reporter automation.Reporter) automation.Result
}

type ExecutorFunc func(ctx context.Context, runID string, req Request, reporter automation.Reporter) automation.Result

func (f ExecutorFunc) Execute(ctx context.Context, runID string, req Request, reporter automation.Reporter) automation.Result {
	return f(ctx, runID, req, reporter)
}

// BrowserExecutor launches Chrome for every run and closes it when the run ends.
type BrowserExecutor struct {
	Launcher   browser.Launcher
	ChromePath string
	Log        *logging.Logger
}

func (e BrowserExecutor) Execute(ctx context.Context, runID string, req Request, reporter automation.Reporter) automation.Result {
	log := e.Log
	if log == nil {
		log = logging.Nop()
	}

	store, err := ledger.NewStore(req.LedgerPath)
	if err != nil {
		return failed(runID, req, automation.ReasonInternalError, err, reporter)
	}

	launcher := e.Launcher
	if launcher == nil {
		launcher = browser.ChromeLauncher{}
	}
	driver, release, err := launcher.Launch(ctx, browser.LaunchOptions{
		Headless:   req.Headless,
		ChromePath: e.ChromePath,
		Proxy:      req.Proxy,
		Logf: func(format string, args ...any) {
			log.Debug(fmt.Sprintf(format, args...), "run_id", runID)
		},
	})
	if err != nil {
		return failed(runID, req, automation.ReasonLoginFailed, fmt.Errorf("%w: %v", automation.ErrLoginFailed, err), reporter)
	}
	defer release()

	return automation.Run(ctx, automation.RunRequest{
		RunID:           runID,
		Account:         req.Account,
		Username:        req.Username,
		Password:        req.Password,
		Keyword:         req.Keyword,
		Location:        req.Location,
		MaxApplications: req.MaxApplications,
		Filters:         req.Filters,
		PageWait:        req.PageWait,
		JobPause:        req.JobPause,
	}, automation.RunDeps{
		Driver:   driver,
		Ledger:   store,
		Reporter: reporter,
		Log:      log,
	})
}

// failed reports a run that ended before the orchestrator could start.
func failed(runID string, req Request, reason string, err error, reporter automation.Reporter) automation.Result {
	snap := model.StatusSnapshot{
		RunID:     runID,
		Account:   req.Account,
		Status:    model.StatusError,
		Message:   err.Error(),
		State:     model.StateTerminated,
		Counters:  model.NewRunCounters(req.MaxApplications),
		Finished:  true,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if reporter != nil {
		reporter.Report(snap)
	}
	return automation.Result{Success: false, Reason: reason, Error: err.Error(), Status: snap}
}
