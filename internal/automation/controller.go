package automation

import (
	"context"
	"fmt"
	"time"

	"easyapply/internal/browser"
	"easyapply/internal/logging"
	"easyapply/internal/model"
)

const (
	DefaultPageWait     = 15 * time.Second
	DefaultPollInterval = 500 * time.Millisecond
)

type ControllerOptions struct {
	Session    browser.Session
	Apply      browser.ApplyFlow
	Classifier *Classifier
	Filters    model.Filters
	Log        *logging.Logger

	// PageWait bounds how long a page change is awaited after clicking next.
	PageWait     time.Duration
	PollInterval time.Duration
	// JobPause is slept between listings.
	JobPause time.Duration
}

// Controller walks result pages and listings until the stop condition or the last page.
type Controller struct {
	opts  ControllerOptions
	sleep func(ctx context.Context, d time.Duration) bool
}

func NewController(opts ControllerOptions) *Controller {
	if opts.PageWait <= 0 {
		opts.PageWait = DefaultPageWait
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Log == nil {
		opts.Log = logging.Nop()
	}
	return &Controller{opts: opts, sleep: sleepCtx}
}

// Run drives tr from its initial state to Terminated. It returns early only on an
// illegal transition, which is a programming error.
func (c *Controller) Run(ctx context.Context, tr *Tracker) error {
	if err := tr.Transition(model.StatePageStart, "Starting first results page"); err != nil {
		return err
	}

	var listings []browser.Listing
	for {
		switch tr.State {
		case model.StatePageStart:
			tr.Counters.StartPage()
			tr.Emit(model.StatusRunning, fmt.Sprintf("Trying to apply with page %d...", tr.Counters.CurrentPage))
			found, err := c.opts.Session.Listings(ctx)
			if err != nil {
				tr.Emit(model.StatusError, fmt.Sprintf("Error finding job listings: %v", err))
				found = nil
			} else {
				tr.Emit(model.StatusRunning, fmt.Sprintf("Found %d job listings in current page.", len(found)))
			}
			listings = found
			if err := tr.Transition(model.StateDrainingListings, fmt.Sprintf("Processing %d listings on page %d", len(listings), tr.Counters.CurrentPage)); err != nil {
				return err
			}

		case model.StateDrainingListings:
			next, msg := c.drain(ctx, tr, listings)
			if err := tr.Transition(next, msg); err != nil {
				return err
			}

		case model.StatePageExhausted:
			if c.advance(ctx, tr) {
				if err := tr.Transition(model.StateAdvancingPage, fmt.Sprintf("Moving to next page(Page %d)", tr.Counters.CurrentPage+1)); err != nil {
					return err
				}
				continue
			}
			if err := tr.Transition(model.StateTerminated, "No more jobs available to process."); err != nil {
				return err
			}

		case model.StateStopConditionMet:
			if err := tr.Transition(model.StateTerminated, "Stop condition reached"); err != nil {
				return err
			}

		case model.StateAdvancingPage:
			if err := tr.Transition(model.StatePageStart, "Next page loaded"); err != nil {
				return err
			}

		case model.StateTerminated:
			return nil

		default:
			return fmt.Errorf("unknown run state %q", tr.State)
		}
	}
}

// drain processes listings in page order and reports which state comes next.
func (c *Controller) drain(ctx context.Context, tr *Tracker, listings []browser.Listing) (model.RunState, string) {
	for i, l := range listings {
		if model.ShouldStop(tr.Counters) {
			return model.StateStopConditionMet, "Stop condition reached"
		}
		if ctx.Err() != nil {
			return model.StateTerminated, "Run cancelled"
		}
		tr.Counters.CurrentJob = i + 1
		tr.Emit(model.StatusRunning, fmt.Sprintf("Processing job %d of %d in Page %d", i+1, len(listings), tr.Counters.CurrentPage))

		c.processListing(ctx, tr, l)

		if model.ShouldStop(tr.Counters) {
			return model.StateStopConditionMet, "Stop condition reached"
		}
		if c.opts.JobPause > 0 && i < len(listings)-1 {
			c.sleep(ctx, c.opts.JobPause)
		}
	}
	if ctx.Err() != nil {
		return model.StateTerminated, "Run cancelled"
	}
	return model.StatePageExhausted, fmt.Sprintf("All jobs of Page %d are processed", tr.Counters.CurrentPage)
}

// processListing handles one listing. Every path, a panic included, counts the
// listing exactly once.
func (c *Controller) processListing(ctx context.Context, tr *Tracker, l browser.Listing) {
	processedBefore := tr.Counters.JobsProcessed
	defer func() {
		if r := recover(); r != nil {
			if tr.Counters.JobsProcessed == processedBefore {
				tr.Counters.Record(model.OutcomeErrored)
			}
			c.opts.Log.Error("listing processing panicked", "run_id", tr.RunID, "listing", l.Index, "panic", fmt.Sprint(r))
			tr.Emit(model.StatusError, fmt.Sprintf("Error processing job: %v", r))
		}
	}()

	card, err := c.opts.Session.ScrapeCard(ctx, l)
	if err != nil {
		tr.Counters.Record(model.OutcomeErrored)
		tr.Emit(model.StatusError, fmt.Sprintf("Error processing job: listing %d: %v", l.Index, err))
		return
	}
	job := card.Summary()

	if reason, skip := c.opts.Classifier.PreCheck(job, card.AppliedRibbon); skip {
		c.opts.Classifier.ShortCircuit(&tr.Counters)
		tr.Emit(model.StatusRunning, fmt.Sprintf("Job already applied (%s). Skipping...", reason))
		return
	}

	result, err := c.opts.Apply.AttemptApply(ctx, l, c.opts.Filters)
	if err != nil {
		result = model.ErrorResult(fmt.Errorf("listing %d: %w", l.Index, err))
	}
	classified, ledgerErr := c.opts.Classifier.Record(&tr.Counters, job, result)

	switch classified.Outcome {
	case model.OutcomeApplied:
		tr.Emit(model.StatusSuccess, fmt.Sprintf("Successfully applied to job %d of %d (%d%%)",
			tr.Counters.ApplicationsSubmitted, tr.Counters.MaxApplications, tr.Counters.ProgressPercent()))
	case model.OutcomeAlreadyApplied:
		tr.Emit(model.StatusRunning, "Job already applied. Skipping...")
	case model.OutcomeSkipped:
		msg := "Job is not Dice Easy Apply. Skipping..."
		if result.Kind == model.ResultNotThisSite {
			msg = fmt.Sprintf("Job post does not belong to Dice. Skipping... (%s)", result.JobURL)
		}
		tr.Emit(model.StatusSkipped, msg)
	default:
		tr.Emit(model.StatusError, fmt.Sprintf("Error processing job: %s", result.Message))
	}

	if ledgerErr != nil {
		c.opts.Log.Warn("ledger write failed", "run_id", tr.RunID, "err", ledgerErr)
		tr.Emit(model.StatusWarning, fmt.Sprintf("Could not save job to ledger: %v", ledgerErr))
	}
}

// advance clicks the next-page control and waits for the URL to change.
// Any failure along the way means there is no next page.
func (c *Controller) advance(ctx context.Context, tr *Tracker) bool {
	has, err := c.opts.Session.HasNextPage(ctx)
	if err != nil || !has {
		return false
	}
	before, err := c.opts.Session.CurrentURL(ctx)
	if err != nil {
		return false
	}
	if err := c.opts.Session.GoToNextPage(ctx); err != nil {
		c.opts.Log.Warn("next page click failed", "run_id", tr.RunID, "err", err)
		return false
	}

	deadline := time.Now().Add(c.opts.PageWait)
	for {
		if now, err := c.opts.Session.CurrentURL(ctx); err == nil && now != before {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		if !c.sleep(ctx, c.opts.PollInterval) {
			return false
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
