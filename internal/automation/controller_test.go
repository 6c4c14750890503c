package automation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"easyapply/internal/model"
)

func newTestController(d *fakeDriver, store LedgerStore) *Controller {
	c := NewController(ControllerOptions{
		Session:      d,
		Apply:        d,
		Classifier:   NewClassifier(store),
		PageWait:     30 * time.Millisecond,
		PollInterval: 5 * time.Millisecond,
	})
	return c
}

func TestController_ThreeListingsStopsAtTarget(t *testing.T) {
	seeded := card("B").Summary()
	seeded.SetApplied(true)
	store := &memLedger{entries: []model.JobSummary{seeded}}

	d := &fakeDriver{pages: []fakePage{{
		url:     "https://www.dice.com/jobs?page=1",
		hasNext: true,
		listings: []fakeListing{
			{card: card("A"), result: applied("https://www.dice.com/job-detail/a")},
			{card: card("B"), result: applied("never")},
			{card: card("C"), result: applied("https://www.dice.com/job-detail/c")},
		},
	}}}
	rec := &snapshotRecorder{}
	tr := NewTracker("run-1", "jane", 2, rec)

	require.NoError(t, newTestController(d, store).Run(context.Background(), tr))

	assert.Equal(t, model.StateTerminated, tr.State)
	assert.Equal(t, 2, tr.Counters.ApplicationsSubmitted)
	assert.Equal(t, 3, tr.Counters.JobsProcessed)
	assert.Equal(t, 1, tr.Counters.AlreadyApplied)
	require.Len(t, d.applied, 2, "listing B must never reach the apply flow")
	assert.Equal(t, 0, d.applied[0].Index)
	assert.Equal(t, 2, d.applied[1].Index)
	assert.Zero(t, d.hasNextCalls, "a met stop condition must not look for a next page")
	assert.Len(t, store.entries, 3)
	assert.Equal(t, []model.RunState{
		model.StatePageStart,
		model.StateDrainingListings,
		model.StateStopConditionMet,
		model.StateTerminated,
	}, rec.states())
}

func TestController_ApplyErrorMidFlow(t *testing.T) {
	store := &memLedger{}
	d := &fakeDriver{pages: []fakePage{{
		url: "p1",
		listings: []fakeListing{
			{card: card("A"), applyErr: errors.New("stale element")},
			{card: card("B"), result: model.ApplyResult{Kind: model.ResultNotEligible}},
		},
	}}}
	rec := &snapshotRecorder{}
	tr := NewTracker("run-2", "jane", 5, rec)

	require.NoError(t, newTestController(d, store).Run(context.Background(), tr))

	assert.Equal(t, 1, tr.Counters.JobErrors)
	assert.Equal(t, 1, tr.Counters.JobSkipped)
	assert.Equal(t, 2, tr.Counters.JobsProcessed)
	require.Len(t, store.entries, 1, "errored job must not be written")
	assert.Equal(t, "B", store.entries[0].CardTitle)
	assert.True(t, rec.hasStatus(model.StatusError))
	assert.True(t, rec.hasStatus(model.StatusSkipped))
}

func TestController_PanicAndScrapeFailureCountOnce(t *testing.T) {
	d := &fakeDriver{pages: []fakePage{{
		url: "p1",
		listings: []fakeListing{
			{card: card("A"), applyPanic: true},
			{scrapeErr: errors.New("card detached")},
			{card: card("C"), result: applied("c")},
		},
	}}}
	tr := NewTracker("run-3", "jane", 5, nil)

	require.NoError(t, newTestController(d, &memLedger{}).Run(context.Background(), tr))

	assert.Equal(t, 2, tr.Counters.JobErrors)
	assert.Equal(t, 1, tr.Counters.ApplicationsSubmitted)
	assert.Equal(t, 3, tr.Counters.JobsProcessed)
}

func TestController_NoNextPageOnSecondPage(t *testing.T) {
	d := &fakeDriver{pages: []fakePage{
		{url: "p1", hasNext: true, listings: []fakeListing{
			{card: card("A"), result: applied("a")},
		}},
		{url: "p2", hasNext: false, listings: []fakeListing{
			{card: card("B"), result: model.ApplyResult{Kind: model.ResultAlreadyApplied}},
		}},
	}}
	rec := &snapshotRecorder{}
	tr := NewTracker("run-4", "jane", 10, rec)

	require.NoError(t, newTestController(d, &memLedger{}).Run(context.Background(), tr))

	assert.Equal(t, 2, tr.Counters.CurrentPage)
	assert.Equal(t, 1, tr.Counters.ApplicationsSubmitted)
	assert.Equal(t, 1, tr.Counters.AlreadyApplied)
	assert.Equal(t, 2, tr.Counters.JobsProcessed)
	assert.Equal(t, 1, d.nextPageClicks)
	assert.Equal(t, []model.RunState{
		model.StatePageStart,
		model.StateDrainingListings,
		model.StatePageExhausted,
		model.StateAdvancingPage,
		model.StatePageStart,
		model.StateDrainingListings,
		model.StatePageExhausted,
		model.StateTerminated,
	}, rec.states())
}

func TestController_URLNeverChangesTerminates(t *testing.T) {
	d := &fakeDriver{pages: []fakePage{
		{url: "p1", hasNext: true, urlSticks: true, listings: []fakeListing{
			{card: card("A"), result: model.ApplyResult{Kind: model.ResultNotEligible}},
		}},
	}}
	tr := NewTracker("run-5", "jane", 10, nil)

	start := time.Now()
	require.NoError(t, newTestController(d, &memLedger{}).Run(context.Background(), tr))

	assert.Equal(t, model.StateTerminated, tr.State)
	assert.Equal(t, 1, tr.Counters.CurrentPage)
	assert.Equal(t, 1, d.nextPageClicks)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestController_ListingFetchErrorIsEmptyPage(t *testing.T) {
	d := &fakeDriver{
		pages:       []fakePage{{url: "p1"}},
		listingsErr: errors.New("timeout"),
	}
	rec := &snapshotRecorder{}
	tr := NewTracker("run-6", "jane", 3, rec)

	require.NoError(t, newTestController(d, &memLedger{}).Run(context.Background(), tr))

	assert.Equal(t, model.StateTerminated, tr.State)
	assert.Zero(t, tr.Counters.JobsProcessed)
	assert.True(t, rec.hasStatus(model.StatusError))
}

func TestController_ZeroTargetStopsBeforeFirstListing(t *testing.T) {
	d := &fakeDriver{pages: []fakePage{{url: "p1", hasNext: true, listings: []fakeListing{
		{card: card("A"), result: applied("a")},
	}}}}
	tr := NewTracker("run-7", "jane", 0, nil)

	require.NoError(t, newTestController(d, &memLedger{}).Run(context.Background(), tr))

	assert.Empty(t, d.applied)
	assert.Zero(t, tr.Counters.JobsProcessed)
	assert.Zero(t, d.hasNextCalls)
}

func TestController_CancelledContextTerminates(t *testing.T) {
	d := &fakeDriver{pages: []fakePage{{url: "p1", hasNext: true, listings: []fakeListing{
		{card: card("A"), result: applied("a")},
		{card: card("B"), result: applied("b")},
	}}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tr := NewTracker("run-8", "jane", 5, nil)

	require.NoError(t, newTestController(d, &memLedger{}).Run(ctx, tr))

	assert.Equal(t, model.StateTerminated, tr.State)
	assert.Empty(t, d.applied)
}

func TestController_LedgerWriteFailureReportsWarning(t *testing.T) {
	d := &fakeDriver{pages: []fakePage{{url: "p1", listings: []fakeListing{
		{card: card("A"), result: applied("a")},
	}}}}
	rec := &snapshotRecorder{}
	tr := NewTracker("run-9", "jane", 5, rec)

	require.NoError(t, newTestController(d, &memLedger{writeErr: errors.New("read-only fs")}).Run(context.Background(), tr))

	assert.Equal(t, 1, tr.Counters.ApplicationsSubmitted)
	assert.True(t, rec.hasStatus(model.StatusWarning))
}

func TestController_PausesBetweenListings(t *testing.T) {
	d := &fakeDriver{pages: []fakePage{{
		url: "https://www.dice.com/jobs?page=1",
		listings: []fakeListing{
			{card: card("A"), result: applied("https://www.dice.com/job-detail/a")},
			{card: card("B"), result: applied("https://www.dice.com/job-detail/b")},
			{card: card("C"), result: applied("https://www.dice.com/job-detail/c")},
		},
	}}}
	c := NewController(ControllerOptions{
		Session:    d,
		Apply:      d,
		Classifier: NewClassifier(&memLedger{}),
		JobPause:   time.Second,
	})
	var pauses []time.Duration
	c.sleep = func(ctx context.Context, dur time.Duration) bool {
		pauses = append(pauses, dur)
		return true
	}

	require.NoError(t, c.Run(context.Background(), NewTracker("run-1", "jane", 10, nil)))
	assert.Equal(t, []time.Duration{time.Second, time.Second}, pauses)
}
