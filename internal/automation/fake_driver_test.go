package automation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"easyapply/internal/browser"
	"easyapply/internal/ledger"
	"easyapply/internal/model"
)

type fakeListing struct {
	card       browser.CardFields
	scrapeErr  error
	result     model.ApplyResult
	applyErr   error
	applyPanic bool
}

type fakePage struct {
	url      string
	listings []fakeListing
	// hasNext reports a next-page control; urlSticks keeps the URL unchanged after clicking it.
	hasNext   bool
	urlSticks bool
}

type fakeDriver struct {
	mu sync.Mutex

	pages   []fakePage
	current int

	loginErr    error
	searchErr   error
	filterErr   error
	totalJobs   string
	listingsErr error

	applied        []browser.Listing
	hasNextCalls   int
	nextPageClicks int
}

func (f *fakeDriver) page() fakePage {
	return f.pages[f.current]
}

func (f *fakeDriver) Login(ctx context.Context, username, password string) error { return f.loginErr }
func (f *fakeDriver) Search(ctx context.Context, keyword, location string) error { return f.searchErr }
func (f *fakeDriver) ApplyFilters(ctx context.Context, filters model.Filters) error {
	return f.filterErr
}
func (f *fakeDriver) TotalJobCount(ctx context.Context) (string, error) { return f.totalJobs, nil }

func (f *fakeDriver) Listings(ctx context.Context) ([]browser.Listing, error) {
	if f.listingsErr != nil {
		return nil, f.listingsErr
	}
	p := f.page()
	out := make([]browser.Listing, len(p.listings))
	for i := range p.listings {
		out[i] = browser.Listing{Index: i, Href: fmt.Sprintf("%s/job/%d", p.url, i)}
	}
	return out, nil
}

func (f *fakeDriver) ScrapeCard(ctx context.Context, l browser.Listing) (browser.CardFields, error) {
	fl := f.page().listings[l.Index]
	if fl.scrapeErr != nil {
		return browser.CardFields{}, fl.scrapeErr
	}
	return fl.card, nil
}

func (f *fakeDriver) CurrentURL(ctx context.Context) (string, error) {
	return f.page().url, nil
}

func (f *fakeDriver) HasNextPage(ctx context.Context) (bool, error) {
	f.hasNextCalls++
	return f.page().hasNext, nil
}

func (f *fakeDriver) GoToNextPage(ctx context.Context) error {
	f.nextPageClicks++
	if f.page().urlSticks {
		return nil
	}
	if f.current+1 >= len(f.pages) {
		return errors.New("no page to go to")
	}
	f.current++
	return nil
}

func (f *fakeDriver) AttemptApply(ctx context.Context, l browser.Listing, filters model.Filters) (model.ApplyResult, error) {
	f.mu.Lock()
	f.applied = append(f.applied, l)
	f.mu.Unlock()
	fl := f.page().listings[l.Index]
	if fl.applyPanic {
		panic("tab crashed")
	}
	return fl.result, fl.applyErr
}

func card(title string) browser.CardFields {
	return browser.CardFields{
		Title:          title,
		Company:        "Acme",
		Location:       "Remote",
		EmploymentType: "Full-time",
		CardSummary:    "summary of " + title,
	}
}

func applied(url string) model.ApplyResult {
	return model.ApplyResult{Kind: model.ResultApplied, JobURL: url, PublishDate: "2026-04-01"}
}

// memLedger is an in-memory LedgerStore.
type memLedger struct {
	entries  []model.JobSummary
	writeErr error
	writes   int
}

func (m *memLedger) IsProcessed(job model.JobSummary) bool {
	return ledger.Contains(m.entries, job)
}

func (m *memLedger) Record(job model.JobSummary) (ledger.UpsertAction, error) {
	m.writes++
	if m.writeErr != nil {
		return "", m.writeErr
	}
	var action ledger.UpsertAction
	m.entries, action = ledger.Upsert(m.entries, job)
	return action, nil
}

type snapshotRecorder struct {
	mu    sync.Mutex
	snaps []model.StatusSnapshot
}

func (r *snapshotRecorder) Report(s model.StatusSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *snapshotRecorder) states() []model.RunState {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.RunState
	var last model.RunState = "-"
	for _, s := range r.snaps {
		if s.State != last {
			out = append(out, s.State)
			last = s.State
		}
	}
	return out
}

func (r *snapshotRecorder) hasStatus(status string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.snaps {
		if s.Status == status {
			return true
		}
	}
	return false
}
