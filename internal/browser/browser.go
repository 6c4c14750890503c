// Package browser holds the collaborators a run drives: the results page session,
// the per-job apply flow, and search/filter setup. The chromedp-backed Dice
// implementation lives alongside the interfaces.
package browser

import (
	"context"
	"time"

	"easyapply/internal/model"
)

// Listing is an opaque handle to one job card on the current results page.
// It is only valid until the page changes.
type Listing struct {
	Index int    `json:"index"`
	Href  string `json:"href,omitempty"`
}

// CardFields are the texts scraped from a job card. A field the card lacks is "".
type CardFields struct {
	Title          string `json:"title"`
	Company        string `json:"company"`
	Location       string `json:"location"`
	EmploymentType string `json:"employment_type"`
	CardSummary    string `json:"summary"`
	AppliedRibbon  bool   `json:"applied_ribbon"`
}

// Summary turns scraped card fields into a ledger identity.
func (c CardFields) Summary() model.JobSummary {
	return model.JobSummary{
		CardTitle:      c.Title,
		CompanyName:    c.Company,
		Location:       c.Location,
		EmploymentType: c.EmploymentType,
		CardSummary:    c.CardSummary,
	}
}

type Session interface {
	Listings(ctx context.Context) ([]Listing, error)
	ScrapeCard(ctx context.Context, l Listing) (CardFields, error)
	CurrentURL(ctx context.Context) (string, error)
	HasNextPage(ctx context.Context) (bool, error)
	GoToNextPage(ctx context.Context) error
}

type ApplyFlow interface {
	AttemptApply(ctx context.Context, l Listing, filters model.Filters) (model.ApplyResult, error)
}

type SearchFilter interface {
	Login(ctx context.Context, username, password string) error
	Search(ctx context.Context, keyword, location string) error
	ApplyFilters(ctx context.Context, filters model.Filters) error
	TotalJobCount(ctx context.Context) (string, error)
}

// Driver is everything one run needs from a single browser session.
type Driver interface {
	Session
	ApplyFlow
	SearchFilter
}

type LaunchOptions struct {
	Headless    bool
	ChromePath  string
	Proxy       string // user:pass@host:port or host:port
	UserAgent   string
	WindowW     int
	WindowH     int
	WaitTimeout time.Duration
	Logf        func(format string, args ...any)
}

// Launcher starts a browser session. The returned func releases it.
type Launcher interface {
	Launch(ctx context.Context, opts LaunchOptions) (Driver, func(), error)
}
