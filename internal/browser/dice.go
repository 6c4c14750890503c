package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"easyapply/internal/model"
)

const (
	diceLoginURL     = "https://www.dice.com/dashboard/login"
	diceJobsURL      = "https://www.dice.com/jobs"
	diceJobDetailURL = "https://www.dice.com/job-detail/"

	defaultWaitTimeout = 20 * time.Second
	defaultUserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

	pollInterval  = 500 * time.Millisecond
	filterSettle  = 4 * time.Second
	shadowRetries = 10
)

// ChromeLauncher starts a local Chrome through chromedp.
type ChromeLauncher struct{}

func (ChromeLauncher) Launch(ctx context.Context, opts LaunchOptions) (Driver, func(), error) {
	proxy, hasProxy, err := ParseProxy(opts.Proxy)
	if err != nil {
		return nil, nil, err
	}

	w, h := opts.WindowW, opts.WindowH
	if w <= 0 || h <= 0 {
		w, h = 1920, 1080
	}
	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = defaultUserAgent
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.WindowSize(w, h),
		chromedp.UserAgent(ua),
	)
	if strings.TrimSpace(opts.ChromePath) != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ChromePath))
	}
	if hasProxy {
		allocOpts = append(allocOpts, chromedp.ProxyServer(proxy.ServerURL()))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	ctxOpts := []chromedp.ContextOption{}
	if opts.Logf != nil {
		ctxOpts = append(ctxOpts, chromedp.WithLogf(opts.Logf))
	}
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, ctxOpts...)
	release := func() {
		cancelBrowser()
		cancelAlloc()
	}

	d := &diceDriver{
		ctx:     browserCtx,
		timeout: opts.WaitTimeout,
	}
	if d.timeout <= 0 {
		d.timeout = defaultWaitTimeout
	}
	if hasProxy && proxy.HasAuth() {
		d.proxy = &proxy
	}

	// Starts the browser and surfaces a missing Chrome binary here rather than at login.
	if err := chromedp.Run(browserCtx, d.authActions()...); err != nil {
		release()
		return nil, nil, fmt.Errorf("start chrome: %w", err)
	}
	return d, release, nil
}

// diceDriver drives the Dice site in a single browser. It is not safe for concurrent use.
type diceDriver struct {
	ctx     context.Context
	timeout time.Duration
	proxy   *Proxy
}

// authActions answers proxy auth challenges on the tab bound to the context it runs in.
func (d *diceDriver) authActions() []chromedp.Action {
	if d.proxy == nil {
		return nil
	}
	return []chromedp.Action{
		chromedp.ActionFunc(func(ctx context.Context) error {
			p := *d.proxy
			chromedp.ListenTarget(ctx, func(ev any) {
				switch ev := ev.(type) {
				case *fetch.EventRequestPaused:
					go func() {
						c := chromedp.FromContext(ctx)
						_ = fetch.ContinueRequest(ev.RequestID).Do(cdp.WithExecutor(ctx, c.Target))
					}()
				case *fetch.EventAuthRequired:
					go func() {
						c := chromedp.FromContext(ctx)
						resp := &fetch.AuthChallengeResponse{
							Response: fetch.AuthChallengeResponseResponseProvideCredentials,
							Username: p.Username,
							Password: p.Password,
						}
						_ = fetch.ContinueWithAuth(ev.RequestID, resp).Do(cdp.WithExecutor(ctx, c.Target))
					}()
				}
			})
			return nil
		}),
		fetch.Enable().WithHandleAuthRequests(true),
	}
}

func (d *diceDriver) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	return runIn(d.ctx, ctx, timeout, actions...)
}

// runIn executes actions against the tab bound to base.
func runIn(base, ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := mergeTimeout(base, ctx, timeout)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// mergeTimeout derives from the browser context so chromedp can find its target,
// while still honoring cancellation of the caller's ctx.
func mergeTimeout(browserCtx, callerCtx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithTimeout(browserCtx, timeout)
	stop := context.AfterFunc(callerCtx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

// waitFor polls js (which must evaluate to a boolean) until it is true or timeout elapses.
func (d *diceDriver) waitFor(ctx context.Context, js string, timeout time.Duration) bool {
	return waitForIn(d.ctx, ctx, js, timeout)
}

func waitForIn(base, ctx context.Context, js string, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		var ok bool
		if err := runIn(base, ctx, pollTimeout(timeout), chromedp.Evaluate(js, &ok)); err == nil && ok {
			return true
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			return false
		}
		if !sleepCtx(ctx, pollInterval) {
			return false
		}
	}
}

func pollTimeout(timeout time.Duration) time.Duration {
	if timeout < 5*time.Second {
		return 5 * time.Second
	}
	return timeout
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

func existsJS(selector string) string {
	return fmt.Sprintf(`!!document.querySelector(%q)`, selector)
}

func clickJS(selector string) string {
	return fmt.Sprintf(`(() => { const el = document.querySelector(%q); if (!el) return false; el.click(); return true; })()`, selector)
}

func (d *diceDriver) clickFirst(ctx context.Context, selector string, timeout time.Duration) error {
	if !d.waitFor(ctx, existsJS(selector), timeout) {
		return fmt.Errorf("element %s not found", selector)
	}
	var clicked bool
	if err := d.run(ctx, d.timeout, chromedp.Evaluate(clickJS(selector), &clicked)); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	if !clicked {
		return fmt.Errorf("element %s disappeared before click", selector)
	}
	return nil
}

func (d *diceDriver) Login(ctx context.Context, username, password string) error {
	const (
		emailSel    = "input[placeholder='Please enter your email']"
		passwordSel = "input[type='password']"
	)
	step := 15 * time.Second

	if err := d.run(ctx, step,
		chromedp.Navigate(diceLoginURL),
		chromedp.WaitVisible(emailSel, chromedp.ByQuery),
		chromedp.Clear(emailSel, chromedp.ByQuery),
		chromedp.SendKeys(emailSel, username+kb.Enter, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("enter email: %w", err)
	}
	if err := d.run(ctx, step,
		chromedp.WaitVisible(passwordSel, chromedp.ByQuery),
		chromedp.Clear(passwordSel, chromedp.ByQuery),
		chromedp.SendKeys(passwordSel, password+kb.Enter, chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("enter password: %w", err)
	}

	if d.waitFor(ctx, existsJS("a[href*='/profile']"), step) {
		return nil
	}
	if d.waitFor(ctx, existsJS(".profile-menu"), 5*time.Second) {
		return nil
	}
	var credsRejected bool
	_ = d.run(ctx, d.timeout, chromedp.Evaluate(existsJS("div.error-message"), &credsRejected))
	if credsRejected {
		return errors.New("invalid credentials")
	}
	return errors.New("dashboard did not load after login")
}

const revealSearchJS = `(() => {
	const header = document.querySelector('dhi-seds-nav-header');
	const t = header && header.shadowRoot && header.shadowRoot.querySelector('dhi-seds-nav-header-technologist');
	const disp = t && t.shadowRoot && t.shadowRoot.querySelector('dhi-seds-nav-header-display');
	const link = disp && disp.shadowRoot && disp.shadowRoot.querySelector('a[href*="/jobs"]');
	if (!link) return false;
	link.click();
	return true;
})()`

func (d *diceDriver) Search(ctx context.Context, keyword, location string) error {
	keywordSel := "input[aria-label='Job title, skill, company, keyword']"
	locationSel := "input[aria-label='Location Field']"

	found := d.waitFor(ctx, existsJS(keywordSel), 5*time.Second)
	if !found {
		keywordSel = "input#typeaheadInput[data-cy='typeahead-input']"
		locationSel = "input#google-location-search"
		if err := d.run(ctx, d.timeout, chromedp.Navigate(diceJobsURL)); err == nil {
			found = d.waitFor(ctx, existsJS(keywordSel), d.timeout)
		}
	}
	if !found {
		var clicked bool
		_ = d.run(ctx, d.timeout, chromedp.Evaluate(revealSearchJS, &clicked))
		found = clicked && d.waitFor(ctx, existsJS(keywordSel), d.timeout)
	}
	if !found {
		return errors.New("search box not found")
	}

	actions := []chromedp.Action{
		chromedp.Clear(keywordSel, chromedp.ByQuery),
		chromedp.SendKeys(keywordSel, keyword, chromedp.ByQuery),
	}
	if loc := strings.TrimSpace(location); loc != "" && !strings.EqualFold(loc, "remote") {
		actions = append(actions,
			chromedp.Clear(locationSel, chromedp.ByQuery),
			chromedp.SendKeys(locationSel, loc, chromedp.ByQuery),
		)
	}
	actions = append(actions,
		chromedp.Sleep(time.Second),
		chromedp.SendKeys(keywordSel, kb.Enter, chromedp.ByQuery),
	)
	if err := d.run(ctx, d.timeout, actions...); err != nil {
		return fmt.Errorf("submit search: %w", err)
	}

	resultsJS := `!!document.querySelector("a[data-testid='job-search-job-card-link'], a[data-cy='card-title-link']")`
	if !d.waitFor(ctx, resultsJS, d.timeout) {
		return errors.New("no job posts found for the search")
	}
	return nil
}

func (d *diceDriver) ApplyFilters(ctx context.Context, filters model.Filters) error {
	type filterStep struct {
		name     string
		selector string
	}
	var steps []filterStep
	if pd := strings.TrimSpace(filters.PostedDate); pd != "" {
		steps = append(steps, filterStep{"posted_date", fmt.Sprintf("input[type='radio'][name='postedDateOption'][value='%s']", pd)})
	}
	if filters.ThirdParty {
		steps = append(steps, filterStep{"third_party", "button[role='checkbox'][aria-label='Filter Search Results by Third Party']"})
	}
	if filters.Remote {
		steps = append(steps, filterStep{"remote", "input[type='checkbox'][name='workPlaceTypeOptions.remote']"})
	}
	if len(steps) == 0 {
		return nil
	}

	var failed []string
	for _, s := range steps {
		if err := d.clickFirst(ctx, s.selector, d.timeout); err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", s.name, err))
			continue
		}
		sleepCtx(ctx, filterSettle)
	}
	if len(failed) == len(steps) {
		return fmt.Errorf("no filter could be applied (%s)", strings.Join(failed, "; "))
	}
	return nil
}

func (d *diceDriver) TotalJobCount(ctx context.Context) (string, error) {
	var text string
	js := `(() => { const el = document.getElementById("totalJobCount"); return el ? el.innerText.trim() : ""; })()`
	if err := d.run(ctx, d.timeout, chromedp.Evaluate(js, &text)); err != nil {
		return "", fmt.Errorf("read total job count: %w", err)
	}
	return text, nil
}

const listingsJS = `Array.from(document.querySelectorAll("a[data-cy='card-title-link']")).map((a, i) => ({index: i, href: a.href || ""}))`

func (d *diceDriver) Listings(ctx context.Context) ([]Listing, error) {
	if !d.waitFor(ctx, existsJS("a[data-cy='card-title-link'].card-title-link"), d.timeout) {
		return nil, errors.New("no job listings on page")
	}
	// Cards render in batches after the first one shows up.
	sleepCtx(ctx, 2*time.Second)

	var out []Listing
	if err := d.run(ctx, d.timeout, chromedp.Evaluate(listingsJS, &out)); err != nil {
		return nil, fmt.Errorf("collect listings: %w", err)
	}
	return out, nil
}

type scrapedCard struct {
	Found bool `json:"found"`
	CardFields
}

func scrapeCardJS(index int) string {
	return fmt.Sprintf(`(() => {
	const a = document.querySelectorAll("a[data-cy='card-title-link']")[%d];
	if (!a) return {found: false};
	a.scrollIntoView(true);
	const card = a.closest("[data-cy='search-card']");
	const text = (sel) => {
		if (!card) return "";
		const el = card.querySelector(sel);
		return el ? el.innerText : "";
	};
	return {
		found: true,
		title: a.innerText || "",
		company: text('[data-cy="search-result-company-name"]'),
		location: text('[data-cy="search-result-location"]'),
		employment_type: text('[data-cy="search-result-employment-type"]'),
		summary: text('[data-cy="card-summary"]'),
		applied_ribbon: !!(card && card.querySelector("div[class*='ribbon-status-applied']")),
	};
})()`, index)
}

func (d *diceDriver) ScrapeCard(ctx context.Context, l Listing) (CardFields, error) {
	var card scrapedCard
	if err := d.run(ctx, d.timeout, chromedp.Evaluate(scrapeCardJS(l.Index), &card)); err != nil {
		return CardFields{}, fmt.Errorf("scrape card %d: %w", l.Index, err)
	}
	if !card.Found {
		return CardFields{}, fmt.Errorf("listing %d is no longer on the page", l.Index)
	}
	return card.CardFields, nil
}

func (d *diceDriver) CurrentURL(ctx context.Context) (string, error) {
	var u string
	if err := d.run(ctx, d.timeout, chromedp.Location(&u)); err != nil {
		return "", fmt.Errorf("read current url: %w", err)
	}
	return u, nil
}

const nextPageSel = "li.pagination-next:not(.disabled)"

func (d *diceDriver) HasNextPage(ctx context.Context) (bool, error) {
	var ok bool
	if err := d.run(ctx, d.timeout, chromedp.Evaluate(existsJS(nextPageSel), &ok)); err != nil {
		return false, fmt.Errorf("look for next page: %w", err)
	}
	return ok, nil
}

func (d *diceDriver) GoToNextPage(ctx context.Context) error {
	js := fmt.Sprintf(`(() => {
	const li = document.querySelector(%q);
	if (!li) return false;
	(li.querySelector("a, button") || li).click();
	return true;
})()`, nextPageSel)
	var clicked bool
	if err := d.run(ctx, d.timeout, chromedp.Evaluate(js, &clicked)); err != nil {
		return fmt.Errorf("click next page: %w", err)
	}
	if !clicked {
		return errors.New("next page control disappeared")
	}
	return nil
}
