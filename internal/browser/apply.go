package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"

	"easyapply/internal/model"
)

const easyApplyStateJS = `(() => {
	const host = document.querySelector("apply-button-wc");
	const root = host && host.shadowRoot;
	if (!root) return "";
	if (root.querySelector("application-submitted")) return "submitted";
	if (root.querySelector("button.btn.btn-primary")) return "button";
	return "";
})()`

const clickEasyApplyJS = `(() => {
	const host = document.querySelector("apply-button-wc");
	const btn = host && host.shadowRoot && host.shadowRoot.querySelector("button.btn.btn-primary");
	if (!btn) return false;
	btn.click();
	return true;
})()`

// AttemptApply opens the listing in its own tab, runs the easy-apply wizard and
// closes the tab again whatever happens.
func (d *diceDriver) AttemptApply(ctx context.Context, l Listing, filters model.Filters) (model.ApplyResult, error) {
	tabCtx, closeTab, err := d.openListing(ctx, l)
	if err != nil {
		return model.ApplyResult{}, err
	}
	defer closeTab()

	var detailURL string
	if err := runIn(tabCtx, ctx, d.timeout, chromedp.WaitReady("body", chromedp.ByQuery), chromedp.Location(&detailURL)); err != nil {
		return model.ApplyResult{}, fmt.Errorf("load job page: %w", err)
	}
	result := model.ApplyResult{JobURL: detailURL}
	if !strings.HasPrefix(detailURL, diceJobDetailURL) {
		result.Kind = model.ResultNotThisSite
		result.Message = "job post does not belong to Dice"
		return result, nil
	}

	publishJS := `(() => { const m = document.querySelector("meta[property='og:publish_date']"); return m ? (m.getAttribute("content") || "") : ""; })()`
	if !waitForIn(tabCtx, ctx, existsJS("meta[property='og:publish_date']"), d.timeout) {
		return result, errors.New("job page did not finish loading")
	}
	if err := runIn(tabCtx, ctx, d.timeout, chromedp.Evaluate(publishJS, &result.PublishDate)); err != nil {
		return result, fmt.Errorf("read publish date: %w", err)
	}

	state, err := d.easyApplyState(tabCtx, ctx)
	if err != nil {
		return result, err
	}
	switch state {
	case "submitted":
		result.Kind = model.ResultAlreadyApplied
		result.Message = "application already submitted"
		return result, nil
	case "":
		result.Kind = model.ResultNotEligible
		result.Message = "no easy apply button"
		return result, nil
	}

	var clicked bool
	if err := runIn(tabCtx, ctx, d.timeout, chromedp.Evaluate(clickEasyApplyJS, &clicked)); err != nil || !clicked {
		return result, fmt.Errorf("click easy apply: %v", errOr(err, "button vanished"))
	}
	sleepCtx(ctx, 2*time.Second)

	if filters.ReplaceResume && strings.TrimSpace(filters.ResumePath) != "" {
		if err := d.replaceResume(tabCtx, ctx, filters.ResumePath); err != nil {
			result.Message = "resume replacement failed, kept existing resume: " + err.Error()
		}
	}

	if err := runIn(tabCtx, ctx, d.timeout,
		chromedp.WaitVisible(`//span[text()='Next']`, chromedp.BySearch),
		chromedp.Click(`//span[text()='Next']`, chromedp.BySearch),
		chromedp.Sleep(2*time.Second),
	); err != nil {
		return result, fmt.Errorf("click next: %w", err)
	}
	if err := runIn(tabCtx, ctx, d.timeout,
		chromedp.WaitVisible("button.seds-button-primary.btn-next", chromedp.ByQuery),
		chromedp.Click("button.seds-button-primary.btn-next", chromedp.ByQuery),
		chromedp.Sleep(2*time.Second),
	); err != nil {
		return result, fmt.Errorf("click submit: %w", err)
	}

	result.Kind = model.ResultApplied
	if result.Message == "" {
		result.Message = "application submitted"
	}
	return result, nil
}

// openListing prefers the card's href; cards without one are clicked and the new tab is adopted.
func (d *diceDriver) openListing(ctx context.Context, l Listing) (context.Context, func(), error) {
	if strings.TrimSpace(l.Href) != "" {
		tabCtx, cancel := chromedp.NewContext(d.ctx)
		actions := append(d.authActions(), chromedp.Navigate(l.Href))
		if err := runIn(tabCtx, ctx, d.timeout, actions...); err != nil {
			cancel()
			return nil, nil, fmt.Errorf("open listing %d: %w", l.Index, err)
		}
		return tabCtx, cancel, nil
	}

	newTab := chromedp.WaitNewTarget(d.ctx, func(info *target.Info) bool {
		return info.Type == "page"
	})
	js := fmt.Sprintf(`(() => { const a = document.querySelectorAll("a[data-cy='card-title-link']")[%d]; if (!a) return false; a.click(); return true; })()`, l.Index)
	var clicked bool
	if err := d.run(ctx, d.timeout, chromedp.Evaluate(js, &clicked)); err != nil || !clicked {
		return nil, nil, fmt.Errorf("activate listing %d: %v", l.Index, errOr(err, "listing vanished"))
	}

	select {
	case id := <-newTab:
		tabCtx, cancel := chromedp.NewContext(d.ctx, chromedp.WithTargetID(id))
		if err := runIn(tabCtx, ctx, d.timeout, d.authActions()...); err != nil {
			cancel()
			return nil, nil, fmt.Errorf("attach listing tab: %w", err)
		}
		return tabCtx, cancel, nil
	case <-time.After(d.timeout):
		return nil, nil, fmt.Errorf("listing %d did not open a new tab", l.Index)
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}

func (d *diceDriver) easyApplyState(tabCtx, ctx context.Context) (string, error) {
	for i := 0; i < shadowRetries; i++ {
		var state string
		if err := runIn(tabCtx, ctx, d.timeout, chromedp.Evaluate(easyApplyStateJS, &state)); err != nil {
			return "", fmt.Errorf("inspect apply button: %w", err)
		}
		if state == "button" {
			// The submitted tag can render a moment after the button.
			sleepCtx(ctx, time.Second)
			var again string
			if err := runIn(tabCtx, ctx, d.timeout, chromedp.Evaluate(easyApplyStateJS, &again)); err == nil && again == "submitted" {
				return again, nil
			}
			return state, nil
		}
		if state != "" {
			return state, nil
		}
		if !sleepCtx(ctx, time.Second) {
			return "", ctx.Err()
		}
	}
	return "", nil
}

func (d *diceDriver) replaceResume(tabCtx, ctx context.Context, resumePath string) error {
	if _, err := os.Stat(resumePath); err != nil {
		return fmt.Errorf("resume file: %w", err)
	}

	replaceSel := ""
	for _, sel := range []string{"div.file-interactions button", "button.file-remove"} {
		if waitForIn(tabCtx, ctx, existsJS(sel), 5*time.Second) {
			replaceSel = sel
			break
		}
	}
	if replaceSel == "" {
		return errors.New("replace button not found")
	}
	if err := runIn(tabCtx, ctx, d.timeout,
		chromedp.Click(replaceSel, chromedp.ByQuery),
		chromedp.Sleep(2*time.Second),
		chromedp.WaitReady("input[type='file']", chromedp.ByQuery),
		chromedp.SetUploadFiles("input[type='file']", []string{resumePath}, chromedp.ByQuery),
		chromedp.Sleep(3*time.Second),
	); err != nil {
		return fmt.Errorf("attach resume: %w", err)
	}

	uploadSel := "span.fsp-button-upload[data-e2e='upload']"
	var clicked bool
	if err := runIn(tabCtx, ctx, d.timeout, chromedp.Evaluate(clickJS(uploadSel), &clicked)); err != nil || !clicked {
		return fmt.Errorf("click upload: %v", errOr(err, "upload button not found"))
	}
	sleepCtx(ctx, 3*time.Second)
	return nil
}

func errOr(err error, fallback string) string {
	if err != nil {
		return err.Error()
	}
	return fallback
}
