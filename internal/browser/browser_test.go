package browser

import (
	"strings"
	"testing"

	"easyapply/internal/model"
)

func TestCardFieldsSummary_MapsIdentityFields(t *testing.T) {
	c := CardFields{
		Title:          "Go Engineer",
		Company:        "Acme",
		Location:       "Remote",
		EmploymentType: "Contract",
		CardSummary:    "Build APIs",
		AppliedRibbon:  true,
	}
	want := model.JobSummary{
		CardTitle:      "Go Engineer",
		CompanyName:    "Acme",
		Location:       "Remote",
		EmploymentType: "Contract",
		CardSummary:    "Build APIs",
	}
	got := c.Summary()
	if !model.SameJob(got, want) || got.ApplyStatus != nil {
		t.Fatalf("unexpected summary: %+v", got)
	}
}

func TestScrapeCardJS_TargetsIndex(t *testing.T) {
	js := scrapeCardJS(7)
	if !strings.Contains(js, "[7]") {
		t.Fatalf("script does not select listing 7: %s", js)
	}
	for _, sel := range []string{"search-result-company-name", "search-result-location", "search-result-employment-type", "card-summary", "ribbon-status-applied"} {
		if !strings.Contains(js, sel) {
			t.Fatalf("script missing %s", sel)
		}
	}
}
