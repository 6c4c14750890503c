package model

import (
	"encoding/json"
	"testing"
)

func TestSameJob_SymmetricAndExact(t *testing.T) {
	base := JobSummary{
		CardTitle:      "Go Engineer",
		CompanyName:    "Acme",
		Location:       "Remote",
		EmploymentType: "Full-time",
		CardSummary:    "Build services",
	}

	same := base
	same.JobURL = "https://www.dice.com/job-detail/1"
	same.SetApplied(true)
	if !SameJob(base, same) || !SameJob(same, base) {
		t.Fatalf("non-identity fields must not affect identity")
	}

	variants := []func(*JobSummary){
		func(j *JobSummary) { j.CardTitle = "go engineer" },
		func(j *JobSummary) { j.CompanyName = "Acme " },
		func(j *JobSummary) { j.Location = "" },
		func(j *JobSummary) { j.EmploymentType = "Contract" },
		func(j *JobSummary) { j.CardSummary = "Build services." },
	}
	for i, mutate := range variants {
		other := base
		mutate(&other)
		if SameJob(base, other) || SameJob(other, base) {
			t.Fatalf("variant %d should not match", i)
		}
	}
}

func TestJobSummary_MissingKeysDecodeAsEmpty(t *testing.T) {
	var j JobSummary
	if err := json.Unmarshal([]byte(`{"card_title":"Dev"}`), &j); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if j.CompanyName != "" || j.Applied() {
		t.Fatalf("unexpected decode: %+v", j)
	}
	if !SameJob(j, JobSummary{CardTitle: "Dev"}) {
		t.Fatalf("missing identity keys should compare as empty strings")
	}
}

func TestClassify(t *testing.T) {
	cases := map[ApplyResultKind]Outcome{
		ResultApplied:        OutcomeApplied,
		ResultAlreadyApplied: OutcomeAlreadyApplied,
		ResultNotEligible:    OutcomeSkipped,
		ResultNotThisSite:    OutcomeSkipped,
		ResultError:          OutcomeErrored,
		"surprise":           OutcomeErrored,
	}
	for kind, want := range cases {
		if got := Classify(ApplyResult{Kind: kind}); got != want {
			t.Fatalf("Classify(%q)=%q, want %q", kind, got, want)
		}
	}
}
