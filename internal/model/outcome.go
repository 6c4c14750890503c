package model

// ApplyResultKind tags what the apply flow observed on a job page.
type ApplyResultKind string

const (
	ResultApplied        ApplyResultKind = "applied"
	ResultAlreadyApplied ApplyResultKind = "already_applied"
	ResultNotEligible    ApplyResultKind = "not_eligible"
	ResultNotThisSite    ApplyResultKind = "not_this_site"
	ResultError          ApplyResultKind = "error"
)

// ApplyResult is the tagged result of one apply attempt.
type ApplyResult struct {
	Kind        ApplyResultKind `json:"kind"`
	Message     string          `json:"message,omitempty"`
	JobURL      string          `json:"job_url,omitempty"`
	PublishDate string          `json:"publish_date,omitempty"`
}

func ErrorResult(err error) ApplyResult {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return ApplyResult{Kind: ResultError, Message: msg}
}

// Outcome is the classified effect of processing one listing.
type Outcome string

const (
	OutcomeApplied        Outcome = "applied"
	OutcomeAlreadyApplied Outcome = "already_applied"
	OutcomeSkipped        Outcome = "skipped"
	OutcomeErrored        Outcome = "errored"
)

// Classify maps an apply result to its outcome. Unknown kinds count as errors.
func Classify(r ApplyResult) Outcome {
	switch r.Kind {
	case ResultApplied:
		return OutcomeApplied
	case ResultAlreadyApplied:
		return OutcomeAlreadyApplied
	case ResultNotEligible, ResultNotThisSite:
		return OutcomeSkipped
	default:
		return OutcomeErrored
	}
}
