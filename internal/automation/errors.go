package automation

import "errors"

var (
	ErrLoginFailed  = errors.New("login failed")
	ErrSearchFailed = errors.New("search failed")
	ErrFilterFailed = errors.New("filter application failed")
)

// Reasons reported in Result.Reason when a run does not complete.
const (
	ReasonLoginFailed   = "login_failed"
	ReasonSearchFailed  = "search_failed"
	ReasonFilterFailed  = "filter_failed"
	ReasonInternalError = "internal_error"
)

// ReasonFor maps a precondition error to its reported reason.
func ReasonFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrLoginFailed):
		return ReasonLoginFailed
	case errors.Is(err, ErrSearchFailed):
		return ReasonSearchFailed
	case errors.Is(err, ErrFilterFailed):
		return ReasonFilterFailed
	default:
		return ReasonInternalError
	}
}
