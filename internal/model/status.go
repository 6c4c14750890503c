package model

import "fmt"

// RunState is the position of the continuation controller within a run.
type RunState string

const (
	StatePageStart        RunState = "page_start"
	StateDrainingListings RunState = "draining_listings"
	StatePageExhausted    RunState = "page_exhausted"
	StateStopConditionMet RunState = "stop_condition_met"
	StateAdvancingPage    RunState = "advancing_page"
	StateTerminated       RunState = "terminated"
)

var allowedTransitions = map[RunState]map[RunState]bool{
	"": {
		StatePageStart:  true,
		StateTerminated: true, // login/search/filter failed
	},
	StatePageStart: {
		StateDrainingListings: true,
		StateTerminated:       true,
	},
	StateDrainingListings: {
		StatePageExhausted:    true,
		StateStopConditionMet: true,
		StateTerminated:       true, // context cancelled
	},
	StatePageExhausted: {
		StateAdvancingPage: true,
		StateTerminated:    true,
	},
	StateStopConditionMet: {
		StateTerminated: true,
	},
	StateAdvancingPage: {
		StatePageStart: true,
	},
	StateTerminated: {},
}

func IsKnownState(state RunState) bool {
	_, ok := allowedTransitions[state]
	return ok
}

func CanTransition(from, to RunState) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// TransitionRunState moves *state to next, refusing moves outside the table.
func TransitionRunState(state *RunState, next RunState) error {
	from := *state
	if !CanTransition(from, next) {
		return fmt.Errorf("invalid run state transition: %q -> %q", from, next)
	}
	*state = next
	return nil
}

const (
	StatusInitializing            = "initializing"
	StatusRunning                 = "running"
	StatusSuccess                 = "success"
	StatusSkipped                 = "skipped"
	StatusWarning                 = "warning"
	StatusCompleted               = "completed"
	StatusCompletedNoApplications = "completed_no_applications"
	StatusError                   = "error"
)

// IsFinalStatus reports whether a status string ends a run.
func IsFinalStatus(status string) bool {
	switch status {
	case StatusCompleted, StatusCompletedNoApplications:
		return true
	}
	return false
}

// StatusSnapshot is what a run reports to its sinks after every step.
type StatusSnapshot struct {
	RunID           string      `json:"run_id"`
	Account         string      `json:"account"`
	Status          string      `json:"status"`
	Message         string      `json:"message"`
	State           RunState    `json:"state,omitempty"`
	Counters        RunCounters `json:"counters"`
	ProgressPercent int         `json:"progress_percent"`
	Finished        bool        `json:"finished"`
	UpdatedAt       string      `json:"updated_at"`
}
