package model

// MaxJobsProcessed caps a single run regardless of the application target.
const MaxJobsProcessed = 500

// PageCounters are reset at the start of every results page and only feed reporting.
type PageCounters struct {
	Applied        int `json:"applied"`
	AlreadyApplied int `json:"already_applied"`
	Skipped        int `json:"skipped"`
	Errors         int `json:"errors"`
}

// RunCounters is owned by exactly one run.
type RunCounters struct {
	ApplicationsSubmitted int          `json:"applications_submitted"`
	JobsProcessed         int          `json:"jobs_processed"`
	AlreadyApplied        int          `json:"already_applied"`
	JobSkipped            int          `json:"job_skipped"`
	JobErrors             int          `json:"job_errors"`
	CurrentPage           int          `json:"current_page"`
	CurrentJob            int          `json:"current_job"`
	TotalJobs             string       `json:"total_jobs,omitempty"`
	MaxApplications       int          `json:"max_applications"`
	Page                  PageCounters `json:"page"`
}

func NewRunCounters(maxApplications int) RunCounters {
	return RunCounters{MaxApplications: maxApplications}
}

// Record applies the counter effect of one classified listing.
func (c *RunCounters) Record(o Outcome) {
	switch o {
	case OutcomeApplied:
		c.ApplicationsSubmitted++
		c.Page.Applied++
	case OutcomeAlreadyApplied:
		c.AlreadyApplied++
		c.Page.AlreadyApplied++
	case OutcomeSkipped:
		c.JobSkipped++
		c.Page.Skipped++
	default:
		c.JobErrors++
		c.Page.Errors++
	}
	c.JobsProcessed++
}

// StartPage advances the page number and clears the per-page counters.
func (c *RunCounters) StartPage() {
	c.CurrentPage++
	c.CurrentJob = 0
	c.Page = PageCounters{}
}

// ProgressPercent is submitted/target as a truncated percentage.
func (c RunCounters) ProgressPercent() int {
	if c.MaxApplications <= 0 {
		return 0
	}
	return c.ApplicationsSubmitted * 100 / c.MaxApplications
}

// ShouldStop is the run-level stop condition.
func ShouldStop(c RunCounters) bool {
	return c.ApplicationsSubmitted >= c.MaxApplications || c.JobsProcessed >= MaxJobsProcessed
}
