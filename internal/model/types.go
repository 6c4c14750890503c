package model

// JobSummary is one scraped job card plus what the run observed about it.
// The first five fields form the job identity; see SameJob.
type JobSummary struct {
	CardTitle      string `json:"card_title"`
	CompanyName    string `json:"company_name"`
	Location       string `json:"location"`
	EmploymentType string `json:"employment_type"`
	CardSummary    string `json:"card_summary"`

	PublishDate string `json:"publish_date,omitempty"`
	AppliedDate string `json:"applied_date,omitempty"`
	JobURL      string `json:"job_url,omitempty"`
	ApplyStatus *bool  `json:"apply_status,omitempty"`
}

// SameJob reports whether a and b share all five identity fields.
// Comparison is exact: no trimming, no case folding.
func SameJob(a, b JobSummary) bool {
	return a.CardTitle == b.CardTitle &&
		a.CompanyName == b.CompanyName &&
		a.Location == b.Location &&
		a.EmploymentType == b.EmploymentType &&
		a.CardSummary == b.CardSummary
}

// Applied reports the recorded apply status; unset reads as false.
func (j JobSummary) Applied() bool {
	return j.ApplyStatus != nil && *j.ApplyStatus
}

func (j *JobSummary) SetApplied(v bool) {
	b := v
	j.ApplyStatus = &b
}

// Filters are the search preferences an operator picks before a run.
type Filters struct {
	PostedDate    string `json:"posted_date,omitempty"`
	ThirdParty    bool   `json:"third_party,omitempty"`
	Remote        bool   `json:"remote,omitempty"`
	ReplaceResume bool   `json:"replace_resume,omitempty"`
	ResumePath    string `json:"resume_path,omitempty"`
}

// IsEmpty reports whether no filter was selected at all.
func (f Filters) IsEmpty() bool {
	return f.PostedDate == "" && !f.ThirdParty && !f.Remote && !f.ReplaceResume
}
