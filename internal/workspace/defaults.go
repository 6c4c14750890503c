package workspace

const (
	DefaultAccountsConfigPath = "config/accounts.json"
	DefaultDataDir            = "data"
	DefaultMaxApplications    = 10
	DefaultPageWaitSeconds    = 15
	DefaultJobPauseSeconds    = 1
	DefaultLedgerDirName      = "ledgers"
	DefaultUploadsDirName     = "uploads"
)

// Posted-date radio values on the Dice filter panel.
const (
	PostedDateAny   = ""
	PostedDateToday = "ONE"
	PostedDate3Days = "THREE"
	PostedDate7Days = "SEVEN"
)

var postedDateValues = map[string]bool{
	PostedDateAny:   true,
	PostedDateToday: true,
	PostedDate3Days: true,
	PostedDate7Days: true,
}
