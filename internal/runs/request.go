package runs

import (
	"easyapply/internal/workspace"
)

// RequestForAccount resolves a registry account into a run request. The password
// comes from the account's environment variable.
func RequestForAccount(a workspace.Account, global workspace.GlobalSettings, dataDir string, o workspace.RunOverrides, trigger string) (Request, error) {
	settings, err := workspace.ResolveRunSettings(a, global, dataDir, o)
	if err != nil {
		return Request{}, err
	}
	password, err := a.Password()
	if err != nil {
		return Request{}, err
	}
	return Request{
		Account:         a.Name,
		Username:        settings.Username,
		Password:        password,
		Keyword:         settings.Keyword,
		Location:        settings.Location,
		MaxApplications: settings.MaxApplications,
		Filters:         a.ModelFilters(),
		Proxy:           settings.Proxy,
		Headless:        settings.Headless,
		LedgerPath:      settings.LedgerPath,
		PageWait:        settings.PageWait,
		JobPause:        settings.JobPause,
		Trigger:         trigger,
	}, nil
}
