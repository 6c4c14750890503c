package workspace

import (
	"sort"
	"strings"

	"easyapply/internal/ledger"
	"easyapply/internal/runstore"
)

type AccountStatusOptions struct {
	ConfigPath string
	Account    string
	All        bool
	DataDir    string
}

type AccountStatusResult struct {
	ConfigPath string              `json:"config_path"`
	Rows       []AccountStatusItem `json:"accounts"`
	Totals     AccountStatusTotals `json:"totals"`
}

type AccountStatusItem struct {
	Account       string `json:"account"`
	Username      string `json:"username"`
	Keyword       string `json:"keyword"`
	Schedule      string `json:"schedule,omitempty"`
	LedgerPath    string `json:"ledger_path"`
	State         string `json:"state"`
	Processed     int    `json:"processed_count"`
	Applied       int    `json:"applied_count"`
	NotApplied    int    `json:"not_applied_count"`
	LastAppliedAt string `json:"last_applied_at,omitempty"`
	LastRunID     string `json:"last_run_id,omitempty"`
	LastRunStatus string `json:"last_run_status,omitempty"`
	LastRunAt     string `json:"last_run_at,omitempty"`
	LastRunReason string `json:"last_run_reason,omitempty"`
}

type AccountStatusTotals struct {
	Accounts   int `json:"accounts"`
	Healthy    int `json:"healthy"`
	Attention  int `json:"attention"`
	NeverRun   int `json:"never_run"`
	Processed  int `json:"processed_count"`
	Applied    int `json:"applied_count"`
	NotApplied int `json:"not_applied_count"`
}

// AccountStatus rolls up each selected account's ledger and its most recent run.
func AccountStatus(opts AccountStatusOptions) (AccountStatusResult, error) {
	configPath := normalizeConfigPath(opts.ConfigPath)
	dataDir := firstNonEmpty(opts.DataDir, DefaultDataDir)

	all := opts.All || strings.TrimSpace(opts.Account) == ""
	accounts, err := ResolveAccountSelection(configPath, opts.Account, all, false)
	if err != nil {
		return AccountStatusResult{}, err
	}
	global, err := ReadGlobalSettings(configPath)
	if err != nil {
		return AccountStatusResult{}, err
	}
	records, err := runstore.ListRunRecords(runstore.RunsDir(dataDir))
	if err != nil {
		return AccountStatusResult{}, err
	}

	rows := make([]AccountStatusItem, 0, len(accounts))
	totals := AccountStatusTotals{}
	for _, a := range accounts {
		row := buildAccountStatusRow(a, global.LedgerDirIn(dataDir), records)
		rows = append(rows, row)
		totals.Accounts++
		totals.Processed += row.Processed
		totals.Applied += row.Applied
		totals.NotApplied += row.NotApplied
		switch row.State {
		case "healthy":
			totals.Healthy++
		case "never_run":
			totals.NeverRun++
		default:
			totals.Attention++
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Account < rows[j].Account })

	return AccountStatusResult{ConfigPath: configPath, Rows: rows, Totals: totals}, nil
}

func buildAccountStatusRow(a Account, ledgerDir string, records []runstore.RunRecord) AccountStatusItem {
	path := runstore.LedgerPath(ledgerDir, a.Username)
	stats := ledger.Summarize(ledger.Load(path))
	row := AccountStatusItem{
		Account:       a.Name,
		Username:      a.Username,
		Keyword:       a.Keyword,
		Schedule:      a.Schedule,
		LedgerPath:    path,
		Processed:     stats.Total,
		Applied:       stats.Applied,
		NotApplied:    stats.NotApplied,
		LastAppliedAt: stats.LastApplied,
	}
	// records are newest first
	for _, rec := range records {
		if rec.Account == a.Name {
			row.LastRunID = rec.RunID
			row.LastRunStatus = rec.Status
			row.LastRunAt = firstNonEmpty(rec.FinishedAt, rec.StartedAt)
			row.LastRunReason = rec.Reason
			break
		}
	}
	row.State = summarizeState(row)
	return row
}

func summarizeState(row AccountStatusItem) string {
	if row.LastRunID == "" {
		if row.Processed > 0 {
			return "healthy"
		}
		return "never_run"
	}
	switch row.LastRunStatus {
	case "running", "initializing":
		return "in_progress"
	case "error":
		return "last_run_failed"
	}
	return "healthy"
}
