package cli

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"easyapply/internal/ledger"
	"easyapply/internal/model"
	"easyapply/internal/runstore"
	"easyapply/internal/workspace"
)

type ledgerTarget struct {
	config   *string
	dataDir  *string
	account  *string
	username *string
}

func addLedgerFlags(fs *flag.FlagSet) ledgerTarget {
	return ledgerTarget{
		config:   fs.String("config", workspace.DefaultAccountsConfigPath, "accounts config path"),
		dataDir:  fs.String("data-dir", workspace.DefaultDataDir, "data directory (ledgers, uploads, runs)"),
		account:  fs.String("account", "", "account name from config"),
		username: fs.String("username", "", "Dice login email (for ledgers of unregistered accounts)"),
	}
}

// open resolves the ledger file from --account or --username and returns the
// username it belongs to.
func (t ledgerTarget) open() (*ledger.Store, string, error) {
	configPath := strings.TrimSpace(*t.config)
	username := strings.TrimSpace(*t.username)
	if name := strings.TrimSpace(*t.account); name != "" {
		a, err := workspace.FindAccount(configPath, name)
		if err != nil {
			return nil, "", err
		}
		username = a.Username
	}
	if username == "" {
		return nil, "", errors.New("--account or --username is required")
	}
	global, err := workspace.ReadGlobalSettings(configPath)
	if err != nil {
		return nil, "", err
	}
	store, err := ledger.NewStore(runstore.LedgerPath(global.LedgerDirIn(strings.TrimSpace(*t.dataDir)), username))
	return store, username, err
}

func (t ledgerTarget) locksDir() string {
	dataDir := strings.TrimSpace(*t.dataDir)
	if dataDir == "" {
		dataDir = workspace.DefaultDataDir
	}
	return runstore.LocksDir(dataDir)
}

func runJobs(args []string) error {
	fs := flag.NewFlagSet("jobs", flag.ContinueOnError)
	target := addLedgerFlags(fs)
	pending := fs.Bool("not-applied", false, "only list jobs without a successful application")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, _, err := target.open()
	if err != nil {
		return err
	}
	entries := store.All()
	stats := ledger.Summarize(entries)

	type row struct {
		Index int              `json:"index"`
		Job   model.JobSummary `json:"job"`
	}
	rows := make([]row, 0, len(entries))
	for i, e := range entries {
		if *pending && e.Applied() {
			continue
		}
		rows = append(rows, row{Index: i + 1, Job: e})
	}

	if *jsonOut {
		return printJSON(map[string]any{
			"ledger_path": store.Path(),
			"stats":       stats,
			"jobs":        rows,
		})
	}

	fmt.Printf("ledger: %s\n", store.Path())
	fmt.Printf("processed/applied/not_applied: %d/%d/%d\n", stats.Total, stats.Applied, stats.NotApplied)
	if len(rows) == 0 {
		fmt.Println("no jobs")
		return nil
	}
	for _, r := range rows {
		mark := " "
		if r.Job.Applied() {
			mark = "x"
		}
		line := fmt.Sprintf("%4d [%s] %s | %s | %s", r.Index, mark, r.Job.CardTitle, r.Job.CompanyName, r.Job.Location)
		if r.Job.AppliedDate != "" {
			line += " | " + r.Job.AppliedDate
		}
		fmt.Println(line)
	}
	return nil
}

func runMarkApplied(args []string) error {
	fs := flag.NewFlagSet("mark-applied", flag.ContinueOnError)
	target := addLedgerFlags(fs)
	index := fs.Int("index", 0, "1-based job index as printed by the jobs command")
	title := fs.String("title", "", "card title")
	company := fs.String("company", "", "company name")
	location := fs.String("location", "", "job location")
	employment := fs.String("employment-type", "", "employment type")
	summary := fs.String("summary", "", "card summary")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, username, err := target.open()
	if err != nil {
		return err
	}

	var job model.JobSummary
	switch {
	case *index > 0:
		entries := store.All()
		if *index > len(entries) {
			return fmt.Errorf("--index out of range (1..%d)", len(entries))
		}
		job = entries[*index-1]
	case *title != "" || *company != "":
		// identity is exact; values are not trimmed
		job = model.JobSummary{
			CardTitle:      *title,
			CompanyName:    *company,
			Location:       *location,
			EmploymentType: *employment,
			CardSummary:    *summary,
		}
	default:
		return errors.New("set --index or the job identity (--title, --company, --location, --employment-type, --summary)")
	}

	updated, err := store.MarkAppliedLocked(target.locksDir(), username, job)
	if errors.Is(err, runstore.ErrAccountLocked) {
		return fmt.Errorf("account has an active run; retry after it finishes: %w", err)
	}
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(map[string]any{
			"ledger_path": store.Path(),
			"updated":     updated,
		})
	}
	if !updated {
		fmt.Println("no matching job in ledger; nothing changed")
		return nil
	}
	fmt.Printf("marked applied: %s | %s\n", job.CardTitle, job.CompanyName)
	return nil
}
