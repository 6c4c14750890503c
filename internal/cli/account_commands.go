package cli

import (
	"errors"
	"flag"
	"fmt"
	"strings"

	"easyapply/internal/schedule"
	"easyapply/internal/workspace"
)

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	dataDir := fs.String("data-dir", workspace.DefaultDataDir, "data directory (ledgers, uploads, runs)")
	config := fs.String("config", workspace.DefaultAccountsConfigPath, "accounts config path")
	chrome := fs.String("chrome", "", "Chrome/Chromium binary (empty = auto-detect)")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	res, err := workspace.InitWorkspace(workspace.InitWorkspaceOptions{
		DataDir:    strings.TrimSpace(*dataDir),
		ConfigPath: strings.TrimSpace(*config),
		ChromePath: strings.TrimSpace(*chrome),
	})
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(res)
	}

	fmt.Println("workspace initialized")
	fmt.Printf("data_dir: %s\n", res.DataDir)
	fmt.Printf("config: %s\n", res.ConfigPath)
	fmt.Printf("created_data_dir: %t\n", res.CreatedDataDir)
	fmt.Printf("created_config: %t\n", res.CreatedConfig)
	fmt.Println("checks:")
	printChecks("  ", res.DoctorResult)
	if !res.DoctorResult.OK {
		return errors.New("doctor checks failed")
	}
	fmt.Println("next: easyapply add --username <email> --keyword <search>")
	return nil
}

func runDoctor(args []string) error {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	dataDir := fs.String("data-dir", workspace.DefaultDataDir, "data directory (ledgers, uploads, runs)")
	config := fs.String("config", workspace.DefaultAccountsConfigPath, "accounts config path")
	chrome := fs.String("chrome", "", "Chrome/Chromium binary (empty = auto-detect)")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	res, err := workspace.Doctor(workspace.DoctorOptions{
		DataDir:    strings.TrimSpace(*dataDir),
		ConfigPath: strings.TrimSpace(*config),
		ChromePath: strings.TrimSpace(*chrome),
	})
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(res)
	}

	printChecks("", res)
	if !res.OK {
		return errors.New("doctor checks failed")
	}
	fmt.Println("doctor: all checks passed")
	return nil
}

func printChecks(indent string, res workspace.DoctorResult) {
	for _, c := range res.Checks {
		status := "ok"
		if !c.OK {
			status = "fail"
		}
		fmt.Printf("%s%s: %s (%s)\n", indent, c.Name, status, c.Message)
	}
}

func runAddAccount(args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	name := fs.String("name", "", "account name (optional; derived from username)")
	username := fs.String("username", "", "Dice login email")
	passwordEnv := fs.String("password-env", "", "environment variable holding the password (default EASYAPPLY_PASSWORD_<NAME>)")
	keyword := fs.String("keyword", "", "job search keyword")
	location := fs.String("location", "", "job search location (empty or \"remote\" skips the field)")
	maxApps := fs.Int("max-applications", 0, "applications per run (0 = inherit default)")
	postedDate := fs.String("posted-date", "", "posted date filter: ONE|THREE|SEVEN (empty = any)")
	thirdParty := fs.Bool("third-party", false, "include third-party postings")
	remote := fs.String("remote", "", "remote work setting filter: true|false (empty = true)")
	resume := fs.String("resume", "", "resume file uploaded during apply when --replace-resume is set")
	replaceResume := fs.Bool("replace-resume", false, "replace the profile resume while applying")
	cronSpec := fs.String("schedule", "", "cron schedule for serve (5 fields, e.g. \"0 9 * * 1-5\")")
	inactive := fs.Bool("inactive", false, "add the account disabled for schedules and --all")
	config := fs.String("config", workspace.DefaultAccountsConfigPath, "accounts config path")
	replace := fs.Bool("replace", false, "replace account if it already exists")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	user := strings.TrimSpace(*username)
	if user == "" {
		var err error
		user, err = promptRequired("username")
		if err != nil {
			return err
		}
	}
	kw := strings.TrimSpace(*keyword)
	if kw == "" {
		var err error
		kw, err = promptRequired("keyword")
		if err != nil {
			return err
		}
	}
	remoteFlag, err := optionalBool(*remote)
	if err != nil {
		return fmt.Errorf("--remote: %w", err)
	}
	if spec := strings.TrimSpace(*cronSpec); spec != "" {
		if err := schedule.Validate(spec); err != nil {
			return err
		}
	}

	res, err := workspace.AddAccount(workspace.AddAccountOptions{
		ConfigPath:          strings.TrimSpace(*config),
		Name:                strings.TrimSpace(*name),
		Username:            user,
		PasswordEnv:         strings.TrimSpace(*passwordEnv),
		Keyword:             kw,
		Location:            strings.TrimSpace(*location),
		MaxApplications:     *maxApps,
		PostedDate:          strings.TrimSpace(*postedDate),
		ThirdParty:          *thirdParty,
		Remote:              remoteFlag,
		ReplaceResume:       *replaceResume,
		ResumePath:          strings.TrimSpace(*resume),
		Schedule:            strings.TrimSpace(*cronSpec),
		Active:              boolPtr(!*inactive),
		ReplaceIfNameExists: *replace,
	})
	if err != nil {
		return err
	}

	if *jsonOut {
		return printJSON(res)
	}

	action := "added"
	if !res.Created {
		action = "updated"
	}
	fmt.Printf("account %s: %s\n", action, res.Account.Name)
	fmt.Printf("username: %s\n", res.Account.Username)
	fmt.Printf("password_env: %s\n", res.Account.PasswordEnv)
	fmt.Printf("config: %s\n", strings.TrimSpace(*config))
	fmt.Printf("next: %s=... easyapply run --account %s\n", res.Account.PasswordEnv, res.Account.Name)
	return nil
}

func runListAccounts(args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	config := fs.String("config", workspace.DefaultAccountsConfigPath, "accounts config path")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	res, err := workspace.ListAccounts(strings.TrimSpace(*config))
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(res)
	}

	fmt.Printf("config: %s\n", res.ConfigPath)
	if len(res.Accounts) == 0 {
		fmt.Println("no accounts configured")
		fmt.Println("next: easyapply add --username <email> --keyword <search>")
		return nil
	}
	for _, a := range res.Accounts {
		line := fmt.Sprintf("- %s | %s | %q", a.Name, a.Username, a.Keyword)
		if a.Schedule != "" {
			line += " | schedule " + a.Schedule
		}
		if !workspace.IsActive(a) {
			line += " | inactive"
		}
		fmt.Println(line)
	}
	return nil
}

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	account := fs.String("account", "", "account name or comma-separated names")
	all := fs.Bool("all", true, "show all configured accounts")
	dataDir := fs.String("data-dir", workspace.DefaultDataDir, "data directory (ledgers, uploads, runs)")
	config := fs.String("config", workspace.DefaultAccountsConfigPath, "accounts config path")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	if strings.TrimSpace(*account) != "" {
		*all = false
	}

	res, err := workspace.AccountStatus(workspace.AccountStatusOptions{
		ConfigPath: strings.TrimSpace(*config),
		Account:    strings.TrimSpace(*account),
		All:        *all,
		DataDir:    strings.TrimSpace(*dataDir),
	})
	if err != nil {
		if errors.Is(err, workspace.ErrNoAccountsConfigured) {
			fmt.Println("no accounts configured")
			fmt.Println("start here:")
			fmt.Println("  easyapply init")
			fmt.Println("  easyapply add --username <email> --keyword <search>")
			return nil
		}
		return err
	}
	if *jsonOut {
		return printJSON(res)
	}

	for _, row := range res.Rows {
		fmt.Printf("%s [%s]\n", row.Account, row.State)
		fmt.Printf("  username: %s\n", row.Username)
		fmt.Printf("  ledger: %s\n", row.LedgerPath)
		fmt.Printf("  processed/applied/not_applied: %d/%d/%d\n", row.Processed, row.Applied, row.NotApplied)
		if row.LastRunID != "" {
			fmt.Printf("  last run: %s %s (%s)\n", row.LastRunID, row.LastRunStatus, row.LastRunAt)
		}
		if row.Schedule != "" {
			fmt.Printf("  schedule: %s\n", row.Schedule)
		}
	}
	fmt.Println("totals")
	fmt.Printf("  accounts: %d\n", res.Totals.Accounts)
	fmt.Printf("  healthy: %d\n", res.Totals.Healthy)
	fmt.Printf("  attention: %d\n", res.Totals.Attention)
	fmt.Printf("  never_run: %d\n", res.Totals.NeverRun)
	fmt.Printf("  applied: %d\n", res.Totals.Applied)
	return nil
}

func runRemoveAccount(args []string) error {
	fs := flag.NewFlagSet("remove", flag.ContinueOnError)
	name := fs.String("name", "", "account name")
	config := fs.String("config", workspace.DefaultAccountsConfigPath, "accounts config path")
	yes := fs.Bool("yes", false, "skip confirmation")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	target := strings.TrimSpace(*name)
	if target == "" {
		return errors.New("--name is required")
	}
	if !*yes {
		ok, err := promptConfirm(fmt.Sprintf("remove account %q? the ledger file is kept [y/N] ", target))
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("aborted")
			return nil
		}
	}

	res, err := workspace.RemoveAccount(strings.TrimSpace(*config), target)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(res)
	}
	fmt.Printf("removed account: %s (%s)\n", res.Account.Name, res.Account.Username)
	return nil
}
