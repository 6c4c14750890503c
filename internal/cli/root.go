package cli

import "fmt"

func Run(args []string) error {
	if len(args) == 0 {
		printRootUsage()
		return nil
	}

	switch args[0] {
	case "serve":
		return runServe(args[1:])
	case "run":
		return runAccount(args[1:])
	case "init":
		return runInit(args[1:])
	case "doctor":
		return runDoctor(args[1:])
	case "add":
		return runAddAccount(args[1:])
	case "list":
		return runListAccounts(args[1:])
	case "remove":
		return runRemoveAccount(args[1:])
	case "status":
		return runStatus(args[1:])
	case "jobs":
		return runJobs(args[1:])
	case "mark-applied":
		return runMarkApplied(args[1:])
	case "settings":
		return runSettings(args[1:])
	case "help", "-h", "--help":
		printRootUsage()
		return nil
	default:
		printRootUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printRootUsage() {
	fmt.Println("easyapply: Dice easy-apply automation")
	fmt.Println()
	fmt.Println("Quick Start:")
	fmt.Println("  easyapply init")
	fmt.Println("  easyapply add --username <email> --keyword <search> [--name <account>]")
	fmt.Println("  EASYAPPLY_PASSWORD_<NAME>=... easyapply run --account <name>")
	fmt.Println("  easyapply serve")
	fmt.Println()
	fmt.Println("Account Commands:")
	fmt.Println("  init          create workspace config + run environment checks")
	fmt.Println("  doctor        run dependency and filesystem preflight checks")
	fmt.Println("  add           add/update an account in config")
	fmt.Println("  list          list configured accounts")
	fmt.Println("  remove        remove an account from config")
	fmt.Println("  settings      show/update global runtime settings")
	fmt.Println("  status        ledger and last-run rollup per account")
	fmt.Println()
	fmt.Println("Run Commands:")
	fmt.Println("  run           apply for one account in the foreground")
	fmt.Println("  serve         web UI, run manager and cron schedules")
	fmt.Println("  jobs          list an account's processed jobs")
	fmt.Println("  mark-applied  flag a ledger entry as applied")
	fmt.Println()
	fmt.Println("Notes:")
	fmt.Println("  - Use --json on commands for machine-readable output")
	fmt.Println("  - Passwords are read from the account's password_env variable, never from config")
}
