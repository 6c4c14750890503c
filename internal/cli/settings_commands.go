package cli

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"easyapply/internal/browser"
	"easyapply/internal/workspace"
)

func runSettings(args []string) error {
	if len(args) == 0 {
		printSettingsUsage()
		return nil
	}
	switch args[0] {
	case "show":
		return runSettingsShow(args[1:])
	case "set":
		return runSettingsSet(args[1:])
	case "help", "-h", "--help":
		printSettingsUsage()
		return nil
	default:
		printSettingsUsage()
		return fmt.Errorf("unknown settings subcommand %q", args[0])
	}
}

func runSettingsShow(args []string) error {
	fs := flag.NewFlagSet("settings show", flag.ContinueOnError)
	config := fs.String("config", workspace.DefaultAccountsConfigPath, "accounts config path")
	dataDir := fs.String("data-dir", workspace.DefaultDataDir, "data directory (ledgers, uploads, runs)")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	global, err := workspace.ReadGlobalSettings(strings.TrimSpace(*config))
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(map[string]any{
			"config_path": strings.TrimSpace(*config),
			"global":      global,
		})
	}

	fmt.Printf("config: %s\n", strings.TrimSpace(*config))
	printGlobal(global, strings.TrimSpace(*dataDir))
	return nil
}

func runSettingsSet(args []string) error {
	fs := flag.NewFlagSet("settings set", flag.ContinueOnError)
	config := fs.String("config", workspace.DefaultAccountsConfigPath, "accounts config path")
	dataDir := fs.String("data-dir", workspace.DefaultDataDir, "data directory (ledgers, uploads, runs)")
	headless := fs.String("headless", "", "run Chrome headless: true|false (empty keeps current)")
	proxy := fs.String("proxy", "", "proxy user:pass@host:port or host:port (empty keeps current)")
	clearProxy := fs.Bool("clear-proxy", false, "remove the configured proxy")
	ledgerDir := fs.String("ledger-dir", "", "ledger directory (empty keeps current)")
	uploadsDir := fs.String("uploads-dir", "", "resume uploads directory (empty keeps current)")
	pageWait := fs.Int("page-wait", -1, "seconds to wait for the next results page (>=1, -1 keeps current)")
	jobPause := fs.Int("job-pause", -1, "seconds to pause between listings (>=0, -1 keeps current)")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	configPath := strings.TrimSpace(*config)
	global, err := workspace.ReadGlobalSettings(configPath)
	if err != nil {
		return err
	}

	h, err := optionalBool(*headless)
	if err != nil {
		return fmt.Errorf("--headless: %w", err)
	}
	if h != nil {
		global.Headless = h
	}
	if *clearProxy && strings.TrimSpace(*proxy) != "" {
		return errors.New("--proxy and --clear-proxy are mutually exclusive")
	}
	if *clearProxy {
		global.Proxy = ""
	}
	if v := strings.TrimSpace(*proxy); v != "" {
		global.Proxy = v
	}
	if v := strings.TrimSpace(*ledgerDir); v != "" {
		global.LedgerDir = v
	}
	if v := strings.TrimSpace(*uploadsDir); v != "" {
		global.UploadsDir = v
	}
	if *pageWait != -1 {
		if *pageWait <= 0 {
			return errors.New("--page-wait must be >= 1")
		}
		global.PageWaitSeconds = *pageWait
	}
	if *jobPause != -1 {
		if *jobPause < 0 {
			return errors.New("--job-pause must be >= 0")
		}
		global.JobPauseSeconds = jobPause
	}

	updated, err := workspace.UpdateGlobalSettings(configPath, global)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(map[string]any{
			"config_path": configPath,
			"global":      updated,
		})
	}

	fmt.Printf("updated global settings in %s\n", configPath)
	printGlobal(updated, strings.TrimSpace(*dataDir))
	return nil
}

func printGlobal(g workspace.GlobalSettings, dataDir string) {
	fmt.Printf("headless: %t\n", g.Headless == nil || *g.Headless)
	if p, ok, err := browser.ParseProxy(g.Proxy); err == nil && ok {
		fmt.Printf("proxy: %s\n", p.Redacted())
	} else {
		fmt.Println("proxy: (none)")
	}
	fmt.Printf("ledger_dir: %s\n", g.LedgerDirIn(dataDir))
	fmt.Printf("uploads_dir: %s\n", g.UploadsDirIn(dataDir))
	fmt.Printf("page_wait_seconds: %d\n", g.PageWaitSeconds)
	fmt.Printf("job_pause_seconds: %d\n", int(g.JobPause()/time.Second))
}

func printSettingsUsage() {
	fmt.Println("settings commands:")
	fmt.Println("  settings show")
	fmt.Println("  settings set [--headless true|false] [--proxy <user:pass@host:port>] [--clear-proxy]")
	fmt.Println("               [--ledger-dir <dir>] [--uploads-dir <dir>] [--page-wait N] [--job-pause N]")
}
