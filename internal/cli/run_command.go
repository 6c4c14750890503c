package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"easyapply/internal/automation"
	"easyapply/internal/config"
	"easyapply/internal/logging"
	"easyapply/internal/model"
	"easyapply/internal/runs"
	"easyapply/internal/workspace"
)

// newExecutor is swapped in tests so no browser is launched.
var newExecutor = func(chromePath string, log *logging.Logger) runs.Executor {
	return runs.BrowserExecutor{ChromePath: chromePath, Log: log}
}

func runAccount(args []string) error {
	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	account := fs.String("account", "", "account name or comma-separated names")
	all := fs.Bool("all", false, "run every active account, one after another")
	configPath := fs.String("config", cfg.ConfigPath, "accounts config path")
	dataDir := fs.String("data-dir", cfg.DataDir, "data directory (ledgers, uploads, runs)")
	chrome := fs.String("chrome", cfg.ChromePath, "Chrome/Chromium binary (empty = auto-detect)")
	keyword := fs.String("keyword", "", "override the account keyword")
	location := fs.String("location", "", "override the account location")
	maxApps := fs.Int("max-applications", 0, "override applications per run (0 = account/default)")
	headless := fs.String("headless", "", "override headless mode: true|false")
	proxy := fs.String("proxy", "", "override proxy user:pass@host:port")
	plain := fs.Bool("plain", false, "line progress instead of the interactive view")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	if strings.TrimSpace(*account) == "" && !*all {
		return errors.New("account required: set --account <name> or --all")
	}
	h, err := optionalBool(*headless)
	if err != nil {
		return fmt.Errorf("--headless: %w", err)
	}

	cfgPath := strings.TrimSpace(*configPath)
	accounts, err := workspace.ResolveAccountSelection(cfgPath, strings.TrimSpace(*account), *all, *all)
	if err != nil {
		return err
	}
	global, err := workspace.ReadGlobalSettings(cfgPath)
	if err != nil {
		return err
	}
	overrides := workspace.RunOverrides{
		Keyword:         strings.TrimSpace(*keyword),
		Location:        strings.TrimSpace(*location),
		MaxApplications: *maxApps,
		Headless:        h,
		Proxy:           strings.TrimSpace(*proxy),
	}
	requests := make([]runs.Request, 0, len(accounts))
	for _, a := range accounts {
		req, err := runs.RequestForAccount(a, global, strings.TrimSpace(*dataDir), overrides, "cli")
		if err != nil {
			return fmt.Errorf("account %s: %w", a.Name, err)
		}
		requests = append(requests, req)
	}

	interactive := !*plain && !*jsonOut && stdoutIsTTY()
	var log *logging.Logger
	switch {
	case interactive:
		// the view owns the terminal
		log = logging.Nop()
	case *jsonOut:
		log = logging.NewConsole("warn")
	default:
		log = logging.NewConsole(cfg.LogLevel)
	}
	defer func() { _ = log.Sync() }()

	mgr, err := runs.NewManager(runs.Options{
		Executor: newExecutor(strings.TrimSpace(*chrome), log),
		DataDir:  strings.TrimSpace(*dataDir),
		Log:      log,
	})
	if err != nil {
		return err
	}
	defer func() { _ = mgr.Shutdown(context.Background()) }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	type runOutput struct {
		RunID  string            `json:"run_id"`
		Result automation.Result `json:"result"`
	}
	outputs := make([]runOutput, 0, len(requests))
	failed := 0
	for _, req := range requests {
		if ctx.Err() != nil {
			break
		}
		var (
			runID string
			res   automation.Result
		)
		if interactive {
			runID, res, err = runInteractive(ctx, mgr, req)
		} else {
			runID, res, err = runPlain(ctx, mgr, req, !*jsonOut)
		}
		if err != nil {
			return err
		}
		outputs = append(outputs, runOutput{RunID: runID, Result: res})
		if !res.Success {
			failed++
		}
		if !*jsonOut && !interactive {
			printRunSummary(req.Account, runID, res)
		}
	}

	if *jsonOut {
		if err := printJSON(outputs); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d runs failed", failed, len(requests))
	}
	return nil
}

func runPlain(ctx context.Context, mgr *runs.Manager, req runs.Request, showProgress bool) (string, automation.Result, error) {
	if !showProgress {
		return mgr.Run(ctx, req, nil)
	}
	line := automation.NewLineReporter(os.Stderr)
	line.Start()
	runID, res, err := mgr.Run(ctx, req, line)
	final := "done"
	if err != nil {
		final = "error: " + err.Error()
	} else if res.Status.Message != "" {
		final = automation.RenderLine(res.Status) + " done"
	}
	line.Stop(final)
	return runID, res, err
}

func runInteractive(ctx context.Context, mgr *runs.Manager, req runs.Request) (string, automation.Result, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newRunViewModel(req.Account, req.MaxApplications, cancel))
	reporter := automation.ReporterFunc(func(s model.StatusSnapshot) {
		p.Send(snapshotMsg(s))
	})

	done := make(chan runDoneMsg, 1)
	go func() {
		runID, res, err := mgr.Run(runCtx, req, reporter)
		msg := runDoneMsg{runID: runID, result: res, err: err}
		done <- msg
		p.Send(msg)
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-done
		return "", automation.Result{}, fmt.Errorf("run view: %w", err)
	}
	msg := <-done
	return msg.runID, msg.result, msg.err
}

func printRunSummary(account, runID string, res automation.Result) {
	status := "ok"
	if !res.Success {
		status = "fail"
	}
	fmt.Printf("%s [%s] run %s\n", account, status, runID)
	if res.Reason != "" {
		fmt.Printf("  reason: %s (%s)\n", res.Reason, res.Error)
	}
	fmt.Printf("  applied/processed: %d/%d\n", res.ApplicationsSubmitted, res.JobsProcessed)
	fmt.Printf("  already/skipped/errors: %d/%d/%d\n", res.AlreadyApplied, res.JobSkipped, res.JobErrors)
	if res.Status.Message != "" {
		fmt.Printf("  %s\n", res.Status.Message)
	}
}
