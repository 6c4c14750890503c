package cli

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"

	"easyapply/internal/config"
	"easyapply/internal/logging"
	"easyapply/internal/runs"
	"easyapply/internal/schedule"
	"easyapply/internal/shutdown"
	"easyapply/internal/web"
	"easyapply/internal/workspace"
)

const shutdownTimeout = 30 * time.Second

func runServe(args []string) error {
	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	host := fs.String("host", cfg.Host, "listen host")
	port := fs.Int("port", cfg.Port, "listen port")
	configPath := fs.String("config", cfg.ConfigPath, "accounts config path")
	dataDir := fs.String("data-dir", cfg.DataDir, "data directory (ledgers, uploads, runs)")
	chrome := fs.String("chrome", cfg.ChromePath, "Chrome/Chromium binary (empty = auto-detect)")
	redisURL := fs.String("redis-url", cfg.RedisURL, "publish run snapshots to redis (empty = off)")
	noSchedule := fs.Bool("no-schedule", false, "do not start cron schedules from account config")
	logLevel := fs.String("log-level", cfg.LogLevel, "debug|info|warn|error")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *port <= 0 || *port > 65535 {
		return fmt.Errorf("invalid --port %d", *port)
	}

	log := logging.New(*logLevel)
	defer func() { _ = log.Sync() }()

	cfgPath := strings.TrimSpace(*configPath)
	data := strings.TrimSpace(*dataDir)
	if _, _, err := workspace.EnsureRegistry(cfgPath); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var publisher *runs.RedisPublisher
	if u := strings.TrimSpace(*redisURL); u != "" {
		rdb, err := runs.NewRedisClient(ctx, u)
		if err != nil {
			return err
		}
		publisher = runs.NewRedisPublisher(rdb, log)
		log.Info("publishing run snapshots", "channel", runs.StatusChannel)
	}

	opts := runs.Options{
		Executor: newExecutor(strings.TrimSpace(*chrome), log),
		DataDir:  data,
		Log:      log,
	}
	if publisher != nil {
		opts.Publisher = publisher
	}
	mgr, err := runs.NewManager(opts)
	if err != nil {
		return err
	}

	var sched *schedule.Scheduler
	if !*noSchedule {
		sched = schedule.New(cfgPath, scheduledStart(cfgPath, data, mgr), log)
		n, err := sched.Load()
		if err != nil {
			log.Warn("some schedules were not loaded", "err", err)
		}
		sched.Start()
		log.Info("scheduler started", "accounts", n)
	}

	srv, err := web.New(web.Options{
		Addr:       net.JoinHostPort(strings.TrimSpace(*host), strconv.Itoa(*port)),
		Runs:       mgr,
		ConfigPath: cfgPath,
		DataDir:    data,
		Log:        log,
	})
	if err != nil {
		return err
	}

	listenErr := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		listenErr <- err
		if err != nil {
			log.Error("web server stopped", "err", err)
			cancel()
		}
	}()

	group := shutdown.Group{srv}
	if sched != nil {
		group = append(group, sched)
	}
	group = append(group, mgr)
	if publisher != nil {
		group = append(group, publisher)
	}
	shutdown.Graceful(ctx, []os.Signal{os.Interrupt, syscall.SIGTERM}, group, shutdownTimeout, log)

	select {
	case err := <-listenErr:
		return err
	default:
		return nil
	}
}

// scheduledStart resolves the account's run settings at fire time.
func scheduledStart(configPath, dataDir string, mgr *runs.Manager) schedule.StartFunc {
	return func(a workspace.Account) (string, error) {
		global, err := workspace.ReadGlobalSettings(configPath)
		if err != nil {
			return "", err
		}
		req, err := runs.RequestForAccount(a, global, dataDir, workspace.RunOverrides{}, "schedule")
		if err != nil {
			return "", err
		}
		return mgr.Start(req)
	}
}
