// Package schedule fires runs for accounts that carry a cron schedule.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"easyapply/internal/logging"
	"easyapply/internal/workspace"
)

// StartFunc starts a run for account and returns its run ID.
type StartFunc func(account workspace.Account) (string, error)

type Entry struct {
	Account string    `json:"account"`
	Spec    string    `json:"schedule"`
	Next    time.Time `json:"next"`
}

// Scheduler wraps robfig/cron. Each firing re-reads the account from the registry,
// so edits made after Load apply to the next run.
type Scheduler struct {
	cron       *cron.Cron
	configPath string
	start      StartFunc
	log        *logging.Logger

	mu      sync.Mutex
	entries map[cron.EntryID]Entry
}

func New(configPath string, start StartFunc, log *logging.Logger) *Scheduler {
	if log == nil {
		log = logging.Nop()
	}
	return &Scheduler{
		cron:       cron.New(cron.WithLogger(cronLogger{log: log})),
		configPath: configPath,
		start:      start,
		log:        log,
		entries:    make(map[cron.EntryID]Entry),
	}
}

// Load registers every active account with a schedule. Accounts with an invalid
// spec are skipped and reported in the returned error.
func (s *Scheduler) Load() (int, error) {
	accounts, err := workspace.ResolveAccountSelection(s.configPath, "", true, true)
	if err != nil {
		if errors.Is(err, workspace.ErrNoAccountsConfigured) {
			return 0, nil
		}
		return 0, err
	}

	var errs []error
	added := 0
	for _, a := range accounts {
		if a.Schedule == "" {
			continue
		}
		name := a.Name
		id, err := s.cron.AddFunc(a.Schedule, func() { s.fire(name) })
		if err != nil {
			errs = append(errs, fmt.Errorf("account %q schedule %q: %w", a.Name, a.Schedule, err))
			continue
		}
		s.mu.Lock()
		s.entries[id] = Entry{Account: a.Name, Spec: a.Schedule}
		s.mu.Unlock()
		added++
	}
	return added, errors.Join(errs...)
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", "entries", len(s.cron.Entries()))
}

// Shutdown stops firing new runs and waits for in-flight triggers to return.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	stopped := s.cron.Stop()
	select {
	case <-stopped.Done():
		s.log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// Entries lists the registered schedules with their next firing time.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, 0, len(s.entries))
	for _, ce := range s.cron.Entries() {
		e, ok := s.entries[ce.ID]
		if !ok {
			continue
		}
		e.Next = ce.Next
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Account < out[j].Account })
	return out
}

func (s *Scheduler) fire(name string) {
	log := s.log.With("account", name)
	account, err := workspace.FindAccount(s.configPath, name)
	if err != nil {
		log.Warn("scheduled account no longer available", "err", err)
		return
	}
	if !workspace.IsActive(account) {
		log.Info("scheduled account is inactive, skipping")
		return
	}
	runID, err := s.start(account)
	if err != nil {
		log.Warn("scheduled run not started", "err", err)
		return
	}
	log.Info("scheduled run started", "run_id", runID)
}

// cronLogger adapts cron's logger to ours.
type cronLogger struct {
	log *logging.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}

// Validate reports whether spec is a schedule Load would accept.
func Validate(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}
