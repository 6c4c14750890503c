// Package runs starts automation runs in the background and keeps their status by run ID.
package runs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"easyapply/internal/automation"
	"easyapply/internal/logging"
	"easyapply/internal/model"
	"easyapply/internal/runstore"
)

var (
	ErrAccountBusy = errors.New("a run is already active for this account")
	ErrRunNotFound = errors.New("run not found")
	ErrClosed      = errors.New("run manager is shutting down")
)

// View is what callers see of a run: its record plus the latest snapshot.
type View struct {
	runstore.RunRecord
	Snapshot model.StatusSnapshot `json:"snapshot"`
	Result   *automation.Result   `json:"result,omitempty"`
	Active   bool                 `json:"active"`
}

type entry struct {
	record   runstore.RunRecord
	snapshot model.StatusSnapshot
	result   *automation.Result
	done     chan struct{}
}

type Options struct {
	Executor  Executor
	DataDir   string
	Log       *logging.Logger
	Publisher automation.Reporter
}

// Manager allows at most one active run per account. The in-process map covers this
// process; the runstore lock directory covers other processes sharing the data dir.
type Manager struct {
	exec      Executor
	runsDir   string
	locksDir  string
	log       *logging.Logger
	publisher automation.Reporter
	newID     func() string
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	runs   map[string]*entry
	active map[string]string // account token -> run id
	closed bool
}

func NewManager(opts Options) (*Manager, error) {
	if opts.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	dataDir := strings.TrimSpace(opts.DataDir)
	if dataDir == "" {
		return nil, fmt.Errorf("data directory is required")
	}
	runsDir := runstore.RunsDir(dataDir)
	if err := runstore.Mkdir(runsDir); err != nil {
		return nil, err
	}
	log := opts.Log
	if log == nil {
		log = logging.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		exec:      opts.Executor,
		runsDir:   runsDir,
		locksDir:  runstore.LocksDir(dataDir),
		log:       log,
		publisher: opts.Publisher,
		newID:     uuid.NewString,
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
		runs:      make(map[string]*entry),
		active:    make(map[string]string),
	}, nil
}

// Start launches req on a background goroutine and returns its run ID.
func (m *Manager) Start(req Request) (string, error) {
	runID, run, err := m.prepare(req)
	if err != nil {
		return "", err
	}
	go func() {
		defer m.wg.Done()
		run(m.ctx, nil)
	}()
	return runID, nil
}

// Run executes req in the foreground. reporter, when set, sees every snapshot too.
func (m *Manager) Run(ctx context.Context, req Request, reporter automation.Reporter) (string, automation.Result, error) {
	runID, run, err := m.prepare(req)
	if err != nil {
		return "", automation.Result{}, err
	}
	defer m.wg.Done()

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		select {
		case <-m.ctx.Done():
			stop()
		case <-runCtx.Done():
		}
	}()
	return runID, run(runCtx, reporter), nil
}

// prepare registers the run and adds it to the wait group while the manager lock
// is held, so Shutdown either refuses it or waits for it. The caller must call
// m.wg.Done once the returned func has run.
func (m *Manager) prepare(req Request) (string, func(context.Context, automation.Reporter) automation.Result, error) {
	if strings.TrimSpace(req.Username) == "" {
		return "", nil, fmt.Errorf("username is required")
	}
	if strings.TrimSpace(req.LedgerPath) == "" {
		return "", nil, fmt.Errorf("ledger path is required")
	}
	if req.MaxApplications <= 0 {
		return "", nil, fmt.Errorf("max applications must be > 0")
	}
	if strings.TrimSpace(req.Account) == "" {
		req.Account = runstore.AccountToken(req.Username)
	}
	token := runstore.AccountToken(req.Username)
	runID := m.newID()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return "", nil, ErrClosed
	}
	if other, busy := m.active[token]; busy {
		m.mu.Unlock()
		return "", nil, fmt.Errorf("%w: %s (run %s)", ErrAccountBusy, req.Account, other)
	}
	lock, err := runstore.AcquireAccountLock(m.locksDir, req.Username, runID)
	if err != nil {
		m.mu.Unlock()
		if errors.Is(err, runstore.ErrAccountLocked) {
			return "", nil, fmt.Errorf("%w: %v", ErrAccountBusy, err)
		}
		return "", nil, err
	}

	startedAt := m.now().UTC().Format(time.RFC3339)
	e := &entry{
		record: runstore.RunRecord{
			RunID:     runID,
			Account:   req.Account,
			Trigger:   req.Trigger,
			StartedAt: startedAt,
			Status:    model.StatusInitializing,
			Counters:  model.NewRunCounters(req.MaxApplications),
		},
		snapshot: model.StatusSnapshot{
			RunID:     runID,
			Account:   req.Account,
			Status:    model.StatusInitializing,
			Message:   "Starting automation...",
			Counters:  model.NewRunCounters(req.MaxApplications),
			UpdatedAt: startedAt,
		},
		done: make(chan struct{}),
	}
	m.runs[runID] = e
	m.active[token] = runID
	m.wg.Add(1)
	m.mu.Unlock()

	m.persist(e.record)
	log := m.log.With("run_id", runID, "account", req.Account)
	log.Info("run started", "trigger", req.Trigger, "keyword", req.Keyword, "max_applications", req.MaxApplications)

	run := func(ctx context.Context, extra automation.Reporter) (res automation.Result) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("executor panicked", "panic", fmt.Sprint(r))
				res = automation.Result{Success: false, Reason: automation.ReasonInternalError, Error: fmt.Sprint(r)}
			}
			m.persist(m.complete(runID, res))
			if err := lock.Release(); err != nil {
				log.Warn("release account lock failed", "err", err)
			}
			m.deactivate(runID, token)
			log.Info("run finished", "success", res.Success, "reason", res.Reason,
				"submitted", res.ApplicationsSubmitted, "processed", res.JobsProcessed)
		}()

		reporters := automation.Fanout{automation.ReporterFunc(func(s model.StatusSnapshot) {
			m.update(runID, s)
		})}
		if m.publisher != nil {
			reporters = append(reporters, m.publisher)
		}
		if extra != nil {
			reporters = append(reporters, extra)
		}
		return m.exec.Execute(ctx, runID, req, reporters)
	}
	return runID, run, nil
}

func (m *Manager) update(runID string, s model.StatusSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.runs[runID]
	if !ok {
		return
	}
	e.snapshot = s
	e.record.Status = s.Status
	e.record.Counters = s.Counters
}

// complete stores the result and returns the final record.
func (m *Manager) complete(runID string, res automation.Result) runstore.RunRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.runs[runID]
	if !ok {
		return runstore.RunRecord{RunID: runID}
	}
	r := res
	e.result = &r
	if res.Status.RunID != "" {
		e.snapshot = res.Status
	}
	e.snapshot.Finished = true
	e.record.FinishedAt = m.now().UTC().Format(time.RFC3339)
	e.record.Reason = res.Reason
	e.record.Error = res.Error
	e.record.Counters = e.snapshot.Counters
	if res.Success {
		e.record.Status = e.snapshot.Status
	} else {
		e.record.Status = model.StatusError
	}
	return e.record
}

// deactivate frees the account and wakes waiters. It runs after the lock is released.
func (m *Manager) deactivate(runID, token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active[token] == runID {
		delete(m.active, token)
	}
	if e, ok := m.runs[runID]; ok {
		close(e.done)
	}
}

func (m *Manager) persist(rec runstore.RunRecord) {
	if err := runstore.SaveRunRecord(m.runsDir, rec); err != nil {
		m.log.Warn("save run record failed", "run_id", rec.RunID, "err", err)
	}
}

// Get returns a live run, or a finished one from disk.
func (m *Manager) Get(runID string) (View, error) {
	m.mu.RLock()
	e, ok := m.runs[runID]
	if ok {
		v := e.view()
		m.mu.RUnlock()
		return v, nil
	}
	m.mu.RUnlock()

	rec, err := runstore.LoadRunRecord(m.runsDir, runID)
	if err != nil {
		return View{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return View{
		RunRecord: rec,
		Snapshot: model.StatusSnapshot{
			RunID:    rec.RunID,
			Account:  rec.Account,
			Status:   rec.Status,
			Counters: rec.Counters,
			Finished: rec.FinishedAt != "",
		},
	}, nil
}

// List returns runs newest first: in-memory runs win over their persisted records.
func (m *Manager) List() ([]View, error) {
	records, err := runstore.ListRunRecords(m.runsDir)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	out := make([]View, 0, len(records)+len(m.runs))
	seen := make(map[string]bool, len(m.runs))
	for id, e := range m.runs {
		out = append(out, e.view())
		seen[id] = true
	}
	m.mu.RUnlock()

	for _, rec := range records {
		if seen[rec.RunID] {
			continue
		}
		out = append(out, View{RunRecord: rec, Snapshot: model.StatusSnapshot{
			RunID: rec.RunID, Account: rec.Account, Status: rec.Status, Counters: rec.Counters, Finished: rec.FinishedAt != "",
		}})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartedAt == out[j].StartedAt {
			return out[i].RunID > out[j].RunID
		}
		return out[i].StartedAt > out[j].StartedAt
	})
	return out, nil
}

// ActiveRun reports the run currently holding username's account, if any.
func (m *Manager) ActiveRun(username string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.active[runstore.AccountToken(username)]
	return id, ok
}

// Wait blocks until runID finishes or ctx is done.
func (m *Manager) Wait(ctx context.Context, runID string) (View, error) {
	m.mu.RLock()
	e, ok := m.runs[runID]
	m.mu.RUnlock()
	if !ok {
		return m.Get(runID)
	}
	select {
	case <-e.done:
		return m.Get(runID)
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

// Shutdown refuses new runs, cancels the active ones and waits for them to report.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("runs still active at shutdown: %w", ctx.Err())
	}
}

func (e *entry) view() View {
	v := View{RunRecord: e.record, Snapshot: e.snapshot, Active: e.result == nil}
	if e.result != nil {
		r := *e.result
		v.Result = &r
	}
	return v
}
