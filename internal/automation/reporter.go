package automation

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"easyapply/internal/logging"
	"easyapply/internal/model"
)

// Reporter receives a snapshot after every step of a run. Implementations must not block for long;
// the run does not wait for acknowledgment.
type Reporter interface {
	Report(s model.StatusSnapshot)
}

type ReporterFunc func(s model.StatusSnapshot)

func (f ReporterFunc) Report(s model.StatusSnapshot) {
	f(s)
}

// Fanout forwards every snapshot to each reporter in order. A panicking reporter
// does not stop the others.
type Fanout []Reporter

func (f Fanout) Report(s model.StatusSnapshot) {
	for _, r := range f {
		if r == nil {
			continue
		}
		func() {
			defer func() { _ = recover() }()
			r.Report(s)
		}()
	}
}

type LogReporter struct {
	Log *logging.Logger
}

func (r LogReporter) Report(s model.StatusSnapshot) {
	if r.Log == nil {
		return
	}
	kv := []any{
		"run_id", s.RunID,
		"account", s.Account,
		"status", s.Status,
		"state", s.State,
		"page", s.Counters.CurrentPage,
		"job", s.Counters.CurrentJob,
		"submitted", s.Counters.ApplicationsSubmitted,
		"processed", s.Counters.JobsProcessed,
	}
	switch s.Status {
	case model.StatusError:
		r.Log.Error(s.Message, kv...)
	case model.StatusWarning:
		r.Log.Warn(s.Message, kv...)
	default:
		r.Log.Info(s.Message, kv...)
	}
}

// LineReporter redraws a single terminal line with the latest snapshot.
type LineReporter struct {
	out      io.Writer
	interval time.Duration

	mu     sync.Mutex
	latest model.StatusSnapshot
	seen   bool

	stop chan struct{}
	done chan struct{}
}

func NewLineReporter(out io.Writer) *LineReporter {
	return &LineReporter{
		out:      out,
		interval: 700 * time.Millisecond,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (p *LineReporter) Report(s model.StatusSnapshot) {
	p.mu.Lock()
	p.latest = s
	p.seen = true
	p.mu.Unlock()
}

func (p *LineReporter) Start() {
	go func() {
		defer close(p.done)
		t := time.NewTicker(p.interval)
		defer t.Stop()
		for {
			select {
			case <-p.stop:
				return
			case <-t.C:
				if line, ok := p.render(); ok {
					fmt.Fprintf(p.out, "\r\033[2K%s", line)
				}
			}
		}
	}()
}

func (p *LineReporter) Stop(final string) {
	close(p.stop)
	<-p.done
	fmt.Fprintf(p.out, "\r\033[2K%s\n", final)
}

func (p *LineReporter) render() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.seen {
		return "", false
	}
	return RenderLine(p.latest), true
}

// RenderLine formats a snapshot as one compact status line.
func RenderLine(s model.StatusSnapshot) string {
	c := s.Counters
	parts := []string{
		fmt.Sprintf("[page %d job %d]", c.CurrentPage, c.CurrentJob),
		s.Status,
		fmt.Sprintf("applied %d/%d (%d%%)", c.ApplicationsSubmitted, c.MaxApplications, s.ProgressPercent),
		fmt.Sprintf("processed %d", c.JobsProcessed),
	}
	if c.AlreadyApplied > 0 {
		parts = append(parts, fmt.Sprintf("already %d", c.AlreadyApplied))
	}
	if c.JobSkipped > 0 {
		parts = append(parts, fmt.Sprintf("skipped %d", c.JobSkipped))
	}
	if c.JobErrors > 0 {
		parts = append(parts, fmt.Sprintf("errors %d", c.JobErrors))
	}
	msg := s.Message
	if r := []rune(msg); len(r) > 60 {
		msg = string(r[:60]) + "..."
	}
	if msg != "" {
		parts = append(parts, "| "+msg)
	}
	return strings.Join(parts, "  ")
}
