package cli

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"easyapply/internal/automation"
	"easyapply/internal/model"
)

func TestRunViewKeepsRecentEvents(t *testing.T) {
	m := newRunViewModel("main", 3, nil)

	var tm tea.Model = m
	for i := 0; i < runViewEvents+2; i++ {
		tm, _ = tm.Update(snapshotMsg(model.StatusSnapshot{
			Status:          model.StatusRunning,
			Message:         "step " + string(rune('a'+i)),
			ProgressPercent: 33,
		}))
	}
	got := tm.(runViewModel)
	if len(got.events) != runViewEvents {
		t.Fatalf("expected %d events, got %d", runViewEvents, len(got.events))
	}
	if !strings.HasSuffix(got.events[len(got.events)-1], "step h") {
		t.Fatalf("expected newest event last, got %q", got.events[len(got.events)-1])
	}

	// a repeated message is not a new event
	tm, _ = tm.Update(snapshotMsg(model.StatusSnapshot{Status: model.StatusRunning, Message: "step h"}))
	if len(tm.(runViewModel).events) != runViewEvents {
		t.Fatal("duplicate message should not be appended")
	}
}

func TestRunViewQuitCancelsRunButWaitsForDone(t *testing.T) {
	cancelled := 0
	m := newRunViewModel("main", 3, func() { cancelled++ })

	tm, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cancelled != 1 {
		t.Fatalf("expected cancel once, got %d", cancelled)
	}
	if cmd != nil {
		t.Fatal("view must not quit before the run reports done")
	}
	if !tm.(runViewModel).cancelling {
		t.Fatal("expected cancelling state")
	}

	tm, _ = tm.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cancelled != 1 {
		t.Fatalf("cancel should only fire once, got %d", cancelled)
	}

	res := automation.Result{Success: true, Status: model.StatusSnapshot{Status: model.StatusCompletedNoApplications, Message: "Completed - No applications submitted"}}
	tm, cmd = tm.Update(runDoneMsg{runID: "r1", result: res})
	if cmd == nil {
		t.Fatal("expected quit command after done")
	}
	if msg := cmd(); msg != (tea.QuitMsg{}) {
		t.Fatalf("expected QuitMsg, got %T", msg)
	}
	if view := tm.View(); !strings.Contains(view, "No applications submitted") {
		t.Fatalf("final view missing result message:\n%s", view)
	}
}

func TestRunViewShowsErrors(t *testing.T) {
	m := newRunViewModel("main", 3, nil)
	tm, _ := m.Update(runDoneMsg{err: errors.New("account is busy")})
	if view := tm.View(); !strings.Contains(view, "error: account is busy") {
		t.Fatalf("expected error in view:\n%s", view)
	}

	tm, _ = m.Update(runDoneMsg{result: automation.Result{Reason: automation.ReasonLoginFailed, Error: "login failed: bad password"}})
	if view := tm.View(); !strings.Contains(view, "failed (login_failed)") {
		t.Fatalf("expected failure reason in view:\n%s", view)
	}
}
