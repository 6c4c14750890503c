package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"easyapply/internal/automation"
	"easyapply/internal/model"
)

const runViewEvents = 6

var (
	runTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	runMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	runErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	runOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	runWarnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	runPanelStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type snapshotMsg model.StatusSnapshot

type runDoneMsg struct {
	runID  string
	result automation.Result
	err    error
}

// runViewModel renders one foreground run. Quitting only asks the run to stop;
// the program exits once the run reports done.
type runViewModel struct {
	account string
	spin    spinner.Model
	bar     progress.Model
	snap    model.StatusSnapshot
	events  []string
	cancel  func()

	cancelling bool
	done       *runDoneMsg
}

func newRunViewModel(account string, maxApplications int, cancel func()) runViewModel {
	return runViewModel{
		account: account,
		spin:    spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(runTitleStyle)),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		snap: model.StatusSnapshot{
			Status:   model.StatusInitializing,
			Message:  "Starting automation...",
			Counters: model.NewRunCounters(maxApplications),
		},
		cancel: cancel,
	}
}

func (m runViewModel) Init() tea.Cmd {
	return m.spin.Tick
}

func (m runViewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = max(10, min(60, msg.Width-20))
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if m.done != nil {
				return m, tea.Quit
			}
			if !m.cancelling {
				m.cancelling = true
				if m.cancel != nil {
					m.cancel()
				}
			}
		}
		return m, nil
	case snapshotMsg:
		snap := model.StatusSnapshot(msg)
		if snap.Message != "" && snap.Message != m.snap.Message {
			m.events = append(m.events, formatRunEvent(snap))
			if len(m.events) > runViewEvents {
				m.events = m.events[len(m.events)-runViewEvents:]
			}
		}
		m.snap = snap
		return m, m.bar.SetPercent(float64(snap.ProgressPercent) / 100)
	case runDoneMsg:
		m.done = &msg
		if msg.err == nil {
			m.snap = msg.result.Status
		}
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case progress.FrameMsg:
		next, cmd := m.bar.Update(msg)
		if bar, ok := next.(progress.Model); ok {
			m.bar = bar
		}
		return m, cmd
	}
	return m, nil
}

func (m runViewModel) View() string {
	c := m.snap.Counters

	header := fmt.Sprintf("%s %s", m.spin.View(), runTitleStyle.Render("easyapply · "+m.account))
	if m.done != nil {
		header = runTitleStyle.Render("easyapply · " + m.account)
	}
	page := runMutedStyle.Render(fmt.Sprintf("page %d · job %d · state %s", c.CurrentPage, c.CurrentJob, orDash(string(m.snap.State))))
	counts := fmt.Sprintf("applied %d/%d   processed %d   already %d   skipped %d   errors %d",
		c.ApplicationsSubmitted, c.MaxApplications, c.JobsProcessed, c.AlreadyApplied, c.JobSkipped, c.JobErrors)
	if c.TotalJobs != "" {
		counts += runMutedStyle.Render("   (" + c.TotalJobs + " results)")
	}

	lines := []string{header, page, m.bar.View(), counts, ""}
	if len(m.events) == 0 {
		lines = append(lines, runMutedStyle.Render("(waiting for first status)"))
	}
	lines = append(lines, m.events...)

	switch {
	case m.done != nil:
		lines = append(lines, "", m.finalLine())
	case m.cancelling:
		lines = append(lines, "", runWarnStyle.Render("stopping after the current step..."))
	default:
		lines = append(lines, "", runMutedStyle.Render("q: stop run"))
	}
	return runPanelStyle.Render(strings.Join(lines, "\n")) + "\n"
}

func (m runViewModel) finalLine() string {
	if m.done.err != nil {
		return runErrorStyle.Render("error: " + m.done.err.Error())
	}
	res := m.done.result
	if !res.Success {
		return runErrorStyle.Render(fmt.Sprintf("failed (%s): %s", res.Reason, res.Error))
	}
	return runOKStyle.Render(res.Status.Message)
}

func formatRunEvent(s model.StatusSnapshot) string {
	msg := s.Message
	switch s.Status {
	case model.StatusError:
		return runErrorStyle.Render("✗ ") + msg
	case model.StatusWarning:
		return runWarnStyle.Render("! ") + msg
	case model.StatusSuccess, model.StatusCompleted:
		return runOKStyle.Render("✓ ") + msg
	case model.StatusSkipped:
		return runMutedStyle.Render("- " + msg)
	default:
		return "· " + msg
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
