package live

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"beetest/internal/runner"
	"beetest/internal/tui/components"
	"beetest/internal/tui/styles"
)

// closedMsg is delivered once the runner has closed its update channel.
type closedMsg struct{}

type Model struct {
	Updates runner.ProgressChan
	Cancel  context.CancelFunc
	Total   int
	Target  string

	Last     runner.Progress
	Progress progress.Model
	Spinner  spinner.Model
	RCHash   components.Sparkline

	Finished    bool
	Interrupted bool

	Width int
}

func NewModel(updates runner.ProgressChan, cancel context.CancelFunc, total int, target string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Active

	return Model{
		Updates:  updates,
		Cancel:   cancel,
		Total:    total,
		Target:   target,
		Progress: progress.New(progress.WithGradient(string(styles.ColorPrimary), string(styles.ColorSecondary))),
		Spinner:  sp,
		RCHash:   components.NewSparkline(40, "rchash duration (s)", styles.Warn),
	}
}

func waitForUpdate(ch runner.ProgressChan) tea.Cmd {
	return func() tea.Msg {
		p, ok := <-ch
		if !ok {
			return closedMsg{}
		}
		return p
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.Spinner.Tick, waitForUpdate(m.Updates))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case runner.Progress:
		if msg.Iteration > m.Last.Iteration {
			m.RCHash.Add(msg.Last.RCHashDuration.Seconds())
		}
		m.Last = msg
		pct := 0.0
		if m.Total > 0 {
			pct = float64(msg.Iteration) / float64(m.Total)
		}
		return m, tea.Batch(m.Progress.SetPercent(pct), waitForUpdate(m.Updates))

	case closedMsg:
		m.Finished = true
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.Interrupted = true
			if m.Cancel != nil {
				m.Cancel()
			}
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Progress.Width = msg.Width - 8
		if m.Progress.Width < 10 {
			m.Progress.Width = 10
		}
		m.RCHash.Width = msg.Width/2 - 4
		if m.RCHash.Width < 10 {
			m.RCHash.Width = 10
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		prog, cmd := m.Progress.Update(msg)
		m.Progress = prog.(progress.Model)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	s := strings.Builder{}
	s.WriteString(styles.Title.Render("Bee node test: " + m.Target))
	s.WriteString("\n\n")

	p := m.Last
	state := fmt.Sprintf("%s running iteration %d/%d", m.Spinner.View(), p.Iteration+1, m.Total)
	switch {
	case m.Finished || p.Done:
		state = styles.Success.Render("done")
	case p.Pausing:
		wait := time.Until(p.NextAt).Round(time.Second)
		if wait < 0 {
			wait = 0
		}
		state = fmt.Sprintf("%s pausing, next iteration in %s", m.Spinner.View(), wait)
	}

	counts := fmt.Sprintf("RUNS: %d/%d\nOK: %s  FAIL: %s",
		p.Iteration, m.Total,
		styles.Success.Render(fmt.Sprint(p.Success)),
		styles.Error.Render(fmt.Sprint(p.Fail)))

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Box.Render(counts),
		styles.Box.Render(lastIteration(p.Last)),
	))
	s.WriteString("\n\n")
	s.WriteString(styles.Box.Render(m.RCHash.View()))
	s.WriteString("\n\n")
	s.WriteString(state)
	s.WriteString("\n")
	s.WriteString(m.Progress.View())
	s.WriteString("\n\n")
	s.WriteString(styles.RenderKey("q", "stop run"))
	return s.String()
}

func lastIteration(rec runner.Record) string {
	if rec.Iteration == 0 {
		return styles.Subtle.Render("no iteration yet")
	}
	fields := rec.Fields()
	col := func(name string) string {
		for i, h := range runner.Header {
			if h == name {
				return fields[i]
			}
		}
		return ""
	}
	return fmt.Sprintf("LAST #%d %s\nrchash: %ss  peers: %s  radius: %s\nhealthy: %s  synced: %s  hoods: %s",
		rec.Iteration, styles.Outcome(rec.Success()),
		col("rchash_duration_seconds"), col("connectedPeers"), col("status_storageRadius"),
		col("isHealthy"), col("isFullySynced"), col("num_neighborhoods"))
}

// Run drives the live view until the runner finishes or the user quits.
// It reports whether the user interrupted the run.
func Run(updates runner.ProgressChan, cancel context.CancelFunc, total int, target string) (bool, error) {
	p := tea.NewProgram(NewModel(updates, cancel, total, target))
	final, err := p.Run()
	if err != nil {
		return false, err
	}
	m, _ := final.(Model)
	return m.Interrupted, nil
}
