package history

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"beetest/internal/storage"
	"beetest/internal/tui/styles"
)

var columns = []table.Column{
	{Title: "ID", Width: 10},
	{Title: "Started", Width: 19},
	{Title: "Runs", Width: 6},
	{Title: "Radius", Width: 6},
	{Title: "Hood", Width: 8},
	{Title: "Fail", Width: 6},
	{Title: "rchash p50 (s)", Width: 14},
	{Title: "rchash max (s)", Width: 14},
	{Title: "Log", Width: 28},
}

// Rows renders history items in the column order above.
func Rows(items []storage.HistoryItem) []table.Row {
	rows := make([]table.Row, 0, len(items))
	for _, item := range items {
		id := item.ID
		if len(id) > 8 {
			id = id[:8]
		}
		runs := fmt.Sprintf("%d/%d", item.Summary.Iterations, item.Config.NumRuns)
		if item.Interrupted {
			runs += "!"
		}
		rows = append(rows, table.Row{
			id,
			item.StartedAt.Local().Format("2006-01-02 15:04:05"),
			runs,
			fmt.Sprintf("%d", item.Config.StorageRadius),
			item.Config.Neighbourhood,
			fmt.Sprintf("%d", item.Summary.Fail),
			fmt.Sprintf("%.2f", item.Summary.RCHashP50Ms/1000),
			fmt.Sprintf("%.2f", item.Summary.RCHashMaxMs/1000),
			item.LogFile,
		})
	}
	return rows
}

type Model struct {
	Table table.Model
	Empty bool
}

func NewModel(items []storage.HistoryItem) Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(Rows(items)),
		table.WithFocused(true),
		table.WithHeight(min(len(items)+1, 20)),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.ColorBorder).
		BorderBottom(true).
		Bold(true).
		Foreground(styles.ColorPrimary)
	s.Selected = s.Selected.
		Foreground(styles.ColorBg).
		Background(styles.ColorPrimary).
		Bold(true)
	t.SetStyles(s)

	return Model{Table: t, Empty: len(items) == 0}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Table.SetHeight(max(msg.Height-6, 3))
	}
	var cmd tea.Cmd
	m.Table, cmd = m.Table.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	s := strings.Builder{}
	s.WriteString(styles.Title.Render("Past sessions"))
	s.WriteString("\n\n")
	if m.Empty {
		s.WriteString(styles.Subtle.Render("No history found.\nRun a test to generate data."))
	} else {
		s.WriteString(styles.Box.Render(m.Table.View()))
	}
	s.WriteString("\n\n")
	s.WriteString(styles.RenderKey("q", "quit"))
	return s.String()
}

// Show runs the interactive table.
func Show(items []storage.HistoryItem) error {
	_, err := tea.NewProgram(NewModel(items)).Run()
	return err
}

// Plain renders items as tab separated text for non-interactive output.
func Plain(items []storage.HistoryItem) string {
	var b strings.Builder
	titles := make([]string, len(columns))
	for i, c := range columns {
		titles[i] = c.Title
	}
	b.WriteString(strings.Join(titles, "\t"))
	b.WriteString("\n")
	for _, row := range Rows(items) {
		b.WriteString(strings.Join(row, "\t"))
		b.WriteString("\n")
	}
	return b.String()
}

// Detail renders one session with its per-endpoint numbers.
func Detail(item storage.HistoryItem) string {
	var b strings.Builder
	status := "completed"
	if item.Interrupted {
		status = "interrupted"
	}
	fmt.Fprintf(&b, "Session   : %s (%s)\n", item.ID, status)
	fmt.Fprintf(&b, "Started   : %s\n", item.StartedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Finished  : %s\n", item.FinishedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Node      : %s\n", item.Config.NodeURL)
	fmt.Fprintf(&b, "Radius    : %d\n", item.Config.StorageRadius)
	fmt.Fprintf(&b, "Hood      : %s\n", item.Config.Neighbourhood)
	fmt.Fprintf(&b, "Runs      : %d/%d\n", item.Summary.Iterations, item.Config.NumRuns)
	fmt.Fprintf(&b, "Log       : %s\n", item.LogFile)
	fmt.Fprintf(&b, "Requests  : %d (%d failed, %.1f%%)\n", item.Summary.Requests, item.Summary.Fail, item.Summary.ErrorRate)
	if item.Summary.RCHashSamples > 0 {
		fmt.Fprintf(&b, "rchash    : p50 %.2fs  p99 %.2fs  max %.2fs\n",
			item.Summary.RCHashP50Ms/1000, item.Summary.RCHashP99Ms/1000, item.Summary.RCHashMaxMs/1000)
	}
	for _, ep := range item.Summary.Endpoints {
		fmt.Fprintf(&b, "  %-20s ok %-4d fail %-4d p50 %.1fms\n", ep.Name, ep.Success, ep.Fail, ep.LatencyP50Ms)
	}
	return b.String()
}
