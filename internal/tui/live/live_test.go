package live

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"beetest/internal/runner"
)

func TestUpdateTracksProgress(t *testing.T) {
	updates := make(runner.ProgressChan, 1)
	m := NewModel(updates, nil, 3, "http://localhost:1633")

	p := runner.Progress{
		Iteration: 1,
		Total:     3,
		Success:   1,
		Pausing:   true,
		NextAt:    time.Now().Add(time.Minute),
		Last:      runner.Record{Iteration: 1, RCHashDuration: 2 * time.Second},
	}
	next, cmd := m.Update(p)
	require.NotNil(t, cmd)
	m = next.(Model)
	require.Equal(t, 1, m.Last.Iteration)
	require.Equal(t, []float64{2}, m.RCHash.Data)

	// A repeated snapshot for the same iteration does not add a sample.
	next, _ = m.Update(p)
	m = next.(Model)
	require.Len(t, m.RCHash.Data, 1)

	view := m.View()
	require.Contains(t, view, "pausing")
	require.Contains(t, view, "LAST #1")
}

func TestClosedChannelQuits(t *testing.T) {
	updates := make(runner.ProgressChan)
	close(updates)
	m := NewModel(updates, nil, 1, "node")

	msg := waitForUpdate(updates)()
	require.IsType(t, closedMsg{}, msg)

	next, cmd := m.Update(msg)
	require.True(t, next.(Model).Finished)
	require.NotNil(t, cmd)
	require.Contains(t, next.(Model).View(), "done")
}

func TestQuitCancelsRun(t *testing.T) {
	cancelled := false
	m := NewModel(make(runner.ProgressChan), func() { cancelled = true }, 2, "node")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.True(t, cancelled)
	require.True(t, next.(Model).Interrupted)
	require.NotNil(t, cmd)
}
