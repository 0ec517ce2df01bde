package history

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"beetest/internal/config"
	"beetest/internal/stats"
	"beetest/internal/storage"
)

func TestRows(t *testing.T) {
	items := []storage.HistoryItem{{
		ID:          "0123456789abcdef",
		StartedAt:   time.Date(2026, 10, 17, 8, 0, 0, 0, time.Local),
		Config:      config.Config{NumRuns: 5, StorageRadius: 10, Neighbourhood: "501c"},
		LogFile:     "bee_test_log.csv",
		Interrupted: true,
		Summary:     stats.Summary{Iterations: 2, Fail: 1, RCHashP50Ms: 1500, RCHashMaxMs: 2250},
	}}

	rows := Rows(items)
	require.Len(t, rows, 1)
	row := rows[0]
	require.Equal(t, "01234567", row[0])
	require.Equal(t, "2026-10-17 08:00:00", row[1])
	require.Equal(t, "2/5!", row[2])
	require.Equal(t, "501c", row[4])
	require.Equal(t, "1.50", row[6])
	require.Equal(t, "2.25", row[7])

	plain := Plain(items)
	lines := strings.Split(strings.TrimSpace(plain), "\n")
	require.Len(t, lines, 2)
	require.True(t, strings.HasPrefix(lines[0], "ID\tStarted"))
}

func TestEmptyView(t *testing.T) {
	m := NewModel(nil)
	require.True(t, m.Empty)
	require.Contains(t, m.View(), "No history found")
}

func TestDetail(t *testing.T) {
	out := Detail(storage.HistoryItem{
		ID:     "abc",
		Config: config.Config{NumRuns: 2, NodeURL: config.DefaultNodeURL},
		Summary: stats.Summary{
			Iterations:    2,
			RCHashSamples: 2,
			RCHashP50Ms:   1000,
			Endpoints:     []stats.EndpointSummary{{Name: "rchash", Success: 2}},
		},
	})
	require.Contains(t, out, "abc (completed)")
	require.Contains(t, out, "Runs      : 2/2")
	require.Contains(t, out, "p50 1.00s")
	require.Contains(t, out, "rchash")
}
