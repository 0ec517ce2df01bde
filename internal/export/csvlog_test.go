package export

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"beetest/internal/bee"
	"beetest/internal/runner"
)

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	r := csv.NewReader(f)
	r.Comma = Delimiter
	rows, err := r.ReadAll()
	require.NoError(t, err)
	return rows
}

func sampleRecord(i int) runner.Record {
	overlay := "abcd"
	radius := 10
	peers := 3
	healthy := true
	start := time.Date(2026, 10, 17, 12, 0, 0, 0, time.Local)
	return runner.Record{
		Iteration:      i,
		Command:        `GET http://localhost:1633/rchash/10/501c/501c`,
		StartedAt:      start,
		EndedAt:        start.Add(1500 * time.Millisecond),
		RCHashDuration: 1500 * time.Millisecond,
		Status: &bee.Status{
			Overlay:        &overlay,
			StorageRadius:  &radius,
			ConnectedPeers: &peers,
		},
		Redistribution: &bee.RedistributionState{IsHealthy: &healthy},
		Neighborhoods:  4,
	}
}

func TestCSVLogAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "bee_test_log.csv")

	l, err := OpenCSVLog(path)
	require.NoError(t, err)
	require.True(t, l.Created())
	require.NoError(t, l.Write(sampleRecord(1)))
	require.NoError(t, l.Write(sampleRecord(2)))
	require.NoError(t, l.Close())

	l, err = OpenCSVLog(path)
	require.NoError(t, err)
	require.False(t, l.Created())
	require.NoError(t, l.Write(sampleRecord(3)))
	require.NoError(t, l.Close())

	rows := readRows(t, path)
	require.Len(t, rows, 4)
	require.Equal(t, runner.Header, rows[0])
	for _, row := range rows[1:] {
		require.Len(t, row, len(runner.Header))
	}

	row := rows[1]
	require.Equal(t, "2026-10-17T12:00:00.000000", row[0])
	require.Equal(t, "1.5", row[2])
	require.Equal(t, "N/A", row[4])  // reserveSizeWithinRadius omitted
	require.Equal(t, "abcd", row[6]) // overlay
	require.Equal(t, "10", row[8])
	require.Equal(t, "N/A", row[10]) // isFullySynced omitted
	require.Equal(t, "true", row[11])
	require.Equal(t, "4", row[12])
	require.Equal(t, "OK", row[13])
	require.Empty(t, row[14])
}

func TestCSVLogFailedIteration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	l, err := OpenCSVLog(path)
	require.NoError(t, err)

	refused := errors.New("dial tcp 127.0.0.1:1633: connect: connection refused")
	rec := runner.Record{
		Iteration:         1,
		RCHashErr:         refused,
		StatusErr:         refused,
		RedistributionErr: refused,
		NeighborhoodsErr:  refused,
	}
	require.NoError(t, l.Write(rec))
	require.NoError(t, l.Close())

	rows := readRows(t, path)
	require.Len(t, rows, 2)
	row := rows[1]
	for _, col := range row[4:14] {
		require.Equal(t, "ERROR", col)
	}
	require.Contains(t, row[14], "connection refused")
}

func TestWriteAfterClose(t *testing.T) {
	l, err := OpenCSVLog(filepath.Join(t.TempDir(), "log.csv"))
	require.NoError(t, err)
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
	require.Error(t, l.Write(sampleRecord(1)))
}

func TestFormatLine(t *testing.T) {
	require.Equal(t, "\"a\";\"b \"\"c\"\"\";\"\"\r\n", FormatLine([]string{"a", `b "c"`, ""}))
}

func TestExportJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.json")
	require.NoError(t, ExportJSON(map[string]int{"iterations": 3}, path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.JSONEq(t, `{"iterations": 3}`, string(data))
}

func TestSummaryPath(t *testing.T) {
	require.Equal(t, "out/bee_test_log.summary.json", SummaryPath("out/bee_test_log.csv"))
	require.Equal(t, "log.summary.json", SummaryPath("log"))
}
