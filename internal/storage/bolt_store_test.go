package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/pingcap/errors"
	"github.com/stretchr/testify/require"

	"beetest/internal/config"
	"beetest/internal/stats"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func item(id string, started time.Time) HistoryItem {
	return HistoryItem{
		ID:         id,
		StartedAt:  started,
		FinishedAt: started.Add(time.Minute),
		Config:     config.Config{NumRuns: 3, Neighbourhood: "501c", LogFile: "log.csv"},
		LogFile:    "log.csv",
		Summary:    stats.Summary{Iterations: 3, Requests: 12, Success: 12},
	}
}

func TestSaveListNewestFirst(t *testing.T) {
	s := openTemp(t)
	base := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)

	require.NoError(t, s.Save(item("bbbb-2", base.Add(time.Hour))))
	require.NoError(t, s.Save(item("aaaa-1", base)))
	require.NoError(t, s.Save(item("cccc-3", base.Add(2*time.Hour))))

	items, err := s.List()
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.Equal(t, "cccc-3", items[0].ID)
	require.Equal(t, "bbbb-2", items[1].ID)
	require.Equal(t, "aaaa-1", items[2].ID)
	require.Equal(t, 12, int(items[0].Summary.Requests))
	require.Equal(t, "501c", items[0].Config.Neighbourhood)
}

func TestGet(t *testing.T) {
	s := openTemp(t)
	base := time.Now()
	require.NoError(t, s.Save(item("0123456789", base)))
	require.NoError(t, s.Save(item("0123abcdef", base.Add(time.Second))))

	got, err := s.Get("0123456789")
	require.NoError(t, err)
	require.Equal(t, "0123456789", got.ID)

	got, err = s.Get("0123a")
	require.NoError(t, err)
	require.Equal(t, "0123abcdef", got.ID)

	_, err = s.Get("0123")
	require.Error(t, err)
	require.Contains(t, err.Error(), "ambiguous")

	_, err = s.Get("ffff")
	require.Equal(t, ErrNotFound, errors.Cause(err))
}

func TestSaveRequiresID(t *testing.T) {
	s := openTemp(t)
	require.Error(t, s.Save(HistoryItem{}))
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(item("persisted", time.Now())))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	items, err := s.List()
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, path, s.Path())
}
