package runner

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"beetest/internal/bee"
	"beetest/internal/config"
	"beetest/internal/mocknode"
)

type memorySink struct {
	mu      sync.Mutex
	records []Record
	failAt  int
}

func (s *memorySink) Write(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAt > 0 && rec.Iteration == s.failAt {
		return errors.New("disk full")
	}
	s.records = append(s.records, rec)
	return nil
}

func testConfig(runs int, pause time.Duration) config.Config {
	return config.Config{
		NumRuns:       runs,
		PauseDuration: pause,
		StorageRadius: 10,
		Neighbourhood: "501c",
		LogFile:       "unused.csv",
	}
}

func newMockAPI(t *testing.T, cfg mocknode.Config) (*bee.Client, *mocknode.Server) {
	t.Helper()
	node := mocknode.New(cfg, nil)
	ts := httptest.NewServer(node.Handler())
	t.Cleanup(ts.Close)
	return bee.NewClient(ts.URL, ts.Client(), 5*time.Second, nil), node
}

func TestRunExecutesNumRuns(t *testing.T) {
	api, node := newMockAPI(t, mocknode.Config{StorageRadius: 10, Neighborhoods: 5})
	sink := &memorySink{}
	r := NewRunner(testConfig(3, time.Second), api, sink, make(ProgressChan, 16), nil)

	var pauses []time.Duration
	r.sleep = func(ctx context.Context, d time.Duration) error {
		pauses = append(pauses, d)
		return nil
	}

	require.NoError(t, r.Run(context.Background()))
	require.Len(t, sink.records, 3)
	require.Equal(t, []time.Duration{time.Second, time.Second}, pauses)

	for i, rec := range sink.records {
		require.Equal(t, i+1, rec.Iteration)
		require.True(t, rec.Success(), "iteration %d: %v", rec.Iteration, rec.Err())
		require.Equal(t, 5, rec.Neighborhoods)
		require.True(t, rec.RCHashReported)
		require.Contains(t, rec.Command, "/rchash/10/501c/501c")
	}
	require.Equal(t, 3, node.Calls("/rchash/{depth}/{anchor1}/{anchor2}"))
	require.Equal(t, 3, node.Calls("/status"))
	require.Equal(t, 3, node.Calls("/redistributionstate"))
	require.Equal(t, 3, node.Calls("/status/neighborhoods"))

	sum := r.Stats.Summary()
	require.Equal(t, 3, sum.Iterations)
	require.EqualValues(t, 12, sum.Requests)
	require.Zero(t, sum.Fail)
	require.Len(t, r.Records(), 3)
}

func TestRunUnreachableNodeContinues(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	api := bee.NewClient(url, nil, time.Second, nil)
	sink := &memorySink{}
	r := NewRunner(testConfig(3, 0), api, sink, nil, nil)

	require.NoError(t, r.Run(context.Background()))
	require.Len(t, sink.records, 3)
	for _, rec := range sink.records {
		require.False(t, rec.Success())
		require.Error(t, rec.RCHashErr)
		require.Error(t, rec.StatusErr)
		require.Error(t, rec.RedistributionErr)
		require.Error(t, rec.NeighborhoodsErr)
		require.False(t, rec.RCHashReported)
	}
	sum := r.Stats.Summary()
	require.EqualValues(t, 12, sum.Fail)
	require.Zero(t, sum.RCHashSamples)
}

func TestRunPartialFailures(t *testing.T) {
	// Every 4th request fails, so each iteration loses its last call.
	api, _ := newMockAPI(t, mocknode.Config{FailEvery: 4})
	sink := &memorySink{}
	r := NewRunner(testConfig(2, 0), api, sink, nil, nil)

	require.NoError(t, r.Run(context.Background()))
	require.Len(t, sink.records, 2)
	for _, rec := range sink.records {
		require.NoError(t, rec.RCHashErr)
		require.NoError(t, rec.StatusErr)
		require.Error(t, rec.NeighborhoodsErr)
		var apiErr *bee.APIError
		require.True(t, errors.As(rec.NeighborhoodsErr, &apiErr))
		require.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	}
}

func TestRunPausesBetweenIterations(t *testing.T) {
	api, _ := newMockAPI(t, mocknode.Config{})
	sink := &memorySink{}
	pause := 50 * time.Millisecond
	r := NewRunner(testConfig(3, pause), api, sink, nil, nil)

	require.NoError(t, r.Run(context.Background()))
	require.Len(t, sink.records, 3)
	for i := 1; i < len(sink.records); i++ {
		gap := sink.records[i].StartedAt.Sub(sink.records[i-1].EndedAt)
		require.GreaterOrEqual(t, gap, pause)
	}
}

func TestRunSinkFailureStops(t *testing.T) {
	api, node := newMockAPI(t, mocknode.Config{})
	sink := &memorySink{failAt: 2}
	r := NewRunner(testConfig(5, 0), api, sink, nil, nil)

	err := r.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "disk full")
	require.Len(t, sink.records, 1)
	require.Equal(t, 2, node.Calls("/status"))
}

func TestRunCancelledDuringPause(t *testing.T) {
	api, _ := newMockAPI(t, mocknode.Config{})
	sink := &memorySink{}
	r := NewRunner(testConfig(3, time.Hour), api, sink, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return len(sink.records) == 1
	}, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not stop")
	}
	require.Len(t, sink.records, 1)
}

func TestRunPublishesProgress(t *testing.T) {
	api, _ := newMockAPI(t, mocknode.Config{})
	updates := make(ProgressChan, 16)
	r := NewRunner(testConfig(2, 0), api, &memorySink{}, updates, nil)

	require.NoError(t, r.Run(context.Background()))

	var got []Progress
	for p := range updates {
		got = append(got, p)
	}
	require.Len(t, got, 2)
	require.True(t, got[0].Pausing)
	require.Equal(t, 1, got[0].Iteration)
	require.True(t, got[1].Done)
	require.Equal(t, 2, got[1].Iteration)
	require.Equal(t, 2, got[1].Success)
	require.Equal(t, r.ID, got[1].RunID)
}
