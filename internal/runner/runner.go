package runner

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pingcap/errors"
	"go.uber.org/zap"

	"beetest/internal/bee"
	"beetest/internal/config"
	"beetest/internal/stats"
)

// NodeAPI is the part of the Bee API a run exercises.
type NodeAPI interface {
	RCHashURL(depth int, anchor1, anchor2 string) string
	RCHash(ctx context.Context, depth int, anchor1, anchor2 string) (*bee.RCHashResponse, error)
	Status(ctx context.Context) (*bee.Status, error)
	RedistributionState(ctx context.Context) (*bee.RedistributionState, error)
	Neighborhoods(ctx context.Context) (bee.NeighborhoodList, error)
}

// Sink receives one record per iteration, in order.
type Sink interface {
	Write(rec Record) error
}

// Progress is published after every iteration and while pausing.
type Progress struct {
	RunID     string
	Iteration int
	Total     int
	Success   int
	Fail      int
	Last      Record
	// Pausing is set while waiting; NextAt is when the next iteration starts.
	Pausing bool
	NextAt  time.Time
	Done    bool
}

// ProgressChan carries Progress snapshots to the CLI or the TUI.
type ProgressChan chan Progress

type Runner struct {
	ID      string
	Cfg     config.Config
	Stats   *stats.Stats
	Updates ProgressChan

	api    NodeAPI
	sink   Sink
	logger *zap.Logger

	success int
	fail    int
	records []Record

	// now and sleep are swapped out in tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRunner(cfg config.Config, api NodeAPI, sink Sink, updates ProgressChan, logger *zap.Logger) *Runner {
	if updates == nil {
		// Avoid nil panics if not provided
		updates = make(ProgressChan, 10)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.New().String()
	return &Runner{
		ID:      id,
		Cfg:     cfg,
		Stats:   stats.NewStats(),
		Updates: updates,
		api:     api,
		sink:    sink,
		logger:  logger.With(zap.String("runID", id)),
		now:     time.Now,
		sleep:   sleepContext,
	}
}

// Run performs Cfg.NumRuns iterations one after another. Failed node calls are
// recorded and do not stop the loop; a failing sink or a cancelled context do.
// Run closes Updates when it returns, so a Runner is good for a single run.
func (r *Runner) Run(ctx context.Context) error {
	defer close(r.Updates)

	total := r.Cfg.NumRuns
	r.logger.Info("starting run",
		zap.Int("numRuns", total),
		zap.Duration("pause", r.Cfg.PauseDuration),
		zap.String("rchashURL", r.api.RCHashURL(r.Cfg.StorageRadius, r.Cfg.Neighbourhood, r.Cfg.Neighbourhood)))

	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("run interrupted", zap.Int("completed", i-1))
			return errors.Trace(err)
		}

		rec := r.iterate(ctx, i)
		if err := r.sink.Write(rec); err != nil {
			return errors.Annotatef(err, "write record of iteration %d", i)
		}
		r.record(rec)

		if i == total {
			break
		}

		next := r.now().Add(r.Cfg.PauseDuration)
		r.publish(rec, true, next)
		r.logger.Debug("pausing", zap.Duration("pause", r.Cfg.PauseDuration))
		if err := r.sleep(ctx, r.Cfg.PauseDuration); err != nil {
			r.logger.Warn("run interrupted during pause", zap.Int("completed", i))
			return errors.Trace(err)
		}
	}

	r.logger.Info("run finished",
		zap.Int("iterations", total),
		zap.Int("success", r.success),
		zap.Int("fail", r.fail))
	r.publishDone()
	return nil
}

func (r *Runner) iterate(ctx context.Context, i int) Record {
	cfg := r.Cfg
	rec := Record{
		Iteration: i,
		Command:   "GET " + r.api.RCHashURL(cfg.StorageRadius, cfg.Neighbourhood, cfg.Neighbourhood),
	}

	rec.StartedAt = r.now()
	rc, err := r.api.RCHash(ctx, cfg.StorageRadius, cfg.Neighbourhood, cfg.Neighbourhood)
	rec.EndedAt = r.now()
	elapsed := rec.EndedAt.Sub(rec.StartedAt)
	r.Stats.AddCall(EndpointRCHash, elapsed, err)

	rec.RCHashDuration = elapsed
	rec.RCHash, rec.RCHashErr = rc, err
	if err == nil {
		if d, ok := rc.ReportedDuration(); ok {
			rec.RCHashDuration = d
			rec.RCHashReported = true
		}
		r.Stats.AddRCHash(rec.RCHashDuration)
	}

	var start time.Time

	start = r.now()
	rec.Status, rec.StatusErr = r.api.Status(ctx)
	r.Stats.AddCall(EndpointStatus, r.now().Sub(start), rec.StatusErr)

	start = r.now()
	rec.Redistribution, rec.RedistributionErr = r.api.RedistributionState(ctx)
	r.Stats.AddCall(EndpointRedistribution, r.now().Sub(start), rec.RedistributionErr)

	start = r.now()
	hoods, err := r.api.Neighborhoods(ctx)
	r.Stats.AddCall(EndpointNeighborhoods, r.now().Sub(start), err)
	rec.Neighborhoods, rec.NeighborhoodsErr = len(hoods), err

	fields := []zap.Field{
		zap.Int("iteration", i),
		zap.Duration("rchash", rec.RCHashDuration),
		zap.Bool("nodeReported", rec.RCHashReported),
	}
	if err := rec.Err(); err != nil {
		r.logger.Warn("iteration had failures", append(fields, zap.Error(err))...)
	} else {
		r.logger.Info("iteration complete", fields...)
	}
	return rec
}

func (r *Runner) record(rec Record) {
	r.Stats.AddIteration()
	if rec.Success() {
		r.success++
	} else {
		r.fail++
	}
	r.records = append(r.records, rec)
}

// Records returns the iterations completed so far.
func (r *Runner) Records() []Record {
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

func (r *Runner) snapshot(last Record) Progress {
	return Progress{
		RunID:     r.ID,
		Iteration: last.Iteration,
		Total:     r.Cfg.NumRuns,
		Success:   r.success,
		Fail:      r.fail,
		Last:      last,
	}
}

func (r *Runner) publish(last Record, pausing bool, next time.Time) {
	p := r.snapshot(last)
	p.Pausing = pausing
	p.NextAt = next
	r.send(p)
}

func (r *Runner) publishDone() {
	var last Record
	if n := len(r.records); n > 0 {
		last = r.records[n-1]
	}
	p := r.snapshot(last)
	p.Done = true
	r.send(p)
}

func (r *Runner) send(p Progress) {
	// Non-blocking send
	select {
	case r.Updates <- p:
	default:
		// Drop update if channel full, consumers only need the latest state
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
