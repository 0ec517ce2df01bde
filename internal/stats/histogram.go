package stats

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// maxTrackable bounds recorded values; rchash sampling on a large reserve can
// take many minutes.
const maxTrackable = time.Hour

// DurationHistogram is a thread-safe hdrhistogram of durations stored with
// microsecond resolution.
type DurationHistogram struct {
	hist *hdrhistogram.Histogram
	mu   sync.Mutex
}

func NewDurationHistogram() *DurationHistogram {
	// 1us to 1h, 3 significant figures
	h := hdrhistogram.New(1, int64(maxTrackable/time.Microsecond), 3)
	return &DurationHistogram{hist: h}
}

// Record clamps d into the trackable range and stores it.
func (h *DurationHistogram) Record(d time.Duration) {
	us := d.Microseconds()
	if us < 1 {
		us = 1
	}
	if max := int64(maxTrackable / time.Microsecond); us > max {
		us = max
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_ = h.hist.RecordValue(us)
}

// Quantile takes q in percent (50, 99, ...).
func (h *DurationHistogram) Quantile(q float64) time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return time.Duration(h.hist.ValueAtQuantile(q)) * time.Microsecond
}

func (h *DurationHistogram) Mean() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return time.Duration(h.hist.Mean() * float64(time.Microsecond))
}

func (h *DurationHistogram) Max() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return time.Duration(h.hist.Max()) * time.Microsecond
}

func (h *DurationHistogram) Count() int64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.hist.TotalCount()
}
