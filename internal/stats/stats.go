package stats

import (
	"sort"
	"sync"
	"time"
)

// Stats aggregates one session of iterations.
type Stats struct {
	mu         sync.Mutex
	iterations int
	endpoints  map[string]*endpointStats
	order      []string

	// RCHash holds the rchash duration of every successful sample.
	RCHash *DurationHistogram
}

type endpointStats struct {
	success uint64
	fail    uint64
	latency *DurationHistogram
	errors  map[string]int
}

func NewStats() *Stats {
	return &Stats{
		endpoints: make(map[string]*endpointStats),
		RCHash:    NewDurationHistogram(),
	}
}

// AddCall records one request against an endpoint.
func (s *Stats) AddCall(endpoint string, latency time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ep, ok := s.endpoints[endpoint]
	if !ok {
		ep = &endpointStats{latency: NewDurationHistogram(), errors: make(map[string]int)}
		s.endpoints[endpoint] = ep
		s.order = append(s.order, endpoint)
	}
	if err != nil {
		ep.fail++
		ep.errors[err.Error()]++
		return
	}
	ep.success++
	ep.latency.Record(latency)
}

func (s *Stats) AddRCHash(d time.Duration) {
	s.RCHash.Record(d)
}

func (s *Stats) AddIteration() {
	s.mu.Lock()
	s.iterations++
	s.mu.Unlock()
}

// ErrorRate is the share of failed calls in percent.
func (s *Stats) ErrorRate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ok, fail uint64
	for _, ep := range s.endpoints {
		ok += ep.success
		fail += ep.fail
	}
	if ok+fail == 0 {
		return 0
	}
	return float64(fail) / float64(ok+fail) * 100
}

// ErrorCounts merges error messages of all endpoints.
func (s *Stats) ErrorCounts() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int)
	for _, ep := range s.endpoints {
		for msg, n := range ep.errors {
			out[msg] += n
		}
	}
	return out
}

// Summary is the serializable end-of-session view.
type Summary struct {
	Iterations    int               `json:"iterations"`
	Requests      uint64            `json:"requests"`
	Success       uint64            `json:"success"`
	Fail          uint64            `json:"fail"`
	ErrorRate     float64           `json:"error_rate_pct"`
	RCHashSamples int64             `json:"rchash_samples"`
	RCHashP50Ms   float64           `json:"rchash_p50_ms"`
	RCHashP90Ms   float64           `json:"rchash_p90_ms"`
	RCHashP99Ms   float64           `json:"rchash_p99_ms"`
	RCHashMaxMs   float64           `json:"rchash_max_ms"`
	RCHashMeanMs  float64           `json:"rchash_mean_ms"`
	Endpoints     []EndpointSummary `json:"endpoints"`
}

type EndpointSummary struct {
	Name         string  `json:"name"`
	Success      uint64  `json:"success"`
	Fail         uint64  `json:"fail"`
	LatencyP50Ms float64 `json:"latency_p50_ms"`
	LatencyP99Ms float64 `json:"latency_p99_ms"`
}

func (s *Stats) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := Summary{Iterations: s.iterations}
	for _, name := range s.order {
		ep := s.endpoints[name]
		sum.Success += ep.success
		sum.Fail += ep.fail
		sum.Endpoints = append(sum.Endpoints, EndpointSummary{
			Name:         name,
			Success:      ep.success,
			Fail:         ep.fail,
			LatencyP50Ms: ms(ep.latency.Quantile(50)),
			LatencyP99Ms: ms(ep.latency.Quantile(99)),
		})
	}
	sum.Requests = sum.Success + sum.Fail
	if sum.Requests > 0 {
		sum.ErrorRate = float64(sum.Fail) / float64(sum.Requests) * 100
	}

	sum.RCHashSamples = s.RCHash.Count()
	if sum.RCHashSamples > 0 {
		sum.RCHashP50Ms = ms(s.RCHash.Quantile(50))
		sum.RCHashP90Ms = ms(s.RCHash.Quantile(90))
		sum.RCHashP99Ms = ms(s.RCHash.Quantile(99))
		sum.RCHashMaxMs = ms(s.RCHash.Max())
		sum.RCHashMeanMs = ms(s.RCHash.Mean())
	}
	return sum
}

// SortedErrors returns error messages by descending count.
func SortedErrors(counts map[string]int) []string {
	out := make([]string, 0, len(counts))
	for msg := range counts {
		out = append(out, msg)
	}
	sort.Slice(out, func(i, j int) bool {
		if counts[out[i]] != counts[out[j]] {
			return counts[out[i]] > counts[out[j]]
		}
		return out[i] < out[j]
	})
	return out
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
