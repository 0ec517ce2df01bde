package mocknode

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Config shapes the fake node's answers.
type Config struct {
	Port          int
	Overlay       string
	StorageRadius int
	Neighborhoods int
	// RCHashDelay is slept by /rchash and reported back as durationSeconds.
	RCHashDelay time.Duration
	// FailEvery makes every Nth request (counted across all routes) fail
	// with FailStatus. 0 disables failures.
	FailEvery  int
	FailStatus int
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 1633
	}
	if c.Overlay == "" {
		c.Overlay = "501c5e7e7a1f0b2d3c4e5f60718293a4b5c6d7e8f90112233445566778899aab"
	}
	if c.Neighborhoods == 0 {
		c.Neighborhoods = 4
	}
	if c.FailStatus == 0 {
		c.FailStatus = http.StatusServiceUnavailable
	}
}

// Server emulates the subset of the Bee API that beetest exercises.
type Server struct {
	cfg    Config
	logger *zap.Logger

	mu     sync.Mutex
	total  int
	counts map[string]int
}

func New(cfg Config, logger *zap.Logger) *Server {
	cfg.applyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		cfg:    cfg,
		logger: logger,
		counts: make(map[string]int),
	}
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.failureInjector)

	r.Get("/rchash/{depth}/{anchor1}/{anchor2}", s.handleRCHash)
	r.Get("/status", s.handleStatus)
	r.Get("/status/neighborhoods", s.handleNeighborhoods)
	r.Get("/redistributionstate", s.handleRedistribution)
	return r
}

// Calls reports how many requests hit the given route pattern.
func (s *Server) Calls(pattern string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[pattern]
}

// Total reports requests seen on all routes, failed ones included.
func (s *Server) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// ListenAndServe blocks until ctx is cancelled or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	s.logger.Info("mock node listening", zap.String("addr", addr))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

func (s *Server) failureInjector(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.total++
		n := s.total
		s.mu.Unlock()

		if s.cfg.FailEvery > 0 && n%s.cfg.FailEvery == 0 {
			s.logger.Debug("injecting failure", zap.String("path", r.URL.Path), zap.Int("request", n))
			http.Error(w, http.StatusText(s.cfg.FailStatus), s.cfg.FailStatus)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// count runs inside handlers, where the route pattern is already resolved.
func (s *Server) count(r *http.Request) {
	pattern := chi.RouteContext(r.Context()).RoutePattern()
	s.mu.Lock()
	s.counts[pattern]++
	s.mu.Unlock()
}

func (s *Server) handleRCHash(w http.ResponseWriter, r *http.Request) {
	s.count(r)
	depth, err := strconv.Atoi(chi.URLParam(r, "depth"))
	if err != nil || depth < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"code": 400, "message": "invalid depth"})
		return
	}
	anchor1 := chi.URLParam(r, "anchor1")
	anchor2 := chi.URLParam(r, "anchor2")
	if _, err := hex.DecodeString(padHex(anchor1)); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"code": 400, "message": "invalid anchor1"})
		return
	}

	if s.cfg.RCHashDelay > 0 {
		select {
		case <-time.After(s.cfg.RCHashDelay):
		case <-r.Context().Done():
			return
		}
	}

	sum := sha256.Sum256([]byte(fmt.Sprintf("%d/%s/%s", depth, anchor1, anchor2)))
	writeJSON(w, http.StatusOK, map[string]any{
		"hash":            hex.EncodeToString(sum[:]),
		"durationSeconds": s.cfg.RCHashDelay.Seconds(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.count(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"overlay":                 s.cfg.Overlay,
		"proximity":               0,
		"beeMode":                 "full",
		"reserveSize":             4194304,
		"reserveSizeWithinRadius": 2097152,
		"pullsyncRate":            0.25,
		"storageRadius":           s.cfg.StorageRadius,
		"connectedPeers":          152,
		"neighborhoodSize":        8,
		"batchCommitment":         1073741824,
		"isReachable":             true,
		"lastSyncedBlock":         37051234,
		"committedDepth":          s.cfg.StorageRadius,
	})
}

func (s *Server) handleRedistribution(w http.ResponseWriter, r *http.Request) {
	s.count(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"minimumGasFunds":           "0",
		"hasSufficientFunds":        true,
		"isFrozen":                  false,
		"isFullySynced":             true,
		"phase":                     "claim",
		"round":                     261234,
		"lastWonRound":              0,
		"lastPlayedRound":           261200,
		"lastFrozenRound":           0,
		"lastSelectedRound":         0,
		"lastSampleDurationSeconds": s.cfg.RCHashDelay.Seconds(),
		"block":                     37051234,
		"reward":                    "0",
		"fees":                      "0",
		"isHealthy":                 true,
	})
}

func (s *Server) handleNeighborhoods(w http.ResponseWriter, r *http.Request) {
	s.count(r)
	hoods := make([]map[string]any, 0, s.cfg.Neighborhoods)
	for i := 0; i < s.cfg.Neighborhoods; i++ {
		hoods = append(hoods, map[string]any{
			"neighborhood":            strconv.FormatInt(int64(i), 2),
			"reserveSizeWithinRadius": 1000 + i,
			"proximity":               s.cfg.StorageRadius,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"neighborhoods": hoods})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func padHex(s string) string {
	if len(s)%2 == 1 {
		return s + "0"
	}
	return s
}
