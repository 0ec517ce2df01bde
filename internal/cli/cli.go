package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"beetest/internal/config"
	"beetest/internal/runner"
	"beetest/internal/stats"
)

const rule = "======================================================================"

func PrintHeader(w io.Writer, cfg config.Config, rchashURL string, logCreated bool) {
	fmt.Fprintf(w, "\n🐝 STARTING BEE NODE TEST\n")
	fmt.Fprintf(w, "%s\n", rule)
	fmt.Fprintf(w, "Node        : %s\n", cfg.NodeURL)
	fmt.Fprintf(w, "rchash      : GET %s\n", rchashURL)
	fmt.Fprintf(w, "Runs        : %d\n", cfg.NumRuns)
	fmt.Fprintf(w, "Pause       : %s\n", cfg.PauseDuration)
	if logCreated {
		fmt.Fprintf(w, "Log file    : %s (new, header written)\n", cfg.LogFile)
	} else {
		fmt.Fprintf(w, "Log file    : %s (appending)\n", cfg.LogFile)
	}
	fmt.Fprintf(w, "%s\n\n", rule)
}

// Monitor prints one line per finished iteration until updates is closed.
func Monitor(w io.Writer, updates runner.ProgressChan) {
	printed := 0
	for p := range updates {
		if p.Iteration > printed {
			fmt.Fprintln(w, IterationLine(p))
			printed = p.Iteration
		}
		if p.Pausing {
			fmt.Fprintf(w, "   ⏸  pausing until %s\n", p.NextAt.Format("15:04:05"))
		}
	}
}

// IterationLine summarizes the last record of p.
func IterationLine(p runner.Progress) string {
	rec := p.Last
	pct := 0.0
	if p.Total > 0 {
		pct = float64(p.Iteration) / float64(p.Total)
	}

	source := "measured"
	if rec.RCHashReported {
		source = "node"
	}
	line := fmt.Sprintf("%s %3.0f%% | #%d/%d | rchash %s (%s)",
		progressBar(pct, 20), pct*100,
		p.Iteration, p.Total,
		rec.RCHashDuration.Round(time.Millisecond), source)

	if rec.Status != nil && rec.Status.ConnectedPeers != nil {
		line += fmt.Sprintf(" | peers %d", *rec.Status.ConnectedPeers)
	}
	if rec.NeighborhoodsErr == nil {
		line += fmt.Sprintf(" | hoods %d", rec.Neighborhoods)
	}
	if err := rec.Err(); err != nil {
		line += " | ❌ " + strings.ReplaceAll(err.Error(), "\n", "; ")
	} else {
		line += " | ✅"
	}
	return line
}

func progressBar(pct float64, width int) string {
	filled := int(pct * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("-", width-filled) + "]"
}

func PrintSummary(w io.Writer, sum stats.Summary, errCounts map[string]int, totalTime time.Duration, logFile string) {
	fmt.Fprintf(w, "\n📊 TEST RESULTS\n")
	fmt.Fprintf(w, "%s\n", rule)
	fmt.Fprintf(w, "Total Duration : %s\n", totalTime.Round(time.Second))
	fmt.Fprintf(w, "Iterations     : %d\n", sum.Iterations)
	fmt.Fprintf(w, "Requests       : %d\n", sum.Requests)
	fmt.Fprintf(w, "Success        : %d\n", sum.Success)
	fmt.Fprintf(w, "Failures       : %d (%.1f%%)\n", sum.Fail, sum.ErrorRate)

	if sum.RCHashSamples > 0 {
		fmt.Fprintf(w, "\n⏱️  RCHASH DURATION (s)\n")
		fmt.Fprintf(w, "   P50  : %.2f\n", sum.RCHashP50Ms/1000)
		fmt.Fprintf(w, "   P90  : %.2f\n", sum.RCHashP90Ms/1000)
		fmt.Fprintf(w, "   P99  : %.2f\n", sum.RCHashP99Ms/1000)
		fmt.Fprintf(w, "   Max  : %.2f\n", sum.RCHashMaxMs/1000)
		fmt.Fprintf(w, "   Mean : %.2f\n", sum.RCHashMeanMs/1000)
	}

	if len(sum.Endpoints) > 0 {
		fmt.Fprintf(w, "\n🌐 ENDPOINTS (latency ms)\n")
		for _, ep := range sum.Endpoints {
			fmt.Fprintf(w, "   %-20s ok %-4d fail %-4d p50 %.1f p99 %.1f\n",
				ep.Name, ep.Success, ep.Fail, ep.LatencyP50Ms, ep.LatencyP99Ms)
		}
	}

	if len(errCounts) > 0 {
		fmt.Fprintf(w, "\n❌ FAILURE SUMMARY\n")
		for _, msg := range stats.SortedErrors(errCounts) {
			fmt.Fprintf(w, "   %d x %s\n", errCounts[msg], msg)
		}
	}
	fmt.Fprintf(w, "%s\n", rule)
	fmt.Fprintf(w, "All results saved to '%s'.\n", logFile)
}
