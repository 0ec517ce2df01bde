package runner

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"beetest/internal/bee"
)

// Endpoint names used for stats and progress reporting.
const (
	EndpointRCHash         = "rchash"
	EndpointStatus         = "status"
	EndpointRedistribution = "redistributionstate"
	EndpointNeighborhoods  = "neighborhoods"
)

const (
	valueMissing = "N/A"
	valueError   = "ERROR"
	valueOK      = "OK"

	timestampLayout = "2006-01-02T15:04:05.000000"
)

// Header lists the log columns in order.
var Header = []string{
	"timestamp_start_command",
	"command_executed",
	"rchash_duration_seconds",
	"timestamp_end_command",
	"reserveSizeWithinRadius",
	"reserveSize",
	"overlay",
	"pullsyncRate",
	"status_storageRadius",
	"connectedPeers",
	"isFullySynced",
	"isHealthy",
	"num_neighborhoods",
	"rchash_result",
	"errors",
}

// Record is the outcome of one iteration. A nil payload with a non-nil error
// means the call failed; a nil payload field means the node omitted it.
type Record struct {
	Iteration int
	Command   string
	StartedAt time.Time
	EndedAt   time.Time

	// RCHashDuration is the node-reported sampling time when available,
	// otherwise the measured request time.
	RCHashDuration time.Duration
	RCHashReported bool
	RCHash         *bee.RCHashResponse
	RCHashErr      error

	Status    *bee.Status
	StatusErr error

	Redistribution    *bee.RedistributionState
	RedistributionErr error

	Neighborhoods    int
	NeighborhoodsErr error
}

// Success reports whether every call of the iteration succeeded.
func (r *Record) Success() bool {
	return r.Err() == nil
}

// Err joins the errors of the iteration's calls.
func (r *Record) Err() error {
	return errors.Join(r.RCHashErr, r.StatusErr, r.RedistributionErr, r.NeighborhoodsErr)
}

// Fields renders the record in Header order.
func (r *Record) Fields() []string {
	out := make([]string, 0, len(Header))
	out = append(out,
		r.StartedAt.Format(timestampLayout),
		r.Command,
		formatFloat(r.RCHashDuration.Seconds()),
		r.EndedAt.Format(timestampLayout),
	)

	if r.StatusErr != nil || r.Status == nil {
		out = append(out, repeat(valueError, 6)...)
	} else {
		st := r.Status
		out = append(out,
			optInt64(st.ReserveSizeWithinRadius),
			optInt64(st.ReserveSize),
			optString(st.Overlay),
			optFloat(st.PullsyncRate),
			optInt(st.StorageRadius),
			optInt(st.ConnectedPeers),
		)
	}

	if r.RedistributionErr != nil || r.Redistribution == nil {
		out = append(out, valueError, valueError)
	} else {
		out = append(out,
			optBool(r.Redistribution.IsFullySynced),
			optBool(r.Redistribution.IsHealthy),
		)
	}

	if r.NeighborhoodsErr != nil {
		out = append(out, valueError)
	} else {
		out = append(out, strconv.Itoa(r.Neighborhoods))
	}

	if r.RCHashErr != nil {
		out = append(out, valueError)
	} else {
		out = append(out, valueOK)
	}

	errMsg := ""
	if err := r.Err(); err != nil {
		errMsg = strings.ReplaceAll(err.Error(), "\n", " | ")
	}
	out = append(out, errMsg)
	return out
}

func repeat(v string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func optString(v *string) string {
	if v == nil {
		return valueMissing
	}
	return *v
}

func optInt(v *int) string {
	if v == nil {
		return valueMissing
	}
	return strconv.Itoa(*v)
}

func optInt64(v *int64) string {
	if v == nil {
		return valueMissing
	}
	return strconv.FormatInt(*v, 10)
}

func optFloat(v *float64) string {
	if v == nil {
		return valueMissing
	}
	return formatFloat(*v)
}

func optBool(v *bool) string {
	if v == nil {
		return valueMissing
	}
	return strconv.FormatBool(*v)
}
