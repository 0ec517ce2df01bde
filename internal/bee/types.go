package bee

import (
	"encoding/json"
	"fmt"
	"time"
)

// RCHashResponse is returned by GET /rchash/{depth}/{anchor1}/{anchor2}.
// Bee reports the sampling time as durationSeconds; older builds used duration.
type RCHashResponse struct {
	Hash            string   `json:"hash,omitempty"`
	DurationSeconds *float64 `json:"durationSeconds,omitempty"`
	Duration        *float64 `json:"duration,omitempty"`
}

// ReportedDuration returns the node-side sampling duration if the node sent one.
func (r *RCHashResponse) ReportedDuration() (time.Duration, bool) {
	if r == nil {
		return 0, false
	}
	secs := r.DurationSeconds
	if secs == nil {
		secs = r.Duration
	}
	if secs == nil {
		return 0, false
	}
	return time.Duration(*secs * float64(time.Second)), true
}

// Status is the subset of GET /status the harness records. Pointer fields are
// nil when the node omitted them.
type Status struct {
	Overlay                 *string  `json:"overlay,omitempty"`
	BeeMode                 string   `json:"beeMode,omitempty"`
	Proximity               *int     `json:"proximity,omitempty"`
	ReserveSize             *int64   `json:"reserveSize,omitempty"`
	ReserveSizeWithinRadius *int64   `json:"reserveSizeWithinRadius,omitempty"`
	PullsyncRate            *float64 `json:"pullsyncRate,omitempty"`
	StorageRadius           *int     `json:"storageRadius,omitempty"`
	ConnectedPeers          *int     `json:"connectedPeers,omitempty"`
	NeighborhoodSize        *int     `json:"neighborhoodSize,omitempty"`
	IsReachable             *bool    `json:"isReachable,omitempty"`
	LastSyncedBlock         *uint64  `json:"lastSyncedBlock,omitempty"`
	CommittedDepth          *int     `json:"committedDepth,omitempty"`
}

// RedistributionState is the subset of GET /redistributionstate the harness records.
type RedistributionState struct {
	IsFrozen      *bool  `json:"isFrozen,omitempty"`
	IsFullySynced *bool  `json:"isFullySynced,omitempty"`
	IsHealthy     *bool  `json:"isHealthy,omitempty"`
	Phase         string `json:"phase,omitempty"`
	Round         uint64 `json:"round,omitempty"`
	LastWonRound  uint64 `json:"lastWonRound,omitempty"`
	Block         uint64 `json:"block,omitempty"`
	Reward        string `json:"reward,omitempty"`
	Fees          string `json:"fees,omitempty"`
}

// Neighborhood is one entry of GET /status/neighborhoods.
type Neighborhood struct {
	Neighborhood            string `json:"neighborhood"`
	ReserveSizeWithinRadius int64  `json:"reserveSizeWithinRadius"`
	Proximity               int    `json:"proximity"`
}

// NeighborhoodList accepts both the bare array and the
// {"neighborhoods": [...]} envelope.
type NeighborhoodList []Neighborhood

func (l *NeighborhoodList) UnmarshalJSON(b []byte) error {
	var arr []Neighborhood
	if err := json.Unmarshal(b, &arr); err == nil {
		*l = arr
		return nil
	}
	var env struct {
		Neighborhoods *[]Neighborhood `json:"neighborhoods"`
	}
	if err := json.Unmarshal(b, &env); err != nil {
		return err
	}
	if env.Neighborhoods == nil {
		return fmt.Errorf("response has no neighborhoods list")
	}
	*l = *env.Neighborhoods
	return nil
}
