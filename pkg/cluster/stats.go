package cluster

import "time"

// Stats records counts and per-phase wall time for one run. Phase times
// and the Candidates and SelectedBeforeDedupe counts are filled for
// single-shard runs only; sharded runs overlap their phases and fill
// just InputPoints, Shards, SelectedAfterDedupe and TotalSeconds.
type Stats struct {
	InputPoints          int
	Candidates           int
	SelectedBeforeDedupe int
	SelectedAfterDedupe  int
	Shards               int

	IndexSeconds     float64
	CandidateSeconds float64
	BuildSeconds     float64
	SelectSeconds    float64
	DedupeSeconds    float64
	TotalSeconds     float64
}

func elapsed(start time.Time) float64 {
	return time.Since(start).Seconds()
}
