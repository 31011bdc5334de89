package domain

import "time"

// RunStats counts what happened during one pipeline run.
type RunStats struct {
	Fetched            int
	Enriched           int
	EnrichmentFailures int
	AudioGenerated     int
	SynthesisFailures  int
	Persisted          int
	StorageFailures    int
	TopicsFailed       int
	StartedAt          time.Time
	Duration           time.Duration
}

// SuccessRate is enriched over fetched, zero when nothing was fetched.
func (s RunStats) SuccessRate() float64 {
	if s.Fetched == 0 {
		return 0
	}
	return float64(s.Enriched) / float64(s.Fetched)
}
