package domain

import "time"

// DetectionResult is one batch emitted by a strategy.
type DetectionResult struct {
	BatchID   string
	Records   []*CandidateRecord // order is preserved through the pipeline
	Source    Source
	Strategy  string
	EmittedAt time.Time
	Duration  time.Duration // time spent producing the batch
	BatchSize int           // size of the upstream batch before extraction
	Errors    []string
	Metadata  map[string]string

	// Signatures already handled by the strategy; recorded by the
	// coordinator so they are not fetched again.
	ProcessedSignatures []string
}

// DetectionSummary is the diagnostic emitted after each batch is processed.
type DetectionSummary struct {
	BatchID     string
	Strategy    string
	Source      Source
	Received    int // records in the batch
	Accepted    int
	Filtered    int // failed scoring
	Invalid     int // failed address validation
	Duplicates  int // already cached, not replaced
	Replaced    int // cached entry superseded by a higher trending score
	Cached      bool
	Duration    time.Duration // strategy-side processing time
	PipelineDur time.Duration // coordinator-side processing time
	ProcessedAt time.Time
	Errors      []string
}
