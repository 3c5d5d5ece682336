package domain

import "time"

// StrategyStatus is the runtime state reported by a strategy.
type StrategyStatus struct {
	Name              string
	Running           bool
	TotalDetected     int64
	LastDetection     time.Time
	ErrorCount        int64
	AvgProcessingTime time.Duration
}

// DetectorStatus is the coordinator-wide view.
type DetectorStatus struct {
	Running        bool
	Preset         string
	Strategies     map[string]StrategyStatus
	DetectedCount  int
	DetectedCap    int
	SignatureCount int
	SignatureCap   int
	TotalReceived  int64
	TotalAccepted  int64
	TotalFiltered  int64
	TotalInvalid   int64
	LastCleanup    time.Time
	StartedAt      time.Time
}
