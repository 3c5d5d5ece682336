package domain

// Source tags which kind of feed produced a candidate.
type Source string

const (
	SourceWebSocket Source = "websocket"  // on-chain program log subscription
	SourceChainScan Source = "chain_scan" // direct token program scan
	SourcePolling   Source = "polling"    // market-data aggregator listing
	SourceBoost     Source = "boost"      // boosted/momentum feed
	SourceUnknown   Source = "unknown"
)

// String returns the string representation of Source.
func (s Source) String() string {
	return string(s)
}

// IsValid checks if the source is a known value.
func (s Source) IsValid() bool {
	switch s {
	case SourceWebSocket, SourceChainScan, SourcePolling, SourceBoost, SourceUnknown:
		return true
	}
	return false
}

// ParseSource maps free text to a Source, falling back to SourceUnknown.
func ParseSource(v string) Source {
	s := Source(v)
	if s.IsValid() {
		return s
	}
	return SourceUnknown
}
