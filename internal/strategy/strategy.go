// Package strategy implements the detection sources feeding the coordinator.
//
// Every strategy follows the same lifecycle: Stopped -> Start -> Running ->
// Stop -> Stopped. Results are delivered on a channel owned by the strategy
// that is never closed; consumers stop reading when they stop the strategy.
package strategy

import (
	"context"
	"errors"

	"solana-token-radar/internal/domain"
	"solana-token-radar/internal/solana"
)

// Lifecycle errors.
var (
	ErrConnectionUnavailable = errors.New("connection unavailable")
	ErrAlreadyRunning        = errors.New("strategy already running")
)

// Strategy discovers candidates from one source.
type Strategy interface {
	Name() string
	Source() domain.Source

	// Start begins discovery. It fails, leaving the strategy stopped, when
	// a required client is missing or the initial subscription fails.
	// The run is bound to ctx: cancelling it halts discovery and Status
	// reports not running, but Stop is still needed before a new Start.
	Start(ctx context.Context) error

	// Stop releases timers and subscriptions before returning. Calling it
	// on a stopped strategy is a no-op.
	Stop() error

	Status() domain.StrategyStatus
	Results() <-chan domain.DetectionResult
}

// SignatureLookup reports signatures the pipeline has already handled.
type SignatureLookup interface {
	HasProcessedSignature(sig string) bool
}

// MetadataResolver resolves on-chain token metadata for a mint.
type MetadataResolver interface {
	Fetch(ctx context.Context, mint string) (*solana.TokenMetadata, error)
}

var _ MetadataResolver = (*solana.MetadataFetcher)(nil)
