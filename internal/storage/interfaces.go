package storage

import (
	"context"

	"solana-token-radar/internal/domain"
)

// CandidateStore is the audit log of candidates emitted by the coordinator.
// A (batch_id, address) pair is stored at most once; re-inserting it is a no-op.
type CandidateStore interface {
	// InsertBatch stores every record of one emitted batch.
	// Returns ErrInvalidInput for an empty batch id or address.
	InsertBatch(ctx context.Context, batchID string, recs []*domain.CandidateRecord) error

	// GetByAddress returns every sighting of a token, oldest first.
	GetByAddress(ctx context.Context, address string) ([]*domain.CandidateRecord, error)

	// Recent returns up to limit records, most recently detected first.
	Recent(ctx context.Context, limit int) ([]*domain.CandidateRecord, error)
}

// SummaryStore keeps per-batch pipeline diagnostics.
type SummaryStore interface {
	// Insert stores a summary. Returns ErrDuplicateKey if the batch id exists.
	Insert(ctx context.Context, s domain.DetectionSummary) error

	// Recent returns up to limit summaries, newest first.
	Recent(ctx context.Context, limit int) ([]domain.DetectionSummary, error)
}
