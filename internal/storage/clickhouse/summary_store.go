package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-token-radar/internal/domain"
	"solana-token-radar/internal/storage"
)

// SummaryStore implements storage.SummaryStore using ClickHouse.
type SummaryStore struct {
	conn *Conn
}

// NewSummaryStore creates a new SummaryStore.
func NewSummaryStore(conn *Conn) *SummaryStore {
	return &SummaryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SummaryStore = (*SummaryStore)(nil)

// Insert adds a summary. Returns ErrDuplicateKey if the batch id exists.
func (s *SummaryStore) Insert(ctx context.Context, sum domain.DetectionSummary) error {
	if sum.BatchID == "" {
		return storage.ErrInvalidInput
	}

	// ReplacingMergeTree would silently collapse duplicates; keep insert-once semantics.
	exists, err := s.exists(ctx, sum.BatchID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	errs := sum.Errors
	if errs == nil {
		errs = []string{}
	}
	var cached uint8
	if sum.Cached {
		cached = 1
	}

	query := `
		INSERT INTO detection_summaries (
			batch_id, strategy, source,
			received, accepted, filtered, invalid, duplicates, replaced, cached,
			duration_us, pipeline_us, processed_at, errors
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	err = s.conn.Exec(ctx, query,
		sum.BatchID, sum.Strategy, sum.Source.String(),
		uint32(sum.Received), uint32(sum.Accepted), uint32(sum.Filtered),
		uint32(sum.Invalid), uint32(sum.Duplicates), uint32(sum.Replaced), cached,
		uint64(sum.Duration.Microseconds()), uint64(sum.PipelineDur.Microseconds()),
		sum.ProcessedAt.UTC(), errs,
	)
	if err != nil {
		return fmt.Errorf("insert detection summary: %w", err)
	}
	return nil
}

// Recent returns up to limit summaries, newest first.
func (s *SummaryStore) Recent(ctx context.Context, limit int) ([]domain.DetectionSummary, error) {
	query := `
		SELECT
			batch_id, strategy, source,
			received, accepted, filtered, invalid, duplicates, replaced, cached,
			duration_us, pipeline_us, processed_at, errors
		FROM detection_summaries FINAL
		ORDER BY processed_at DESC, batch_id ASC
		LIMIT ?
	`

	rows, err := s.conn.Query(ctx, query, storage.NormalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query detection summaries: %w", err)
	}
	defer rows.Close()

	var result []domain.DetectionSummary
	for rows.Next() {
		var (
			sum                                                         domain.DetectionSummary
			source                                                      string
			received, accepted, filtered, invalid, duplicates, replaced uint32
			cached                                                      uint8
			durationUS, pipelineUS                                      uint64
		)
		if err := rows.Scan(
			&sum.BatchID, &sum.Strategy, &source,
			&received, &accepted, &filtered, &invalid, &duplicates, &replaced, &cached,
			&durationUS, &pipelineUS, &sum.ProcessedAt, &sum.Errors,
		); err != nil {
			return nil, fmt.Errorf("scan detection summary: %w", err)
		}
		sum.Source = domain.ParseSource(source)
		sum.Received = int(received)
		sum.Accepted = int(accepted)
		sum.Filtered = int(filtered)
		sum.Invalid = int(invalid)
		sum.Duplicates = int(duplicates)
		sum.Replaced = int(replaced)
		sum.Cached = cached == 1
		sum.Duration = time.Duration(durationUS) * time.Microsecond
		sum.PipelineDur = time.Duration(pipelineUS) * time.Microsecond
		result = append(result, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate detection summaries: %w", err)
	}
	return result, nil
}

func (s *SummaryStore) exists(ctx context.Context, batchID string) (bool, error) {
	var count uint64
	row := s.conn.QueryRow(ctx, `SELECT count() FROM detection_summaries WHERE batch_id = ?`, batchID)
	if err := row.Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
