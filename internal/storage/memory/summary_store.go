package memory

import (
	"context"
	"sort"
	"sync"

	"solana-token-radar/internal/domain"
	"solana-token-radar/internal/storage"
)

// SummaryStore is an in-memory implementation of storage.SummaryStore.
type SummaryStore struct {
	mu   sync.RWMutex
	data map[string]domain.DetectionSummary // keyed by batch id
}

// NewSummaryStore creates a new in-memory summary store.
func NewSummaryStore() *SummaryStore {
	return &SummaryStore{data: make(map[string]domain.DetectionSummary)}
}

var _ storage.SummaryStore = (*SummaryStore)(nil)

// Insert adds a summary. Returns ErrDuplicateKey if the batch id exists.
func (s *SummaryStore) Insert(_ context.Context, sum domain.DetectionSummary) error {
	if sum.BatchID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[sum.BatchID]; exists {
		return storage.ErrDuplicateKey
	}
	sum.Errors = append([]string(nil), sum.Errors...)
	s.data[sum.BatchID] = sum
	return nil
}

// Recent returns up to limit summaries, newest ProcessedAt first.
func (s *SummaryStore) Recent(_ context.Context, limit int) ([]domain.DetectionSummary, error) {
	limit = storage.NormalizeLimit(limit)

	s.mu.RLock()
	result := make([]domain.DetectionSummary, 0, len(s.data))
	for _, sum := range s.data {
		result = append(result, sum)
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].ProcessedAt.Equal(result[j].ProcessedAt) {
			return result[i].BatchID < result[j].BatchID
		}
		return result[i].ProcessedAt.After(result[j].ProcessedAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
