package memory

import (
	"context"
	"sort"
	"sync"

	"solana-token-radar/internal/domain"
	"solana-token-radar/internal/storage"
)

type candidateKey struct {
	batchID string
	address string
}

// CandidateStore is an in-memory implementation of storage.CandidateStore.
type CandidateStore struct {
	mu   sync.RWMutex
	keys map[candidateKey]struct{}
	rows []*domain.CandidateRecord // insertion order
}

// NewCandidateStore creates a new in-memory candidate store.
func NewCandidateStore() *CandidateStore {
	return &CandidateStore{keys: make(map[candidateKey]struct{})}
}

var _ storage.CandidateStore = (*CandidateStore)(nil)

// InsertBatch stores each record once per batch.
func (s *CandidateStore) InsertBatch(_ context.Context, batchID string, recs []*domain.CandidateRecord) error {
	if batchID == "" {
		return storage.ErrInvalidInput
	}
	for _, r := range recs {
		if r == nil || r.Address == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range recs {
		k := candidateKey{batchID: batchID, address: r.Address}
		if _, ok := s.keys[k]; ok {
			continue
		}
		s.keys[k] = struct{}{}
		s.rows = append(s.rows, r.Clone())
	}
	return nil
}

// GetByAddress returns every sighting of address, oldest first.
func (s *CandidateStore) GetByAddress(_ context.Context, address string) ([]*domain.CandidateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.CandidateRecord
	for _, r := range s.rows {
		if r.Address == address {
			result = append(result, r.Clone())
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].DetectedAt.Before(result[j].DetectedAt)
	})
	return result, nil
}

// Recent returns up to limit records, newest DetectedAt first.
func (s *CandidateStore) Recent(_ context.Context, limit int) ([]*domain.CandidateRecord, error) {
	limit = storage.NormalizeLimit(limit)

	s.mu.RLock()
	result := make([]*domain.CandidateRecord, 0, len(s.rows))
	for _, r := range s.rows {
		result = append(result, r.Clone())
	}
	s.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].DetectedAt.After(result[j].DetectedAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Len returns the number of stored rows.
func (s *CandidateStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}
