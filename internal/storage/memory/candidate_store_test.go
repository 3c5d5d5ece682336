package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"solana-token-radar/internal/domain"
	"solana-token-radar/internal/storage"
)

const (
	mintA = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
	mintB = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
)

func rec(addr string, at time.Time) *domain.CandidateRecord {
	return &domain.CandidateRecord{Address: addr, Source: domain.SourcePolling, DetectedAt: at}
}

func TestCandidateStore_InsertAndGet(t *testing.T) {
	store := NewCandidateStore()
	ctx := context.Background()
	t0 := time.Unix(1704067200, 0)

	if err := store.InsertBatch(ctx, "b2", []*domain.CandidateRecord{rec(mintA, t0.Add(time.Minute))}); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}
	if err := store.InsertBatch(ctx, "b1", []*domain.CandidateRecord{rec(mintA, t0), rec(mintB, t0)}); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	got, err := store.GetByAddress(ctx, mintA)
	if err != nil {
		t.Fatalf("GetByAddress failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 sightings, got %d", len(got))
	}
	if !got[0].DetectedAt.Equal(t0) {
		t.Errorf("expected oldest first, got %v", got[0].DetectedAt)
	}
}

func TestCandidateStore_ReinsertIsNoop(t *testing.T) {
	store := NewCandidateStore()
	ctx := context.Background()
	batch := []*domain.CandidateRecord{rec(mintA, time.Now())}

	for i := 0; i < 2; i++ {
		if err := store.InsertBatch(ctx, "b1", batch); err != nil {
			t.Fatalf("InsertBatch #%d failed: %v", i, err)
		}
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 row, got %d", store.Len())
	}
}

func TestCandidateStore_InvalidInput(t *testing.T) {
	store := NewCandidateStore()
	ctx := context.Background()

	if err := store.InsertBatch(ctx, "", []*domain.CandidateRecord{rec(mintA, time.Now())}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty batch id, got %v", err)
	}
	if err := store.InsertBatch(ctx, "b1", []*domain.CandidateRecord{rec("", time.Now())}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for empty address, got %v", err)
	}
	if store.Len() != 0 {
		t.Error("invalid batch must not be partially stored")
	}
}

func TestCandidateStore_Recent(t *testing.T) {
	store := NewCandidateStore()
	ctx := context.Background()
	t0 := time.Unix(1704067200, 0)

	_ = store.InsertBatch(ctx, "b1", []*domain.CandidateRecord{rec(mintA, t0), rec(mintB, t0.Add(time.Second))})

	got, err := store.Recent(ctx, 1)
	if err != nil {
		t.Fatalf("Recent failed: %v", err)
	}
	if len(got) != 1 || got[0].Address != mintB {
		t.Errorf("expected newest record, got %+v", got)
	}
}

func TestCandidateStore_ReturnsCopies(t *testing.T) {
	store := NewCandidateStore()
	ctx := context.Background()
	r := rec(mintA, time.Now())
	_ = store.InsertBatch(ctx, "b1", []*domain.CandidateRecord{r})

	r.Name = "mutated"
	got, _ := store.GetByAddress(ctx, mintA)
	got[0].Symbol = "mutated"

	again, _ := store.GetByAddress(ctx, mintA)
	if again[0].Name != "" || again[0].Symbol != "" {
		t.Errorf("store state leaked: %+v", again[0])
	}
}

func TestCandidateStore_Concurrent(t *testing.T) {
	store := NewCandidateStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = store.InsertBatch(ctx, string(rune('a'+i)), []*domain.CandidateRecord{rec(mintA, time.Now())})
			_, _ = store.Recent(ctx, 5)
		}(i)
	}
	wg.Wait()

	if store.Len() != 20 {
		t.Errorf("expected 20 rows, got %d", store.Len())
	}
}
