package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"solana-token-radar/internal/domain"
	"solana-token-radar/internal/storage"
)

// CandidateStore implements storage.CandidateStore using PostgreSQL.
type CandidateStore struct {
	pool *Pool
}

// NewCandidateStore creates a new CandidateStore.
func NewCandidateStore(pool *Pool) *CandidateStore {
	return &CandidateStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CandidateStore = (*CandidateStore)(nil)

const candidateColumns = `
	address, name, symbol, decimals, source,
	liquidity_usd, liquidity_native,
	volume_5m, volume_1h, volume_24h,
	price_change_5m, price_change_1h, price_change_24h,
	txns_5m_buys, txns_5m_sells, txns_1h_buys, txns_1h_sells, txns_24h_buys, txns_24h_sells,
	price_usd, pair_address, signature, detected_at, trending_score, risk_score, pair_created_at`

// InsertBatch stores a batch in one round trip. Rows already present for
// (batch_id, address) are left untouched.
func (s *CandidateStore) InsertBatch(ctx context.Context, batchID string, recs []*domain.CandidateRecord) error {
	if batchID == "" {
		return storage.ErrInvalidInput
	}
	for _, r := range recs {
		if r == nil || r.Address == "" {
			return storage.ErrInvalidInput
		}
	}
	if len(recs) == 0 {
		return nil
	}

	query := `
		INSERT INTO detected_candidates (batch_id,` + candidateColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
		        $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27)
		ON CONFLICT (batch_id, address) DO NOTHING
	`

	batch := &pgx.Batch{}
	for _, r := range recs {
		var created *time.Time
		if !r.PairCreatedAt.IsZero() {
			t := r.PairCreatedAt.UTC()
			created = &t
		}
		batch.Queue(query,
			batchID,
			r.Address, r.Name, r.Symbol, r.Decimals, r.Source.String(),
			r.Liquidity.USD, r.Liquidity.Native,
			r.Volume.M5, r.Volume.H1, r.Volume.H24,
			r.PriceChange.M5, r.PriceChange.H1, r.PriceChange.H24,
			r.Txns.M5.Buys, r.Txns.M5.Sells, r.Txns.H1.Buys, r.Txns.H1.Sells, r.Txns.H24.Buys, r.Txns.H24.Sells,
			r.PriceUSD, r.PairAddress, r.Signature, r.DetectedAt.UTC(), r.TrendingScore, r.RiskScore,
			created,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for range recs {
		if _, err := br.Exec(); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert candidate batch %s: %w", batchID, err)
		}
	}
	return nil
}

// GetByAddress returns every sighting of address, oldest first.
func (s *CandidateStore) GetByAddress(ctx context.Context, address string) ([]*domain.CandidateRecord, error) {
	query := `SELECT` + candidateColumns + `
		FROM detected_candidates
		WHERE address = $1
		ORDER BY detected_at ASC, batch_id ASC
	`

	rows, err := s.pool.Query(ctx, query, address)
	if err != nil {
		return nil, fmt.Errorf("get candidates by address: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

// Recent returns up to limit records, newest first.
func (s *CandidateStore) Recent(ctx context.Context, limit int) ([]*domain.CandidateRecord, error) {
	query := `SELECT` + candidateColumns + `
		FROM detected_candidates
		ORDER BY detected_at DESC, batch_id DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, storage.NormalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("get recent candidates: %w", err)
	}
	defer rows.Close()

	return scanCandidates(rows)
}

func scanCandidates(rows pgx.Rows) ([]*domain.CandidateRecord, error) {
	var result []*domain.CandidateRecord
	for rows.Next() {
		var (
			r       domain.CandidateRecord
			source  string
			created *time.Time
		)
		err := rows.Scan(
			&r.Address, &r.Name, &r.Symbol, &r.Decimals, &source,
			&r.Liquidity.USD, &r.Liquidity.Native,
			&r.Volume.M5, &r.Volume.H1, &r.Volume.H24,
			&r.PriceChange.M5, &r.PriceChange.H1, &r.PriceChange.H24,
			&r.Txns.M5.Buys, &r.Txns.M5.Sells, &r.Txns.H1.Buys, &r.Txns.H1.Sells, &r.Txns.H24.Buys, &r.Txns.H24.Sells,
			&r.PriceUSD, &r.PairAddress, &r.Signature, &r.DetectedAt, &r.TrendingScore, &r.RiskScore,
			&created,
		)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		r.Source = domain.ParseSource(source)
		if created != nil {
			r.PairCreatedAt = *created
		}
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return result, nil
}
