package strategy

import (
	"time"

	"solana-token-radar/internal/domain"
	"solana-token-radar/internal/filter"
	"solana-token-radar/internal/marketdata"
	"solana-token-radar/internal/solana"
)

// pairToRecord maps an aggregator pair to a candidate. The pair creation
// time is used as the discovery time when known so freshness reflects the
// token's age rather than when we polled it.
func pairToRecord(p marketdata.Pair, source domain.Source, now time.Time) *domain.CandidateRecord {
	rec := &domain.CandidateRecord{
		Address:     p.BaseToken.Address,
		Name:        p.BaseToken.Name,
		Symbol:      p.BaseToken.Symbol,
		PairAddress: p.PairAddress,
		Liquidity: domain.Liquidity{
			USD: p.Liquidity.USD,
		},
		Volume:      domain.Windows{M5: p.Volume.M5, H1: p.Volume.H1, H24: p.Volume.H24},
		PriceChange: domain.Windows{M5: p.PriceChange.M5, H1: p.PriceChange.H1, H24: p.PriceChange.H24},
		Txns: domain.TxnWindows{
			M5:  domain.TxnCount{Buys: p.Txns.M5.Buys, Sells: p.Txns.M5.Sells},
			H1:  domain.TxnCount{Buys: p.Txns.H1.Buys, Sells: p.Txns.H1.Sells},
			H24: domain.TxnCount{Buys: p.Txns.H24.Buys, Sells: p.Txns.H24.Sells},
		},
		DetectedAt: now,
		Source:     source,
	}
	rec.PriceUSD, _ = p.PriceUSD.Float64()

	switch solana.WSOLMint {
	case p.QuoteToken.Address:
		rec.Liquidity.Native = p.Liquidity.Quote
	case p.BaseToken.Address:
		rec.Liquidity.Native = p.Liquidity.Base
	}

	if p.PairCreatedAt > 0 {
		if created := time.UnixMilli(p.PairCreatedAt); created.Before(now) {
			rec.PairCreatedAt = created
		}
	}

	rec.TrendingScore = domain.Float64Ptr(filter.TrendingScore(rec))
	return rec
}

func pairsToRecords(pairs []marketdata.Pair, source domain.Source, now time.Time) []*domain.CandidateRecord {
	out := make([]*domain.CandidateRecord, 0, len(pairs))
	for _, p := range pairs {
		if p.BaseToken.Address == "" {
			continue
		}
		out = append(out, pairToRecord(p, source, now))
	}
	return out
}
