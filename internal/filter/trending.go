package filter

import (
	"math"

	"solana-token-radar/internal/domain"
)

// TrendingScore rates short-term momentum on a 0-100 scale:
//
//	volume acceleration  up to 30 (5m volume vs. the 1h average per 5m)
//	1h price change      up to 30
//	5m transactions      up to 25
//	liquidity depth      up to 15
func TrendingScore(rec *domain.CandidateRecord) float64 {
	var score float64

	avg5m := rec.Volume.H1 / 12
	switch {
	case avg5m > 0:
		score += math.Min(rec.Volume.M5/avg5m*10, 30)
	case rec.Volume.M5 > 0:
		score += 30
	}

	if rec.PriceChange.H1 > 0 {
		score += math.Min(rec.PriceChange.H1/2, 30)
	}

	score += math.Min(float64(rec.Txns.M5.Total())/2, 25)

	switch liq := rec.Liquidity.USD; {
	case liq >= 100_000:
		score += 15
	case liq >= 50_000:
		score += 10
	case liq >= 10_000:
		score += 5
	}

	return math.Max(0, math.Min(score, 100))
}
