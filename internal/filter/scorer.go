package filter

import (
	"context"
	"time"

	"solana-token-radar/internal/address"
	"solana-token-radar/internal/domain"
)

// Rejection reasons.
const (
	ReasonTokenTooOld           = "token_too_old"
	ReasonInsufficientLiquidity = "insufficient_liquidity"
	ReasonInvalidAddress        = "invalid_address"
	ReasonMissingMetadata       = "missing_metadata"
	ReasonInsufficientVolume    = "insufficient_volume"
	ReasonInsufficientActivity  = "insufficient_activity"
	ReasonHoneypotDetected      = "honeypot_detected"
	ReasonRugRiskDetected       = "rug_risk_detected"
)

// Score components.
const (
	PointsFresh     = 20
	PointsLiquidity = 25
	PointsAddress   = 10
	PointsMetadata  = 10
	PointsVolume    = 5 // per satisfied volume/activity threshold
	PenaltyHoneypot = -50
	PenaltyRugRisk  = -50
)

var sourceWeights = map[domain.Source]int{
	domain.SourceWebSocket: 15,
	domain.SourceChainScan: 15,
	domain.SourceBoost:     12,
	domain.SourcePolling:   10,
	domain.SourceUnknown:   5,
}

// SourceWeight returns the credibility points for a source.
func SourceWeight(s domain.Source) int {
	if w, ok := sourceWeights[s]; ok {
		return w
	}
	return sourceWeights[domain.SourceUnknown]
}

// Decision is the outcome of scoring a single record.
type Decision struct {
	Passed  bool
	Score   int
	Reasons []string // every failed check, in evaluation order
}

// Evaluate scores rec against crit using the record-only heuristics.
// It is pure: the same inputs always produce the same decision.
func Evaluate(rec *domain.CandidateRecord, crit AcceptanceCriteria, now time.Time) Decision {
	return evaluate(context.Background(), rec, crit, now, StaticHeuristics{})
}

// Scorer binds criteria to a clock and a heuristics implementation.
type Scorer struct {
	criteria   AcceptanceCriteria
	heuristics Heuristics
	now        func() time.Time
}

// ScorerOption configures a Scorer.
type ScorerOption func(*Scorer)

// WithHeuristics replaces the record-only heuristics.
func WithHeuristics(h Heuristics) ScorerOption {
	return func(s *Scorer) {
		s.heuristics = h
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) ScorerOption {
	return func(s *Scorer) {
		s.now = now
	}
}

// NewScorer creates a Scorer.
func NewScorer(crit AcceptanceCriteria, opts ...ScorerOption) *Scorer {
	s := &Scorer{
		criteria:   crit,
		heuristics: StaticHeuristics{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Criteria returns the criteria in use.
func (s *Scorer) Criteria() AcceptanceCriteria {
	return s.criteria
}

// Score evaluates rec at the scorer's current time.
func (s *Scorer) Score(ctx context.Context, rec *domain.CandidateRecord) Decision {
	return evaluate(ctx, rec, s.criteria, s.now(), s.heuristics)
}

func evaluate(ctx context.Context, rec *domain.CandidateRecord, crit AcceptanceCriteria, now time.Time, h Heuristics) Decision {
	var d Decision
	fail := func(reason string) {
		d.Reasons = append(d.Reasons, reason)
	}

	if now.Sub(rec.CreatedAt()) <= crit.MaxAge {
		d.Score += PointsFresh
	} else {
		fail(ReasonTokenTooOld)
	}

	liq := rec.Liquidity.USD
	if liq > 0 && liq >= crit.MinLiquidityUSD {
		d.Score += PointsLiquidity
	} else {
		fail(ReasonInsufficientLiquidity)
	}

	if address.IsValid(rec.Address) {
		d.Score += PointsAddress
	} else {
		fail(ReasonInvalidAddress)
	}

	if rec.HasMetadata() {
		d.Score += PointsMetadata
	} else {
		fail(ReasonMissingMetadata)
	}

	d.Score += SourceWeight(rec.Source)

	volumeOK := true
	for _, c := range []struct{ got, min float64 }{
		{rec.Volume.M5, crit.MinVolume5m},
		{rec.Volume.H1, crit.MinVolume1h},
		{rec.Volume.H24, crit.MinVolume24h},
	} {
		if c.min <= 0 {
			continue
		}
		if c.got >= c.min {
			d.Score += PointsVolume
		} else {
			volumeOK = false
		}
	}
	if !volumeOK {
		fail(ReasonInsufficientVolume)
	}

	activityOK := true
	for _, c := range []struct{ got, min int }{
		{rec.Txns.M5.Total(), crit.MinTransactions5m},
		{rec.Txns.H1.Total(), crit.MinTransactions1h},
	} {
		if c.min <= 0 {
			continue
		}
		if c.got >= c.min {
			d.Score += PointsVolume
		} else {
			activityOK = false
		}
	}
	if !activityOK {
		fail(ReasonInsufficientActivity)
	}

	if crit.HoneypotFilter {
		if hit, err := h.Honeypot(ctx, rec); err == nil && hit {
			d.Score += PenaltyHoneypot
			fail(ReasonHoneypotDetected)
		}
	}
	if crit.RugFilter {
		if hit, err := h.RugRisk(ctx, rec); err == nil && hit {
			d.Score += PenaltyRugRisk
			fail(ReasonRugRiskDetected)
		}
	}

	d.Passed = d.Score >= crit.MinConfidenceScore
	return d
}
