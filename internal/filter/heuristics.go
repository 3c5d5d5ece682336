package filter

import (
	"context"
	"regexp"

	"solana-token-radar/internal/domain"
)

const (
	honeypotLiquidityCeiling = 100.0
	rugLiquidityFloor        = 500.0
)

// decoySymbol matches symbols that impersonate majors or advertise themselves
// as test/scam tokens.
var decoySymbol = regexp.MustCompile(`(?i)^(w?sol|usdc|usdt|btc|eth)$|test|scam|honeypot|rug|fake`)

// Heuristics flags risky candidates. Implementations may call out to
// external services; errors are treated as "no penalty".
type Heuristics interface {
	Honeypot(ctx context.Context, rec *domain.CandidateRecord) (bool, error)
	RugRisk(ctx context.Context, rec *domain.CandidateRecord) (bool, error)
}

// StaticHeuristics inspects only the record itself.
type StaticHeuristics struct{}

// Honeypot flags decoy symbols and dust liquidity.
func (StaticHeuristics) Honeypot(_ context.Context, rec *domain.CandidateRecord) (bool, error) {
	return isHoneypot(rec), nil
}

// RugRisk flags missing metadata and thin liquidity.
func (StaticHeuristics) RugRisk(_ context.Context, rec *domain.CandidateRecord) (bool, error) {
	return isRugRisk(rec), nil
}

func isHoneypot(rec *domain.CandidateRecord) bool {
	if rec.Symbol != "" && decoySymbol.MatchString(rec.Symbol) {
		return true
	}
	liq := rec.Liquidity.USD
	return liq > 0 && liq < honeypotLiquidityCeiling
}

func isRugRisk(rec *domain.CandidateRecord) bool {
	if !rec.HasMetadata() {
		return true
	}
	return rec.Liquidity.USD < rugLiquidityFloor
}
