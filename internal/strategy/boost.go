package strategy

import (
	"context"
	"time"

	"solana-token-radar/internal/domain"
	"solana-token-radar/internal/marketdata"
)

// DefaultBoostMultiplier scales the base polling interval for the boost feed.
const DefaultBoostMultiplier = 5

// BoostConfig configures BoostStrategy.
type BoostConfig struct {
	Interval time.Duration
}

// BoostStrategy polls the boosted-token listing on a slower cadence.
type BoostStrategy struct {
	*base
	cfg     BoostConfig
	gateway marketdata.Gateway
}

// NewBoostStrategy creates a boost feed strategy.
func NewBoostStrategy(cfg BoostConfig, deps Deps) *BoostStrategy {
	return &BoostStrategy{
		base:    newBase(NameBoost, domain.SourceBoost, deps),
		cfg:     cfg,
		gateway: deps.Gateway,
	}
}

// Start fetches once immediately and then every interval.
func (s *BoostStrategy) Start(ctx context.Context) error {
	if s.gateway == nil {
		return ErrConnectionUnavailable
	}
	runCtx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	s.log.Info().Dur("interval", s.cfg.Interval).Msg("boost feed started")
	s.every(runCtx, s.cfg.Interval, true, s.poll)
	return nil
}

// Stop cancels the timer and any in-flight fetch.
func (s *BoostStrategy) Stop() error {
	if s.end() {
		s.log.Info().Msg("boost feed stopped")
	}
	return nil
}

func (s *BoostStrategy) poll(ctx context.Context) {
	start := s.now()
	pairs, err := s.gateway.FetchBoosted(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.fail(err, "boosted fetch failed")
		}
		return
	}

	records := pairsToRecords(pairs, s.source, s.now())
	if len(records) == 0 {
		return
	}
	s.emit(ctx, domain.DetectionResult{
		Records:   records,
		Duration:  s.now().Sub(start),
		BatchSize: len(pairs),
		Metadata:  map[string]string{"listing": "boosted"},
	})
}
