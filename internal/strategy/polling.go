package strategy

import (
	"context"
	"strconv"
	"time"

	"solana-token-radar/internal/domain"
	"solana-token-radar/internal/marketdata"
)

// PollingConfig configures PollingStrategy.
type PollingConfig struct {
	Interval time.Duration
	Limit    int
}

// PollingStrategy periodically pulls the trending listing from the gateway.
type PollingStrategy struct {
	*base
	cfg     PollingConfig
	gateway marketdata.Gateway
}

// NewPollingStrategy creates a polling strategy.
func NewPollingStrategy(cfg PollingConfig, deps Deps) *PollingStrategy {
	return &PollingStrategy{
		base:    newBase(NamePolling, domain.SourcePolling, deps),
		cfg:     cfg,
		gateway: deps.Gateway,
	}
}

// Start fetches once immediately and then every interval.
func (s *PollingStrategy) Start(ctx context.Context) error {
	if s.gateway == nil {
		return ErrConnectionUnavailable
	}
	runCtx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	s.log.Info().Dur("interval", s.cfg.Interval).Msg("polling started")
	s.every(runCtx, s.cfg.Interval, true, s.poll)
	return nil
}

// Stop cancels the timer and any in-flight fetch.
func (s *PollingStrategy) Stop() error {
	if s.end() {
		s.log.Info().Msg("polling stopped")
	}
	return nil
}

func (s *PollingStrategy) poll(ctx context.Context) {
	start := s.now()
	pairs, err := s.gateway.FetchTrending(ctx, marketdata.TrendingQuery{Limit: s.cfg.Limit})
	if err != nil {
		if ctx.Err() == nil {
			s.fail(err, "trending fetch failed")
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
		Metadata:  map[string]string{"listing": "trending", "pairs": strconv.Itoa(len(pairs))},
	})
}
