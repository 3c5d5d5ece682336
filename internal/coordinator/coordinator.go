// Package coordinator runs the registered strategies and funnels their
// batches through a single validation, deduplication and scoring pipeline.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"solana-token-radar/internal/address"
	"solana-token-radar/internal/domain"
	"solana-token-radar/internal/filter"
	"solana-token-radar/internal/observability"
	"solana-token-radar/internal/solana"
	"solana-token-radar/internal/strategy"
)

// Defaults.
const (
	DefaultStaggerIncrement = 30 * time.Second
	DefaultCleanupInterval  = 60 * time.Second
)

// Lifecycle errors.
var (
	ErrAlreadyRunning = errors.New("coordinator already running")
	ErrNoStrategies   = errors.New("no strategies registered")
)

// Options configures a Coordinator.
type Options struct {
	Scorer  *filter.Scorer
	RPC     solana.RPCClient // liveness probe for HealthCheck
	Metrics *observability.Metrics
	Logger  zerolog.Logger
	Now     func() time.Time

	DetectedCap      int
	SignatureCap     int
	StaggerIncrement time.Duration
	CleanupInterval  time.Duration
}

// Coordinator owns the strategy lifecycle and the detection caches.
type Coordinator struct {
	scorer  *filter.Scorer
	rpc     solana.RPCClient
	metrics *observability.Metrics
	log     zerolog.Logger
	now     func() time.Time

	stagger time.Duration
	cleanup time.Duration

	in chan domain.DetectionResult

	mu          sync.RWMutex
	entries     []strategy.Entry
	started     []strategy.Strategy
	running     bool
	cancel      context.CancelFunc
	startedAt   time.Time
	lastCleanup time.Time
	detected    *detectedCache
	signatures  *signatureCache
	totals      struct{ received, accepted, filtered, invalid int64 }

	wg sync.WaitGroup

	subsMu sync.Mutex
	subs   []*Subscription
}

// New creates a Coordinator. A nil Scorer uses the aggressive preset.
func New(opts Options) *Coordinator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Scorer == nil {
		opts.Scorer = filter.NewScorer(filter.Aggressive(), filter.WithClock(opts.Now))
	}
	if opts.StaggerIncrement <= 0 {
		opts.StaggerIncrement = DefaultStaggerIncrement
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = DefaultCleanupInterval
	}
	return &Coordinator{
		scorer:     opts.Scorer,
		rpc:        opts.RPC,
		metrics:    opts.Metrics,
		log:        opts.Logger.With().Str("component", "coordinator").Logger(),
		now:        opts.Now,
		stagger:    opts.StaggerIncrement,
		cleanup:    opts.CleanupInterval,
		in:         make(chan domain.DetectionResult, 64),
		detected:   newDetectedCache(opts.DetectedCap),
		signatures: newSignatureCache(opts.SignatureCap),
	}
}

// Register adds a strategy. Registration order is the start order.
func (c *Coordinator) Register(s strategy.Strategy, required bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, strategy.Entry{Strategy: s, Required: required})
}

// Start launches the pipeline and then each strategy, the i-th one
// delayed by i stagger increments. An optional strategy that fails to
// start is logged and skipped. A required one aborts Start and leaves the
// coordinator stopped; strategies already started keep running until Stop.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	if len(c.entries) == 0 {
		c.mu.Unlock()
		return ErrNoStrategies
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.running = true
	c.cancel = cancel
	c.startedAt = c.now()
	entries := append([]strategy.Entry(nil), c.entries...)
	c.wg.Add(1)
	c.mu.Unlock()

	go c.loop(runCtx)

	for i, e := range entries {
		if i > 0 {
			if err := c.wait(runCtx); err != nil {
				return err
			}
		}
		name := e.Strategy.Name()

		// Strategies inherit the caller's context, not the pipeline's,
		// so an aborted Start does not tear them down.
		if err := e.Strategy.Start(ctx); err != nil {
			if e.Required {
				c.log.Error().Err(err).Str("strategy", name).Msg("required strategy failed to start")
				c.abort()
				return fmt.Errorf("start %s: %w", name, err)
			}
			c.log.Warn().Err(err).Str("strategy", name).Msg("optional strategy failed to start")
			continue
		}

		c.mu.Lock()
		if !c.running {
			c.mu.Unlock()
			_ = e.Strategy.Stop()
			return context.Canceled
		}
		c.started = append(c.started, e.Strategy)
		n := len(c.started)
		// Added under the lock so a concurrent Stop cannot Wait before it.
		c.wg.Add(1)
		c.mu.Unlock()
		c.metrics.SetStrategiesRunning(n)

		go c.forward(runCtx, e.Strategy)
		c.log.Info().Str("strategy", name).Bool("required", e.Required).Msg("strategy started")
	}
	return nil
}

func (c *Coordinator) wait(ctx context.Context) error {
	t := time.NewTimer(c.stagger)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Coordinator) abort() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	if c.cancel != nil {
		c.cancel()
	}
}

// Stop stops every started strategy and the pipeline. Records arriving
// afterwards are ignored.
func (c *Coordinator) Stop() error {
	c.mu.Lock()
	c.running = false
	started := c.started
	c.started = nil
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	var (
		g    errgroup.Group
		errs = make([]error, len(started))
	)
	for i, s := range started {
		i, s := i, s
		g.Go(func() error {
			if err := s.Stop(); err != nil {
				errs[i] = fmt.Errorf("stop %s: %w", s.Name(), err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if cancel != nil {
		cancel()
	}
	c.wg.Wait()
	c.metrics.SetStrategiesRunning(0)
	c.log.Info().Int("strategies", len(started)).Msg("coordinator stopped")
	return errors.Join(errs...)
}

// forward fans a strategy's results into the pipeline.
func (c *Coordinator) forward(ctx context.Context, s strategy.Strategy) {
	defer c.wg.Done()
	results := s.Results()
	for {
		select {
		case <-ctx.Done():
			return
		case res := <-results:
			select {
			case c.in <- res:
			case <-ctx.Done():
				return
			}
		}
	}
}

// loop is the single pipeline worker; batches are processed one at a time
// in arrival order.
func (c *Coordinator) loop(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.cleanup)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case res := <-c.in:
			c.handle(ctx, res)
		case <-ticker.C:
			c.runCleanup("periodic")
			c.reportStrategies()
		}
	}
}

func (c *Coordinator) handle(ctx context.Context, res domain.DetectionResult) {
	ev, sum, ok := c.process(ctx, res)
	if !ok {
		return
	}
	c.publish(ctx, ev, sum)
}

// process runs one batch through validation, dedup and scoring. It
// returns ok=false when the coordinator is not running.
func (c *Coordinator) process(ctx context.Context, res domain.DetectionResult) (*NewCandidates, domain.DetectionSummary, bool) {
	start := c.now()
	if res.BatchID == "" {
		res.BatchID = uuid.NewString()
	}
	sum := domain.DetectionSummary{
		BatchID:  res.BatchID,
		Strategy: res.Strategy,
		Source:   res.Source,
		Received: len(res.Records),
		Duration: res.Duration,
		Errors:   res.Errors,
	}

	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil, sum, false
	}

	for _, sig := range res.ProcessedSignatures {
		c.signatures.add(sig)
	}

	var accepted []*domain.CandidateRecord
	// slot maps an address to its index in accepted, so a later record for
	// the same address in this batch overwrites rather than repeats it.
	slot := make(map[string]int)
	for _, rec := range res.Records {
		if rec == nil || !address.IsValid(rec.Address) {
			sum.Invalid++
			c.metrics.RecordRejected(filter.ReasonInvalidAddress)
			continue
		}

		existing := c.detected.get(rec.Address)
		if existing != nil && rec.Trending() <= existing.Trending() {
			sum.Duplicates++
			continue
		}

		d := c.scorer.Score(ctx, rec)
		if !d.Passed {
			sum.Filtered++
			c.metrics.RecordRejected(d.Reasons...)
			c.log.Debug().
				Str("address", rec.Address).
				Str("strategy", res.Strategy).
				Int("score", d.Score).
				Strs("reasons", d.Reasons).
				Msg("candidate filtered")
			continue
		}

		stored := rec.Clone()
		if stored.Source == "" {
			stored.Source = res.Source
		}
		if stored.DetectedAt.IsZero() {
			stored.DetectedAt = start
		}
		c.detected.put(stored)
		if existing != nil {
			sum.Replaced++
		}
		if i, ok := slot[stored.Address]; ok {
			accepted[i] = stored.Clone()
		} else {
			slot[stored.Address] = len(accepted)
			sum.Accepted++
			accepted = append(accepted, stored.Clone())
			c.metrics.RecordAccepted(stored.Source.String(), stored.DetectedAt)
		}
	}
	sum.Cached = sum.Accepted > 0

	c.totals.received += int64(sum.Received)
	c.totals.accepted += int64(sum.Accepted)
	c.totals.filtered += int64(sum.Filtered)
	c.totals.invalid += int64(sum.Invalid)

	overCap := c.detected.overCap() || c.signatures.overCap()
	c.mu.Unlock()

	if overCap {
		c.runCleanup("over_capacity")
	}

	sum.ProcessedAt = c.now()
	sum.PipelineDur = sum.ProcessedAt.Sub(start)
	c.metrics.ObserveBatch(observability.BatchStats{
		Strategy:   res.Strategy,
		Received:   sum.Received,
		Duplicates: sum.Duplicates,
		Replaced:   sum.Replaced,
		Latency:    sum.ProcessedAt.Sub(res.EmittedAt),
	})

	c.log.Debug().
		Str("batch_id", sum.BatchID).
		Str("strategy", sum.Strategy).
		Int("received", sum.Received).
		Int("accepted", sum.Accepted).
		Int("filtered", sum.Filtered).
		Int("duplicates", sum.Duplicates).
		Msg("batch processed")

	if len(accepted) == 0 {
		return nil, sum, true
	}
	return &NewCandidates{
		BatchID:   res.BatchID,
		Strategy:  res.Strategy,
		Source:    res.Source,
		Records:   accepted,
		EmittedAt: res.EmittedAt,
	}, sum, true
}

// runCleanup bounds both caches.
func (c *Coordinator) runCleanup(reason string) {
	c.mu.Lock()
	evictedTokens := c.detected.trim()
	evictedSigs := c.signatures.trim()
	c.lastCleanup = c.now()
	detected, sigs := c.detected.len(), c.signatures.len()
	c.mu.Unlock()

	c.metrics.RecordEvictions("detected", evictedTokens)
	c.metrics.RecordEvictions("signatures", evictedSigs)
	c.metrics.UpdateCacheSizes(detected, sigs)
	if evictedTokens > 0 || evictedSigs > 0 {
		c.log.Debug().
			Str("reason", reason).
			Int("evicted_tokens", evictedTokens).
			Int("evicted_signatures", evictedSigs).
			Msg("cache cleanup")
	}
}

func (c *Coordinator) reportStrategies() {
	if c.metrics == nil {
		return
	}
	for name, st := range c.Status().Strategies {
		c.metrics.UpdateStrategy(name, st.TotalDetected, st.ErrorCount)
	}
}

// HasProcessedSignature reports whether sig was already handled.
func (c *Coordinator) HasProcessedSignature(sig string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.signatures.has(sig)
}

// DetectedTokens returns up to limit cached records, most recent first.
func (c *Coordinator) DetectedTokens(limit int) []*domain.CandidateRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.detected.recent(limit)
}

// Running reports whether the pipeline is accepting batches.
func (c *Coordinator) Running() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running
}

// Status returns a snapshot of the coordinator and every registered strategy.
func (c *Coordinator) Status() domain.DetectorStatus {
	c.mu.RLock()
	st := domain.DetectorStatus{
		Running:        c.running,
		Preset:         c.scorer.Criteria().Name,
		Strategies:     make(map[string]domain.StrategyStatus, len(c.entries)),
		DetectedCount:  c.detected.len(),
		DetectedCap:    c.detected.cap,
		SignatureCount: c.signatures.len(),
		SignatureCap:   c.signatures.cap,
		TotalReceived:  c.totals.received,
		TotalAccepted:  c.totals.accepted,
		TotalFiltered:  c.totals.filtered,
		TotalInvalid:   c.totals.invalid,
		LastCleanup:    c.lastCleanup,
		StartedAt:      c.startedAt,
	}
	entries := append([]strategy.Entry(nil), c.entries...)
	c.mu.RUnlock()

	for _, e := range entries {
		st.Strategies[e.Strategy.Name()] = e.Strategy.Status()
	}
	return st
}

// HealthCheck is true when the RPC endpoint answers and the pipeline runs.
func (c *Coordinator) HealthCheck(ctx context.Context) bool {
	if c.rpc == nil || !c.Running() {
		return false
	}
	if _, err := c.rpc.GetSlot(ctx); err != nil {
		c.log.Warn().Err(err).Msg("health probe failed")
		return false
	}
	return true
}

var _ strategy.SignatureLookup = (*Coordinator)(nil)
