package strategy

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"solana-token-radar/internal/domain"
)

const resultBuffer = 64

// base carries the lifecycle and status bookkeeping shared by all strategies.
type base struct {
	name   string
	source domain.Source
	log    zerolog.Logger
	now    func() time.Time
	out    chan domain.DetectionResult

	mu      sync.Mutex
	running bool
	runCtx  context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	totalDetected int64
	lastDetection time.Time
	errorCount    int64
	batches       int64
	avgProcessing time.Duration
}

func newBase(name string, source domain.Source, deps Deps) *base {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &base{
		name:   name,
		source: source,
		log:    deps.Logger.With().Str("strategy", name).Logger(),
		now:    now,
		out:    make(chan domain.DetectionResult, resultBuffer),
	}
}

// Name returns the strategy name.
func (b *base) Name() string { return b.name }

// Source returns the source tag of emitted records.
func (b *base) Source() domain.Source { return b.source }

// Results returns the output channel.
func (b *base) Results() <-chan domain.DetectionResult { return b.out }

// Status returns a snapshot of runtime counters. Running turns false as
// soon as the run context ends, even before Stop.
func (b *base) Status() domain.StrategyStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	return domain.StrategyStatus{
		Name:              b.name,
		Running:           b.running && b.runCtx.Err() == nil,
		TotalDetected:     b.totalDetected,
		LastDetection:     b.lastDetection,
		ErrorCount:        b.errorCount,
		AvgProcessingTime: b.avgProcessing,
	}
}

func (b *base) isRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// begin moves to Running and returns the context bound to this run.
func (b *base) begin(parent context.Context) (context.Context, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return nil, ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(parent)
	b.running = true
	b.runCtx = ctx
	b.cancel = cancel
	return ctx, nil
}

// end moves to Stopped, cancels in-flight work and waits for goroutines.
// Returns false if the strategy was not running.
func (b *base) end() bool {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return false
	}
	b.running = false
	cancel := b.cancel
	b.cancel = nil
	b.mu.Unlock()

	cancel()
	b.wg.Wait()
	return true
}

// goRun starts fn on a goroutine tracked by the run.
func (b *base) goRun(fn func()) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		fn()
	}()
}

// every runs fn on a fixed interval until ctx is cancelled, optionally once
// immediately. A slow fn delays the next tick rather than overlapping.
func (b *base) every(ctx context.Context, interval time.Duration, eager bool, fn func(context.Context)) {
	b.goRun(func() {
		if eager {
			fn(ctx)
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	})
}

// emit delivers res unless the run has ended. Late completions after Stop
// are dropped.
func (b *base) emit(ctx context.Context, res domain.DetectionResult) bool {
	if ctx.Err() != nil || !b.isRunning() {
		return false
	}

	res.Strategy = b.name
	res.Source = b.source
	if res.EmittedAt.IsZero() {
		res.EmittedAt = b.now()
	}
	b.record(res)

	select {
	case b.out <- res:
		return true
	case <-ctx.Done():
		return false
	}
}

func (b *base) record(res domain.DetectionResult) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.totalDetected += int64(len(res.Records))
	if len(res.Records) > 0 {
		b.lastDetection = res.EmittedAt
	}
	b.batches++
	b.avgProcessing += (res.Duration - b.avgProcessing) / time.Duration(b.batches)
}

// fail counts a transient failure and logs it. The run continues.
func (b *base) fail(err error, msg string) {
	b.mu.Lock()
	b.errorCount++
	b.mu.Unlock()
	b.log.Warn().Err(err).Msg(msg)
}
