// Package recorder persists coordinator output to the configured sinks.
package recorder

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"solana-token-radar/internal/coordinator"
	"solana-token-radar/internal/domain"
	"solana-token-radar/internal/observability"
	"solana-token-radar/internal/storage"
)

// DefaultWriteTimeout bounds a single sink write.
const DefaultWriteTimeout = 5 * time.Second

// Options configures a Recorder. Either store may be nil.
type Options struct {
	Candidates   storage.CandidateStore
	Summaries    storage.SummaryStore
	Metrics      *observability.Metrics
	Logger       zerolog.Logger
	WriteTimeout time.Duration
}

// Recorder drains a subscription into the sinks. Write failures are
// logged and counted; they never stop the loop.
type Recorder struct {
	candidates storage.CandidateStore
	summaries  storage.SummaryStore
	metrics    *observability.Metrics
	log        zerolog.Logger
	timeout    time.Duration
}

// New creates a Recorder.
func New(opts Options) *Recorder {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}
	return &Recorder{
		candidates: opts.Candidates,
		summaries:  opts.Summaries,
		metrics:    opts.Metrics,
		log:        opts.Logger.With().Str("component", "recorder").Logger(),
		timeout:    opts.WriteTimeout,
	}
}

// Run consumes sub until ctx is cancelled or sub is closed.
func (r *Recorder) Run(ctx context.Context, sub *coordinator.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done():
			return
		case ev := <-sub.Candidates:
			r.saveCandidates(ctx, ev)
		case sum := <-sub.Results:
			r.saveSummary(ctx, sum)
		}
	}
}

func (r *Recorder) saveCandidates(ctx context.Context, ev coordinator.NewCandidates) {
	if r.candidates == nil || len(ev.Records) == 0 {
		return
	}
	wctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	err := r.candidates.InsertBatch(wctx, ev.BatchID, ev.Records)
	r.metrics.ObserveSink("candidates", "insert", time.Since(start), err)
	if err != nil {
		r.log.Warn().Err(err).Str("batch_id", ev.BatchID).Int("records", len(ev.Records)).Msg("store candidates failed")
		return
	}
	r.log.Debug().Str("batch_id", ev.BatchID).Int("records", len(ev.Records)).Msg("candidates stored")
}

func (r *Recorder) saveSummary(ctx context.Context, sum domain.DetectionSummary) {
	if r.summaries == nil {
		return
	}
	wctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	err := r.summaries.Insert(wctx, sum)
	if errors.Is(err, storage.ErrDuplicateKey) {
		r.log.Debug().Str("batch_id", sum.BatchID).Msg("summary already stored")
		err = nil
	}
	r.metrics.ObserveSink("summaries", "insert", time.Since(start), err)
	if err != nil {
		r.log.Warn().Err(err).Str("batch_id", sum.BatchID).Msg("store summary failed")
	}
}
