package strategy

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"solana-token-radar/internal/domain"
	"solana-token-radar/internal/solana"
)

// WebSocket defaults.
const (
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = 500 * time.Millisecond
	unsubscribeTimeout   = 5 * time.Second
)

// DefaultPrograms are the venues watched for pool and mint creation.
var DefaultPrograms = []string{
	solana.RaydiumAMMV4,
	solana.RaydiumCPMM,
	solana.OrcaWhirlpool,
	solana.PumpFun,
}

// errTxUnavailable marks a transaction the node has not indexed yet.
var errTxUnavailable = errors.New("transaction not yet available")

// WebSocketConfig configures WebSocketStrategy.
type WebSocketConfig struct {
	Programs      []string
	RetryAttempts int
	RetryDelay    time.Duration
}

// WebSocketStrategy watches program logs for pool/mint creation and
// resolves the mints from the full transaction.
type WebSocketStrategy struct {
	*base
	cfg        WebSocketConfig
	ws         solana.WSClient
	rpc        solana.RPCClient
	metadata   MetadataResolver
	signatures SignatureLookup

	subsMu sync.Mutex
	subs   map[uint64]string // subscription ID -> program
}

// NewWebSocketStrategy creates a log subscription strategy.
func NewWebSocketStrategy(cfg WebSocketConfig, deps Deps) *WebSocketStrategy {
	if len(cfg.Programs) == 0 {
		cfg.Programs = DefaultPrograms
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = DefaultRetryAttempts
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}
	return &WebSocketStrategy{
		base:       newBase(NameWebSocket, domain.SourceWebSocket, deps),
		cfg:        cfg,
		ws:         deps.WS,
		rpc:        deps.RPC,
		metadata:   deps.Metadata,
		signatures: deps.Signatures,
		subs:       make(map[uint64]string),
	}
}

// Start subscribes to every configured program. It fails if no
// subscription could be established.
func (s *WebSocketStrategy) Start(ctx context.Context) error {
	if s.ws == nil || s.rpc == nil {
		return ErrConnectionUnavailable
	}
	runCtx, err := s.begin(ctx)
	if err != nil {
		return err
	}

	var lastErr error
	for _, program := range s.cfg.Programs {
		program := program
		sub, err := s.ws.SubscribeLogs(runCtx, solana.LogsFilter{Mentions: []string{program}})
		if err != nil {
			lastErr = err
			s.fail(err, "subscribe failed for "+program)
			continue
		}
		s.subsMu.Lock()
		s.subs[sub.ID] = program
		s.subsMu.Unlock()

		s.goRun(func() { s.consume(runCtx, program, sub) })
	}

	if s.activeSubscriptions() == 0 {
		s.end()
		return errors.Join(ErrConnectionUnavailable, lastErr)
	}

	s.log.Info().Int("subscriptions", s.activeSubscriptions()).Msg("websocket started")
	return nil
}

// Stop unsubscribes each subscription individually, logging failures,
// then waits for handlers to exit.
func (s *WebSocketStrategy) Stop() error {
	if !s.isRunning() {
		return nil
	}

	s.subsMu.Lock()
	subs := s.subs
	s.subs = make(map[uint64]string)
	s.subsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), unsubscribeTimeout)
	defer cancel()

	failed := 0
	for id, program := range subs {
		if err := s.ws.Unsubscribe(ctx, id); err != nil {
			failed++
			s.log.Warn().Err(err).Uint64("subscription", id).Str("program", program).Msg("unsubscribe failed")
		}
	}

	s.end()
	s.log.Info().Int("unsubscribed", len(subs)-failed).Int("failed", failed).Msg("websocket stopped")
	return nil
}

func (s *WebSocketStrategy) activeSubscriptions() int {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	return len(s.subs)
}

func (s *WebSocketStrategy) consume(ctx context.Context, program string, sub *solana.LogSubscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.Done():
			return
		case n := <-sub.C:
			s.handle(ctx, program, n)
		}
	}
}

func (s *WebSocketStrategy) handle(ctx context.Context, program string, n solana.LogNotification) {
	if n.Err != nil || !MatchesCreation(n.Logs) {
		return
	}
	if s.signatures != nil && s.signatures.HasProcessedSignature(n.Signature) {
		return
	}

	start := s.now()
	tx, err := s.fetchTransaction(ctx, n.Signature)
	if err != nil {
		if ctx.Err() == nil {
			s.fail(err, "get transaction failed for "+n.Signature)
		}
		return
	}

	mints := ExtractMints(tx)
	records := make([]*domain.CandidateRecord, 0, len(mints))
	for _, mint := range mints {
		rec := &domain.CandidateRecord{
			Address:    mint,
			Signature:  n.Signature,
			DetectedAt: s.now(),
			Source:     s.source,
		}
		enrich(ctx, s.metadata, rec, s.log)
		records = append(records, rec)
	}
	if len(records) == 0 {
		return
	}

	s.emit(ctx, domain.DetectionResult{
		Records:             records,
		Duration:            s.now().Sub(start),
		BatchSize:           len(n.Logs),
		ProcessedSignatures: []string{n.Signature},
		Metadata: map[string]string{
			"program":   program,
			"signature": n.Signature,
			"slot":      strconv.FormatInt(n.Slot, 10),
		},
	})
}

// fetchTransaction retries with exponential backoff: the node often
// announces logs before the transaction is queryable.
func (s *WebSocketStrategy) fetchTransaction(ctx context.Context, sig string) (*solana.Transaction, error) {
	var lastErr error
	for attempt := 0; attempt < s.cfg.RetryAttempts; attempt++ {
		tx, err := s.rpc.GetTransaction(ctx, sig)
		if err == nil && tx != nil {
			return tx, nil
		}
		if err == nil {
			err = errTxUnavailable
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt == s.cfg.RetryAttempts-1 {
			break
		}

		delay := s.cfg.RetryDelay * time.Duration(1<<attempt)
		s.log.Debug().Err(err).Str("signature", sig).Int("attempt", attempt+1).Dur("delay", delay).Msg("retrying transaction fetch")

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

// enrich fills decimals, name and symbol when a resolver is configured.
// Lookup failures leave the record as is.
func enrich(ctx context.Context, r MetadataResolver, rec *domain.CandidateRecord, log zerolog.Logger) {
	if r == nil {
		return
	}
	meta, err := r.Fetch(ctx, rec.Address)
	if err != nil {
		log.Debug().Err(err).Str("mint", rec.Address).Msg("metadata lookup failed")
		return
	}
	if meta == nil {
		return
	}
	rec.Decimals = meta.Decimals
	if rec.Name == "" {
		rec.Name = meta.Name
	}
	if rec.Symbol == "" {
		rec.Symbol = meta.Symbol
	}
}
