package strategy

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"solana-token-radar/internal/domain"
	"solana-token-radar/internal/solana"
)

// Scanning defaults.
const (
	DefaultSignatureLimit = 20
	DefaultInspect        = 5
	scanConcurrency       = 5
)

// ScanningConfig configures ScanningStrategy.
type ScanningConfig struct {
	Interval       time.Duration
	Program        string // defaults to the SPL token program
	SignatureLimit int
	Inspect        int
}

// ScanningStrategy samples recent token program transactions for mint
// initializations.
type ScanningStrategy struct {
	*base
	cfg        ScanningConfig
	rpc        solana.RPCClient
	metadata   MetadataResolver
	signatures SignatureLookup
}

// NewScanningStrategy creates a chain scanning strategy.
func NewScanningStrategy(cfg ScanningConfig, deps Deps) *ScanningStrategy {
	if cfg.Program == "" {
		cfg.Program = solana.TokenProgramID
	}
	if cfg.SignatureLimit <= 0 {
		cfg.SignatureLimit = DefaultSignatureLimit
	}
	if cfg.Inspect <= 0 {
		cfg.Inspect = DefaultInspect
	}
	return &ScanningStrategy{
		base:       newBase(NameScanning, domain.SourceChainScan, deps),
		cfg:        cfg,
		rpc:        deps.RPC,
		metadata:   deps.Metadata,
		signatures: deps.Signatures,
	}
}

// Start begins scanning on the configured interval.
func (s *ScanningStrategy) Start(ctx context.Context) error {
	if s.rpc == nil {
		return ErrConnectionUnavailable
	}
	runCtx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	s.log.Info().Dur("interval", s.cfg.Interval).Str("program", s.cfg.Program).Msg("scanning started")
	s.every(runCtx, s.cfg.Interval, false, s.scan)
	return nil
}

// Stop cancels the timer and abandons in-flight fetches.
func (s *ScanningStrategy) Stop() error {
	if s.end() {
		s.log.Info().Msg("scanning stopped")
	}
	return nil
}

func (s *ScanningStrategy) scan(ctx context.Context) {
	start := s.now()
	sigs, err := s.rpc.GetSignaturesForAddress(ctx, s.cfg.Program, &solana.SignaturesOpts{Limit: s.cfg.SignatureLimit})
	if err != nil {
		if ctx.Err() == nil {
			s.fail(err, "list signatures failed")
		}
		return
	}

	var candidates []string
	for _, sig := range sigs {
		if len(candidates) == s.cfg.Inspect {
			break
		}
		if sig.Err != nil {
			continue
		}
		if s.signatures != nil && s.signatures.HasProcessedSignature(sig.Signature) {
			continue
		}
		candidates = append(candidates, sig.Signature)
	}
	if len(candidates) == 0 {
		return
	}

	// Fetch concurrently, keep signature order in the output.
	txs := make([]*solana.Transaction, len(candidates))
	var (
		mu       sync.Mutex
		failures []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scanConcurrency)
	for i, sig := range candidates {
		i, sig := i, sig
		g.Go(func() error {
			tx, err := s.rpc.GetTransaction(gctx, sig)
			if err != nil || tx == nil {
				if err != nil && gctx.Err() == nil {
					s.fail(err, "get transaction failed, skipping")
					mu.Lock()
					failures = append(failures, sig+": "+err.Error())
					mu.Unlock()
				}
				return nil
			}
			txs[i] = tx
			return nil
		})
	}
	_ = g.Wait()
	if ctx.Err() != nil {
		return
	}

	var (
		records   []*domain.CandidateRecord
		processed []string
	)
	seen := make(map[string]bool)
	for _, tx := range txs {
		if tx == nil {
			continue
		}
		processed = append(processed, tx.Signature)
		if tx.Failed() {
			continue
		}
		for _, mint := range InitializedMints(tx) {
			if seen[mint] || solana.IsQuoteMint(mint) {
				continue
			}
			seen[mint] = true
			rec := &domain.CandidateRecord{
				Address:    mint,
				Signature:  tx.Signature,
				DetectedAt: s.now(),
				Source:     s.source,
			}
			enrich(ctx, s.metadata, rec, s.log)
			records = append(records, rec)
		}
	}

	if len(records) == 0 && len(processed) == 0 {
		return
	}
	s.emit(ctx, domain.DetectionResult{
		Records:             records,
		Duration:            s.now().Sub(start),
		BatchSize:           len(candidates),
		Errors:              failures,
		ProcessedSignatures: processed,
		Metadata:            map[string]string{"listed": strconv.Itoa(len(sigs))},
	})
}
