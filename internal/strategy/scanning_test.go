package strategy

import (
	"context"
	"errors"
	"testing"
	"time"

	"solana-token-radar/internal/domain"
	"solana-token-radar/internal/solana"
	"solana-token-radar/internal/solana/stub"
)

func TestScanning_InspectsMostRecentSignatures(t *testing.T) {
	rpc := stub.NewRPCClient()

	sigs := []solana.SignatureInfo{
		{Signature: "s1"},
		{Signature: "s2", Err: map[string]interface{}{"InstructionError": 0}}, // failed on chain
		{Signature: "s3"},
		{Signature: "s4"},
		{Signature: "s5"},
		{Signature: "s6"},
		{Signature: "s7"}, // beyond the inspection window
	}
	rpc.AddSignatures(solana.TokenProgramID, sigs)

	rpc.AddTransaction(initMintTx("s1", testMint))
	rpc.FailTransaction("s3", errors.New("timeout"))
	rpc.AddTransaction(&solana.Transaction{Signature: "s4", Message: &solana.TransactionMessage{}}) // no mint
	rpc.AddTransaction(initMintTx("s5", testMint2))
	rpc.AddTransaction(initMintTx("s6", testMint)) // duplicate mint
	rpc.AddTransaction(initMintTx("s7", "So11111111111111111111111111111111111111112"))

	deps := testDeps()
	deps.RPC = rpc
	s := NewScanningStrategy(ScanningConfig{Interval: 10 * time.Millisecond}, deps)
	defer s.Stop()

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	res := receive(t, s)
	if res.Source != domain.SourceChainScan {
		t.Errorf("expected chain_scan source, got %s", res.Source)
	}
	if len(res.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(res.Records))
	}
	if res.Records[0].Address != testMint || res.Records[1].Address != testMint2 {
		t.Errorf("unexpected order: %s, %s", res.Records[0].Address, res.Records[1].Address)
	}
	if res.BatchSize != DefaultInspect {
		t.Errorf("expected %d inspected, got %d", DefaultInspect, res.BatchSize)
	}
	if len(res.Errors) != 1 {
		t.Errorf("expected the s3 failure to be reported, got %v", res.Errors)
	}
	if len(res.ProcessedSignatures) != 4 {
		t.Errorf("expected 4 processed signatures, got %v", res.ProcessedSignatures)
	}
	if s.Status().ErrorCount == 0 {
		t.Error("fetch failure should be counted")
	}
}

func TestScanning_SkipsProcessedSignatures(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.AddSignatures(solana.TokenProgramID, []solana.SignatureInfo{{Signature: "done"}})
	rpc.AddTransaction(initMintTx("done", testMint))

	deps := testDeps()
	deps.RPC = rpc
	deps.Signatures = &fakeLookup{sigs: map[string]bool{"done": true}}
	s := NewScanningStrategy(ScanningConfig{Interval: 5 * time.Millisecond}, deps)
	defer s.Stop()

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	expectNone(t, s, 50*time.Millisecond)
	if n := rpc.Calls("getTransaction"); n != 0 {
		t.Errorf("expected no fetches, got %d", n)
	}
}

func TestScanning_RequiresRPC(t *testing.T) {
	s := NewScanningStrategy(ScanningConfig{Interval: time.Second}, testDeps())
	if err := s.Start(context.Background()); !errors.Is(err, ErrConnectionUnavailable) {
		t.Fatalf("expected ErrConnectionUnavailable, got %v", err)
	}
}
