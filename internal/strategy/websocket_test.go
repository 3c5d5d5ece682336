package strategy

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"solana-token-radar/internal/domain"
	"solana-token-radar/internal/solana"
	"solana-token-radar/internal/solana/stub"
)

var poolLogs = []string{
	"Program 675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8 invoke [1]",
	"Program log: Instruction: InitializePool",
}

func newWSStrategy(t *testing.T) (*WebSocketStrategy, *stub.WSClient, *stub.RPCClient) {
	t.Helper()
	ws := stub.NewWSClient()
	rpc := stub.NewRPCClient()
	deps := testDeps()
	deps.WS = ws
	deps.RPC = rpc
	s := NewWebSocketStrategy(WebSocketConfig{RetryDelay: time.Millisecond}, deps)
	t.Cleanup(func() { s.Stop() })
	return s, ws, rpc
}

func TestWebSocket_EmitsMintFromPoolCreation(t *testing.T) {
	s, ws, rpc := newWSStrategy(t)
	rpc.AddTransaction(initMintTx("sig-pool", testMint))

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := ws.Active(); got != len(DefaultPrograms) {
		t.Fatalf("expected %d subscriptions, got %d", len(DefaultPrograms), got)
	}

	ws.Publish(solana.RaydiumAMMV4, solana.LogNotification{Signature: "sig-pool", Slot: 42, Logs: poolLogs})

	res := receive(t, s)
	if len(res.Records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(res.Records))
	}
	rec := res.Records[0]
	if rec.Address != testMint || rec.Source != domain.SourceWebSocket || rec.Signature != "sig-pool" {
		t.Errorf("unexpected record: %+v", rec)
	}
	if res.Strategy != NameWebSocket || res.Source != domain.SourceWebSocket {
		t.Errorf("unexpected result tags: %s/%s", res.Strategy, res.Source)
	}
	if len(res.ProcessedSignatures) != 1 || res.ProcessedSignatures[0] != "sig-pool" {
		t.Errorf("unexpected processed signatures: %v", res.ProcessedSignatures)
	}
	if res.Metadata["program"] != solana.RaydiumAMMV4 {
		t.Errorf("unexpected metadata: %v", res.Metadata)
	}

	st := s.Status()
	if !st.Running || st.TotalDetected != 1 || st.LastDetection.IsZero() {
		t.Errorf("unexpected status: %+v", st)
	}
}

func TestWebSocket_EnrichesMetadata(t *testing.T) {
	ws := stub.NewWSClient()
	rpc := stub.NewRPCClient()
	rpc.AddTransaction(initMintTx("sig-meta", testMint))

	deps := testDeps()
	deps.WS = ws
	deps.RPC = rpc
	deps.Metadata = &fakeResolver{meta: map[string]*solana.TokenMetadata{
		testMint: {Mint: testMint, Name: "Radar", Symbol: "RDR", Decimals: 6},
	}}
	s := NewWebSocketStrategy(WebSocketConfig{Programs: []string{solana.PumpFun}}, deps)
	defer s.Stop()

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	ws.Publish(solana.PumpFun, solana.LogNotification{Signature: "sig-meta", Logs: []string{"Program log: Instruction: Create"}})

	rec := receive(t, s).Records[0]
	if rec.Name != "Radar" || rec.Symbol != "RDR" || rec.Decimals != 6 {
		t.Errorf("record not enriched: %+v", rec)
	}
}

func TestWebSocket_IgnoresNonMatchingAndFailedLogs(t *testing.T) {
	s, ws, rpc := newWSStrategy(t)
	rpc.AddTransaction(initMintTx("sig-swap", testMint))

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	ws.Publish(solana.RaydiumAMMV4, solana.LogNotification{Signature: "sig-swap", Logs: []string{"Program log: Instruction: Swap"}})
	ws.Publish(solana.RaydiumAMMV4, solana.LogNotification{Signature: "sig-swap", Logs: poolLogs, Err: map[string]interface{}{"InstructionError": 1}})

	expectNone(t, s, 100*time.Millisecond)
	if n := rpc.Calls("getTransaction"); n != 0 {
		t.Errorf("expected no transaction fetches, got %d", n)
	}
}

func TestWebSocket_SkipsProcessedSignatures(t *testing.T) {
	ws := stub.NewWSClient()
	rpc := stub.NewRPCClient()
	rpc.AddTransaction(initMintTx("sig-seen", testMint))

	deps := testDeps()
	deps.WS = ws
	deps.RPC = rpc
	deps.Signatures = &fakeLookup{sigs: map[string]bool{"sig-seen": true}}
	s := NewWebSocketStrategy(WebSocketConfig{}, deps)
	defer s.Stop()

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	ws.Publish(solana.RaydiumAMMV4, solana.LogNotification{Signature: "sig-seen", Logs: poolLogs})

	expectNone(t, s, 100*time.Millisecond)
	if n := rpc.Calls("getTransaction"); n != 0 {
		t.Errorf("expected no transaction fetches, got %d", n)
	}
}

// flakyRPC reports the transaction as not found for the first misses calls.
type flakyRPC struct {
	*stub.RPCClient
	misses atomic.Int32
}

func (f *flakyRPC) GetTransaction(ctx context.Context, sig string) (*solana.Transaction, error) {
	if f.misses.Add(-1) >= 0 {
		return nil, nil
	}
	return f.RPCClient.GetTransaction(ctx, sig)
}

func TestWebSocket_RetriesTransactionFetch(t *testing.T) {
	ws := stub.NewWSClient()
	rpc := &flakyRPC{RPCClient: stub.NewRPCClient()}
	rpc.misses.Store(2)
	rpc.AddTransaction(initMintTx("sig-late", testMint))

	deps := testDeps()
	deps.WS = ws
	deps.RPC = rpc
	s := NewWebSocketStrategy(WebSocketConfig{RetryAttempts: 3, RetryDelay: time.Millisecond}, deps)
	defer s.Stop()

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	ws.Publish(solana.RaydiumAMMV4, solana.LogNotification{Signature: "sig-late", Logs: poolLogs})

	if res := receive(t, s); len(res.Records) != 1 {
		t.Fatalf("expected 1 record after retries, got %d", len(res.Records))
	}
}

func TestWebSocket_FetchFailureCounted(t *testing.T) {
	s, ws, rpc := newWSStrategy(t)
	rpc.FailTransaction("sig-bad", errors.New("node overloaded"))

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	ws.Publish(solana.RaydiumAMMV4, solana.LogNotification{Signature: "sig-bad", Logs: poolLogs})

	deadline := time.Now().Add(2 * time.Second)
	for s.Status().ErrorCount == 0 {
		if time.Now().After(deadline) {
			t.Fatal("error was not counted")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if n := rpc.Calls("getTransaction"); n != DefaultRetryAttempts {
		t.Errorf("expected %d attempts, got %d", DefaultRetryAttempts, n)
	}
	if !s.Status().Running {
		t.Error("strategy should keep running after a transient failure")
	}
}

func TestWebSocket_StopUnsubscribesEach(t *testing.T) {
	s, ws, _ := newWSStrategy(t)
	ws.UnsubscribeErr[solana.PumpFun] = errors.New("invalid subscription id")

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if got := len(ws.Unsubscribed()); got != len(DefaultPrograms) {
		t.Errorf("expected %d unsubscribe calls, got %d", len(DefaultPrograms), got)
	}
	if ws.Active() != 0 {
		t.Errorf("expected no active subscriptions, got %d", ws.Active())
	}
	if s.Status().Running {
		t.Error("strategy should be stopped")
	}

	// second stop is a no-op
	if err := s.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	if got := len(ws.Unsubscribed()); got != len(DefaultPrograms) {
		t.Errorf("second Stop must not unsubscribe again, got %d calls", got)
	}
}

func TestWebSocket_StartFailures(t *testing.T) {
	s := NewWebSocketStrategy(WebSocketConfig{}, testDeps())
	if err := s.Start(context.Background()); !errors.Is(err, ErrConnectionUnavailable) {
		t.Fatalf("expected ErrConnectionUnavailable, got %v", err)
	}
	if s.Status().Running {
		t.Fatal("strategy must stay stopped")
	}

	ws := stub.NewWSClient()
	ws.SubscribeErr = stub.ErrUnavailable
	deps := testDeps()
	deps.WS = ws
	deps.RPC = stub.NewRPCClient()
	s = NewWebSocketStrategy(WebSocketConfig{}, deps)

	err := s.Start(context.Background())
	if !errors.Is(err, ErrConnectionUnavailable) || !errors.Is(err, stub.ErrUnavailable) {
		t.Fatalf("expected wrapped subscribe error, got %v", err)
	}
	if s.Status().Running {
		t.Fatal("strategy must stay stopped")
	}
}

func TestWebSocket_DoubleStart(t *testing.T) {
	s, _, _ := newWSStrategy(t)
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
}
