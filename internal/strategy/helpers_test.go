package strategy

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/rs/zerolog"

	"solana-token-radar/internal/domain"
	"solana-token-radar/internal/marketdata"
	"solana-token-radar/internal/solana"
)

const (
	testMint  = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"
	testMint2 = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
	testPayer = "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"
)

func testDeps() Deps {
	return Deps{Logger: zerolog.Nop()}
}

// receive waits for one result or fails the test.
func receive(t *testing.T, s Strategy) domain.DetectionResult {
	t.Helper()
	select {
	case res := <-s.Results():
		return res
	case <-time.After(2 * time.Second):
		t.Fatalf("%s: timeout waiting for result", s.Name())
		return domain.DetectionResult{}
	}
}

// expectNone fails if a result arrives within d.
func expectNone(t *testing.T, s Strategy, d time.Duration) {
	t.Helper()
	select {
	case res := <-s.Results():
		t.Fatalf("%s: unexpected result %+v", s.Name(), res)
	case <-time.After(d):
	}
}

// initMintTx builds a transaction whose first instruction is
// InitializeMint2 for mint, with a WSOL balance alongside.
func initMintTx(sig, mint string) *solana.Transaction {
	return &solana.Transaction{
		Slot:      42,
		Signature: sig,
		Meta: &solana.TransactionMeta{
			PostTokenBalances: []solana.TokenBalance{
				{AccountIndex: 3, Mint: solana.WSOLMint, Decimals: 9},
				{AccountIndex: 4, Mint: mint, Decimals: 6},
			},
		},
		Message: &solana.TransactionMessage{
			AccountKeys: []string{testPayer, mint, solana.TokenProgramID},
			Instructions: []solana.Instruction{
				{ProgramIDIndex: 2, Accounts: []int{1}, Data: base58.Encode([]byte{ixInitializeMint2, 6})},
			},
		},
	}
}

type fakeLookup struct {
	mu   sync.Mutex
	sigs map[string]bool
}

func (f *fakeLookup) HasProcessedSignature(sig string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sigs[sig]
}

type fakeResolver struct {
	meta map[string]*solana.TokenMetadata
}

func (f *fakeResolver) Fetch(_ context.Context, mint string) (*solana.TokenMetadata, error) {
	return f.meta[mint], nil
}

type fakeGateway struct {
	mu       sync.Mutex
	trending []marketdata.Pair
	boosted  []marketdata.Pair
	err      error
	calls    map[string]int
}

func (g *fakeGateway) FetchTrending(context.Context, marketdata.TrendingQuery) ([]marketdata.Pair, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.count("trending")
	return g.trending, g.err
}

func (g *fakeGateway) FetchBoosted(context.Context) ([]marketdata.Pair, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.count("boosted")
	return g.boosted, g.err
}

func (g *fakeGateway) count(k string) {
	if g.calls == nil {
		g.calls = make(map[string]int)
	}
	g.calls[k]++
}

func (g *fakeGateway) Calls(k string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[k]
}
