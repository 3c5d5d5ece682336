package strategy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"solana-token-radar/internal/domain"
	"solana-token-radar/internal/marketdata"
	"solana-token-radar/internal/solana"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testPair(addr string) marketdata.Pair {
	return marketdata.Pair{
		ChainID:     "solana",
		PairAddress: "pair-" + addr[:4],
		BaseToken:   marketdata.Token{Address: addr, Name: "Alpha", Symbol: "ALP"},
		QuoteToken:  marketdata.Token{Address: solana.WSOLMint, Symbol: "SOL"},
		PriceUSD:    decimal.RequireFromString("0.0025"),
		Volume:      marketdata.Windows{M5: 2_000, H1: 12_000, H24: 50_000},
		PriceChange: marketdata.Windows{H1: 20},
		Txns:        marketdata.TxnWindows{M5: marketdata.TxnCount{Buys: 10, Sells: 4}},
		Liquidity:   marketdata.PairLiquidity{USD: 60_000, Quote: 180},
		// ten minutes before testNow
		PairCreatedAt: testNow.Add(-10 * time.Minute).UnixMilli(),
	}
}

func TestPairToRecord(t *testing.T) {
	rec := pairToRecord(testPair(testMint), domain.SourcePolling, testNow)

	if rec.Address != testMint || rec.Name != "Alpha" || rec.Symbol != "ALP" {
		t.Errorf("identity not mapped: %+v", rec)
	}
	if rec.Liquidity.USD != 60_000 || rec.Liquidity.Native != 180 {
		t.Errorf("liquidity not mapped: %+v", rec.Liquidity)
	}
	if rec.PriceUSD != 0.0025 {
		t.Errorf("expected price 0.0025, got %v", rec.PriceUSD)
	}
	if !rec.DetectedAt.Equal(testNow) {
		t.Errorf("expected discovery time, got %v", rec.DetectedAt)
	}
	if !rec.PairCreatedAt.Equal(testNow.Add(-10 * time.Minute)) {
		t.Errorf("expected pair creation time, got %v", rec.PairCreatedAt)
	}
	// volume 20 + price 10 + txns 7 + liquidity 10
	if rec.TrendingScore == nil || *rec.TrendingScore != 47 {
		t.Errorf("unexpected trending score: %v", rec.TrendingScore)
	}

	p := testPair(testMint)
	p.PairCreatedAt = testNow.Add(time.Hour).UnixMilli()
	if rec := pairToRecord(p, domain.SourcePolling, testNow); !rec.PairCreatedAt.IsZero() {
		t.Errorf("future creation time should be dropped, got %v", rec.PairCreatedAt)
	}
}

func TestPolling_EagerFetchOnStart(t *testing.T) {
	gw := &fakeGateway{trending: []marketdata.Pair{testPair(testMint), testPair(testMint2), {}}}
	deps := testDeps()
	deps.Gateway = gw
	s := NewPollingStrategy(PollingConfig{Interval: time.Hour}, deps)
	defer s.Stop()

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	res := receive(t, s)
	if len(res.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(res.Records))
	}
	if res.Records[0].Address != testMint || res.Records[1].Address != testMint2 {
		t.Error("record order must follow the listing")
	}
	if res.BatchSize != 3 || res.Source != domain.SourcePolling {
		t.Errorf("unexpected result: batch=%d source=%s", res.BatchSize, res.Source)
	}
}

func TestPolling_RepeatsOnInterval(t *testing.T) {
	gw := &fakeGateway{trending: []marketdata.Pair{testPair(testMint)}}
	deps := testDeps()
	deps.Gateway = gw
	s := NewPollingStrategy(PollingConfig{Interval: 20 * time.Millisecond}, deps)
	defer s.Stop()

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 3; i++ {
		receive(t, s)
	}
	if gw.Calls("trending") < 3 {
		t.Errorf("expected at least 3 fetches, got %d", gw.Calls("trending"))
	}
}

func TestPolling_GatewayErrorIsTransient(t *testing.T) {
	gw := &fakeGateway{err: errors.New("502 bad gateway")}
	deps := testDeps()
	deps.Gateway = gw
	s := NewPollingStrategy(PollingConfig{Interval: 10 * time.Millisecond}, deps)
	defer s.Stop()

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	expectNone(t, s, 50*time.Millisecond)

	st := s.Status()
	if !st.Running || st.ErrorCount == 0 {
		t.Errorf("expected running with errors counted, got %+v", st)
	}
}

func TestPolling_StopHaltsFetches(t *testing.T) {
	gw := &fakeGateway{}
	deps := testDeps()
	deps.Gateway = gw
	s := NewPollingStrategy(PollingConfig{Interval: 5 * time.Millisecond}, deps)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	calls := gw.Calls("trending")
	time.Sleep(30 * time.Millisecond)
	if got := gw.Calls("trending"); got != calls {
		t.Errorf("fetches continued after Stop: %d -> %d", calls, got)
	}
}

func TestPolling_RequiresGateway(t *testing.T) {
	s := NewPollingStrategy(PollingConfig{Interval: time.Second}, testDeps())
	if err := s.Start(context.Background()); !errors.Is(err, ErrConnectionUnavailable) {
		t.Fatalf("expected ErrConnectionUnavailable, got %v", err)
	}
}

func TestBoost_TagsSource(t *testing.T) {
	gw := &fakeGateway{boosted: []marketdata.Pair{testPair(testMint)}}
	deps := testDeps()
	deps.Gateway = gw
	s := NewBoostStrategy(BoostConfig{Interval: time.Hour}, deps)
	defer s.Stop()

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	res := receive(t, s)
	if res.Source != domain.SourceBoost || res.Records[0].Source != domain.SourceBoost {
		t.Errorf("expected boost source, got %s/%s", res.Source, res.Records[0].Source)
	}
	if gw.Calls("trending") != 0 {
		t.Error("boost strategy must not call the trending listing")
	}
}
