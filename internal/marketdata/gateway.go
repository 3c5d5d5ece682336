// Package marketdata fetches token listings from market-data aggregators.
package marketdata

import (
	"context"

	"github.com/shopspring/decimal"
)

// Gateway is the market-data surface used by the polling strategies.
// Implementations handle rate limiting and caching themselves.
type Gateway interface {
	// FetchTrending returns pairs for recently listed/updated tokens.
	FetchTrending(ctx context.Context, q TrendingQuery) ([]Pair, error)
	// FetchBoosted returns pairs for tokens with active paid boosts.
	FetchBoosted(ctx context.Context) ([]Pair, error)
}

// TrendingQuery narrows a trending fetch.
type TrendingQuery struct {
	Chain string // defaults to "solana"
	Limit int    // max tokens, capped at MaxTokensPerRequest
}

// Pair is a DEX pair as reported by DexScreener.
type Pair struct {
	ChainID       string          `json:"chainId"`
	DexID         string          `json:"dexId"`
	URL           string          `json:"url"`
	PairAddress   string          `json:"pairAddress"`
	BaseToken     Token           `json:"baseToken"`
	QuoteToken    Token           `json:"quoteToken"`
	PriceNative   decimal.Decimal `json:"priceNative"`
	PriceUSD      decimal.Decimal `json:"priceUsd"`
	Txns          TxnWindows      `json:"txns"`
	Volume        Windows         `json:"volume"`
	PriceChange   Windows         `json:"priceChange"`
	Liquidity     PairLiquidity   `json:"liquidity"`
	FDV           float64         `json:"fdv"`
	MarketCap     float64         `json:"marketCap"`
	PairCreatedAt int64           `json:"pairCreatedAt"` // unix ms
	Boosts        *Boosts         `json:"boosts,omitempty"`
}

// Token identifies one side of a pair.
type Token struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// Windows is a metric over the aggregator's time windows.
type Windows struct {
	M5  float64 `json:"m5"`
	H1  float64 `json:"h1"`
	H6  float64 `json:"h6"`
	H24 float64 `json:"h24"`
}

// TxnCount is buys/sells in one window.
type TxnCount struct {
	Buys  int `json:"buys"`
	Sells int `json:"sells"`
}

// TxnWindows holds transaction counts per window.
type TxnWindows struct {
	M5  TxnCount `json:"m5"`
	H1  TxnCount `json:"h1"`
	H6  TxnCount `json:"h6"`
	H24 TxnCount `json:"h24"`
}

// PairLiquidity is pool depth. Base and Quote are token amounts.
type PairLiquidity struct {
	USD   float64 `json:"usd"`
	Base  float64 `json:"base"`
	Quote float64 `json:"quote"`
}

// Boosts reports paid promotion.
type Boosts struct {
	Active int `json:"active"`
}
