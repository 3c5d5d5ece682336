package domain

import "time"

// CandidateRecord is a single discovered token with its market snapshot.
// Records are treated as immutable once they leave the coordinator.
type CandidateRecord struct {
	Address  string // token mint address
	Name     string
	Symbol   string
	Decimals int

	Liquidity   Liquidity
	Volume      Windows // quote-currency volume
	PriceChange Windows // percent
	Txns        TxnWindows

	PriceUSD    float64
	PairAddress string // pool/pair address if known
	Signature   string // discovery transaction signature if known

	DetectedAt    time.Time // when the radar first saw the token
	PairCreatedAt time.Time // pool creation time, zero when the source has none
	Source        Source
	TrendingScore *float64 // nil when the source has no momentum data
	RiskScore     *float64
}

// Liquidity is a pool liquidity snapshot.
type Liquidity struct {
	USD    float64
	Native float64 // SOL side
}

// Windows holds a metric over the standard 5m/1h/24h windows.
type Windows struct {
	M5  float64
	H1  float64
	H24 float64
}

// TxnCount is buys and sells within one window.
type TxnCount struct {
	Buys  int
	Sells int
}

// Total returns buys + sells.
func (c TxnCount) Total() int {
	return c.Buys + c.Sells
}

// TxnWindows holds transaction counts per window.
type TxnWindows struct {
	M5  TxnCount
	H1  TxnCount
	H24 TxnCount
}

// HasMetadata reports whether both name and symbol are set.
func (r *CandidateRecord) HasMetadata() bool {
	return r.Name != "" && r.Symbol != ""
}

// Trending returns the trending score, or 0 when absent.
func (r *CandidateRecord) Trending() float64 {
	if r.TrendingScore == nil {
		return 0
	}
	return *r.TrendingScore
}

// CreatedAt is the best known token creation time: the pool creation time
// when reported, else DetectedAt.
func (r *CandidateRecord) CreatedAt() time.Time {
	if !r.PairCreatedAt.IsZero() {
		return r.PairCreatedAt
	}
	return r.DetectedAt
}

// Clone returns a deep copy so callers can't mutate cached state.
func (r *CandidateRecord) Clone() *CandidateRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.TrendingScore != nil {
		v := *r.TrendingScore
		c.TrendingScore = &v
	}
	if r.RiskScore != nil {
		v := *r.RiskScore
		c.RiskScore = &v
	}
	return &c
}

// Float64Ptr is a helper for optional score fields.
func Float64Ptr(v float64) *float64 {
	return &v
}
