package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public DexScreener API.
	DefaultBaseURL = "https://api.dexscreener.com"
	// MaxTokensPerRequest is the tokens endpoint batch limit.
	MaxTokensPerRequest = 30

	defaultChain = "solana"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("marketdata: circuit open")

// Config configures a DexScreener client.
type Config struct {
	BaseURL  string
	Timeout  time.Duration
	RPS      float64 // sustained requests per second
	Burst    int
	CacheTTL time.Duration

	// Breaker trips after this many consecutive failures and half-opens
	// after BreakerCooldown.
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// DefaultConfig stays under the 60 requests/minute public limit.
func DefaultConfig() Config {
	return Config{
		BaseURL:         DefaultBaseURL,
		Timeout:         10 * time.Second,
		RPS:             1,
		Burst:           2,
		CacheTTL:        15 * time.Second,
		BreakerFailures: 3,
		BreakerCooldown: 60 * time.Second,
	}
}

// Option configures a DexScreenerClient.
type Option func(*DexScreenerClient)

// WithHTTPClient sets a custom http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(d *DexScreenerClient) {
		d.http = c
	}
}

// WithCache replaces the in-memory response cache.
func WithCache(c Cache) Option {
	return func(d *DexScreenerClient) {
		d.cache = c
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(d *DexScreenerClient) {
		d.log = l
	}
}

// WithObserver is called once per endpoint request with its outcome:
// "ok", "cache_hit", "error" or "circuit_open".
func WithObserver(fn func(endpoint, outcome string)) Option {
	return func(d *DexScreenerClient) {
		d.observe = fn
	}
}

// DexScreenerClient implements Gateway against the DexScreener REST API.
type DexScreenerClient struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	cache   Cache
	log     zerolog.Logger
	observe func(endpoint, outcome string)
}

// NewDexScreenerClient creates a client.
func NewDexScreenerClient(cfg Config, opts ...Option) *DexScreenerClient {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RPS <= 0 {
		cfg.RPS = def.RPS
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = def.BreakerFailures
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = def.BreakerCooldown
	}

	failures := cfg.BreakerFailures
	d := &DexScreenerClient{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "dexscreener",
			Timeout: cfg.BreakerCooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			// A caller giving up says nothing about upstream health.
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled)
			},
		}),
		cache: NewMemoryCache(),
		log:   log.Logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.With().Str("component", "dexscreener").Logger()
	return d
}

// tokenListing is an entry of the token-profiles and token-boosts feeds.
type tokenListing struct {
	ChainID      string  `json:"chainId"`
	TokenAddress string  `json:"tokenAddress"`
	Amount       float64 `json:"amount"`
	TotalAmount  float64 `json:"totalAmount"`
}

// FetchTrending resolves the latest token profiles to their best pairs.
func (d *DexScreenerClient) FetchTrending(ctx context.Context, q TrendingQuery) ([]Pair, error) {
	chain := q.Chain
	if chain == "" {
		chain = defaultChain
	}
	var listings []tokenListing
	if err := d.getJSON(ctx, "profiles", "/token-profiles/latest/v1", &listings); err != nil {
		return nil, err
	}
	return d.resolve(ctx, chain, listings, q.Limit)
}

// FetchBoosted resolves the latest boosted tokens to their best pairs.
func (d *DexScreenerClient) FetchBoosted(ctx context.Context) ([]Pair, error) {
	var listings []tokenListing
	if err := d.getJSON(ctx, "boosts", "/token-boosts/latest/v1", &listings); err != nil {
		return nil, err
	}
	return d.resolve(ctx, defaultChain, listings, MaxTokensPerRequest)
}

// resolve looks up pairs for the listed tokens and keeps the deepest pair
// per base token, in listing order.
func (d *DexScreenerClient) resolve(ctx context.Context, chain string, listings []tokenListing, limit int) ([]Pair, error) {
	if limit <= 0 || limit > MaxTokensPerRequest {
		limit = MaxTokensPerRequest
	}

	seen := make(map[string]bool)
	var addrs []string
	for _, l := range listings {
		if l.ChainID != chain || l.TokenAddress == "" || seen[l.TokenAddress] {
			continue
		}
		seen[l.TokenAddress] = true
		addrs = append(addrs, l.TokenAddress)
		if len(addrs) == limit {
			break
		}
	}
	if len(addrs) == 0 {
		return nil, nil
	}

	var pairs []Pair
	path := fmt.Sprintf("/tokens/v1/%s/%s", chain, strings.Join(addrs, ","))
	if err := d.getJSON(ctx, "tokens", path, &pairs); err != nil {
		return nil, err
	}

	best := make(map[string]Pair, len(pairs))
	for _, p := range pairs {
		cur, ok := best[p.BaseToken.Address]
		if !ok || p.Liquidity.USD > cur.Liquidity.USD {
			best[p.BaseToken.Address] = p
		}
	}

	out := make([]Pair, 0, len(best))
	for _, addr := range addrs {
		if p, ok := best[addr]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// getJSON fetches path through cache, limiter and breaker and decodes it into out.
func (d *DexScreenerClient) getJSON(ctx context.Context, endpoint, path string, out interface{}) error {
	if body, ok := d.cached(ctx, path); ok {
		d.report(endpoint, "cache_hit")
		return json.Unmarshal(body, out)
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	res, err := d.breaker.Execute(func() (interface{}, error) {
		return d.get(ctx, path)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		d.report(endpoint, "circuit_open")
		return fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	if err != nil {
		if ctx.Err() != nil {
			d.report(endpoint, "canceled")
			return ctx.Err()
		}
		d.report(endpoint, "error")
		return err
	}
	d.report(endpoint, "ok")

	body := res.([]byte)
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", endpoint, err)
	}
	// Only bodies that decode are cached.
	if d.cfg.CacheTTL > 0 {
		if err := d.cache.Set(ctx, path, body, d.cfg.CacheTTL); err != nil {
			d.log.Warn().Err(err).Str("path", path).Msg("cache set failed")
		}
	}
	return nil
}

func (d *DexScreenerClient) cached(ctx context.Context, key string) ([]byte, bool) {
	if d.cfg.CacheTTL <= 0 {
		return nil, false
	}
	body, ok, err := d.cache.Get(ctx, key)
	if err != nil {
		d.log.Warn().Err(err).Str("path", key).Msg("cache get failed")
		return nil, false
	}
	return body, ok
}

func (d *DexScreenerClient) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.cfg.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 200))
	}
	return body, nil
}

func (d *DexScreenerClient) report(endpoint, outcome string) {
	if d.observe != nil {
		d.observe(endpoint, outcome)
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

var _ Gateway = (*DexScreenerClient)(nil)
