package strategy

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"solana-token-radar/internal/marketdata"
	"solana-token-radar/internal/solana"
)

// Strategy names.
const (
	NameWebSocket = "websocket"
	NamePolling   = "polling"
	NameScanning  = "scanning"
	NameBoost     = "boost"
)

// StartOrder is the fixed order strategies are started in.
var StartOrder = []string{NameWebSocket, NamePolling, NameScanning, NameBoost}

// Registry errors.
var (
	ErrUnknownStrategy = errors.New("unknown strategy")
	ErrMissingInterval = errors.New("polling strategies require a positive interval")
)

// Deps are the shared clients handed to every constructor. Any of them
// may be nil; strategies that need a missing client fail on Start.
type Deps struct {
	RPC        solana.RPCClient
	WS         solana.WSClient
	Gateway    marketdata.Gateway
	Metadata   MetadataResolver
	Signatures SignatureLookup
	Logger     zerolog.Logger
	Now        func() time.Time
}

// Settings is the per-strategy configuration.
type Settings struct {
	Name     string
	Enabled  bool
	Required bool

	Interval   time.Duration // polling, scanning; base interval for boost
	Multiplier int           // boost: Interval * Multiplier
	Limit      int           // polling: tokens per fetch; scanning: signatures listed
	Inspect    int           // scanning: most recent signatures inspected
	Programs   []string      // websocket: program IDs to subscribe to

	RetryAttempts int
	RetryDelay    time.Duration
}

// Constructor builds a strategy from settings.
type Constructor func(s Settings, deps Deps) (Strategy, error)

// Entry is a constructed strategy and whether its start is mandatory.
type Entry struct {
	Strategy Strategy
	Required bool
}

var registry = map[string]Constructor{
	NameWebSocket: func(s Settings, d Deps) (Strategy, error) {
		return NewWebSocketStrategy(WebSocketConfig{
			Programs:      s.Programs,
			RetryAttempts: s.RetryAttempts,
			RetryDelay:    s.RetryDelay,
		}, d), nil
	},
	NamePolling: func(s Settings, d Deps) (Strategy, error) {
		if s.Interval <= 0 {
			return nil, ErrMissingInterval
		}
		return NewPollingStrategy(PollingConfig{Interval: s.Interval, Limit: s.Limit}, d), nil
	},
	NameScanning: func(s Settings, d Deps) (Strategy, error) {
		if s.Interval <= 0 {
			return nil, ErrMissingInterval
		}
		return NewScanningStrategy(ScanningConfig{
			Interval:       s.Interval,
			SignatureLimit: s.Limit,
			Inspect:        s.Inspect,
		}, d), nil
	},
	NameBoost: func(s Settings, d Deps) (Strategy, error) {
		if s.Interval <= 0 {
			return nil, ErrMissingInterval
		}
		m := s.Multiplier
		if m <= 0 {
			m = DefaultBoostMultiplier
		}
		return NewBoostStrategy(BoostConfig{Interval: s.Interval * time.Duration(m)}, d), nil
	},
}

// New builds one strategy by name.
func New(s Settings, deps Deps) (Strategy, error) {
	ctor, ok := registry[s.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, s.Name)
	}
	st, err := ctor(s, deps)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name, err)
	}
	return st, nil
}

// Build constructs every enabled strategy in StartOrder.
func Build(settings []Settings, deps Deps) ([]Entry, error) {
	byName := make(map[string]Settings, len(settings))
	for _, s := range settings {
		if _, ok := registry[s.Name]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, s.Name)
		}
		byName[s.Name] = s
	}

	var entries []Entry
	for _, name := range StartOrder {
		s, ok := byName[name]
		if !ok || !s.Enabled {
			continue
		}
		st, err := New(s, deps)
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Strategy: st, Required: s.Required})
	}
	return entries, nil
}
