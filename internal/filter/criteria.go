// Package filter scores candidate records against acceptance criteria.
package filter

import (
	"fmt"
	"sort"
	"time"
)

// AcceptanceCriteria holds the thresholds a candidate is scored against.
// Zero volume and transaction thresholds disable those signals.
type AcceptanceCriteria struct {
	Name               string        `yaml:"name"`
	MinLiquidityUSD    float64       `yaml:"min_liquidity_usd"`
	MaxAge             time.Duration `yaml:"max_age"`
	MinConfidenceScore int           `yaml:"min_confidence_score"`

	MinVolume5m  float64 `yaml:"min_volume_5m"`
	MinVolume1h  float64 `yaml:"min_volume_1h"`
	MinVolume24h float64 `yaml:"min_volume_24h"`

	MinTransactions5m int `yaml:"min_transactions_5m"`
	MinTransactions1h int `yaml:"min_transactions_1h"`

	HoneypotFilter bool `yaml:"honeypot_filter"`
	RugFilter      bool `yaml:"rug_filter"`
}

// Aggressive favours recall: almost anything fresh with a valid address passes.
func Aggressive() AcceptanceCriteria {
	return AcceptanceCriteria{
		Name:               "aggressive",
		MinLiquidityUSD:    0,
		MaxAge:             time.Hour,
		MinConfidenceScore: 5,
		HoneypotFilter:     true,
		RugFilter:          false,
	}
}

// Balanced sits between the two extremes.
func Balanced() AcceptanceCriteria {
	return AcceptanceCriteria{
		Name:               "balanced",
		MinLiquidityUSD:    5_000,
		MaxAge:             30 * time.Minute,
		MinConfidenceScore: 50,
		MinVolume1h:        1_000,
		HoneypotFilter:     true,
		RugFilter:          true,
	}
}

// Conservative favours precision.
func Conservative() AcceptanceCriteria {
	return AcceptanceCriteria{
		Name:               "conservative",
		MinLiquidityUSD:    50_000,
		MaxAge:             30 * time.Minute,
		MinConfidenceScore: 70,
		MinVolume5m:        1_000,
		MinVolume1h:        10_000,
		MinTransactions5m:  10,
		MinTransactions1h:  50,
		HoneypotFilter:     true,
		RugFilter:          true,
	}
}

var presets = map[string]func() AcceptanceCriteria{
	"aggressive":   Aggressive,
	"balanced":     Balanced,
	"conservative": Conservative,
}

// Preset returns the named criteria.
func Preset(name string) (AcceptanceCriteria, error) {
	fn, ok := presets[name]
	if !ok {
		return AcceptanceCriteria{}, fmt.Errorf("unknown preset: %q (available: %v)", name, PresetNames())
	}
	return fn(), nil
}

// PresetNames returns the preset names in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks the criteria for values that can never be satisfied.
func (c AcceptanceCriteria) Validate() error {
	if c.MaxAge <= 0 {
		return fmt.Errorf("max_age must be positive")
	}
	if c.MinLiquidityUSD < 0 {
		return fmt.Errorf("min_liquidity_usd must not be negative")
	}
	if c.MinVolume5m < 0 || c.MinVolume1h < 0 || c.MinVolume24h < 0 {
		return fmt.Errorf("volume thresholds must not be negative")
	}
	if c.MinTransactions5m < 0 || c.MinTransactions1h < 0 {
		return fmt.Errorf("transaction thresholds must not be negative")
	}
	return nil
}
