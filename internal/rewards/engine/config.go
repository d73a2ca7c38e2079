package engine

import "github.com/shopspring/decimal"

// Config holds the reward policy. A zero rate or promotion value disables
// that benefit; a zero threshold, window or worker count falls back to
// DefaultConfig.
type Config struct {
	// LoyaltyThreshold is the windowed order count that makes a guest loyal.
	LoyaltyThreshold int
	// LoyaltyRate is the share of windowed spend given back to loyal guests.
	LoyaltyRate decimal.Decimal
	// PromotionValue is the benefit per rule application when a rule has no override.
	PromotionValue decimal.Decimal
	// WindowDays is the length of the trailing order window.
	WindowDays int
	// Workers bounds per-customer evaluation concurrency.
	Workers int
}

func DefaultConfig() Config {
	return Config{
		LoyaltyThreshold: 3,
		LoyaltyRate:      decimal.RequireFromString("0.05"),
		PromotionValue:   decimal.NewFromInt(10),
		WindowDays:       30,
		Workers:          4,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.LoyaltyThreshold <= 0 {
		c.LoyaltyThreshold = defaults.LoyaltyThreshold
	}
	if c.LoyaltyRate.IsNegative() {
		c.LoyaltyRate = defaults.LoyaltyRate
	}
	if c.PromotionValue.IsNegative() {
		c.PromotionValue = defaults.PromotionValue
	}
	if c.WindowDays <= 0 {
		c.WindowDays = defaults.WindowDays
	}
	if c.Workers <= 0 {
		c.Workers = defaults.Workers
	}
	return c
}
