// Package config holds matchcore's process-wide configuration: the
// price bounds new books are constructed with, the registry's starting
// balance, and the queue-preemption policy. It is a
// plain struct rather than a flag/env framework — matchcore has one
// deployment shape (a single process, started once), so there is
// nothing a config library would buy beyond what Go already gives for
// free.
package config

import "github.com/shopspring/decimal"

// Config is threaded from cmd/server into the dispatcher at startup.
type Config struct {
	// PriceFloor and PriceCap bound every symbol's book: an order whose
	// limit price falls outside (PriceFloor, PriceCap] is rejected.
	// PriceFloor is exclusive, PriceCap inclusive.
	PriceFloor decimal.Decimal
	PriceCap   decimal.Decimal

	// StartingBalance is the cash balance a participant is granted the
	// first time the registry sees it.
	StartingBalance decimal.Decimal

	// PreemptNonPriced, when true, prepends market and cancel commands
	// ahead of any pending limit orders already queued for a symbol
	// instead of appending them at the tail. DESIGN.md records the
	// reasoning for defaulting it on.
	PreemptNonPriced bool
}

// DefaultConfig returns matchcore's standard configuration: a (0, 1000]
// price band, a 100,000 starting balance, and queue preemption enabled.
func DefaultConfig() Config {
	return Config{
		PriceFloor:       decimal.Zero,
		PriceCap:         decimal.NewFromInt(1000),
		StartingBalance:  decimal.NewFromInt(100_000),
		PreemptNonPriced: true,
	}
}
