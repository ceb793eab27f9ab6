// Package participant implements the participant registry: balances,
// portfolios, and execution-report fan-out behind a single
// registry-wide lock.
package participant

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/nyxbook/matchcore/internal/common"
	"github.com/nyxbook/matchcore/internal/metrics"
)

// DefaultStartingBalance is 100,000, the same value config.DefaultConfig
// uses for StartingBalance. A Registry grants new participants the
// balance passed to New, not this value.
var DefaultStartingBalance = decimal.NewFromInt(100_000)

// Reporter delivers one execution report to one participant. The net
// server implements this to fan reports out over the wire.
type Reporter interface {
	Report(participantID string, report common.ExecutionReport)
}

type noopReporter struct{}

func (noopReporter) Report(string, common.ExecutionReport) {}

type account struct {
	balance   decimal.Decimal
	portfolio map[string]int64
}

// Registry is the ParticipantRegistry: balances, portfolios, and
// execution-report fan-out, guarded by a single lock. A registry-wide
// lock suffices given the workload; Settle holds it
// across the whole read-decide-write window, so two symbols' workers
// trading overlapping participants still serialize correctly and a
// balance read is never stale by the time it is acted on.
type Registry struct {
	mu              sync.Mutex
	startingBalance decimal.Decimal
	accounts        map[string]*account
	reporter        Reporter
	metrics         *metrics.Metrics
}

// New constructs a Registry that starts new participants at
// startingBalance.
func New(startingBalance decimal.Decimal) *Registry {
	return &Registry{
		startingBalance: startingBalance,
		accounts:        make(map[string]*account),
		reporter:        noopReporter{},
	}
}

// SetReporter wires the execution-report sink. Call it before any trade
// settles if reports must actually be delivered somewhere; the registry
// works with no reporter wired (reports are simply dropped), which is
// convenient for tests.
func (r *Registry) SetReporter(reporter Reporter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reporter = reporter
}

// SetMetrics wires a metrics sink; nil is valid and simply disables
// recording (the default, convenient for tests).
func (r *Registry) SetMetrics(m *metrics.Metrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = m
}

// Ensure creates participantID with the starting balance the first time
// it is seen; it is a no-op otherwise.
func (r *Registry) Ensure(participantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensureLocked(participantID)
}

func (r *Registry) ensureLocked(participantID string) *account {
	acc, ok := r.accounts[participantID]
	if !ok {
		acc = &account{balance: r.startingBalance, portfolio: make(map[string]int64)}
		r.accounts[participantID] = acc
	}
	return acc
}

// Balance returns participantID's cash balance. Querying a participant
// that has never submitted an order is a programming error — callers
// ensure a participant exists by routing its first submission through
// the dispatcher, which calls Ensure.
func (r *Registry) Balance(participantID string) decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[participantID]
	if !ok {
		panic(fmt.Sprintf("participant: unknown participant %q", participantID))
	}
	return acc.balance
}

// Portfolio returns a snapshot copy of participantID's symbol -> signed
// position map. Positions may be negative; matchcore does not enforce a
// short-sale rule.
func (r *Registry) Portfolio(participantID string) map[string]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	acc, ok := r.accounts[participantID]
	if !ok {
		panic(fmt.Sprintf("participant: unknown participant %q", participantID))
	}
	out := make(map[string]int64, len(acc.portfolio))
	for k, v := range acc.portfolio {
		out[k] = v
	}
	return out
}

// Settle implements engine.Registry. It atomically checks the buyer's
// affordability against trade.Price × trade.Quantity, applies whatever
// quantity the buyer can afford, updates both participants' cash and
// portfolio, and emits one execution report per side. The whole
// check-decide-write happens under the registry lock.
func (r *Registry) Settle(trade common.Trade) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	buyer := r.ensureLocked(trade.BuyerID)
	seller := r.ensureLocked(trade.SellerID)

	qty := trade.Quantity
	cost := trade.Price.Mul(decimal.NewFromInt(int64(qty)))
	if buyer.balance.LessThan(cost) {
		affordable := buyer.balance.Div(trade.Price).IntPart()
		if affordable <= 0 {
			if r.metrics != nil {
				r.metrics.RecordRejection("insufficient_balance")
			}
			return 0
		}
		qty = uint64(affordable)
		cost = trade.Price.Mul(decimal.NewFromInt(int64(qty)))
	}

	buyer.balance = buyer.balance.Sub(cost)
	buyer.portfolio[trade.Symbol] += int64(qty)

	proceeds := trade.Price.Mul(decimal.NewFromInt(int64(qty)))
	seller.balance = seller.balance.Add(proceeds)
	seller.portfolio[trade.Symbol] -= int64(qty)

	log.Info().
		Str("symbol", trade.Symbol).
		Str("buyer", trade.BuyerID).
		Str("seller", trade.SellerID).
		Str("price", trade.Price.String()).
		Uint64("quantity", qty).
		Msg("participant: trade settled")

	r.reporter.Report(trade.BuyerID, common.ExecutionReport{
		OrderID:  trade.BuyOrderID,
		Symbol:   trade.Symbol,
		Side:     common.Buy,
		Price:    trade.Price,
		Quantity: qty,
	})
	r.reporter.Report(trade.SellerID, common.ExecutionReport{
		OrderID:  trade.SellOrderID,
		Symbol:   trade.Symbol,
		Side:     common.Sell,
		Price:    trade.Price,
		Quantity: qty,
	})

	if r.metrics != nil {
		r.metrics.RecordTrade(qty)
	}

	return qty
}
