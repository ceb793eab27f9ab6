// Package dispatcher implements matchcore's concurrency model: one
// command queue and one supervised worker goroutine per symbol, so a
// symbol's book is only ever touched by its own worker while unrelated
// symbols trade fully in parallel. It also implements the submission
// API — the synchronous pre-checks a participant's request passes
// before it is handed to its symbol's queue.
//
// The per-symbol worker-over-tomb.v2 shape generalizes a pool-wide
// worker set into one worker per symbol, since symbols need to make
// independent forward progress rather than sharing a worker pool.
package dispatcher

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gopkg.in/tomb.v2"

	"github.com/nyxbook/matchcore/internal/book"
	"github.com/nyxbook/matchcore/internal/common"
	"github.com/nyxbook/matchcore/internal/config"
	"github.com/nyxbook/matchcore/internal/engine"
	"github.com/nyxbook/matchcore/internal/metrics"
	"github.com/nyxbook/matchcore/internal/participant"
)

// workersPerSymbol is fixed at 1: a symbol's book can only be safely
// mutated by a single goroutine, so there is nothing a runtime knob
// above 1 could mean.
const workersPerSymbol = 1

// Dispatcher owns every symbol's Book and command queue, the shared
// MatchEngine and Registry they trade through, and the tomb supervising
// each symbol's worker goroutine (workersPerSymbol each).
type Dispatcher struct {
	cfg      config.Config
	engine   *engine.MatchEngine
	registry *participant.Registry
	metrics  *metrics.Metrics

	mu     sync.RWMutex
	books  map[string]*book.Book
	queues map[string]*symbolQueue

	t tomb.Tomb
}

// New constructs a Dispatcher. eng must have been constructed with this
// same registry, or trades settle against a different ledger than the
// one the submission pre-checks read.
func New(cfg config.Config, eng *engine.MatchEngine, registry *participant.Registry, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		cfg:      cfg,
		engine:   eng,
		registry: registry,
		metrics:  m,
		books:    make(map[string]*book.Book),
		queues:   make(map[string]*symbolQueue),
	}
}

// Stop signals every symbol worker to exit and waits for them to drain.
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	started := len(d.queues) > 0
	d.t.Kill(nil)
	d.mu.Unlock()
	if !started {
		// No worker was ever started, so the tomb has nothing to wait on.
		return nil
	}
	return d.t.Wait()
}

// queueFor returns symbol's command queue, lazily creating the queue,
// its Book, and its supervised worker goroutine on first use. Symbols
// are not pre-registered — matchcore has no fixed instrument list, so a
// symbol comes into existence the moment its first order arrives.
func (d *Dispatcher) queueFor(symbol string) *symbolQueue {
	d.mu.RLock()
	if q, ok := d.queues[symbol]; ok {
		d.mu.RUnlock()
		return q
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()
	if q, ok := d.queues[symbol]; ok {
		return q
	}

	q := newSymbolQueue()
	d.queues[symbol] = q
	d.books[symbol] = book.New(symbol, d.cfg.PriceFloor, d.cfg.PriceCap)
	d.t.Go(func() error { return d.runSymbol(symbol, q) })
	return q
}

// bookFor returns an already-registered symbol's Book. Called only from
// within a symbol's own worker goroutine, where the symbol is
// guaranteed to have been registered by queueFor before the worker
// started; any other outcome is a programming error.
func (d *Dispatcher) bookFor(symbol string) *book.Book {
	d.mu.RLock()
	defer d.mu.RUnlock()
	b, ok := d.books[symbol]
	if !ok {
		panic(fmt.Sprintf("dispatcher: worker for unregistered symbol %q", symbol))
	}
	return b
}

// runSymbol is the per-symbol worker loop: drain the queue until empty,
// then block on either new work or shutdown. It never touches another
// symbol's Book.
func (d *Dispatcher) runSymbol(symbol string, q *symbolQueue) error {
	b := d.bookFor(symbol)
	for {
		if order, ok := q.tryPop(); ok {
			d.process(symbol, b, order)
			if d.metrics != nil {
				d.metrics.SetQueueDepth(symbol, q.depth())
			}
			continue
		}
		select {
		case <-d.t.Dying():
			return nil
		case <-q.wake:
		}
	}
}

func (d *Dispatcher) process(symbol string, b *book.Book, order *common.Order) {
	switch order.OrderType {
	case common.LimitOrder:
		d.engine.PlaceLimit(b, order)
	case common.MarketOrder:
		d.engine.PlaceMarket(b, order)
	case common.CancelOrder:
		d.engine.Cancel(b, order.CancelTarget)
	default:
		log.Error().Str("symbol", symbol).Str("order_id", order.OrderID).Msg("dispatcher: unrecognized order type")
		return
	}
	if d.metrics != nil {
		d.metrics.SetBookDepth(symbol, "bid", b.Side(common.Buy).Len())
		d.metrics.SetBookDepth(symbol, "ask", b.Side(common.Sell).Len())
	}
}

// SubmitLimit runs the synchronous pre-checks (price and size must be
// positive; a buy must be able to afford price × size against the
// participant's current balance — a soft check, since the registry
// re-checks affordability at match time against whatever the order
// actually trades at) and, if they pass, enqueues a limit order
// for symbol's worker. It returns the new order's id and whether it was
// accepted.
func (d *Dispatcher) SubmitLimit(participantID, symbol string, side common.Side, price decimal.Decimal, size uint64) (string, bool) {
	if price.LessThanOrEqual(decimal.Zero) || size == 0 {
		d.reject("invalid_price_or_size")
		return "", false
	}

	d.registry.Ensure(participantID)
	if side == common.Buy {
		cost := price.Mul(decimal.NewFromInt(int64(size)))
		if d.registry.Balance(participantID).LessThan(cost) {
			d.reject("insufficient_balance")
			return "", false
		}
	}

	orderID := uuid.New().String()
	order := &common.Order{
		OrderID:       orderID,
		Symbol:        symbol,
		ParticipantID: participantID,
		Side:          side,
		OrderType:     common.LimitOrder,
		LimitPrice:    price,
		Quantity:      size,
		TotalQuantity: size,
		Timestamp:     time.Now(),
	}
	d.queueFor(symbol).push(order, false)
	return orderID, true
}

// SubmitMarket enqueues a market order for symbol's worker. Market
// orders carry no price pre-check (the sweep matches against whatever
// prices it finds) and preempt any queued limit submissions per
// Config.PreemptNonPriced.
func (d *Dispatcher) SubmitMarket(participantID, symbol string, side common.Side, size uint64) (string, bool) {
	if size == 0 {
		d.reject("invalid_size")
		return "", false
	}

	d.registry.Ensure(participantID)
	orderID := uuid.New().String()
	order := &common.Order{
		OrderID:       orderID,
		Symbol:        symbol,
		ParticipantID: participantID,
		Side:          side,
		OrderType:     common.MarketOrder,
		Quantity:      size,
		TotalQuantity: size,
		Timestamp:     time.Now(),
	}
	d.queueFor(symbol).push(order, d.cfg.PreemptNonPriced)
	return orderID, true
}

// SubmitCancel enqueues a cancel command for orderID on symbol's
// worker. The returned bool reflects only whether the request was
// accepted for processing, not whether orderID turned out to exist —
// that outcome is decided asynchronously by the worker and is only
// observable via a later Snapshot or BestPrice read, or via an
// execution report that never arrives.
func (d *Dispatcher) SubmitCancel(participantID, symbol, orderID string) bool {
	if orderID == "" {
		d.reject("invalid_cancel_target")
		return false
	}

	cmd := &common.Order{
		OrderID:       uuid.New().String(),
		Symbol:        symbol,
		ParticipantID: participantID,
		OrderType:     common.CancelOrder,
		CancelTarget:  orderID,
		Timestamp:     time.Now(),
	}
	d.queueFor(symbol).push(cmd, d.cfg.PreemptNonPriced)
	return true
}

func (d *Dispatcher) reject(reason string) {
	if d.metrics != nil {
		d.metrics.RecordRejection(reason)
	}
}

// Snapshot returns a depth-limited view of symbol's book, and false if
// symbol has never been submitted to.
func (d *Dispatcher) Snapshot(symbol string, depth int) (book.Snapshot, bool) {
	d.mu.RLock()
	b, ok := d.books[symbol]
	d.mu.RUnlock()
	if !ok {
		return book.Snapshot{}, false
	}
	return b.Snapshot(depth), true
}

// BestPrice returns the best resting price on side of symbol's book.
func (d *Dispatcher) BestPrice(symbol string, side common.Side) (decimal.Decimal, bool) {
	d.mu.RLock()
	b, ok := d.books[symbol]
	d.mu.RUnlock()
	if !ok {
		return decimal.Zero, false
	}
	return b.BestPrice(side)
}
