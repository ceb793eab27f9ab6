// Package book implements the price-indexed ordered container and
// per-symbol resting-order index: a SideIndex per side of the market, a
// PriceLevel FIFO per price point, and a Book tying both sides together
// with an order-id index for O(1) cancel lookup.
package book

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/nyxbook/matchcore/internal/common"
)

// ErrPriceOutOfRange is returned by Add when an order's limit price
// falls outside the book's configured (price_floor, price_cap] bounds.
// The rejection is also logged; the matching engine ignores the error,
// so it never reaches a submitter.
var ErrPriceOutOfRange = errors.New("book: price outside configured bounds")

// Book holds the complete resting-order state for one symbol: both
// SideIndexes plus an order-id index for O(1) cancel lookup. A Book is
// mutated only by its owning symbol's dispatcher worker; the RWMutex
// exists solely to let SnapshotView and BestPrice readers
// observe a consistent point-in-time state without pausing that worker.
type Book struct {
	mu sync.RWMutex

	symbol     string
	priceFloor decimal.Decimal
	priceCap   decimal.Decimal

	bids   *SideIndex
	asks   *SideIndex
	orders map[string]*restingOrder
}

// New constructs an empty Book for symbol with the given price bounds.
func New(symbol string, priceFloor, priceCap decimal.Decimal) *Book {
	return &Book{
		symbol:     symbol,
		priceFloor: priceFloor,
		priceCap:   priceCap,
		bids:       newSideIndex(common.Buy),
		asks:       newSideIndex(common.Sell),
		orders:     make(map[string]*restingOrder),
	}
}

// Symbol returns the instrument this book tracks.
func (b *Book) Symbol() string { return b.symbol }

// Side returns the SideIndex for side, for use by the matching engine
// when it needs to peek or walk the opposite side of an aggressor.
func (b *Book) Side(side common.Side) *SideIndex {
	if side == common.Buy {
		return b.bids
	}
	return b.asks
}

// Add rests order in its level's FIFO, registering it in the order
// index. Out-of-range prices are rejected with ErrPriceOutOfRange and
// logged rather than panicking.
func (b *Book) Add(order *common.Order) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if order.LimitPrice.LessThanOrEqual(b.priceFloor) || order.LimitPrice.GreaterThan(b.priceCap) {
		log.Warn().
			Str("symbol", b.symbol).
			Str("order_id", order.OrderID).
			Str("price", order.LimitPrice.String()).
			Msg("book: ignoring order outside price bounds")
		return ErrPriceOutOfRange
	}

	order.ExchTimestamp = time.Now()
	level := b.Side(order.Side).InsertLevel(order.LimitPrice)
	ro := &restingOrder{order: order}
	level.pushBack(ro)
	b.orders[order.OrderID] = ro
	return nil
}

// UpdateSize mutates a resting order's remaining quantity in place,
// keeping its level's aggregate consistent. newSize == 0 delegates to
// Remove.
func (b *Book) UpdateSize(orderID string, newSize uint64) {
	if newSize == 0 {
		b.Remove(orderID)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	ro, ok := b.orders[orderID]
	if !ok {
		return
	}
	delta := int64(newSize) - int64(ro.order.Quantity)
	ro.order.Quantity = newSize
	ro.level.adjustAggregate(delta)
}

// Remove unlinks an order from its level and the order index. It
// returns false for an unknown id, making cancellation idempotent.
func (b *Book) Remove(orderID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	ro, ok := b.orders[orderID]
	if !ok {
		return false
	}
	delete(b.orders, orderID)

	level := ro.level
	level.adjustAggregate(-int64(ro.order.Quantity))
	level.unlink(ro)
	if level.Empty() {
		b.Side(level.Side).Erase(level)
	}
	return true
}

// Peek returns the head of the FIFO at the best price on side, or nil
// if that side is empty.
func (b *Book) Peek(side common.Side) *common.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()

	level := b.Side(side).Best()
	if level == nil {
		return nil
	}
	return level.Front()
}

// BestPrice returns the best resting price on side.
func (b *Book) BestPrice(side common.Side) (decimal.Decimal, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	level := b.Side(side).Best()
	if level == nil {
		return decimal.Zero, false
	}
	return level.Price, true
}

// Level is one row of a Snapshot: a price and the aggregate size
// resting at it.
type Level struct {
	Price         decimal.Decimal
	AggregateSize uint64
}

// Snapshot is the read-only projection returned to observers: bids
// descending by price, asks ascending, each truncated to depth (0 means
// unlimited).
type Snapshot struct {
	Bids []Level
	Asks []Level
}

// Snapshot walks both SideIndexes from best to worst, filtering crossed
// artifacts (a bid at or above the best ask, or an ask at or below the
// best bid — these should never exist in a consistent book, but the
// filter hardens the read path) and truncating to depth.
func (b *Book) Snapshot(depth int) Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var bestBid, bestAsk decimal.Decimal
	haveBestBid, haveBestAsk := false, false
	if l := b.bids.Best(); l != nil {
		bestBid, haveBestBid = l.Price, true
	}
	if l := b.asks.Best(); l != nil {
		bestAsk, haveBestAsk = l.Price, true
	}

	snap := Snapshot{}
	b.bids.IterateFromBest(func(l *PriceLevel) bool {
		if haveBestAsk && l.Price.GreaterThanOrEqual(bestAsk) {
			return true
		}
		snap.Bids = append(snap.Bids, Level{Price: l.Price, AggregateSize: l.Aggregate()})
		return depth <= 0 || len(snap.Bids) < depth
	})
	b.asks.IterateFromBest(func(l *PriceLevel) bool {
		if haveBestBid && l.Price.LessThanOrEqual(bestBid) {
			return true
		}
		snap.Asks = append(snap.Asks, Level{Price: l.Price, AggregateSize: l.Aggregate()})
		return depth <= 0 || len(snap.Asks) < depth
	})
	return snap
}
