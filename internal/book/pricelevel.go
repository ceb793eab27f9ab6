package book

import (
	"container/list"

	"github.com/shopspring/decimal"

	"github.com/nyxbook/matchcore/internal/common"
)

// restingOrder is the slot a resting Order occupies inside a PriceLevel's
// FIFO. It is a weak back reference: Order does not point at its
// PriceLevel directly, the Book's order index does, so unlinking an
// order can decrement the level's aggregate without the Order itself
// knowing where it lives.
type restingOrder struct {
	order *common.Order
	level *PriceLevel
	elem  *list.Element
}

// PriceLevel is one price point on one side of a book: a FIFO queue of
// live orders in arrival order (time priority) plus a cached aggregate
// of their remaining sizes. A level is created on first insert at its
// price and destroyed once its FIFO empties.
type PriceLevel struct {
	Price     decimal.Decimal
	Side      common.Side
	orders    *list.List
	aggregate uint64
}

func newPriceLevel(price decimal.Decimal, side common.Side) *PriceLevel {
	return &PriceLevel{Price: price, Side: side, orders: list.New()}
}

// Aggregate returns Σ order.size over the level's FIFO.
func (l *PriceLevel) Aggregate() uint64 { return l.aggregate }

// Empty reports whether the level's FIFO holds any resting orders.
func (l *PriceLevel) Empty() bool { return l.orders.Len() == 0 }

// Len returns the number of resting orders at this level.
func (l *PriceLevel) Len() int { return l.orders.Len() }

// Front returns the head of the FIFO — the order with time priority —
// or nil if the level is empty.
func (l *PriceLevel) Front() *common.Order {
	if e := l.orders.Front(); e != nil {
		return e.Value.(*restingOrder).order
	}
	return nil
}

// Orders returns the resting orders in FIFO (time-priority) order. The
// returned slice is a fresh copy; callers may not mutate the level
// through it.
func (l *PriceLevel) Orders() []*common.Order {
	out := make([]*common.Order, 0, l.orders.Len())
	for e := l.orders.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(*restingOrder).order)
	}
	return out
}

func (l *PriceLevel) pushBack(ro *restingOrder) {
	ro.level = l
	ro.elem = l.orders.PushBack(ro)
	l.aggregate += ro.order.Quantity
}

func (l *PriceLevel) unlink(ro *restingOrder) {
	l.orders.Remove(ro.elem)
}

// adjustAggregate keeps the cached sum of resident sizes consistent with
// a quantity change on one resting order; delta is signed.
func (l *PriceLevel) adjustAggregate(delta int64) {
	if delta < 0 {
		l.aggregate -= uint64(-delta)
		return
	}
	l.aggregate += uint64(delta)
}
