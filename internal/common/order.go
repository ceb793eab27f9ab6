package common

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Order is the immutable-identity record of a single instruction. Once
// created its OrderID never changes; everything else (Quantity while
// resting, ExchTimestamp once accepted by a book) is mutated in place by
// whichever component currently owns it — the dispatcher while pending,
// the book while resting.
type Order struct {
	OrderID       string          // globally unique, assigned at submission
	Symbol        string          // traded instrument identifier
	ParticipantID string          // owning participant
	Side          Side            // buy or sell
	OrderType     OrderType       // limit, market, or cancel
	LimitPrice    decimal.Decimal // absent (zero) for market and cancel
	Quantity      uint64          // remaining quantity
	TotalQuantity uint64          // original requested quantity
	Timestamp     time.Time       // arrival at the dispatcher; time priority itself comes from FIFO position in a PriceLevel
	ExchTimestamp time.Time       // arrival at the book (set on Book.Add)
	CancelTarget  string          // for OrderType == CancelOrder, the order id to remove
}

// Resting reports whether this order, in its current state, is a
// candidate to sit in a PriceLevel: only non-empty limit orders rest.
func (order Order) Resting() bool {
	return order.OrderType == LimitOrder && order.Quantity > 0
}

func (order Order) String() string {
	return fmt.Sprintf(
		`OrderID:       %v
Symbol:        %s
ParticipantID: %s
Side:          %v
OrderType:     %v
LimitPrice:    %s
Quantity:      %d (Total: %d)
Timestamp:     %v
ExchTimestamp: %v`,
		order.OrderID,
		order.Symbol,
		order.ParticipantID,
		order.Side,
		order.OrderType,
		order.LimitPrice.String(),
		order.Quantity,
		order.TotalQuantity,
		order.Timestamp.Format(time.RFC3339),
		order.ExchTimestamp.Format(time.RFC3339),
	)
}
