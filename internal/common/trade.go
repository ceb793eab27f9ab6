package common

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Trade records one match between a buy order and a sell order. Price is
// the single trade price both sides executed at — see DESIGN.md for why
// matchcore standardizes on one trade price rather than separate
// buy_price/sell_price fields.
type Trade struct {
	Symbol      string
	BuyOrderID  string
	SellOrderID string
	BuyerID     string
	SellerID    string
	Price       decimal.Decimal
	Quantity    uint64
	Timestamp   time.Time
}

func (t Trade) String() string {
	return fmt.Sprintf(
		"Trade{symbol=%s buy=%s(%s) sell=%s(%s) price=%s qty=%d ts=%s}",
		t.Symbol, t.BuyOrderID, t.BuyerID, t.SellOrderID, t.SellerID,
		t.Price.String(), t.Quantity, t.Timestamp.Format(time.RFC3339),
	)
}

// ExecutionReport is the per-side record delivered to a participant on
// every fill.
type ExecutionReport struct {
	OrderID  string
	Symbol   string
	Side     Side
	Price    decimal.Decimal
	Quantity uint64
}
