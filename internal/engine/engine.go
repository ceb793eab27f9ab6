// Package engine implements the price-time priority matching policy:
// limit, market, and cancel handling over a book.Book and a Registry
// collaborator. MatchEngine is stateless per call — it holds no
// per-symbol state, so one instance is shared by every symbol's
// dispatcher worker.
package engine

import (
	"github.com/shopspring/decimal"

	"github.com/nyxbook/matchcore/internal/book"
	"github.com/nyxbook/matchcore/internal/common"
)

// Registry is the funds/portfolio collaborator a MatchEngine settles
// trades through. Settle performs the affordability check and the
// atomic debit/credit/execution-report fan-out in a single
// registry-owned step — the read-decide-write window belongs to the
// registry, not the caller — and returns the quantity actually
// filled — which may be less than trade.Quantity if the buyer cannot
// afford the full amount, or zero if the buyer cannot afford any of it.
type Registry interface {
	Settle(trade common.Trade) (filled uint64)
}

// MatchEngine implements the matching policy over whichever Book and
// Registry it is called with.
type MatchEngine struct {
	registry Registry
}

// New constructs a MatchEngine settling through registry.
func New(registry Registry) *MatchEngine {
	return &MatchEngine{registry: registry}
}

func opposite(side common.Side) common.Side {
	if side == common.Buy {
		return common.Sell
	}
	return common.Buy
}

// crossed reports whether aggressor's limit price would execute against
// a resting order quoted at restingPrice.
func crossed(aggressor *common.Order, restingPrice decimal.Decimal) bool {
	if aggressor.Side == common.Buy {
		return aggressor.LimitPrice.GreaterThanOrEqual(restingPrice)
	}
	return aggressor.LimitPrice.LessThanOrEqual(restingPrice)
}

// buyAndSell orders aggressor and resting into (buyOrder, sellOrder) by
// side, so callers can read off buyer/seller participant and order ids
// uniformly regardless of which one is the aggressor.
func buyAndSell(aggressor, resting *common.Order) (buy, sell *common.Order) {
	if aggressor.Side == common.Buy {
		return aggressor, resting
	}
	return resting, aggressor
}

// PlaceLimit runs the limit-order matching loop. The
// aggressor's remaining size, once the loop exits, has already been
// rested into b (if anything remains and matching did not fail
// outright) or reduced to zero by fills.
func (e *MatchEngine) PlaceLimit(b *book.Book, aggressor *common.Order) {
	for aggressor.Quantity > 0 {
		restingSide := opposite(aggressor.Side)
		resting := b.Peek(restingSide)
		if resting == nil {
			b.Add(aggressor)
			return
		}
		if !crossed(aggressor, resting.LimitPrice) {
			b.Add(aggressor)
			return
		}
		if aggressor.ParticipantID == resting.ParticipantID {
			// Self-trade: halt and rest the remainder at the
			// aggressor's own limit price rather than trade with one's
			// own resting order. See DESIGN.md for why this breaks
			// instead of skipping to the next resting order.
			b.Add(aggressor)
			return
		}

		tradeQty := min(aggressor.Quantity, resting.Quantity)
		tradePrice := resting.LimitPrice // the resting order's price always protects time priority

		buyOrder, sellOrder := buyAndSell(aggressor, resting)
		filled := e.registry.Settle(common.Trade{
			Symbol:      b.Symbol(),
			BuyOrderID:  buyOrder.OrderID,
			SellOrderID: sellOrder.OrderID,
			BuyerID:     buyOrder.ParticipantID,
			SellerID:    sellOrder.ParticipantID,
			Price:       tradePrice,
			Quantity:    tradeQty,
		})
		if filled == 0 {
			if buyOrder == resting {
				// The buyer is the resting order and can no longer
				// cover even one unit: cancel it, then rest the
				// remainder of the (selling) aggressor at its own
				// limit price.
				b.Remove(resting.OrderID)
				b.Add(aggressor)
			}
			// Otherwise the buyer is the aggressor, which already
			// failed its own affordability check: its remainder is
			// discarded rather than rested.
			return
		}

		aggressor.Quantity -= filled
		b.UpdateSize(resting.OrderID, resting.Quantity-filled)
	}
}

// PlaceMarket runs the market-order sweep. Market
// orders never rest: any residual size once the opposite side empties,
// or matching otherwise halts, is discarded.
func (e *MatchEngine) PlaceMarket(b *book.Book, aggressor *common.Order) {
	restingSide := opposite(aggressor.Side)
	for aggressor.Quantity > 0 {
		resting := b.Peek(restingSide)
		if resting == nil {
			return
		}
		if aggressor.ParticipantID == resting.ParticipantID {
			return
		}

		tradeQty := min(aggressor.Quantity, resting.Quantity)
		tradePrice := resting.LimitPrice

		buyOrder, sellOrder := buyAndSell(aggressor, resting)
		filled := e.registry.Settle(common.Trade{
			Symbol:      b.Symbol(),
			BuyOrderID:  buyOrder.OrderID,
			SellOrderID: sellOrder.OrderID,
			BuyerID:     buyOrder.ParticipantID,
			SellerID:    sellOrder.ParticipantID,
			Price:       tradePrice,
			Quantity:    tradeQty,
		})
		if filled == 0 {
			if buyOrder == resting {
				// The resting bid can no longer afford this sweep:
				// cancel it and keep sweeping for the market
				// aggressor.
				b.Remove(resting.OrderID)
				continue
			}
			return
		}

		aggressor.Quantity -= filled
		b.UpdateSize(resting.OrderID, resting.Quantity-filled)
	}
}

// Cancel delegates to Book.Remove, which is idempotent.
func (e *MatchEngine) Cancel(b *book.Book, orderID string) bool {
	return b.Remove(orderID)
}
