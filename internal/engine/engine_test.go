package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyxbook/matchcore/internal/book"
	"github.com/nyxbook/matchcore/internal/common"
)

// fakeRegistry lets each test script exactly how much of a trade
// settles, without pulling in the real participant.Registry and its
// balance bookkeeping.
type fakeRegistry struct {
	settle func(trade common.Trade) uint64
	trades []common.Trade
}

func (f *fakeRegistry) Settle(trade common.Trade) uint64 {
	f.trades = append(f.trades, trade)
	if f.settle != nil {
		return f.settle(trade)
	}
	return trade.Quantity
}

func newOrder(id, participant string, side common.Side, otype common.OrderType, price string, qty uint64) *common.Order {
	o := &common.Order{
		OrderID:       id,
		Symbol:        "AAPL",
		ParticipantID: participant,
		Side:          side,
		OrderType:     otype,
		Quantity:      qty,
		TotalQuantity: qty,
	}
	if price != "" {
		o.LimitPrice = decimal.RequireFromString(price)
	}
	return o
}

func newTestBook() *book.Book {
	return book.New("AAPL", decimal.Zero, decimal.NewFromInt(1000))
}

func TestPlaceLimitSimpleCross(t *testing.T) {
	b := newTestBook()
	reg := &fakeRegistry{}
	e := New(reg)

	require.NoError(t, b.Add(newOrder("ask1", "seller", common.Sell, common.LimitOrder, "10.00", 5)))

	aggressor := newOrder("bid1", "buyer", common.Buy, common.LimitOrder, "10.00", 5)
	e.PlaceLimit(b, aggressor)

	require.Len(t, reg.trades, 1)
	assert.True(t, reg.trades[0].Price.Equal(decimal.RequireFromString("10.00")))
	assert.EqualValues(t, 5, reg.trades[0].Quantity)
	assert.Nil(t, b.Peek(common.Sell))
	assert.Nil(t, b.Peek(common.Buy))
}

func TestPlaceLimitWalksTheBookAtEachRestingPrice(t *testing.T) {
	b := newTestBook()
	reg := &fakeRegistry{}
	e := New(reg)

	require.NoError(t, b.Add(newOrder("ask1", "s1", common.Sell, common.LimitOrder, "10.00", 3)))
	require.NoError(t, b.Add(newOrder("ask2", "s2", common.Sell, common.LimitOrder, "10.50", 3)))

	aggressor := newOrder("bid1", "buyer", common.Buy, common.LimitOrder, "11.00", 5)
	e.PlaceLimit(b, aggressor)

	require.Len(t, reg.trades, 2)
	assert.True(t, reg.trades[0].Price.Equal(decimal.RequireFromString("10.00")))
	assert.EqualValues(t, 3, reg.trades[0].Quantity)
	assert.True(t, reg.trades[1].Price.Equal(decimal.RequireFromString("10.50")))
	assert.EqualValues(t, 2, reg.trades[1].Quantity)

	remaining := b.Peek(common.Sell)
	require.NotNil(t, remaining)
	assert.EqualValues(t, 1, remaining.Quantity)
}

func TestPlaceLimitRespectsTimePriorityAtSamePrice(t *testing.T) {
	b := newTestBook()
	reg := &fakeRegistry{}
	e := New(reg)

	require.NoError(t, b.Add(newOrder("first", "s1", common.Sell, common.LimitOrder, "10.00", 3)))
	require.NoError(t, b.Add(newOrder("second", "s2", common.Sell, common.LimitOrder, "10.00", 3)))

	aggressor := newOrder("bid1", "buyer", common.Buy, common.LimitOrder, "10.00", 3)
	e.PlaceLimit(b, aggressor)

	require.Len(t, reg.trades, 1)
	assert.Equal(t, "first", reg.trades[0].SellOrderID)
}

func TestPlaceLimitDoesNotCrossBelowAggressorLimit(t *testing.T) {
	b := newTestBook()
	reg := &fakeRegistry{}
	e := New(reg)

	require.NoError(t, b.Add(newOrder("ask1", "s1", common.Sell, common.LimitOrder, "11.00", 5)))

	aggressor := newOrder("bid1", "buyer", common.Buy, common.LimitOrder, "10.00", 5)
	e.PlaceLimit(b, aggressor)

	assert.Empty(t, reg.trades)
	resting := b.Peek(common.Buy)
	require.NotNil(t, resting)
	assert.Equal(t, "bid1", resting.OrderID)
}

func TestPlaceLimitSelfTradeHaltsAndRests(t *testing.T) {
	b := newTestBook()
	reg := &fakeRegistry{}
	e := New(reg)

	require.NoError(t, b.Add(newOrder("ask1", "trader", common.Sell, common.LimitOrder, "10.00", 5)))

	aggressor := newOrder("bid1", "trader", common.Buy, common.LimitOrder, "10.00", 5)
	e.PlaceLimit(b, aggressor)

	assert.Empty(t, reg.trades)
	resting := b.Peek(common.Buy)
	require.NotNil(t, resting)
	assert.Equal(t, "bid1", resting.OrderID)
}

func TestPlaceLimitInsufficientBalanceRestingBuyerIsCancelled(t *testing.T) {
	b := newTestBook()
	reg := &fakeRegistry{settle: func(common.Trade) uint64 { return 0 }}
	e := New(reg)

	require.NoError(t, b.Add(newOrder("bid1", "poorbuyer", common.Buy, common.LimitOrder, "10.00", 5)))

	aggressor := newOrder("ask1", "seller", common.Sell, common.LimitOrder, "10.00", 5)
	e.PlaceLimit(b, aggressor)

	assert.Nil(t, b.Peek(common.Buy))
	resting := b.Peek(common.Sell)
	require.NotNil(t, resting)
	assert.Equal(t, "ask1", resting.OrderID)
}

func TestPlaceLimitInsufficientBalanceAggressorBuyerDiscardsRemainder(t *testing.T) {
	b := newTestBook()
	reg := &fakeRegistry{settle: func(common.Trade) uint64 { return 0 }}
	e := New(reg)

	require.NoError(t, b.Add(newOrder("ask1", "seller", common.Sell, common.LimitOrder, "10.00", 5)))

	aggressor := newOrder("bid1", "poorbuyer", common.Buy, common.LimitOrder, "10.00", 5)
	e.PlaceLimit(b, aggressor)

	assert.Nil(t, b.Peek(common.Buy))
	resting := b.Peek(common.Sell)
	require.NotNil(t, resting)
	assert.Equal(t, "ask1", resting.OrderID)
}

func TestPlaceMarketSweepsAndDiscardsUnfilledRemainder(t *testing.T) {
	b := newTestBook()
	reg := &fakeRegistry{}
	e := New(reg)

	require.NoError(t, b.Add(newOrder("ask1", "s1", common.Sell, common.LimitOrder, "10.00", 3)))

	aggressor := newOrder("mkt1", "buyer", common.Buy, common.MarketOrder, "", 10)
	e.PlaceMarket(b, aggressor)

	require.Len(t, reg.trades, 1)
	assert.EqualValues(t, 3, reg.trades[0].Quantity)
	assert.Nil(t, b.Peek(common.Sell))
}

func TestCancelIsIdempotent(t *testing.T) {
	b := newTestBook()
	reg := &fakeRegistry{}
	e := New(reg)

	require.NoError(t, b.Add(newOrder("bid1", "buyer", common.Buy, common.LimitOrder, "10.00", 5)))

	assert.True(t, e.Cancel(b, "bid1"))
	assert.False(t, e.Cancel(b, "bid1"))
}
