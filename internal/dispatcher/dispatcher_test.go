package dispatcher

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyxbook/matchcore/internal/common"
	"github.com/nyxbook/matchcore/internal/config"
	"github.com/nyxbook/matchcore/internal/engine"
	"github.com/nyxbook/matchcore/internal/participant"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	cfg := config.DefaultConfig()
	registry := participant.New(decimal.NewFromInt(1000))
	eng := engine.New(registry)
	d := New(cfg, eng, registry, nil)
	t.Cleanup(func() { _ = d.Stop() })
	return d
}

func TestSubmitLimitRejectsNonPositivePriceOrSize(t *testing.T) {
	d := newTestDispatcher(t)

	_, ok := d.SubmitLimit("alice", "AAPL", common.Buy, decimal.Zero, 5)
	assert.False(t, ok)

	_, ok = d.SubmitLimit("alice", "AAPL", common.Buy, decimal.NewFromInt(10), 0)
	assert.False(t, ok)
}

func TestSubmitLimitRejectsWhenBuyerCannotAffordIt(t *testing.T) {
	d := newTestDispatcher(t)

	_, ok := d.SubmitLimit("alice", "AAPL", common.Buy, decimal.NewFromInt(10), 1000)
	assert.False(t, ok)
}

func TestSubmitMarketRejectsZeroSize(t *testing.T) {
	d := newTestDispatcher(t)

	_, ok := d.SubmitMarket("alice", "AAPL", common.Buy, 0)
	assert.False(t, ok)
}

func TestSubmitCancelRejectsEmptyOrderID(t *testing.T) {
	d := newTestDispatcher(t)
	assert.False(t, d.SubmitCancel("alice", "AAPL", ""))
}

func TestQueuePushPreemptsAheadOfExistingItems(t *testing.T) {
	q := newSymbolQueue()
	first := &common.Order{OrderID: "1"}
	second := &common.Order{OrderID: "2"}
	preempted := &common.Order{OrderID: "cancel"}

	q.push(first, false)
	q.push(second, false)
	q.push(preempted, true)

	order, ok := q.tryPop()
	require.True(t, ok)
	assert.Equal(t, "cancel", order.OrderID)

	order, ok = q.tryPop()
	require.True(t, ok)
	assert.Equal(t, "1", order.OrderID)
}

func TestSnapshotOfUnknownSymbolReturnsFalse(t *testing.T) {
	d := newTestDispatcher(t)
	_, ok := d.Snapshot("GOOG", 0)
	assert.False(t, ok)
}

func TestDispatcherMatchesCrossingOrdersEndToEnd(t *testing.T) {
	d := newTestDispatcher(t)

	_, ok := d.SubmitLimit("seller", "AAPL", common.Sell, decimal.NewFromInt(10), 5)
	require.True(t, ok)
	_, ok = d.SubmitLimit("buyer", "AAPL", common.Buy, decimal.NewFromInt(10), 5)
	require.True(t, ok)

	require.Eventually(t, func() bool {
		snap, ok := d.Snapshot("AAPL", 0)
		return ok && len(snap.Bids) == 0 && len(snap.Asks) == 0
	}, time.Second, 5*time.Millisecond)
}
