package participant

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyxbook/matchcore/internal/common"
)

type recordedReport struct {
	participantID string
	report        common.ExecutionReport
}

type spyReporter struct {
	reports []recordedReport
}

func (s *spyReporter) Report(participantID string, report common.ExecutionReport) {
	s.reports = append(s.reports, recordedReport{participantID, report})
}

func TestEnsureGrantsStartingBalanceOnce(t *testing.T) {
	r := New(decimal.NewFromInt(1000))
	r.Ensure("alice")
	r.Ensure("alice")
	assert.True(t, r.Balance("alice").Equal(decimal.NewFromInt(1000)))
}

func TestBalanceOfUnknownParticipantPanics(t *testing.T) {
	r := New(decimal.NewFromInt(1000))
	assert.Panics(t, func() { r.Balance("nobody") })
}

func TestPortfolioReturnsIndependentCopy(t *testing.T) {
	r := New(decimal.NewFromInt(1000))
	r.Ensure("alice")
	p := r.Portfolio("alice")
	p["AAPL"] = 99

	assert.Empty(t, r.Portfolio("alice"))
}

func TestSettleDebitsBuyerAndCreditsSeller(t *testing.T) {
	r := New(decimal.NewFromInt(1000))
	spy := &spyReporter{}
	r.SetReporter(spy)
	r.Ensure("buyer")
	r.Ensure("seller")

	filled := r.Settle(common.Trade{
		Symbol:      "AAPL",
		BuyOrderID:  "b1",
		SellOrderID: "s1",
		BuyerID:     "buyer",
		SellerID:    "seller",
		Price:       decimal.NewFromInt(10),
		Quantity:    5,
	})

	assert.EqualValues(t, 5, filled)
	assert.True(t, r.Balance("buyer").Equal(decimal.NewFromInt(950)))
	assert.True(t, r.Balance("seller").Equal(decimal.NewFromInt(1050)))
	assert.EqualValues(t, 5, r.Portfolio("buyer")["AAPL"])
	assert.EqualValues(t, -5, r.Portfolio("seller")["AAPL"])
	require.Len(t, spy.reports, 2)
}

func TestSettlePartiallyFillsWhenBuyerCannotAffordFullQuantity(t *testing.T) {
	r := New(decimal.NewFromInt(45))
	r.Ensure("buyer")
	r.Ensure("seller")

	filled := r.Settle(common.Trade{
		Symbol:      "AAPL",
		BuyOrderID:  "b1",
		SellOrderID: "s1",
		BuyerID:     "buyer",
		SellerID:    "seller",
		Price:       decimal.NewFromInt(10),
		Quantity:    5,
	})

	assert.EqualValues(t, 4, filled)
	assert.True(t, r.Balance("buyer").Equal(decimal.NewFromInt(5)))
}

func TestSettleReturnsZeroWhenBuyerCannotAffordEvenOneUnit(t *testing.T) {
	r := New(decimal.NewFromInt(5))
	r.Ensure("buyer")
	r.Ensure("seller")

	filled := r.Settle(common.Trade{
		Symbol:      "AAPL",
		BuyOrderID:  "b1",
		SellOrderID: "s1",
		BuyerID:     "buyer",
		SellerID:    "seller",
		Price:       decimal.NewFromInt(10),
		Quantity:    5,
	})

	assert.Zero(t, filled)
	assert.True(t, r.Balance("buyer").Equal(decimal.NewFromInt(5)))
}
