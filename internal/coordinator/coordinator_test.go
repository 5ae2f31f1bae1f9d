package coordinator

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesperex/vesper/internal/core"
	"github.com/vesperex/vesper/internal/matching"
	"github.com/vesperex/vesper/internal/registry"
	"github.com/vesperex/vesper/internal/settlement"
)

type recordingAudit struct {
	orders []*core.Order
	trades []core.Trade
}

func (r *recordingAudit) RecordOrder(order *core.Order) { r.orders = append(r.orders, order) }
func (r *recordingAudit) RecordTrade(trade core.Trade)  { r.trades = append(r.trades, trade) }

func newTestCoordinator() (*Coordinator, *registry.Registry, *recordingAudit) {
	reg := registry.New(decimal.NewFromInt(10000))
	eng := matching.New(core.NewIDGenerator("T"), &core.Clock{})
	settler := settlement.New(zerolog.Nop())
	audit := &recordingAudit{}
	return New(reg, eng, settler, audit, zerolog.Nop()), reg, audit
}

func newOrder(id, traderID string, side core.OrderSide, price, qty int64) *core.Order {
	return &core.Order{
		OrderID:  id,
		TraderID: traderID,
		Symbol:   "ACME",
		Side:     side,
		Type:     core.Limit,
		Price:    decimal.NewFromInt(price),
		Quantity: decimal.NewFromInt(qty),
		Status:   core.Pending,
	}
}

func TestSubmit_RejectsUnknownTraderWithoutTouchingBookOrAudit(t *testing.T) {
	c, _, audit := newTestCoordinator()

	result := c.Submit(newOrder("o1", "ghost", core.Buy, 100, 10))
	assert.False(t, result.Accepted)
	assert.Equal(t, "unknown trader", result.RejectReason)
	assert.Empty(t, audit.orders)
}

func TestSubmit_RestsAndThenCrossesWithSettlementAndCallbacks(t *testing.T) {
	c, reg, audit := newTestCoordinator()
	reg.EnsureAccount("alice")
	reg.EnsureAccount("bob")

	var trades []core.Trade
	var settlements []settlement.PositionUpdate
	c.OnTrade(func(tr core.Trade) { trades = append(trades, tr) })
	c.OnSettlement(func(u settlement.PositionUpdate) { settlements = append(settlements, u) })

	resting := c.Submit(newOrder("sell-1", "bob", core.Sell, 100, 10))
	require.True(t, resting.Accepted)
	assert.Empty(t, resting.Trades)

	crossing := c.Submit(newOrder("buy-1", "alice", core.Buy, 100, 10))
	require.True(t, crossing.Accepted)
	require.Len(t, crossing.Trades, 1)

	assert.Len(t, trades, 1)
	assert.Len(t, settlements, 2)
	assert.Len(t, audit.orders, 2)
	assert.Len(t, audit.trades, 1)

	aliceAccount, _ := reg.Account("alice")
	bobAccount, _ := reg.Account("bob")
	assert.True(t, aliceAccount.Balance().Equal(decimal.NewFromInt(9000)))
	assert.True(t, bobAccount.Balance().Equal(decimal.NewFromInt(11000)))
}

func TestSubmit_UnfilledMarketRemainderIsCancelledAndNotified(t *testing.T) {
	c, reg, _ := newTestCoordinator()
	reg.EnsureAccount("alice")

	var terminal []string
	c.OnOrderTerminal(func(order *core.Order, reason string) {
		terminal = append(terminal, order.OrderID+":"+reason)
	})

	marketOrder := &core.Order{
		OrderID:  "m1",
		TraderID: "alice",
		Symbol:   "ACME",
		Side:     core.Buy,
		Type:     core.Market,
		Quantity: decimal.NewFromInt(10),
		Status:   core.Pending,
	}

	result := c.Submit(marketOrder)
	require.True(t, result.Accepted)
	assert.Equal(t, core.Cancelled, marketOrder.Status)
	assert.Equal(t, []string{"m1:unfilled_market_remainder"}, terminal)

	b, ok := reg.Book("ACME")
	require.True(t, ok)
	b.Lock()
	_, resting := b.Get("m1")
	b.Unlock()
	assert.False(t, resting, "a cancelled market order must never end up resting in the book")
}
