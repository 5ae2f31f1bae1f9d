package book

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesperex/vesper/internal/core"
)

func newTestOrder(id string, side core.OrderSide, price, quantity int64) *core.Order {
	return &core.Order{
		OrderID:  id,
		TraderID: "trader-" + id,
		Symbol:   "ACME",
		Side:     side,
		Type:     core.Limit,
		Price:    decimal.NewFromInt(price),
		Quantity: decimal.NewFromInt(quantity),
		Status:   core.Pending,
	}
}

func TestOrderBook_AddAndBestPrices(t *testing.T) {
	b := New("ACME")
	b.Lock()
	defer b.Unlock()

	require.NoError(t, b.Add(newTestOrder("b1", core.Buy, 100, 10)))
	require.NoError(t, b.Add(newTestOrder("b2", core.Buy, 101, 5)))
	require.NoError(t, b.Add(newTestOrder("a1", core.Sell, 105, 10)))
	require.NoError(t, b.Add(newTestOrder("a2", core.Sell, 104, 5)))

	assert.True(t, b.BestBid().Equal(decimal.NewFromInt(101)))
	assert.True(t, b.BestAsk().Equal(decimal.NewFromInt(104)))
}

func TestOrderBook_FIFOWithinLevel(t *testing.T) {
	b := New("ACME")
	b.Lock()
	defer b.Unlock()

	require.NoError(t, b.Add(newTestOrder("b1", core.Buy, 100, 10)))
	require.NoError(t, b.Add(newTestOrder("b2", core.Buy, 100, 5)))
	require.NoError(t, b.Add(newTestOrder("b3", core.Buy, 100, 7)))

	front, ok := b.FrontOfBook(core.Buy)
	require.True(t, ok)
	assert.Equal(t, "b1", front.OrderID)

	orders := b.BuyOrders()
	require.Len(t, orders, 3)
	assert.Equal(t, []string{"b1", "b2", "b3"}, []string{orders[0].OrderID, orders[1].OrderID, orders[2].OrderID})
}

func TestOrderBook_RemoveDropsEmptyLevelWithoutReindexingSurvivors(t *testing.T) {
	b := New("ACME")
	b.Lock()
	defer b.Unlock()

	require.NoError(t, b.Add(newTestOrder("b1", core.Buy, 100, 10)))
	require.NoError(t, b.Add(newTestOrder("b2", core.Buy, 100, 5)))
	require.NoError(t, b.Add(newTestOrder("b3", core.Buy, 99, 3)))

	require.True(t, b.Remove("b1"))

	front, ok := b.FrontOfBook(core.Buy)
	require.True(t, ok)
	assert.Equal(t, "b2", front.OrderID, "b2 must remain identifiable by its own id after b1 is removed")

	require.True(t, b.Remove("b2"))
	front, ok = b.FrontOfBook(core.Buy)
	require.True(t, ok)
	assert.Equal(t, "b3", front.OrderID, "price level 100 must be dropped once empty, falling through to 99")

	assert.False(t, b.Remove("b1"), "removing an already-removed id is a no-op, not an error")
}

func TestOrderBook_AddRejectsNonRestingOrDuplicate(t *testing.T) {
	b := New("ACME")
	b.Lock()
	defer b.Unlock()

	filled := newTestOrder("f1", core.Buy, 100, 10)
	filled.Status = core.Filled
	assert.ErrorIs(t, b.Add(filled), ErrNotResting)

	resting := newTestOrder("r1", core.Buy, 100, 10)
	require.NoError(t, b.Add(resting))
	assert.ErrorIs(t, b.Add(resting), ErrAlreadyResting)
}

func TestOrderBook_GetAndEmptyBookSentinels(t *testing.T) {
	b := New("ACME")
	b.Lock()
	defer b.Unlock()

	assert.True(t, b.BestBid().IsZero())
	assert.True(t, b.BestAsk().IsZero())
	_, ok := b.Get("missing")
	assert.False(t, ok)

	order := newTestOrder("b1", core.Buy, 100, 10)
	require.NoError(t, b.Add(order))
	got, ok := b.Get("b1")
	require.True(t, ok)
	assert.Same(t, order, got)
}
