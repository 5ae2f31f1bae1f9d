package settlement

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesperex/vesper/internal/account"
	"github.com/vesperex/vesper/internal/core"
)

func newTestEngine() *Engine {
	return New(zerolog.Nop())
}

func newTrade(buyTrader, sellTrader string, price, quantity int64) core.Trade {
	return core.Trade{
		TradeID:      "trade-1",
		BuyOrderID:   "b1",
		SellOrderID:  "s1",
		BuyTraderID:  buyTrader,
		SellTraderID: sellTrader,
		Symbol:       "ACME",
		Price:        decimal.NewFromInt(price),
		Quantity:     decimal.NewFromInt(quantity),
	}
}

func TestSettle_MovesCashAndPositions(t *testing.T) {
	buyer := account.New("alice", decimal.NewFromInt(10000))
	seller := account.New("bob", decimal.NewFromInt(10000))
	accounts := map[string]*account.Account{"alice": buyer, "bob": seller}

	var updates []PositionUpdate
	eng := newTestEngine()
	eng.Settle([]core.Trade{newTrade("alice", "bob", 100, 5)}, accounts, func(u PositionUpdate) {
		updates = append(updates, u)
	}, nil)

	assert.True(t, buyer.Balance().Equal(decimal.NewFromInt(9500)))
	assert.True(t, seller.Balance().Equal(decimal.NewFromInt(10500)))
	assert.True(t, buyer.Position("ACME").Equal(decimal.NewFromInt(5)))
	assert.True(t, seller.Position("ACME").Equal(decimal.NewFromInt(-5)))
	require.Len(t, updates, 2)
}

func TestSettle_InsufficientFundsSkipsWithoutMutatingEitherAccount(t *testing.T) {
	buyer := account.New("alice", decimal.NewFromInt(10))
	seller := account.New("bob", decimal.NewFromInt(10000))
	accounts := map[string]*account.Account{"alice": buyer, "bob": seller}

	eng := newTestEngine()
	var skipped []core.Trade
	eng.Settle([]core.Trade{newTrade("alice", "bob", 100, 5)}, accounts, func(PositionUpdate) {
		t.Fatal("onUpdate must not be invoked when settlement is skipped")
	}, func(trade core.Trade) {
		skipped = append(skipped, trade)
	})

	assert.True(t, buyer.Balance().Equal(decimal.NewFromInt(10)), "buyer balance must be untouched on insufficient funds")
	assert.True(t, seller.Balance().Equal(decimal.NewFromInt(10000)), "seller must not receive cash for an unsettled trade")
	assert.True(t, seller.Position("ACME").IsZero())
	require.Len(t, skipped, 1, "onSkip must be invoked once for the unsettled trade")
}

func TestSettle_MissingAccountIsSkippedNotPanicked(t *testing.T) {
	seller := account.New("bob", decimal.NewFromInt(10000))
	accounts := map[string]*account.Account{"bob": seller}

	eng := newTestEngine()
	assert.NotPanics(t, func() {
		eng.Settle([]core.Trade{newTrade("ghost", "bob", 100, 5)}, accounts, nil, nil)
	})
	assert.True(t, seller.Balance().Equal(decimal.NewFromInt(10000)))
}

func TestSettle_OppositeRolesBetweenSamePairNetOut(t *testing.T) {
	a := account.New("alice", decimal.NewFromInt(10000))
	b := account.New("bob", decimal.NewFromInt(10000))
	accounts := map[string]*account.Account{"alice": a, "bob": b}

	eng := newTestEngine()
	// Run both roles in sequence; if lock ordering were role-dependent
	// rather than id-dependent, mixing roles like this across many
	// concurrent goroutines would be deadlock-prone.
	eng.Settle([]core.Trade{newTrade("alice", "bob", 50, 2)}, accounts, nil, nil)
	eng.Settle([]core.Trade{newTrade("bob", "alice", 50, 2)}, accounts, nil, nil)

	assert.True(t, a.Balance().Equal(decimal.NewFromInt(10000)))
	assert.True(t, b.Balance().Equal(decimal.NewFromInt(10000)))
}
