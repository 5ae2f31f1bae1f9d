// Package matching implements the price-time priority crossing algorithm
// (spec §4.2), grounded on
// _examples/original_source/src/MatchingEngine.cpp's matchBuyOrder/
// matchSellOrder walk, restructured around internal/book's single
// direction-agnostic FrontOfBook/Remove pair instead of duplicating the
// walk once per side, and carrying the three redesigned behaviors spec §9
// flags as probable defects in the original rather than replicating them.
package matching

import (
	"github.com/shopspring/decimal"

	"github.com/vesperex/vesper/internal/core"
)

// Engine produces trades by crossing an incoming order against a resting
// book. It holds no state beyond the trade id generator and the trade
// timestamp clock, so one Engine can serve every symbol's book.
type Engine struct {
	tradeIDs *core.IDGenerator
	clock    *core.Clock
}

// New creates a matching engine that stamps trades via tradeIDs and clock.
func New(tradeIDs *core.IDGenerator, clock *core.Clock) *Engine {
	return &Engine{tradeIDs: tradeIDs, clock: clock}
}

// opposite returns the side a resting candidate must be on to cross
// against incoming.
func opposite(side core.OrderSide) core.OrderSide {
	if side == core.Buy {
		return core.Sell
	}
	return core.Buy
}

// crosses reports whether incoming may still trade against a resting order
// at candidatePrice, per spec §4.2 step 1. Market orders never price-break.
func crosses(incoming *core.Order, candidatePrice decimal.Decimal) bool {
	if incoming.Type == core.Market {
		return true
	}
	if incoming.Side == core.Buy {
		return !incoming.Price.LessThan(candidatePrice)
	}
	return !incoming.Price.GreaterThan(candidatePrice)
}

// tradePrice implements spec §4.2 step 3, resolved per §9's redesign note:
// a crossing trade always prices at the resting candidate's own price,
// computed directly rather than via min()/max() against a possibly
// meaningless incoming price field (the original's bug for Market orders
// whose price field is uninitialized).
func tradePrice(candidate *core.Order) decimal.Decimal {
	return candidate.Price
}

// Submit crosses incoming against book's opposite side in matching order,
// mutating incoming and any partially-or-fully-filled candidates in place,
// removing fully-filled candidates from book, and returning every trade
// produced. The caller must hold book's lock for the duration of this call
// (spec §5).
//
// Submit never rests incoming; that is the caller's responsibility once
// the crossing pass is done (spec §4.2's "Resting rule"), since resting
// requires book.Add and Submit only ever removes from book.
func (e *Engine) Submit(incoming *core.Order, restBook bookView) []core.Trade {
	var trades []core.Trade
	side := opposite(incoming.Side)

	for incoming.Remaining().Sign() > 0 {
		candidate, ok := restBook.FrontOfBook(side)
		if !ok {
			break
		}
		if candidate.Remaining().Sign() <= 0 {
			// Defensive: invariants should prevent a fully-filled order from
			// still resting, but never trade against one if it slips through.
			restBook.Remove(candidate.OrderID)
			continue
		}
		if !crosses(incoming, candidate.Price) {
			break
		}

		quantity := decimal.Min(incoming.Remaining(), candidate.Remaining())
		price := tradePrice(candidate)

		trade := e.buildTrade(incoming, candidate, price, quantity)
		trades = append(trades, trade)

		incoming.ApplyFill(quantity)
		if terminal := candidate.ApplyFill(quantity); terminal {
			restBook.Remove(candidate.OrderID)
		}
	}

	if incoming.Type == core.Market && incoming.Remaining().Sign() > 0 && !incoming.Status.Terminal() {
		incoming.Status = core.Cancelled
	}

	return trades
}

func (e *Engine) buildTrade(incoming, candidate *core.Order, price, quantity decimal.Decimal) core.Trade {
	buyOrder, sellOrder := incoming, candidate
	if incoming.Side == core.Sell {
		buyOrder, sellOrder = candidate, incoming
	}
	return core.Trade{
		TradeID:        e.tradeIDs.Next(),
		BuyOrderID:     buyOrder.OrderID,
		SellOrderID:    sellOrder.OrderID,
		BuyTraderID:    buyOrder.TraderID,
		SellTraderID:   sellOrder.TraderID,
		Symbol:         incoming.Symbol,
		Price:          price,
		Quantity:       quantity,
		TimestampNanos: e.clock.Now(),
	}
}

// bookView is the slice of *book.OrderBook's exported surface Submit needs,
// kept narrow so matching can be unit-tested against a fake without pulling
// in the book package's btree/container-list internals.
type bookView interface {
	FrontOfBook(side core.OrderSide) (*core.Order, bool)
	Remove(orderID string) bool
}
