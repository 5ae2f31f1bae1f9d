// Package settlement applies executed trades to the two accounts involved
// (spec §3 "Settlement Engine"), grounded directly on
// _examples/original_source/src/SettlementEngine.cpp's settleTrade/
// settleTrades, including its documented insufficient-funds gap (spec §9:
// a known defect to flag, not silently fix) and its two-callback
// notification shape, reworked into Go's concurrent-safe account-locking
// idiom described in spec §5.
package settlement

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/vesperex/vesper/internal/account"
	"github.com/vesperex/vesper/internal/core"
)

// PositionUpdate is pushed once per side of a settled trade, mirroring the
// original's settlementCallback_(traderId, symbol, signedDelta, price): the
// buyer's update carries a positive signed quantity, the seller's negative.
type PositionUpdate struct {
	TraderID       string
	Symbol         string
	SignedQuantity decimal.Decimal
	Price          decimal.Decimal
	TradeID        string
}

// Engine moves cash and positions between a trade's buyer and seller.
type Engine struct {
	log zerolog.Logger
}

// New creates a settlement engine that logs via log.
func New(log zerolog.Logger) *Engine {
	return &Engine{log: log.With().Str("component", "settlement").Logger()}
}

// Settle applies every trade in trades to the accounts named by trader id
// in accounts, in order, invokes onUpdate once per settled side, and
// invokes onSkip (if non-nil) once for any trade left unsettled — either
// because an account was missing, or because the buyer had insufficient
// funds (spec §9's documented gap). onSkip gives callers outside this
// package (metrics) visibility into the gap without changing its behavior.
func (e *Engine) Settle(trades []core.Trade, accounts map[string]*account.Account, onUpdate func(PositionUpdate), onSkip func(core.Trade)) {
	for _, trade := range trades {
		e.settleOne(trade, accounts, onUpdate, onSkip)
	}
}

func (e *Engine) settleOne(trade core.Trade, accounts map[string]*account.Account, onUpdate func(PositionUpdate), onSkip func(core.Trade)) {
	buyer, ok := accounts[trade.BuyTraderID]
	if !ok {
		e.log.Warn().Str("trade_id", trade.TradeID).Str("trader_id", trade.BuyTraderID).Msg("settlement: buyer account not found, skipping trade")
		if onSkip != nil {
			onSkip(trade)
		}
		return
	}
	seller, ok := accounts[trade.SellTraderID]
	if !ok {
		e.log.Warn().Str("trade_id", trade.TradeID).Str("trader_id", trade.SellTraderID).Msg("settlement: seller account not found, skipping trade")
		if onSkip != nil {
			onSkip(trade)
		}
		return
	}

	first, second := buyer, seller
	if second.ID() < first.ID() {
		first, second = second, first
	}
	first.Lock()
	if second != first {
		second.Lock()
	}
	defer func() {
		if second != first {
			second.Unlock()
		}
		first.Unlock()
	}()

	total := trade.Notional()

	// Buyer pays cash and receives shares. Spec §9: an insufficient-funds
	// buyer leaves the trade emitted (and audited) but not reflected in
	// balances/positions here — a documented gap in the source system,
	// preserved rather than silently fixed (see DESIGN.md).
	if err := buyer.WithdrawLocked(total); err != nil {
		e.log.Warn().Str("trade_id", trade.TradeID).Str("trader_id", trade.BuyTraderID).Err(err).Msg("settlement: buyer has insufficient funds, trade not settled")
		if onSkip != nil {
			onSkip(trade)
		}
		return
	}
	buyer.PositionDeltaLocked(trade.Symbol, trade.Quantity)

	if err := seller.DepositLocked(total); err != nil {
		// total is the product of two positive decimals and can only fail
		// this non-positive-amount check if Price or Quantity were zero,
		// which Validate already rejects at ingress.
		e.log.Error().Str("trade_id", trade.TradeID).Err(err).Msg("settlement: unexpected seller deposit failure")
		return
	}
	seller.PositionDeltaLocked(trade.Symbol, trade.Quantity.Neg())

	if onUpdate != nil {
		onUpdate(PositionUpdate{TraderID: trade.BuyTraderID, Symbol: trade.Symbol, SignedQuantity: trade.Quantity, Price: trade.Price, TradeID: trade.TradeID})
		onUpdate(PositionUpdate{TraderID: trade.SellTraderID, Symbol: trade.Symbol, SignedQuantity: trade.Quantity.Neg(), Price: trade.Price, TradeID: trade.TradeID})
	}
}
