package core

import "github.com/shopspring/decimal"

// Trade is an executed crossing between a buy order and a sell order.
// Invariant: BuyOrderID != SellOrderID, both orders share Symbol, and
// Quantity never exceeds the remaining quantity of either referenced order
// at emission time (enforced by internal/matching).
type Trade struct {
	TradeID        string
	BuyOrderID     string
	SellOrderID    string
	BuyTraderID    string
	SellTraderID   string
	Symbol         string
	Price          decimal.Decimal
	Quantity       decimal.Decimal
	TimestampNanos int64
}

// Notional is the cash amount transferred by this trade.
func (t Trade) Notional() decimal.Decimal {
	return t.Price.Mul(t.Quantity)
}
