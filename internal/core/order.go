package core

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidTraderID is returned when a trader id fails ValidIdentifier.
	ErrInvalidTraderID = errors.New("core: invalid trader id")
	// ErrInvalidSymbol is returned when a symbol fails ValidIdentifier.
	ErrInvalidSymbol = errors.New("core: invalid symbol")
	// ErrNonPositivePrice is returned when a Limit order carries a
	// zero or negative price.
	ErrNonPositivePrice = errors.New("core: limit price must be positive")
	// ErrNonPositiveQuantity is returned when an order carries a zero
	// or negative quantity.
	ErrNonPositiveQuantity = errors.New("core: quantity must be positive")
)

// Order is the unit of trading intent. Price is ignored for Market orders.
// FilledQuantity only ever grows and never exceeds Quantity.
type Order struct {
	OrderID         string
	TraderID        string
	Symbol          string
	Side            OrderSide
	Type            OrderType
	Price           decimal.Decimal
	Quantity        decimal.Decimal
	FilledQuantity  decimal.Decimal
	Status          OrderStatus
	TimestampNanos  int64
}

// Remaining returns the quantity still eligible to match or rest.
func (o *Order) Remaining() decimal.Decimal {
	return o.Quantity.Sub(o.FilledQuantity)
}

// Validate checks the field-level invariants from spec §3 that apply on
// ingress, before the order is ever seen by the book or matching engine.
func (o *Order) Validate() error {
	if !ValidIdentifier(o.TraderID) {
		return ErrInvalidTraderID
	}
	if !ValidIdentifier(o.Symbol) {
		return ErrInvalidSymbol
	}
	if o.Type == Limit && o.Price.Sign() <= 0 {
		return ErrNonPositivePrice
	}
	if o.Quantity.Sign() <= 0 {
		return ErrNonPositiveQuantity
	}
	return nil
}

// ApplyFill increments FilledQuantity and recomputes Status. terminal
// reports whether the order became Filled as a result.
func (o *Order) ApplyFill(quantity decimal.Decimal) (terminal bool) {
	o.FilledQuantity = o.FilledQuantity.Add(quantity)
	if o.FilledQuantity.GreaterThanOrEqual(o.Quantity) {
		o.Status = Filled
		return true
	}
	o.Status = PartiallyFilled
	return false
}
