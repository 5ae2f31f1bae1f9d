package book

import (
	"container/list"

	"github.com/shopspring/decimal"
)

// priceLevel is a FIFO queue of resting orders at one price, on one side of
// one symbol's book. Orders are stored in a container/list.List rather than
// a slice so that removing an order by id never reindexes survivors (spec
// §9's "Equivalent stable designs" note endorses exactly this over
// tail-reindexing a vector). Each element's Value is a *core.Order; the
// book's index map holds the matching *list.Element so Remove is O(1).
type priceLevel struct {
	price  decimal.Decimal
	orders list.List
}

func newPriceLevel(price decimal.Decimal) *priceLevel {
	lvl := &priceLevel{price: price}
	lvl.orders.Init()
	return lvl
}

func (lvl *priceLevel) empty() bool {
	return lvl.orders.Len() == 0
}
