// Package book implements the per-symbol limit order book described in
// spec §3/§4.1: two price-indexed FIFOs (bids descending, asks ascending)
// and an order-id index for O(1) lookup, grounded on
// _examples/saiputravu-Exchange/internal/engine/orderbook.go's use of
// github.com/tidwall/btree for price levels, generalized per spec §9 to a
// container/list FIFO per level so removal never reindexes survivors.
package book

import (
	"container/list"
	"errors"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/tidwall/btree"

	"github.com/vesperex/vesper/internal/core"
)

// ErrAlreadyResting is returned by Add when the order id is already indexed.
var ErrAlreadyResting = errors.New("book: order already resting")

// ErrNotResting is returned by Add when the order is not in a restable
// state (spec §4.1: "precondition status ∈ {Pending, PartiallyFilled},
// filled_quantity < quantity").
var ErrNotResting = errors.New("book: order is not in a restable state")

type indexEntry struct {
	side  core.OrderSide
	level *priceLevel
	elem  *list.Element
}

// OrderBook is the resting-order state for one symbol. It is not
// internally synchronized: callers must bracket any sequence of operations
// with Lock/Unlock (spec §5: "One lock per OrderBook. Held for the
// duration of matching... Never held across any I/O or callback"). This
// mirrors internal/account's Lock/Unlock-then-*Locked-methods shape, except
// here every method assumes the lock is already held, since the book has
// no single-call convenience path that wouldn't immediately be followed by
// another locked call from the matching engine.
type OrderBook struct {
	mu sync.Mutex

	Symbol string
	bids   *btree.BTreeG[*priceLevel] // best (highest) price first
	asks   *btree.BTreeG[*priceLevel] // best (lowest) price first
	index  map[string]*indexEntry
}

// New creates an empty order book for symbol.
func New(symbol string) *OrderBook {
	return &OrderBook{
		Symbol: symbol,
		bids: btree.NewBTreeG(func(a, b *priceLevel) bool {
			return a.price.GreaterThan(b.price)
		}),
		asks: btree.NewBTreeG(func(a, b *priceLevel) bool {
			return a.price.LessThan(b.price)
		}),
		index: make(map[string]*indexEntry),
	}
}

// Lock acquires exclusive access to the book for the duration of a
// matching pass or an introspection snapshot.
func (b *OrderBook) Lock() { b.mu.Lock() }

// Unlock releases the lock acquired by Lock.
func (b *OrderBook) Unlock() { b.mu.Unlock() }

func (b *OrderBook) levelsFor(side core.OrderSide) *btree.BTreeG[*priceLevel] {
	if side == core.Buy {
		return b.bids
	}
	return b.asks
}

// Add rests order on its side of the book at its limit price. The caller
// must hold the lock.
func (b *OrderBook) Add(order *core.Order) error {
	if !order.Status.Resting() || order.FilledQuantity.GreaterThanOrEqual(order.Quantity) {
		return ErrNotResting
	}
	if _, exists := b.index[order.OrderID]; exists {
		return ErrAlreadyResting
	}

	levels := b.levelsFor(order.Side)
	lvl, ok := levels.Get(&priceLevel{price: order.Price})
	if !ok {
		lvl = newPriceLevel(order.Price)
		levels.Set(lvl)
	}
	elem := lvl.orders.PushBack(order)
	b.index[order.OrderID] = &indexEntry{side: order.Side, level: lvl, elem: elem}
	return nil
}

// Remove removes the order by id, reindexing nothing (the linked-list FIFO
// never needs it) and dropping the price level if it becomes empty. The
// caller must hold the lock.
func (b *OrderBook) Remove(orderID string) bool {
	entry, ok := b.index[orderID]
	if !ok {
		return false
	}
	entry.level.orders.Remove(entry.elem)
	delete(b.index, orderID)
	if entry.level.empty() {
		b.levelsFor(entry.side).Delete(entry.level)
	}
	return true
}

// Get returns the resting order by id, if present. The caller must hold
// the lock.
func (b *OrderBook) Get(orderID string) (*core.Order, bool) {
	entry, ok := b.index[orderID]
	if !ok {
		return nil, false
	}
	return entry.elem.Value.(*core.Order), true
}

// BestBid returns the highest resting bid price, or zero if the bid side
// is empty. The caller must hold the lock.
func (b *OrderBook) BestBid() decimal.Decimal {
	lvl, ok := b.bids.Min()
	if !ok {
		return decimal.Zero
	}
	return lvl.price
}

// BestAsk returns the lowest resting ask price, or zero if the ask side is
// empty. The caller must hold the lock.
func (b *OrderBook) BestAsk() decimal.Decimal {
	lvl, ok := b.asks.Min()
	if !ok {
		return decimal.Zero
	}
	return lvl.price
}

// FrontOfBook returns the earliest-queued order at the best price level on
// side, if any. The caller must hold the lock.
func (b *OrderBook) FrontOfBook(side core.OrderSide) (*core.Order, bool) {
	lvl, ok := b.levelsFor(side).Min()
	if !ok {
		return nil, false
	}
	front := lvl.orders.Front()
	if front == nil {
		return nil, false
	}
	return front.Value.(*core.Order), true
}

// BuyOrders returns a snapshot of resting buy orders in matching order
// (highest price first, FIFO within a level). The caller must hold the
// lock.
func (b *OrderBook) BuyOrders() []*core.Order {
	return b.snapshot(b.bids)
}

// SellOrders returns a snapshot of resting sell orders in matching order
// (lowest price first, FIFO within a level). The caller must hold the
// lock.
func (b *OrderBook) SellOrders() []*core.Order {
	return b.snapshot(b.asks)
}

func (b *OrderBook) snapshot(levels *btree.BTreeG[*priceLevel]) []*core.Order {
	var out []*core.Order
	levels.Scan(func(lvl *priceLevel) bool {
		for e := lvl.orders.Front(); e != nil; e = e.Next() {
			out = append(out, e.Value.(*core.Order))
		}
		return true
	})
	return out
}
