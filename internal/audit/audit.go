// Package audit implements the best-effort, non-blocking persistence
// collaborator of spec §3/§6: a record of every submitted order (keyed by
// order id, so recording the same order again replaces its filled
// quantity and status) and an append-only record of every emitted trade.
// The coordinator records each order once, on submission, before matching. Grounded directly on
// _examples/original_source/include/OrderLogger.h and src/OrderLogger.cpp,
// which documents the exact Postgres connection-string shape and the
// upsert-on-order_id query this sink abstracts over; the concrete Go
// library (gorm.io/gorm + gorm.io/driver/postgres) is drawn from the pack
// (abdoElHodaky-tradSys's internal/db).
package audit

import (
	"sync"

	"github.com/vesperex/vesper/internal/core"
)

// Sink is the append-only persistence interface the coordinator depends on
// (spec §9: collaborators register through narrow interfaces, never through
// captured-pointer callbacks). Both calls are best-effort: a failure is
// logged and never propagates back to the caller (spec §7: "audit failure
// does not block progress").
type Sink interface {
	RecordOrder(order *core.Order)
	RecordTrade(trade core.Trade)
	Close() error
}

// OrderRecord is a point-in-time copy of an order as the audit sink saw it.
// Memory keeps these for introspection/tests; Postgres maps them onto the
// order_records table.
type OrderRecord struct {
	OrderID        string
	TraderID       string
	Symbol         string
	Side           string
	Type           string
	Price          string
	Quantity       string
	FilledQuantity string
	Status         string
	TimestampNanos int64
}

// TradeRecord is a point-in-time copy of a trade as the audit sink saw it.
type TradeRecord struct {
	TradeID        string
	BuyOrderID     string
	SellOrderID    string
	Symbol         string
	BuyerID        string
	SellerID       string
	Price          string
	Quantity       string
	TimestampNanos int64
}

func orderRecord(order *core.Order) OrderRecord {
	return OrderRecord{
		OrderID:        order.OrderID,
		TraderID:       order.TraderID,
		Symbol:         order.Symbol,
		Side:           order.Side.String(),
		Type:           order.Type.String(),
		Price:          order.Price.String(),
		Quantity:       order.Quantity.String(),
		FilledQuantity: order.FilledQuantity.String(),
		Status:         order.Status.String(),
		TimestampNanos: order.TimestampNanos,
	}
}

func tradeRecord(trade core.Trade) TradeRecord {
	return TradeRecord{
		TradeID:        trade.TradeID,
		BuyOrderID:     trade.BuyOrderID,
		SellOrderID:    trade.SellOrderID,
		Symbol:         trade.Symbol,
		BuyerID:        trade.BuyTraderID,
		SellerID:       trade.SellTraderID,
		Price:          trade.Price.String(),
		Quantity:       trade.Quantity.String(),
		TimestampNanos: trade.TimestampNanos,
	}
}

// Memory is an in-process, mutex-guarded audit sink. It is the default sink
// (used whenever VESPER_AUDIT_DSN is unset) and is what tests read back
// from via Orders/Trades; it can never itself fail, matching
// spec §7's "best-effort" disposition trivially.
type Memory struct {
	mu     sync.Mutex
	orders map[string]OrderRecord
	trades []TradeRecord
}

// NewMemory creates an empty in-memory audit sink.
func NewMemory() *Memory {
	return &Memory{orders: make(map[string]OrderRecord)}
}

// RecordOrder upserts order by its order id (spec §6: "upsert on order_id,
// updating filled_quantity and status").
func (m *Memory) RecordOrder(order *core.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[order.OrderID] = orderRecord(order)
}

// RecordTrade appends trade.
func (m *Memory) RecordTrade(trade core.Trade) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = append(m.trades, tradeRecord(trade))
}

// Close is a no-op for Memory.
func (m *Memory) Close() error { return nil }

// Orders returns a snapshot of every recorded order, for tests.
func (m *Memory) Orders() []OrderRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]OrderRecord, 0, len(m.orders))
	for _, rec := range m.orders {
		out = append(out, rec)
	}
	return out
}

// Trades returns a snapshot of every recorded trade, for tests.
func (m *Memory) Trades() []TradeRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TradeRecord, len(m.trades))
	copy(out, m.trades)
	return out
}

var _ Sink = (*Memory)(nil)
