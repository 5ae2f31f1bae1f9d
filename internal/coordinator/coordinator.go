// Package coordinator implements the SubmissionCoordinator (spec §4.4):
// the single serialized entry point for every inbound order, composing
// the registry, matching engine, settlement engine, and an audit sink.
// Grounded on _examples/original_source/include/MarketServer.h's
// processOrder flow, restructured per spec §9's redesign note away from
// "function pointers with captured mutable state" into explicit Go
// callback registration (OnTrade/OnSettlement/OnOrderTerminal), each a
// typed func value set once at wiring time in cmd/vesper rather than a
// bag of closures threaded through constructors.
package coordinator

import (
	"github.com/rs/zerolog"

	"github.com/vesperex/vesper/internal/account"
	"github.com/vesperex/vesper/internal/core"
	"github.com/vesperex/vesper/internal/matching"
	"github.com/vesperex/vesper/internal/registry"
	"github.com/vesperex/vesper/internal/settlement"
)

// AuditSink is the append-only persistence collaborator (spec §3 "Audit
// sink"). The coordinator only needs these two calls; internal/audit
// supplies the concrete in-memory and Postgres implementations.
type AuditSink interface {
	RecordOrder(order *core.Order)
	RecordTrade(trade core.Trade)
}

// Result is the outcome of one Submit call, enough for the wire layer to
// choose between ORDER_ACCEPTED and ORDER_REJECTED.
type Result struct {
	Accepted     bool
	RejectReason string
	Trades       []core.Trade
}

// Coordinator is the sole entry point into the engine core (spec §4.4).
// One Coordinator serves every symbol; per-symbol serialization comes from
// each book's own lock, not from the coordinator itself, so submissions
// against different symbols proceed in parallel (spec §5: "Multiple books
// can be processed in parallel... Within a single book, submission is
// strictly serialized").
type Coordinator struct {
	registry *registry.Registry
	engine   *matching.Engine
	settler  *settlement.Engine
	audit    AuditSink
	log      zerolog.Logger

	onTrade          func(core.Trade)
	onSettlement     func(settlement.PositionUpdate)
	onOrderTerminal  func(order *core.Order, reason string)
	onSettlementSkip func(core.Trade)
}

// New creates a coordinator wired to registry, engine, settler, and audit.
func New(reg *registry.Registry, engine *matching.Engine, settler *settlement.Engine, audit AuditSink, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		registry: reg,
		engine:   engine,
		settler:  settler,
		audit:    audit,
		log:      log.With().Str("component", "coordinator").Logger(),
	}
}

// OnTrade registers the callback invoked once per emitted trade (spec
// §4.4 step 7: "used for audit and notification"). Intended for wiring a
// wire-layer push to both counterparty sessions.
func (c *Coordinator) OnTrade(fn func(core.Trade)) { c.onTrade = fn }

// OnSettlement registers the callback invoked once per settled side of a
// trade (spec §6: "SETTLEMENT:<symbol>:<signed_quantity>@<price>").
func (c *Coordinator) OnSettlement(fn func(settlement.PositionUpdate)) { c.onSettlement = fn }

// OnOrderTerminal registers the callback invoked when an order reaches a
// terminal state the submitter needs to learn about outside the normal
// ORDER_ACCEPTED/ORDER_REJECTED reply — currently only the redesigned
// unfilled-market-remainder cancellation (spec §9).
func (c *Coordinator) OnOrderTerminal(fn func(order *core.Order, reason string)) {
	c.onOrderTerminal = fn
}

// OnSettlementSkip registers the callback invoked once for each trade
// settlement leaves unapplied — a missing account, or the documented
// insufficient-funds gap (spec §9). Intended for the vesper_settlement_skips
// metric; has no effect on settlement's own behavior.
func (c *Coordinator) OnSettlementSkip(fn func(core.Trade)) { c.onSettlementSkip = fn }

// Submit runs the full §4.4 pipeline for one inbound order: trader
// existence check, best-effort audit, a locked matching pass against the
// order's book, settlement of any resulting trades, and notification
// callbacks. The book lock is held only across the matching pass (spec §5:
// "Never held across any I/O or callback"); settlement and notification
// happen after it is released.
func (c *Coordinator) Submit(order *core.Order) Result {
	if _, ok := c.registry.Account(order.TraderID); !ok {
		return Result{Accepted: false, RejectReason: "unknown trader"}
	}

	if c.audit != nil {
		c.audit.RecordOrder(order)
	}

	b := c.registry.EnsureBook(order.Symbol)
	b.Lock()
	trades := c.engine.Submit(order, b)
	if order.Status.Resting() && order.Remaining().Sign() > 0 {
		if err := b.Add(order); err != nil {
			c.log.Error().Err(err).Str("order_id", order.OrderID).Msg("coordinator: failed to rest order after matching pass")
		}
	}
	b.Unlock()

	if order.Type == core.Market && order.Status == core.Cancelled && c.onOrderTerminal != nil {
		c.onOrderTerminal(order, "unfilled_market_remainder")
	}

	if len(trades) > 0 {
		c.settleAndNotify(trades)
	}

	return Result{Accepted: true, Trades: trades}
}

func (c *Coordinator) settleAndNotify(trades []core.Trade) {
	accounts := c.resolveAccounts(trades)
	c.settler.Settle(trades, accounts, func(update settlement.PositionUpdate) {
		if c.onSettlement != nil {
			c.onSettlement(update)
		}
	}, func(trade core.Trade) {
		if c.onSettlementSkip != nil {
			c.onSettlementSkip(trade)
		}
	})

	for _, trade := range trades {
		if c.audit != nil {
			c.audit.RecordTrade(trade)
		}
		if c.onTrade != nil {
			c.onTrade(trade)
		}
	}
}

// resolveAccounts resolves the account for every distinct trader id
// appearing in trades (spec §4.4 step 5), rather than snapshotting the
// entire registry.
func (c *Coordinator) resolveAccounts(trades []core.Trade) map[string]*account.Account {
	accounts := make(map[string]*account.Account, len(trades)*2)
	for _, trade := range trades {
		for _, traderID := range []string{trade.BuyTraderID, trade.SellTraderID} {
			if _, ok := accounts[traderID]; ok {
				continue
			}
			if acc, ok := c.registry.Account(traderID); ok {
				accounts[traderID] = acc
			}
		}
	}
	return accounts
}
