package wire

import (
	"context"
	"fmt"
	"net"

	"github.com/rs/zerolog"
	tomb "gopkg.in/tomb.v2"

	"github.com/vesperex/vesper/internal/core"
	"github.com/vesperex/vesper/internal/registry"
	"github.com/vesperex/vesper/internal/settlement"
)

// Server accepts trading-protocol connections and runs one goroutine per
// session for its lifetime (spec §5), grounded on
// _examples/saiputravu-Exchange/internal/net/server.go's accept loop and
// gopkg.in/tomb.v2 lifecycle, simplified from a fixed worker pool into a
// direct per-connection goroutine since each session here is long-lived,
// matching _examples/original_source/src/MarketServer.cpp's
// "std::thread clientThread(...); clientThread.detach()" model: only the
// accept loop is joined on shutdown, sessions are abandoned in flight
// (spec §5 "Cancellation / timeout").
type Server struct {
	addr   string
	reg    *registry.Registry
	submit func(order *core.Order) (accepted bool, rejectReason string)
	orders *core.IDGenerator
	clock  *core.Clock
	log    zerolog.Logger
}

// New creates a trading-protocol server listening on addr. submit is the
// coordinator's Submit call, adapted to the narrow signature this package
// needs so it never imports internal/coordinator directly.
func New(addr string, reg *registry.Registry, submit func(order *core.Order) (accepted bool, rejectReason string), log zerolog.Logger) *Server {
	return &Server{
		addr:   addr,
		reg:    reg,
		submit: submit,
		orders: core.NewIDGenerator("ORD"),
		clock:  &core.Clock{},
		log:    log.With().Str("component", "wire").Logger(),
	}
}

// Run binds addr and accepts connections until ctx is cancelled. It
// returns once the accept loop has exited; in-flight sessions are not
// waited on (spec §5).
func (s *Server) Run(ctx context.Context) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("wire: listen on %s: %w", s.addr, err)
	}

	t, ctx := tomb.WithContext(ctx)
	t.Go(func() error {
		<-ctx.Done()
		return listener.Close()
	})
	t.Go(func() error {
		return s.acceptLoop(ctx, listener)
	})

	s.log.Info().Str("addr", s.addr).Msg("wire: trading server listening")
	return t.Wait()
}

func (s *Server) acceptLoop(ctx context.Context, listener net.Listener) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				s.log.Error().Err(err).Msg("wire: error accepting connection")
				continue
			}
		}
		go s.handleConnection(conn)
	}
}

// handleConnection runs for the lifetime of one client session. The first
// line must be REGISTER; anything else and the connection is dropped
// (spec §6: "Registration must be the first frame; otherwise the
// connection is dropped").
func (s *Server) handleConnection(conn net.Conn) {
	sess := newSession(conn, s.log)
	defer conn.Close()

	scanner := newScanner(conn)
	if !scanner.Scan() {
		return
	}
	traderID, ok := parseRegister(scanner.Text())
	if !ok || !core.ValidIdentifier(traderID) {
		sess.Push(formatError("first frame must be REGISTER:<trader_id>"))
		return
	}

	s.reg.EnsureAccount(traderID)
	sess.traderID = traderID
	s.reg.BindSession(traderID, sess)
	defer s.reg.UnbindSession(traderID, sess)

	sess.Push(formatRegistered(traderID))
	s.log.Info().Str("trader_id", traderID).Str("session_id", sess.id).Msg("wire: trader registered")

	for scanner.Scan() {
		s.handleLine(sess, traderID, scanner.Text())
	}
}

func (s *Server) handleLine(sess *session, traderID, line string) {
	order, err := parseOrder(line)
	if err != nil {
		s.log.Warn().Err(err).Str("trader_id", traderID).Msg("wire: malformed frame")
		sess.Push(formatError("Invalid order format. Expected: ORDER:traderId:symbol:side:type:price:quantity"))
		return
	}

	order.TraderID = traderID
	order.OrderID = s.orders.Next()
	order.TimestampNanos = s.clock.Now()
	order.Status = core.Pending

	if verr := order.Validate(); verr != nil {
		order.Status = core.Rejected
		sess.Push(formatOrderRejected(order.OrderID, verr.Error()))
		return
	}

	accepted, reason := s.submit(&order)
	if !accepted {
		sess.Push(formatOrderRejected(order.OrderID, reason))
		return
	}
	sess.Push(formatOrderAccepted(order.OrderID))
	// An unfilled market remainder (spec §9) is pushed separately by the
	// coordinator's OnOrderTerminal callback, wired to PushOrderCancelled.
}

// PushTrade delivers a TRADE_EXECUTED line to each counterparty of trade
// (buyer and seller, each with its own side), resolved through reg by
// trader id. Called from the coordinator's OnTrade callback by cmd/vesper,
// once per trade.
func PushTrade(reg *registry.Registry, trade core.Trade) {
	if sess, ok := reg.SessionFor(trade.BuyTraderID); ok {
		sess.Push(formatTradeExecuted(trade, core.Buy))
	}
	if sess, ok := reg.SessionFor(trade.SellTraderID); ok {
		sess.Push(formatTradeExecuted(trade, core.Sell))
	}
}

// PushSettlement delivers a SETTLEMENT line to one settled side. Registered
// as the coordinator's OnSettlement callback by cmd/vesper.
func PushSettlement(reg *registry.Registry, update settlement.PositionUpdate) {
	sess, ok := reg.SessionFor(update.TraderID)
	if !ok {
		return
	}
	sess.Push(formatSettlement(update.Symbol, update.SignedQuantity, update.Price))
}

// PushOrderCancelled delivers an ORDER_CANCELLED line for an order whose
// terminal state the submitter needs to learn about outside the normal
// accept/reject reply (spec §9's redesigned unfilled-market-remainder
// notification). Registered as the coordinator's OnOrderTerminal callback.
func PushOrderCancelled(reg *registry.Registry, order *core.Order, reason string) {
	sess, ok := reg.SessionFor(order.TraderID)
	if !ok {
		return
	}
	sess.Push(formatOrderCancelled(order.OrderID, reason))
}
