// Package wire implements the line-delimited ASCII trading protocol of
// spec §6: REGISTER/ORDER inbound frames and the TRADE_EXECUTED/SETTLEMENT/
// ORDER_ACCEPTED/ORDER_REJECTED/ERROR outbound vocabulary. Framing is
// grounded directly on
// _examples/original_source/src/MarketServer.cpp's handleClient/
// processMessage/parseOrderMessage (exact "REGISTER:"/"ORDER:" prefixes,
// ':'-split tokens, \r\n stripping); the accept-loop/session/tomb/zerolog
// shape is grounded on
// _examples/saiputravu-Exchange/internal/net/server.go, generalized from a
// fixed worker pool to one goroutine per long-lived session per spec §5.
package wire

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vesperex/vesper/internal/core"
)

// ErrMalformedFrame is returned by parseOrder when a frame cannot be turned
// into an Order at all (too few fields, unparseable numbers) — spec §7:
// "Malformed wire frame... Reply ERROR:<reason>, keep session open".
var ErrMalformedFrame = errors.New("wire: malformed ORDER frame")

func stripCRLF(s string) string {
	return strings.TrimRight(s, "\r\n")
}

// parseRegister extracts the trader id from a "REGISTER:<trader_id>" frame.
func parseRegister(line string) (traderID string, ok bool) {
	const prefix = "REGISTER:"
	if !strings.HasPrefix(line, prefix) {
		return "", false
	}
	return stripCRLF(strings.TrimPrefix(line, prefix)), true
}

// parseOrder parses "ORDER:<trader_id>:<symbol>:<BUY|SELL>:<MARKET|LIMIT>:<price>:<quantity>"
// into a core.Order with OrderID/TimestampNanos/Status left to the caller,
// mirroring MarketServer::parseOrderMessage's token split.
func parseOrder(line string) (core.Order, error) {
	const prefix = "ORDER:"
	if !strings.HasPrefix(line, prefix) {
		return core.Order{}, ErrMalformedFrame
	}
	fields := strings.Split(stripCRLF(strings.TrimPrefix(line, prefix)), ":")
	if len(fields) < 6 {
		return core.Order{}, ErrMalformedFrame
	}

	traderID, symbol, sideStr, typeStr, priceStr, qtyStr := fields[0], fields[1], fields[2], fields[3], fields[4], fields[5]

	side, ok := core.ParseOrderSide(sideStr)
	if !ok {
		return core.Order{}, ErrMalformedFrame
	}
	orderType, ok := core.ParseOrderType(typeStr)
	if !ok {
		return core.Order{}, ErrMalformedFrame
	}
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return core.Order{}, fmt.Errorf("%w: bad price %q", ErrMalformedFrame, priceStr)
	}
	quantity, err := decimal.NewFromString(qtyStr)
	if err != nil {
		return core.Order{}, fmt.Errorf("%w: bad quantity %q", ErrMalformedFrame, qtyStr)
	}

	return core.Order{
		TraderID: traderID,
		Symbol:   symbol,
		Side:     side,
		Type:     orderType,
		Price:    price,
		Quantity: quantity,
	}, nil
}

// Outbound line formatters (spec §6).

func formatRegistered(traderID string) string {
	return "REGISTERED:" + traderID
}

func formatOrderAccepted(orderID string) string {
	return "ORDER_ACCEPTED:" + orderID
}

func formatOrderRejected(orderID, reason string) string {
	return fmt.Sprintf("ORDER_REJECTED:%s:%s", orderID, reason)
}

func formatError(reason string) string {
	return "ERROR:" + reason
}

func formatOrderCancelled(orderID, reason string) string {
	return fmt.Sprintf("ORDER_CANCELLED:%s:%s", orderID, reason)
}

// formatTradeExecuted implements spec §6's
// "TRADE_EXECUTED:<trade_id>:<symbol>:<BUY|SELL>:<quantity>@<price>", one
// per counterparty with that counterparty's own side.
func formatTradeExecuted(trade core.Trade, side core.OrderSide) string {
	return fmt.Sprintf("TRADE_EXECUTED:%s:%s:%s:%s@%s", trade.TradeID, trade.Symbol, side, trade.Quantity, trade.Price)
}

// formatSettlement implements spec §6's
// "SETTLEMENT:<symbol>:<signed_quantity>@<price>".
func formatSettlement(symbol string, signedQuantity, price decimal.Decimal) string {
	return fmt.Sprintf("SETTLEMENT:%s:%s@%s", symbol, signedQuantity, price)
}
