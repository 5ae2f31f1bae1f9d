package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vesperex/vesper/internal/book"
	"github.com/vesperex/vesper/internal/core"
)

type fakeRegistry struct {
	books             map[string]*book.OrderBook
	balances          map[string]string
	connectedTraders  int
	tradersWithOrders int
}

func (f *fakeRegistry) Book(symbol string) (*book.OrderBook, bool) {
	b, ok := f.books[symbol]
	return b, ok
}

func (f *fakeRegistry) Symbols() []string {
	out := make([]string, 0, len(f.books))
	for symbol := range f.books {
		out = append(out, symbol)
	}
	return out
}

func (f *fakeRegistry) AccountSnapshot(accountID string) (string, bool) {
	balance, ok := f.balances[accountID]
	return balance, ok
}

func (f *fakeRegistry) ConnectedTraders() int  { return f.connectedTraders }
func (f *fakeRegistry) TradersWithOrders() int { return f.tradersWithOrders }

func newRestingOrder(traderID, orderID string, side core.OrderSide, price, qty int64) *core.Order {
	return &core.Order{
		OrderID:  orderID,
		TraderID: traderID,
		Symbol:   "ACME",
		Side:     side,
		Type:     core.Limit,
		Price:    decimal.NewFromInt(price),
		Quantity: decimal.NewFromInt(qty),
		Status:   core.Pending,
	}
}

func TestHandleOrderBook_ReflectsBestBidAskAndOrders(t *testing.T) {
	b := book.New("ACME")
	require.NoError(t, b.Add(newRestingOrder("alice", "ORD_1", core.Buy, 100, 5)))
	require.NoError(t, b.Add(newRestingOrder("bob", "ORD_2", core.Sell, 105, 3)))

	reg := &fakeRegistry{books: map[string]*book.OrderBook{"ACME": b}}
	srv := New(reg, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/orderbook/ACME", nil)
	req.Header.Set("Origin", "http://example.com")
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))

	var view orderBookView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	assert.Equal(t, "ACME", view.Symbol)
	assert.Equal(t, "100", view.BestBid)
	assert.Equal(t, "105", view.BestAsk)
	require.Len(t, view.BuyOrders, 1)
	assert.Equal(t, "ORD_1", view.BuyOrders[0].OrderID)
	require.Len(t, view.SellOrders, 1)
	assert.Equal(t, "ORD_2", view.SellOrders[0].OrderID)
}

func TestHandleOrderBook_UnknownSymbolReturnsEmptyBook(t *testing.T) {
	reg := &fakeRegistry{books: map[string]*book.OrderBook{}}
	srv := New(reg, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/orderbook/GHOST", nil)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	var view orderBookView
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	assert.Equal(t, "0", view.BestBid)
	assert.Equal(t, "0", view.BestAsk)
	assert.Empty(t, view.BuyOrders)
}

func TestHandleAccount_KnownAccount(t *testing.T) {
	reg := &fakeRegistry{balances: map[string]string{"alice": "9500"}}
	srv := New(reg, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/account/alice", nil)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	assert.JSONEq(t, `{"accountId":"alice","balance":"9500"}`, rr.Body.String())
}

func TestHandleAccount_UnknownAccountReturnsEmptyObject(t *testing.T) {
	reg := &fakeRegistry{balances: map[string]string{}}
	srv := New(reg, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/account/ghost", nil)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	assert.JSONEq(t, `{}`, rr.Body.String())
}

func TestHandleStats_ReportsRegistryCounts(t *testing.T) {
	reg := &fakeRegistry{connectedTraders: 3, tradersWithOrders: 2}
	srv := New(reg, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)

	assert.JSONEq(t, `{"connectedTraders":3,"tradersWithOrders":2}`, rr.Body.String())
}
