// Package httpapi implements the read-only JSON introspection surface of
// spec §6, grounded on
// _examples/original_source/src/WebServer.cpp's handleHttpRequest route
// table (exact route shapes and the "Access-Control-Allow-Origin: *"
// requirement), routed with github.com/gorilla/mux and
// github.com/rs/cors per the pack (abdoElHodaky-tradSys,
// VictorVVedtion-perp-dex), since the teacher has no HTTP layer at all.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/vesperex/vesper/internal/book"
	"github.com/vesperex/vesper/internal/core"
)

// Registry is the slice of registry.Registry this server reads from. Kept
// narrow (no accounts map, no session map) so the HTTP surface cannot
// mutate anything per spec §6 "read-only".
type Registry interface {
	Book(symbol string) (*book.OrderBook, bool)
	Symbols() []string
	AccountSnapshot(accountID string) (balance string, ok bool)
	ConnectedTraders() int
	TradersWithOrders() int
}

// Server wraps a gorilla/mux router with CORS and the four introspection
// routes plus an ambient /metrics endpoint.
type Server struct {
	Handler http.Handler
	log     zerolog.Logger
}

// New builds the HTTP handler for reg, logging via log.
func New(reg Registry, log zerolog.Logger) *Server {
	s := &Server{log: log.With().Str("component", "httpapi").Logger()}

	router := mux.NewRouter()
	router.HandleFunc("/api/orderbooks", s.handleOrderBooks(reg)).Methods(http.MethodGet)
	router.HandleFunc("/api/orderbook/{symbol}", s.handleOrderBook(reg)).Methods(http.MethodGet)
	router.HandleFunc("/api/account/{accountId}", s.handleAccount(reg)).Methods(http.MethodGet)
	router.HandleFunc("/api/stats", s.handleStats(reg)).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	s.Handler = cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet},
	}).Handler(router)

	return s
}

type orderView struct {
	OrderID        string `json:"orderId"`
	TraderID       string `json:"traderId"`
	Price          string `json:"price"`
	Quantity       string `json:"quantity"`
	FilledQuantity string `json:"filledQuantity"`
	Status         string `json:"status"`
}

type orderBookView struct {
	Symbol     string      `json:"symbol"`
	BestBid    string      `json:"bestBid"`
	BestAsk    string      `json:"bestAsk"`
	BuyOrders  []orderView `json:"buyOrders"`
	SellOrders []orderView `json:"sellOrders"`
}

func toOrderViews(orders []*core.Order) []orderView {
	out := make([]orderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, orderView{
			OrderID:        o.OrderID,
			TraderID:       o.TraderID,
			Price:          o.Price.String(),
			Quantity:       o.Quantity.String(),
			FilledQuantity: o.FilledQuantity.String(),
			Status:         o.Status.String(),
		})
	}
	return out
}

func bookView(symbol string, b *book.OrderBook) orderBookView {
	b.Lock()
	defer b.Unlock()
	return orderBookView{
		Symbol:     symbol,
		BestBid:    b.BestBid().String(),
		BestAsk:    b.BestAsk().String(),
		BuyOrders:  toOrderViews(b.BuyOrders()),
		SellOrders: toOrderViews(b.SellOrders()),
	}
}

// handleOrderBooks implements GET /api/orderbooks (spec §6).
func (s *Server) handleOrderBooks(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		symbols := reg.Symbols()
		views := make([]orderBookView, 0, len(symbols))
		for _, symbol := range symbols {
			b, ok := reg.Book(symbol)
			if !ok {
				continue
			}
			views = append(views, bookView(symbol, b))
		}
		s.writeJSON(w, views)
	}
}

// handleOrderBook implements GET /api/orderbook/<symbol> (spec §6).
func (s *Server) handleOrderBook(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		symbol := mux.Vars(r)["symbol"]
		b, ok := reg.Book(symbol)
		if !ok {
			s.writeJSON(w, orderBookView{Symbol: symbol, BestBid: "0", BestAsk: "0", BuyOrders: []orderView{}, SellOrders: []orderView{}})
			return
		}
		s.writeJSON(w, bookView(symbol, b))
	}
}

type accountView struct {
	AccountID string `json:"accountId,omitempty"`
	Balance   string `json:"balance,omitempty"`
}

// handleAccount implements GET /api/account/<accountId> (spec §6): a
// missing account returns "{}" rather than a 404, matching
// WebServer::getAccountJson's "if (!account) return \"{}\"".
func (s *Server) handleAccount(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID := mux.Vars(r)["accountId"]
		balance, ok := reg.AccountSnapshot(accountID)
		if !ok {
			s.writeJSON(w, accountView{})
			return
		}
		s.writeJSON(w, accountView{AccountID: accountID, Balance: balance})
	}
}

type statsView struct {
	ConnectedTraders  int `json:"connectedTraders"`
	TradersWithOrders int `json:"tradersWithOrders"`
}

// handleStats implements GET /api/stats (spec §6).
func (s *Server) handleStats(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, statsView{
			ConnectedTraders:  reg.ConnectedTraders(),
			TradersWithOrders: reg.TradersWithOrders(),
		})
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("httpapi: failed to encode response")
	}
}
