// Package registry holds the process-lifetime maps the coordinator and
// wire layer share: trader accounts, per-symbol order books, and live
// session handles. Spec §3 "Ownership": "the registry exclusively owns
// accounts and books"; spec §5: "One lock per Registry sub-map (traders,
// accounts, sessions). Only acquired inside short sections." Grounded on
// _examples/original_source/include/MarketServer.h's traders_/accounts_/
// clientSessions_ maps, reshaped into three independently locked Go maps
// per spec §5's "no cycles" graph (registry owns both maps by id; a
// session back-references a trader id, never an account).
package registry

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/vesperex/vesper/internal/account"
	"github.com/vesperex/vesper/internal/book"
)

// Session is the minimal handle the registry needs to track a live
// connection: enough to push asynchronous notifications and to know it is
// gone on disconnect. The wire package supplies the concrete pusher.
type Session interface {
	Push(line string)
}

// Registry owns every account, every symbol's book, and the live session
// for every registered trader, each behind its own lock.
type Registry struct {
	initialBalance decimal.Decimal

	accountsMu sync.Mutex
	accounts   map[string]*account.Account

	booksMu sync.Mutex
	books   map[string]*book.OrderBook

	sessionsMu sync.Mutex
	sessions   map[string]Session
}

// New creates an empty registry that seeds new accounts with
// initialBalance (spec §3: "a configured initial balance, default 10000").
func New(initialBalance decimal.Decimal) *Registry {
	return &Registry{
		initialBalance: initialBalance,
		accounts:       make(map[string]*account.Account),
		books:          make(map[string]*book.OrderBook),
		sessions:       make(map[string]Session),
	}
}

// EnsureAccount returns the account for traderID, creating and seeding it
// with the initial balance on first reference. created reports whether
// this call created it (used to distinguish a REGISTER of an already-known
// trader from a brand new one).
func (r *Registry) EnsureAccount(traderID string) (acc *account.Account, created bool) {
	r.accountsMu.Lock()
	defer r.accountsMu.Unlock()
	if existing, ok := r.accounts[traderID]; ok {
		return existing, false
	}
	acc = account.New(traderID, r.initialBalance)
	r.accounts[traderID] = acc
	return acc, true
}

// Account looks up an already-registered trader's account.
func (r *Registry) Account(traderID string) (*account.Account, bool) {
	r.accountsMu.Lock()
	defer r.accountsMu.Unlock()
	acc, ok := r.accounts[traderID]
	return acc, ok
}

// AllAccounts returns a snapshot of every registered account, keyed by
// trader id.
func (r *Registry) AllAccounts() map[string]*account.Account {
	r.accountsMu.Lock()
	defer r.accountsMu.Unlock()
	out := make(map[string]*account.Account, len(r.accounts))
	for id, acc := range r.accounts {
		out[id] = acc
	}
	return out
}

// EnsureBook returns the order book for symbol, creating it on first
// reference (spec §3: "Order books are created lazily on first reference
// to their symbol").
func (r *Registry) EnsureBook(symbol string) *book.OrderBook {
	r.booksMu.Lock()
	defer r.booksMu.Unlock()
	if existing, ok := r.books[symbol]; ok {
		return existing
	}
	b := book.New(symbol)
	r.books[symbol] = b
	return b
}

// Book returns the order book for symbol without creating it.
func (r *Registry) Book(symbol string) (*book.OrderBook, bool) {
	r.booksMu.Lock()
	defer r.booksMu.Unlock()
	b, ok := r.books[symbol]
	return b, ok
}

// Symbols returns every symbol with a book, for the introspection API's
// listing endpoint.
func (r *Registry) Symbols() []string {
	r.booksMu.Lock()
	defer r.booksMu.Unlock()
	out := make([]string, 0, len(r.books))
	for symbol := range r.books {
		out = append(out, symbol)
	}
	return out
}

// AccountSnapshot returns accountID's current balance formatted as a
// decimal string, for GET /api/account/<accountId> (spec §6). ok is false
// when no such account has ever been registered, in which case the HTTP
// handler returns "{}" per WebServer::getAccountJson.
func (r *Registry) AccountSnapshot(accountID string) (balance string, ok bool) {
	acc, ok := r.Account(accountID)
	if !ok {
		return "", false
	}
	bal, _ := acc.Snapshot()
	return bal.String(), true
}

// ConnectedTraders returns the number of traders with a live session, for
// GET /api/stats (spec §6; MarketServer::getConnectedTradersCount).
func (r *Registry) ConnectedTraders() int {
	r.sessionsMu.Lock()
	defer r.sessionsMu.Unlock()
	return len(r.sessions)
}

// TradersWithOrders returns the number of distinct traders with at least
// one resting order across every book, for GET /api/stats (spec §6;
// MarketServer::getTradersWithActiveOrdersCount).
func (r *Registry) TradersWithOrders() int {
	r.booksMu.Lock()
	books := make([]*book.OrderBook, 0, len(r.books))
	for _, b := range r.books {
		books = append(books, b)
	}
	r.booksMu.Unlock()

	traders := make(map[string]struct{})
	for _, b := range books {
		b.Lock()
		for _, o := range b.BuyOrders() {
			traders[o.TraderID] = struct{}{}
		}
		for _, o := range b.SellOrders() {
			traders[o.TraderID] = struct{}{}
		}
		b.Unlock()
	}
	return len(traders)
}

// BindSession associates traderID with a live session handle, replacing
// any prior one (a trader reconnecting from a new socket).
func (r *Registry) BindSession(traderID string, session Session) {
	r.sessionsMu.Lock()
	defer r.sessionsMu.Unlock()
	r.sessions[traderID] = session
}

// UnbindSession removes traderID's session handle on disconnect (spec §5:
// "client disconnect removes the session handle from the registry"), but
// only if it still matches current — a trader who reconnected between
// disconnect detection and cleanup must not lose its new session.
func (r *Registry) UnbindSession(traderID string, current Session) {
	r.sessionsMu.Lock()
	defer r.sessionsMu.Unlock()
	if r.sessions[traderID] == current {
		delete(r.sessions, traderID)
	}
}

// SessionFor returns the live session handle for traderID, if any.
func (r *Registry) SessionFor(traderID string) (Session, bool) {
	r.sessionsMu.Lock()
	defer r.sessionsMu.Unlock()
	s, ok := r.sessions[traderID]
	return s, ok
}
