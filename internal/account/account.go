// Package account implements the per-trader cash and position ledger
// (spec §3 "Account"), grounded directly on
// _examples/original_source/include/Account.h and src/Account.cpp — the
// teacher repository has no account/settlement concept at all.
package account

import (
	"errors"
	"sync"

	"github.com/shopspring/decimal"
)

// ErrNonPositiveAmount is returned by Deposit/Withdraw when called with a
// zero or negative amount. Spec §3: "deposit/withdraw amounts strictly
// positive (zero or negative amount is an error kind, not a silent no-op)".
var ErrNonPositiveAmount = errors.New("account: amount must be strictly positive")

// ErrInsufficientFunds is returned by Withdraw when the account balance
// cannot cover the requested amount.
var ErrInsufficientFunds = errors.New("account: insufficient funds")

// Account holds one trader's cash balance and signed per-symbol positions.
// The plain methods (Deposit, Withdraw, Balance, ...) lock
// internally and are safe to call directly for single-account operations.
// Settlement needs to hold two account locks at once, in a caller-chosen
// total order (spec §5: "acquire account locks in a total order
// (lexicographic by account_id)"); for that, callers take the lock
// themselves via Lock/Unlock and then use the *Locked methods, which assume
// the lock is already held and never take it themselves.
type Account struct {
	mu        sync.Mutex
	id        string
	balance   decimal.Decimal
	positions map[string]decimal.Decimal
}

// New creates an account seeded with the given initial balance.
func New(accountID string, initialBalance decimal.Decimal) *Account {
	return &Account{
		id:        accountID,
		balance:   initialBalance,
		positions: make(map[string]decimal.Decimal),
	}
}

// ID returns the account identifier (shared with the trader id, per spec
// §3's lazy-creation-on-registration lifecycle).
func (a *Account) ID() string {
	return a.id
}

// Lock acquires the account's mutex for a multi-step locked operation.
func (a *Account) Lock() { a.mu.Lock() }

// Unlock releases the lock acquired by Lock.
func (a *Account) Unlock() { a.mu.Unlock() }

// Balance returns the current balance under lock.
func (a *Account) Balance() decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance
}

// Position returns the signed quantity held for symbol, zero if none.
func (a *Account) Position(symbol string) decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.positions[symbol]
}

// Snapshot returns a point-in-time copy of balance and positions, taking
// the account lock only briefly (spec §5: "observe a consistent snapshot of
// (balance, positions) at some commit point").
func (a *Account) Snapshot() (decimal.Decimal, map[string]decimal.Decimal) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.balance, a.copyPositionsLocked()
}

func (a *Account) copyPositionsLocked() map[string]decimal.Decimal {
	positions := make(map[string]decimal.Decimal, len(a.positions))
	for symbol, qty := range a.positions {
		positions[symbol] = qty
	}
	return positions
}

// Deposit credits the account. amount must be strictly positive.
func (a *Account) Deposit(amount decimal.Decimal) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.DepositLocked(amount)
}

// Withdraw debits the account if sufficient balance is available.
func (a *Account) Withdraw(amount decimal.Decimal) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.WithdrawLocked(amount)
}

// PositionDelta adjusts the position for symbol by delta under lock.
func (a *Account) PositionDelta(symbol string, delta decimal.Decimal) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.PositionDeltaLocked(symbol, delta)
}

// DepositLocked credits the account. The caller must hold the lock (via
// Lock). amount must be strictly positive.
func (a *Account) DepositLocked(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrNonPositiveAmount
	}
	a.balance = a.balance.Add(amount)
	return nil
}

// WithdrawLocked debits the account if sufficient balance is available.
// The caller must hold the lock (via Lock). Returns ErrInsufficientFunds
// without mutating the balance when funds are short.
func (a *Account) WithdrawLocked(amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrNonPositiveAmount
	}
	if a.balance.LessThan(amount) {
		return ErrInsufficientFunds
	}
	a.balance = a.balance.Sub(amount)
	return nil
}

// PositionDeltaLocked adjusts the position for symbol by delta (positive or
// negative) and prunes the entry if the resulting quantity is exactly zero
// (spec §3: "positions entries with quantity exactly zero are pruned"). The
// caller must hold the lock (via Lock).
func (a *Account) PositionDeltaLocked(symbol string, delta decimal.Decimal) {
	next := a.positions[symbol].Add(delta)
	if next.IsZero() {
		delete(a.positions, symbol)
		return
	}
	a.positions[symbol] = next
}
