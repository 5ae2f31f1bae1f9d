package registry

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureAccount_SeedsOnceAndReusesAfter(t *testing.T) {
	r := New(decimal.NewFromInt(10000))

	acc, created := r.EnsureAccount("alice")
	assert.True(t, created)
	assert.True(t, acc.Balance().Equal(decimal.NewFromInt(10000)))

	again, created := r.EnsureAccount("alice")
	assert.False(t, created)
	assert.Same(t, acc, again)
}

func TestEnsureBook_CreatesLazilyAndReuses(t *testing.T) {
	r := New(decimal.NewFromInt(10000))

	b := r.EnsureBook("ACME")
	require.NotNil(t, b)
	again := r.EnsureBook("ACME")
	assert.Same(t, b, again)

	_, ok := r.Book("UNKNOWN")
	assert.False(t, ok)

	assert.ElementsMatch(t, []string{"ACME"}, r.Symbols())
}

type fakeSession struct{ id string }

func (f *fakeSession) Push(string) {}

func TestSessionBinding_UnbindIgnoresStaleHandle(t *testing.T) {
	r := New(decimal.NewFromInt(10000))
	first := &fakeSession{id: "first"}
	second := &fakeSession{id: "second"}

	r.BindSession("alice", first)
	r.BindSession("alice", second)

	// Simulate the first (now stale) connection's disconnect handler
	// firing after a reconnect already rebound the trader id.
	r.UnbindSession("alice", first)
	got, ok := r.SessionFor("alice")
	require.True(t, ok)
	assert.Same(t, second, got)

	r.UnbindSession("alice", second)
	_, ok = r.SessionFor("alice")
	assert.False(t, ok)
}
