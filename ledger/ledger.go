// Package ledger is the sole mutator of player funds. Every other
// component touches balances only through the Ledger interface.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/Digital-Creators-Team/round-engine/errors"
)

// Ledger exposes the three atomic balance primitives the engine needs.
// Reserve is a single check-and-debit step: there is no separate read
// that a concurrent writer could race against. All operations serialize
// per player; operations on different players never block each other.
type Ledger interface {
	// Reserve atomically checks and debits the stake. Returns an
	// InsufficientFunds error when the balance cannot cover it.
	Reserve(ctx context.Context, playerID string, amount decimal.Decimal) error

	// Credit atomically adds winnings. Fails only on an unknown player.
	Credit(ctx context.Context, playerID string, amount decimal.Decimal) error

	// Release returns a previously reserved amount (refunds and voids)
	Release(ctx context.Context, playerID string, amount decimal.Decimal) error

	// Balance reads the current balance and its version
	Balance(ctx context.Context, playerID string) (decimal.Decimal, uint64, error)
}

// account is one player's balance with a monotonically increasing version.
// The version changes on every mutation, never by direct assignment.
type account struct {
	mu        sync.Mutex
	balance   decimal.Decimal
	version   uint64
	updatedAt time.Time
}

// Memory is the in-process Ledger implementation. The accounts map is
// guarded by mu; each account carries its own lock so contention stays
// per player.
type Memory struct {
	mu       sync.RWMutex
	accounts map[string]*account
}

// NewMemory creates an empty in-memory ledger
func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[string]*account),
	}
}

// CreateAccount registers a player with an opening balance. Used by
// wiring and tests; deposits themselves are outside the engine.
func (m *Memory) CreateAccount(playerID string, opening decimal.Decimal) error {
	if opening.IsNegative() {
		return fmt.Errorf("opening balance must not be negative, got %s", opening)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.accounts[playerID]; exists {
		return fmt.Errorf("account already exists: %s", playerID)
	}
	m.accounts[playerID] = &account{
		balance:   opening,
		updatedAt: time.Now(),
	}
	return nil
}

func (m *Memory) lookup(playerID string) (*account, error) {
	m.mu.RLock()
	acc, ok := m.accounts[playerID]
	m.mu.RUnlock()
	if !ok {
		return nil, apperrors.NewWithDebug(apperrors.ErrUnknownPlayer, "unknown player", playerID)
	}
	return acc, nil
}

// Reserve implements Ledger
func (m *Memory) Reserve(ctx context.Context, playerID string, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("reserve amount must be positive, got %s", amount)
	}
	acc, err := m.lookup(playerID)
	if err != nil {
		return err
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()
	if acc.balance.LessThan(amount) {
		return apperrors.InsufficientFunds(playerID)
	}
	acc.balance = acc.balance.Sub(amount)
	acc.version++
	acc.updatedAt = time.Now()
	return nil
}

// Credit implements Ledger
func (m *Memory) Credit(ctx context.Context, playerID string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return fmt.Errorf("credit amount must not be negative, got %s", amount)
	}
	acc, err := m.lookup(playerID)
	if err != nil {
		return err
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()
	acc.balance = acc.balance.Add(amount)
	acc.version++
	acc.updatedAt = time.Now()
	return nil
}

// Release implements Ledger. A release is a credit of a previously
// reserved stake; it shares Credit's mutation path.
func (m *Memory) Release(ctx context.Context, playerID string, amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("release amount must be positive, got %s", amount)
	}
	return m.Credit(ctx, playerID, amount)
}

// Balance implements Ledger
func (m *Memory) Balance(ctx context.Context, playerID string) (decimal.Decimal, uint64, error) {
	acc, err := m.lookup(playerID)
	if err != nil {
		return decimal.Zero, 0, err
	}
	acc.mu.Lock()
	defer acc.mu.Unlock()
	return acc.balance, acc.version, nil
}

var _ Ledger = (*Memory)(nil)
