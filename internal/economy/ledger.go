// Package economy defines the ledger collaborator used for the
// first-capture bonus. Deposit failures are logged by callers and never
// roll back a capture outcome.
package economy

import (
	"fmt"
	"sync"
)

// Ledger is the economy collaborator contract.
type Ledger interface {
	// CanAfford reports whether the account holds at least amount.
	CanAfford(accountID string, amount int64) bool
	// Deposit credits the account. The memo describes the transaction.
	Deposit(accountID string, amount int64, memo string) error
}

// ActorAccount returns the ledger account id for a player.
func ActorAccount(actorID string) string { return "actor:" + actorID }

// TownAccount returns the ledger account id for a town treasury.
func TownAccount(townName string) string { return "town:" + townName }

// Memory is an in-memory ledger. Balances are clamped at zero.
// Thread-safe: protected by mu.
type Memory struct {
	mu       sync.RWMutex
	balances map[string]int64
}

// NewMemory creates an empty in-memory ledger.
func NewMemory() *Memory {
	return &Memory{balances: make(map[string]int64, 32)}
}

// CanAfford reports whether the account holds at least amount.
func (m *Memory) CanAfford(accountID string, amount int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balances[accountID] >= amount
}

// Deposit credits the account.
func (m *Memory) Deposit(accountID string, amount int64, memo string) error {
	if amount < 0 {
		return fmt.Errorf("depositing to %s: negative amount %d", accountID, amount)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[accountID] += amount
	return nil
}

// Balance returns the account balance (for tests and admin info).
func (m *Memory) Balance(accountID string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balances[accountID]
}
