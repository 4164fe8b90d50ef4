package repository

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"math"
	"sync"

	"atmnet.com/internal/domain/entity"
	"atmnet.com/internal/domain/port"
	"atmnet.com/internal/infrastructure/logger"
)

// InMemoryLedger implements the Ledger port.
// One mutex covers every account; each method is one critical section.
type InMemoryLedger struct {
	mu       sync.Mutex
	accounts map[string]*entity.Account
	logger   logger.Logger
}

var _ port.Ledger = (*InMemoryLedger)(nil)

// NewInMemoryLedger creates a ledger seeded with copies of the given accounts
func NewInMemoryLedger(accounts []entity.Account, logger logger.Logger) (*InMemoryLedger, error) {
	l := &InMemoryLedger{
		accounts: make(map[string]*entity.Account, len(accounts)),
		logger:   logger,
	}

	for _, a := range accounts {
		if a.ID == "" {
			return nil, errors.New("seed account has an empty id")
		}
		if a.Balance < 0 {
			return nil, fmt.Errorf("seed account %s: negative balance %d", a.ID, a.Balance)
		}
		if _, dup := l.accounts[a.ID]; dup {
			return nil, fmt.Errorf("seed account %s: duplicate id", a.ID)
		}
		acct := a
		l.accounts[a.ID] = &acct
	}

	return l, nil
}

// ValidatePin reports whether the account exists and its PIN matches
func (l *InMemoryLedger) ValidatePin(ctx context.Context, accountID, pin string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	acct, ok := l.accounts[accountID]
	if !ok {
		l.logger.LogWarning(ctx, "PIN check for unknown account", "account_id", accountID)
		return false
	}

	return subtle.ConstantTimeCompare([]byte(acct.PIN), []byte(pin)) == 1
}

// GetBalance returns the current balance of an account
func (l *InMemoryLedger) GetBalance(ctx context.Context, accountID string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	acct, ok := l.accounts[accountID]
	if !ok {
		return 0, fmt.Errorf("get balance of %s: %w", accountID, entity.ErrAccountNotFound)
	}

	return acct.Balance, nil
}

// Credit adds amount to an account. A credit that would overflow the balance is refused.
func (l *InMemoryLedger) Credit(ctx context.Context, accountID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("credit %d: %w", amount, entity.ErrInvalidAmount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	acct, ok := l.accounts[accountID]
	if !ok {
		return fmt.Errorf("credit %s: %w", accountID, entity.ErrAccountNotFound)
	}

	if acct.Balance > math.MaxInt64-amount {
		return fmt.Errorf("credit %d to %s: balance would overflow: %w", amount, accountID, entity.ErrInvalidAmount)
	}

	acct.Balance += amount

	l.logger.LogInfo(ctx, "Account credited",
		"account_id", accountID,
		"amount", amount,
		"new_balance", acct.Balance)

	return nil
}

// Debit subtracts amount from an account if the balance covers it.
// The balance check and the decrement happen under the same lock.
func (l *InMemoryLedger) Debit(ctx context.Context, accountID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("debit %d: %w", amount, entity.ErrInvalidAmount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	acct, ok := l.accounts[accountID]
	if !ok {
		return fmt.Errorf("debit %s: %w", accountID, entity.ErrAccountNotFound)
	}

	if acct.Balance < amount {
		l.logger.LogInfo(ctx, "Debit refused",
			"account_id", accountID,
			"amount", amount,
			"balance", acct.Balance)
		return fmt.Errorf("debit %d from %s: %w", amount, accountID, entity.ErrInsufficientFunds)
	}

	acct.Balance -= amount

	l.logger.LogInfo(ctx, "Account debited",
		"account_id", accountID,
		"amount", amount,
		"new_balance", acct.Balance)

	return nil
}
