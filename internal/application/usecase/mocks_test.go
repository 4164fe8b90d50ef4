package usecase

import (
	"context"
	"fmt"
	"sync"
)

// callLog records the order in which mocked collaborators are invoked
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, fmt.Sprintf(format, args...))
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

// mockLedger is a mock implementation of port.Ledger
type mockLedger struct {
	log             *callLog
	validatePinFunc func(ctx context.Context, accountID, pin string) bool
	getBalanceFunc  func(ctx context.Context, accountID string) (int64, error)
	creditFunc      func(ctx context.Context, accountID string, amount int64) error
	debitFunc       func(ctx context.Context, accountID string, amount int64) error
}

func (m *mockLedger) ValidatePin(ctx context.Context, accountID, pin string) bool {
	m.log.add("ledger.ValidatePin(%s)", accountID)
	if m.validatePinFunc != nil {
		return m.validatePinFunc(ctx, accountID, pin)
	}
	return false
}

func (m *mockLedger) GetBalance(ctx context.Context, accountID string) (int64, error) {
	m.log.add("ledger.GetBalance(%s)", accountID)
	if m.getBalanceFunc != nil {
		return m.getBalanceFunc(ctx, accountID)
	}
	return 0, nil
}

func (m *mockLedger) Credit(ctx context.Context, accountID string, amount int64) error {
	m.log.add("ledger.Credit(%s,%d)", accountID, amount)
	if m.creditFunc != nil {
		return m.creditFunc(ctx, accountID, amount)
	}
	return nil
}

func (m *mockLedger) Debit(ctx context.Context, accountID string, amount int64) error {
	m.log.add("ledger.Debit(%s,%d)", accountID, amount)
	if m.debitFunc != nil {
		return m.debitFunc(ctx, accountID, amount)
	}
	return nil
}

// mockReservoir is a mock implementation of port.CashReservoir
type mockReservoir struct {
	log        *callLog
	creditFunc func(ctx context.Context, amount int64) error
	debitFunc  func(ctx context.Context, amount int64) error
	available  int64
}

func (m *mockReservoir) Credit(ctx context.Context, amount int64) error {
	m.log.add("reservoir.Credit(%d)", amount)
	if m.creditFunc != nil {
		return m.creditFunc(ctx, amount)
	}
	return nil
}

func (m *mockReservoir) Debit(ctx context.Context, amount int64) error {
	m.log.add("reservoir.Debit(%d)", amount)
	if m.debitFunc != nil {
		return m.debitFunc(ctx, amount)
	}
	return nil
}

func (m *mockReservoir) Available(_ context.Context) int64 {
	return m.available
}
