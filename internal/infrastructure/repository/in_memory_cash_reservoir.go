package repository

import (
	"context"
	"fmt"
	"math"
	"sync"

	"atmnet.com/internal/domain/entity"
	"atmnet.com/internal/domain/port"
	"atmnet.com/internal/infrastructure/logger"
)

// InMemoryCashReservoir implements the CashReservoir port over a single counter
type InMemoryCashReservoir struct {
	mu     sync.Mutex
	cash   int64
	logger logger.Logger
}

var _ port.CashReservoir = (*InMemoryCashReservoir)(nil)

// NewInMemoryCashReservoir creates a reservoir holding initial minor units of cash
func NewInMemoryCashReservoir(initial int64, logger logger.Logger) (*InMemoryCashReservoir, error) {
	if initial < 0 {
		return nil, fmt.Errorf("initial cash %d is negative", initial)
	}

	return &InMemoryCashReservoir{
		cash:   initial,
		logger: logger,
	}, nil
}

// Credit adds accepted cash to the reservoir
func (r *InMemoryCashReservoir) Credit(ctx context.Context, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("accept cash %d: %w", amount, entity.ErrInvalidAmount)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cash > math.MaxInt64-amount {
		return fmt.Errorf("accept cash %d: reservoir would overflow: %w", amount, entity.ErrInvalidAmount)
	}

	r.cash += amount

	r.logger.LogInfo(ctx, "Cash accepted",
		"amount", amount,
		"available", r.cash)

	return nil
}

// Debit removes dispensed cash if enough is on hand
func (r *InMemoryCashReservoir) Debit(ctx context.Context, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("dispense cash %d: %w", amount, entity.ErrInvalidAmount)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cash < amount {
		r.logger.LogWarning(ctx, "Not enough cash to dispense",
			"amount", amount,
			"available", r.cash)
		return fmt.Errorf("dispense cash %d: %w", amount, entity.ErrInsufficientCash)
	}

	r.cash -= amount

	r.logger.LogInfo(ctx, "Cash dispensed",
		"amount", amount,
		"available", r.cash)

	return nil
}

// Available returns the cash currently on hand
func (r *InMemoryCashReservoir) Available(_ context.Context) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.cash
}
