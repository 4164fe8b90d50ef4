package usecase

import (
	"context"
	"errors"
	"fmt"

	"atmnet.com/internal/domain/entity"
	"atmnet.com/internal/domain/port"
	"atmnet.com/internal/infrastructure/logger"
)

// TransactionCoordinator sequences ledger and cash reservoir calls for one terminal.
//
// Every ledger and reservoir call is its own critical section. The coordinator
// never holds both locks and never serializes a whole deposit or withdrawal,
// so concurrent operations on one account interleave call by call.
type TransactionCoordinator struct {
	ledger    port.Ledger
	reservoir port.CashReservoir
	logger    logger.Logger
}

// NewTransactionCoordinator creates a new TransactionCoordinator
func NewTransactionCoordinator(
	ledger port.Ledger,
	reservoir port.CashReservoir,
	logger logger.Logger,
) *TransactionCoordinator {
	return &TransactionCoordinator{
		ledger:    ledger,
		reservoir: reservoir,
		logger:    logger,
	}
}

// CheckBalance returns the ledger balance of an account
func (c *TransactionCoordinator) CheckBalance(ctx context.Context, accountID string) (int64, error) {
	return c.ledger.GetBalance(ctx, accountID)
}

// Deposit accepts cash into the reservoir first, then credits the ledger.
//
// If the ledger credit fails after the cash was accepted, the cash stays in
// the reservoir as an unreconciled surplus; there is no compensation on this path.
func (c *TransactionCoordinator) Deposit(ctx context.Context, accountID string, amount int64) (bool, error) {
	if err := c.reservoir.Credit(ctx, amount); err != nil {
		return false, fmt.Errorf("deposit: %w", err)
	}

	if err := c.ledger.Credit(ctx, accountID, amount); err != nil {
		c.logger.LogWarning(ctx, "Cash accepted but ledger credit failed, reservoir holds a surplus",
			"account_id", accountID,
			"amount", amount,
			"error", err.Error())
		return outcome(fmt.Errorf("deposit: %w", err))
	}

	c.logger.LogInfo(ctx, "Deposit completed",
		"account_id", accountID,
		"amount", amount)

	return true, nil
}

// Withdraw debits the ledger first, then dispenses cash.
// If the reservoir cannot dispense, the ledger debit is reversed with a compensating credit.
func (c *TransactionCoordinator) Withdraw(ctx context.Context, accountID string, amount int64) (bool, error) {
	if err := c.ledger.Debit(ctx, accountID, amount); err != nil {
		return outcome(fmt.Errorf("withdraw: %w", err))
	}

	if err := c.reservoir.Debit(ctx, amount); err != nil {
		c.compensate(ctx, accountID, amount, err)
		return outcome(fmt.Errorf("withdraw: %w", err))
	}

	c.logger.LogInfo(ctx, "Withdrawal completed",
		"account_id", accountID,
		"amount", amount)

	return true, nil
}

// compensate restores a ledger debit whose cash could not be dispensed.
// It panics if the credit fails, since the account would stay short by amount.
func (c *TransactionCoordinator) compensate(ctx context.Context, accountID string, amount int64, cause error) {
	c.logger.LogWarning(ctx, "Cash dispense failed, reversing ledger debit",
		"account_id", accountID,
		"amount", amount,
		"cause", cause.Error())

	if err := c.ledger.Credit(ctx, accountID, amount); err != nil {
		err = fmt.Errorf("%w: account %s amount %d: %w", entity.ErrCompensationFailed, accountID, amount, err)
		c.logger.LogError(ctx, "Compensation failed", err)
		panic(err)
	}
}

// outcome turns business refusals into a plain false and passes everything else through as an error.
func outcome(err error) (bool, error) {
	if errors.Is(err, entity.ErrInsufficientFunds) || errors.Is(err, entity.ErrInsufficientCash) {
		return false, nil
	}
	return false, err
}
