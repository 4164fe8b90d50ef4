package port

import "context"

// Ledger is the port for the bank's account balances.
// Every method is a single atomic step against the ledger.
type Ledger interface {
	ValidatePin(ctx context.Context, accountID, pin string) bool
	GetBalance(ctx context.Context, accountID string) (int64, error)
	Credit(ctx context.Context, accountID string, amount int64) error
	Debit(ctx context.Context, accountID string, amount int64) error
}
