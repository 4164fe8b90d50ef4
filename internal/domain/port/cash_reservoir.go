package port

import "context"

// CashReservoir is the port for the physical cash bin behind one or more terminals
type CashReservoir interface {
	Credit(ctx context.Context, amount int64) error
	Debit(ctx context.Context, amount int64) error
	Available(ctx context.Context) int64
}
