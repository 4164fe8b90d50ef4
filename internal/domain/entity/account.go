package entity

// Account is a bank account as seeded into the ledger.
// Balance is held in minor currency units and is never negative.
type Account struct {
	ID      string
	PIN     string
	Balance int64
}

// Card is what a card reader hands back on insertion
type Card struct {
	AccountID string
}
