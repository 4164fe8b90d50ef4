package usecase

import (
	"context"
	"fmt"

	"atmnet.com/internal/domain/entity"
	"atmnet.com/internal/domain/port"
	"atmnet.com/internal/infrastructure/logger"
)

// Terminal is one ATM's session and authentication state machine.
//
// A Terminal is not safe for concurrent use: exactly one call sequence owns it
// at a time. The ledger and reservoir behind its coordinator may be shared.
type Terminal struct {
	id          string
	reader      port.CardReader
	ledger      port.Ledger
	coordinator *TransactionCoordinator
	session     *entity.Session
	logger      logger.Logger
}

// NewTerminal creates an idle terminal
func NewTerminal(
	id string,
	reader port.CardReader,
	ledger port.Ledger,
	coordinator *TransactionCoordinator,
	logger logger.Logger,
) *Terminal {
	return &Terminal{
		id:          id,
		reader:      reader,
		ledger:      ledger,
		coordinator: coordinator,
		logger:      logger.With("terminal_id", id),
	}
}

// ID returns the terminal identifier
func (t *Terminal) ID() string {
	return t.id
}

// State returns the current session state
func (t *Terminal) State() entity.TerminalState {
	return t.session.State()
}

// AccountID returns the account on the inserted card, or "" when idle
func (t *Terminal) AccountID() string {
	if t.session == nil {
		return ""
	}
	return t.session.AccountID
}

// InsertCard reads a card and starts a fresh unauthenticated session,
// discarding any session that was in progress.
func (t *Terminal) InsertCard(ctx context.Context, accountID string) {
	if t.session != nil {
		t.logger.LogInfo(ctx, "Discarding previous session", "session_id", t.session.ID)
	}

	card := t.reader.Insert(accountID)
	t.session = entity.NewSession(card)

	t.logger.LogInfo(ctx, "Card inserted",
		"session_id", t.session.ID,
		"account_id", card.AccountID)
}

// EjectCard returns the card and ends the session. Valid in any state.
func (t *Terminal) EjectCard(ctx context.Context) {
	t.reader.Eject()

	if t.session != nil {
		t.logger.LogInfo(ctx, "Card ejected", "session_id", t.session.ID)
	}
	t.session = nil
}

// EnterPin authenticates the session. Without a card it returns false and
// changes nothing. A wrong PIN leaves the session unauthenticated; retries are unlimited.
func (t *Terminal) EnterPin(ctx context.Context, pin string) bool {
	if t.session == nil {
		t.logger.LogWarning(ctx, "PIN entered with no card inserted")
		return false
	}

	if !t.ledger.ValidatePin(ctx, t.session.AccountID, pin) {
		t.logger.LogWarning(ctx, "PIN rejected", "session_id", t.session.ID)
		return false
	}

	t.session.Authenticated = true
	t.logger.LogInfo(ctx, "Session authenticated", "session_id", t.session.ID)

	return true
}

// CheckBalance returns the balance of the authenticated account
func (t *Terminal) CheckBalance(ctx context.Context) (int64, error) {
	accountID, err := t.authenticatedAccount(ctx, "check balance")
	if err != nil {
		return 0, err
	}
	return t.coordinator.CheckBalance(ctx, accountID)
}

// Deposit puts amount minor units of cash into the authenticated account.
// Refusals are reported as false with a nil error.
func (t *Terminal) Deposit(ctx context.Context, amount int64) (bool, error) {
	accountID, err := t.authenticatedAccount(ctx, "deposit")
	if err != nil {
		return false, err
	}
	return t.coordinator.Deposit(ctx, accountID, amount)
}

// Withdraw dispenses amount minor units from the authenticated account.
// Refusals are reported as false with a nil error.
func (t *Terminal) Withdraw(ctx context.Context, amount int64) (bool, error) {
	accountID, err := t.authenticatedAccount(ctx, "withdraw")
	if err != nil {
		return false, err
	}
	return t.coordinator.Withdraw(ctx, accountID, amount)
}

// authenticatedAccount is the guard in front of every authenticated operation.
func (t *Terminal) authenticatedAccount(ctx context.Context, op string) (string, error) {
	if t.session == nil || !t.session.Authenticated {
		t.logger.LogWarning(ctx, "Operation refused on unauthenticated terminal",
			"operation", op,
			"state", string(t.State()))
		return "", fmt.Errorf("%s: %w", op, entity.ErrNotAuthenticated)
	}
	return t.session.AccountID, nil
}
