package entity

import "github.com/google/uuid"

// TerminalState is the externally visible state of a terminal
type TerminalState string

const (
	StateIdle          TerminalState = "idle"
	StateCardInserted  TerminalState = "card_inserted"
	StateAuthenticated TerminalState = "authenticated"
)

// Session is the transient per-terminal state between card insert and eject.
type Session struct {
	ID            string
	AccountID     string
	Authenticated bool
}

// NewSession starts an unauthenticated session for the given card
func NewSession(card Card) *Session {
	return &Session{
		ID:        uuid.NewString(),
		AccountID: card.AccountID,
	}
}

// State derives the terminal state from a possibly nil session
func (s *Session) State() TerminalState {
	switch {
	case s == nil:
		return StateIdle
	case s.Authenticated:
		return StateAuthenticated
	default:
		return StateCardInserted
	}
}
