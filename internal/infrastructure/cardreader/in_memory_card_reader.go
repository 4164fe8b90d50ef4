package cardreader

import (
	"atmnet.com/internal/domain/entity"
	"atmnet.com/internal/domain/port"
)

// InMemoryCardReader stands in for a terminal's physical card slot.
// It holds at most one card and is owned by a single terminal.
type InMemoryCardReader struct {
	card    entity.Card
	present bool
}

var _ port.CardReader = (*InMemoryCardReader)(nil)

// NewInMemoryCardReader creates an empty card reader
func NewInMemoryCardReader() *InMemoryCardReader {
	return &InMemoryCardReader{}
}

// Insert reads a card for accountID, replacing whatever was in the slot
func (r *InMemoryCardReader) Insert(accountID string) entity.Card {
	r.card = entity.Card{AccountID: accountID}
	r.present = true
	return r.card
}

// Eject empties the slot and returns the card that was in it, if any
func (r *InMemoryCardReader) Eject() (entity.Card, bool) {
	card, present := r.card, r.present
	r.card = entity.Card{}
	r.present = false
	return card, present
}
