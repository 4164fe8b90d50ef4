package port

import "atmnet.com/internal/domain/entity"

// CardReader is the port for a terminal's card slot
type CardReader interface {
	Insert(accountID string) entity.Card
	Eject() (entity.Card, bool)
}
