package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"atmnet.com/internal/domain/entity"
	"atmnet.com/internal/domain/port"
)

// Fleet is the set of terminals reachable from a shared surface such as the HTTP API.
// Use hands out one terminal at a time per id, so each terminal keeps a single owner
// even when requests for it arrive concurrently.
type Fleet struct {
	mu     sync.RWMutex
	booths map[string]*booth
}

type booth struct {
	mu        sync.Mutex
	terminal  *Terminal
	reservoir port.CashReservoir
}

// NewFleet creates an empty fleet
func NewFleet() *Fleet {
	return &Fleet{
		booths: make(map[string]*booth),
	}
}

// Add registers a terminal together with the reservoir it dispenses from
func (f *Fleet) Add(terminal *Terminal, reservoir port.CashReservoir) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.booths[terminal.ID()]; exists {
		return fmt.Errorf("terminal %s already registered", terminal.ID())
	}

	f.booths[terminal.ID()] = &booth{
		terminal:  terminal,
		reservoir: reservoir,
	}
	return nil
}

// Use runs fn with exclusive access to the terminal. Callers for the same
// terminal queue up; different terminals proceed in parallel.
func (f *Fleet) Use(ctx context.Context, terminalID string, fn func(ctx context.Context, t *Terminal) error) error {
	b, err := f.booth(terminalID)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	return fn(ctx, b.terminal)
}

// Reservoir returns the cash reservoir behind a terminal
func (f *Fleet) Reservoir(terminalID string) (port.CashReservoir, error) {
	b, err := f.booth(terminalID)
	if err != nil {
		return nil, err
	}
	return b.reservoir, nil
}

// IDs lists the registered terminal ids in sorted order
func (f *Fleet) IDs() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	ids := make([]string, 0, len(f.booths))
	for id := range f.booths {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (f *Fleet) booth(terminalID string) (*booth, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	b, ok := f.booths[terminalID]
	if !ok {
		return nil, fmt.Errorf("terminal %s: %w", terminalID, entity.ErrTerminalNotFound)
	}
	return b, nil
}
