package routing

import (
	"errors"
	"fmt"

	"distance_router/pkg/ch"
)

var (
	// ErrNoSlots is returned when a pool is requested with fewer than one slot.
	ErrNoSlots = errors.New("concurrency must be at least 1")

	// ErrSlotOutOfRange is returned for a slot index outside [0, Len()).
	ErrSlotOutOfRange = errors.New("query slot out of range")
)

// Pool holds independent query handles over one shared index. Slot i may
// only be used by one goroutine at a time; the pool does not enforce this.
type Pool struct {
	slots []*ch.Query
}

// NewPool allocates n query handles bound to idx.
func NewPool(idx *ch.Index, n int) (*Pool, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrNoSlots, n)
	}
	p := &Pool{slots: make([]*ch.Query, n)}
	for i := range p.slots {
		p.slots[i] = ch.NewQuery(idx)
	}
	return p, nil
}

// Len returns the number of slots.
func (p *Pool) Len() int { return len(p.slots) }

// Slot returns the query handle with index i.
func (p *Pool) Slot(i int) (*ch.Query, error) {
	if i < 0 || i >= len(p.slots) {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrSlotOutOfRange, i, len(p.slots))
	}
	return p.slots[i], nil
}
