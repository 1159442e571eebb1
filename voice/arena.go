package voice

import (
	"errors"
	"fmt"

	"github.com/milk9111/cuedispatch/cue"
)

var (
	ErrStaleHandle = errors.New("voice: stale handle")
	ErrClosed      = errors.New("voice: unit closed")
)

type slot struct {
	unit Unit
	mode cue.SpatialMode
	gen  uint32
}

// Arena stores units by handle. Slots are never freed, only reset.
type Arena struct {
	factory Factory
	slots   []slot
}

func NewArena(factory Factory) *Arena {
	return &Arena{factory: factory}
}

// Alloc creates a unit in a new slot.
func (a *Arena) Alloc(mode cue.SpatialMode) (Handle, error) {
	idx := len(a.slots)
	u, err := a.factory(mode, idx)
	if err != nil {
		return 0, fmt.Errorf("voice: create %s unit %d: %w", mode, idx, err)
	}
	a.slots = append(a.slots, slot{unit: u, mode: mode})
	return makeHandle(idx, 0), nil
}

func (a *Arena) lookup(h Handle) (*slot, bool) {
	i := h.Slot()
	if !h.Valid() || i >= len(a.slots) {
		return nil, false
	}
	s := &a.slots[i]
	if s.unit == nil || s.gen != h.Generation() {
		return nil, false
	}
	return s, true
}

func (a *Arena) Alive(h Handle) bool {
	_, ok := a.lookup(h)
	return ok
}

func (a *Arena) Unit(h Handle) (Unit, bool) {
	s, ok := a.lookup(h)
	if !ok {
		return nil, false
	}
	return s.unit, true
}

func (a *Arena) Mode(h Handle) (cue.SpatialMode, bool) {
	s, ok := a.lookup(h)
	if !ok {
		return 0, false
	}
	return s.mode, true
}

// Reset destroys the unit behind h and builds a fresh one in its slot.
// The returned handle carries the next generation. If the new unit cannot
// be built the slot is retired and the zero handle is returned; a close
// error alone still yields a usable handle.
func (a *Arena) Reset(h Handle) (Handle, error) {
	s, ok := a.lookup(h)
	if !ok {
		return 0, ErrStaleHandle
	}
	s.unit.Stop()
	closeErr := s.unit.Close()
	s.unit = nil
	s.gen++

	u, err := a.factory(s.mode, h.Slot())
	if err != nil {
		return 0, fmt.Errorf("voice: rebuild slot %d: %w", h.Slot(), err)
	}
	s.unit = u
	next := makeHandle(h.Slot(), s.gen)
	if closeErr != nil {
		return next, fmt.Errorf("voice: close %s: %w", h, closeErr)
	}
	return next, nil
}

func (a *Arena) Len() int {
	return len(a.slots)
}

// Close closes every unit. The arena is unusable afterwards.
func (a *Arena) Close() error {
	var errs []error
	for i := range a.slots {
		if u := a.slots[i].unit; u != nil {
			u.Stop()
			if err := u.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		a.slots[i].gen++
	}
	return errors.Join(errs...)
}
