package voice

import "fmt"

// Handle names one incarnation of a voice slot. Destroying a voice bumps the
// slot's generation, so handles to the old incarnation stop resolving.
type Handle uint64

const slotBits = 32

func makeHandle(slot int, gen uint32) Handle {
	return Handle(uint64(gen)<<slotBits | uint64(uint32(slot+1)))
}

// Slot is the arena index, or -1 for the zero handle.
func (h Handle) Slot() int {
	return int(uint32(h)) - 1
}

func (h Handle) Generation() uint32 {
	return uint32(uint64(h) >> slotBits)
}

func (h Handle) Valid() bool {
	return uint32(h) > 0
}

func (h Handle) String() string {
	if !h.Valid() {
		return "voice(none)"
	}
	return fmt.Sprintf("voice(%d:%d)", h.Slot(), h.Generation())
}
