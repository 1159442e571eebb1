package voice

import (
	"sync"

	"github.com/milk9111/cuedispatch/cue"
)

// Headless is a unit without an audio device. It plays until stopped.
// State is guarded so tests can inspect it from another goroutine.
type Headless struct {
	mu       sync.Mutex
	Slot     int
	settings Settings
	clip     cue.Clip
	playing  bool
	plays    int
	closed   bool
}

func (h *Headless) Apply(s Settings) {
	h.mu.Lock()
	h.settings = s
	h.mu.Unlock()
}

func (h *Headless) Play(c cue.Clip) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	h.clip = c
	h.playing = true
	h.plays++
	return nil
}

func (h *Headless) Stop() {
	h.mu.Lock()
	h.playing = false
	h.mu.Unlock()
}

func (h *Headless) IsPlaying() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.playing
}

func (h *Headless) Looping() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.settings.Loop
}

func (h *Headless) Close() error {
	h.mu.Lock()
	h.playing = false
	h.closed = true
	h.mu.Unlock()
	return nil
}

func (h *Headless) Settings() Settings {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.settings
}

func (h *Headless) Clip() cue.Clip {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clip
}

// Plays counts successful Play calls.
func (h *Headless) Plays() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.plays
}

func (h *Headless) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// HeadlessBank hands out headless units and remembers each one it built.
type HeadlessBank struct {
	mu    sync.Mutex
	units []*Headless
}

func (b *HeadlessBank) Factory() Factory {
	return func(mode cue.SpatialMode, slot int) (Unit, error) {
		u := &Headless{Slot: slot}
		b.mu.Lock()
		b.units = append(b.units, u)
		b.mu.Unlock()
		return u, nil
	}
}

// Playing returns the units currently playing, oldest first.
func (b *HeadlessBank) Playing() []*Headless {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*Headless
	for _, u := range b.units {
		if u.IsPlaying() {
			out = append(out, u)
		}
	}
	return out
}

func (b *HeadlessBank) Units() []*Headless {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Headless(nil), b.units...)
}
