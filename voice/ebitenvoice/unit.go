// Package ebitenvoice plays voices through an ebiten audio context.
package ebitenvoice

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/milk9111/cuedispatch/cue"
	"github.com/milk9111/cuedispatch/voice"
)

// ClipSource supplies decoded PCM. *assets.Library implements it.
type ClipSource interface {
	Load(file string) ([]byte, error)
}

// BusGain maps a bus name to its output gain.
type BusGain func(bus string) float64

// Backend builds units sharing one audio context.
type Backend struct {
	ctx     *audio.Context
	clips   ClipSource
	busGain BusGain
	log     *slog.Logger
}

// NewBackend builds a backend. A nil gain leaves every bus at unity.
func NewBackend(ctx *audio.Context, clips ClipSource, gain BusGain, log *slog.Logger) *Backend {
	if log == nil {
		log = slog.Default()
	}
	if gain == nil {
		gain = func(string) float64 { return 1 }
	}
	return &Backend{ctx: ctx, clips: clips, busGain: gain, log: log}
}

func (b *Backend) Factory() voice.Factory {
	return func(mode cue.SpatialMode, slot int) (voice.Unit, error) {
		return &Unit{backend: b, mode: mode, slot: slot}, nil
	}
}

// Unit owns at most one player at a time. Filters and spatial processing
// parameters are kept on the unit but not rendered.
type Unit struct {
	backend  *Backend
	mode     cue.SpatialMode
	slot     int
	settings voice.Settings
	player   *audio.Player
}

func (u *Unit) Apply(s voice.Settings) {
	u.settings = s
	if u.player != nil {
		u.player.SetVolume(u.volume())
	}
}

func (u *Unit) volume() float64 {
	s := u.settings
	v := s.Volume * s.Gain * u.backend.busGain(s.Bus)
	return min(max(v, 0), 1)
}

// render loads the clip and bakes the unit's pitch and pan into its PCM.
func (u *Unit) render(clip cue.Clip) ([]byte, error) {
	pcm, err := u.backend.clips.Load(clip.File)
	if err != nil {
		return nil, fmt.Errorf("ebitenvoice: slot %d: %w", u.slot, err)
	}
	pcm = voice.Repitch(pcm, u.settings.Pitch)
	return voice.Pan(pcm, u.settings.Pan), nil
}

// stream wraps pcm for a player; loops never reach EOF.
func stream(pcm []byte, loop bool) io.ReadSeeker {
	if loop {
		return audio.NewInfiniteLoop(bytes.NewReader(pcm), int64(len(pcm)))
	}
	return bytes.NewReader(pcm)
}

func (u *Unit) Play(clip cue.Clip) error {
	u.release()

	pcm, err := u.render(clip)
	if err != nil {
		return err
	}
	p, err := u.backend.ctx.NewPlayer(stream(pcm, u.settings.Loop))
	if err != nil {
		return fmt.Errorf("ebitenvoice: slot %d: %w", u.slot, err)
	}
	p.SetVolume(u.volume())
	p.Play()
	u.player = p
	u.backend.log.Debug("ebitenvoice: play", "slot", u.slot, "mode", u.mode, "file", clip.File, "loop", u.settings.Loop)
	return nil
}

func (u *Unit) Stop() {
	if u.player != nil {
		u.player.Pause()
	}
}

func (u *Unit) IsPlaying() bool {
	return u.player != nil && u.player.IsPlaying()
}

func (u *Unit) Looping() bool {
	return u.settings.Loop
}

// Settings returns what was last applied, filters included.
func (u *Unit) Settings() voice.Settings {
	return u.settings
}

func (u *Unit) Close() error {
	return u.release()
}

func (u *Unit) release() error {
	if u.player == nil {
		return nil
	}
	p := u.player
	u.player = nil
	p.Pause()
	return p.Close()
}
