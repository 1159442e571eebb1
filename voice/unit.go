// Package voice owns the playback units the dispatcher schedules onto.
package voice

import (
	"github.com/jakecoffman/cp"
	"github.com/milk9111/cuedispatch/cue"
)

// Settings is everything a session writes to a unit before playing it.
type Settings struct {
	Mode     cue.SpatialMode
	Position cp.Vector
	Bus      string

	Volume   float64
	Pitch    float64
	LowPass  cue.Filter
	HighPass cue.Filter
	Spatial  cue.Spatial

	// Gain and Pan come from the listener at configure time; UI voices get 1 and 0.
	Gain float64
	Pan  float64

	Loop bool
}

// Unit is an engine playback unit. Units are driven from a single goroutine.
type Unit interface {
	Apply(Settings)
	Play(cue.Clip) error
	Stop()
	IsPlaying() bool
	Looping() bool
	Close() error
}

// Factory builds the unit for one arena slot.
type Factory func(mode cue.SpatialMode, slot int) (Unit, error)
