package voice

import (
	"github.com/jakecoffman/cp"
	"github.com/milk9111/cuedispatch/cue"
)

// Spatializer attenuates world-space voices by distance from the listener.
// Gain is 1 inside MinDistance and falls linearly to 0 at MaxDistance.
type Spatializer struct {
	Listener    cp.Vector
	MinDistance float64
	MaxDistance float64
}

func (s Spatializer) Gain(mode cue.SpatialMode, pos cp.Vector) float64 {
	if mode != cue.WorldSpace {
		return 1
	}
	d := pos.Distance(s.Listener)
	if d <= s.MinDistance {
		return 1
	}
	if d >= s.MaxDistance || s.MaxDistance <= s.MinDistance {
		return 0
	}
	return 1 - (d-s.MinDistance)/(s.MaxDistance-s.MinDistance)
}

// Pan is the left/right balance in [-1,1] of a world-space voice.
func (s Spatializer) Pan(mode cue.SpatialMode, pos cp.Vector) float64 {
	if mode != cue.WorldSpace || s.MaxDistance <= 0 {
		return 0
	}
	dx := (pos.X - s.Listener.X) / s.MaxDistance
	return min(max(dx, -1), 1)
}
