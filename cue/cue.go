// Package cue describes sound cues: the immutable definitions the dispatcher
// resolves play requests against.
package cue

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPriority = 128
	MinPriority     = 0
	MaxPriority     = 256

	MinCutoff = 10.0
	MaxCutoff = 22000.0

	MinPitch = 0.1
	MaxPitch = 3.0
)

// SpatialMode selects which voice pool services a cue.
type SpatialMode int

const (
	WorldSpace SpatialMode = iota
	UISpace
)

// Modes lists every spatial mode in pool order.
var Modes = []SpatialMode{WorldSpace, UISpace}

func (m SpatialMode) String() string {
	switch m {
	case WorldSpace:
		return "world"
	case UISpace:
		return "ui"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

func ParseSpatialMode(s string) (SpatialMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "world", "worldspace", "3d":
		return WorldSpace, nil
	case "ui", "uispace", "2d":
		return UISpace, nil
	default:
		return WorldSpace, fmt.Errorf("cue: unknown spatial mode %q", s)
	}
}

func (m SpatialMode) MarshalYAML() (any, error) {
	return m.String(), nil
}

func (m *SpatialMode) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("cue: spatial mode must be a string")
	}
	parsed, err := ParseSpatialMode(value.Value)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Category is shared by many cues. Bus is the output routing handle.
type Category struct {
	Name     string
	Priority int
	Bus      string
}

// Clip is a waveform handle. Length is the natural playback length at pitch 1.
type Clip struct {
	File   string
	Length time.Duration
}

type Filter struct {
	Enabled bool
	Cutoff  float64
}

type Directivity struct {
	Enabled      bool
	DipoleWeight float64
	DipolePower  float64
}

type Occlusion struct {
	Enabled bool
	Radius  float64
	Samples int
}

// Spatial holds engine-specific spatial processing parameters.
type Spatial struct {
	AirAbsorption bool
	Directivity   Directivity
	Occlusion     Occlusion
	Transmission  bool
}

// Binding maps a named control input through a curve onto a target parameter.
type Binding struct {
	Control string
	Target  TargetParameter
	Curve   Curve
}

// Definition is a compiled cue. It must not be mutated after the registry is built.
type Definition struct {
	ID     ID
	Name   string
	Source string

	Mode     SpatialMode
	Category *Category

	Clips          []Clip
	Volume         float64
	Pitch          float64
	PitchVariation float64

	Loop         bool
	LoopDuration time.Duration

	LowPass  Filter
	HighPass Filter
	Spatial  Spatial

	Bindings []Binding
}

// Priority returns the category priority, or DefaultPriority when the cue has no category.
func (d *Definition) Priority() int {
	if d == nil || d.Category == nil {
		return DefaultPriority
	}
	return d.Category.Priority
}

// Bus returns the output routing handle, empty when uncategorised.
func (d *Definition) Bus() string {
	if d == nil || d.Category == nil {
		return ""
	}
	return d.Category.Bus
}

// SelfTerminating reports a loop that stops on its own after LoopDuration.
func (d *Definition) SelfTerminating() bool {
	return d != nil && d.Loop && d.LoopDuration > 0
}

// Playable reports whether the cue has at least one clip.
func (d *Definition) Playable() bool {
	return d != nil && len(d.Clips) > 0
}

func (d *Definition) String() string {
	if d == nil {
		return "<nil>"
	}
	if d.Name != "" {
		return fmt.Sprintf("%s(%s)", d.Name, d.ID)
	}
	return d.ID.String()
}

// Close releases curves that hold interpreter state.
func (d *Definition) Close() {
	if d == nil {
		return
	}
	for _, b := range d.Bindings {
		if c, ok := b.Curve.(interface{ Close() }); ok {
			c.Close()
		}
	}
}
