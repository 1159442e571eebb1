// Package modulation maps named control inputs onto cue playback parameters.
package modulation

import (
	"fmt"

	"github.com/milk9111/cuedispatch/cue"
)

// Params are the modulatable playback parameters of one play.
type Params struct {
	Volume          float64
	Pitch           float64
	LowPassCutoff   float64
	HighPassCutoff  float64
	DipoleWeight    float64
	DipolePower     float64
	OcclusionRadius float64
}

// Skipped names a binding that was not applied because its curve failed.
type Skipped struct {
	Binding cue.Binding
	Err     error
}

func (s Skipped) Error() string {
	return fmt.Sprintf("modulation: %s -> %s: %v", s.Binding.Control, s.Binding.Target, s.Err)
}

func (s Skipped) Unwrap() error {
	return s.Err
}

// Evaluate samples the binding's curve at value. A nil curve is the identity.
func Evaluate(b cue.Binding, value float64) (float64, error) {
	if b.Curve == nil {
		return value, nil
	}
	return b.Curve.Evaluate(value)
}

// Static returns the cue's parameters before any modulation.
func Static(def *cue.Definition) Params {
	return Params{
		Volume:          def.Volume,
		Pitch:           def.Pitch,
		LowPassCutoff:   def.LowPass.Cutoff,
		HighPassCutoff:  def.HighPass.Cutoff,
		DipoleWeight:    def.Spatial.Directivity.DipoleWeight,
		DipolePower:     def.Spatial.Directivity.DipolePower,
		OcclusionRadius: def.Spatial.Occlusion.Radius,
	}
}

// Apply folds bindings over base in declaration order. Volume and pitch
// multiply; every other target takes the latest mapped value. Bindings whose
// control is absent from controls are left out.
func Apply(base Params, bindings []cue.Binding, controls map[string]float64) (Params, []Skipped) {
	out := base
	var skipped []Skipped
	for _, b := range bindings {
		value, ok := controls[b.Control]
		if !ok {
			continue
		}
		mapped, err := Evaluate(b, value)
		if err != nil {
			skipped = append(skipped, Skipped{Binding: b, Err: err})
			continue
		}
		out.set(b.Target, mapped)
	}
	return out, skipped
}

// ApplyAll is Apply over the cue's own static parameters and bindings.
func ApplyAll(def *cue.Definition, controls map[string]float64) (Params, []Skipped) {
	return Apply(Static(def), def.Bindings, controls)
}

func (p *Params) set(t cue.TargetParameter, v float64) {
	switch t {
	case cue.TargetVolume:
		p.Volume *= v
	case cue.TargetPitch:
		p.Pitch *= v
	case cue.TargetLowPassCutoff:
		p.LowPassCutoff = v
	case cue.TargetHighPassCutoff:
		p.HighPassCutoff = v
	case cue.TargetDipoleWeight:
		p.DipoleWeight = v
	case cue.TargetDipolePower:
		p.DipolePower = v
	case cue.TargetOcclusionRadius:
		p.OcclusionRadius = v
	}
}
