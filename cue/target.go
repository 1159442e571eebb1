package cue

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// TargetParameter is the playback parameter a binding modulates.
type TargetParameter int

const (
	TargetVolume TargetParameter = iota
	TargetPitch
	TargetLowPassCutoff
	TargetHighPassCutoff
	TargetDipoleWeight
	TargetDipolePower
	TargetOcclusionRadius
)

var targetNames = map[TargetParameter]string{
	TargetVolume:          "volume",
	TargetPitch:           "pitch",
	TargetLowPassCutoff:   "low_pass_cutoff",
	TargetHighPassCutoff:  "high_pass_cutoff",
	TargetDipoleWeight:    "dipole_weight",
	TargetDipolePower:     "dipole_power",
	TargetOcclusionRadius: "occlusion_radius",
}

// Multiplicative reports whether mapped values scale the base value
// instead of replacing it.
func (t TargetParameter) Multiplicative() bool {
	return t == TargetVolume || t == TargetPitch
}

func (t TargetParameter) String() string {
	if name, ok := targetNames[t]; ok {
		return name
	}
	return fmt.Sprintf("target(%d)", int(t))
}

func ParseTargetParameter(s string) (TargetParameter, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	for t, name := range targetNames {
		if key == name || key == strings.ReplaceAll(name, "_", "") {
			return t, nil
		}
	}
	return TargetVolume, fmt.Errorf("cue: unknown target parameter %q", s)
}

func (t TargetParameter) MarshalYAML() (any, error) {
	return t.String(), nil
}

func (t *TargetParameter) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("cue: target must be a string")
	}
	parsed, err := ParseTargetParameter(value.Value)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
