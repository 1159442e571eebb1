package cue

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var (
	ErrEmptyID         = errors.New("cue: empty id")
	ErrUnknownCategory = errors.New("cue: unknown category")
)

// CategorySpec is the YAML shape of a category.
type CategorySpec struct {
	Priority *int   `yaml:"priority,omitempty"`
	Bus      string `yaml:"bus,omitempty"`
}

type ClipSpec struct {
	File   string  `yaml:"file"`
	Length float64 `yaml:"length,omitempty"`
}

type FilterSpec struct {
	Enabled bool     `yaml:"enabled"`
	Cutoff  *float64 `yaml:"cutoff,omitempty"`
}

type DirectivitySpec struct {
	Enabled      bool    `yaml:"enabled"`
	DipoleWeight float64 `yaml:"dipole_weight,omitempty"`
	DipolePower  float64 `yaml:"dipole_power,omitempty"`
}

type OcclusionSpec struct {
	Enabled bool     `yaml:"enabled"`
	Radius  *float64 `yaml:"radius,omitempty"`
	Samples int      `yaml:"samples,omitempty"`
}

type SpatialSpec struct {
	AirAbsorption bool            `yaml:"air_absorption,omitempty"`
	Directivity   DirectivitySpec `yaml:"directivity,omitempty"`
	Occlusion     OcclusionSpec   `yaml:"occlusion,omitempty"`
	Transmission  bool            `yaml:"transmission,omitempty"`
}

// CurveSpec selects exactly one curve source. With nothing set the curve is
// the identity on [0,1].
type CurveSpec struct {
	Keys  [][]float64 `yaml:"keys,omitempty"`
	Tengo string      `yaml:"tengo,omitempty"`
	Lua   string      `yaml:"lua,omitempty"`
	File  string      `yaml:"file,omitempty"`
}

type BindingSpec struct {
	Control string          `yaml:"control"`
	Target  TargetParameter `yaml:"target"`
	Curve   CurveSpec       `yaml:"curve,omitempty"`
}

// Spec is the YAML shape of one cue, both in its own file and as a listing entry.
type Spec struct {
	ID       ID          `yaml:"id"`
	Name     string      `yaml:"name,omitempty"`
	Source   string      `yaml:"source,omitempty"`
	Type     SpatialMode `yaml:"type"`
	Category string      `yaml:"category,omitempty"`

	Clips          []ClipSpec `yaml:"clips"`
	Volume         *float64   `yaml:"volume,omitempty"`
	Pitch          *float64   `yaml:"pitch,omitempty"`
	PitchVariation float64    `yaml:"pitch_variation,omitempty"`

	Loop         bool    `yaml:"loop,omitempty"`
	LoopDuration float64 `yaml:"loop_duration,omitempty"`

	LowPass  FilterSpec  `yaml:"low_pass,omitempty"`
	HighPass FilterSpec  `yaml:"high_pass,omitempty"`
	Spatial  SpatialSpec `yaml:"spatial,omitempty"`

	Modulators []BindingSpec `yaml:"modulators,omitempty"`
}

// CompileEnv resolves references a spec makes outside itself.
type CompileEnv struct {
	Categories map[string]*Category
	// ScriptDir is the base for relative curve script files.
	ScriptDir string
}

// Compile validates a spec and builds its immutable definition. Out-of-range
// values are clamped; warnings lists what was adjusted.
func (s Spec) Compile(env CompileEnv) (def *Definition, warnings []string, err error) {
	if s.ID.IsZero() {
		return nil, nil, ErrEmptyID
	}

	def = &Definition{
		ID:             s.ID,
		Name:           strings.TrimSpace(s.Name),
		Source:         s.Source,
		Mode:           s.Type,
		Volume:         1,
		Pitch:          1,
		PitchVariation: s.PitchVariation,
		Loop:           s.Loop,
		LoopDuration:   seconds(s.LoopDuration),
		LowPass:        Filter{Enabled: s.LowPass.Enabled, Cutoff: MaxCutoff},
		HighPass:       Filter{Enabled: s.HighPass.Enabled, Cutoff: MinCutoff},
	}

	warn := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	if name := strings.TrimSpace(s.Category); name != "" {
		cat, ok := env.Categories[name]
		if !ok {
			warn("%v %q, using default priority", ErrUnknownCategory, name)
		} else {
			def.Category = cat
		}
	}

	if s.Volume != nil {
		def.Volume = clampWarn(*s.Volume, 0, 1, "volume", warn)
	}
	if s.Pitch != nil {
		def.Pitch = clampWarn(*s.Pitch, MinPitch, MaxPitch, "pitch", warn)
	}
	def.PitchVariation = clampWarn(s.PitchVariation, 0, 1, "pitch_variation", warn)
	if s.LoopDuration < 0 {
		warn("loop_duration %.3f < 0, using 0", s.LoopDuration)
		def.LoopDuration = 0
	}
	if s.LowPass.Cutoff != nil {
		def.LowPass.Cutoff = clampWarn(*s.LowPass.Cutoff, MinCutoff, MaxCutoff, "low_pass.cutoff", warn)
	}
	if s.HighPass.Cutoff != nil {
		def.HighPass.Cutoff = clampWarn(*s.HighPass.Cutoff, MinCutoff, MaxCutoff, "high_pass.cutoff", warn)
	}

	def.Spatial = Spatial{
		AirAbsorption: s.Spatial.AirAbsorption,
		Directivity: Directivity{
			Enabled:      s.Spatial.Directivity.Enabled,
			DipoleWeight: clampWarn(s.Spatial.Directivity.DipoleWeight, 0, 1, "directivity.dipole_weight", warn),
			DipolePower:  clampWarn(s.Spatial.Directivity.DipolePower, 0, 4, "directivity.dipole_power", warn),
		},
		Occlusion: Occlusion{
			Enabled: s.Spatial.Occlusion.Enabled,
			Radius:  1,
			Samples: 16,
		},
		Transmission: s.Spatial.Transmission,
	}
	if s.Spatial.Occlusion.Radius != nil {
		def.Spatial.Occlusion.Radius = clampWarn(*s.Spatial.Occlusion.Radius, 0, 4, "occlusion.radius", warn)
	}
	if s.Spatial.Occlusion.Samples != 0 {
		def.Spatial.Occlusion.Samples = int(clampWarn(float64(s.Spatial.Occlusion.Samples), 1, 128, "occlusion.samples", warn))
	}

	for i, c := range s.Clips {
		file := strings.TrimSpace(c.File)
		if file == "" {
			warn("clip %d has no file, skipped", i)
			continue
		}
		def.Clips = append(def.Clips, Clip{File: file, Length: seconds(c.Length)})
	}

	for i, m := range s.Modulators {
		control := strings.TrimSpace(m.Control)
		if control == "" {
			warn("modulator %d has no control, skipped", i)
			continue
		}
		curve, err := m.Curve.Compile(env.ScriptDir)
		if err != nil {
			def.Close()
			return nil, warnings, fmt.Errorf("cue: %s modulator %d (%s): %w", def, i, control, err)
		}
		def.Bindings = append(def.Bindings, Binding{Control: control, Target: m.Target, Curve: curve})
	}

	return def, warnings, nil
}

// Compile builds the curve a spec describes.
func (c CurveSpec) Compile(scriptDir string) (Curve, error) {
	set := 0
	for _, v := range []bool{len(c.Keys) > 0, c.Tengo != "", c.Lua != "", c.File != ""} {
		if v {
			set++
		}
	}
	if set > 1 {
		return nil, fmt.Errorf("curve must set only one of keys, tengo, lua, file")
	}

	switch {
	case len(c.Keys) > 0:
		keys := make([]Key, 0, len(c.Keys))
		for i, pair := range c.Keys {
			if len(pair) != 2 {
				return nil, fmt.Errorf("curve key %d: want [x, y], got %d values", i, len(pair))
			}
			keys = append(keys, Key{X: pair[0], Y: pair[1]})
		}
		return NewKeyframes(keys...), nil
	case c.Tengo != "":
		return NewTengoCurve(c.Tengo)
	case c.Lua != "":
		return NewLuaCurve(c.Lua)
	case c.File != "":
		path := c.File
		if !filepath.IsAbs(path) && scriptDir != "" {
			path = filepath.Join(scriptDir, path)
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("curve script: %w", err)
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".tengo":
			return NewTengoCurve(string(src))
		case ".lua":
			return NewLuaCurve(string(src))
		default:
			return nil, fmt.Errorf("curve script %q: unsupported extension", c.File)
		}
	default:
		return Identity(), nil
	}
}

// CompileCategories builds shared categories from their specs.
func CompileCategories(specs map[string]CategorySpec) (map[string]*Category, []string) {
	out := make(map[string]*Category, len(specs))
	var warnings []string
	for name, spec := range specs {
		cat := &Category{Name: name, Priority: DefaultPriority, Bus: spec.Bus}
		if spec.Priority != nil {
			p := *spec.Priority
			if p < MinPriority || p > MaxPriority {
				warnings = append(warnings, fmt.Sprintf("category %q priority %d outside [%d,%d], clamped", name, p, MinPriority, MaxPriority))
				p = min(max(p, MinPriority), MaxPriority)
			}
			cat.Priority = p
		}
		out[name] = cat
	}
	return out, warnings
}

func seconds(s float64) time.Duration {
	if s <= 0 {
		return 0
	}
	return time.Duration(s * float64(time.Second))
}

func clampWarn(v, lo, hi float64, field string, warn func(string, ...any)) float64 {
	if v < lo {
		warn("%s %.3f below %.3f, clamped", field, v, lo)
		return lo
	}
	if v > hi {
		warn("%s %.3f above %.3f, clamped", field, v, hi)
		return hi
	}
	return v
}
