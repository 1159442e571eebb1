package cue

import (
	"errors"
	"sort"
)

var ErrCurveResult = errors.New("cue: curve did not produce a number")

// Curve maps a control value to a parameter value.
type Curve interface {
	Evaluate(x float64) (float64, error)
}

// Key is one sample of a keyframe curve.
type Key struct {
	X float64
	Y float64
}

// Keyframes is a sampled function, linear between keys and clamped outside
// the first and last key. Keys must be sorted by X; NewKeyframes sorts them.
type Keyframes []Key

func NewKeyframes(keys ...Key) Keyframes {
	out := append(Keyframes(nil), keys...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].X < out[j].X })
	return out
}

// Linear is the straight segment from (x0,y0) to (x1,y1).
func Linear(x0, y0, x1, y1 float64) Keyframes {
	return NewKeyframes(Key{X: x0, Y: y0}, Key{X: x1, Y: y1})
}

// Identity is the default binding curve.
func Identity() Keyframes {
	return Linear(0, 0, 1, 1)
}

func (k Keyframes) Evaluate(x float64) (float64, error) {
	switch len(k) {
	case 0:
		return 0, nil
	case 1:
		return k[0].Y, nil
	}
	if x <= k[0].X {
		return k[0].Y, nil
	}
	last := k[len(k)-1]
	if x >= last.X {
		return last.Y, nil
	}

	i := sort.Search(len(k), func(i int) bool { return k[i].X > x })
	a, b := k[i-1], k[i]
	span := b.X - a.X
	if span <= 0 {
		return b.Y, nil
	}
	t := (x - a.X) / span
	return a.Y + (b.Y-a.Y)*t, nil
}

// ConstantCurve always yields the same value.
type ConstantCurve float64

func (c ConstantCurve) Evaluate(float64) (float64, error) {
	return float64(c), nil
}
