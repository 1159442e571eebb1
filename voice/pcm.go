package voice

import (
	"encoding/binary"
	"math"
)

// PCM helpers for 16-bit little-endian interleaved stereo, the format the
// engine backend plays.

const frameBytes = 4

// Frames is the number of stereo frames in pcm.
func Frames(pcm []byte) int {
	return len(pcm) / frameBytes
}

// Repitch resamples pcm so it plays rate times faster. Rates at or below
// zero, and a rate of exactly 1, return pcm unchanged.
func Repitch(pcm []byte, rate float64) []byte {
	n := Frames(pcm)
	if n == 0 || rate <= 0 || rate == 1 {
		return pcm
	}
	outFrames := int(math.Round(float64(n) / rate))
	if outFrames < 1 {
		outFrames = 1
	}
	out := make([]byte, outFrames*frameBytes)
	last := n - 1
	pos := 0.0
	for i := range outFrames {
		idx := int(pos)
		if idx > last {
			idx = last
		}
		frac := pos - float64(idx)
		next := idx
		if idx < last {
			next = idx + 1
		}
		for ch := range 2 {
			s0 := float64(sample(pcm, idx, ch))
			s1 := float64(sample(pcm, next, ch))
			putSample(out, i, ch, s0+(s1-s0)*frac)
		}
		pos += rate
	}
	return out
}

// Pan returns a copy of pcm with constant-power balance applied; pan is
// clamped to [-1,1] and 0 returns pcm unchanged.
func Pan(pcm []byte, pan float64) []byte {
	pan = min(max(pan, -1), 1)
	if pan == 0 {
		return pcm
	}
	angle := (pan + 1) * math.Pi / 4
	gains := [2]float64{math.Cos(angle) * math.Sqrt2, math.Sin(angle) * math.Sqrt2}
	out := make([]byte, Frames(pcm)*frameBytes)
	for i := range Frames(pcm) {
		for ch := range 2 {
			putSample(out, i, ch, float64(sample(pcm, i, ch))*gains[ch])
		}
	}
	return out
}

func sample(pcm []byte, frame, ch int) int16 {
	off := frame*frameBytes + ch*2
	return int16(binary.LittleEndian.Uint16(pcm[off:]))
}

func putSample(pcm []byte, frame, ch int, v float64) {
	v = math.Round(v)
	if v > math.MaxInt16 {
		v = math.MaxInt16
	} else if v < math.MinInt16 {
		v = math.MinInt16
	}
	off := frame*frameBytes + ch*2
	binary.LittleEndian.PutUint16(pcm[off:], uint16(int16(v)))
}
