package dispatch

import (
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/milk9111/cuedispatch/cue"
	"github.com/milk9111/cuedispatch/voice"
	"github.com/stretchr/testify/require"
)

type cues map[cue.ID]*cue.Definition

func (c cues) Resolve(id cue.ID) (*cue.Definition, bool) {
	def, ok := c[id]
	return def, ok
}

func (c cues) add(def *cue.Definition) *cue.Definition {
	c[def.ID] = def
	return def
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func category(priority int) *cue.Category {
	return &cue.Category{Name: "p", Priority: priority}
}

func oneShot(mode cue.SpatialMode, priority int, length time.Duration) *cue.Definition {
	def := &cue.Definition{
		ID:       cue.NewID(),
		Mode:     mode,
		Category: category(priority),
		Clips:    []cue.Clip{{File: "clip.wav", Length: length}},
		Volume:   1,
		Pitch:    1,
		LowPass:  cue.Filter{Cutoff: cue.MaxCutoff},
		HighPass: cue.Filter{Cutoff: cue.MinCutoff},
	}
	def.Name = def.ID.String()[:8]
	return def
}

func newScheduler(t *testing.T, world, ui int, r Resolver) (*Scheduler, *voice.HeadlessBank) {
	t.Helper()
	bank := &voice.HeadlessBank{}
	s, err := NewScheduler(bank.Factory(), map[cue.SpatialMode]int{
		cue.WorldSpace: world,
		cue.UISpace:    ui,
	}, r, WithLogger(quiet()), WithRand(rand.New(rand.NewPCG(1, 2))))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, bank
}

func requireConserved(t *testing.T, s *Scheduler) {
	t.Helper()
	require.NoError(t, s.CheckInvariants())
}
