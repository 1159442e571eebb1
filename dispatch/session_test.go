package dispatch

import (
	"testing"
	"time"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/cuedispatch/cue"
	"github.com/milk9111/cuedispatch/voice"
	"github.com/stretchr/testify/require"
)

func TestCompletionWait(t *testing.T) {
	cases := []struct {
		name  string
		def   *cue.Definition
		clip  time.Duration
		pitch float64
		want  time.Duration
	}{
		{"one_shot", &cue.Definition{}, 2 * time.Second, 1, 2 * time.Second},
		{"self_terminating_loop", &cue.Definition{Loop: true, LoopDuration: 3 * time.Second}, 10 * time.Second, 2, 1500 * time.Millisecond},
		{"loop_without_duration_uses_clip", &cue.Definition{Loop: true}, time.Second, 0.5, 2 * time.Second},
		{"pitch_floor", &cue.Definition{}, time.Second, 0, 100 * time.Second},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := completionWait(c.def, cue.Clip{Length: c.clip}, c.pitch)
			require.InDelta(t, float64(c.want), float64(got), 1)
		})
	}
}

func TestPlayConfiguresVoice(t *testing.T) {
	reg := cues{}
	def := reg.add(oneShot(cue.WorldSpace, 100, 2*time.Second))
	def.Category.Bus = "sfx"
	def.Volume = 0.8
	def.LowPass = cue.Filter{Enabled: true, Cutoff: 9000}
	def.Bindings = []cue.Binding{
		{Control: "X", Target: cue.TargetVolume, Curve: cue.Identity()},
		{Control: "muffle", Target: cue.TargetLowPassCutoff, Curve: cue.Linear(0, 22000, 1, 500)},
	}
	s, bank := newScheduler(t, 2, 1, reg)
	s.SetListener(cp.Vector{X: 0, Y: 0})

	sess, ok := s.Play(PlayRequest{
		CueID:    def.ID,
		Position: cp.Vector{X: 0.5, Y: 0},
		Controls: map[string]float64{"X": 0.5, "muffle": 1},
	})
	require.True(t, ok)
	require.Equal(t, Playing, sess.State)
	require.Equal(t, 2*time.Second, sess.Wait)

	playing := bank.Playing()
	require.Len(t, playing, 1)
	st := playing[0].Settings()
	require.Equal(t, "sfx", st.Bus)
	require.InDelta(t, 0.4, st.Volume, 1e-9)
	require.Equal(t, 1.0, st.Pitch)
	require.True(t, st.LowPass.Enabled)
	require.Equal(t, 500.0, st.LowPass.Cutoff)
	require.False(t, st.HighPass.Enabled)
	require.Equal(t, cp.Vector{X: 0.5, Y: 0}, st.Position)
	require.Equal(t, 1.0, st.Gain)
	require.False(t, st.Loop)
	require.Equal(t, "clip.wav", playing[0].Clip().File)

	s.Complete(sess)
	require.Equal(t, Released, sess.State)
	require.Empty(t, bank.Playing())
	require.Equal(t, 2, s.StatsFor(cue.WorldSpace).Idle)
	requireConserved(t, s)
}

func TestPlayUIIgnoresPosition(t *testing.T) {
	reg := cues{}
	def := reg.add(oneShot(cue.UISpace, 100, time.Second))
	s, bank := newScheduler(t, 1, 1, reg)

	_, ok := s.Play(PlayRequest{CueID: def.ID, Position: cp.Vector{X: 500, Y: 500}})
	require.True(t, ok)
	st := bank.Playing()[0].Settings()
	require.Equal(t, cp.Vector{}, st.Position)
	require.Equal(t, 1.0, st.Gain)
	require.Zero(t, st.Pan)
}

func TestPlayPitchVariationAndClipChoice(t *testing.T) {
	reg := cues{}
	def := reg.add(oneShot(cue.WorldSpace, 100, time.Second))
	def.PitchVariation = 0.2
	def.Clips = []cue.Clip{{File: "a.wav", Length: time.Second}, {File: "b.wav", Length: time.Second}}
	s, _ := newScheduler(t, 1, 1, reg)

	files := map[string]bool{}
	for range 50 {
		sess, ok := s.Play(PlayRequest{CueID: def.ID})
		require.True(t, ok)
		require.InDelta(t, 1.0, sess.Params.Pitch, 0.2)
		require.Equal(t, time.Duration(float64(time.Second)/sess.Params.Pitch), sess.Wait)
		files[sess.Clip.File] = true
		s.Complete(sess)
	}
	require.Len(t, files, 2)
}

func TestPlayDrops(t *testing.T) {
	reg := cues{}
	empty := reg.add(oneShot(cue.WorldSpace, 100, time.Second))
	empty.Clips = nil
	s, bank := newScheduler(t, 1, 1, reg)

	cases := map[string]cue.ID{
		"unknown_cue": cue.NewID(),
		"no_clips":    empty.ID,
	}
	for name, id := range cases {
		t.Run(name, func(t *testing.T) {
			sess, ok := s.Play(PlayRequest{CueID: id})
			require.False(t, ok)
			require.Equal(t, Dropped, sess.State)
			require.False(t, sess.Lease.Handle.Valid())
			require.Equal(t, 0, s.StatsFor(cue.WorldSpace).Active)
			require.Empty(t, bank.Playing())
		})
	}

	s.SetResolver(nil)
	_, ok := s.Play(PlayRequest{CueID: empty.ID})
	require.False(t, ok)
}

func TestPlayDropsWhenExhausted(t *testing.T) {
	reg := cues{}
	def := reg.add(oneShot(cue.WorldSpace, 100, time.Second))
	s, _ := newScheduler(t, 1, 1, reg)

	_, ok := s.Play(PlayRequest{CueID: def.ID})
	require.True(t, ok)
	sess, ok := s.Play(PlayRequest{CueID: def.ID})
	require.False(t, ok)
	require.Equal(t, Dropped, sess.State)
}

func TestCompleteAfterStealSkipsCleanup(t *testing.T) {
	reg := cues{}
	low := reg.add(oneShot(cue.WorldSpace, 10, time.Second))
	high := reg.add(oneShot(cue.WorldSpace, 200, time.Second))
	s, bank := newScheduler(t, 1, 1, reg)

	first, ok := s.Play(PlayRequest{CueID: low.ID})
	require.True(t, ok)
	second, ok := s.Play(PlayRequest{CueID: high.ID})
	require.True(t, ok)
	require.Equal(t, first.Lease.Handle, second.Lease.Handle)

	s.Complete(first)
	require.Equal(t, Released, first.State)
	require.Len(t, bank.Playing(), 1, "stealer keeps playing")
	require.True(t, s.Live(second.Lease))
	require.Equal(t, 0, s.StatsFor(cue.WorldSpace).Idle)
	requireConserved(t, s)

	s.Complete(second)
	require.Equal(t, 1, s.StatsFor(cue.WorldSpace).Idle)
	s.Complete(second)
	require.Equal(t, 1, s.StatsFor(cue.WorldSpace).Idle)
}

func TestCompleteStopsSelfTerminatingLoop(t *testing.T) {
	reg := cues{}
	def := reg.add(oneShot(cue.WorldSpace, 100, time.Second))
	def.Loop = true
	def.LoopDuration = 3 * time.Second
	def.Pitch = 2
	s, bank := newScheduler(t, 1, 1, reg)

	sess, ok := s.Play(PlayRequest{CueID: def.ID})
	require.True(t, ok)
	require.Equal(t, 1500*time.Millisecond, sess.Wait)
	u := bank.Playing()[0]
	require.True(t, u.Looping())

	s.Complete(sess)
	require.False(t, u.IsPlaying())
	require.Equal(t, 1, s.StatsFor(cue.WorldSpace).Idle)
}

func TestPlayStartFailureReleasesVoice(t *testing.T) {
	reg := cues{}
	def := reg.add(oneShot(cue.WorldSpace, 100, time.Second))
	s, bank := newScheduler(t, 1, 1, reg)
	for _, u := range bank.Units() {
		require.NoError(t, u.Close())
	}

	sess, ok := s.Play(PlayRequest{CueID: def.ID})
	require.False(t, ok)
	require.Equal(t, Dropped, sess.State)
	require.Equal(t, 1, s.StatsFor(cue.WorldSpace).Idle)
	requireConserved(t, s)
}

func TestStateString(t *testing.T) {
	require.Equal(t, "playing", Playing.String())
	require.Equal(t, "dropped", Dropped.String())
	require.True(t, Released.Terminal())
	require.False(t, Completing.Terminal())
	require.Equal(t, "state(42)", State(42).String())
	var _ voice.Unit = (*voice.Headless)(nil)
}
