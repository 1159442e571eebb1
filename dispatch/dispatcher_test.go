package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/jakecoffman/cp"
	"github.com/jonboulle/clockwork"
	"github.com/milk9111/cuedispatch/cue"
	"github.com/milk9111/cuedispatch/voice"
	"github.com/stretchr/testify/require"
)

type advancer interface {
	Advance(time.Duration)
}

type harness struct {
	d     *Dispatcher
	s     *Scheduler
	clock advancer
	bank  *voice.HeadlessBank
}

func startDispatcher(t *testing.T, world, ui int, r Resolver) *harness {
	t.Helper()
	fake := clockwork.NewFakeClock()
	s, bank := newScheduler(t, world, ui, r)
	d := NewDispatcher(s, WithClock(fake), WithLogger(quiet()))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- d.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-errCh
	})
	require.NoError(t, d.WaitForReady(ctx))
	return &harness{d: d, s: s, clock: fake, bank: bank}
}

func (h *harness) stats(t *testing.T, mode cue.SpatialMode) PoolStats {
	t.Helper()
	var st PoolStats
	var invariants error
	require.NoError(t, h.d.Do(context.Background(), func(s *Scheduler) {
		st = s.StatsFor(mode)
		invariants = s.CheckInvariants()
	}))
	require.NoError(t, invariants)
	return st
}

func (h *harness) pending(t *testing.T) int {
	t.Helper()
	n, err := h.d.Pending(context.Background())
	require.NoError(t, err)
	return n
}

func (h *harness) eventuallyIdle(t *testing.T, mode cue.SpatialMode, idle int) {
	t.Helper()
	require.Eventually(t, func() bool {
		var st PoolStats
		err := h.d.Do(context.Background(), func(s *Scheduler) { st = s.StatsFor(mode) })
		return err == nil && st.Idle == idle
	}, 2*time.Second, 5*time.Millisecond)
	h.stats(t, mode)
}

func TestDispatcherOneShotCompletes(t *testing.T) {
	reg := cues{}
	def := reg.add(oneShot(cue.WorldSpace, 100, 2*time.Second))
	h := startDispatcher(t, 2, 1, reg)

	h.d.Play(PlayRequest{CueID: def.ID})
	require.Equal(t, 1, h.pending(t))
	require.Equal(t, 1, h.stats(t, cue.WorldSpace).Active)

	h.clock.Advance(1999 * time.Millisecond)
	require.Equal(t, 1, h.stats(t, cue.WorldSpace).Active)

	h.clock.Advance(time.Millisecond)
	h.eventuallyIdle(t, cue.WorldSpace, 2)
	require.Zero(t, h.pending(t))
	require.Empty(t, h.bank.Playing())
}

func TestDispatcherLoopDurationScaledByPitch(t *testing.T) {
	reg := cues{}
	def := reg.add(oneShot(cue.WorldSpace, 100, 10*time.Second))
	def.Loop = true
	def.LoopDuration = 3 * time.Second
	def.Pitch = 2
	h := startDispatcher(t, 1, 1, reg)

	h.d.Play(PlayRequest{CueID: def.ID})
	require.Equal(t, 1, h.pending(t))
	require.True(t, h.bank.Playing()[0].Looping())

	h.clock.Advance(1400 * time.Millisecond)
	require.Equal(t, 0, h.stats(t, cue.WorldSpace).Idle)

	h.clock.Advance(100 * time.Millisecond)
	h.eventuallyIdle(t, cue.WorldSpace, 1)
	require.Empty(t, h.bank.Playing())
}

func TestDispatcherStealCancelsVictimTimer(t *testing.T) {
	reg := cues{}
	low := reg.add(oneShot(cue.WorldSpace, 10, time.Second))
	high := reg.add(oneShot(cue.WorldSpace, 200, 5*time.Second))
	h := startDispatcher(t, 1, 1, reg)

	h.d.Play(PlayRequest{CueID: low.ID})
	h.d.Play(PlayRequest{CueID: high.ID})
	require.Equal(t, 1, h.pending(t))

	h.clock.Advance(time.Second)
	require.Equal(t, 1, h.stats(t, cue.WorldSpace).Active)
	require.Len(t, h.bank.Playing(), 1)

	h.clock.Advance(4 * time.Second)
	h.eventuallyIdle(t, cue.WorldSpace, 1)
}

func TestDispatcherDestroyVoiceCancelsCompletion(t *testing.T) {
	reg := cues{}
	def := reg.add(oneShot(cue.WorldSpace, 100, 2*time.Second))
	h := startDispatcher(t, 2, 1, reg)

	h.d.Play(PlayRequest{CueID: def.ID})
	var handle voice.Handle
	require.NoError(t, h.d.Do(context.Background(), func(s *Scheduler) {
		handle = s.pools[cue.WorldSpace].active[0].lease.Handle
	}))

	h.d.DestroyVoice(handle)
	require.Zero(t, h.pending(t))
	require.Equal(t, 2, h.stats(t, cue.WorldSpace).Idle)

	h.clock.Advance(2 * time.Second)
	st := h.stats(t, cue.WorldSpace)
	require.Equal(t, 2, st.Idle)
	require.Equal(t, 2, st.Capacity)

	// the replacement voice is usable
	h.d.Play(PlayRequest{CueID: def.ID})
	h.d.Play(PlayRequest{CueID: def.ID})
	require.Equal(t, 2, h.stats(t, cue.WorldSpace).Active)
}

func TestDispatcherLoops(t *testing.T) {
	reg := cues{}
	def := reg.add(oneShot(cue.UISpace, 100, time.Second))
	h := startDispatcher(t, 1, 1, reg)

	h.d.StartLoop(LoopStartRequest{CueID: def.ID, Owner: 3})
	require.Zero(t, h.pending(t))
	h.clock.Advance(time.Hour)
	require.Equal(t, 1, h.stats(t, cue.UISpace).Active)

	h.d.StopLoop(LoopStopRequest{Owner: 3})
	require.Equal(t, 1, h.stats(t, cue.UISpace).Idle)
	require.Empty(t, h.bank.Playing())
}

func TestDispatcherSwapRegistryAndListener(t *testing.T) {
	def := oneShot(cue.WorldSpace, 100, time.Second)
	h := startDispatcher(t, 1, 1, cues{})

	h.d.Play(PlayRequest{CueID: def.ID})
	require.Equal(t, 0, h.stats(t, cue.WorldSpace).Active)

	reg := cues{}
	reg.add(def)
	prev, err := h.d.SwapRegistry(context.Background(), reg)
	require.NoError(t, err)
	require.Equal(t, cues{}, prev)
	h.d.SetListener(cp.Vector{X: 1000})
	h.d.Play(PlayRequest{CueID: def.ID, Position: cp.Vector{X: 0}})
	require.Equal(t, 1, h.stats(t, cue.WorldSpace).Active)

	playing := h.bank.Playing()
	require.Len(t, playing, 1)
	require.Zero(t, playing[0].Settings().Gain)
}

func TestDispatcherDropsWhenQueueFull(t *testing.T) {
	s, _ := newScheduler(t, 1, 1, cues{})
	d := NewDispatcher(s, WithQueueSize(1), WithLogger(quiet()), WithClock(clockwork.NewFakeClock()))

	d.Play(PlayRequest{CueID: cue.NewID()})
	d.Play(PlayRequest{CueID: cue.NewID()})
	require.Len(t, d.ops, 1)
	require.ErrorIs(t, d.submit(func() {}), ErrQueueFull)
}

func TestDispatcherStopped(t *testing.T) {
	s, _ := newScheduler(t, 1, 1, cues{})
	d := NewDispatcher(s, WithLogger(quiet()))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- d.Run(ctx) }()
	require.NoError(t, d.WaitForReady(ctx))
	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	require.ErrorIs(t, d.Do(context.Background(), func(*Scheduler) {}), ErrStopped)
	_, err := d.SwapRegistry(context.Background(), cues{})
	require.ErrorIs(t, err, ErrStopped)
	d.Play(PlayRequest{CueID: cue.NewID()})
	require.Error(t, d.Run(context.Background()))
}
