package dispatch

import (
	"fmt"
	"time"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/cuedispatch/cue"
	"github.com/milk9111/cuedispatch/modulation"
	"github.com/milk9111/cuedispatch/voice"
)

type State int

const (
	Requested State = iota
	Acquiring
	Configuring
	Playing
	Completing
	Released
	Dropped
)

var stateNames = [...]string{"requested", "acquiring", "configuring", "playing", "completing", "released", "dropped"}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports Released or Dropped.
func (s State) Terminal() bool {
	return s == Released || s == Dropped
}

const minWaitPitch = 0.01

// Session is one play from request to release.
type Session struct {
	CueID cue.ID
	Cue   *cue.Definition
	Owner Owner
	Lease Lease
	Clip  cue.Clip

	Params   modulation.Params
	Settings voice.Settings

	// Wait is how long after starting the session completes; zero for manual loops.
	Wait  time.Duration
	State State
}

// Play runs a one-shot request up to Playing. It reports false when the
// request was dropped.
func (s *Scheduler) Play(req PlayRequest) (*Session, bool) {
	sess := &Session{CueID: req.CueID, State: Requested}
	if !s.start(sess, req.Position, req.Controls, false) {
		return sess, false
	}
	sess.Wait = completionWait(sess.Cue, sess.Clip, sess.Params.Pitch)
	s.log.Debug("dispatch: playing", "cue", sess.Cue, "voice", sess.Lease.Handle, "clip", sess.Clip.File, "wait", sess.Wait)
	return sess, true
}

func (s *Scheduler) start(sess *Session, pos cp.Vector, controls map[string]float64, manual bool) bool {
	def, ok := s.resolve(sess.CueID)
	if !ok {
		sess.State = Dropped
		return false
	}
	sess.Cue = def

	sess.State = Acquiring
	lease, ok := s.Acquire(def)
	if !ok {
		sess.State = Dropped
		return false
	}
	sess.Lease = lease

	sess.State = Configuring
	if err := s.configure(sess, pos, controls, manual); err != nil {
		s.log.Warn("dispatch: start voice", "cue", def, "voice", lease.Handle, "err", err)
		s.Release(lease)
		sess.State = Dropped
		return false
	}
	sess.State = Playing
	return true
}

func (s *Scheduler) resolve(id cue.ID) (*cue.Definition, bool) {
	if s.resolver == nil {
		s.log.Warn("dispatch: no registry, request dropped", "cue", id)
		return nil, false
	}
	def, ok := s.resolver.Resolve(id)
	if !ok {
		s.log.Warn("dispatch: unknown cue", "cue", id)
		return nil, false
	}
	if !def.Playable() {
		s.log.Warn("dispatch: cue has no clips", "cue", def)
		return nil, false
	}
	return def, true
}

func (s *Scheduler) configure(sess *Session, pos cp.Vector, controls map[string]float64, manual bool) error {
	def := sess.Cue
	u, ok := s.arena.Unit(sess.Lease.Handle)
	if !ok {
		return voice.ErrStaleHandle
	}

	sess.Clip = def.Clips[s.rng.IntN(len(def.Clips))]

	base := modulation.Static(def)
	if def.PitchVariation > 0 {
		base.Pitch += (s.rng.Float64()*2 - 1) * def.PitchVariation
	}
	params, skipped := modulation.Apply(base, def.Bindings, controls)
	for _, sk := range skipped {
		s.log.Warn("dispatch: modulation skipped", "cue", def, "control", sk.Binding.Control, "target", sk.Binding.Target, "err", sk.Err)
	}
	sess.Params = params

	st := voice.Settings{
		Mode:     def.Mode,
		Bus:      def.Bus(),
		Volume:   params.Volume,
		Pitch:    params.Pitch,
		LowPass:  cue.Filter{Enabled: def.LowPass.Enabled, Cutoff: params.LowPassCutoff},
		HighPass: cue.Filter{Enabled: def.HighPass.Enabled, Cutoff: params.HighPassCutoff},
		Spatial:  def.Spatial,
		Gain:     1,
		Loop:     def.Loop || manual,
	}
	st.Spatial.Directivity.DipoleWeight = params.DipoleWeight
	st.Spatial.Directivity.DipolePower = params.DipolePower
	st.Spatial.Occlusion.Radius = params.OcclusionRadius
	if def.Mode == cue.WorldSpace {
		st.Position = pos
		st.Gain = s.spatial.Gain(def.Mode, pos)
		st.Pan = s.spatial.Pan(def.Mode, pos)
	}
	sess.Settings = st

	u.Apply(st)
	return u.Play(sess.Clip)
}

// completionWait is the wall time until a one-shot session completes.
func completionWait(def *cue.Definition, clip cue.Clip, pitch float64) time.Duration {
	d := clip.Length
	if def.SelfTerminating() {
		d = def.LoopDuration
	}
	if pitch < minWaitPitch {
		pitch = minWaitPitch
	}
	return time.Duration(float64(d) / pitch)
}

// Complete finishes a session. A self-terminating loop is stopped first; the
// voice goes back to its pool only while the session still holds its record.
func (s *Scheduler) Complete(sess *Session) {
	if sess == nil || sess.State != Playing {
		return
	}
	sess.State = Completing
	if s.Live(sess.Lease) {
		if u, ok := s.arena.Unit(sess.Lease.Handle); ok && u.IsPlaying() && u.Looping() {
			u.Stop()
		}
		s.Release(sess.Lease)
		s.log.Debug("dispatch: released", "cue", sess.Cue, "voice", sess.Lease.Handle)
	} else {
		s.log.Debug("dispatch: voice already reclaimed", "cue", sess.Cue, "voice", sess.Lease.Handle)
	}
	sess.State = Released
}
