// Package dispatch turns play requests into voices: pooling, priority
// stealing, the playback session lifecycle and manual loops.
package dispatch

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/cuedispatch/cue"
	"github.com/milk9111/cuedispatch/voice"
)

// Lease names one active-voice record. It stays valid until the record is
// released, stolen or destroyed.
type Lease struct {
	Handle   voice.Handle
	Mode     cue.SpatialMode
	Priority int
	id       uint64
}

// ID is unique per acquisition; zero means no lease.
func (l Lease) ID() uint64 {
	return l.id
}

type record struct {
	lease Lease
	cue   *cue.Definition
}

type pool struct {
	mode     cue.SpatialMode
	capacity int
	idle     []voice.Handle
	active   []record
}

func (p *pool) find(id uint64) int {
	return slices.IndexFunc(p.active, func(r record) bool { return r.lease.id == id })
}

// PoolStats is a snapshot of one mode's pool.
type PoolStats struct {
	Mode     cue.SpatialMode
	Capacity int
	Idle     int
	Active   int
}

// Scheduler owns the voice pools. It is not safe for concurrent use; the
// Dispatcher drives it from a single goroutine.
type Scheduler struct {
	arena    *voice.Arena
	pools    map[cue.SpatialMode]*pool
	resolver Resolver
	loops    map[Owner]*Session

	spatial voice.Spatializer
	rng     *rand.Rand
	log     *slog.Logger

	nextID  uint64
	onEvict func(Lease)
}

// NewScheduler builds capacity[mode] units per mode with factory.
func NewScheduler(factory voice.Factory, capacity map[cue.SpatialMode]int, resolver Resolver, opts ...Option) (*Scheduler, error) {
	for mode, n := range capacity {
		if n < 0 {
			return nil, fmt.Errorf("dispatch: negative %s pool size %d", mode, n)
		}
	}

	o := buildOptions(opts)
	s := &Scheduler{
		arena:    voice.NewArena(factory),
		pools:    make(map[cue.SpatialMode]*pool, len(cue.Modes)),
		resolver: resolver,
		loops:    make(map[Owner]*Session),
		spatial:  o.spatial,
		rng:      o.rng,
		log:      o.logger,
	}
	for _, mode := range cue.Modes {
		n := capacity[mode]
		p := &pool{mode: mode, capacity: n}
		for range n {
			h, err := s.arena.Alloc(mode)
			if err != nil {
				_ = s.arena.Close()
				return nil, err
			}
			p.idle = append(p.idle, h)
		}
		s.pools[mode] = p
	}
	return s, nil
}

// SetResolver swaps the registry cues are resolved against and returns the
// previous one. Sessions already playing keep their definitions.
func (s *Scheduler) SetResolver(r Resolver) Resolver {
	prev := s.resolver
	s.resolver = r
	return prev
}

func (s *Scheduler) SetListener(pos cp.Vector) {
	s.spatial.Listener = pos
}

// Acquire hands out an idle voice of the cue's mode, or steals the lowest
// priority active voice of that mode when the cue outranks it.
func (s *Scheduler) Acquire(def *cue.Definition) (Lease, bool) {
	p, ok := s.pools[def.Mode]
	if !ok {
		return Lease{}, false
	}
	priority := def.Priority()

	if len(p.idle) > 0 {
		h := p.idle[0]
		p.idle = p.idle[1:]
		return s.activate(p, h, def, priority), true
	}

	victim := -1
	for i, r := range p.active {
		if victim < 0 || r.lease.Priority < p.active[victim].lease.Priority {
			victim = i
		}
	}
	if victim < 0 || priority <= p.active[victim].lease.Priority {
		s.log.Debug("dispatch: no voice available", "cue", def, "mode", def.Mode, "priority", priority, "active", len(p.active))
		return Lease{}, false
	}

	stolen := p.active[victim]
	p.active = slices.Delete(p.active, victim, victim+1)
	if u, ok := s.arena.Unit(stolen.lease.Handle); ok {
		u.Stop()
	}
	s.evicted(stolen.lease)
	s.log.Debug("dispatch: voice stolen",
		"voice", stolen.lease.Handle, "victim", stolen.cue, "victim_priority", stolen.lease.Priority,
		"cue", def, "priority", priority)
	return s.activate(p, stolen.lease.Handle, def, priority), true
}

func (s *Scheduler) activate(p *pool, h voice.Handle, def *cue.Definition, priority int) Lease {
	s.nextID++
	l := Lease{Handle: h, Mode: p.mode, Priority: priority, id: s.nextID}
	p.active = append(p.active, record{lease: l, cue: def})
	return l
}

// Release returns a leased voice to its idle pool. It reports false, and
// does nothing, when the lease's record is already gone.
func (s *Scheduler) Release(l Lease) bool {
	p, ok := s.pools[l.Mode]
	if !ok || l.id == 0 {
		return false
	}
	i := p.find(l.id)
	if i < 0 {
		return false
	}
	p.active = slices.Delete(p.active, i, i+1)
	if u, ok := s.arena.Unit(l.Handle); ok {
		u.Stop()
	}
	p.idle = append(p.idle, l.Handle)
	return true
}

// Live reports whether the lease still names an active record.
func (s *Scheduler) Live(l Lease) bool {
	p, ok := s.pools[l.Mode]
	return ok && l.id != 0 && p.find(l.id) >= 0
}

// DestroyVoice tears down the unit behind h wherever it sits and puts a
// fresh unit, under a new handle, on the idle queue. Any lease on h dies.
func (s *Scheduler) DestroyVoice(h voice.Handle) bool {
	mode, ok := s.arena.Mode(h)
	if !ok {
		return false
	}
	p := s.pools[mode]

	if i := slices.Index(p.idle, h); i >= 0 {
		p.idle = slices.Delete(p.idle, i, i+1)
	} else if i := slices.IndexFunc(p.active, func(r record) bool { return r.lease.Handle == h }); i >= 0 {
		r := p.active[i]
		p.active = slices.Delete(p.active, i, i+1)
		s.evicted(r.lease)
	}

	next, err := s.arena.Reset(h)
	if err != nil {
		s.log.Warn("dispatch: reset voice", "voice", h, "err", err)
	}
	if !next.Valid() {
		p.capacity--
		s.log.Warn("dispatch: voice retired", "voice", h, "mode", mode, "capacity", p.capacity)
		return true
	}
	p.idle = append(p.idle, next)
	s.log.Debug("dispatch: voice destroyed", "voice", h, "replacement", next)
	return true
}

func (s *Scheduler) evicted(l Lease) {
	for owner, sess := range s.loops {
		if sess.Lease.id == l.id {
			sess.State = Released
			delete(s.loops, owner)
			break
		}
	}
	if s.onEvict != nil {
		s.onEvict(l)
	}
}

func (s *Scheduler) Unit(h voice.Handle) (voice.Unit, bool) {
	return s.arena.Unit(h)
}

func (s *Scheduler) Stats() []PoolStats {
	out := make([]PoolStats, 0, len(cue.Modes))
	for _, mode := range cue.Modes {
		p := s.pools[mode]
		out = append(out, PoolStats{Mode: mode, Capacity: p.capacity, Idle: len(p.idle), Active: len(p.active)})
	}
	return out
}

// StatsFor returns one mode's snapshot.
func (s *Scheduler) StatsFor(mode cue.SpatialMode) PoolStats {
	p, ok := s.pools[mode]
	if !ok {
		return PoolStats{Mode: mode}
	}
	return PoolStats{Mode: mode, Capacity: p.capacity, Idle: len(p.idle), Active: len(p.active)}
}

// CheckInvariants verifies every live voice is in exactly one of its pool's
// idle queue or active set, and that each pool accounts for its capacity.
func (s *Scheduler) CheckInvariants() error {
	var errs []error
	seen := make(map[voice.Handle]string)
	for _, mode := range cue.Modes {
		p := s.pools[mode]
		mark := func(h voice.Handle, where string) {
			if prev, dup := seen[h]; dup {
				errs = append(errs, fmt.Errorf("%s in both %s and %s", h, prev, where))
			}
			seen[h] = where
			if m, ok := s.arena.Mode(h); !ok {
				errs = append(errs, fmt.Errorf("%s in %s is stale", h, where))
			} else if m != mode {
				errs = append(errs, fmt.Errorf("%s in %s belongs to %s", h, where, m))
			}
		}
		for _, h := range p.idle {
			mark(h, mode.String()+" idle")
		}
		for _, r := range p.active {
			mark(r.lease.Handle, mode.String()+" active")
		}
		if n := len(p.idle) + len(p.active); n != p.capacity {
			errs = append(errs, fmt.Errorf("%s pool holds %d voices, capacity %d", mode, n, p.capacity))
		}
	}
	return errors.Join(errs...)
}

// Close stops and closes every unit.
func (s *Scheduler) Close() error {
	clear(s.loops)
	for _, p := range s.pools {
		p.idle = nil
		p.active = nil
		p.capacity = 0
	}
	return s.arena.Close()
}
