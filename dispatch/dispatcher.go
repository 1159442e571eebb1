package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/jakecoffman/cp"
	"github.com/jonboulle/clockwork"
	"github.com/milk9111/cuedispatch/voice"
)

var (
	ErrStopped   = errors.New("dispatch: dispatcher stopped")
	ErrQueueFull = errors.New("dispatch: queue full")
)

type op func()

// Dispatcher serializes every scheduler operation onto the goroutine running
// Run. Its request methods never block and never report failure to the
// caller; a request that cannot be queued is logged and dropped.
type Dispatcher struct {
	sched *Scheduler
	clock clockwork.Clock
	log   *slog.Logger

	ops   chan op
	ready chan struct{}
	done  chan struct{}

	running   atomic.Bool
	readyOnce sync.Once
	doneOnce  sync.Once

	// owned by the run goroutine
	pending map[uint64]*pendingSession
}

type pendingSession struct {
	sess  *Session
	timer clockwork.Timer
}

func NewDispatcher(sched *Scheduler, opts ...Option) *Dispatcher {
	o := buildOptions(opts)
	d := &Dispatcher{
		sched:   sched,
		clock:   o.clock,
		log:     o.logger,
		ops:     make(chan op, o.queueSize),
		ready:   make(chan struct{}),
		done:    make(chan struct{}),
		pending: make(map[uint64]*pendingSession),
	}
	sched.onEvict = d.evicted
	return d
}

// Run executes queued operations until ctx is done. Pending completion
// timers are stopped on exit; voices stay with the scheduler.
func (d *Dispatcher) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return errors.New("dispatch: already running")
	}
	d.readyOnce.Do(func() { close(d.ready) })
	defer d.shutdown()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-d.ops:
			fn()
		}
	}
}

func (d *Dispatcher) shutdown() {
	d.doneOnce.Do(func() { close(d.done) })
	for id, p := range d.pending {
		p.timer.Stop()
		delete(d.pending, id)
	}
	d.log.Debug("dispatch: stopped")
}

// WaitForReady blocks until Run has started.
func (d *Dispatcher) WaitForReady(ctx context.Context) error {
	select {
	case <-d.ready:
		return nil
	case <-d.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) submit(fn op) error {
	select {
	case <-d.done:
		return ErrStopped
	default:
	}
	select {
	case d.ops <- fn:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher) post(kind string, fn op) {
	if err := d.submit(fn); err != nil {
		d.log.Warn("dispatch: request dropped", "request", kind, "err", err)
	}
}

// Do runs fn on the dispatcher goroutine and waits for it.
func (d *Dispatcher) Do(ctx context.Context, fn func(*Scheduler)) error {
	finished := make(chan struct{})
	if err := d.submit(func() {
		defer close(finished)
		fn(d.sched)
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-d.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) Play(req PlayRequest) {
	d.post("play", func() { d.play(req) })
}

func (d *Dispatcher) StartLoop(req LoopStartRequest) {
	d.post("loop_start", func() { d.sched.StartLoop(req) })
}

func (d *Dispatcher) StopLoop(req LoopStopRequest) {
	d.post("loop_stop", func() { d.sched.StopLoop(req) })
}

// SetListener moves the point world-space voices are attenuated against.
// It applies to voices configured afterwards.
func (d *Dispatcher) SetListener(pos cp.Vector) {
	d.post("listener", func() { d.sched.SetListener(pos) })
}

// SwapRegistry replaces the cue resolver between operations and returns the
// one it replaced. Once it returns no request resolves against prev.
func (d *Dispatcher) SwapRegistry(ctx context.Context, r Resolver) (prev Resolver, err error) {
	err = d.Do(ctx, func(s *Scheduler) { prev = s.SetResolver(r) })
	return prev, err
}

// DestroyVoice destroys a voice out from under whatever holds it.
func (d *Dispatcher) DestroyVoice(h voice.Handle) {
	d.post("destroy_voice", func() { d.sched.DestroyVoice(h) })
}

func (d *Dispatcher) Stats(ctx context.Context) ([]PoolStats, error) {
	var stats []PoolStats
	err := d.Do(ctx, func(s *Scheduler) { stats = s.Stats() })
	return stats, err
}

func (d *Dispatcher) play(req PlayRequest) {
	sess, ok := d.sched.Play(req)
	if !ok {
		return
	}
	id := sess.Lease.ID()
	p := &pendingSession{sess: sess}
	p.timer = d.clock.AfterFunc(sess.Wait, func() { d.expire(id) })
	d.pending[id] = p
}

// expire runs on the clock's goroutine. Completions are never dropped for a
// full queue, since that would leak the voice.
func (d *Dispatcher) expire(id uint64) {
	select {
	case d.ops <- func() { d.complete(id) }:
	case <-d.done:
	}
}

func (d *Dispatcher) complete(id uint64) {
	p, ok := d.pending[id]
	if !ok {
		return
	}
	delete(d.pending, id)
	d.sched.Complete(p.sess)
}

// evicted cancels the completion wait of a stolen or destroyed voice.
func (d *Dispatcher) evicted(l Lease) {
	p, ok := d.pending[l.ID()]
	if !ok {
		return
	}
	p.timer.Stop()
	p.sess.State = Released
	delete(d.pending, l.ID())
}

// Pending counts sessions waiting on completion.
func (d *Dispatcher) Pending(ctx context.Context) (int, error) {
	var n int
	err := d.Do(ctx, func(*Scheduler) { n = len(d.pending) })
	return n, err
}
