package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/cuedispatch/cue"
	"github.com/milk9111/cuedispatch/dispatch"
	"github.com/milk9111/cuedispatch/registry"
	"github.com/milk9111/cuedispatch/voice"
	"github.com/spf13/cobra"
)

var (
	playX, playY     float64
	playControls     []string
	playLoopOwner    uint64
	playWait         time.Duration
	playHeadless     bool
	playWatch        bool
	playPollInterval = 50 * time.Millisecond
)

var playCmd = &cobra.Command{
	Use:   "play <cue>...",
	Short: "Dispatch cues by name or id and wait for them to finish",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runPlay,
}

func init() {
	f := playCmd.Flags()
	f.Float64Var(&playX, "x", 0, "world x position")
	f.Float64Var(&playY, "y", 0, "world y position")
	f.StringArrayVar(&playControls, "control", nil, "control value as name=value (repeatable)")
	f.Uint64Var(&playLoopOwner, "loop-owner", 0, "start manual loops held by this owner instead of one-shots")
	f.DurationVar(&playWait, "wait", 0, "how long to keep running (default: until idle, or until interrupted for loops)")
	f.BoolVar(&playHeadless, "headless", false, "use silent voices")
	f.BoolVar(&playWatch, "watch", false, "reload the listing when it changes")
	rootCmd.AddCommand(playCmd)
}

func parseControls(pairs []string) (map[string]float64, error) {
	out := make(map[string]float64, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("control %q: want name=value", pair)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("control %q: %w", pair, err)
		}
		out[name] = v
	}
	return out, nil
}

func runPlay(cmd *cobra.Command, args []string) error {
	controls, err := parseControls(playControls)
	if err != nil {
		return err
	}

	factory, lib := newBackend(cfg, playHeadless)
	regOpts := []registry.Option{registry.WithLogger(logger), registry.WithClipLoader(lib)}
	reg, err := registry.Load(cfg.Listing, regOpts...)
	if err != nil {
		return err
	}

	defs := make([]*cue.Definition, 0, len(args))
	for _, ref := range args {
		def, ok := reg.Lookup(ref)
		if !ok {
			reg.Close()
			return fmt.Errorf("unknown cue %q", ref)
		}
		defs = append(defs, def)
	}

	sched, err := dispatch.NewScheduler(factory, map[cue.SpatialMode]int{
		cue.WorldSpace: cfg.Pools.World,
		cue.UISpace:    cfg.Pools.UI,
	}, reg,
		dispatch.WithLogger(logger),
		dispatch.WithSpatializer(voice.Spatializer{MinDistance: cfg.Spatial.MinDistance, MaxDistance: cfg.Spatial.MaxDistance}),
	)
	if err != nil {
		reg.Close()
		return err
	}
	defer sched.Close()

	d := dispatch.NewDispatcher(sched, dispatch.WithLogger(logger), dispatch.WithQueueSize(cfg.QueueSize))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	runErr := make(chan error, 1)
	go func() { runErr <- d.Run(ctx) }()
	if err := d.WaitForReady(ctx); err != nil {
		return err
	}

	if cfg.Watch || playWatch {
		reloader := &registry.Reloader{
			Listing: cfg.Listing,
			Options: regOpts,
			Logger:  logger,
			ClipDir: clipRoot(cfg),
			Clips:   lib,
		}
		watchDone := make(chan struct{})
		defer func() { <-watchDone }()
		go func() {
			defer close(watchDone)
			err := reloader.Run(ctx, func(next *registry.Registry) { swapRegistry(ctx, d, next) })
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("cuetool: watch stopped", "err", err)
			}
		}()
	}

	pos := cp.Vector{X: playX, Y: playY}
	for i, def := range defs {
		if playLoopOwner != 0 {
			d.StartLoop(dispatch.LoopStartRequest{CueID: def.ID, Owner: dispatch.Owner(playLoopOwner) + dispatch.Owner(i), Position: pos, Controls: controls})
			continue
		}
		d.Play(dispatch.PlayRequest{CueID: def.ID, Position: pos, Controls: controls})
	}

	waitForPlayback(ctx, d)

	stop()
	if err := <-runErr; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	// Run has returned; the scheduler is ours again.
	if last, ok := sched.SetResolver(nil).(*registry.Registry); ok {
		last.Close()
	}
	if playLoopOwner != 0 {
		for i := range defs {
			sched.StopLoop(dispatch.LoopStopRequest{Owner: dispatch.Owner(playLoopOwner) + dispatch.Owner(i)})
		}
	}
	for _, st := range sched.Stats() {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d/%d idle\n", st.Mode, st.Idle, st.Capacity)
	}
	return nil
}

// swapRegistry hands next to the dispatcher and closes the registry it
// replaced. If the swap never happens next is closed instead.
func swapRegistry(ctx context.Context, d *dispatch.Dispatcher, next *registry.Registry) {
	prev, err := d.SwapRegistry(ctx, next)
	if err != nil {
		next.Close()
		return
	}
	if old, ok := prev.(*registry.Registry); ok {
		old.Close()
	}
}

func waitForPlayback(ctx context.Context, d *dispatch.Dispatcher) {
	if playWait > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(playWait):
		}
		return
	}
	if playLoopOwner != 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(playPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := d.Pending(ctx)
			if err != nil || n == 0 {
				return
			}
		}
	}
}
