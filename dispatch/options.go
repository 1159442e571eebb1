package dispatch

import (
	"log/slog"
	"math/rand/v2"

	"github.com/jonboulle/clockwork"
	"github.com/milk9111/cuedispatch/voice"
)

const DefaultQueueSize = 256

type Option func(*options)

type options struct {
	logger    *slog.Logger
	rng       *rand.Rand
	clock     clockwork.Clock
	queueSize int
	spatial   voice.Spatializer
}

func defaultOptions() options {
	return options{
		logger:    slog.Default(),
		clock:     clockwork.NewRealClock(),
		queueSize: DefaultQueueSize,
		spatial:   voice.Spatializer{MinDistance: 1, MaxDistance: 50},
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return o
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRand fixes the source used for clip selection and pitch jitter.
func WithRand(r *rand.Rand) Option {
	return func(o *options) { o.rng = r }
}

// WithClock sets the clock completion timers run on.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

func WithQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

// WithSpatializer sets distance attenuation for world-space voices.
func WithSpatializer(s voice.Spatializer) Option {
	return func(o *options) { o.spatial = s }
}
