package dispatch

import (
	"github.com/jakecoffman/cp"
	"github.com/milk9111/cuedispatch/cue"
)

// Owner identifies the holder of a manual loop. The zero Owner is invalid.
type Owner uint64

// PlayRequest asks for a one-shot play. Position is ignored for UI cues.
type PlayRequest struct {
	CueID    cue.ID
	Position cp.Vector
	Controls map[string]float64
}

type LoopStartRequest struct {
	CueID    cue.ID
	Owner    Owner
	Position cp.Vector
	Controls map[string]float64
}

type LoopStopRequest struct {
	Owner Owner
}

// Resolver looks cues up by ID. *registry.Registry implements it.
type Resolver interface {
	Resolve(id cue.ID) (*cue.Definition, bool)
}
