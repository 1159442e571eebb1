// Package registry resolves cue IDs to compiled definitions.
package registry

import (
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/milk9111/cuedispatch/cue"
)

// ClipLoader reports the natural length of a waveform file.
type ClipLoader interface {
	ClipLength(file string) (time.Duration, error)
}

type Option func(*options)

type options struct {
	logger    *slog.Logger
	clips     ClipLoader
	scriptDir string
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClipLoader fills clip lengths the listing leaves at zero.
func WithClipLoader(c ClipLoader) Option {
	return func(o *options) { o.clips = c }
}

// WithScriptDir sets the base directory for relative curve script files.
func WithScriptDir(dir string) Option {
	return func(o *options) { o.scriptDir = dir }
}

// Registry is read-only after New and safe to share between goroutines.
type Registry struct {
	byID   map[cue.ID]*cue.Definition
	byName map[string]*cue.Definition
	order  []*cue.Definition
}

// New compiles every listing entry. Entries with an empty or duplicate ID
// and entries that fail to compile are logged and skipped.
func New(listing Listing, opts ...Option) *Registry {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger

	for _, m := range listing.Malformed {
		log.Warn("registry: malformed entry, skipped", "section", m.Section, "entry", m.Entry, "line", m.Line, "err", m.Err)
	}

	cats, warnings := cue.CompileCategories(listing.Categories)
	for _, w := range warnings {
		log.Warn("registry: category", "problem", w)
	}

	r := &Registry{
		byID:   make(map[cue.ID]*cue.Definition, len(listing.Cues)),
		byName: make(map[string]*cue.Definition),
	}
	env := cue.CompileEnv{Categories: cats, ScriptDir: o.scriptDir}

	for i, spec := range listing.Cues {
		if spec.ID.IsZero() {
			log.Warn("registry: cue has empty id, skipped", "index", i, "name", spec.Name, "source", spec.Source)
			continue
		}
		if prev, dup := r.byID[spec.ID]; dup {
			log.Warn("registry: duplicate cue id, skipped", "id", spec.ID, "name", spec.Name, "kept", prev.Name)
			continue
		}

		def, warnings, err := spec.Compile(env)
		if err != nil {
			log.Warn("registry: compile cue, skipped", "id", spec.ID, "name", spec.Name, "err", err)
			continue
		}
		for _, w := range warnings {
			log.Warn("registry: cue adjusted", "cue", def, "problem", w)
		}

		if o.clips != nil {
			fillClipLengths(def, o.clips, log)
		}
		if !def.Playable() {
			log.Warn("registry: cue has no clips", "cue", def)
		}
		for _, clip := range def.Clips {
			if clip.Length <= 0 {
				log.Warn("registry: clip length unknown, plays complete at once", "cue", def, "file", clip.File)
			}
		}

		r.byID[def.ID] = def
		r.order = append(r.order, def)
		if def.Name != "" {
			if _, taken := r.byName[def.Name]; taken {
				log.Debug("registry: cue name shared, keeping first", "name", def.Name, "id", def.ID)
			} else {
				r.byName[def.Name] = def
			}
		}
	}

	log.Debug("registry: built", "cues", len(r.order), "entries", len(listing.Cues))
	return r
}

func fillClipLengths(def *cue.Definition, loader ClipLoader, log *slog.Logger) {
	kept := def.Clips[:0]
	for _, clip := range def.Clips {
		if clip.Length > 0 {
			kept = append(kept, clip)
			continue
		}
		length, err := loader.ClipLength(clip.File)
		if err != nil {
			log.Warn("registry: load clip, dropped", "cue", def, "file", clip.File, "err", err)
			continue
		}
		clip.Length = length
		kept = append(kept, clip)
	}
	def.Clips = kept
}

// Load reads a listing file and builds its registry. Relative curve scripts
// resolve against the listing's directory unless WithScriptDir says otherwise.
func Load(path string, opts ...Option) (*Registry, error) {
	listing, err := LoadListing(path)
	if err != nil {
		return nil, err
	}
	opts = append([]Option{WithScriptDir(filepath.Dir(path))}, opts...)
	return New(listing, opts...), nil
}

func (r *Registry) Resolve(id cue.ID) (*cue.Definition, bool) {
	if r == nil {
		return nil, false
	}
	def, ok := r.byID[id]
	return def, ok
}

// ResolveName looks a cue up by its display name.
func (r *Registry) ResolveName(name string) (*cue.Definition, bool) {
	if r == nil {
		return nil, false
	}
	def, ok := r.byName[name]
	return def, ok
}

// Lookup accepts either an ID or a name.
func (r *Registry) Lookup(ref string) (*cue.Definition, bool) {
	if id, err := cue.ParseID(ref); err == nil && !id.IsZero() {
		if def, ok := r.Resolve(id); ok {
			return def, true
		}
	}
	return r.ResolveName(ref)
}

func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.order)
}

// Definitions returns the cues in listing order.
func (r *Registry) Definitions() []*cue.Definition {
	if r == nil {
		return nil
	}
	return append([]*cue.Definition(nil), r.order...)
}

// Close releases the script interpreters behind the registry's curves. The
// registry must not be resolving for a scheduler any more.
func (r *Registry) Close() {
	if r == nil {
		return
	}
	for _, def := range r.order {
		def.Close()
	}
}

// Names returns the sorted display names.
func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
