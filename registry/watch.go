package registry

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settle is how long the watched tree must stay quiet before a rebuild.
const settle = 100 * time.Millisecond

type change int

const (
	changeNone change = iota
	changeListing
	changeScript
	changeClip
)

// ClipCache holds decoded clips. *assets.Library implements it.
type ClipCache interface {
	Forget()
}

// Reloader rebuilds the registry when the listing or a curve script changes.
// With Clips set, audio files under ClipDir are watched too and the cache is
// dropped before the rebuild, so clip lengths are measured again.
type Reloader struct {
	Listing string
	Options []Option
	Logger  *slog.Logger

	ClipDir string
	Clips   ClipCache
}

func isSpecFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func isScriptFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".tengo" || ext == ".lua"
}

func isClipFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".ogg", ".pcm", ".raw":
		return true
	}
	return false
}

func (r *Reloader) classify(name string) change {
	switch {
	case isScriptFile(name):
		return changeScript
	case isSpecFile(name):
		if filepath.Clean(name) == filepath.Clean(r.Listing) {
			return changeListing
		}
	case r.Clips != nil && isClipFile(name):
		return changeClip
	}
	return changeNone
}

func (r *Reloader) dirs() ([]string, error) {
	dirs := []string{filepath.Dir(r.Listing)}
	if r.Clips == nil || r.ClipDir == "" {
		return dirs, nil
	}
	err := filepath.WalkDir(r.ClipDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(dirs))
	out := dirs[:0]
	for _, dir := range dirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			abs = dir
		}
		if !seen[abs] {
			seen[abs] = true
			out = append(out, dir)
		}
	}
	return out, nil
}

// Run blocks until ctx is done. apply receives each freshly built registry;
// a rebuild that fails keeps the previous one.
func (r *Reloader) Run(ctx context.Context, apply func(*Registry)) error {
	log := r.Logger
	if log == nil {
		log = slog.Default()
	}
	dirs, err := r.dirs()
	if err != nil {
		return fmt.Errorf("registry: watch: %w", err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("registry: watch: %w", err)
	}
	defer w.Close()
	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("registry: watch %s: %w", dir, err)
		}
	}

	timer := time.NewTimer(settle)
	timer.Stop()
	defer timer.Stop()

	var trigger string
	clipsDirty := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			c := r.classify(event.Name)
			if c == changeNone {
				continue
			}
			if c == changeClip {
				clipsDirty = true
			}
			trigger = event.Name
			timer.Reset(settle)
		case <-timer.C:
			if clipsDirty {
				r.Clips.Forget()
				clipsDirty = false
			}
			r.reload(log, trigger, apply)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("registry: watch", "err", err)
		}
	}
}

func (r *Reloader) reload(log *slog.Logger, trigger string, apply func(*Registry)) {
	reg, err := Load(r.Listing, r.Options...)
	if err != nil {
		log.Warn("registry: reload failed, keeping previous", "path", r.Listing, "err", err)
		return
	}
	log.Info("registry: reloaded", "path", r.Listing, "cues", reg.Len(), "trigger", trigger)
	apply(reg)
}
