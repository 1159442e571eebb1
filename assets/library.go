// Package assets loads waveform files as PCM the engine backend can play.
package assets

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2/audio/vorbis"
	"github.com/hajimehoshi/ebiten/v2/audio/wav"
)

const bytesPerFrame = 4

// Library decodes clips under a root directory into 16-bit stereo PCM at
// one sample rate and caches the result.
type Library struct {
	root       string
	sampleRate int

	mu    sync.Mutex
	cache map[string][]byte
}

func NewLibrary(root string, sampleRate int) *Library {
	return &Library{root: root, sampleRate: sampleRate, cache: make(map[string][]byte)}
}

func (l *Library) SampleRate() int {
	return l.sampleRate
}

// Load returns the decoded PCM for file. .wav and .ogg are decoded; anything
// else is taken to be PCM already.
func (l *Library) Load(file string) ([]byte, error) {
	clean := cleanClipPath(file)
	l.mu.Lock()
	pcm, ok := l.cache[clean]
	l.mu.Unlock()
	if ok {
		return pcm, nil
	}

	b, err := os.ReadFile(filepath.Join(l.root, filepath.FromSlash(clean)))
	if err != nil {
		return nil, fmt.Errorf("assets: load %q: %w", file, err)
	}
	pcm, err = l.decode(clean, b)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.cache[clean] = pcm
	l.mu.Unlock()
	return pcm, nil
}

func (l *Library) decode(name string, b []byte) ([]byte, error) {
	reader := bytes.NewReader(b)
	var stream io.Reader
	switch strings.ToLower(filepath.Ext(name)) {
	case ".wav":
		s, err := wav.DecodeWithSampleRate(l.sampleRate, reader)
		if err != nil {
			return nil, fmt.Errorf("assets: decode wav %q: %w", name, err)
		}
		stream = s
	case ".ogg":
		s, err := vorbis.DecodeWithSampleRate(l.sampleRate, reader)
		if err != nil {
			return nil, fmt.Errorf("assets: decode ogg %q: %w", name, err)
		}
		stream = s
	default:
		return b, nil
	}
	pcm, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("assets: read %q: %w", name, err)
	}
	return pcm, nil
}

// ClipLength is the natural playback length of file at pitch 1.
func (l *Library) ClipLength(file string) (time.Duration, error) {
	pcm, err := l.Load(file)
	if err != nil {
		return 0, err
	}
	frames := len(pcm) / bytesPerFrame
	return time.Duration(frames) * time.Second / time.Duration(l.sampleRate), nil
}

// Forget drops cached PCM, so edited files are decoded again.
func (l *Library) Forget() {
	l.mu.Lock()
	clear(l.cache)
	l.mu.Unlock()
}

func cleanClipPath(path string) string {
	s := filepath.ToSlash(filepath.Clean(path))
	return strings.TrimPrefix(s, "./")
}
