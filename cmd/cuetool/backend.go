package main

import (
	"path/filepath"

	"github.com/milk9111/cuedispatch/assets"
	"github.com/milk9111/cuedispatch/config"
	"github.com/milk9111/cuedispatch/voice"
)

// clipRoot is where clip files resolve: the configured audio root, else the
// listing's directory.
func clipRoot(c config.Config) string {
	if c.AudioRoot != "" {
		return c.AudioRoot
	}
	return filepath.Dir(c.Listing)
}

// newHeadlessBackend plays nothing but still measures clips, so sessions
// last as long as they would on a device.
func newHeadlessBackend(c config.Config) (voice.Factory, *assets.Library) {
	bank := &voice.HeadlessBank{}
	return bank.Factory(), assets.NewLibrary(clipRoot(c), c.SampleRate)
}
