//go:build !headless
// +build !headless

package main

import (
	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/milk9111/cuedispatch/assets"
	"github.com/milk9111/cuedispatch/config"
	"github.com/milk9111/cuedispatch/voice"
	"github.com/milk9111/cuedispatch/voice/ebitenvoice"
)

func newBackend(c config.Config, headless bool) (voice.Factory, *assets.Library) {
	if headless || c.Headless {
		return newHeadlessBackend(c)
	}
	lib := assets.NewLibrary(clipRoot(c), c.SampleRate)
	backend := ebitenvoice.NewBackend(audio.NewContext(lib.SampleRate()), lib, c.BusGain, logger)
	return backend.Factory(), lib
}
