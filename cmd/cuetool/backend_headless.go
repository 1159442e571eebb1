//go:build headless
// +build headless

package main

import (
	"github.com/milk9111/cuedispatch/assets"
	"github.com/milk9111/cuedispatch/config"
	"github.com/milk9111/cuedispatch/voice"
)

func newBackend(c config.Config, _ bool) (voice.Factory, *assets.Library) {
	return newHeadlessBackend(c)
}
