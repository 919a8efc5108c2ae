package core

import (
	"github.com/rgrau/dmgcore/debug"
	"github.com/rgrau/dmgcore/input/action"
	"github.com/rgrau/dmgcore/timing"
	"github.com/rgrau/dmgcore/ppu"
)

// Emulator is the interface for all emulator implementations
type Emulator interface {
	RunUntilFrame() error
	GetCurrentFrame() *ppu.FrameBuffer
	HandleAction(act action.Action, pressed bool)
	ExtractDebugData() *debug.CompleteDebugData
	SetFrameLimiter(limiter timing.Limiter)
	ResetFrameTiming()
}

var _ Emulator = (*DMG)(nil)
