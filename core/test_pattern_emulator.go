package core

import (
	"github.com/rgrau/dmgcore/apu"
	"github.com/rgrau/dmgcore/debug"
	"github.com/rgrau/dmgcore/display"
	"github.com/rgrau/dmgcore/input/action"
	"github.com/rgrau/dmgcore/timing"
	"github.com/rgrau/dmgcore/ppu"
)

// TestPatternEmulator displays test patterns without actual emulation
type TestPatternEmulator struct {
	frameBuffer      *ppu.FrameBuffer
	patternType      int
	animationCounter int
	limiter          timing.Limiter
}

func NewTestPatternEmulator() Emulator {
	e := &TestPatternEmulator{
		frameBuffer: ppu.NewFrameBuffer(),
		patternType: 0,
		limiter:     timing.NewNoOpLimiter(),
	}
	e.generateTestPattern(0)
	return e
}

func (e *TestPatternEmulator) RunUntilFrame() error {
	e.animationCounter++
	if e.animationCounter%display.TestPatternAnimationFrames == 0 {
		e.animateTestPattern()
	}
	e.limiter.WaitForNextFrame()
	return nil
}

func (e *TestPatternEmulator) GetCurrentFrame() *ppu.FrameBuffer {
	return e.frameBuffer
}

func (e *TestPatternEmulator) HandleAction(act action.Action, pressed bool) {
	if act == action.EmulatorTestPatternCycle && pressed {
		e.CycleTestPattern()
	}
}

func (e *TestPatternEmulator) ExtractDebugData() *debug.CompleteDebugData {
	return &debug.CompleteDebugData{
		OAM:           nil,
		VRAM:          nil,
		CPU:           nil,
		Memory:        nil,
		DebuggerState: debug.DebuggerRunning,
	}
}

func (e *TestPatternEmulator) CycleTestPattern() {
	e.patternType = (e.patternType + 1) % display.TestPatternCount
	e.generateTestPattern(e.patternType)
}

func (e *TestPatternEmulator) generateTestPattern(patternType int) {
	switch patternType {
	case 0: // Checkerboard
		for y := 0; y < ppu.FramebufferHeight; y++ {
			for x := 0; x < ppu.FramebufferWidth; x++ {
				var color ppu.GBColor
				if ((x/display.TestPatternTileSize)+(y/display.TestPatternTileSize))%2 == 0 {
					color = ppu.WhiteColor
				} else {
					color = ppu.BlackColor
				}
				e.frameBuffer.SetPixel(uint(x), uint(y), color)
			}
		}
	case 1: // Gradient
		for y := 0; y < ppu.FramebufferHeight; y++ {
			for x := 0; x < ppu.FramebufferWidth; x++ {
				// Map x position to one of the 4 Game Boy colors
				colorIndex := x * 4 / ppu.FramebufferWidth
				var color ppu.GBColor
				switch colorIndex {
				case 0:
					color = ppu.BlackColor
				case 1:
					color = ppu.DarkGreyColor
				case 2:
					color = ppu.LightGreyColor
				default:
					color = ppu.WhiteColor
				}
				e.frameBuffer.SetPixel(uint(x), uint(y), color)
			}
		}
	case 2: // Vertical stripes
		for y := 0; y < ppu.FramebufferHeight; y++ {
			for x := 0; x < ppu.FramebufferWidth; x++ {
				var color ppu.GBColor
				if (x/display.TestPatternStripeWidth)%2 == 0 {
					color = ppu.WhiteColor
				} else {
					color = ppu.DarkGreyColor
				}
				e.frameBuffer.SetPixel(uint(x), uint(y), color)
			}
		}
	case 3: // Diagonal lines
		for y := 0; y < ppu.FramebufferHeight; y++ {
			for x := 0; x < ppu.FramebufferWidth; x++ {
				var color ppu.GBColor
				if ((x+y)/display.TestPatternTileSize)%2 == 0 {
					color = ppu.LightGreyColor
				} else {
					color = ppu.DarkGreyColor
				}
				e.frameBuffer.SetPixel(uint(x), uint(y), color)
			}
		}
	}
}

func (e *TestPatternEmulator) animateTestPattern() {
	frame := e.animationCounter / display.TestPatternAnimationFrames
	switch e.patternType {
	case 2: // Animate stripes
		for y := 0; y < ppu.FramebufferHeight; y++ {
			for x := 0; x < ppu.FramebufferWidth; x++ {
				var color ppu.GBColor
				if ((x+frame*display.TestPatternStripeSpeed)/display.TestPatternStripeWidth)%2 == 0 {
					color = ppu.WhiteColor
				} else {
					color = ppu.DarkGreyColor
				}
				e.frameBuffer.SetPixel(uint(x), uint(y), color)
			}
		}
	case 3: // Animate diagonal
		for y := 0; y < ppu.FramebufferHeight; y++ {
			for x := 0; x < ppu.FramebufferWidth; x++ {
				var color ppu.GBColor
				if ((x+y+frame*display.TestPatternDiagonalSpeed)/display.TestPatternTileSize)%2 == 0 {
					color = ppu.LightGreyColor
				} else {
					color = ppu.DarkGreyColor
				}
				e.frameBuffer.SetPixel(uint(x), uint(y), color)
			}
		}
	}
}

func (e *TestPatternEmulator) SetFrameLimiter(limiter timing.Limiter) {
	if limiter == nil {
		e.limiter = timing.NewNoOpLimiter()
	} else {
		e.limiter = limiter
	}
}

func (e *TestPatternEmulator) ResetFrameTiming() {
	e.limiter.Reset()
}

func (e *TestPatternEmulator) GetAudioProvider() apu.Provider {
	return nil // Test pattern has no audio
}

var _ Emulator = (*TestPatternEmulator)(nil)
