package core

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/rgrau/dmgcore/addr"
	"github.com/rgrau/dmgcore/apu"
	"github.com/rgrau/dmgcore/cpu"
	"github.com/rgrau/dmgcore/debug"
	"github.com/rgrau/dmgcore/input/action"
	"github.com/rgrau/dmgcore/memory"
	"github.com/rgrau/dmgcore/ppu"
	"github.com/rgrau/dmgcore/timing"
)

// DebuggerState represents the current debugger mode
type DebuggerState int

const (
	DebuggerRunning   DebuggerState = iota // Normal execution
	DebuggerPaused                         // Paused, waiting for commands
	DebuggerStep                           // Execute one instruction then pause
	DebuggerStepFrame                      // Execute one frame then pause
)

// DMG represents the root struct and entry point for running the emulation
type DMG struct {
	cpu *cpu.CPU
	gpu *ppu.GPU
	mem *memory.MMU

	// Debugger state
	debuggerState    DebuggerState
	debuggerMutex    sync.RWMutex
	stepRequested    bool
	frameRequested   bool
	instructionCount uint64
	frameCount       uint64

	limiter timing.Limiter
}

func (e *DMG) init(mem *memory.MMU) {
	e.cpu = cpu.New(mem)
	e.gpu = ppu.NewGpu(mem)
	e.mem = mem
	e.mem.SetPPUModeProvider(e.gpu)
	e.limiter = timing.NewNoOpLimiter()

	// Post-bootrom DIV seed; matches the divider value real DMG hardware
	// leaves behind when the boot ROM hands off at 0x0100.
	mem.SetTimerSeed(0xABCC)
}

// New creates a new emulator instance
func New() *DMG {
	e := &DMG{}
	e.init(memory.NewWithCartridge(memory.NewCartridge()))

	return e
}

// NewWithFile creates a new emulator instance and loads the file specified into it.
func NewWithFile(path string) (*DMG, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	slog.Debug("Loaded ROM data", "size", len(data))

	e := &DMG{}
	e.init(memory.NewWithCartridge(memory.NewCartridgeWithData(data)))

	return e, nil
}

func (e *DMG) RunUntilFrame() error {
	e.debuggerMutex.RLock()
	state := e.debuggerState
	e.debuggerMutex.RUnlock()

	// Handle paused state - don't execute anything
	if state == DebuggerPaused {
		return nil
	}

	// Handle step instruction - execute one instruction then pause
	if state == DebuggerStep {
		e.debuggerMutex.Lock()
		if e.stepRequested {
			e.stepRequested = false
			e.debuggerMutex.Unlock()

			// Execute one CPU instruction
			oldPC := e.cpu.GetPC()
			cycles := e.cpu.Exec()
			e.mem.Tick(cycles)
			e.gpu.Tick(cycles)
			e.mem.APU.Tick(cycles)
			e.instructionCount++

			// Log the executed instruction
			slog.Debug("Step executed", "pc", fmt.Sprintf("0x%04X", oldPC), "new_pc", fmt.Sprintf("0x%04X", e.cpu.GetPC()))

			// Pause after execution
			e.SetDebuggerState(DebuggerPaused)
		} else {
			e.debuggerMutex.Unlock()
		}
		return nil
	}

	// Handle step frame - execute one frame then pause
	if state == DebuggerStepFrame {
		e.debuggerMutex.Lock()
		frameRequested := e.frameRequested
		if frameRequested {
			e.frameRequested = false
		}
		e.debuggerMutex.Unlock()

		if frameRequested {
			// Execute one full frame
			total := 0
			for {
				cycles := e.cpu.Exec()
				e.mem.Tick(cycles)
				e.gpu.Tick(cycles)
				e.mem.APU.Tick(cycles)
				e.instructionCount++
				total += cycles

				if total >= 70224 {
					break
				}
			}
			e.frameCount++
			slog.Debug("Frame step completed", "frame", e.frameCount, "instructions", e.instructionCount)
			e.SetDebuggerState(DebuggerPaused)
		}
		return nil
	}

	// Normal execution (DebuggerRunning)
	total := 0
	for {
		cycles := e.cpu.Exec()
		e.mem.Tick(cycles)
		e.gpu.Tick(cycles)
		e.mem.APU.Tick(cycles)
		e.instructionCount++

		total += cycles

		if total >= 70224 {
			e.frameCount++
			// Log every 60 frames (once per second at 60 FPS) only when running
			if e.frameCount%60 == 0 {
				slog.Debug("Frame completed", "frame", e.frameCount, "pc", fmt.Sprintf("0x%04X", e.cpu.GetPC()))
			}
			e.limiter.WaitForNextFrame()
			return nil
		}
	}
}

func (e *DMG) GetCurrentFrame() *ppu.FrameBuffer {
	return e.gpu.GetFrameBuffer()
}

func (e *DMG) HandleKeyPress(key memory.JoypadKey) {
	e.mem.HandleKeyPress(key)
}

func (e *DMG) HandleKeyRelease(key memory.JoypadKey) {
	e.mem.HandleKeyRelease(key)
}

func (e *DMG) GetCPU() *cpu.CPU {
	return e.cpu
}

// Debugger control methods
func (e *DMG) SetDebuggerState(state DebuggerState) {
	e.debuggerMutex.Lock()
	defer e.debuggerMutex.Unlock()
	e.debuggerState = state
	slog.Debug("Debugger state changed", "state", state)
}

func (e *DMG) GetDebuggerState() DebuggerState {
	e.debuggerMutex.RLock()
	defer e.debuggerMutex.RUnlock()
	return e.debuggerState
}

func (e *DMG) DebuggerPause() {
	e.SetDebuggerState(DebuggerPaused)
	slog.Info("DMG paused")
}

func (e *DMG) DebuggerResume() {
	e.SetDebuggerState(DebuggerRunning)
	slog.Info("DMG resumed")
}

func (e *DMG) DebuggerStepInstruction() {
	e.debuggerMutex.Lock()
	defer e.debuggerMutex.Unlock()
	e.stepRequested = true
	e.debuggerState = DebuggerStep
	slog.Info("Step instruction requested")
}

func (e *DMG) DebuggerStepFrame() {
	e.debuggerMutex.Lock()
	defer e.debuggerMutex.Unlock()
	e.frameRequested = true
	e.debuggerState = DebuggerStepFrame
	slog.Info("Step frame requested")
}

func (e *DMG) GetInstructionCount() uint64 {
	return e.instructionCount
}

func (e *DMG) GetFrameCount() uint64 {
	return e.frameCount
}

func (e *DMG) GetMMU() *memory.MMU {
	return e.mem
}

// actionToJoypad maps a Game Boy hardware button action to its joypad key.
func actionToJoypad(act action.Action) (memory.JoypadKey, bool) {
	switch act {
	case action.GBButtonA:
		return memory.JoypadA, true
	case action.GBButtonB:
		return memory.JoypadB, true
	case action.GBButtonStart:
		return memory.JoypadStart, true
	case action.GBButtonSelect:
		return memory.JoypadSelect, true
	case action.GBDPadUp:
		return memory.JoypadUp, true
	case action.GBDPadDown:
		return memory.JoypadDown, true
	case action.GBDPadLeft:
		return memory.JoypadLeft, true
	case action.GBDPadRight:
		return memory.JoypadRight, true
	default:
		return 0, false
	}
}

// HandleAction routes a backend input action to the joypad or the debugger,
// depending on its category.
func (e *DMG) HandleAction(act action.Action, pressed bool) {
	if key, ok := actionToJoypad(act); ok {
		if pressed {
			e.HandleKeyPress(key)
		} else {
			e.HandleKeyRelease(key)
		}
		return
	}

	if !pressed {
		return
	}

	switch act {
	case action.EmulatorPauseToggle:
		if e.GetDebuggerState() == DebuggerPaused {
			e.DebuggerResume()
		} else {
			e.DebuggerPause()
		}
	case action.EmulatorStepFrame:
		e.DebuggerStepFrame()
	case action.EmulatorStepInstruction:
		e.DebuggerStepInstruction()
	}
}

// ExtractDebugData builds a snapshot of CPU/memory state for debug displays.
// It returns nil if the emulator hasn't been initialized yet.
func (e *DMG) ExtractDebugData() *debug.CompleteDebugData {
	if e.cpu == nil || e.mem == nil {
		return nil
	}

	pc := e.cpu.GetPC()
	const snapshotRadius = 100
	start := pc
	if start > snapshotRadius {
		start -= snapshotRadius
	} else {
		start = 0
	}

	size := snapshotRadius * 2
	if uint32(start)+uint32(size) > 0x10000 {
		size = int(0x10000 - uint32(start))
	}

	bytes := make([]uint8, size)
	for i := 0; i < size; i++ {
		bytes[i] = e.mem.Read(start + uint16(i))
	}

	spriteHeight := 8
	if e.mem.ReadBit(2, addr.LCDC) {
		spriteHeight = 16
	}

	return &debug.CompleteDebugData{
		OAM:  debug.ExtractOAMData(e.mem, int(e.mem.Read(addr.LY)), spriteHeight),
		VRAM: debug.ExtractVRAMData(e.mem),
		CPU: &debug.CPUState{
			A: e.cpu.GetA(), F: e.cpu.GetF(),
			B: e.cpu.GetB(), C: e.cpu.GetC(),
			D: e.cpu.GetD(), E: e.cpu.GetE(),
			H: e.cpu.GetH(), L: e.cpu.GetL(),
			SP: e.cpu.GetSP(), PC: pc,
			IME:    e.cpu.IME(),
			Cycles: e.cpu.Cycles(),
		},
		Memory:          &debug.MemorySnapshot{StartAddr: start, Bytes: bytes},
		DebuggerState:   debug.DebuggerState(e.GetDebuggerState()),
		InterruptEnable: e.mem.Read(addr.IE),
		InterruptFlags:  e.mem.Read(addr.IF),
	}
}

// SetFrameLimiter installs the pacing strategy RunUntilFrame uses to throttle
// to real Game Boy speed. A nil limiter disables pacing (for benchmarks and
// headless runs).
func (e *DMG) SetFrameLimiter(limiter timing.Limiter) {
	if limiter == nil {
		e.limiter = timing.NewNoOpLimiter()
	} else {
		e.limiter = limiter
	}
}

// ResetFrameTiming resets the frame limiter's internal clock, used after a
// debugger pause so the next frame isn't throttled to make up for lost time.
func (e *DMG) ResetFrameTiming() {
	e.limiter.Reset()
}

// GetAudioProvider exposes the APU to backends that render audio.
func (e *DMG) GetAudioProvider() apu.Provider {
	return e.mem.APU
}

var _ Emulator = (*DMG)(nil)
