package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/rgrau/dmgcore/core"
	"github.com/rgrau/dmgcore/debug"
	"github.com/rgrau/dmgcore/events"
	"github.com/rgrau/dmgcore/input/action"
	"github.com/rgrau/dmgcore/input/event"
	"github.com/rgrau/dmgcore/memory"
	"github.com/rgrau/dmgcore/ppu"
	"github.com/rgrau/dmgcore/render"
	"github.com/rgrau/dmgcore/render/headless"
	"github.com/rgrau/dmgcore/render/terminal"
	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "Jeebie"
	app.Description = "A simple gameboy emulator"
	app.Usage = "dmgcore [options] <ROM file>"
	app.Version = "1.0.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the ROM file",
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "Run the emulator without a graphical interface",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run in headless mode (required for headless)",
			Value: 0,
		},
		cli.BoolFlag{
			Name:  "test-pattern",
			Usage: "Display a test pattern instead of emulation (for debugging display)",
		},
		cli.IntFlag{
			Name:  "snapshot-interval",
			Usage: "Save frame snapshots every N frames in headless mode (0 = disabled)",
			Value: 0,
		},
		cli.StringFlag{
			Name:  "snapshot-dir",
			Usage: "Directory to save frame snapshots (default: temp directory)",
		},
		cli.BoolFlag{
			Name:  "event-driven",
			Usage: "Use event-driven emulation for cycle-accurate timing (experimental)",
		},
	}
	app.Action = runEmulator

	err := app.Run(os.Args)
	if err != nil {
		slog.Error("Error running emulator", "error", err)
		os.Exit(1)
	}
}

func runEmulator(c *cli.Context) error {
	romPath := c.String("rom")
	if romPath == "" && c.NArg() > 0 {
		romPath = c.Args().Get(0)
	}

	testPattern := c.Bool("test-pattern")
	if !testPattern && romPath == "" {
		cli.ShowAppHelp(c)
		return errors.New("no ROM path provided")
	}

	if c.Bool("headless") {
		frames := c.Int("frames")
		if frames <= 0 {
			return errors.New("headless mode requires --frames option with a positive value")
		}

		snapshotConfig, err := headless.CreateSnapshotConfig(c.Int("snapshot-interval"), c.String("snapshot-dir"), romPath)
		if err != nil {
			return err
		}

		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
		slog.SetDefault(slog.New(handler))

		if c.Bool("event-driven") {
			return runEventDrivenHeadless(romPath, frames, snapshotConfig)
		}
		return runHeadless(romPath, frames, testPattern, snapshotConfig)
	}

	backend := terminal.New()
	return runInteractive(romPath, testPattern, backend)
}

// runHeadless drives the synchronous DMG emulator through a headless backend
// for a fixed number of frames, taking PNG snapshots on the configured
// interval.
func runHeadless(romPath string, frames int, testPattern bool, snapshotConfig headless.SnapshotConfig) error {
	var emu *core.DMG
	var err error
	if testPattern {
		emu = nil
	} else {
		emu, err = core.NewWithFile(romPath)
		if err != nil {
			return err
		}
	}

	backend := headless.New(frames, snapshotConfig)
	if err := backend.Init(render.BackendConfig{Title: "dmgcore", TestPattern: testPattern}); err != nil {
		return err
	}
	defer backend.Cleanup()

	frame := ppu.NewFrameBuffer()
	for i := 0; i < frames; i++ {
		if emu != nil {
			if err := emu.RunUntilFrame(); err != nil {
				return err
			}
			frame = emu.GetCurrentFrame()
		}

		events, err := backend.Update(frame)
		if err != nil {
			return err
		}
		if hasQuit(events) {
			break
		}
	}

	if snapshotConfig.Enabled {
		slog.Info("Headless execution completed", "frames", frames, "snapshots_saved_to", snapshotConfig.Directory)
	} else {
		slog.Info("Headless execution completed", "frames", frames)
	}
	return nil
}

// runInteractive drives a DMG emulator through an interactive Backend
// (runEmulator passes the terminal backend), translating returned
// InputEvents into joypad input and emulator/backend control actions.
func runInteractive(romPath string, testPattern bool, backend render.Backend) error {
	var emu *core.DMG
	var err error
	if !testPattern {
		emu, err = core.NewWithFile(romPath)
		if err != nil {
			return err
		}
	}

	config := render.BackendConfig{
		Title:       "Jeebie",
		Scale:       1,
		ShowDebug:   false,
		TestPattern: testPattern,
	}
	if emu != nil {
		config.DebugProvider = emu
		config.AudioProvider = emu.GetAudioProvider()
	}

	if err := backend.Init(config); err != nil {
		return err
	}
	defer backend.Cleanup()

	frame := ppu.NewFrameBuffer()
	for {
		if emu != nil {
			if err := emu.RunUntilFrame(); err != nil {
				return err
			}
			frame = emu.GetCurrentFrame()
		}

		events, err := backend.Update(frame)
		if err != nil {
			return err
		}

		quit := false
		for _, ev := range events {
			if ev.Action == action.EmulatorQuit {
				quit = true
				continue
			}
			dispatchEvent(emu, backend, ev)
		}
		if quit {
			return nil
		}
	}
}

// dispatchEvent routes an input event either to the emulator (game input and
// core emulator controls) or to the backend (debug/backend/audio controls).
func dispatchEvent(emu *core.DMG, backend render.Backend, ev render.InputEvent) {
	info := action.GetInfo(ev.Action)

	switch info.Category {
	case action.CategoryGameInput, action.CategoryEmulator:
		if emu != nil {
			emu.HandleAction(ev.Action, ev.Type != event.Release)
		}
	default:
		if ev.Type != event.Release {
			if h, ok := backend.(interface{ HandleAction(action.Action) }); ok {
				h.HandleAction(ev.Action)
			}
		}
	}
}

func hasQuit(events []render.InputEvent) bool {
	for _, ev := range events {
		if ev.Action == action.EmulatorQuit {
			return true
		}
	}
	return false
}

// runEventDrivenHeadless runs the event-driven emulator in headless mode.
func runEventDrivenHeadless(romPath string, frames int, snapshotConfig headless.SnapshotConfig) error {
	data, err := os.ReadFile(romPath)
	if err != nil {
		return err
	}

	cart := memory.NewCartridgeWithData(data)
	mmu := memory.NewWithCartridge(cart)
	emu := events.NewEventDrivenEmulator(mmu)

	slog.Info("Starting event-driven emulator", "rom", romPath)

	romName := filepath.Base(romPath)
	romName = strings.TrimSuffix(romName, filepath.Ext(romName))

	go func() {
		lastFrameCount := uint64(0)
		for {
			currentFrameCount := emu.GetFrameCount()
			if currentFrameCount != lastFrameCount {
				frameNum := int(currentFrameCount)

				if snapshotConfig.Enabled && frameNum%snapshotConfig.Interval == 0 {
					baseName := fmt.Sprintf("%s_frame_%d", romName, frameNum)
					if err := debug.SaveFramePNGToDir(emu.GetCurrentFrame(), baseName, snapshotConfig.Directory); err != nil {
						slog.Error("Failed to save snapshot", "frame", frameNum, "error", err)
					} else {
						slog.Info("Saved frame snapshot", "frame", frameNum, "dir", snapshotConfig.Directory)
					}
				}

				if frameNum%10 == 0 {
					slog.Info("Frame progress", "completed", frameNum, "total", frames)
				}

				lastFrameCount = currentFrameCount
			}

			if currentFrameCount >= uint64(frames) {
				emu.Stop()
				break
			}
		}
	}()

	emu.RunEventLoop(frames)

	slog.Info("Event-driven emulation completed",
		"frames", emu.GetFrameCount(),
		"instructions", emu.GetInstructionCount(),
		"events", emu.GetEventCount())

	return nil
}
