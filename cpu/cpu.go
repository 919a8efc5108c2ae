package cpu

import (
	"fmt"
	"log/slog"

	"github.com/rgrau/dmgcore/addr"
	"github.com/rgrau/dmgcore/bit"
	"github.com/rgrau/dmgcore/memory"
)

// Flag is one of the 4 possible flags used in the flag register (high nibble of F).
type Flag uint8

const (
	zeroFlag      Flag = 0x80
	subFlag       Flag = 0x40
	halfCarryFlag Flag = 0x20
	carryFlag     Flag = 0x10
)

// interrupt holds the handler address, IF/IE bit and dispatch priority (lowest first)
// for one of the five Game Boy interrupt sources.
type interrupt struct {
	bit     uint8
	handler uint16
}

var interruptPriority = []interrupt{
	{0, 0x40}, // VBlank
	{1, 0x48}, // LCD STAT
	{2, 0x50}, // Timer
	{3, 0x58}, // Serial
	{4, 0x60}, // Joypad
}

// CPU is the main struct holding Sharp LR35902 state: the 8 registers (paired
// as AF/BC/DE/HL), the stack pointer, program counter, and the handful of
// latches the instruction set and interrupt controller need (IME, the EI
// one-instruction delay, HALT and the HALT-bug latch, STOP).
type CPU struct {
	a, f    uint8
	b, c    uint8
	d, e    uint8
	h, l    uint8
	sp, pc  uint16
	bus     *memory.MMU

	currentOpcode uint16

	interruptsEnabled bool
	eiPending         bool
	halted            bool
	haltBug           bool
	stopped           bool
	crashed           bool

	cycles uint64
}

// New returns a CPU seeded to the documented DMG post-bootrom register state,
// matching what real hardware leaves behind once the boot ROM hands off
// control to the cartridge at 0x0100.
func New(bus *memory.MMU) *CPU {
	c := &CPU{
		a:  0x01,
		f:  0xB0,
		b:  0x00,
		c:  0x13,
		d:  0x00,
		e:  0xD8,
		h:  0x01,
		l:  0x4D,
		sp: 0xFFFE,
		pc: 0x0100,

		bus: bus,
	}
	return c
}

func (c *CPU) GetPC() uint16 { return c.pc }
func (c *CPU) GetSP() uint16 { return c.sp }

func (c *CPU) GetA() uint8 { return c.a }
func (c *CPU) GetF() uint8 { return c.f }
func (c *CPU) GetB() uint8 { return c.b }
func (c *CPU) GetC() uint8 { return c.c }
func (c *CPU) GetD() uint8 { return c.d }
func (c *CPU) GetE() uint8 { return c.e }
func (c *CPU) GetH() uint8 { return c.h }
func (c *CPU) GetL() uint8 { return c.l }

// IME reports whether interrupts are currently enabled.
func (c *CPU) IME() bool { return c.interruptsEnabled }

// Cycles returns the running total of cycles this CPU has executed.
func (c *CPU) Cycles() uint64 { return c.cycles }

func (c *CPU) getAF() uint16 { return bit.Combine(c.a, c.f&0xF0) }
func (c *CPU) setAF(value uint16) {
	c.a = bit.High(value)
	c.f = bit.Low(value) & 0xF0
}

func (c *CPU) getBC() uint16    { return bit.Combine(c.b, c.c) }
func (c *CPU) setBC(value uint16) { c.b, c.c = bit.High(value), bit.Low(value) }

func (c *CPU) getDE() uint16    { return bit.Combine(c.d, c.e) }
func (c *CPU) setDE(value uint16) { c.d, c.e = bit.High(value), bit.Low(value) }

func (c *CPU) getHL() uint16    { return bit.Combine(c.h, c.l) }
func (c *CPU) setHL(value uint16) { c.h, c.l = bit.High(value), bit.Low(value) }

func (c *CPU) setFlag(flag Flag) {
	c.f |= uint8(flag)
}

func (c *CPU) resetFlag(flag Flag) {
	c.f &^= uint8(flag)
}

func (c *CPU) setFlagToCondition(flag Flag, condition bool) {
	if condition {
		c.setFlag(flag)
	} else {
		c.resetFlag(flag)
	}
}

func (c *CPU) isSetFlag(flag Flag) bool {
	return c.f&uint8(flag) != 0
}

func (c *CPU) flagToBit(flag Flag) uint8 {
	if c.isSetFlag(flag) {
		return 1
	}
	return 0
}

// readImmediate reads the byte at PC and advances PC past it.
func (c *CPU) readImmediate() uint8 {
	value := c.bus.Read(c.pc)
	c.pc++
	return value
}

// readSignedImmediate reads the byte at PC as a signed displacement and
// advances PC past it.
func (c *CPU) readSignedImmediate() int8 {
	return int8(c.readImmediate())
}

// readImmediateWord reads the little-endian word at PC and advances PC past it.
func (c *CPU) readImmediateWord() uint16 {
	low := c.readImmediate()
	high := c.readImmediate()
	return bit.Combine(high, low)
}

// Decode peeks the byte (or CB-prefixed pair) at PC without advancing it and
// returns the matching opcode handler, recording the raw opcode for logging.
func Decode(c *CPU) Opcode {
	first := c.bus.Read(c.pc)
	if first == 0xCB {
		second := c.bus.Read(c.pc + 1)
		c.currentOpcode = 0xCB00 | uint16(second)
		return opcodeCBMap[second]
	}

	c.currentOpcode = uint16(first)
	return opcodeMap[first]
}

// Exec decodes and runs a single instruction (handling pending interrupts and
// HALT/STOP state first), returning the number of cycles it consumed.
func (c *CPU) Exec() int {
	wasEnabled := c.interruptsEnabled
	pending := c.handleInterrupts()
	dispatched := wasEnabled && pending && !c.interruptsEnabled

	if pending && c.halted {
		c.halted = false
		if !wasEnabled {
			c.haltBug = true
		}
	}

	if c.eiPending {
		c.eiPending = false
		c.interruptsEnabled = true
	}

	if dispatched {
		return 20
	}

	if c.halted || c.crashed {
		return 4
	}

	opcode := Decode(c)
	if opcode == nil {
		slog.Error("illegal opcode", "opcode", fmt.Sprintf("0x%04X", c.currentOpcode), "pc", fmt.Sprintf("0x%04X", c.pc))
		c.crashed = true
		return 4
	}

	if c.currentOpcode > 0xFF {
		c.pc += 2
	} else if !c.haltBug {
		c.pc++
	} else {
		// HALT bug: PC fails to advance past the opcode it "re-reads".
		c.haltBug = false
	}

	cycles := opcode(c)
	if cycles == 0 {
		// Illegal opcode on real DMG hardware locks up the CPU. We surface
		// that as a decode error: halt the CPU but keep returning a nominal
		// cycle count so the scheduler (PPU/APU/Timer) keeps advancing.
		c.crashed = true
		slog.Error("illegal opcode, CPU halted", "opcode", fmt.Sprintf("0x%02X", c.currentOpcode), "pc", fmt.Sprintf("0x%04X", c.pc))
		cycles = 4
	}
	c.cycles += uint64(cycles)
	return cycles
}

// Crashed reports whether Exec hit an illegal opcode and halted.
func (c *CPU) Crashed() bool { return c.crashed }

// handleInterrupts services the highest-priority pending, enabled interrupt
// (IF & IE), if IME is set. It always reports whether an interrupt is
// pending (IF & IE != 0) regardless of IME, since that alone is what wakes
// the CPU from HALT.
func (c *CPU) handleInterrupts() bool {
	ifReg := c.bus.Read(addr.IF)
	ieReg := c.bus.Read(addr.IE)
	pending := ifReg & ieReg & 0x1F

	if pending == 0 {
		return false
	}

	if !c.interruptsEnabled {
		return true
	}

	for _, in := range interruptPriority {
		if pending&(1<<in.bit) == 0 {
			continue
		}

		c.interruptsEnabled = false
		c.bus.Write(addr.IF, ifReg&^(1<<in.bit))
		c.pushStack(c.pc)
		c.pc = in.handler
		c.cycles += 20
		return true
	}

	return true
}
