package memory

import "time"

// rtcTime is the MBC3 real time clock's 5 visible registers: seconds,
// minutes, hours, the low 8 bits of the day counter, and the day counter's
// high bit plus the halt and day-carry flags.
type rtcTime struct {
	nanos           uint32
	seconds         uint8
	minutes         uint8
	hours           uint8
	days            uint16
	dayOverflowFlag bool
}

// RealTimeClock models the MBC3's RTC: a free-running clock that can be
// latched (so a game reads a stable snapshot while it ticks in the
// background) and whose registers can be written directly to set the time.
type RealTimeClock struct {
	lastUpdate  time.Time
	currentTime rtcTime
	latchedTime *rtcTime
	preLatch    bool
	halted      bool
}

// NewRealTimeClock returns a clock started at the current wall time, with
// all counters at zero.
func NewRealTimeClock() *RealTimeClock {
	return &RealTimeClock{lastUpdate: time.Now()}
}

// advance folds the wall-clock time elapsed since the last call into the
// RTC's seconds/minutes/hours/days counters.
func (r *RealTimeClock) advance() {
	now := time.Now()
	elapsed := now.Sub(r.lastUpdate)
	r.lastUpdate = now

	if r.halted || elapsed <= 0 {
		return
	}

	nanos := uint64(r.currentTime.nanos) + uint64(elapsed.Nanoseconds())
	r.currentTime.nanos = uint32(nanos % 1_000_000_000)
	if nanos < 1_000_000_000 {
		return
	}

	seconds := uint64(r.currentTime.seconds) + nanos/1_000_000_000
	r.currentTime.seconds = uint8(seconds % 60)
	if seconds < 60 {
		return
	}

	minutes := uint64(r.currentTime.minutes) + seconds/60
	r.currentTime.minutes = uint8(minutes % 60)
	if minutes < 60 {
		return
	}

	hours := uint64(r.currentTime.hours) + minutes/60
	r.currentTime.hours = uint8(hours % 24)
	if hours < 24 {
		return
	}

	days := uint64(r.currentTime.days) + hours/24
	r.currentTime.days = uint16(days % 512)
	if days < 512 {
		return
	}

	r.currentTime.dayOverflowFlag = true
}

// Latch handles a write to 0x6000-0x7FFF: a 0x00 then 0x01 sequence snapshots
// the running clock into latchedTime, which Read then serves until the next
// latch sequence.
func (r *RealTimeClock) Latch(value uint8) {
	r.advance()

	switch {
	case value == 0x00:
		r.preLatch = true
		r.latchedTime = nil
	case value == 0x01 && r.preLatch:
		r.preLatch = false
		snapshot := r.currentTime
		r.latchedTime = &snapshot
	default:
		r.preLatch = false
		r.latchedTime = nil
	}
}

// Read returns the value of RTC register reg (0x08-0x0C, selected the same
// way as an external RAM bank), and whether reg was a valid RTC register.
func (r *RealTimeClock) Read(reg uint8) (uint8, bool) {
	r.advance()

	t := r.currentTime
	if r.latchedTime != nil {
		t = *r.latchedTime
	}

	switch reg {
	case 0x08:
		return t.seconds, true
	case 0x09:
		return t.minutes, true
	case 0x0A:
		return t.hours, true
	case 0x0B:
		return uint8(t.days & 0xFF), true
	case 0x0C:
		v := uint8(t.days>>8) & 0x01
		if r.halted {
			v |= 0x40
		}
		if t.dayOverflowFlag {
			v |= 0x80
		}
		return v, true
	default:
		return 0, false
	}
}

// Write sets RTC register reg directly, as used when a game seeds the clock.
func (r *RealTimeClock) Write(reg uint8, value uint8) {
	r.advance()

	switch reg {
	case 0x08:
		r.currentTime.seconds = value
		r.currentTime.nanos = 0
	case 0x09:
		r.currentTime.minutes = value
	case 0x0A:
		r.currentTime.hours = value
	case 0x0B:
		r.currentTime.days = (r.currentTime.days & 0xFF00) | uint16(value)
	case 0x0C:
		r.currentTime.days = (r.currentTime.days & 0x00FF) | (uint16(value&0x01) << 8)
		r.halted = value&0x40 != 0
		r.currentTime.dayOverflowFlag = value&0x80 != 0
	}
}
