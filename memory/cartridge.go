package memory

import "log/slog"

// MBCType identifies which memory bank controller chip a cartridge header
// declares at 0x0147.
type MBCType uint8

const (
	NoMBCType MBCType = iota
	MBC1Type
	MBC1MultiType
	MBC2Type
	MBC3Type
	MBC5Type
	MBCUnknownType
)

// Cartridge holds a parsed ROM image plus the header fields needed to build
// the right MBC and back it with the right amount of RAM.
type Cartridge struct {
	data []byte

	title string

	mbcType      MBCType
	hasBattery   bool
	hasRTC       bool
	hasRumble    bool
	romBankCount uint16
	ramBankCount uint8
}

// NewCartridge returns an empty cartridge, equivalent to a Game Boy powered
// on with no cartridge in the slot.
func NewCartridge() *Cartridge {
	return &Cartridge{
		data:    make([]byte, 0x8000),
		mbcType: NoMBCType,
	}
}

// NewCartridgeWithData parses a raw ROM image's header and returns the
// resulting Cartridge. The header is documented at 0x0100-0x014F; we only
// care about the title, the mapper byte at 0x0147, and the ROM/RAM size
// bytes at 0x0148/0x0149.
func NewCartridgeWithData(data []byte) *Cartridge {
	cart := &Cartridge{data: data}

	if len(data) < 0x150 {
		slog.Error("cartridge data too small to contain a header", "size", len(data))
		cart.mbcType = MBCUnknownType
		return cart
	}

	cart.title = cleanGameboyTitle(data[0x134:0x144])
	cart.romBankCount = romBankCount(data[0x148])
	cart.ramBankCount = ramBankCount(data[0x149])

	mapperByte := data[0x147]
	cart.mbcType, cart.hasBattery, cart.hasRTC, cart.hasRumble = parseMapperByte(mapperByte)

	// MBC2 has its own built-in 512x4-bit RAM, not described by 0x0149.
	if cart.mbcType == MBC2Type {
		cart.ramBankCount = 0
	}

	slog.Debug("parsed cartridge header",
		"title", cart.title,
		"mapperByte", mapperByte,
		"mbcType", cart.mbcType,
		"romBanks", cart.romBankCount,
		"ramBanks", cart.ramBankCount,
		"battery", cart.hasBattery,
		"rtc", cart.hasRTC,
		"rumble", cart.hasRumble,
	)

	return cart
}

// Title returns the cleaned 16 character game title from the header.
func (c *Cartridge) Title() string {
	return c.title
}

// parseMapperByte maps the 0x0147 cartridge type byte to an MBCType plus the
// battery/RTC/rumble feature flags it implies.
func parseMapperByte(b byte) (mbcType MBCType, hasBattery, hasRTC, hasRumble bool) {
	switch b {
	case 0x00, 0x08, 0x09:
		return NoMBCType, b == 0x09, false, false
	case 0x01:
		return MBC1Type, false, false, false
	case 0x02:
		return MBC1Type, false, false, false
	case 0x03:
		return MBC1Type, true, false, false
	case 0x05:
		return MBC2Type, false, false, false
	case 0x06:
		return MBC2Type, true, false, false
	case 0x0F:
		return MBC3Type, true, true, false
	case 0x10:
		return MBC3Type, true, true, false
	case 0x11:
		return MBC3Type, false, false, false
	case 0x12:
		return MBC3Type, false, false, false
	case 0x13:
		return MBC3Type, true, false, false
	case 0x19:
		return MBC5Type, false, false, false
	case 0x1A:
		return MBC5Type, false, false, false
	case 0x1B:
		return MBC5Type, true, false, false
	case 0x1C:
		return MBC5Type, false, false, true
	case 0x1D:
		return MBC5Type, false, false, true
	case 0x1E:
		return MBC5Type, true, false, true
	default:
		return MBCUnknownType, false, false, false
	}
}

// romBankCount decodes the 0x0148 ROM size byte. Every documented value is
// 32KB << n, i.e. 2 << n 16KB banks.
func romBankCount(b byte) uint16 {
	if b > 8 {
		return 2
	}
	return 2 << b
}

// ramBankCount decodes the 0x0149 RAM size byte into a count of 8KB banks.
func ramBankCount(b byte) uint8 {
	switch b {
	case 0x00:
		return 0
	case 0x02:
		return 1
	case 0x03:
		return 4
	case 0x04:
		return 16
	case 0x05:
		return 8
	default:
		return 0
	}
}
