// Package mx25r encodes the command set of the Macronix MX25R3235F serial
// NOR flash into bus transactions.
//
// # References:
//
//   - [MX25R3235F]: MX25R3235F Ultra Low Power 32M-BIT Serial Multi I/O Flash Memory datasheet (https://www.macronix.com/Lists/Datasheet/Attachments/8763/MX25R3235F,%20Wide%20Range,%2032Mb,%20v1.8.pdf)
package mx25r

import (
	"errors"
	"fmt"

	"github.com/gentam/xspi/bus"
)

// Commands: [MX25R3235F|Table 6. Command Set]
const (
	CmdRead                = 0x03
	CmdFastRead            = 0x0B
	CmdQuadIORead          = 0xEB // 4READ
	CmdPageProgram         = 0x02
	CmdQuadPageProgram     = 0x38 // 4PP
	CmdSectorErase         = 0x20 // 4KB
	CmdBlockErase32KB      = 0x52
	CmdBlockErase64KB      = 0xD8
	CmdChipErase           = 0x60
	CmdReadStatusRegister  = 0x05
	CmdWriteStatusRegister = 0x01
	CmdReadSecurity        = 0x2B // RDSCUR
	CmdWriteEnable         = 0x06
	CmdWriteDisable        = 0x04
	CmdReadID              = 0x9F
	CmdSuspend             = 0xB0 // PGM/ERS Suspend
	CmdResume              = 0x30 // PGM/ERS Resume
	CmdDeepPowerDown       = 0xB9
	CmdNoOperation         = 0x00
	CmdResetEnable         = 0x66
	CmdResetMemory         = 0x99
)

// Dummy cycles for the read commands. [MX25R3235F|Table 7. Read Dummy Cycle]
const (
	DummyCyclesFastRead = 8
	DummyCyclesQuadRead = 6
)

// Geometry. [MX25R3235F|Table 2. Memory Organization]
const (
	FlashSize       = 0x400000 // 32 Mbits
	SectorSize      = 64 << 10
	HalfSectorSize  = 32 << 10
	SubsectorSize   = 4 << 10
	PageSize        = 256
	AddressSize     = 3
	SectorCount     = FlashSize / SectorSize
	HalfSectorCount = FlashSize / HalfSectorSize
	SubsectorCount  = FlashSize / SubsectorSize
	PageCount       = FlashSize / PageSize
)

// JEDECID is the manufacturer, memory type and density returned by RDID.
var JEDECID = [3]byte{0xC2, 0x28, 0x16}

// Info describes the memory organization.
type Info struct {
	FlashSize             uint32
	EraseSectorSize       uint32
	EraseSectorsNumber    uint32
	EraseSubSectorSize    uint32
	EraseSubSectorNumber  uint32
	EraseSubSector1Size   uint32
	EraseSubSector1Number uint32
	ProgPageSize          uint32
	ProgPagesNumber       uint32
}

// EraseSize selects the block erase granularity.
type EraseSize uint8

const (
	Erase4K EraseSize = iota
	Erase32K
	Erase64K
)

// Bytes returns the number of bytes erased.
func (e EraseSize) Bytes() uint32 {
	switch e {
	case Erase4K:
		return SubsectorSize
	case Erase32K:
		return HalfSectorSize
	case Erase64K:
		return SectorSize
	}
	return 0
}

func (e EraseSize) String() string {
	switch e {
	case Erase4K:
		return "4K"
	case Erase32K:
		return "32K"
	case Erase64K:
		return "64K"
	}
	return fmt.Sprintf("EraseSize(%d)", uint8(e))
}

func (e EraseSize) opcode() (byte, error) {
	switch e {
	case Erase4K:
		return CmdSectorErase, nil
	case Erase32K:
		return CmdBlockErase32KB, nil
	case Erase64K:
		return CmdBlockErase64KB, nil
	}
	return 0, fmt.Errorf("unsupported erase size %s", e)
}

var ErrInvalidMode = errors.New("mx25r: invalid interface mode")

// Chip is the MX25R3235F command encoder. It holds no state; the interface
// mode is passed by the caller for commands whose encoding depends on it.
type Chip struct{}

func New() Chip { return Chip{} }

// Info returns the memory organization.
func (Chip) Info() Info {
	return Info{
		FlashSize:             FlashSize,
		EraseSectorSize:       SectorSize,
		EraseSectorsNumber:    SectorCount,
		EraseSubSectorSize:    SubsectorSize,
		EraseSubSectorNumber:  SubsectorCount,
		EraseSubSector1Size:   HalfSectorSize,
		EraseSubSector1Number: HalfSectorCount,
		ProgPageSize:          PageSize,
		ProgPagesNumber:       PageCount,
	}
}

func instruction(op byte) *bus.Command {
	return &bus.Command{Instruction: op, InstructionLines: bus.Lines1}
}

func addressed(op byte, addr uint32, lines bus.Lines) *bus.Command {
	return &bus.Command{
		Instruction:      op,
		InstructionLines: bus.Lines1,
		Address:          addr,
		AddressLines:     lines,
		AddressSize:      AddressSize,
	}
}

// ReadCommand returns the read command used for mode, both for indirect
// reads and for the memory-mapped window.
func ReadCommand(mode bus.Mode, addr uint32) (*bus.Command, error) {
	var cmd *bus.Command
	switch mode {
	case bus.SingleLine:
		cmd = addressed(CmdFastRead, addr, bus.Lines1)
		cmd.DummyCycles = DummyCyclesFastRead
		cmd.DataLines = bus.Lines1
	case bus.QuadLine:
		cmd = addressed(CmdQuadIORead, addr, bus.Lines4)
		cmd.DummyCycles = DummyCyclesQuadRead
		cmd.DataLines = bus.Lines4
	default:
		return nil, ErrInvalidMode
	}
	cmd.Direction = bus.DirRead
	return cmd, nil
}

// Read reads len(p) bytes from addr.
func (Chip) Read(b bus.Bus, mode bus.Mode, p []byte, addr uint32) error {
	cmd, err := ReadCommand(mode, addr)
	if err != nil {
		return err
	}
	return b.Command(cmd, p)
}

// PageProgram programs p at addr. p must not cross a page boundary; the chip
// wraps to the start of the page otherwise.
func (Chip) PageProgram(b bus.Bus, mode bus.Mode, p []byte, addr uint32) error {
	if len(p) > PageSize {
		return fmt.Errorf("page program of %d bytes exceeds page size", len(p))
	}
	var cmd *bus.Command
	switch mode {
	case bus.SingleLine:
		cmd = addressed(CmdPageProgram, addr, bus.Lines1)
		cmd.DataLines = bus.Lines1
	case bus.QuadLine:
		cmd = addressed(CmdQuadPageProgram, addr, bus.Lines4)
		cmd.DataLines = bus.Lines4
	default:
		return ErrInvalidMode
	}
	cmd.Direction = bus.DirWrite
	return b.Command(cmd, p)
}

// BlockErase erases the block of the given size containing addr.
func (Chip) BlockErase(b bus.Bus, addr uint32, size EraseSize) error {
	op, err := size.opcode()
	if err != nil {
		return err
	}
	return b.Command(addressed(op, addr, bus.Lines1), nil)
}

func (Chip) ChipErase(b bus.Bus) error {
	return b.Command(instruction(CmdChipErase), nil)
}

func readRegister(b bus.Bus, op byte, n int) ([]byte, error) {
	cmd := instruction(op)
	cmd.DataLines = bus.Lines1
	cmd.Direction = bus.DirRead
	buf := make([]byte, n)
	if err := b.Command(cmd, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (Chip) ReadStatusRegister(b bus.Bus) (StatusRegister, error) {
	buf, err := readRegister(b, CmdReadStatusRegister, 1)
	if err != nil {
		return 0, err
	}
	return StatusRegister(buf[0]), nil
}

func (Chip) WriteStatusRegister(b bus.Bus, sr StatusRegister) error {
	cmd := instruction(CmdWriteStatusRegister)
	cmd.DataLines = bus.Lines1
	cmd.Direction = bus.DirWrite
	return b.Command(cmd, []byte{byte(sr)})
}

func (Chip) ReadSecurityRegister(b bus.Bus) (SecurityRegister, error) {
	buf, err := readRegister(b, CmdReadSecurity, 1)
	if err != nil {
		return 0, err
	}
	return SecurityRegister(buf[0]), nil
}

// ReadID returns the JEDEC ID.
func (Chip) ReadID(b bus.Bus) ([3]byte, error) {
	buf, err := readRegister(b, CmdReadID, 3)
	if err != nil {
		return [3]byte{}, err
	}
	return [3]byte(buf), nil
}

func (Chip) WriteEnable(b bus.Bus) error    { return b.Command(instruction(CmdWriteEnable), nil) }
func (Chip) Suspend(b bus.Bus) error        { return b.Command(instruction(CmdSuspend), nil) }
func (Chip) Resume(b bus.Bus) error         { return b.Command(instruction(CmdResume), nil) }
func (Chip) EnterPowerDown(b bus.Bus) error { return b.Command(instruction(CmdDeepPowerDown), nil) }
func (Chip) ResetEnable(b bus.Bus) error    { return b.Command(instruction(CmdResetEnable), nil) }
func (Chip) ResetMemory(b bus.Bus) error    { return b.Command(instruction(CmdResetMemory), nil) }

// NoOperation toggles chip select, which also releases deep power-down.
func (Chip) NoOperation(b bus.Bus) error { return b.Command(instruction(CmdNoOperation), nil) }

// EnableMemoryMappedMode configures the controller to serve reads of the
// mapped window with the read command of mode.
func (Chip) EnableMemoryMappedMode(b bus.Bus, mode bus.Mode) error {
	cmd, err := ReadCommand(mode, 0)
	if err != nil {
		return err
	}
	return b.MemoryMapped(cmd)
}
