// Package bus describes the transaction primitive of an external memory
// interface: one fully specified command (instruction, address, dummy cycles,
// data) issued against a serial flash, blocking until it completes.
package bus

import (
	"errors"
	"fmt"
	"io"
)

// Lines is the number of data lines used by one phase of a command.
// LinesNone omits the phase.
type Lines uint8

const (
	LinesNone Lines = 0
	Lines1    Lines = 1
	Lines2    Lines = 2
	Lines4    Lines = 4
)

// Direction of the data phase.
type Direction uint8

const (
	DirNone Direction = iota
	DirRead
	DirWrite
)

func (d Direction) String() string {
	switch d {
	case DirRead:
		return "read"
	case DirWrite:
		return "write"
	default:
		return "none"
	}
}

// Mode is the interface mode of the flash, written as
// instruction-address-data line counts.
type Mode uint8

const (
	SingleLine Mode = iota // 1-1-1, power-on default
	QuadLine               // 1-4-4
)

func (m Mode) String() string {
	switch m {
	case SingleLine:
		return "1-1-1"
	case QuadLine:
		return "1-4-4"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

// ParseMode accepts "single", "spi", "1-1-1", "quad", "qpi" or "1-4-4".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "single", "spi", "1-1-1":
		return SingleLine, nil
	case "quad", "qpi", "1-4-4":
		return QuadLine, nil
	}
	return 0, fmt.Errorf("unknown interface mode %q", s)
}

// Command is one bus transaction.
type Command struct {
	Instruction      byte
	InstructionLines Lines

	Address      uint32
	AddressLines Lines
	AddressSize  int // bytes, 0 when AddressLines is LinesNone

	DummyCycles int

	DataLines Lines
	Direction Direction
}

func (c Command) String() string {
	s := fmt.Sprintf("%02X", c.Instruction)
	if c.AddressLines != LinesNone {
		s += fmt.Sprintf(" @%06X", c.Address)
	}
	if c.DummyCycles > 0 {
		s += fmt.Sprintf(" +%dcyc", c.DummyCycles)
	}
	if c.Direction != DirNone {
		s += fmt.Sprintf(" %s", c.Direction)
	}
	return fmt.Sprintf("%s %d-%d-%d", s, c.InstructionLines, c.AddressLines, c.DataLines)
}

// Bus issues commands against one flash device.
type Bus interface {
	// Command issues cmd. For DirWrite data is sent, for DirRead data is
	// filled; len(data) is the data phase length.
	Command(cmd *Command, data []byte) error

	// MemoryMapped switches the controller to memory-mapped reads using cmd
	// as the read command. Command fails until Abort is called.
	MemoryMapped(cmd *Command) error

	// Abort cancels the ongoing transaction, leaving memory-mapped mode.
	Abort() error
}

// Mapper is implemented by buses that expose the memory-mapped window.
type Mapper interface {
	Window() io.ReaderAt
}

// DelayTuner is implemented by controllers with a sampling delay line that
// must be calibrated after initialization.
type DelayTuner interface {
	TuneDelay() error
}

var (
	ErrMapped           = errors.New("bus: memory-mapped mode active")
	ErrNotMapped        = errors.New("bus: memory-mapped mode not active")
	ErrUnsupportedLines = errors.New("bus: unsupported line configuration")
)
