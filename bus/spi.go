package bus

import (
	"fmt"
	"io"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/spi"
)

// maxTx is the largest single transfer accepted by the MPSSE engine.
// [FTDI-AN_108]
const maxTx = 65536

// SPI is a single-line Bus over a periph.io SPI connection with a manually
// driven chip select. Memory-mapped mode is emulated: Window reads issue the
// mapped read command on demand.
type SPI struct {
	conn spi.Conn
	cs   gpio.PinOut

	mapped  *Command
	onClose []func() error
}

// NewSPI returns a Bus driving conn, asserting cs (active low) around each
// command.
func NewSPI(conn spi.Conn, cs gpio.PinOut) *SPI {
	return &SPI{conn: conn, cs: cs}
}

// tx wraps SPI transaction with CS assertion.
func (s *SPI) tx(buf []byte) (err error) {
	if err = s.cs.Out(gpio.Low); err != nil {
		return err
	}
	defer func() {
		if csErr := s.cs.Out(gpio.High); csErr != nil && err == nil {
			err = csErr
		}
	}()
	err = s.conn.Tx(buf, buf)
	return
}

func checkSingleLine(cmd *Command) error {
	if cmd.InstructionLines != Lines1 {
		return fmt.Errorf("%w: instruction on %d lines", ErrUnsupportedLines, cmd.InstructionLines)
	}
	if cmd.AddressLines > Lines1 || cmd.DataLines > Lines1 {
		return fmt.Errorf("%w: %s", ErrUnsupportedLines, cmd)
	}
	if cmd.DummyCycles%8 != 0 {
		return fmt.Errorf("%w: %d dummy cycles", ErrUnsupportedLines, cmd.DummyCycles)
	}
	return nil
}

// header encodes instruction, address and dummy bytes.
func header(cmd *Command, addr uint32) []byte {
	h := make([]byte, 0, 1+cmd.AddressSize+cmd.DummyCycles/8)
	h = append(h, cmd.Instruction)
	if cmd.AddressLines != LinesNone {
		for i := cmd.AddressSize - 1; i >= 0; i-- {
			h = append(h, byte(addr>>(8*i)))
		}
	}
	for i := 0; i < cmd.DummyCycles/8; i++ {
		h = append(h, 0)
	}
	return h
}

func (s *SPI) Command(cmd *Command, data []byte) error {
	if s.mapped != nil {
		return ErrMapped
	}
	if err := checkSingleLine(cmd); err != nil {
		return err
	}
	switch cmd.Direction {
	case DirRead:
		return s.read(cmd, data)
	case DirWrite:
		buf := append(header(cmd, cmd.Address), data...)
		if len(buf) > maxTx {
			return fmt.Errorf("write of %d bytes exceeds transfer size", len(data))
		}
		return s.tx(buf)
	default:
		return s.tx(header(cmd, cmd.Address))
	}
}

// read splits the data phase into multiple transactions if needed to stay
// within the maximum transaction size. Commands without an address are
// issued as one transaction.
func (s *SPI) read(cmd *Command, out []byte) error {
	addr := cmd.Address
	off := 0
	for {
		h := header(cmd, addr)
		chunk := len(out) - off
		if cmd.AddressLines != LinesNone {
			chunk = min(chunk, maxTx-len(h))
		}
		buf := make([]byte, len(h)+chunk)
		copy(buf, h)

		if err := s.tx(buf); err != nil {
			return err
		}

		copy(out[off:], buf[len(h):])

		addr += uint32(chunk)
		off += chunk
		if off >= len(out) {
			return nil
		}
	}
}

func (s *SPI) MemoryMapped(cmd *Command) error {
	if s.mapped != nil {
		return ErrMapped
	}
	if cmd.Direction != DirRead {
		return fmt.Errorf("memory-mapped command must read, got %s", cmd.Direction)
	}
	if err := checkSingleLine(cmd); err != nil {
		return err
	}
	c := *cmd
	s.mapped = &c
	return nil
}

func (s *SPI) Abort() error {
	s.mapped = nil
	return nil
}

// Window returns the emulated memory-mapped region.
func (s *SPI) Window() io.ReaderAt {
	return window{s}
}

type window struct {
	s *SPI
}

func (w window) ReadAt(p []byte, off int64) (int, error) {
	if w.s.mapped == nil {
		return 0, ErrNotMapped
	}
	cmd := *w.s.mapped
	cmd.Address = uint32(off)
	if err := w.s.read(&cmd, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close runs the release functions registered by the opener, last first.
func (s *SPI) Close() error {
	var err error
	for i := len(s.onClose) - 1; i >= 0; i-- {
		if cerr := s.onClose[i](); cerr != nil && err == nil {
			err = cerr
		}
	}
	s.onClose = nil
	return err
}
