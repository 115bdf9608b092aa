// Package sim models an MX25R3235F behind a bus.Bus so the driver can be
// exercised without hardware. It follows the datasheet where the driver can
// observe it: commands are ignored while the chip is busy or in deep
// power-down, program and erase need the write enable latch, programs wrap
// within a page and only clear bits.
package sim

import (
	"fmt"
	"io"
	"os"

	"github.com/gentam/xspi/bus"
	"github.com/gentam/xspi/mx25r"
)

// Transaction is one logged command with its data phase length.
type Transaction struct {
	bus.Command
	Len int
}

// Flash is a simulated chip. The zero value is not usable; call New.
type Flash struct {
	// BusyReads is the number of status register reads that report WIP
	// after a program or status register write.
	BusyReads int
	// EraseBusyReads is the same for erases.
	EraseBusyReads int
	// StuckBusy keeps WIP set regardless of the countdowns.
	StuckBusy bool
	// IgnoreQuadEnable makes status register writes leave QE unchanged.
	IgnoreQuadEnable bool
	// FailOn, when set, is consulted before each command; a non-nil error is
	// returned to the caller and the command has no effect.
	FailOn func(cmd bus.Command) error

	// Log records every command that reached the chip.
	Log []Transaction

	mem  []byte
	sr   mx25r.StatusRegister
	scur mx25r.SecurityRegister

	busyLeft      int
	suspendedLeft int
	erasing       bool
	resetEnabled  bool
	poweredDown   bool

	mapped *bus.Command
	Aborts int
	Tuned  int
	Closed bool
}

// New returns an erased chip.
func New() *Flash {
	f := &Flash{mem: make([]byte, mx25r.FlashSize)}
	for i := range f.mem {
		f.mem[i] = 0xFF
	}
	return f
}

// Mem returns the backing array.
func (f *Flash) Mem() []byte { return f.mem }

// StatusRegister returns the status register without affecting countdowns.
func (f *Flash) StatusRegister() mx25r.StatusRegister { return f.status() }

// SetSecurity ORs bits into the security register, e.g. to inject P_FAIL.
func (f *Flash) SetSecurity(bits mx25r.SecurityRegister) { f.scur |= bits }

// StartErase puts the chip in the middle of an erase lasting n status reads.
func (f *Flash) StartErase(n int) {
	f.erasing = true
	f.busyLeft = n
}

func (f *Flash) PoweredDown() bool { return f.poweredDown }
func (f *Flash) Mapped() bool      { return f.mapped != nil }

// Instructions returns the logged instruction bytes in order.
func (f *Flash) Instructions() []byte {
	ops := make([]byte, len(f.Log))
	for i, t := range f.Log {
		ops[i] = t.Instruction
	}
	return ops
}

// Filter returns the logged transactions with instruction op.
func (f *Flash) Filter(op byte) []Transaction {
	var out []Transaction
	for _, t := range f.Log {
		if t.Instruction == op {
			out = append(out, t)
		}
	}
	return out
}

func (f *Flash) busy() bool { return f.StuckBusy || f.busyLeft > 0 }

func (f *Flash) status() mx25r.StatusRegister {
	sr := f.sr
	if f.busy() {
		sr |= mx25r.SRWriteInProgress
	}
	return sr
}

// tick consumes one status read of the running operation.
func (f *Flash) tick() {
	if f.busyLeft == 0 {
		return
	}
	f.busyLeft--
	if f.busyLeft == 0 {
		f.erasing = false
	}
}

func (f *Flash) Command(cmd *bus.Command, data []byte) error {
	if f.mapped != nil {
		return bus.ErrMapped
	}
	f.Log = append(f.Log, Transaction{Command: *cmd, Len: len(data)})
	if f.FailOn != nil {
		if err := f.FailOn(*cmd); err != nil {
			return err
		}
	}

	op := cmd.Instruction
	armed := f.resetEnabled
	f.resetEnabled = op == mx25r.CmdResetEnable

	if f.poweredDown {
		if op == mx25r.CmdNoOperation {
			f.poweredDown = false
		}
		if cmd.Direction == bus.DirRead {
			clear(data)
		}
		return nil
	}

	if f.busy() {
		switch op {
		case mx25r.CmdReadStatusRegister:
			data[0] = byte(f.status())
			f.tick()
		case mx25r.CmdReadSecurity:
			data[0] = byte(f.scur)
		case mx25r.CmdSuspend:
			f.suspend()
		case mx25r.CmdResetMemory:
			f.reset(armed)
		}
		return nil
	}

	switch op {
	case mx25r.CmdReadStatusRegister:
		data[0] = byte(f.status())
	case mx25r.CmdReadSecurity:
		data[0] = byte(f.scur)
	case mx25r.CmdReadID:
		copy(data, mx25r.JEDECID[:])
	case mx25r.CmdWriteEnable:
		f.sr |= mx25r.SRWriteEnableLatch
	case mx25r.CmdWriteDisable:
		f.sr &^= mx25r.SRWriteEnableLatch
	case mx25r.CmdWriteStatusRegister:
		if !f.sr.WriteEnabled() || len(data) == 0 {
			return nil
		}
		keep := mx25r.StatusRegister(mx25r.SRWriteInProgress | mx25r.SRWriteEnableLatch)
		if f.IgnoreQuadEnable {
			keep |= mx25r.SRQuadEnable
		}
		f.sr = f.sr&keep | mx25r.StatusRegister(data[0])&^keep
		f.done(f.BusyReads)
	case mx25r.CmdRead, mx25r.CmdFastRead:
		f.read(cmd.Address, data)
	case mx25r.CmdQuadIORead:
		if !f.sr.QuadEnable() {
			for i := range data {
				data[i] = 0xFF
			}
			return nil
		}
		f.read(cmd.Address, data)
	case mx25r.CmdPageProgram, mx25r.CmdQuadPageProgram:
		if !f.sr.WriteEnabled() {
			return nil
		}
		if op == mx25r.CmdQuadPageProgram && !f.sr.QuadEnable() {
			return nil
		}
		f.program(cmd.Address, data)
		f.done(f.BusyReads)
	case mx25r.CmdSectorErase, mx25r.CmdBlockErase32KB, mx25r.CmdBlockErase64KB, mx25r.CmdChipErase:
		if !f.sr.WriteEnabled() {
			return nil
		}
		f.erase(op, cmd.Address)
		f.erasing = true
		f.done(f.EraseBusyReads)
	case mx25r.CmdResume:
		f.resume()
	case mx25r.CmdDeepPowerDown:
		f.poweredDown = true
	case mx25r.CmdResetMemory:
		f.reset(armed)
	case mx25r.CmdSuspend, mx25r.CmdNoOperation, mx25r.CmdResetEnable:
	default:
		return fmt.Errorf("sim: unknown instruction %02X", op)
	}
	return nil
}

// done starts an operation lasting n status reads and drops WEL.
func (f *Flash) done(n int) {
	f.sr &^= mx25r.SRWriteEnableLatch
	f.busyLeft = n
	if n == 0 {
		f.erasing = false
	}
}

func (f *Flash) read(addr uint32, data []byte) {
	for i := range data {
		data[i] = f.mem[(int(addr)+i)%len(f.mem)]
	}
}

func (f *Flash) program(addr uint32, data []byte) {
	page := int(addr) &^ (mx25r.PageSize - 1)
	off := int(addr) % mx25r.PageSize
	for i, b := range data {
		f.mem[page+(off+i)%mx25r.PageSize] &= b
	}
}

func (f *Flash) erase(op byte, addr uint32) {
	var size int
	switch op {
	case mx25r.CmdSectorErase:
		size = mx25r.SubsectorSize
	case mx25r.CmdBlockErase32KB:
		size = mx25r.HalfSectorSize
	case mx25r.CmdBlockErase64KB:
		size = mx25r.SectorSize
	default:
		size = len(f.mem)
	}
	start := int(addr) &^ (size - 1)
	for i := start; i < start+size && i < len(f.mem); i++ {
		f.mem[i] = 0xFF
	}
}

func (f *Flash) suspend() {
	if !f.erasing || f.busyLeft == 0 || f.scur.Suspended() {
		return
	}
	f.scur |= mx25r.SecurEraseSuspend
	f.suspendedLeft = f.busyLeft
	f.busyLeft = 0
}

func (f *Flash) resume() {
	if !f.scur.EraseSuspended() {
		return
	}
	f.scur &^= mx25r.SecurEraseSuspend
	f.busyLeft = max(f.suspendedLeft, 1)
	f.suspendedLeft = 0
}

// reset is a software reset, effective only right after reset enable.
// Volatile state is lost; QE is non-volatile.
func (f *Flash) reset(armed bool) {
	if !armed {
		return
	}
	f.sr &^= mx25r.SRWriteEnableLatch
	f.scur &^= mx25r.SecurEraseSuspend | mx25r.SecurProgramSuspend
	f.busyLeft = 0
	f.suspendedLeft = 0
	f.erasing = false
}

func (f *Flash) MemoryMapped(cmd *bus.Command) error {
	if f.mapped != nil {
		return bus.ErrMapped
	}
	c := *cmd
	f.mapped = &c
	return nil
}

func (f *Flash) Abort() error {
	f.mapped = nil
	f.Aborts++
	return nil
}

func (f *Flash) TuneDelay() error {
	f.Tuned++
	return nil
}

func (f *Flash) Close() error {
	f.Closed = true
	return nil
}

// Window returns the memory-mapped region.
func (f *Flash) Window() io.ReaderAt { return window{f} }

type window struct{ f *Flash }

func (w window) ReadAt(p []byte, off int64) (int, error) {
	if w.f.mapped == nil {
		return 0, bus.ErrNotMapped
	}
	if off < 0 || off >= int64(len(w.f.mem)) {
		return 0, io.EOF
	}
	n := copy(p, w.f.mem[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// LoadImage replaces the memory contents with the file at path. A missing
// file leaves the chip erased.
func (f *Flash) LoadImage(path string) error {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(b) > len(f.mem) {
		return fmt.Errorf("image %s is %d bytes, flash is %d", path, len(b), len(f.mem))
	}
	copy(f.mem, b)
	return nil
}

// SaveImage writes the memory contents to path.
func (f *Flash) SaveImage(path string) error {
	return os.WriteFile(path, f.mem, 0644)
}
