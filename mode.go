package xspi

import (
	"fmt"
	"io"

	"github.com/gentam/xspi/bus"
	"github.com/gentam/xspi/mx25r"
)

// SetInterfaceMode switches the flash between single-line and quad-line
// commands. It fails with ErrMmpLockFailure while memory-mapped; switching
// to the current mode issues no command.
func (f *Flash) SetInterfaceMode(mode bus.Mode) error {
	const op = "set interface mode"
	if mode != bus.SingleLine && mode != bus.QuadLine {
		return f.fail(op, ErrWrongParam, mx25r.ErrInvalidMode)
	}
	if err := f.indirect(op); err != nil {
		return err
	}
	if err := f.configure(mode); err != nil {
		return f.fail(op, ErrComponentFailure, err)
	}
	return nil
}

// configure applies mode to the chip and records it in the context.
func (f *Flash) configure(mode bus.Mode) error {
	if f.mode != mode {
		if err := f.setQuadEnable(mode == bus.QuadLine); err != nil {
			return err
		}
		f.log.V(1).Info("interface mode changed", "from", f.mode, "to", mode)
	}
	f.access = AccessIndirect
	f.mode = mode
	return nil
}

// setQuadEnable does a read-modify-write of the QE bit and reads it back:
// the chip drops the write silently when the register is protected.
func (f *Flash) setQuadEnable(on bool) error {
	if err := f.waitUntilReady(); err != nil {
		return err
	}
	sr, err := f.chip.ReadStatusRegister(f.bus)
	if err != nil {
		return fmt.Errorf("read status register: %w", err)
	}
	if err := f.chip.WriteEnable(f.bus); err != nil {
		return fmt.Errorf("write enable: %w", err)
	}

	sr &^= mx25r.SRWriteInProgress | mx25r.SRWriteEnableLatch
	if on {
		sr |= mx25r.SRQuadEnable
	} else {
		sr &^= mx25r.SRQuadEnable
	}
	if err := f.chip.WriteStatusRegister(f.bus, sr); err != nil {
		return fmt.Errorf("write status register: %w", err)
	}
	if err := f.waitUntilReady(); err != nil {
		return err
	}

	sr, err = f.chip.ReadStatusRegister(f.bus)
	if err != nil {
		return fmt.Errorf("read status register: %w", err)
	}
	if sr.QuadEnable() != on {
		return fmt.Errorf("%w: QE=%t, want %t", ErrVerify, sr.QuadEnable(), on)
	}
	return nil
}

// EnableMemoryMapped maps the flash into the controller's address window
// using the read command of the current mode. Only one instance of the
// board may be mapped; until DisableMemoryMapped every other operation on
// this instance fails with ErrMmpLockFailure.
func (f *Flash) EnableMemoryMapped() error {
	const op = "enable memory-mapped mode"
	if err := f.indirect(op); err != nil {
		return err
	}
	if err := f.board.acquireWindow(f); err != nil {
		return f.fail(op, ErrMmpLockFailure, err)
	}
	if err := f.chip.EnableMemoryMappedMode(f.bus, f.mode); err != nil {
		f.board.releaseWindow(f)
		return f.fail(op, ErrComponentFailure, err)
	}
	f.access = AccessMemoryMapped
	f.log.V(1).Info("memory-mapped mode enabled", "mode", f.mode)
	return nil
}

// DisableMemoryMapped aborts memory-mapped mode and returns to indirect
// access. It fails with ErrMmpUnlockFailure, issuing nothing, when the
// instance is not mapped.
func (f *Flash) DisableMemoryMapped() error {
	const op = "disable memory-mapped mode"
	if f.access != AccessMemoryMapped {
		return f.fail(op, ErrMmpUnlockFailure, nil)
	}
	if err := f.bus.Abort(); err != nil {
		return f.fail(op, ErrPeripheralFailure, err)
	}
	f.access = AccessIndirect
	f.board.releaseWindow(f)
	f.log.V(1).Info("memory-mapped mode disabled")
	return nil
}

// MappedReader returns the memory-mapped window, valid until
// DisableMemoryMapped.
func (f *Flash) MappedReader() (io.ReaderAt, error) {
	const op = "mapped reader"
	if f.access != AccessMemoryMapped {
		return nil, f.fail(op, ErrMmpUnlockFailure, nil)
	}
	m, ok := f.bus.(bus.Mapper)
	if !ok {
		return nil, f.fail(op, ErrPeripheralFailure, fmt.Errorf("%T has no mapped window", f.bus))
	}
	return m.Window(), nil
}
