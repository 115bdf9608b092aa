package xspi

import (
	"errors"
	"fmt"
	"io"
	"math/bits"

	"github.com/go-logr/logr"

	"github.com/gentam/xspi/bus"
	"github.com/gentam/xspi/mx25r"
)

// Flash is the context of one flash instance. A Flash has a single owner:
// its methods must not be called concurrently.
type Flash struct {
	board *Board
	index int
	chip  Component
	log   logr.Logger

	access AccessState
	mode   bus.Mode
	bus    bus.Bus
	pr     *flashParams
}

// Index returns the instance number.
func (f *Flash) Index() int { return f.index }

// Access returns how the instance currently reaches the flash.
func (f *Flash) Access() AccessState { return f.access }

// Mode returns the current interface mode.
func (f *Flash) Mode() bus.Mode { return f.mode }

func (f *Flash) fail(op string, kind, cause error) error {
	err := &Error{Op: op, Instance: f.index, Kind: kind, Err: cause}
	f.log.V(1).Info("operation failed", "op", op, "error", err)
	return err
}

// indirect checks that an indirect-mode command may be issued.
func (f *Flash) indirect(op string) error {
	switch f.access {
	case AccessNone:
		return f.fail(op, ErrPeripheralFailure, ErrNotInitialized)
	case AccessMemoryMapped:
		return f.fail(op, ErrMmpLockFailure, nil)
	}
	return nil
}

// Init brings the instance up in mode: board hooks, peripheral
// configuration, memory reset, then interface mode configuration. Init on an
// initialized instance does nothing. A failure after the reset leaves the
// instance in indirect access: retry the mode with SetInterfaceMode, not
// Init.
func (f *Flash) Init(mode bus.Mode) error {
	const op = "init"
	if f.access != AccessNone {
		return nil
	}
	if mode != bus.SingleLine && mode != bus.QuadLine {
		return f.fail(op, ErrWrongParam, mx25r.ErrInvalidMode)
	}

	cfg := f.board.cfg
	if cfg.hooks.MspInit != nil {
		if err := cfg.hooks.MspInit(f.index); err != nil {
			return f.fail(op, ErrPeripheralFailure, fmt.Errorf("msp init: %w", err))
		}
	}

	info := f.chip.Info()
	pc := PeripheralConfig{
		MemorySize:           uint32(bits.TrailingZeros32(info.FlashSize)),
		ClockPrescaler:       cfg.clockPrescaler,
		SampleShifting:       cfg.sampleShifting,
		ChipSelectHighCycles: 2,
	}
	b, err := f.board.init(f.index, pc)
	if err != nil {
		return f.fail(op, ErrPeripheralFailure, err)
	}
	f.bus = b

	if t, ok := b.(bus.DelayTuner); ok {
		if err := t.TuneDelay(); err != nil {
			f.log.V(1).Info("delay block calibration failed", "error", err)
		}
	}

	if err := f.resetMemory(); err != nil {
		f.abandon()
		return f.fail(op, ErrComponentFailure, fmt.Errorf("reset: %w", err))
	}
	if err := f.waitUntilReady(); err != nil {
		return f.fail(op, ErrComponentFailure, err)
	}
	if err := f.configure(mode); err != nil {
		return f.fail(op, ErrComponentFailure, fmt.Errorf("configure %s: %w", mode, err))
	}

	f.log.V(1).Info("initialized", "mode", mode, "prescaler", pc.ClockPrescaler)
	return nil
}

// abandon drops the bus after a failed reset.
func (f *Flash) abandon() {
	if c, ok := f.bus.(io.Closer); ok {
		c.Close()
	}
	f.bus = nil
	f.access = AccessNone
	f.mode = bus.SingleLine
}

// resetMemory issues a software reset. The chip comes back in single-line
// mode and the context follows.
func (f *Flash) resetMemory() error {
	if err := f.chip.ResetEnable(f.bus); err != nil {
		return err
	}
	if err := f.chip.ResetMemory(f.bus); err != nil {
		return err
	}
	f.access = AccessIndirect
	f.mode = bus.SingleLine
	return f.waitUntilReady()
}

// Deinit leaves memory-mapped mode if needed, resets the context and
// releases the peripheral.
func (f *Flash) Deinit() error {
	const op = "deinit"
	if f.access == AccessNone {
		return nil
	}
	if f.access == AccessMemoryMapped {
		if err := f.DisableMemoryMapped(); err != nil {
			return err
		}
	}

	f.access = AccessNone
	f.mode = bus.SingleLine
	f.pr = nil

	var errs []error
	if h := f.board.cfg.hooks.MspDeInit; h != nil {
		if err := h(f.index); err != nil {
			errs = append(errs, fmt.Errorf("msp deinit: %w", err))
		}
	}
	if c, ok := f.bus.(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	f.bus = nil
	if len(errs) > 0 {
		return f.fail(op, ErrPeripheralFailure, errors.Join(errs...))
	}
	f.log.V(1).Info("deinitialized")
	return nil
}

// Info returns the memory organization of the flash.
func (f *Flash) Info() Info {
	return f.chip.Info()
}

// ReadID returns the JEDEC ID of the flash chip and selects its timing
// parameters. It returns a non-empty name for known IDs.
func (f *Flash) ReadID() (id [3]byte, name string, err error) {
	const op = "read id"
	if err = f.indirect(op); err != nil {
		return
	}
	id, err = f.chip.ReadID(f.bus)
	if err != nil {
		return id, "", f.fail(op, ErrComponentFailure, err)
	}
	if params, ok := knownFlash[id]; ok {
		f.pr = &params
		name = params.name
	}
	return id, name, nil
}
