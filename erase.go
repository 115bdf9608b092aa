package xspi

import (
	"fmt"
	"time"
)

// EraseBlock starts erasing the block of the given size containing addr and
// returns without waiting for it; poll Status for completion.
func (f *Flash) EraseBlock(addr uint32, size EraseSize) error {
	const op = "erase block"
	if err := f.indirect(op); err != nil {
		return err
	}
	if size.Bytes() == 0 {
		return f.fail(op, ErrWrongParam, fmt.Errorf("erase size %s", size))
	}
	if err := f.checkRange(op, addr, 1); err != nil {
		return err
	}
	if err := f.startErase(func() error { return f.chip.BlockErase(f.bus, addr, size) }); err != nil {
		return f.fail(op, ErrComponentFailure, err)
	}
	f.log.V(1).Info("erase started", "addr", addr, "size", size)
	return nil
}

// EraseChip starts erasing the whole chip and returns without waiting.
func (f *Flash) EraseChip() error {
	const op = "erase chip"
	if err := f.indirect(op); err != nil {
		return err
	}
	if err := f.startErase(func() error { return f.chip.ChipErase(f.bus) }); err != nil {
		return f.fail(op, ErrComponentFailure, err)
	}
	f.log.V(1).Info("chip erase started")
	return nil
}

func (f *Flash) startErase(issue func() error) error {
	if err := f.waitUntilReady(); err != nil {
		return err
	}
	if err := f.chip.WriteEnable(f.bus); err != nil {
		return fmt.Errorf("write enable: %w", err)
	}
	return issue()
}

// Status reads the device state. Fail flags take priority over suspend
// flags, which take priority over WIP.
func (f *Flash) Status() (Status, error) {
	const op = "status"
	if err := f.indirect(op); err != nil {
		return 0, err
	}
	scur, err := f.chip.ReadSecurityRegister(f.bus)
	if err != nil {
		return 0, f.fail(op, ErrComponentFailure, err)
	}
	switch {
	case scur.Failed():
		return StatusFault, nil
	case scur.Suspended():
		return StatusSuspended, nil
	}
	sr, err := f.chip.ReadStatusRegister(f.bus)
	if err != nil {
		return 0, f.fail(op, ErrComponentFailure, err)
	}
	if sr.Busy() {
		return StatusBusy, nil
	}
	return StatusReady, nil
}

// expect fails unless the device status is want.
func (f *Flash) expect(op string, want Status) error {
	got, err := f.Status()
	if err != nil {
		return err
	}
	if got != want {
		return f.fail(op, ErrComponentFailure, &StatusError{Want: want, Got: got})
	}
	return nil
}

// SuspendErase pauses the erase in progress. The device must be busy before
// and suspended after; the suspend command is not issued otherwise.
func (f *Flash) SuspendErase() error {
	const op = "suspend erase"
	if err := f.indirect(op); err != nil {
		return err
	}
	if err := f.expect(op, StatusBusy); err != nil {
		return err
	}
	if err := f.chip.Suspend(f.bus); err != nil {
		return f.fail(op, ErrComponentFailure, err)
	}
	if err := f.expect(op, StatusSuspended); err != nil {
		return err
	}
	f.log.V(1).Info("erase suspended")
	return nil
}

// ResumeErase continues a suspended erase. The device must be suspended
// before and busy after. Status reads the security register before the
// status register, so the busy check also covers the suspend flags having
// cleared.
func (f *Flash) ResumeErase() error {
	const op = "resume erase"
	if err := f.indirect(op); err != nil {
		return err
	}
	if err := f.expect(op, StatusSuspended); err != nil {
		return err
	}
	if err := f.chip.Resume(f.bus); err != nil {
		return f.fail(op, ErrComponentFailure, err)
	}
	if err := f.expect(op, StatusBusy); err != nil {
		return err
	}
	f.log.V(1).Info("erase resumed")
	return nil
}

// Erase erases the size bytes starting from baseAddr by repeatedly calling
// EraseBlock with 64KB blocks where aligned and 4KB blocks elsewhere,
// waiting for each block to finish. baseAddr and size must be 4KB aligned.
func (f *Flash) Erase(baseAddr, size uint32) error {
	const op = "erase"
	if err := f.indirect(op); err != nil {
		return err
	}
	info := f.chip.Info()
	sector, subsector := info.EraseSectorSize, info.EraseSubSectorSize
	if baseAddr%subsector != 0 || size%subsector != 0 {
		return f.fail(op, ErrWrongParam,
			fmt.Errorf("range 0x%06X+%d not aligned to %d bytes", baseAddr, size, subsector))
	}
	if err := f.checkRange(op, baseAddr, int(size)); err != nil {
		return err
	}

	remaining := size
	addr := baseAddr
	for remaining > 0 {
		bs, interval, timeout := Erase4K, 50*time.Millisecond, f.tErase4KB()
		if addr%sector == 0 && remaining >= sector {
			bs, interval, timeout = Erase64K, 100*time.Millisecond, f.tErase64KB()
		}
		if err := f.EraseBlock(addr, bs); err != nil {
			return err
		}
		if err := f.busyWait(interval, timeout); err != nil {
			return f.fail(op, ErrComponentFailure, fmt.Errorf("block at 0x%06X: %w", addr, err))
		}
		addr += bs.Bytes()
		remaining -= bs.Bytes()
	}
	return nil
}

// busyWait waits for the flash to become ready by polling the status
// register with specified intervals, or until the timeout expires, then
// checks the erase fail flag. Set timeout to 0 to wait indefinitely.
func (f *Flash) busyWait(interval, timeout time.Duration) error {
	ready := func() (bool, error) {
		sr, err := f.chip.ReadStatusRegister(f.bus)
		if err != nil {
			return false, err
		}
		return !sr.Busy(), nil
	}

	done, err := ready()
	if err != nil {
		return err
	}
	if !done {
		if err := f.tick(interval, timeout, ready); err != nil {
			return err
		}
	}

	scur, err := f.chip.ReadSecurityRegister(f.bus)
	if err != nil {
		return err
	}
	if scur.Failed() {
		return fmt.Errorf("security register %s", scur)
	}
	return nil
}

func (f *Flash) tick(interval, timeout time.Duration, ready func() (bool, error)) error {
	timer := time.NewTimer(timeout)
	if timeout == 0 {
		timer.Stop() // disable timer for unconfigured timeout
	}
	defer timer.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-timer.C:
			return fmt.Errorf("%w after %s", ErrBusyTimeout, timeout)
		case <-ticker.C:
			done, err := ready()
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
	}
}
