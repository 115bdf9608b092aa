package xspi

// EnterDeepPowerDown puts the flash in deep power-down. The chip gives no
// readable indication of the power state: wait Timings().PowerDown before
// the next command, which must be LeaveDeepPowerDown.
func (f *Flash) EnterDeepPowerDown() error {
	const op = "enter deep power-down"
	if err := f.indirect(op); err != nil {
		return err
	}
	if err := f.chip.EnterPowerDown(f.bus); err != nil {
		return f.fail(op, ErrComponentFailure, err)
	}
	f.log.V(1).Info("deep power-down entered")
	return nil
}

// LeaveDeepPowerDown wakes the flash by toggling chip select with a NOP.
// Wait Timings().PowerUp before the next command.
func (f *Flash) LeaveDeepPowerDown() error {
	const op = "leave deep power-down"
	if err := f.indirect(op); err != nil {
		return err
	}
	if err := f.chip.NoOperation(f.bus); err != nil {
		return f.fail(op, ErrComponentFailure, err)
	}
	f.log.V(1).Info("deep power-down left")
	return nil
}
