package xspi

import "fmt"

// waitUntilReady reads the status register until WIP clears, at most
// pollBudget times. The chip ignores most commands while busy, so every
// state-changing operation is bracketed by this.
func (f *Flash) waitUntilReady() error {
	budget := f.board.cfg.pollBudget
	for i := 0; i < budget; i++ {
		sr, err := f.chip.ReadStatusRegister(f.bus)
		if err != nil {
			return fmt.Errorf("read status register: %w", err)
		}
		if !sr.Busy() {
			return nil
		}
	}
	return fmt.Errorf("%w after %d reads", ErrPollBudget, budget)
}
