package main

import (
	"fmt"

	"github.com/go-logr/logr"
	"periph.io/x/conn/v3/physic"

	"github.com/gentam/xspi"
	"github.com/gentam/xspi/bus"
	"github.com/gentam/xspi/internal/sim"
)

// ftdiKernelClock is the MPSSE base clock divided by the prescaler.
// [FTDI-AN_135|3.2.1 Divisors]
const ftdiKernelClock = 60 * physic.MegaHertz

type device struct {
	*xspi.Flash
	cfg Config
}

func openDevice(cfg Config, logger logr.Logger) (*device, error) {
	var (
		init  xspi.PeripheralInit
		hooks xspi.Hooks
	)
	switch cfg.Backend {
	case "ftdi":
		hooks.MspInit = func(int) error { return bus.InitHost() }
		init = func(_ int, pc xspi.PeripheralConfig) (bus.Bus, error) {
			return bus.OpenFT2232H(bus.FTDIConfig{
				Clock:     ftdiKernelClock / physic.Frequency(pc.ClockPrescaler),
				HoldReset: cfg.FTDI.HoldReset,
			})
		}
	default:
		chip := sim.New()
		hooks.MspInit = func(int) error { return chip.LoadImage(cfg.Sim.Image) }
		hooks.MspDeInit = func(int) error { return chip.SaveImage(cfg.Sim.Image) }
		init = func(int, xspi.PeripheralConfig) (bus.Bus, error) { return chip, nil }
	}

	board := xspi.NewBoard(init,
		xspi.WithHooks(hooks),
		xspi.WithClockPrescaler(cfg.Prescaler),
		xspi.WithPollBudget(cfg.PollBudget),
		xspi.WithLogger(logger),
	)
	f, err := board.Instance(0)
	if err != nil {
		return nil, err
	}
	mode, err := bus.ParseMode(cfg.Mode)
	if err != nil {
		return nil, err
	}
	if err := f.Init(mode); err != nil {
		return nil, fmt.Errorf("flash init failed: %w", err)
	}
	return &device{Flash: f, cfg: cfg}, nil
}

func (d *device) Close() error {
	return d.Deinit()
}
