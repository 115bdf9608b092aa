package bus

import (
	"errors"
	"fmt"
	"sync/atomic"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/host/v3"
	"periph.io/x/host/v3/ftdi"
)

// MaxFTDIClock is the fastest MPSSE clock. [FTDI-AN_135|3.2.1 Divisors]
const MaxFTDIClock = 30 * physic.MegaHertz

// FTDIConfig configures the FT2232H MPSSE channel.
type FTDIConfig struct {
	Clock physic.Frequency // clamped to MaxFTDIClock

	// HoldReset drives ADBUS7 low while the bus is open, keeping a board
	// FPGA from mastering the flash.
	HoldReset bool
}

var hostInitialized atomic.Bool

// InitHost loads the periph.io host drivers once per process.
func InitHost() error {
	if hostInitialized.CompareAndSwap(false, true) {
		if _, err := host.Init(); err != nil {
			hostInitialized.Store(false)
			return fmt.Errorf("host initialization failed: %w", err)
		}
	}
	return nil
}

// OpenFT2232H finds an FT2232H and opens its MPSSE SPI port. The returned
// bus releases the port and the reset line on Close.
//
//	ADBUS0 | SCK
//	ADBUS1 | MOSI
//	ADBUS2 | MISO
//	ADBUS4 | CS
//	ADBUS7 | target reset
func OpenFT2232H(cfg FTDIConfig) (*SPI, error) {
	if err := InitHost(); err != nil {
		return nil, err
	}
	ft, err := findFT2232H()
	if err != nil {
		return nil, err
	}

	port, err := ft.SPI()
	if err != nil {
		return nil, fmt.Errorf("failed to get SPI port: %w", err)
	}

	clock := cfg.Clock
	if clock == 0 || clock > MaxFTDIClock {
		clock = MaxFTDIClock
	}
	// [FTDI AN_114|1.2]> FTDI device can only support mode 0 and mode 2 due to the limitation of MPSSE engine
	// [MX25R3235F|Figure 2. Serial Modes Supported] mode 0 and mode 3 are supported
	conn, err := port.Connect(clock, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to connect SPI: %w", err)
	}

	s := NewSPI(conn, ft.D4)
	s.onClose = append(s.onClose, port.Close)

	if cfg.HoldReset {
		reset := ft.D7
		if err := reset.Out(gpio.Low); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to hold reset: %w", err)
		}
		s.onClose = append(s.onClose, func() error { return reset.Out(gpio.High) })
	}
	return s, nil
}

func findFT2232H() (*ftdi.FT232H, error) {
	const (
		vendorID  = 0x0403 // FTDI
		productID = 0x6010 // FT2232H
	)

	info := ftdi.Info{}
	for _, dev := range ftdi.All() {
		dev.Info(&info)
		if info.VenID != vendorID || info.DevID != productID {
			continue
		}
		if ft, ok := dev.(*ftdi.FT232H); ok {
			return ft, nil
		}
	}

	return nil, errors.New("FT2232H device not found")
}
