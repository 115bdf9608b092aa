package xspi

import (
	"fmt"
	"sync"

	"github.com/go-logr/logr"

	"github.com/gentam/xspi/bus"
	"github.com/gentam/xspi/mx25r"
)

const (
	// DefaultInstances is the number of flash instances on the board.
	DefaultInstances = 1

	// DefaultPollBudget is the number of status register reads before a
	// busy device is reported as failed. At the default prescaler one read
	// takes roughly 2µs on the bus, so the budget covers a page program
	// (tPP ≤ 10ms).
	DefaultPollBudget = 5000

	// DefaultClockPrescaler divides the kernel clock for the bus clock.
	DefaultClockPrescaler = 8
)

// SampleShift selects when the controller samples data from the flash.
type SampleShift uint8

const (
	SampleShiftNone SampleShift = iota
	SampleShiftHalfCycle
)

// PeripheralConfig is passed to the PeripheralInit function when an instance
// is initialized.
type PeripheralConfig struct {
	MemorySize           uint32 // log2 of the flash size in bytes
	ClockPrescaler       uint32
	SampleShifting       SampleShift
	ChipSelectHighCycles uint32
}

// PeripheralInit configures the host controller of one instance and returns
// the bus to the flash. The returned bus is closed on Deinit if it
// implements io.Closer.
type PeripheralInit func(instance int, cfg PeripheralConfig) (bus.Bus, error)

// Hooks run board-specific setup (pins, clocks) around peripheral
// initialization. Either may be nil.
type Hooks struct {
	MspInit   func(instance int) error
	MspDeInit func(instance int) error
}

// Component encodes the operations of one flash chip family into bus
// commands.
type Component interface {
	Info() Info
	ReadStatusRegister(b bus.Bus) (StatusRegister, error)
	WriteStatusRegister(b bus.Bus, sr StatusRegister) error
	ReadSecurityRegister(b bus.Bus) (SecurityRegister, error)
	WriteEnable(b bus.Bus) error
	Read(b bus.Bus, mode bus.Mode, p []byte, addr uint32) error
	PageProgram(b bus.Bus, mode bus.Mode, p []byte, addr uint32) error
	BlockErase(b bus.Bus, addr uint32, size EraseSize) error
	ChipErase(b bus.Bus) error
	ReadID(b bus.Bus) ([3]byte, error)
	Suspend(b bus.Bus) error
	Resume(b bus.Bus) error
	EnterPowerDown(b bus.Bus) error
	NoOperation(b bus.Bus) error
	EnableMemoryMappedMode(b bus.Bus, mode bus.Mode) error
	ResetEnable(b bus.Bus) error
	ResetMemory(b bus.Bus) error
}

// Types shared with the component.
type (
	Info             = mx25r.Info
	EraseSize        = mx25r.EraseSize
	StatusRegister   = mx25r.StatusRegister
	SecurityRegister = mx25r.SecurityRegister
)

const (
	Erase4K  = mx25r.Erase4K
	Erase32K = mx25r.Erase32K
	Erase64K = mx25r.Erase64K
)

type config struct {
	instances      int
	pollBudget     int
	clockPrescaler uint32
	sampleShifting SampleShift
	component      Component
	hooks          Hooks
	log            logr.Logger
}

func defaultConfig() config {
	return config{
		instances:      DefaultInstances,
		pollBudget:     DefaultPollBudget,
		clockPrescaler: DefaultClockPrescaler,
		sampleShifting: SampleShiftNone,
		component:      mx25r.New(),
		log:            logr.Discard(),
	}
}

// Option configures a Board.
type Option func(*config)

// WithInstances sets the number of flash instances.
func WithInstances(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.instances = n
		}
	}
}

// WithPollBudget sets the number of status reads allowed while waiting for
// the device to become ready.
func WithPollBudget(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.pollBudget = n
		}
	}
}

// WithClockPrescaler sets the prescaler passed to PeripheralInit.
func WithClockPrescaler(p uint32) Option {
	return func(c *config) {
		if p > 0 {
			c.clockPrescaler = p
		}
	}
}

// WithSampleShifting sets the sampling point passed to PeripheralInit.
func WithSampleShifting(s SampleShift) Option {
	return func(c *config) { c.sampleShifting = s }
}

// WithComponent replaces the MX25R3235F command encoder.
func WithComponent(comp Component) Option {
	return func(c *config) {
		if comp != nil {
			c.component = comp
		}
	}
}

// WithHooks sets the board setup hooks.
func WithHooks(h Hooks) Option {
	return func(c *config) { c.hooks = h }
}

// WithLogger sets the logger. Operations are logged at V(1).
func WithLogger(l logr.Logger) Option {
	return func(c *config) { c.log = l }
}

// Board owns the flash instances of one board. At most one of them may be in
// memory-mapped mode at a time.
type Board struct {
	cfg     config
	init    PeripheralInit
	flashes []*Flash

	mu       sync.Mutex
	mappedBy *Flash
}

// NewBoard returns a board whose instances are brought up with init.
func NewBoard(init PeripheralInit, opts ...Option) *Board {
	if init == nil {
		panic("xspi: nil PeripheralInit")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	b := &Board{cfg: cfg, init: init}
	b.flashes = make([]*Flash, cfg.instances)
	for i := range b.flashes {
		b.flashes[i] = &Flash{
			board: b,
			index: i,
			chip:  cfg.component,
			mode:  bus.SingleLine,
			log:   cfg.log.WithValues("instance", i),
		}
	}
	return b
}

// Instance returns flash instance i.
func (b *Board) Instance(i int) (*Flash, error) {
	if i < 0 || i >= len(b.flashes) {
		return nil, &Error{Op: "instance", Instance: i, Kind: ErrWrongParam,
			Err: fmt.Errorf("board has %d instances", len(b.flashes))}
	}
	return b.flashes[i], nil
}

// Instances returns the number of flash instances.
func (b *Board) Instances() int { return len(b.flashes) }

// acquireWindow claims the memory-mapped window for f.
func (b *Board) acquireWindow(f *Flash) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.mappedBy != nil && b.mappedBy != f {
		return fmt.Errorf("window held by instance %d", b.mappedBy.index)
	}
	b.mappedBy = f
	return nil
}

func (b *Board) releaseWindow(f *Flash) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.mappedBy == f {
		b.mappedBy = nil
	}
}
