package xspi

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gentam/xspi/bus"
	"github.com/gentam/xspi/internal/sim"
	"github.com/gentam/xspi/mx25r"
)

func TestSetInterfaceMode(t *testing.T) {
	f, chip := newTestFlash(t)

	require.NoError(t, f.SetInterfaceMode(bus.QuadLine))
	assert.Equal(t, bus.QuadLine, f.Mode())
	assert.True(t, chip.StatusRegister().QuadEnable())
	assert.Equal(t, []byte{
		mx25r.CmdReadStatusRegister, // wait ready
		mx25r.CmdReadStatusRegister,
		mx25r.CmdWriteEnable,
		mx25r.CmdWriteStatusRegister,
		mx25r.CmdReadStatusRegister, // wait ready
		mx25r.CmdReadStatusRegister, // verify
	}, chip.Instructions())

	chip.Log = nil
	require.NoError(t, f.SetInterfaceMode(bus.QuadLine))
	assert.Empty(t, chip.Log, "same mode issues nothing")

	require.NoError(t, f.SetInterfaceMode(bus.SingleLine))
	assert.Equal(t, bus.SingleLine, f.Mode())
	assert.False(t, chip.StatusRegister().QuadEnable())

	assert.ErrorIs(t, f.SetInterfaceMode(bus.Mode(9)), ErrWrongParam)
}

func TestSetInterfaceModeVerify(t *testing.T) {
	f, chip := newTestFlash(t)
	chip.IgnoreQuadEnable = true

	err := f.SetInterfaceMode(bus.QuadLine)
	assert.ErrorIs(t, err, ErrComponentFailure)
	assert.ErrorIs(t, err, ErrVerify)
	assert.Equal(t, bus.SingleLine, f.Mode())
}

func TestMemoryMapped(t *testing.T) {
	f, chip := newTestFlash(t)
	require.NoError(t, f.Write([]byte("mapped"), 0x300))
	chip.Log = nil

	require.NoError(t, f.EnableMemoryMapped())
	assert.Equal(t, AccessMemoryMapped, f.Access())
	assert.True(t, chip.Mapped())

	p := make([]byte, 6)
	require.NoError(t, f.Read(p, 0x300))
	assert.Equal(t, "mapped", string(p))

	r, err := f.MappedReader()
	require.NoError(t, err)
	_, err = r.ReadAt(p, 0x301)
	require.NoError(t, err)
	assert.Equal(t, "apped\xff", string(p))

	for name, op := range map[string]func() error{
		"mode":   func() error { return f.SetInterfaceMode(bus.QuadLine) },
		"same":   func() error { return f.SetInterfaceMode(bus.SingleLine) },
		"enable": func() error { return f.EnableMemoryMapped() },
		"write":  func() error { return f.Write([]byte{0}, 0) },
		"erase":  func() error { return f.EraseBlock(0, Erase4K) },
		"status": func() error { _, err := f.Status(); return err },
		"id":     func() error { _, _, err := f.ReadID(); return err },
		"sleep":  func() error { return f.EnterDeepPowerDown() },
	} {
		assert.ErrorIs(t, op(), ErrMmpLockFailure, name)
	}
	assert.Empty(t, chip.Log)
	assert.Equal(t, AccessMemoryMapped, f.Access())

	require.NoError(t, f.DisableMemoryMapped())
	assert.Equal(t, AccessIndirect, f.Access())
	assert.Equal(t, 1, chip.Aborts)

	_, err = f.MappedReader()
	assert.ErrorIs(t, err, ErrMmpUnlockFailure)
	require.NoError(t, f.Read(p, 0x300))
	assert.Equal(t, "mapped", string(p))
}

func TestDisableMemoryMappedNotMapped(t *testing.T) {
	f, chip := newTestFlash(t)
	assert.ErrorIs(t, f.DisableMemoryMapped(), ErrMmpUnlockFailure)
	assert.Zero(t, chip.Aborts)
	assert.Empty(t, chip.Log)
}

func TestMemoryMappedQuad(t *testing.T) {
	chip := sim.New()
	f, err := NewBoard(simInit(chip)).Instance(0)
	require.NoError(t, err)
	require.NoError(t, f.Init(bus.QuadLine))
	require.NoError(t, f.EnableMemoryMapped())
	assert.True(t, chip.Mapped())
}

func TestMemoryMappedExclusive(t *testing.T) {
	chips := []*sim.Flash{sim.New(), sim.New()}
	b := NewBoard(simInit(chips...), WithInstances(2), testLogger(t))
	f0, err := b.Instance(0)
	require.NoError(t, err)
	f1, err := b.Instance(1)
	require.NoError(t, err)
	require.NoError(t, f0.Init(bus.SingleLine))
	require.NoError(t, f1.Init(bus.SingleLine))

	require.NoError(t, f0.EnableMemoryMapped())
	err = f1.EnableMemoryMapped()
	assert.ErrorIs(t, err, ErrMmpLockFailure)
	assert.Equal(t, AccessIndirect, f1.Access())
	assert.False(t, chips[1].Mapped())

	// the other instance stays usable indirectly
	require.NoError(t, f1.Write([]byte{0x12}, 0))

	require.NoError(t, f0.DisableMemoryMapped())
	require.NoError(t, f1.EnableMemoryMapped())
	assert.ErrorIs(t, f0.EnableMemoryMapped(), ErrMmpLockFailure)
}

func TestDeinitMapped(t *testing.T) {
	chip := sim.New()
	b := NewBoard(simInit(chip))
	f, err := b.Instance(0)
	require.NoError(t, err)
	require.NoError(t, f.Init(bus.SingleLine))
	require.NoError(t, f.EnableMemoryMapped())

	require.NoError(t, f.Deinit())
	assert.Equal(t, AccessNone, f.Access())
	assert.False(t, chip.Mapped())
	assert.True(t, chip.Closed)

	// the window is free again
	require.NoError(t, f.Init(bus.SingleLine))
	require.NoError(t, f.EnableMemoryMapped())
}

// windowless hides the mapped window of the bus it wraps.
type windowless struct{ bus.Bus }

type stuckAbort struct{ bus.Bus }

func (stuckAbort) Abort() error { return errors.New("abort timed out") }

func errorClasses(err error) []error {
	var out []error
	for _, class := range []error{
		ErrWrongParam, ErrPeripheralFailure, ErrComponentFailure, ErrBusy,
		ErrSuspended, ErrMmpLockFailure, ErrMmpUnlockFailure,
	} {
		if errors.Is(err, class) {
			out = append(out, class)
		}
	}
	return out
}

func TestReadMappedWithoutWindow(t *testing.T) {
	f, err := NewBoard(func(int, PeripheralConfig) (bus.Bus, error) {
		return windowless{sim.New()}, nil
	}).Instance(0)
	require.NoError(t, err)
	require.NoError(t, f.Init(bus.SingleLine))
	require.NoError(t, f.EnableMemoryMapped())

	err = f.Read(make([]byte, 4), 0)
	assert.Equal(t, []error{ErrPeripheralFailure}, errorClasses(err))
}

func TestDeinitAbortFailure(t *testing.T) {
	chip := sim.New()
	f, err := NewBoard(func(int, PeripheralConfig) (bus.Bus, error) {
		return stuckAbort{chip}, nil
	}).Instance(0)
	require.NoError(t, err)
	require.NoError(t, f.Init(bus.SingleLine))
	require.NoError(t, f.EnableMemoryMapped())

	err = f.Deinit()
	assert.Equal(t, []error{ErrPeripheralFailure}, errorClasses(err))
	assert.Equal(t, AccessMemoryMapped, f.Access())
	assert.False(t, chip.Closed)
}
