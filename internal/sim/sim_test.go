package sim

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gentam/xspi/bus"
	"github.com/gentam/xspi/mx25r"
)

var chip = mx25r.New()

func TestProgramWrapsWithinPage(t *testing.T) {
	f := New()
	require.NoError(t, chip.WriteEnable(f))
	require.NoError(t, chip.PageProgram(f, bus.SingleLine, []byte{1, 2, 3, 4}, 0x1FE))
	assert.Equal(t, []byte{1, 2}, f.Mem()[0x1FE:0x200])
	assert.Equal(t, []byte{3, 4}, f.Mem()[0x100:0x102])
	assert.Equal(t, byte(0xFF), f.Mem()[0x200])
}

func TestProgramOnlyClearsBits(t *testing.T) {
	f := New()
	for _, b := range []byte{0xF0, 0x3C} {
		require.NoError(t, chip.WriteEnable(f))
		require.NoError(t, chip.PageProgram(f, bus.SingleLine, []byte{b}, 0))
	}
	assert.Equal(t, byte(0x30), f.Mem()[0])
}

func TestWriteEnableRequired(t *testing.T) {
	f := New()
	require.NoError(t, chip.PageProgram(f, bus.SingleLine, []byte{0}, 0))
	require.NoError(t, chip.BlockErase(f, 0, mx25r.Erase4K))
	assert.Equal(t, byte(0xFF), f.Mem()[0])
	assert.False(t, f.StatusRegister().Busy())
}

func TestBusyIgnoresCommands(t *testing.T) {
	f := New()
	f.BusyReads = 2
	require.NoError(t, chip.WriteEnable(f))
	require.NoError(t, chip.PageProgram(f, bus.SingleLine, []byte{0}, 0))
	assert.False(t, f.StatusRegister().WriteEnabled())

	require.NoError(t, chip.WriteEnable(f))
	assert.False(t, f.StatusRegister().WriteEnabled(), "WREN ignored while busy")

	for i := 0; i < 2; i++ {
		sr, err := chip.ReadStatusRegister(f)
		require.NoError(t, err)
		assert.True(t, sr.Busy())
	}
	sr, err := chip.ReadStatusRegister(f)
	require.NoError(t, err)
	assert.False(t, sr.Busy())
}

func TestSuspendResume(t *testing.T) {
	f := New()
	require.NoError(t, chip.Suspend(f))
	assert.False(t, f.scur.Suspended(), "nothing to suspend")

	f.StartErase(3)
	require.NoError(t, chip.Suspend(f))
	assert.True(t, f.scur.EraseSuspended())
	assert.False(t, f.StatusRegister().Busy())

	require.NoError(t, chip.Resume(f))
	assert.False(t, f.scur.Suspended())
	assert.True(t, f.StatusRegister().Busy())
	assert.Equal(t, 3, f.busyLeft)
}

func TestReset(t *testing.T) {
	f := New()
	f.StartErase(10)
	require.NoError(t, chip.ResetMemory(f))
	assert.True(t, f.StatusRegister().Busy(), "reset without reset enable")

	require.NoError(t, chip.ResetEnable(f))
	require.NoError(t, chip.ResetMemory(f))
	assert.False(t, f.StatusRegister().Busy())
}

func TestResetKeepsQuadEnable(t *testing.T) {
	f := New()
	require.NoError(t, chip.WriteEnable(f))
	require.NoError(t, chip.WriteStatusRegister(f, mx25r.SRQuadEnable))
	require.NoError(t, chip.ResetEnable(f))
	require.NoError(t, chip.ResetMemory(f))
	assert.True(t, f.StatusRegister().QuadEnable())
}

func TestDeepPowerDown(t *testing.T) {
	f := New()
	require.NoError(t, chip.EnterPowerDown(f))
	assert.True(t, f.PoweredDown())

	id, err := chip.ReadID(f)
	require.NoError(t, err)
	assert.Equal(t, [3]byte{}, id)

	require.NoError(t, chip.NoOperation(f))
	assert.False(t, f.PoweredDown())
	id, err = chip.ReadID(f)
	require.NoError(t, err)
	assert.Equal(t, mx25r.JEDECID, id)
}

func TestQuadReadNeedsQuadEnable(t *testing.T) {
	f := New()
	f.Mem()[0] = 0x5A
	p := make([]byte, 1)
	require.NoError(t, chip.Read(f, bus.QuadLine, p, 0))
	assert.Equal(t, byte(0xFF), p[0])

	require.NoError(t, chip.WriteEnable(f))
	require.NoError(t, chip.WriteStatusRegister(f, mx25r.SRQuadEnable))
	require.NoError(t, chip.Read(f, bus.QuadLine, p, 0))
	assert.Equal(t, byte(0x5A), p[0])
}

func TestWindow(t *testing.T) {
	f := New()
	copy(f.Mem()[0x10:], "flash")

	_, err := f.Window().ReadAt(make([]byte, 5), 0x10)
	assert.ErrorIs(t, err, bus.ErrNotMapped)

	require.NoError(t, chip.EnableMemoryMappedMode(f, bus.SingleLine))
	p := make([]byte, 5)
	_, err = f.Window().ReadAt(p, 0x10)
	require.NoError(t, err)
	assert.Equal(t, "flash", string(p))

	assert.ErrorIs(t, chip.WriteEnable(f), bus.ErrMapped)
	assert.Empty(t, f.Log)

	require.NoError(t, f.Abort())
	assert.False(t, f.Mapped())
	assert.Equal(t, 1, f.Aborts)
}

func TestImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flash.img")

	f := New()
	require.NoError(t, f.LoadImage(path), "missing image")
	f.Mem()[0x1234] = 0x42
	require.NoError(t, f.SaveImage(path))

	g := New()
	require.NoError(t, g.LoadImage(path))
	assert.Equal(t, byte(0x42), g.Mem()[0x1234])
}
