package xspi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gentam/xspi/mx25r"
)

func TestDeepPowerDown(t *testing.T) {
	f, chip := newTestFlash(t)

	require.NoError(t, f.EnterDeepPowerDown())
	assert.True(t, chip.PoweredDown())
	assert.Equal(t, []byte{mx25r.CmdDeepPowerDown}, chip.Instructions())

	require.NoError(t, f.LeaveDeepPowerDown())
	assert.False(t, chip.PoweredDown())

	id, _, err := f.ReadID()
	require.NoError(t, err)
	assert.Equal(t, mx25r.JEDECID, id)
}

func TestDeepPowerDownMapped(t *testing.T) {
	f, chip := newTestFlash(t)
	require.NoError(t, f.EnableMemoryMapped())

	assert.ErrorIs(t, f.EnterDeepPowerDown(), ErrMmpLockFailure)
	assert.ErrorIs(t, f.LeaveDeepPowerDown(), ErrMmpLockFailure)
	assert.False(t, chip.PoweredDown())
}
