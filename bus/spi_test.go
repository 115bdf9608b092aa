package bus

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/spi"
)

// fakeConn records the bytes written in each transaction and answers reads
// with respond.
type fakeConn struct {
	cs      *gpiotest.Pin
	txs     [][]byte
	respond func(w, r []byte)
	err     error
}

func (c *fakeConn) String() string               { return "fake" }
func (c *fakeConn) Duplex() conn.Duplex          { return conn.Full }
func (c *fakeConn) TxPackets([]spi.Packet) error { return errors.New("not implemented") }

func (c *fakeConn) Tx(w, r []byte) error {
	if c.cs.Read() != gpio.Low {
		return errors.New("transfer with CS deasserted")
	}
	if c.err != nil {
		return c.err
	}
	c.txs = append(c.txs, append([]byte(nil), w...))
	if c.respond != nil {
		c.respond(w, r)
	}
	return nil
}

func newTestSPI() (*SPI, *fakeConn) {
	cs := &gpiotest.Pin{N: "CS", L: gpio.High}
	c := &fakeConn{cs: cs}
	return NewSPI(c, cs), c
}

// memory answers a read with addr, addr+1, ... after a header of hlen bytes.
func memory(hlen int) func(w, r []byte) {
	return func(w, r []byte) {
		if len(w) < 4 {
			return
		}
		addr := uint32(w[1])<<16 | uint32(w[2])<<8 | uint32(w[3])
		for i := hlen; i < len(r); i++ {
			r[i] = byte(addr + uint32(i-hlen))
		}
	}
}

var fastRead = Command{
	Instruction:      0x0B,
	InstructionLines: Lines1,
	AddressLines:     Lines1,
	AddressSize:      3,
	DummyCycles:      8,
	DataLines:        Lines1,
	Direction:        DirRead,
}

func TestSPIInstruction(t *testing.T) {
	s, c := newTestSPI()
	require.NoError(t, s.Command(&Command{Instruction: 0x06, InstructionLines: Lines1}, nil))
	assert.Equal(t, [][]byte{{0x06}}, c.txs)
	assert.Equal(t, gpio.High, c.cs.Read(), "CS released after the transaction")
}

func TestSPIWrite(t *testing.T) {
	s, c := newTestSPI()
	cmd := &Command{
		Instruction:      0x02,
		InstructionLines: Lines1,
		Address:          0x012345,
		AddressLines:     Lines1,
		AddressSize:      3,
		DataLines:        Lines1,
		Direction:        DirWrite,
	}
	require.NoError(t, s.Command(cmd, []byte{0xAA, 0xBB}))
	if diff := cmp.Diff([][]byte{{0x02, 0x01, 0x23, 0x45, 0xAA, 0xBB}}, c.txs); diff != "" {
		t.Errorf("transactions (-want +got):\n%s", diff)
	}

	err := s.Command(cmd, make([]byte, maxTx))
	assert.Error(t, err)
	assert.Len(t, c.txs, 1)
}

func TestSPIRead(t *testing.T) {
	s, c := newTestSPI()
	c.respond = memory(5)

	cmd := fastRead
	cmd.Address = 0x100
	out := make([]byte, 4)
	require.NoError(t, s.Command(&cmd, out))
	assert.Equal(t, []byte{0x00, 0x01, 0x02, 0x03}, out)
	assert.Equal(t, [][]byte{{0x0B, 0x00, 0x01, 0x00, 0x00, 0, 0, 0, 0}}, c.txs)
}

func TestSPIReadChunks(t *testing.T) {
	s, c := newTestSPI()
	c.respond = memory(5)

	cmd := fastRead
	out := make([]byte, maxTx+10)
	require.NoError(t, s.Command(&cmd, out))
	require.Len(t, c.txs, 2)
	assert.Len(t, c.txs[0], maxTx)
	assert.Len(t, c.txs[1], 5+15)

	// second chunk starts where the first ended
	next := uint32(maxTx - 5)
	assert.Equal(t, []byte{0x0B, byte(next >> 16), byte(next >> 8), byte(next), 0}, c.txs[1][:5])
	for i := range out {
		if out[i] != byte(i) {
			t.Fatalf("out[%d] = %#x, want %#x", i, out[i], byte(i))
		}
	}
}

func TestSPIRegisterRead(t *testing.T) {
	s, c := newTestSPI()
	c.respond = func(w, r []byte) { copy(r[1:], []byte{0xC2, 0x28, 0x16}) }

	id := make([]byte, 3)
	cmd := &Command{Instruction: 0x9F, InstructionLines: Lines1, DataLines: Lines1, Direction: DirRead}
	require.NoError(t, s.Command(cmd, id))
	assert.Equal(t, []byte{0xC2, 0x28, 0x16}, id)
}

func TestSPIUnsupportedLines(t *testing.T) {
	s, c := newTestSPI()
	quad := fastRead
	quad.Instruction = 0xEB
	quad.AddressLines = Lines4
	quad.DataLines = Lines4
	quad.DummyCycles = 6

	assert.ErrorIs(t, s.Command(&quad, make([]byte, 1)), ErrUnsupportedLines)
	assert.ErrorIs(t, s.MemoryMapped(&quad), ErrUnsupportedLines)
	assert.Empty(t, c.txs)
}

func TestSPIMemoryMapped(t *testing.T) {
	s, c := newTestSPI()
	c.respond = memory(5)

	_, err := s.Window().ReadAt(make([]byte, 1), 0)
	assert.ErrorIs(t, err, ErrNotMapped)

	cmd := fastRead
	require.NoError(t, s.MemoryMapped(&cmd))
	assert.ErrorIs(t, s.MemoryMapped(&cmd), ErrMapped)
	assert.ErrorIs(t, s.Command(&Command{Instruction: 0x05, InstructionLines: Lines1}, nil), ErrMapped)

	p := make([]byte, 3)
	n, err := s.Window().ReadAt(p, 0x42)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte{0x42, 0x43, 0x44}, p)

	require.NoError(t, s.Abort())
	require.NoError(t, s.Command(&Command{Instruction: 0x06, InstructionLines: Lines1}, nil))
	assert.Equal(t, []byte{0x06}, c.txs[len(c.txs)-1])
}

func TestSPITxError(t *testing.T) {
	s, c := newTestSPI()
	c.err = errors.New("usb gone")
	assert.EqualError(t, s.Command(&Command{Instruction: 0x06, InstructionLines: Lines1}, nil), "usb gone")
	assert.Equal(t, gpio.High, c.cs.Read(), "CS released on error")
}

func TestSPIClose(t *testing.T) {
	s, _ := newTestSPI()
	var order []int
	s.onClose = []func() error{
		func() error { order = append(order, 1); return errors.New("first") },
		func() error { order = append(order, 2); return nil },
	}
	assert.EqualError(t, s.Close(), "first")
	assert.Equal(t, []int{2, 1}, order)
	assert.NoError(t, s.Close())
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{
		"single": SingleLine,
		"1-1-1":  SingleLine,
		"quad":   QuadLine,
		"1-4-4":  QuadLine,
	} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseMode("octal")
	assert.Error(t, err)

	assert.Equal(t, "1-4-4", QuadLine.String())
	assert.Equal(t, "0B @000100 +8cyc read 1-1-1", Command{
		Instruction: 0x0B, InstructionLines: Lines1, Address: 0x100,
		AddressLines: Lines1, AddressSize: 3, DummyCycles: 8,
		DataLines: Lines1, Direction: DirRead,
	}.String())
}
