package xspi

import (
	"errors"
	"fmt"
	"io"
)

func (f *Flash) checkRange(op string, addr uint32, n int) error {
	size := uint64(f.chip.Info().FlashSize)
	if uint64(addr)+uint64(n) > size {
		return f.fail(op, ErrWrongParam,
			fmt.Errorf("range 0x%06X+%d exceeds flash size 0x%X", addr, n, size))
	}
	return nil
}

// Read reads len(p) bytes starting at addr. While memory-mapped the data is
// read through the mapped window.
func (f *Flash) Read(p []byte, addr uint32) error {
	const op = "read"
	if err := f.checkRange(op, addr, len(p)); err != nil {
		return err
	}
	if f.access == AccessMemoryMapped {
		r, err := f.MappedReader()
		if err != nil {
			return err
		}
		if _, err := r.ReadAt(p, int64(addr)); err != nil {
			return f.fail(op, ErrPeripheralFailure, err)
		}
		return nil
	}
	if err := f.indirect(op); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	if err := f.chip.Read(f.bus, f.mode, p, addr); err != nil {
		return f.fail(op, ErrComponentFailure, err)
	}
	return nil
}

// Write programs p starting at addr, one page program per page touched.
// The target range must be erased. On failure the pages programmed before
// the failing one stay written.
func (f *Flash) Write(p []byte, addr uint32) error {
	const op = "write"
	if err := f.indirect(op); err != nil {
		return err
	}
	if err := f.checkRange(op, addr, len(p)); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}

	pageSize := f.chip.Info().ProgPageSize
	end := addr + uint32(len(p))

	// The first chunk runs up to the end of the page containing addr.
	size := min(pageSize-addr%pageSize, uint32(len(p)))
	for cur, off := addr, uint32(0); cur < end; {
		if err := f.programPage(p[off:off+size], cur); err != nil {
			return f.fail(op, ErrComponentFailure, fmt.Errorf("page at 0x%06X: %w", cur, err))
		}
		cur += size
		off += size
		size = min(pageSize, end-cur)
	}
	f.log.V(1).Info("written", "addr", addr, "len", len(p))
	return nil
}

// programPage programs data, which must lie within one page. Completion is
// signalled by WIP clearing, not by the command returning.
func (f *Flash) programPage(data []byte, addr uint32) error {
	if err := f.waitUntilReady(); err != nil {
		return err
	}
	if err := f.chip.WriteEnable(f.bus); err != nil {
		return fmt.Errorf("write enable: %w", err)
	}
	if err := f.chip.PageProgram(f.bus, f.mode, data, addr); err != nil {
		return fmt.Errorf("page program: %w", err)
	}
	return f.waitUntilReady()
}

// ReadAt implements io.ReaderAt.
func (f *Flash) ReadAt(p []byte, off int64) (int, error) {
	n, err := f.clamp(p, off)
	if n > 0 {
		if rerr := f.Read(p[:n], uint32(off)); rerr != nil {
			return 0, rerr
		}
	}
	return n, err
}

// WriteAt implements io.WriterAt.
func (f *Flash) WriteAt(p []byte, off int64) (int, error) {
	n, err := f.clamp(p, off)
	if err != nil {
		return 0, err
	}
	if err := f.Write(p, uint32(off)); err != nil {
		return 0, err
	}
	return n, nil
}

var errNegativeOffset = errors.New("negative offset")

// clamp returns how many bytes of p fit in the flash at off, and io.EOF when
// that is fewer than len(p).
func (f *Flash) clamp(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, f.fail("seek", ErrWrongParam, errNegativeOffset)
	}
	size := int64(f.chip.Info().FlashSize)
	if off >= size {
		return 0, io.EOF
	}
	if rem := size - off; int64(len(p)) > rem {
		return int(rem), io.EOF
	}
	return len(p), nil
}
