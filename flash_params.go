package xspi

import "time"

type flashParams struct {
	name string

	tDP        time.Duration
	tRDP       time.Duration
	tPP        time.Duration
	tErase4KB  time.Duration
	tErase32KB time.Duration
	tErase64KB time.Duration
	tEraseChip time.Duration
}

var (
	flashIDMX25R3235F = [3]byte{0xC2, 0x28, 0x16}
	flashIDMX25R6435F = [3]byte{0xC2, 0x28, 0x17}
)

var knownFlash = map[[3]byte]flashParams{
	flashIDMX25R3235F: {
		name: "Macronix MX25R3235F 32Mb",

		// [MX25R3235F|Table 19. AC Characteristics], high performance mode:
		// tDP: CS# High to Deep Power-down Mode
		tDP: time.Duration(10 * time.Microsecond),
		// tRDP: Recovery Time from Deep Power-down Mode
		tRDP: time.Duration(35 * time.Microsecond),
		// tPP: Page Program Cycle Time
		tPP: time.Duration(10 * time.Millisecond),
		// tSE: Sector Erase Cycle Time (4KB)
		tErase4KB: time.Duration(240 * time.Millisecond),
		// tBE32: Block Erase Cycle Time (32KB)
		tErase32KB: time.Duration(1500 * time.Millisecond),
		// tBE: Block Erase Cycle Time (64KB)
		tErase64KB: time.Duration(3 * time.Second),
		// tCE: Chip Erase Cycle Time
		tEraseChip: time.Duration(75 * time.Second),
	},

	flashIDMX25R6435F: {
		name: "Macronix MX25R6435F 64Mb",

		// [MX25R6435F|Table 19. AC Characteristics], high performance mode
		tDP:        time.Duration(10 * time.Microsecond),
		tRDP:       time.Duration(35 * time.Microsecond),
		tPP:        time.Duration(10 * time.Millisecond),
		tErase4KB:  time.Duration(240 * time.Millisecond),
		tErase32KB: time.Duration(1500 * time.Millisecond),
		tErase64KB: time.Duration(3 * time.Second),
		tEraseChip: time.Duration(150 * time.Second),
	},
}

func (f *Flash) paramOrMax(get func(*flashParams) time.Duration) time.Duration {
	// get parameter if configured
	if f.pr != nil {
		return get(f.pr)
	}

	// fall back to maximum duration from all known flash parameters
	var tmax time.Duration
	for _, param := range knownFlash {
		tmax = max(tmax, get(&param))
	}
	return tmax
}

func (f *Flash) tDP() time.Duration {
	return f.paramOrMax(func(p *flashParams) time.Duration { return p.tDP })
}
func (f *Flash) tRDP() time.Duration {
	return f.paramOrMax(func(p *flashParams) time.Duration { return p.tRDP })
}
func (f *Flash) tPP() time.Duration {
	return f.paramOrMax(func(p *flashParams) time.Duration { return p.tPP })
}
func (f *Flash) tErase4KB() time.Duration {
	return f.paramOrMax(func(p *flashParams) time.Duration { return p.tErase4KB })
}
func (f *Flash) tErase32KB() time.Duration {
	return f.paramOrMax(func(p *flashParams) time.Duration { return p.tErase32KB })
}
func (f *Flash) tErase64KB() time.Duration {
	return f.paramOrMax(func(p *flashParams) time.Duration { return p.tErase64KB })
}
func (f *Flash) tEraseChip() time.Duration {
	return f.paramOrMax(func(p *flashParams) time.Duration { return p.tEraseChip })
}

// Timings are the delays the caller must respect around operations that the
// driver does not wait for. They are the values of the chip identified by
// the last ReadID, or the largest of all known chips before that.
type Timings struct {
	PowerDown   time.Duration // after EnterDeepPowerDown
	PowerUp     time.Duration // after LeaveDeepPowerDown
	PageProgram time.Duration
	Erase       map[EraseSize]time.Duration
	EraseChip   time.Duration
}

func (f *Flash) Timings() Timings {
	return Timings{
		PowerDown:   f.tDP(),
		PowerUp:     f.tRDP(),
		PageProgram: f.tPP(),
		Erase: map[EraseSize]time.Duration{
			Erase4K:  f.tErase4KB(),
			Erase32K: f.tErase32KB(),
			Erase64K: f.tErase64KB(),
		},
		EraseChip: f.tEraseChip(),
	}
}
