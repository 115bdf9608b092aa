package main

import (
	"flag"
	"fmt"

	"github.com/gentam/xspi"
)

func eraseCommand(d *device, args []string) error {
	fs := flag.NewFlagSet("erase", flag.ExitOnError)
	var (
		addr  uint
		size  uint
		block string
		chip  bool
	)
	fs.UintVar(&addr, "a", 0, "start address")
	fs.UintVar(&size, "n", 0, "number of bytes to erase and wait for (multiple of 4KB)")
	fs.StringVar(&block, "b", "", "start one block erase of 4K, 32K or 64K without waiting")
	fs.BoolVar(&chip, "chip", false, "start a chip erase without waiting")
	fs.Parse(args)

	switch {
	case chip:
		if err := d.EraseChip(); err != nil {
			return err
		}
		fmt.Printf("chip erase started, takes up to %s\n", d.Timings().EraseChip)
		return nil
	case block != "":
		es, ok := map[string]xspi.EraseSize{
			"4K":  xspi.Erase4K,
			"32K": xspi.Erase32K,
			"64K": xspi.Erase64K,
		}[block]
		if !ok {
			fatalUsage("unknown block size %q", block)
		}
		if err := d.EraseBlock(uint32(addr), es); err != nil {
			return err
		}
		fmt.Printf("%s erase started, takes up to %s\n", es, d.Timings().Erase[es])
		return nil
	case size > 0:
		return d.Erase(uint32(addr), uint32(size))
	}
	fatalUsage("one of -n, -b or -chip is required")
	return nil
}
