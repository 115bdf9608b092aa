package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
)

func readCommand(d *device, args []string) error {
	fs := flag.NewFlagSet("read", flag.ExitOnError)
	var (
		addr    uint
		nread   int
		mapped  bool
		outFile string
	)
	fs.UintVar(&addr, "a", 0, "start address")
	fs.IntVar(&nread, "n", 256, "number of bytes to read")
	fs.BoolVar(&mapped, "m", false, "read through the memory-mapped window")
	fs.StringVar(&outFile, "o", "", "output file (default: hexdump)")
	fs.Parse(args)

	if mapped {
		if err := d.EnableMemoryMapped(); err != nil {
			return err
		}
		defer d.DisableMemoryMapped()
	}

	data := make([]byte, nread)
	if err := d.Read(data, uint32(addr)); err != nil {
		return err
	}
	if outFile == "" {
		fmt.Print(hex.Dump(data))
		return nil
	}
	return os.WriteFile(outFile, data, 0644)
}
