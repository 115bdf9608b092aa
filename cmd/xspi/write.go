package main

import (
	"flag"
	"os"
)

func writeCommand(d *device, args []string) error {
	fs := flag.NewFlagSet("write", flag.ExitOnError)
	var (
		filename string
		addr     uint
		erase    bool
	)
	fs.StringVar(&filename, "f", "", "input file")
	fs.UintVar(&addr, "a", 0, "start address")
	fs.BoolVar(&erase, "e", false, "erase the covered 4KB blocks first")
	fs.Parse(args)

	if filename == "" {
		fatalUsage("input file is required")
	}
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	if erase {
		const block = 4 << 10
		start := uint32(addr) &^ (block - 1)
		end := (uint32(addr) + uint32(len(data)) + block - 1) &^ (block - 1)
		if err := d.Erase(start, end-start); err != nil {
			return err
		}
	}
	return d.Write(data, uint32(addr))
}
