package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-logr/stdr"
)

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

func fatalUsage(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(2)
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage:
	xspi [-config file] [-v level] <command> [arguments]

Commands:
	info	 print flash geometry and timings
	id	 print JEDEC ID
	status	 print device status
	read	 read flash memory
	write	 write flash memory
	erase	 erase blocks or the whole chip
	suspend	 suspend the erase in progress
	resume	 resume a suspended erase
	sleep	 enter deep power-down
	wake	 leave deep power-down
	mode	 switch interface mode (single|quad)
`)
	os.Exit(2)
}

func main() {
	var (
		configFile string
		verbosity  int
	)
	flag.StringVar(&configFile, "config", "", "board profile (YAML)")
	flag.IntVar(&verbosity, "v", 0, "log verbosity")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() == 0 {
		usage()
	}

	stdr.SetVerbosity(verbosity)
	logger := stdr.New(log.New(os.Stderr, "", log.LstdFlags)).WithName("xspi")

	cfg, err := loadConfig(configFile)
	if err != nil {
		fatalf("%v", err)
	}

	cmd, args := flag.Arg(0), flag.Args()[1:]
	if cmd == "help" {
		usage()
	}
	run, ok := commands[cmd]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %q\n", cmd)
		usage()
	}

	d, err := openDevice(cfg, logger)
	if err != nil {
		fatalf("%v", err)
	}
	runErr := run(d, args)
	if err := d.Close(); err != nil {
		fmt.Fprintln(os.Stderr, "close failed:", err)
	}
	if runErr != nil {
		fatalf("%s: %v", cmd, runErr)
	}
}

var commands = map[string]func(*device, []string) error{
	"info":    infoCommand,
	"id":      idCommand,
	"status":  statusCommand,
	"read":    readCommand,
	"write":   writeCommand,
	"erase":   eraseCommand,
	"suspend": suspendCommand,
	"resume":  resumeCommand,
	"sleep":   sleepCommand,
	"wake":    wakeCommand,
	"mode":    modeCommand,
}
