package main

import (
	"fmt"
	"time"

	"github.com/gentam/xspi/bus"
)

func infoCommand(d *device, _ []string) error {
	i := d.Info()
	fmt.Printf("Flash size:      %d bytes\n", i.FlashSize)
	fmt.Printf("64KB sectors:    %d\n", i.EraseSectorsNumber)
	fmt.Printf("32KB blocks:     %d\n", i.EraseSubSector1Number)
	fmt.Printf("4KB subsectors:  %d\n", i.EraseSubSectorNumber)
	fmt.Printf("Pages:           %d x %d bytes\n", i.ProgPagesNumber, i.ProgPageSize)
	fmt.Printf("Interface mode:  %s\n", d.Mode())
	fmt.Printf("Backend:         %s\n", d.cfg.Backend)

	if _, name, err := d.ReadID(); err == nil && name != "" {
		fmt.Printf("Chip:            %s\n", name)
	}
	t := d.Timings()
	fmt.Printf("tDP/tRDP:        %s/%s\n", t.PowerDown, t.PowerUp)
	fmt.Printf("tPP:             %s\n", t.PageProgram)
	fmt.Printf("tCE:             %s\n", t.EraseChip)
	return nil
}

func idCommand(d *device, _ []string) error {
	id, name, err := d.ReadID()
	if err != nil {
		return err
	}
	fmt.Printf("%X\t%s\n", id, name)
	return nil
}

func statusCommand(d *device, _ []string) error {
	st, err := d.Status()
	if err != nil {
		return err
	}
	fmt.Println(st)
	return nil
}

func suspendCommand(d *device, _ []string) error { return d.SuspendErase() }
func resumeCommand(d *device, _ []string) error  { return d.ResumeErase() }

func sleepCommand(d *device, _ []string) error {
	if err := d.EnterDeepPowerDown(); err != nil {
		return err
	}
	time.Sleep(d.Timings().PowerDown)
	return nil
}

func wakeCommand(d *device, _ []string) error {
	if err := d.LeaveDeepPowerDown(); err != nil {
		return err
	}
	time.Sleep(d.Timings().PowerUp)
	return nil
}

func modeCommand(d *device, args []string) error {
	if len(args) != 1 {
		fatalUsage("usage: xspi mode single|quad")
	}
	mode, err := bus.ParseMode(args[0])
	if err != nil {
		fatalUsage("%v", err)
	}
	if err := d.SetInterfaceMode(mode); err != nil {
		return err
	}
	fmt.Println(d.Mode())
	return nil
}
