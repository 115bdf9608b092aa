// Package xspi drives a Macronix MX25R3235F quad-SPI NOR flash attached to
// an external memory interface controller.
//
// A Board owns one context per flash instance. An instance starts
// uninitialized, reaches indirect access through Init (reset, poll ready,
// interface mode configuration) and may switch to memory-mapped access and
// back. While memory-mapped every other operation on the instance fails with
// ErrMmpLockFailure, and no other instance of the board may be mapped.
//
// Every state-changing operation waits for the device to be ready, sets the
// write enable latch, issues the command and, except for erases, waits again.
// Waiting is bounded by a number of status register reads, not by time.
//
// # References:
//
//   - [MX25R3235F]: MX25R3235F Ultra Low Power 32M-BIT Serial Multi I/O Flash Memory datasheet (https://www.macronix.com/Lists/Datasheet/Attachments/8763/MX25R3235F,%20Wide%20Range,%2032Mb,%20v1.8.pdf)
//   - [MX25R6435F]: MX25R6435F Ultra Low Power 64M-BIT Serial Multi I/O Flash Memory datasheet (https://www.macronix.com/Lists/Datasheet/Attachments/8868/MX25R6435F,%20Wide%20Range,%2064Mb,%20v1.5.pdf)
//   - [RM0493]: STM32WBA5x reference manual, XSPI chapter (https://www.st.com/resource/en/reference_manual/rm0493-multiprotocol-wireless-bluetooth-low-energy-and-ieee802154-stm32wba5xxx-arm-based-32-bit-mcus-stmicroelectronics.pdf)
//
// FTDI (https://ftdichip.com/document/application-notes/), for the bus package
//   - [FTDI-AN_108]: Command Processor for MPSSE and MCU Host Bus Emulation Modes (https://ftdichip.com/wp-content/uploads/2020/08/AN_108_Command_Processor_for_MPSSE_and_MCU_Host_Bus_Emulation_Modes.pdf)
//   - [FTDI-AN_114]: Interfacing FT2232H Hi-Speed Devices To SPI Bus (https://ftdichip.com/wp-content/uploads/2020/08/AN_114_FTDI_Hi_Speed_USB_To_SPI_Example.pdf)
//   - [FTDI-AN_135]: FTDI MPSSE Basics (https://ftdichip.com/wp-content/uploads/2020/08/AN_135_MPSSE_Basics.pdf)
package xspi
