package mx25r

import (
	"fmt"
	"strings"
)

// Status register bits. [MX25R3235F|Table 9. Status Register]
const (
	SRWriteInProgress  = 1 << 0
	SRWriteEnableLatch = 1 << 1
	SRBlockProtect     = 0xF << 2
	SRQuadEnable       = 1 << 6
	SRWriteDisable     = 1 << 7
)

// StatusRegister represents the status register of the flash chip.
//
//	Bits| [MX25R3235F|Table 9]
//	----+--------------------------------------
//	7   | SRWD: Status register write disable
//	6   | QE: Quad enable
//	5:2 | BP3-0: Block protect
//	1   | WEL: Write enable latch
//	0   | WIP: Write in progress
type StatusRegister byte

func (sr StatusRegister) WriteDisable() bool { return sr&SRWriteDisable != 0 }
func (sr StatusRegister) QuadEnable() bool   { return sr&SRQuadEnable != 0 }
func (sr StatusRegister) BlockProtect() byte { return byte(sr&SRBlockProtect) >> 2 }
func (sr StatusRegister) WriteEnabled() bool { return sr&SRWriteEnableLatch != 0 }
func (sr StatusRegister) Busy() bool         { return sr&SRWriteInProgress != 0 }

func (sr StatusRegister) String() string {
	b := fmt.Sprintf("%08b", byte(sr))
	s := []string{}
	if sr.WriteDisable() {
		s = append(s, "SRWD")
	}
	if sr.QuadEnable() {
		s = append(s, "QE")
	}
	if bp := sr.BlockProtect(); bp != 0 {
		s = append(s, fmt.Sprintf("BP=%X", bp))
	}
	if sr.WriteEnabled() {
		s = append(s, "WEL")
	}
	if sr.Busy() {
		s = append(s, "WIP")
	}
	if len(s) == 0 {
		return b
	}
	return b + " " + strings.Join(s, ",")
}

// Security register bits. [MX25R3235F|Table 10. Security Register Definition]
const (
	SecurOTP            = 1 << 0
	SecurLockDown       = 1 << 1
	SecurProgramSuspend = 1 << 2 // PSB
	SecurEraseSuspend   = 1 << 3 // ESB
	SecurProgramFail    = 1 << 5 // P_FAIL
	SecurEraseFail      = 1 << 6 // E_FAIL
	SecurWriteProtect   = 1 << 7 // WPSEL
)

// SecurityRegister represents the security register (RDSCUR).
//
//	Bits| [MX25R3235F|Table 10]
//	----+--------------------------------------
//	7   | WPSEL: Write protection selection
//	6   | E_FAIL: Erase failed
//	5   | P_FAIL: Program failed
//	4   | Reserved
//	3   | ESB: Erase suspended
//	2   | PSB: Program suspended
//	1   | LDSO: Lock-down secured OTP
//	0   | Secured OTP indicator
type SecurityRegister byte

func (r SecurityRegister) EraseFailed() bool      { return r&SecurEraseFail != 0 }
func (r SecurityRegister) ProgramFailed() bool    { return r&SecurProgramFail != 0 }
func (r SecurityRegister) EraseSuspended() bool   { return r&SecurEraseSuspend != 0 }
func (r SecurityRegister) ProgramSuspended() bool { return r&SecurProgramSuspend != 0 }

// Failed reports whether the last program or erase failed.
func (r SecurityRegister) Failed() bool { return r.EraseFailed() || r.ProgramFailed() }

// Suspended reports whether a program or erase is suspended.
func (r SecurityRegister) Suspended() bool { return r.EraseSuspended() || r.ProgramSuspended() }

func (r SecurityRegister) String() string {
	b := fmt.Sprintf("%08b", byte(r))
	s := []string{}
	if r&SecurWriteProtect != 0 {
		s = append(s, "WPSEL")
	}
	if r.EraseFailed() {
		s = append(s, "E_FAIL")
	}
	if r.ProgramFailed() {
		s = append(s, "P_FAIL")
	}
	if r.EraseSuspended() {
		s = append(s, "ESB")
	}
	if r.ProgramSuspended() {
		s = append(s, "PSB")
	}
	if r&SecurLockDown != 0 {
		s = append(s, "LDSO")
	}
	if r&SecurOTP != 0 {
		s = append(s, "OTP")
	}
	if len(s) == 0 {
		return b
	}
	return b + " " + strings.Join(s, ",")
}
