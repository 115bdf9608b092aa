package xspi

import "fmt"

// Status is the state of the flash as reported by Flash.Status.
type Status uint8

const (
	StatusReady Status = iota
	StatusBusy
	StatusSuspended
	StatusFault // last program or erase failed
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusBusy:
		return "busy"
	case StatusSuspended:
		return "suspended"
	case StatusFault:
		return "fault"
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// Err maps the status to its error class; Ready maps to nil.
func (s Status) Err() error {
	switch s {
	case StatusReady:
		return nil
	case StatusBusy:
		return ErrBusy
	case StatusSuspended:
		return ErrSuspended
	}
	return ErrComponentFailure
}

// AccessState is how an instance reaches the flash.
type AccessState uint8

const (
	AccessNone         AccessState = iota // not initialized
	AccessIndirect                        // command by command
	AccessMemoryMapped                    // reads through the mapped window
)

func (a AccessState) String() string {
	switch a {
	case AccessNone:
		return "none"
	case AccessIndirect:
		return "indirect"
	case AccessMemoryMapped:
		return "memory-mapped"
	}
	return fmt.Sprintf("AccessState(%d)", uint8(a))
}
