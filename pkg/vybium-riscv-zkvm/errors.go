package vybiumriscvzkvm

import "fmt"

// ErrorCode represents a Vybium RISC-V zkVM error code
type ErrorCode int

const (
	// ErrUnknown represents an unknown error
	ErrUnknown ErrorCode = iota

	// ErrInvalidConfig represents an invalid configuration error
	ErrInvalidConfig

	// ErrInvalidImage represents a malformed memory image error
	ErrInvalidImage

	// ErrIllegalInstruction represents an undecodable instruction error
	ErrIllegalInstruction

	// ErrExternFailure represents a failed circuit extern request
	ErrExternFailure

	// ErrBigIntDomain represents a bigint operand outside the accelerator's
	// supported domain
	ErrBigIntDomain

	// ErrSyscallReplay represents an exhausted or inconsistent syscall record
	// queue
	ErrSyscallReplay

	// ErrInvalidInput represents an invalid input error
	ErrInvalidInput
)

// VMError represents a Vybium RISC-V zkVM error
type VMError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error returns the error message
func (e *VMError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("vybium-riscv-zkvm error [%d]: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("vybium-riscv-zkvm error [%d]: %s", e.Code, e.Message)
}

// Unwrap returns the cause of the error
func (e *VMError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target error
func (e *VMError) Is(target error) bool {
	t, ok := target.(*VMError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}
