package chip8

import (
	"errors"
	"fmt"
)

var (
	// ErrImageTooLarge is returned by the loader when a program image does
	// not fit in the executable region of memory.
	ErrImageTooLarge = errors.New("program image too large")

	// ErrStackOverflow is returned when a subroutine call would exceed
	// StackDepth nesting levels. The machine halts.
	ErrStackOverflow = errors.New("call stack overflow")

	// ErrStackUnderflow is returned by a return instruction with no frame
	// to pop. The machine halts.
	ErrStackUnderflow = errors.New("call stack underflow")
)

// UnknownInstructionError reports an unrecognized opcode encoding. It is not
// fatal: the machine treats the instruction as a two-byte no-op and execution
// continues on the next cycle.
type UnknownInstructionError struct {
	Opcode uint16
	PC     uint16
}

func (e *UnknownInstructionError) Error() string {
	return fmt.Sprintf("unknown instruction 0x%04X at 0x%03X", e.Opcode, e.PC)
}
