package vm

import (
	"errors"
	"fmt"

	"github.com/retroenv/retrochip8/internal/memory"
)

// StackDepth is the number of return addresses the call stack can hold.
const StackDepth = 16

// Register file errors.
var (
	ErrInvalidRegister = errors.New("invalid register")
	ErrStackOverflow   = errors.New("stack overflow")
	ErrStackUnderflow  = errors.New("stack underflow")
)

// Registers is the register file of the machine. Decoded register indexes
// are 4 bit values, so the engine indexes V directly. Get and Set check the
// index for callers that pass arbitrary values.
type Registers struct {
	V  [16]uint8 // general purpose registers V0-VF, VF doubles as flag register
	I  uint16    // index register
	PC uint16    // program counter
	SP uint8     // stack pointer, number of used stack entries

	Stack [StackDepth]uint16
}

// Get returns the value of register VX.
func (r *Registers) Get(x uint8) (uint8, error) {
	if int(x) >= len(r.V) {
		return 0, fmt.Errorf("%w: V%d", ErrInvalidRegister, x)
	}
	return r.V[x], nil
}

// Set sets register VX to the given value.
func (r *Registers) Set(x, value uint8) error {
	if int(x) >= len(r.V) {
		return fmt.Errorf("%w: V%d", ErrInvalidRegister, x)
	}
	r.V[x] = value
	return nil
}

// push stores a return address on the stack.
func (r *Registers) push(address uint16) error {
	if int(r.SP) >= len(r.Stack) {
		return fmt.Errorf("%w: depth %d", ErrStackOverflow, len(r.Stack))
	}
	r.Stack[r.SP] = address
	r.SP++
	return nil
}

// pop removes the most recent return address from the stack.
func (r *Registers) pop() (uint16, error) {
	if r.SP == 0 {
		return 0, ErrStackUnderflow
	}
	r.SP--
	return r.Stack[r.SP], nil
}

// reset sets all registers to their power on values.
func (r *Registers) reset() {
	*r = Registers{
		PC: memory.ProgramStart,
	}
}
