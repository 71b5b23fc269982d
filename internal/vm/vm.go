// Package vm implements the CHIP-8 interpreter engine.
//
// A VM owns the complete machine state: memory, register file, display,
// keypad and timers. The host drives it by calling Step at the desired
// instruction rate and Tick at the fixed timer rate of 60 Hz. The VM does not
// measure wall clock time and is not safe for concurrent use.
package vm

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/retroenv/retrochip8/internal/display"
	"github.com/retroenv/retrochip8/internal/keypad"
	"github.com/retroenv/retrochip8/internal/memory"
	"github.com/retroenv/retrochip8/internal/timer"
	"github.com/retroenv/retrogolib/log"
)

// MaxProgramSize is the maximum size of a program image in bytes.
const MaxProgramSize = memory.Size - memory.ProgramStart

// ErrProgramTooLarge is returned when a program does not fit into memory.
var ErrProgramTooLarge = errors.New("program too large")

// Status describes the execution state after a step.
type Status int

const (
	// StatusRunning indicates that the step executed an instruction.
	StatusRunning Status = iota
	// StatusAwaitingKey indicates that the machine is suspended in a key-wait
	// instruction. The program counter was not advanced.
	StatusAwaitingKey
)

// String returns the name of the status.
func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusAwaitingKey:
		return "awaiting key"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// StepError is returned for all faults that happen while executing an
// instruction. It wraps the underlying sentinel error.
type StepError struct {
	Address uint16 // address of the faulting instruction
	Word    uint16 // raw instruction word, 0 if it could not be fetched
	Err     error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("executing $%04X at $%03X: %v", e.Word, e.Address, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Option configures a VM.
type Option func(*VM)

// WithLogger sets the logger used for trace and debug messages.
func WithLogger(logger *log.Logger) Option {
	return func(v *VM) {
		v.logger = logger
	}
}

// WithQuirks sets the compatibility quirks.
func WithQuirks(quirks Quirks) Option {
	return func(v *VM) {
		v.quirks = quirks
	}
}

// WithRandom sets the random byte source used by the RND instruction.
func WithRandom(random func() uint8) Option {
	return func(v *VM) {
		v.random = random
	}
}

// WithTrace enables debug logging of every executed instruction.
func WithTrace(trace bool) Option {
	return func(v *VM) {
		v.trace = trace
	}
}

// VM is a CHIP-8 virtual machine.
type VM struct {
	logger *log.Logger
	quirks Quirks
	random func() uint8
	trace  bool

	memory  *memory.Memory
	regs    Registers
	display *display.Display
	keypad  *keypad.Keypad
	timers  timer.Timers

	awaitingKey  bool  // suspended in a key-wait instruction
	waitRegister uint8 // target register of the pending key-wait
}

// New returns a new machine in its power on state with an empty program.
func New(opts ...Option) *VM {
	v := &VM{
		quirks:  DefaultQuirks(),
		memory:  memory.New(),
		display: display.New(),
		keypad:  keypad.New(),
	}
	for _, opt := range opts {
		opt(v)
	}

	if v.logger == nil {
		cfg := log.DefaultConfig()
		cfg.Level = log.ErrorLevel
		v.logger = log.NewWithConfig(cfg)
	}
	if v.random == nil {
		v.random = func() uint8 {
			return uint8(rand.Uint32())
		}
	}

	v.Reset()
	return v
}

// Reset returns all machine state to the power on values. The memory is
// cleared, so a program has to be loaded again afterwards.
func (v *VM) Reset() {
	v.memory.Reset()
	v.regs.reset()
	v.display.Clear()
	v.keypad.Reset()
	v.timers.Reset()
	v.awaitingKey = false
	v.waitRegister = 0
}

// Load resets the machine and copies the program image to the program start
// address. The caller keeps ownership of the passed slice.
func (v *VM) Load(program []byte) error {
	if len(program) > MaxProgramSize {
		return fmt.Errorf("%w: %d bytes, maximum is %d", ErrProgramTooLarge, len(program), MaxProgramSize)
	}

	v.Reset()
	if err := v.memory.WriteRange(memory.ProgramStart, program); err != nil {
		return fmt.Errorf("copying program: %w", err)
	}

	v.logger.Debug("Program loaded",
		log.Int("size", len(program)),
		log.Stringer("quirks", v.quirks))
	return nil
}

// Tick advances the delay and sound timers by one 60 Hz period.
func (v *VM) Tick() {
	v.timers.Tick()
}

// Step executes a single instruction. While the machine waits for a key
// press it returns StatusAwaitingKey without advancing the program counter.
// Any returned error is fatal and of type *StepError; the state of the
// machine is unchanged by the failed instruction.
func (v *VM) Step() (Status, error) {
	if v.awaitingKey {
		return v.resolveKeyWait(), nil
	}

	pc := v.regs.PC
	word, err := v.memory.ReadWord(pc)
	if err != nil {
		return StatusRunning, &StepError{Address: pc, Err: fmt.Errorf("fetching instruction: %w", err)}
	}

	status, err := v.execute(word)
	if err != nil {
		return status, &StepError{Address: pc, Word: word, Err: err}
	}
	return status, nil
}

// resolveKeyWait completes a pending key-wait instruction if a key was pressed.
func (v *VM) resolveKeyWait() Status {
	key, ok := v.keypad.WaitForPress()
	if !ok {
		return StatusAwaitingKey
	}

	v.regs.V[v.waitRegister] = key
	v.regs.PC += 2
	v.awaitingKey = false

	if v.trace {
		v.logger.Debug("Key-wait resolved",
			log.Hex("key", key),
			log.Hex("register", v.waitRegister))
	}
	return StatusRunning
}

// AwaitingKey returns whether the machine is suspended in a key-wait instruction.
func (v *VM) AwaitingKey() bool {
	return v.awaitingKey
}

// PC returns the program counter.
func (v *VM) PC() uint16 {
	return v.regs.PC
}

// Registers returns a copy of the register file.
func (v *VM) Registers() Registers {
	return v.regs
}

// Timers returns a copy of the timer registers.
func (v *VM) Timers() timer.Timers {
	return v.timers
}

// SoundActive returns whether the sound timer is nonzero and a tone should play.
func (v *VM) SoundActive() bool {
	return v.timers.SoundActive()
}

// Display returns the display surface. Renderers should only use the
// snapshot and dirty flag accessors.
func (v *VM) Display() *display.Display {
	return v.display
}

// Keypad returns the input surface that the input collaborator writes to.
func (v *VM) Keypad() *keypad.Keypad {
	return v.keypad
}

// Quirks returns the compatibility quirks the machine was created with.
func (v *VM) Quirks() Quirks {
	return v.quirks
}

// ReadMemory returns n bytes of memory starting at the given address.
func (v *VM) ReadMemory(address uint16, n int) ([]byte, error) {
	data, err := v.memory.ReadRange(address, n)
	if err != nil {
		return nil, fmt.Errorf("reading memory: %w", err)
	}
	return data, nil
}
