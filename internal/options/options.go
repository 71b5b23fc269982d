// Package options contains the program options.
package options

import (
	"github.com/retroenv/retrochip8/internal/vm"
)

// Parameters contains file and address options.
type Parameters struct {
	Input       string `flag:"i" usage:"input ROM file"`
	Output      string `flag:"o" usage:"output .asm file of the disassembly (default: stdout)"`
	Breakpoints string `flag:"break" usage:"comma separated breakpoint addresses in hex (e.g. 200,2A4)"`
}

// Flags contains behavior options.
type Flags struct {
	Quirks  string `flag:"quirks" usage:"quirk profile: vip, chip48, modern" default:"vip"`
	Wrap    bool   `flag:"wrap" usage:"wrap sprites at the screen edge instead of clipping"`
	Debug   bool   `flag:"debug" usage:"enable debug logging"`
	Trace   bool   `flag:"trace" usage:"log every executed instruction"`
	Quiet   bool   `flag:"q" usage:"quiet mode"`
	Version bool   `flag:"version" usage:"print version information and exit"`
}

// RunFlags contains execution mode options.
type RunFlags struct {
	IPS      int    `flag:"ips" usage:"instructions per second" default:"700"`
	Headless bool   `flag:"headless" usage:"run without terminal UI and print the final screen"`
	Cycles   int    `flag:"cycles" usage:"instruction budget for headless runs" default:"1000"`
	Disasm   bool   `flag:"disasm" usage:"print a disassembly listing of the ROM and exit"`
	Seed     uint64 `flag:"seed" usage:"random seed for the RND instruction (0 = time based)"`
}

// OutputFlags contains disassembly listing formatting options.
type OutputFlags struct {
	NoHexComments bool `flag:"nohexcomments" usage:"omit address and opcode bytes in comments"`
	ZeroBytes     bool `flag:"z" usage:"include trailing zero bytes of the ROM"`
}

// Program options of the interpreter.
type Program struct {
	Parameters
	Flags
	RunFlags
	OutputFlags
}

// Interpreter defines the validated options that control the machine and host loop.
type Interpreter struct {
	Quirks      vm.Quirks
	IPS         int
	Cycles      int
	Breakpoints []uint16
	Seed        uint64
	Trace       bool
}

// Default values of the run options.
const (
	DefaultIPS    = 700
	DefaultCycles = 1000
)

// NewInterpreter returns a new options instance with default options.
func NewInterpreter() Interpreter {
	return Interpreter{
		Quirks: vm.DefaultQuirks(),
		IPS:    DefaultIPS,
		Cycles: DefaultCycles,
	}
}
