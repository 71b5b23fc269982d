// Package cli handles command line interface logic
package cli

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/retroenv/retrochip8/internal/memory"
	"github.com/retroenv/retrochip8/internal/options"
	"github.com/retroenv/retrochip8/internal/vm"
)

// ErrInvalidOption is returned for option values that fail validation.
var ErrInvalidOption = errors.New("invalid option")

// ParseFlags parses command line flags and returns program and interpreter options
func ParseFlags() (options.Program, options.Interpreter, error) {
	flags := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	var opts options.Program
	readOptionFlags(flags, &opts)

	err := flags.Parse(os.Args[1:])
	args := flags.Args()
	if opts.Version {
		return opts, options.Interpreter{}, nil
	}
	if err != nil || (len(args) == 0 && opts.Input == "") {
		return opts, options.Interpreter{}, &UsageError{flags: flags}
	}

	if err := validateArgs(args); err != nil {
		return opts, options.Interpreter{}, err
	}

	if opts.Input == "" {
		opts.Input = args[0]
	}

	interpreterOptions, err := createInterpreterOptions(opts)
	if err != nil {
		return opts, options.Interpreter{}, err
	}
	return opts, interpreterOptions, nil
}

// UsageError represents an error that should show usage information
type UsageError struct {
	flags *flag.FlagSet
	msg   string
}

func (e *UsageError) Error() string {
	return e.msg
}

func (e *UsageError) ShowUsage() {
	fmt.Printf("usage: retrochip8 [options] <ROM file>\n\n")
	if e.flags != nil {
		e.flags.PrintDefaults()
	}
	fmt.Println()
}

// validateArgs checks if arguments are in correct order
func validateArgs(args []string) error {
	for i, arg := range args {
		if i > 0 && arg[0] == '-' {
			return &UsageError{
				msg: fmt.Sprintf("Potential argument %s found after ROM file, please pass the ROM file as last argument", arg),
			}
		}
	}
	return nil
}

// createInterpreterOptions validates the program options and converts them
// to interpreter options.
func createInterpreterOptions(opts options.Program) (options.Interpreter, error) {
	interpreterOptions := options.NewInterpreter()

	quirks, err := vm.QuirksProfile(opts.Quirks)
	if err != nil {
		return options.Interpreter{}, fmt.Errorf("%w: %w", ErrInvalidOption, err)
	}
	quirks.WrapSprites = opts.Wrap
	interpreterOptions.Quirks = quirks

	if opts.IPS <= 0 {
		return options.Interpreter{}, fmt.Errorf("%w: instructions per second must be positive, got %d",
			ErrInvalidOption, opts.IPS)
	}
	interpreterOptions.IPS = opts.IPS

	if opts.Cycles <= 0 {
		return options.Interpreter{}, fmt.Errorf("%w: cycle budget must be positive, got %d",
			ErrInvalidOption, opts.Cycles)
	}
	interpreterOptions.Cycles = opts.Cycles

	breakpoints, err := parseBreakpoints(opts.Breakpoints)
	if err != nil {
		return options.Interpreter{}, err
	}
	interpreterOptions.Breakpoints = breakpoints

	interpreterOptions.Seed = opts.Seed
	interpreterOptions.Trace = opts.Trace
	return interpreterOptions, nil
}

// parseBreakpoints parses a comma separated list of hex addresses. A leading
// $ or 0x is accepted.
func parseBreakpoints(s string) ([]uint16, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	var addresses []uint16
	for field := range strings.SplitSeq(s, ",") {
		field = strings.TrimSpace(field)
		field = strings.TrimPrefix(field, "$")
		field = strings.TrimPrefix(strings.ToLower(field), "0x")

		value, err := strconv.ParseUint(field, 16, 16)
		if err != nil || value > memory.MaxAddress {
			return nil, fmt.Errorf("%w: breakpoint address '%s'", ErrInvalidOption, field)
		}
		addresses = append(addresses, uint16(value))
	}
	return addresses, nil
}

func readOptionFlags(flags *flag.FlagSet, opts *options.Program) {
	flags.StringVar(&opts.Input, "i", "", "name of the input ROM file")
	flags.StringVar(&opts.Output, "o", "", "name of the output .asm file of the disassembly, printed on console if no name given")
	flags.StringVar(&opts.Breakpoints, "break", "", "comma separated list of breakpoint addresses in hex, for example 200,2A4")
	flags.StringVar(&opts.Quirks, "quirks", vm.ProfileVIP,
		fmt.Sprintf("quirk profile of the emulated interpreter (%s)", strings.Join(vm.QuirksProfiles(), "/")))
	flags.BoolVar(&opts.Wrap, "wrap", false, "wrap sprites around the screen edges instead of clipping them")
	flags.IntVar(&opts.IPS, "ips", options.DefaultIPS, "instructions executed per second")
	flags.BoolVar(&opts.Headless, "headless", false, "run without terminal UI and print the final screen")
	flags.IntVar(&opts.Cycles, "cycles", options.DefaultCycles, "number of instructions to execute in headless mode")
	flags.BoolVar(&opts.Disasm, "disasm", false, "print a disassembly listing of the ROM and exit")
	flags.BoolVar(&opts.NoHexComments, "nohexcomments", false, "do not output addresses and opcode bytes as hex values in disassembly comments")
	flags.BoolVar(&opts.ZeroBytes, "z", false, "output the trailing zero bytes of the ROM in the disassembly")
	flags.Uint64Var(&opts.Seed, "seed", 0, "seed of the random number generator, 0 uses a time based seed")
	flags.BoolVar(&opts.Debug, "debug", false, "enable debugging options for extended logging")
	flags.BoolVar(&opts.Trace, "trace", false, "log every executed instruction, implies -debug")
	flags.BoolVar(&opts.Quiet, "q", false, "perform operations quietly")
	flags.BoolVar(&opts.Version, "version", false, "print version information and exit")
}
