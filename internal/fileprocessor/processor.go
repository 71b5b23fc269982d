// Package fileprocessor handles ROM loading and running it in the selected mode
package fileprocessor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"

	"github.com/retroenv/retrochip8/internal/config"
	"github.com/retroenv/retrochip8/internal/disasm"
	"github.com/retroenv/retrochip8/internal/host"
	"github.com/retroenv/retrochip8/internal/loader"
	"github.com/retroenv/retrochip8/internal/options"
	"github.com/retroenv/retrochip8/internal/terminal"
	"github.com/retroenv/retrochip8/internal/vm"
	"github.com/retroenv/retrogolib/arch"
	"github.com/retroenv/retrogolib/buildinfo"
	"github.com/retroenv/retrogolib/log"
)

const programName = "retrochip8"

// ProcessFile loads the ROM file and disassembles it, runs it headless or
// runs it in the terminal, depending on the options. Output of the
// disassembly and headless modes is written to out unless an output file
// is configured.
func ProcessFile(ctx context.Context, logger *log.Logger, opts options.Program,
	interpreterOptions options.Interpreter, out io.Writer) error {

	program, err := loader.New(logger).Load(opts.Input)
	if err != nil {
		return fmt.Errorf("loading ROM: %w", err)
	}
	PrintInfo(logger, opts, interpreterOptions, len(program))

	switch {
	case opts.Disasm:
		return disassemble(logger, opts, program, out)
	case opts.Headless:
		return runHeadless(ctx, logger, interpreterOptions, program, out)
	default:
		return runTerminal(ctx, opts, interpreterOptions, program, out)
	}
}

// NewMachine creates a machine configured by the interpreter options.
func NewMachine(logger *log.Logger, interpreterOptions options.Interpreter) *vm.VM {
	opts := []vm.Option{
		vm.WithLogger(logger),
		vm.WithQuirks(interpreterOptions.Quirks),
		vm.WithTrace(interpreterOptions.Trace),
	}
	if seed := interpreterOptions.Seed; seed != 0 {
		rng := rand.New(rand.NewPCG(seed, seed))
		opts = append(opts, vm.WithRandom(func() uint8 {
			return uint8(rng.Uint32())
		}))
	}
	return vm.New(opts...)
}

func disassemble(logger *log.Logger, opts options.Program, program []byte, out io.Writer) error {
	writer := out
	if opts.Output != "" {
		file, err := os.Create(opts.Output)
		if err != nil {
			return fmt.Errorf("creating output file %s: %w", opts.Output, err)
		}
		defer func() { _ = file.Close() }()
		writer = file
	}

	dis := disasm.New(logger, program, disasm.Options{
		HexComments: !opts.NoHexComments,
		ZeroBytes:   opts.ZeroBytes,
	})
	if err := dis.Process(writer); err != nil {
		return fmt.Errorf("disassembling: %w", err)
	}
	return nil
}

func runHeadless(ctx context.Context, logger *log.Logger, interpreterOptions options.Interpreter,
	program []byte, out io.Writer) error {

	machine := NewMachine(logger, interpreterOptions)
	runner := host.New(logger, machine, interpreterOptions, nil, nil, nil)

	frame, runErr := runner.RunHeadless(ctx, program)
	if _, err := fmt.Fprintln(out, frame.String()); err != nil {
		return fmt.Errorf("writing screen: %w", err)
	}
	if runErr != nil {
		return fmt.Errorf("running headless: %w", runErr)
	}
	return nil
}

// runTerminal runs the program on the terminal screen. Log output is
// buffered while the screen is active and written to out afterwards.
func runTerminal(ctx context.Context, opts options.Program,
	interpreterOptions options.Interpreter, program []byte, out io.Writer) error {

	var logs bytes.Buffer
	logger := config.CreateLoggerWithOutput(opts, &logs)

	term, err := terminal.New(fmt.Sprintf("%s %s", programName, opts.Input))
	if err != nil {
		return fmt.Errorf("opening terminal: %w", err)
	}

	machine := NewMachine(logger, interpreterOptions)
	runner := host.New(logger, machine, interpreterOptions, term, term, term)
	runErr := runner.Run(ctx, program)
	term.Close()

	if _, err := io.Copy(out, &logs); err != nil {
		return fmt.Errorf("writing log output: %w", err)
	}
	if runErr != nil {
		return fmt.Errorf("running program: %w", runErr)
	}
	return nil
}

// PrintBanner prints application version information
func PrintBanner(logger *log.Logger, opts options.Program, version, commit, date string) {
	if opts.Quiet {
		return
	}

	logger.Info(programName, log.String("version", buildinfo.Version(version, commit, date)))
}

// PrintInfo prints the information about the input file and the run configuration.
func PrintInfo(logger *log.Logger, opts options.Program, interpreterOptions options.Interpreter, size int) {
	if opts.Quiet {
		return
	}

	mode := "terminal"
	switch {
	case opts.Disasm:
		mode = "disassembly"
	case opts.Headless:
		mode = "headless"
	}

	logger.Info("Processing ROM",
		log.Stringer("system", arch.CHIP8System),
		log.String("file", opts.Input),
		log.Int("size", size),
		log.String("mode", mode),
		log.Stringer("quirks", interpreterOptions.Quirks),
		log.Int("ips", interpreterOptions.IPS),
	)
}
