// Package host drives a CHIP-8 machine in real time and connects it to the
// renderer, input and audio collaborators.
package host

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/retroenv/retrochip8/internal/display"
	"github.com/retroenv/retrochip8/internal/keypad"
	"github.com/retroenv/retrochip8/internal/options"
	"github.com/retroenv/retrochip8/internal/timer"
	"github.com/retroenv/retrochip8/internal/vm"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/retrogolib/set"
)

// ErrBreakpoint is returned when execution reaches a breakpoint address.
var ErrBreakpoint = errors.New("breakpoint reached")

// Command is a request of the input collaborator to the host loop.
type Command int

const (
	// CommandNone requests nothing.
	CommandNone Command = iota
	// CommandQuit stops the host loop.
	CommandQuit
	// CommandReload reloads the program and restarts execution.
	CommandReload
)

// Renderer presents the frame buffer.
type Renderer interface {
	Render(frame display.Frame) error
}

// Input polls physical input events and forwards key state to the keypad.
type Input interface {
	Poll(keys *keypad.Keypad) (Command, error)
}

// Buzzer is told once per frame whether the tone should play.
type Buzzer interface {
	SetSound(active bool)
}

// StatusDisplay is optionally implemented by a renderer to show the
// execution state next to the frame.
type StatusDisplay interface {
	SetStatus(message string)
}

// Runner orchestrates timer ticks and instruction steps of a machine.
type Runner struct {
	logger  *log.Logger
	machine *vm.VM

	renderer Renderer
	input    Input
	buzzer   Buzzer

	ips         int
	cycles      int
	breakpoints set.Set[uint16]
}

// New returns a new runner for the machine. Any collaborator may be nil.
func New(logger *log.Logger, machine *vm.VM, opts options.Interpreter,
	renderer Renderer, input Input, buzzer Buzzer) *Runner {

	breakpoints := set.New[uint16]()
	for _, address := range opts.Breakpoints {
		breakpoints.Add(address)
	}

	return &Runner{
		logger:      logger,
		machine:     machine,
		renderer:    renderer,
		input:       input,
		buzzer:      buzzer,
		ips:         opts.IPS,
		cycles:      opts.Cycles,
		breakpoints: breakpoints,
	}
}

// Run loads the program and executes it in real time until the context is
// cancelled, the input requests to quit or a breakpoint is reached. A fault
// halts execution until the program is reloaded; quitting afterwards returns
// the fault.
func (r *Runner) Run(ctx context.Context, program []byte) error {
	if err := r.machine.Load(program); err != nil {
		return fmt.Errorf("loading program: %w", err)
	}
	if err := r.render(true); err != nil {
		return err
	}

	ticker := time.NewTicker(timer.Interval)
	defer ticker.Stop()

	var pacer stepPacer
	var fault error

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("running program: %w", ctx.Err())
		case <-ticker.C:
		}

		command, err := r.poll()
		if err != nil {
			return err
		}

		switch command {
		case CommandQuit:
			return fault
		case CommandReload:
			if err := r.machine.Load(program); err != nil {
				return fmt.Errorf("reloading program: %w", err)
			}
			fault = nil
			pacer = stepPacer{}
			r.setStatus("")
			r.logger.Info("Program reloaded")
		}

		if fault == nil {
			if err := r.runSteps(pacer.next(r.ips)); err != nil {
				if errors.Is(err, ErrBreakpoint) {
					_ = r.render(true)
					return err
				}
				fault = err
				r.setStatus(fmt.Sprintf("halted at $%03X, press F5 to reload", r.machine.PC()))
				r.logger.Error("Execution halted, press F5 to reload", log.Err(err))
			}
			r.machine.Tick()
		}

		if err := r.render(false); err != nil {
			return err
		}
		if r.buzzer != nil {
			r.buzzer.SetSound(fault == nil && r.machine.SoundActive())
		}
	}
}

// RunHeadless loads the program and executes the configured number of
// instructions without waiting for wall clock time. Timers are ticked at the
// rate that corresponds to the configured instructions per second. A pending
// key-wait consumes cycles like any other step.
func (r *Runner) RunHeadless(ctx context.Context, program []byte) (display.Frame, error) {
	if err := r.machine.Load(program); err != nil {
		return display.Frame{}, fmt.Errorf("loading program: %w", err)
	}

	var pacer stepPacer
	remaining := r.cycles
	for remaining > 0 {
		if err := ctx.Err(); err != nil {
			return r.machine.Display().Snapshot(), fmt.Errorf("running program: %w", err)
		}

		steps := min(pacer.next(r.ips), remaining)
		if err := r.runSteps(steps); err != nil {
			return r.machine.Display().Snapshot(), err
		}
		remaining -= steps
		r.machine.Tick()
	}

	r.logger.Debug("Headless run finished",
		log.Int("cycles", r.cycles),
		log.Hex("pc", r.machine.PC()))
	return r.machine.Display().Snapshot(), nil
}

// runSteps executes up to n instructions and stops early at breakpoints.
func (r *Runner) runSteps(n int) error {
	for range n {
		pc := r.machine.PC()
		if r.breakpoints.Contains(pc) && !r.machine.AwaitingKey() {
			r.logger.Info("Breakpoint reached", log.Hex("address", pc))
			return fmt.Errorf("%w at $%03X", ErrBreakpoint, pc)
		}

		if _, err := r.machine.Step(); err != nil {
			return fmt.Errorf("executing program: %w", err)
		}
	}
	return nil
}

// poll asks the input collaborator for key changes and commands.
func (r *Runner) poll() (Command, error) {
	if r.input == nil {
		return CommandNone, nil
	}
	command, err := r.input.Poll(r.machine.Keypad())
	if err != nil {
		return CommandNone, fmt.Errorf("polling input: %w", err)
	}
	return command, nil
}

// setStatus forwards the status message to the renderer if it can show it.
func (r *Runner) setStatus(message string) {
	if status, ok := r.renderer.(StatusDisplay); ok {
		status.SetStatus(message)
	}
}

// render presents the frame buffer if it changed since the last call or if
// forced.
func (r *Runner) render(force bool) error {
	d := r.machine.Display()
	if r.renderer == nil || (!force && !d.Dirty()) {
		return nil
	}
	if err := r.renderer.Render(d.Snapshot()); err != nil {
		return fmt.Errorf("rendering frame: %w", err)
	}
	d.ClearDirty()
	return nil
}

// stepPacer spreads the instructions per second evenly over the timer
// frames, carrying the remainder between frames.
type stepPacer struct {
	remainder int
}

// next returns the number of instructions to execute in the next frame.
func (p *stepPacer) next(ips int) int {
	total := ips + p.remainder
	steps := total / timer.Frequency
	p.remainder = total % timer.Frequency
	return steps
}
