// Package disasm implements a code flow tracing disassembler for CHIP-8
// programs that outputs an assembly listing.
package disasm

import (
	"fmt"
	"io"

	"github.com/retroenv/retrochip8/internal/memory"
	"github.com/retroenv/retrochip8/internal/opcode"
	"github.com/retroenv/retrogolib/log"
	"github.com/retroenv/retrogolib/set"
)

const (
	entryLabel  = "Start"
	funcNaming  = "_func_%04x"
	labelNaming = "_label_%04x"
)

// Options controls the listing output.
type Options struct {
	HexComments bool // output address and opcode bytes as comments
	ZeroBytes   bool // output trailing zero bytes of the program
}

// Disasm traces the code flow of a program and separates code from data.
type Disasm struct {
	logger  *log.Logger
	options Options
	program []byte

	code    map[uint16]opcode.Instruction // decoded instructions by address
	covered set.Set[uint16]               // addresses that belong to an instruction

	branchDestinations  set.Set[uint16]
	callDestinations    set.Set[uint16]
	offsetsToParse      []uint16
	offsetsToParseAdded set.Set[uint16]
}

// New creates a new disassembler for the program image loaded at the
// program start address.
func New(logger *log.Logger, program []byte, options Options) *Disasm {
	return &Disasm{
		logger:              logger,
		options:             options,
		program:             program,
		code:                make(map[uint16]opcode.Instruction),
		covered:             set.New[uint16](),
		branchDestinations:  set.New[uint16](),
		callDestinations:    set.New[uint16](),
		offsetsToParseAdded: set.New[uint16](),
	}
}

// Process traces the program and writes the listing to the writer.
func (dis *Disasm) Process(w io.Writer) error {
	dis.followExecutionFlow()

	dis.logger.Debug("Code flow traced",
		log.Int("instructions", len(dis.code)),
		log.Int("labels", len(dis.branchDestinations)))

	lw := &listingWriter{dis: dis, w: w}
	if err := lw.write(); err != nil {
		return fmt.Errorf("writing listing: %w", err)
	}
	return nil
}

// followExecutionFlow decodes all instructions reachable from the entry point.
func (dis *Disasm) followExecutionFlow() {
	dis.addAddressToParse(memory.ProgramStart)

	for len(dis.offsetsToParse) > 0 {
		address := dis.offsetsToParse[0]
		dis.offsetsToParse = dis.offsetsToParse[1:]

		ins, ok := dis.decodeAt(address)
		if !ok {
			continue
		}

		dis.code[address] = ins
		dis.covered.Add(address)
		dis.covered.Add(address + 1)

		for _, next := range dis.successors(address, ins) {
			dis.addAddressToParse(next)
		}
	}
}

// decodeAt decodes the instruction at the address if it is inside the
// program and does not overlap an already decoded instruction.
func (dis *Disasm) decodeAt(address uint16) (opcode.Instruction, bool) {
	index := int(address) - memory.ProgramStart
	if index < 0 || index+1 >= len(dis.program) {
		return opcode.Instruction{}, false
	}
	if dis.covered.Contains(address) || dis.covered.Contains(address+1) {
		return opcode.Instruction{}, false
	}

	word := uint16(dis.program[index])<<8 | uint16(dis.program[index+1])
	ins, err := opcode.Decode(word)
	if err != nil {
		dis.logger.Debug("Stopping trace at unknown opcode",
			log.Hex("address", address),
			log.Hex("opcode", word))
		return opcode.Instruction{}, false
	}
	return ins, true
}

// successors returns the addresses that execution can continue at after the
// instruction.
func (dis *Disasm) successors(address uint16, ins opcode.Instruction) []uint16 {
	next := address + opcode.Size

	switch {
	case ins.Op == opcode.Jp:
		dis.branchDestinations.Add(ins.NNN)
		return []uint16{ins.NNN}

	case ins.Op == opcode.Call:
		dis.branchDestinations.Add(ins.NNN)
		dis.callDestinations.Add(ins.NNN)
		return []uint16{ins.NNN, next}

	case ins.Op == opcode.Ret, ins.Op == opcode.JpV0:
		// the target of an indexed jump is only known at runtime
		return nil

	case ins.IsSkip():
		return []uint16{next, next + opcode.Size}

	default:
		return []uint16{next}
	}
}

// addAddressToParse adds an address to the list to be processed if the
// address has not been added before.
func (dis *Disasm) addAddressToParse(address uint16) {
	if dis.offsetsToParseAdded.Contains(address) {
		return
	}
	dis.offsetsToParseAdded.Add(address)
	dis.offsetsToParse = append(dis.offsetsToParse, address)
}

// label returns the label name of an address or an empty string.
func (dis *Disasm) label(address uint16) string {
	switch {
	case address == memory.ProgramStart:
		return entryLabel
	case dis.callDestinations.Contains(address):
		return fmt.Sprintf(funcNaming, address)
	case dis.branchDestinations.Contains(address):
		return fmt.Sprintf(labelNaming, address)
	default:
		return ""
	}
}
