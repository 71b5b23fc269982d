package opcode

import (
	"fmt"

	"github.com/retroenv/retrogolib/arch/cpu/chip8"
)

// Mnemonic returns the instruction name for the word as defined by the
// retrogolib CHIP-8 opcode table, or an empty string if no entry matches.
func Mnemonic(word uint16) string {
	for _, op := range chip8.Opcodes[int(word>>12)] {
		if op.Info.Mask&word == op.Info.Value && op.Instruction != nil {
			return op.Instruction.Name
		}
	}
	return ""
}

// IsSkip returns whether the instruction conditionally skips the next one.
func (i Instruction) IsSkip() bool {
	return chip8.SkipInstructions.Contains(i.Name())
}

// Name returns the mnemonic of the instruction. The retrogolib opcode table
// takes precedence, the decoder's own name is used as fallback.
func (i Instruction) Name() string {
	if name := Mnemonic(i.Word); name != "" {
		return name
	}
	return i.Op.String()
}

// String formats the instruction with its parameters as assembly code.
func (i Instruction) String() string {
	name := i.Name()
	if params := i.params(); params != "" {
		return fmt.Sprintf("%s %s", name, params)
	}
	return name
}

// params returns the formatted parameter string of the instruction.
func (i Instruction) params() string {
	switch i.Op {
	case Cls, Ret, Invalid:
		return "" // No parameters
	case Jp, Call:
		return fmt.Sprintf("$%03X", i.NNN)
	case JpV0:
		return fmt.Sprintf("V0, $%03X", i.NNN)
	case SeByte, SneByte, LdByte, AddByte, Rnd:
		return fmt.Sprintf("V%X, $%02X", i.X, i.NN)
	case SeReg, SneReg, LdReg, Or, And, Xor, AddReg, Sub, Subn, Shr, Shl:
		return fmt.Sprintf("V%X, V%X", i.X, i.Y)
	case LdI:
		return fmt.Sprintf("I, $%03X", i.NNN)
	case Drw:
		return fmt.Sprintf("V%X, V%X, $%X", i.X, i.Y, i.N)
	case Skp, Sknp:
		return fmt.Sprintf("V%X", i.X)
	default:
		return i.miscParams()
	}
}

// miscParams formats the FXNN group.
func (i Instruction) miscParams() string {
	switch i.Op {
	case LdVxDT:
		return fmt.Sprintf("V%X, DT", i.X)
	case LdVxK:
		return fmt.Sprintf("V%X, K", i.X)
	case LdDTVx:
		return fmt.Sprintf("DT, V%X", i.X)
	case LdSTVx:
		return fmt.Sprintf("ST, V%X", i.X)
	case AddI:
		return fmt.Sprintf("I, V%X", i.X)
	case LdF:
		return fmt.Sprintf("F, V%X", i.X)
	case LdB:
		return fmt.Sprintf("B, V%X", i.X)
	case LdIVx:
		return fmt.Sprintf("[I], V%X", i.X)
	case LdVxI:
		return fmt.Sprintf("V%X, [I]", i.X)
	}
	return ""
}
