// Package opcode decodes CHIP-8 instruction words into typed instructions.
package opcode

import (
	"errors"
	"fmt"
)

// Size is the size of every CHIP-8 instruction in bytes.
const Size = 2

// ErrUnknownOpcode is returned for words that do not match any instruction.
var ErrUnknownOpcode = errors.New("unknown opcode")

// Op identifies the operation of a decoded instruction.
type Op uint8

// Operations of the base CHIP-8 instruction set.
const (
	Invalid  Op = iota
	Cls         // 00E0
	Ret         // 00EE
	Jp          // 1NNN
	Call        // 2NNN
	SeByte      // 3XNN
	SneByte     // 4XNN
	SeReg       // 5XY0
	LdByte      // 6XNN
	AddByte     // 7XNN
	LdReg       // 8XY0
	Or          // 8XY1
	And         // 8XY2
	Xor         // 8XY3
	AddReg      // 8XY4
	Sub         // 8XY5
	Shr         // 8XY6
	Subn        // 8XY7
	Shl         // 8XYE
	SneReg      // 9XY0
	LdI         // ANNN
	JpV0        // BNNN
	Rnd         // CXNN
	Drw         // DXYN
	Skp         // EX9E
	Sknp        // EXA1
	LdVxDT      // FX07
	LdVxK       // FX0A
	LdDTVx      // FX15
	LdSTVx      // FX18
	AddI        // FX1E
	LdF         // FX29
	LdB         // FX33
	LdIVx       // FX55
	LdVxI       // FX65
)

var opNames = [...]string{
	Invalid: "invalid",
	Cls:     "cls",
	Ret:     "ret",
	Jp:      "jp",
	Call:    "call",
	SeByte:  "se",
	SneByte: "sne",
	SeReg:   "se",
	LdByte:  "ld",
	AddByte: "add",
	LdReg:   "ld",
	Or:      "or",
	And:     "and",
	Xor:     "xor",
	AddReg:  "add",
	Sub:     "sub",
	Shr:     "shr",
	Subn:    "subn",
	Shl:     "shl",
	SneReg:  "sne",
	LdI:     "ld",
	JpV0:    "jp",
	Rnd:     "rnd",
	Drw:     "drw",
	Skp:     "skp",
	Sknp:    "sknp",
	LdVxDT:  "ld",
	LdVxK:   "ld",
	LdDTVx:  "ld",
	LdSTVx:  "ld",
	AddI:    "add",
	LdF:     "ld",
	LdB:     "ld",
	LdIVx:   "ld",
	LdVxI:   "ld",
}

// String returns the assembler mnemonic of the operation.
func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", o)
}

// Instruction is a decoded CHIP-8 instruction with all operand fields
// extracted. Only the fields used by the operation are meaningful.
type Instruction struct {
	Op   Op
	Word uint16 // raw instruction word

	X   uint8  // second nibble, register index
	Y   uint8  // third nibble, register index
	N   uint8  // fourth nibble, 4 bit immediate
	NN  uint8  // low byte, 8 bit immediate
	NNN uint16 // low 12 bits, address
}

// Decode decodes an instruction word.
func Decode(word uint16) (Instruction, error) {
	ins := Instruction{
		Word: word,
		X:    uint8(word>>8) & 0x0F,
		Y:    uint8(word>>4) & 0x0F,
		N:    uint8(word) & 0x0F,
		NN:   uint8(word),
		NNN:  word & 0x0FFF,
	}

	switch word >> 12 {
	case 0x0:
		switch word {
		case 0x00E0:
			ins.Op = Cls
		case 0x00EE:
			ins.Op = Ret
		}
	case 0x1:
		ins.Op = Jp
	case 0x2:
		ins.Op = Call
	case 0x3:
		ins.Op = SeByte
	case 0x4:
		ins.Op = SneByte
	case 0x5:
		if ins.N == 0x0 {
			ins.Op = SeReg
		}
	case 0x6:
		ins.Op = LdByte
	case 0x7:
		ins.Op = AddByte
	case 0x8:
		ins.Op = decodeALU(ins.N)
	case 0x9:
		if ins.N == 0x0 {
			ins.Op = SneReg
		}
	case 0xA:
		ins.Op = LdI
	case 0xB:
		ins.Op = JpV0
	case 0xC:
		ins.Op = Rnd
	case 0xD:
		ins.Op = Drw
	case 0xE:
		switch ins.NN {
		case 0x9E:
			ins.Op = Skp
		case 0xA1:
			ins.Op = Sknp
		}
	case 0xF:
		ins.Op = decodeMisc(ins.NN)
	}

	if ins.Op == Invalid {
		return ins, fmt.Errorf("%w: $%04X", ErrUnknownOpcode, word)
	}
	return ins, nil
}

// decodeALU decodes the register arithmetic group 8XYN.
func decodeALU(n uint8) Op {
	switch n {
	case 0x0:
		return LdReg
	case 0x1:
		return Or
	case 0x2:
		return And
	case 0x3:
		return Xor
	case 0x4:
		return AddReg
	case 0x5:
		return Sub
	case 0x6:
		return Shr
	case 0x7:
		return Subn
	case 0xE:
		return Shl
	default:
		return Invalid
	}
}

// decodeMisc decodes the timer, index and memory group FXNN.
func decodeMisc(nn uint8) Op {
	switch nn {
	case 0x07:
		return LdVxDT
	case 0x0A:
		return LdVxK
	case 0x15:
		return LdDTVx
	case 0x18:
		return LdSTVx
	case 0x1E:
		return AddI
	case 0x29:
		return LdF
	case 0x33:
		return LdB
	case 0x55:
		return LdIVx
	case 0x65:
		return LdVxI
	default:
		return Invalid
	}
}
