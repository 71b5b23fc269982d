package opcode

import (
	"errors"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		word uint16
		op   Op
	}{
		{0x00E0, Cls},
		{0x00EE, Ret},
		{0x1234, Jp},
		{0x2345, Call},
		{0x3A12, SeByte},
		{0x4A12, SneByte},
		{0x5AB0, SeReg},
		{0x6A12, LdByte},
		{0x7A12, AddByte},
		{0x8AB0, LdReg},
		{0x8AB1, Or},
		{0x8AB2, And},
		{0x8AB3, Xor},
		{0x8AB4, AddReg},
		{0x8AB5, Sub},
		{0x8AB6, Shr},
		{0x8AB7, Subn},
		{0x8ABE, Shl},
		{0x9AB0, SneReg},
		{0xA123, LdI},
		{0xB123, JpV0},
		{0xCA0F, Rnd},
		{0xDAB5, Drw},
		{0xEA9E, Skp},
		{0xEAA1, Sknp},
		{0xFA07, LdVxDT},
		{0xFA0A, LdVxK},
		{0xFA15, LdDTVx},
		{0xFA18, LdSTVx},
		{0xFA1E, AddI},
		{0xFA29, LdF},
		{0xFA33, LdB},
		{0xFA55, LdIVx},
		{0xFA65, LdVxI},
	}

	for _, tt := range tests {
		t.Run(tt.op.String(), func(t *testing.T) {
			ins, err := Decode(tt.word)
			assert.NoError(t, err)
			assert.Equal(t, tt.op, ins.Op)
			assert.Equal(t, tt.word, ins.Word)
		})
	}
}

func TestDecodeOperands(t *testing.T) {
	ins, err := Decode(0xD7A3)
	assert.NoError(t, err)
	assert.Equal(t, uint8(0x7), ins.X)
	assert.Equal(t, uint8(0xA), ins.Y)
	assert.Equal(t, uint8(0x3), ins.N)
	assert.Equal(t, uint8(0xA3), ins.NN)
	assert.Equal(t, uint16(0x7A3), ins.NNN)
}

func TestDecodeUnknown(t *testing.T) {
	words := []uint16{
		0x0000, // machine code routine
		0x0123,
		0x5AB1,
		0x8AB8,
		0x8ABF,
		0x9AB1,
		0xEA00,
		0xFA00,
		0xFAFF,
	}

	for _, word := range words {
		_, err := Decode(word)
		assert.True(t, errors.Is(err, ErrUnknownOpcode))
	}
}

func TestInstructionString(t *testing.T) {
	tests := []struct {
		word   uint16
		params string
	}{
		{0x00E0, ""},
		{0x1208, "$208"},
		{0x2ABC, "$ABC"},
		{0x3A12, "VA, $12"},
		{0x5AB0, "VA, VB"},
		{0x8AB6, "VA, VB"},
		{0xA2F0, "I, $2F0"},
		{0xB300, "V0, $300"},
		{0xD125, "V1, V2, $5"},
		{0xE39E, "V3"},
		{0xF40A, "V4, K"},
		{0xF515, "DT, V5"},
		{0xF618, "ST, V6"},
		{0xF71E, "I, V7"},
		{0xF829, "F, V8"},
		{0xF933, "B, V9"},
		{0xFA55, "[I], VA"},
		{0xFB65, "VB, [I]"},
		{0xFC07, "VC, DT"},
	}

	for _, tt := range tests {
		ins, err := Decode(tt.word)
		assert.NoError(t, err)

		expected := ins.Name()
		if tt.params != "" {
			expected += " " + tt.params
		}
		assert.Equal(t, expected, ins.String())
	}
}

func TestIsSkip(t *testing.T) {
	tests := []struct {
		word     uint16
		expected bool
	}{
		{0x3A12, true},
		{0x4A12, true},
		{0x5AB0, true},
		{0x9AB0, true},
		{0xE19E, true},
		{0xE1A1, true},
		{0x1200, false},
		{0x00EE, false},
		{0xF10A, false},
	}

	for _, tt := range tests {
		ins, err := Decode(tt.word)
		assert.NoError(t, err)
		assert.Equal(t, tt.expected, ins.IsSkip())
	}
}

func TestOpString(t *testing.T) {
	assert.Equal(t, "drw", Drw.String())
	assert.Equal(t, "Op(200)", Op(200).String())
}
