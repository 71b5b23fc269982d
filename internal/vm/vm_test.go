package vm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/retroenv/retrochip8/internal/display"
	"github.com/retroenv/retrochip8/internal/keypad"
	"github.com/retroenv/retrochip8/internal/memory"
	"github.com/retroenv/retrochip8/internal/opcode"
	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

const testRandom = 0xAB

// newTestVM returns a machine with the given instruction words loaded.
func newTestVM(t *testing.T, quirks Quirks, words ...uint16) *VM {
	t.Helper()

	v := New(
		WithLogger(log.NewTestLogger(t)),
		WithQuirks(quirks),
		WithRandom(func() uint8 { return testRandom }),
		WithTrace(true),
	)

	program := make([]byte, 0, len(words)*2)
	for _, word := range words {
		program = append(program, byte(word>>8), byte(word))
	}
	assert.NoError(t, v.Load(program))
	return v
}

// run executes n steps and fails the test on any error.
func run(t *testing.T, v *VM, n int) {
	t.Helper()
	for range n {
		_, err := v.Step()
		assert.NoError(t, err)
	}
}

func TestNewInitialState(t *testing.T) {
	v := New(WithLogger(log.NewTestLogger(t)))

	regs := v.Registers()
	assert.Equal(t, uint16(memory.ProgramStart), regs.PC)
	assert.Equal(t, uint8(0), regs.SP)
	assert.Equal(t, uint16(0), regs.I)
	assert.Equal(t, display.Frame{}, v.Display().Snapshot())
	assert.False(t, v.SoundActive())
	assert.False(t, v.AwaitingKey())
	assert.Equal(t, DefaultQuirks(), v.Quirks())
}

func TestFontDigitZero(t *testing.T) {
	v := newTestVM(t, DefaultQuirks(),
		0x6000, // LD V0, $00
		0xF029, // LD F, V0
	)
	run(t, v, 2)

	sprite, err := v.ReadMemory(v.Registers().I, memory.FontSpriteSize)
	assert.NoError(t, err)
	assert.Equal(t, []byte{0xF0, 0x90, 0x90, 0x90, 0xF0}, sprite)
}

func TestLoad(t *testing.T) {
	t.Run("too large", func(t *testing.T) {
		v := New(WithLogger(log.NewTestLogger(t)))
		err := v.Load(make([]byte, MaxProgramSize+1))
		assert.True(t, errors.Is(err, ErrProgramTooLarge))
	})

	t.Run("maximum size", func(t *testing.T) {
		v := New(WithLogger(log.NewTestLogger(t)))
		program := make([]byte, MaxProgramSize)
		program[len(program)-1] = 0x42
		assert.NoError(t, v.Load(program))

		data, err := v.ReadMemory(memory.MaxAddress, 1)
		assert.NoError(t, err)
		assert.Equal(t, []byte{0x42}, data)
	})

	t.Run("resets state", func(t *testing.T) {
		v := newTestVM(t, DefaultQuirks(),
			0x6A05, // LD VA, $05
			0xFA15, // LD DT, VA
			0x2200, // CALL $200
		)
		run(t, v, 3)
		assert.NoError(t, v.Keypad().SetKey(0x1, true))

		assert.NoError(t, v.Load([]byte{0x00, 0xE0}))

		regs := v.Registers()
		assert.Equal(t, uint16(memory.ProgramStart), regs.PC)
		assert.Equal(t, uint8(0), regs.V[0xA])
		assert.Equal(t, uint8(0), regs.SP)
		assert.Equal(t, uint8(0), v.Timers().Delay)
		pressed, err := v.Keypad().IsPressed(0x1)
		assert.NoError(t, err)
		assert.False(t, pressed)

		data, err := v.ReadMemory(memory.ProgramStart+2, 2)
		assert.NoError(t, err)
		assert.Equal(t, []byte{0, 0}, data)
	})
}

func TestAddWithCarry(t *testing.T) {
	tests := []struct {
		name   string
		vx, vy uint8
		result uint8
		flag   uint8
	}{
		{"overflow", 0xFF, 0x01, 0x00, 1},
		{"no overflow", 0x01, 0x01, 0x02, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newTestVM(t, DefaultQuirks(),
				0x6000|uint16(tt.vx), // LD V0, vx
				0x6100|uint16(tt.vy), // LD V1, vy
				0x8014,               // ADD V0, V1
			)
			run(t, v, 3)

			regs := v.Registers()
			assert.Equal(t, tt.result, regs.V[0])
			assert.Equal(t, tt.flag, regs.V[0xF])
		})
	}
}

func TestSubtract(t *testing.T) {
	tests := []struct {
		name   string
		op     uint16
		vx, vy uint8
		result uint8
		flag   uint8
	}{
		{"sub borrow", 0x8015, 0x01, 0x02, 0xFF, 0},
		{"sub no borrow", 0x8015, 0x02, 0x01, 0x01, 1},
		{"sub equal", 0x8015, 0x05, 0x05, 0x00, 1},
		{"subn borrow", 0x8017, 0x02, 0x01, 0xFF, 0},
		{"subn no borrow", 0x8017, 0x01, 0x02, 0x01, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newTestVM(t, DefaultQuirks(),
				0x6000|uint16(tt.vx),
				0x6100|uint16(tt.vy),
				tt.op,
			)
			run(t, v, 3)

			regs := v.Registers()
			assert.Equal(t, tt.result, regs.V[0])
			assert.Equal(t, tt.flag, regs.V[0xF])
		})
	}
}

func TestFlagRegisterAsOperand(t *testing.T) {
	t.Run("VF as destination keeps the flag", func(t *testing.T) {
		v := newTestVM(t, DefaultQuirks(),
			0x6FFF, // LD VF, $FF
			0x6101, // LD V1, $01
			0x8F14, // ADD VF, V1
		)
		run(t, v, 3)
		assert.Equal(t, uint8(1), v.Registers().V[0xF])
	})

	t.Run("VF as source is read before the flag write", func(t *testing.T) {
		v := newTestVM(t, DefaultQuirks(),
			0x6003, // LD V0, $03
			0x6F05, // LD VF, $05
			0x80F5, // SUB V0, VF
		)
		run(t, v, 3)

		regs := v.Registers()
		assert.Equal(t, uint8(0xFE), regs.V[0])
		assert.Equal(t, uint8(0), regs.V[0xF])
	})

	t.Run("shift of VF stores the shifted out bit", func(t *testing.T) {
		v := newTestVM(t, Quirks{},
			0x6F81, // LD VF, $81
			0x8FF6, // SHR VF
		)
		run(t, v, 2)
		assert.Equal(t, uint8(1), v.Registers().V[0xF])
	})
}

func TestLogicVFReset(t *testing.T) {
	tests := []struct {
		name   string
		op     uint16
		result uint8
	}{
		{"or", 0x8011, 0x0E},
		{"and", 0x8012, 0x08},
		{"xor", 0x8013, 0x06},
	}

	for _, tt := range tests {
		for _, reset := range []bool{true, false} {
			t.Run(fmt.Sprintf("%s reset %t", tt.name, reset), func(t *testing.T) {
				v := newTestVM(t, Quirks{VFReset: reset},
					0x600C, // LD V0, $0C
					0x610A, // LD V1, $0A
					0x6F07, // LD VF, $07
					tt.op,
				)
				run(t, v, 4)

				regs := v.Registers()
				assert.Equal(t, tt.result, regs.V[0])
				if reset {
					assert.Equal(t, uint8(0), regs.V[0xF])
				} else {
					assert.Equal(t, uint8(7), regs.V[0xF])
				}
			})
		}
	}
}

func TestShift(t *testing.T) {
	tests := []struct {
		name   string
		quirks Quirks
		op     uint16
		result uint8
		flag   uint8
	}{
		{"shr in place", Quirks{}, 0x8016, 0x40, 1},
		{"shr from VY", Quirks{ShiftUsesVY: true}, 0x8016, 0x02, 0},
		{"shl in place", Quirks{}, 0x801E, 0x02, 1},
		{"shl from VY", Quirks{ShiftUsesVY: true}, 0x801E, 0x08, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newTestVM(t, tt.quirks,
				0x6081, // LD V0, $81
				0x6104, // LD V1, $04
				tt.op,
			)
			run(t, v, 3)

			regs := v.Registers()
			assert.Equal(t, tt.result, regs.V[0])
			assert.Equal(t, tt.flag, regs.V[0xF])
		})
	}
}

func TestCallReturn(t *testing.T) {
	v := newTestVM(t, DefaultQuirks(),
		0x2206, // 200: CALL $206
		0x6001, // 202: LD V0, $01
		0x1204, // 204: JP $204
		0x00EE, // 206: RET
	)

	run(t, v, 1)
	assert.Equal(t, uint16(0x206), v.PC())
	assert.Equal(t, uint8(1), v.Registers().SP)

	run(t, v, 1)
	assert.Equal(t, uint16(0x202), v.PC())
	assert.Equal(t, uint8(0), v.Registers().SP)
}

func TestStackOverflow(t *testing.T) {
	v := newTestVM(t, DefaultQuirks(),
		0x2200, // CALL $200
	)
	run(t, v, StackDepth)

	_, err := v.Step()
	assert.True(t, errors.Is(err, ErrStackOverflow))
	assert.Equal(t, uint8(StackDepth), v.Registers().SP)
	assert.Equal(t, uint16(0x200), v.PC())
}

func TestStackUnderflow(t *testing.T) {
	v := newTestVM(t, DefaultQuirks(),
		0x00EE, // RET
	)

	_, err := v.Step()
	assert.True(t, errors.Is(err, ErrStackUnderflow))

	var stepErr *StepError
	assert.True(t, errors.As(err, &stepErr))
	assert.Equal(t, uint16(0x200), stepErr.Address)
	assert.Equal(t, uint16(0x00EE), stepErr.Word)
	assert.Equal(t, uint16(0x200), v.PC())
}

func TestSkip(t *testing.T) {
	tests := []struct {
		name    string
		op      uint16
		skipped bool
	}{
		{"SE byte equal", 0x3005, true},
		{"SE byte not equal", 0x3006, false},
		{"SNE byte equal", 0x4005, false},
		{"SNE byte not equal", 0x4006, true},
		{"SE reg equal", 0x5010, true},
		{"SE reg not equal", 0x5020, false},
		{"SNE reg equal", 0x9010, false},
		{"SNE reg not equal", 0x9020, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newTestVM(t, DefaultQuirks(),
				0x6005, // LD V0, $05
				0x6105, // LD V1, $05
				0x6209, // LD V2, $09
				tt.op,
			)
			run(t, v, 4)

			expected := uint16(0x208)
			if tt.skipped {
				expected = 0x20A
			}
			assert.Equal(t, expected, v.PC())
		})
	}
}

func TestJump(t *testing.T) {
	t.Run("absolute", func(t *testing.T) {
		v := newTestVM(t, DefaultQuirks(), 0x1ABC)
		run(t, v, 1)
		assert.Equal(t, uint16(0xABC), v.PC())
	})

	tests := []struct {
		name     string
		quirks   Quirks
		expected uint16
	}{
		{"offset V0", Quirks{}, 0x312},
		{"offset VX", Quirks{JumpUsesVX: true}, 0x320},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newTestVM(t, tt.quirks,
				0x6002, // LD V0, $02
				0x6310, // LD V3, $10
				0xB310, // JP V0, $310
			)
			run(t, v, 3)
			assert.Equal(t, tt.expected, v.PC())
		})
	}
}

func TestLoadAndAddImmediate(t *testing.T) {
	v := newTestVM(t, DefaultQuirks(),
		0x6AFE, // LD VA, $FE
		0x7A03, // ADD VA, $03
		0x8BA0, // LD VB, VA
	)
	run(t, v, 3)

	regs := v.Registers()
	assert.Equal(t, uint8(0x01), regs.V[0xA])
	assert.Equal(t, uint8(0x01), regs.V[0xB])
	assert.Equal(t, uint8(0), regs.V[0xF])
}

func TestRandom(t *testing.T) {
	v := newTestVM(t, DefaultQuirks(),
		0xC50F, // RND V5, $0F
	)
	run(t, v, 1)
	assert.Equal(t, uint8(testRandom&0x0F), v.Registers().V[5])
}

func TestIndex(t *testing.T) {
	v := newTestVM(t, DefaultQuirks(),
		0xAFFE, // LD I, $FFE
		0x6005, // LD V0, $05
		0xF01E, // ADD I, V0
	)
	run(t, v, 3)
	assert.Equal(t, uint16(0x1003), v.Registers().I)
}

func TestDraw(t *testing.T) {
	v := newTestVM(t, DefaultQuirks(),
		0x6001, // LD V0, $01
		0x6102, // LD V1, $02
		0xF029, // LD F, V0
		0xD015, // DRW V0, V1, 5
		0xD015, // DRW V0, V1, 5
	)

	run(t, v, 4)
	d := v.Display()
	assert.True(t, d.Dirty())
	assert.Equal(t, uint8(0), v.Registers().V[0xF])
	// digit 1 sprite: 0x20, 0x60, 0x20, 0x20, 0x70
	assert.True(t, d.Pixel(3, 2))
	assert.True(t, d.Pixel(2, 3))
	assert.False(t, d.Pixel(1, 2))

	run(t, v, 1)
	assert.Equal(t, uint8(1), v.Registers().V[0xF])
	assert.Equal(t, display.Frame{}, d.Snapshot())
}

func TestDrawWrapQuirk(t *testing.T) {
	for _, wrap := range []bool{true, false} {
		v := newTestVM(t, Quirks{WrapSprites: wrap},
			0x603E, // LD V0, $3E
			0x6100, // LD V1, $00
			0xA20A, // LD I, $20A
			0xD011, // DRW V0, V1, 1
			0x1208, // JP $208
			0xF000, // sprite row
		)
		run(t, v, 4)

		assert.True(t, v.Display().Pixel(63, 0))
		assert.Equal(t, wrap, v.Display().Pixel(0, 0))
	}
}

func TestClearScreen(t *testing.T) {
	v := newTestVM(t, DefaultQuirks(),
		0xF029, // LD F, V0
		0xD005, // DRW V0, V0, 5
		0x00E0, // CLS
	)
	run(t, v, 2)
	assert.True(t, v.Display().Pixel(0, 0))

	run(t, v, 1)
	assert.Equal(t, display.Frame{}, v.Display().Snapshot())
}

func TestKeySkip(t *testing.T) {
	tests := []struct {
		name     string
		op       uint16
		pressed  bool
		expected uint16
	}{
		{"SKP pressed", 0xE09E, true, 0x206},
		{"SKP released", 0xE09E, false, 0x204},
		{"SKNP pressed", 0xE0A1, true, 0x204},
		{"SKNP released", 0xE0A1, false, 0x206},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newTestVM(t, DefaultQuirks(),
				0x600E, // LD V0, $0E
				tt.op,
			)
			assert.NoError(t, v.Keypad().SetKey(0xE, tt.pressed))
			run(t, v, 2)
			assert.Equal(t, tt.expected, v.PC())
		})
	}
}

func TestKeySkipInvalidKey(t *testing.T) {
	v := newTestVM(t, DefaultQuirks(),
		0x6010, // LD V0, $10
		0xE09E, // SKP V0
	)
	run(t, v, 1)

	_, err := v.Step()
	assert.True(t, errors.Is(err, keypad.ErrInvalidKey))
	assert.Equal(t, uint16(0x202), v.PC())
}

func TestKeyWait(t *testing.T) {
	v := newTestVM(t, DefaultQuirks(),
		0xF50A, // LD V5, K
	)

	for range 3 {
		status, err := v.Step()
		assert.NoError(t, err)
		assert.Equal(t, StatusAwaitingKey, status)
		assert.Equal(t, uint16(0x200), v.PC())
		assert.True(t, v.AwaitingKey())
	}

	assert.NoError(t, v.Keypad().SetKey(0x7, true))

	status, err := v.Step()
	assert.NoError(t, err)
	assert.Equal(t, StatusRunning, status)
	assert.Equal(t, uint8(0x7), v.Registers().V[5])
	assert.Equal(t, uint16(0x202), v.PC())
	assert.False(t, v.AwaitingKey())
}

func TestKeyWaitIgnoresHeldKey(t *testing.T) {
	v := newTestVM(t, DefaultQuirks(),
		0xF00A, // LD V0, K
	)
	assert.NoError(t, v.Keypad().SetKey(0x3, true))

	status, err := v.Step()
	assert.NoError(t, err)
	assert.Equal(t, StatusAwaitingKey, status)

	status, err = v.Step()
	assert.NoError(t, err)
	assert.Equal(t, StatusAwaitingKey, status)

	assert.NoError(t, v.Keypad().SetKey(0x3, false))
	assert.NoError(t, v.Keypad().SetKey(0x3, true))

	status, err = v.Step()
	assert.NoError(t, err)
	assert.Equal(t, StatusRunning, status)
	assert.Equal(t, uint8(0x3), v.Registers().V[0])
}

func TestKeyWaitTimersKeepRunning(t *testing.T) {
	v := newTestVM(t, DefaultQuirks(),
		0x6003, // LD V0, $03
		0xF015, // LD DT, V0
		0xF10A, // LD V1, K
	)
	run(t, v, 3)
	assert.True(t, v.AwaitingKey())

	v.Tick()
	v.Tick()
	assert.Equal(t, uint8(1), v.Timers().Delay)
}

func TestTimers(t *testing.T) {
	v := newTestVM(t, DefaultQuirks(),
		0x6005, // LD V0, $05
		0xF015, // LD DT, V0
		0xF018, // LD ST, V0
		0xF107, // LD V1, DT
	)
	run(t, v, 3)
	assert.True(t, v.SoundActive())

	for range 2 {
		v.Tick()
	}
	run(t, v, 1)
	assert.Equal(t, uint8(3), v.Registers().V[1])

	for range 4 {
		v.Tick()
	}
	timers := v.Timers()
	assert.Equal(t, uint8(0), timers.Delay)
	assert.Equal(t, uint8(0), timers.Sound)
	assert.False(t, v.SoundActive())
}

func TestBCD(t *testing.T) {
	v := newTestVM(t, DefaultQuirks(),
		0x60FE, // LD V0, $FE
		0xA300, // LD I, $300
		0xF033, // LD B, V0
	)
	run(t, v, 3)

	data, err := v.ReadMemory(0x300, 3)
	assert.NoError(t, err)
	assert.Equal(t, []byte{2, 5, 4}, data)
	assert.Equal(t, uint16(0x300), v.Registers().I)
}

func TestStoreLoadRoundTrip(t *testing.T) {
	for _, quirks := range []Quirks{DefaultQuirks(), {}} {
		v := newTestVM(t, quirks,
			0x6011, // LD V0, $11
			0x6122, // LD V1, $22
			0x6233, // LD V2, $33
			0x6344, // LD V3, $44
			0xA400, // LD I, $400
			0xF355, // LD [I], V3
			0x6000, // LD V0, $00
			0x6100, // LD V1, $00
			0x6200, // LD V2, $00
			0x6300, // LD V3, $00
			0xA400, // LD I, $400
			0xF365, // LD V3, [I]
		)
		run(t, v, 12)

		regs := v.Registers()
		assert.Equal(t, [4]uint8{0x11, 0x22, 0x33, 0x44}, [4]uint8(regs.V[:4]))
		if quirks.LoadStoreIncrementsI {
			assert.Equal(t, uint16(0x404), regs.I)
		} else {
			assert.Equal(t, uint16(0x400), regs.I)
		}
	}
}

func TestStoreOutOfBoundsIsAtomic(t *testing.T) {
	v := newTestVM(t, DefaultQuirks(),
		0x6001, // LD V0, $01
		0xAFFE, // LD I, $FFE
		0xF355, // LD [I], V3
	)
	run(t, v, 2)

	_, err := v.Step()
	assert.True(t, errors.Is(err, memory.ErrOutOfBounds))

	regs := v.Registers()
	assert.Equal(t, uint16(0x204), regs.PC)
	assert.Equal(t, uint16(0xFFE), regs.I)
	data, err := v.ReadMemory(0xFFE, 2)
	assert.NoError(t, err)
	assert.Equal(t, []byte{0, 0}, data)
}

func TestDrawOutOfBounds(t *testing.T) {
	v := newTestVM(t, DefaultQuirks(),
		0xAFFD, // LD I, $FFD
		0xD00F, // DRW V0, V0, 15
	)
	run(t, v, 1)

	_, err := v.Step()
	assert.True(t, errors.Is(err, memory.ErrOutOfBounds))
	assert.Equal(t, display.Frame{}, v.Display().Snapshot())
}

func TestUnknownOpcode(t *testing.T) {
	v := newTestVM(t, DefaultQuirks(),
		0x5AB1,
	)

	_, err := v.Step()
	assert.True(t, errors.Is(err, opcode.ErrUnknownOpcode))
	assert.ErrorContains(t, err, "$5AB1")
	assert.Equal(t, uint16(0x200), v.PC())
}

func TestFetchOutOfBounds(t *testing.T) {
	v := newTestVM(t, DefaultQuirks(),
		0x1FFF, // JP $FFF
	)
	run(t, v, 1)

	_, err := v.Step()
	assert.True(t, errors.Is(err, memory.ErrOutOfBounds))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "running", StatusRunning.String())
	assert.Equal(t, "awaiting key", StatusAwaitingKey.String())
	assert.Equal(t, "Status(9)", Status(9).String())
}
