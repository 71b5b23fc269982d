package vm

import (
	"fmt"

	"github.com/retroenv/retrochip8/internal/memory"
	"github.com/retroenv/retrochip8/internal/opcode"
	"github.com/retroenv/retrogolib/log"
)

// execute decodes and executes an instruction word. All checks that can fail
// run before any state is modified, the program counter is committed last.
func (v *VM) execute(word uint16) (Status, error) {
	ins, err := opcode.Decode(word)
	if err != nil {
		return StatusRunning, err
	}

	if v.trace {
		v.logger.Debug("Executing",
			log.Hex("address", v.regs.PC),
			log.Hex("opcode", word),
			log.String("instruction", ins.String()))
	}

	r := &v.regs
	next := r.PC + opcode.Size

	switch ins.Op {
	case opcode.Cls:
		v.display.Clear()

	case opcode.Ret:
		address, err := r.pop()
		if err != nil {
			return StatusRunning, err
		}
		next = address

	case opcode.Jp:
		next = ins.NNN

	case opcode.Call:
		if err := r.push(next); err != nil {
			return StatusRunning, err
		}
		next = ins.NNN

	case opcode.SeByte, opcode.SneByte, opcode.SeReg, opcode.SneReg:
		if v.compare(ins) {
			next += opcode.Size
		}

	case opcode.LdByte:
		r.V[ins.X] = ins.NN

	case opcode.AddByte:
		r.V[ins.X] += ins.NN

	case opcode.LdReg, opcode.Or, opcode.And, opcode.Xor,
		opcode.AddReg, opcode.Sub, opcode.Subn:
		v.arithmetic(ins)

	case opcode.Shr, opcode.Shl:
		v.shift(ins)

	case opcode.LdI:
		r.I = ins.NNN

	case opcode.JpV0:
		next = v.jumpOffset(ins)

	case opcode.Rnd:
		r.V[ins.X] = v.random() & ins.NN

	case opcode.Drw:
		if err := v.draw(ins); err != nil {
			return StatusRunning, err
		}

	case opcode.Skp, opcode.Sknp:
		pressed, err := v.keypad.IsPressed(r.V[ins.X])
		if err != nil {
			return StatusRunning, fmt.Errorf("reading key of V%X: %w", ins.X, err)
		}
		if pressed == (ins.Op == opcode.Skp) {
			next += opcode.Size
		}

	case opcode.LdVxK:
		v.keypad.ResetPresses()
		v.awaitingKey = true
		v.waitRegister = ins.X
		return StatusAwaitingKey, nil

	case opcode.LdVxDT:
		r.V[ins.X] = v.timers.Delay

	case opcode.LdDTVx:
		v.timers.Delay = r.V[ins.X]

	case opcode.LdSTVx:
		v.timers.Sound = r.V[ins.X]

	case opcode.AddI:
		r.I += uint16(r.V[ins.X])

	case opcode.LdF:
		r.I = memory.FontAddress(r.V[ins.X])

	case opcode.LdB, opcode.LdIVx, opcode.LdVxI:
		if err := v.transfer(ins); err != nil {
			return StatusRunning, err
		}

	default:
		return StatusRunning, fmt.Errorf("%w: $%04X", opcode.ErrUnknownOpcode, word)
	}

	r.PC = next
	return StatusRunning, nil
}

// compare evaluates the condition of the skip instructions
// 3XNN, 4XNN, 5XY0 and 9XY0.
func (v *VM) compare(ins opcode.Instruction) bool {
	vx := v.regs.V[ins.X]
	switch ins.Op {
	case opcode.SeByte:
		return vx == ins.NN
	case opcode.SneByte:
		return vx != ins.NN
	case opcode.SeReg:
		return vx == v.regs.V[ins.Y]
	default:
		return vx != v.regs.V[ins.Y]
	}
}

// arithmetic executes the register group 8XY0-8XY7. Both operands are read
// before VX is written, VF is written last so the flag wins if X is F.
func (v *VM) arithmetic(ins opcode.Instruction) {
	r := &v.regs
	vx, vy := r.V[ins.X], r.V[ins.Y]

	switch ins.Op {
	case opcode.LdReg:
		r.V[ins.X] = vy

	case opcode.Or, opcode.And, opcode.Xor:
		switch ins.Op {
		case opcode.Or:
			r.V[ins.X] = vx | vy
		case opcode.And:
			r.V[ins.X] = vx & vy
		default:
			r.V[ins.X] = vx ^ vy
		}
		if v.quirks.VFReset {
			r.V[0xF] = 0
		}

	case opcode.AddReg:
		sum := uint16(vx) + uint16(vy)
		r.V[ins.X] = uint8(sum)
		r.V[0xF] = uint8(sum >> 8)

	case opcode.Sub:
		r.V[ins.X] = vx - vy
		r.V[0xF] = notBorrow(vx, vy)

	case opcode.Subn:
		r.V[ins.X] = vy - vx
		r.V[0xF] = notBorrow(vy, vx)
	}
}

// notBorrow returns 1 if a - b does not borrow.
func notBorrow(a, b uint8) uint8 {
	if a >= b {
		return 1
	}
	return 0
}

// shift executes 8XY6 and 8XYE, VF receives the bit shifted out.
func (v *VM) shift(ins opcode.Instruction) {
	r := &v.regs
	source := r.V[ins.X]
	if v.quirks.ShiftUsesVY {
		source = r.V[ins.Y]
	}

	if ins.Op == opcode.Shr {
		r.V[ins.X] = source >> 1
		r.V[0xF] = source & 0x01
		return
	}
	r.V[ins.X] = source << 1
	r.V[0xF] = source >> 7
}

// jumpOffset returns the target of BNNN.
func (v *VM) jumpOffset(ins opcode.Instruction) uint16 {
	offset := v.regs.V[0]
	if v.quirks.JumpUsesVX {
		offset = v.regs.V[ins.X]
	}
	return ins.NNN + uint16(offset)
}

// draw executes DXYN. The sprite rows are read completely before the
// display is touched.
func (v *VM) draw(ins opcode.Instruction) error {
	r := &v.regs
	x, y := r.V[ins.X], r.V[ins.Y]

	rows, err := v.memory.ReadRange(r.I, int(ins.N))
	if err != nil {
		return fmt.Errorf("reading sprite: %w", err)
	}

	collision := v.display.DrawSprite(x, y, rows, v.quirks.WrapSprites)
	if collision {
		r.V[0xF] = 1
	} else {
		r.V[0xF] = 0
	}
	return nil
}

// transfer executes the memory transfer instructions FX33, FX55 and FX65.
func (v *VM) transfer(ins opcode.Instruction) error {
	r := &v.regs
	count := int(ins.X) + 1

	switch ins.Op {
	case opcode.LdB:
		value := r.V[ins.X]
		digits := []byte{value / 100, value / 10 % 10, value % 10}
		if err := v.memory.WriteRange(r.I, digits); err != nil {
			return fmt.Errorf("storing BCD: %w", err)
		}
		return nil

	case opcode.LdIVx:
		if err := v.memory.WriteRange(r.I, r.V[:count]); err != nil {
			return fmt.Errorf("storing registers: %w", err)
		}

	default:
		data, err := v.memory.ReadRange(r.I, count)
		if err != nil {
			return fmt.Errorf("loading registers: %w", err)
		}
		copy(r.V[:], data)
	}

	if v.quirks.LoadStoreIncrementsI {
		r.I += uint16(count)
	}
	return nil
}
