package disasm

import (
	"fmt"
	"io"
	"strings"

	"github.com/retroenv/retrochip8/internal/memory"
	"github.com/retroenv/retrochip8/internal/opcode"
)

const (
	dataBytesPerLine = 8
	commentColumn    = 32
)

// listingWriter outputs the traced program as assembly.
type listingWriter struct {
	dis *Disasm
	w   io.Writer
	end int // address after the last written byte
}

func (lw *listingWriter) write() error {
	if _, err := fmt.Fprintf(lw.w, "; CHIP-8 ROM Disassembly\n"); err != nil {
		return fmt.Errorf("writing header comment: %w", err)
	}
	if _, err := fmt.Fprintf(lw.w, "; Program starts at $%03X in CHIP-8 memory space\n\n", memory.ProgramStart); err != nil {
		return fmt.Errorf("writing memory space comment: %w", err)
	}
	if _, err := fmt.Fprintf(lw.w, ".org $%03X\n\n", memory.ProgramStart); err != nil {
		return fmt.Errorf("writing org directive: %w", err)
	}

	lw.end = memory.ProgramStart + lw.endIndex()
	address := memory.ProgramStart
	for address < lw.end {
		addr := uint16(address)
		if err := lw.writeLabel(addr); err != nil {
			return err
		}

		if ins, ok := lw.dis.code[addr]; ok {
			if err := lw.writeCode(addr, ins); err != nil {
				return err
			}
			address += opcode.Size
			continue
		}

		n, err := lw.writeData(addr)
		if err != nil {
			return err
		}
		address += n
	}
	return nil
}

// writeLabel writes a label if the address is referenced.
func (lw *listingWriter) writeLabel(address uint16) error {
	label := lw.dis.label(address)
	if label == "" {
		return nil
	}
	if _, err := fmt.Fprintf(lw.w, "%s:\n", label); err != nil {
		return fmt.Errorf("writing label %s: %w", label, err)
	}
	return nil
}

// writeCode writes an instruction, branch targets are replaced by labels.
func (lw *listingWriter) writeCode(address uint16, ins opcode.Instruction) error {
	code := ins.String()
	if ins.Op == opcode.Jp || ins.Op == opcode.Call {
		if label := lw.dis.label(ins.NNN); label != "" && lw.isLabelWritten(ins.NNN) {
			code = ins.Name() + " " + label
		}
	}

	comment := ""
	if lw.dis.options.HexComments {
		comment = fmt.Sprintf("$%03X: %02X %02X", address, ins.Word>>8, ins.Word&0xFF)
	}
	return lw.writeLine("    "+code, comment)
}

// writeData writes raw data bytes starting at the address until the next
// instruction, label or line limit and returns the number of bytes written.
func (lw *listingWriter) writeData(address uint16) (int, error) {
	var buf strings.Builder
	buf.WriteString("    .byte ")

	n := 0
	for int(address)+n < lw.end && n < dataBytesPerLine {
		current := address + uint16(n)
		if n > 0 {
			if _, ok := lw.dis.code[current]; ok || lw.dis.label(current) != "" {
				break
			}
			buf.WriteString(", ")
		}
		fmt.Fprintf(&buf, "$%02X", lw.dis.program[int(current)-memory.ProgramStart])
		n++
	}

	comment := ""
	if lw.dis.options.HexComments {
		comment = fmt.Sprintf("$%03X", address)
	}
	if err := lw.writeLine(buf.String(), comment); err != nil {
		return 0, err
	}
	return n, nil
}

// isLabelWritten returns whether the label of the address is part of the
// listing. Addresses outside of the program or inside of an instruction
// are referenced by number.
func (lw *listingWriter) isLabelWritten(address uint16) bool {
	if int(address) < memory.ProgramStart || int(address) >= lw.end {
		return false
	}
	if _, ok := lw.dis.code[address]; ok {
		return true
	}
	return !lw.dis.covered.Contains(address)
}

func (lw *listingWriter) writeLine(line, comment string) error {
	if comment == "" {
		if _, err := fmt.Fprintf(lw.w, "%s\n", line); err != nil {
			return fmt.Errorf("writing line: %w", err)
		}
		return nil
	}
	if _, err := fmt.Fprintf(lw.w, "%-*s ; %s\n", commentColumn, line, comment); err != nil {
		return fmt.Errorf("writing line with comment: %w", err)
	}
	return nil
}

// endIndex finds the end of the last meaningful byte of the program.
func (lw *listingWriter) endIndex() int {
	program := lw.dis.program
	if lw.dis.options.ZeroBytes {
		return len(program)
	}

	for i := len(program) - 1; i >= 0; i-- {
		address := uint16(memory.ProgramStart + i)
		if program[i] != 0 || lw.dis.covered.Contains(address) || lw.dis.label(address) != "" {
			return i + 1
		}
	}
	return 0
}
