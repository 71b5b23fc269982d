// Package memory implements the 4KB CHIP-8 address space.
package memory

import (
	"errors"
	"fmt"
)

// CHIP-8 memory layout constants.
//
//	0x000-0x1FF: Interpreter area, holds the font sprites
//	0x200-0xFFF: User program and data area
const (
	// Size is the total amount of addressable memory in bytes.
	Size = 0x1000

	// MaxAddress is the highest valid address.
	MaxAddress = Size - 1

	// ProgramStart is the address programs are loaded to and start execution at.
	ProgramStart = 0x200

	// FontStart is the address of the first built-in font sprite.
	FontStart = 0x050

	// FontSpriteSize is the size in bytes of a single font sprite.
	FontSpriteSize = 5
)

// ErrOutOfBounds is returned for any access outside of the address space.
var ErrOutOfBounds = errors.New("memory access out of bounds")

// font contains the sprites for the hex digits 0-F.
var font = [16 * FontSpriteSize]byte{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}

// Memory is the flat byte addressable memory of the machine.
type Memory struct {
	data [Size]byte
}

// New returns a zeroed memory with the font loaded.
func New() *Memory {
	m := &Memory{}
	m.Reset()
	return m
}

// Reset zeroes the memory and reloads the font.
func (m *Memory) Reset() {
	clear(m.data[:])
	copy(m.data[FontStart:], font[:])
}

// FontAddress returns the address of the sprite for the given hex digit.
// Only the low nibble of the digit is used.
func FontAddress(digit uint8) uint16 {
	return FontStart + uint16(digit&0x0F)*FontSpriteSize
}

// ReadByte returns the byte at the given address.
func (m *Memory) ReadByte(address uint16) (byte, error) {
	if err := checkRange(address, 1); err != nil {
		return 0, err
	}
	return m.data[address], nil
}

// WriteByte writes a byte to the given address.
func (m *Memory) WriteByte(address uint16, value byte) error {
	if err := checkRange(address, 1); err != nil {
		return err
	}
	m.data[address] = value
	return nil
}

// ReadWord returns the big endian 16 bit word starting at the given address.
func (m *Memory) ReadWord(address uint16) (uint16, error) {
	if err := checkRange(address, 2); err != nil {
		return 0, err
	}
	return uint16(m.data[address])<<8 | uint16(m.data[address+1]), nil
}

// ReadRange returns a copy of n bytes starting at the given address.
// The whole range is validated before anything is read.
func (m *Memory) ReadRange(address uint16, n int) ([]byte, error) {
	if err := checkRange(address, n); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	copy(buf, m.data[address:])
	return buf, nil
}

// WriteRange writes data starting at the given address. Nothing is written
// if any byte of the range would fall outside of the address space.
func (m *Memory) WriteRange(address uint16, data []byte) error {
	if err := checkRange(address, len(data)); err != nil {
		return err
	}
	copy(m.data[address:], data)
	return nil
}

// checkRange validates that n bytes starting at address are addressable.
func checkRange(address uint16, n int) error {
	if n <= 0 {
		return nil
	}
	if int(address)+n-1 <= MaxAddress {
		return nil
	}
	fault := int(address)
	if fault <= MaxAddress {
		fault = MaxAddress + 1
	}
	return fmt.Errorf("%w: address $%04X", ErrOutOfBounds, fault)
}
