// Package keypad implements the 16 key CHIP-8 input surface.
package keypad

import (
	"errors"
	"fmt"
)

// Keys is the number of keys of the keypad.
const Keys = 16

// ErrInvalidKey is returned for key indexes outside of 0x0-0xF.
var ErrInvalidKey = errors.New("invalid key")

// Keypad holds the pressed state of all keys. Transitions from released to
// pressed are latched so that a key-wait can observe a press even if the key
// was released again before the next instruction ran.
type Keypad struct {
	pressed [Keys]bool
	presses uint16 // latched press transitions, one bit per key
}

// New returns a keypad with all keys released.
func New() *Keypad {
	return &Keypad{}
}

// SetKey updates the state of a key.
func (k *Keypad) SetKey(key uint8, pressed bool) error {
	if key >= Keys {
		return fmt.Errorf("%w: %d", ErrInvalidKey, key)
	}
	if pressed && !k.pressed[key] {
		k.presses |= 1 << key
	}
	k.pressed[key] = pressed
	return nil
}

// IsPressed returns whether the key is currently held down.
func (k *Keypad) IsPressed(key uint8) (bool, error) {
	if key >= Keys {
		return false, fmt.Errorf("%w: %d", ErrInvalidKey, key)
	}
	return k.pressed[key], nil
}

// WaitForPress returns the lowest key that was pressed since the last call
// to ResetPresses and consumes its latched press.
func (k *Keypad) WaitForPress() (uint8, bool) {
	if k.presses == 0 {
		return 0, false
	}
	for key := range uint8(Keys) {
		if k.presses&(1<<key) != 0 {
			k.presses &^= 1 << key
			return key, true
		}
	}
	return 0, false
}

// ResetPresses discards all latched press transitions.
func (k *Keypad) ResetPresses() {
	k.presses = 0
}

// Reset releases all keys.
func (k *Keypad) Reset() {
	k.pressed = [Keys]bool{}
	k.presses = 0
}
