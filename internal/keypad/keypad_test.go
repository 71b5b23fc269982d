package keypad

import (
	"errors"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

func TestSetKey(t *testing.T) {
	k := New()

	assert.NoError(t, k.SetKey(0xA, true))
	pressed, err := k.IsPressed(0xA)
	assert.NoError(t, err)
	assert.True(t, pressed)

	assert.NoError(t, k.SetKey(0xA, false))
	pressed, err = k.IsPressed(0xA)
	assert.NoError(t, err)
	assert.False(t, pressed)
}

func TestInvalidKey(t *testing.T) {
	k := New()

	err := k.SetKey(0x10, true)
	assert.True(t, errors.Is(err, ErrInvalidKey))

	_, err = k.IsPressed(0xFF)
	assert.True(t, errors.Is(err, ErrInvalidKey))
}

func TestWaitForPress(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(k *Keypad)
		expected uint8
		ok       bool
	}{
		{
			name:  "no key",
			setup: func(k *Keypad) {},
		},
		{
			name: "single press",
			setup: func(k *Keypad) {
				_ = k.SetKey(0x7, true)
			},
			expected: 0x7,
			ok:       true,
		},
		{
			name: "press and release is still latched",
			setup: func(k *Keypad) {
				_ = k.SetKey(0x3, true)
				_ = k.SetKey(0x3, false)
			},
			expected: 0x3,
			ok:       true,
		},
		{
			name: "lowest key wins",
			setup: func(k *Keypad) {
				_ = k.SetKey(0xC, true)
				_ = k.SetKey(0x2, true)
			},
			expected: 0x2,
			ok:       true,
		},
		{
			name: "held key does not repeat",
			setup: func(k *Keypad) {
				_ = k.SetKey(0x5, true)
				k.ResetPresses()
				_ = k.SetKey(0x5, true)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := New()
			tt.setup(k)

			key, ok := k.WaitForPress()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, key)
		})
	}
}

func TestWaitForPressConsumes(t *testing.T) {
	k := New()
	assert.NoError(t, k.SetKey(0x1, true))

	_, ok := k.WaitForPress()
	assert.True(t, ok)
	_, ok = k.WaitForPress()
	assert.False(t, ok)
}

func TestReset(t *testing.T) {
	k := New()
	assert.NoError(t, k.SetKey(0xF, true))

	k.Reset()

	pressed, err := k.IsPressed(0xF)
	assert.NoError(t, err)
	assert.False(t, pressed)
	_, ok := k.WaitForPress()
	assert.False(t, ok)
}
