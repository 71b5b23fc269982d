// Package timer implements the CHIP-8 delay and sound timers.
package timer

import "time"

// Frequency is the rate in Hz at which the timers count down.
const Frequency = 60

// Interval is the real time duration between two timer ticks.
const Interval = time.Second / Frequency

// Timers contains the delay and sound countdown registers.
type Timers struct {
	Delay uint8
	Sound uint8
}

// Tick decrements both timers by one unless they already reached zero.
func (t *Timers) Tick() {
	if t.Delay > 0 {
		t.Delay--
	}
	if t.Sound > 0 {
		t.Sound--
	}
}

// SoundActive returns whether a tone should currently be emitted.
func (t *Timers) SoundActive() bool {
	return t.Sound > 0
}

// Reset sets both timers to zero.
func (t *Timers) Reset() {
	t.Delay = 0
	t.Sound = 0
}
