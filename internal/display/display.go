// Package display implements the monochrome CHIP-8 frame buffer.
package display

import "strings"

// Screen dimensions in pixels.
const (
	Width  = 64
	Height = 32
)

// Frame is a row-major snapshot of all pixels, origin at the top left.
type Frame [Width * Height]bool

// Pixel returns whether the pixel at the given coordinates is set.
// Coordinates outside of the frame are reported as unset.
func (f *Frame) Pixel(x, y int) bool {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return false
	}
	return f[y*Width+x]
}

// String renders the frame as text, one line per row.
func (f *Frame) String() string {
	var sb strings.Builder
	sb.Grow((Width + 1) * Height)
	for y := range Height {
		for x := range Width {
			if f[y*Width+x] {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Display is the pixel grid that sprites are drawn onto.
type Display struct {
	pixels Frame
	dirty  bool
}

// New returns a cleared display.
func New() *Display {
	return &Display{}
}

// Clear unsets all pixels.
func (d *Display) Clear() {
	d.pixels = Frame{}
	d.dirty = true
}

// DrawSprite XORs the sprite rows onto the display. Each row byte holds 8
// horizontal pixels, most significant bit first. The start position is
// wrapped into the screen; pixels beyond the right or bottom edge wrap
// around when wrap is set and are clipped otherwise.
// It returns whether any set pixel was unset by the draw.
func (d *Display) DrawSprite(x, y uint8, rows []byte, wrap bool) bool {
	startX := int(x) % Width
	startY := int(y) % Height
	collision := false

	for row, bits := range rows {
		py := startY + row
		if py >= Height {
			if !wrap {
				break
			}
			py %= Height
		}

		for col := range 8 {
			if bits&(0x80>>col) == 0 {
				continue
			}
			px := startX + col
			if px >= Width {
				if !wrap {
					break
				}
				px %= Width
			}

			index := py*Width + px
			if d.pixels[index] {
				collision = true
			}
			d.pixels[index] = !d.pixels[index]
		}
	}

	d.dirty = true
	return collision
}

// Pixel returns whether the pixel at the given coordinates is set.
func (d *Display) Pixel(x, y int) bool {
	return d.pixels.Pixel(x, y)
}

// Snapshot returns a copy of the current pixel state.
func (d *Display) Snapshot() Frame {
	return d.pixels
}

// Dirty returns whether the display changed since the last ClearDirty call.
func (d *Display) Dirty() bool {
	return d.dirty
}

// ClearDirty resets the redraw signal after the frame has been presented.
func (d *Display) ClearDirty() {
	d.dirty = false
}
