package vm

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// ErrUnknownQuirksProfile is returned for quirk profile names that are not defined.
var ErrUnknownQuirksProfile = errors.New("unknown quirks profile")

// Quirks selects between the behaviors that differ among historical CHIP-8
// interpreters. The configuration is fixed when the machine is created.
type Quirks struct {
	// VFReset resets VF to 0 after the OR, AND and XOR instructions.
	VFReset bool
	// ShiftUsesVY shifts VY into VX for SHR and SHL, otherwise VX is shifted in place.
	ShiftUsesVY bool
	// LoadStoreIncrementsI advances I by X+1 after FX55 and FX65.
	LoadStoreIncrementsI bool
	// JumpUsesVX adds VX of the address high nibble instead of V0 for BNNN.
	JumpUsesVX bool
	// WrapSprites wraps sprite pixels around the screen edges instead of clipping them.
	WrapSprites bool
}

// Quirk profile names.
const (
	ProfileVIP    = "vip"
	ProfileCHIP48 = "chip48"
	ProfileModern = "modern"
)

var profiles = map[string]Quirks{
	// original COSMAC VIP interpreter
	ProfileVIP: {
		VFReset:              true,
		ShiftUsesVY:          true,
		LoadStoreIncrementsI: true,
	},
	// HP48 calculator interpreter
	ProfileCHIP48: {
		JumpUsesVX: true,
	},
	// behavior most contemporary programs are written against
	ProfileModern: {},
}

// DefaultQuirks returns the quirks of the original COSMAC VIP interpreter.
func DefaultQuirks() Quirks {
	return profiles[ProfileVIP]
}

// QuirksProfile returns the quirks of the named profile.
func QuirksProfile(name string) (Quirks, error) {
	q, ok := profiles[strings.ToLower(name)]
	if !ok {
		return Quirks{}, fmt.Errorf("%w '%s', valid profiles: %s",
			ErrUnknownQuirksProfile, name, strings.Join(QuirksProfiles(), ", "))
	}
	return q, nil
}

// QuirksProfiles returns the sorted names of all quirk profiles.
func QuirksProfiles() []string {
	return slices.Sorted(maps.Keys(profiles))
}

// String returns a compact description of the enabled quirks.
func (q Quirks) String() string {
	var enabled []string
	if q.VFReset {
		enabled = append(enabled, "vf-reset")
	}
	if q.ShiftUsesVY {
		enabled = append(enabled, "shift-vy")
	}
	if q.LoadStoreIncrementsI {
		enabled = append(enabled, "increment-i")
	}
	if q.JumpUsesVX {
		enabled = append(enabled, "jump-vx")
	}
	if q.WrapSprites {
		enabled = append(enabled, "wrap")
	} else {
		enabled = append(enabled, "clip")
	}
	return strings.Join(enabled, ",")
}
