package types

import "fmt"

// LedColor is an 8-bit per channel RGB triple.
type LedColor struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

var Black = LedColor{}

func (c LedColor) String() string {
	return fmt.Sprintf("%d,%d,%d", c.R, c.G, c.B)
}

// ParseLedColor parses the "r,g,b" form produced by String.
func ParseLedColor(s string) (LedColor, error) {
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "%d,%d,%d", &r, &g, &b); err != nil {
		return Black, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return LedColor{R: r, G: g, B: b}, nil
}

// LedEffect selects how the LED actuator interprets the color it is given.
type LedEffect int

const (
	EffectOff   LedEffect = 0
	EffectSolid LedEffect = 7
	EffectSiren LedEffect = 11
)

func (e LedEffect) String() string {
	switch e {
	case EffectOff:
		return "off"
	case EffectSolid:
		return "solid"
	case EffectSiren:
		return "siren"
	default:
		return fmt.Sprintf("effect-%d", int(e))
	}
}
