// Package led turns the show state into the color and effect of the status
// light.
package led

import "show-service/internal/types"

var (
	ColorFail     = types.LedColor{R: 50}
	ColorAmber    = types.LedColor{R: 50, G: 50}
	ColorPass     = types.LedColor{G: 50}
	ColorImminent = types.LedColor{G: 25, B: 50}
)

const (
	// ImminentStartSeconds is how far ahead of the scheduled start the light
	// switches to the "starting soon" color.
	ImminentStartSeconds = 10.0

	blinkPeriodMicros = 500_000 // 2 Hz
)

// Evaluator produces a color on demand, e.g. a light program player or a
// ground station override.
type Evaluator interface {
	Evaluate() types.LedColor
}

// Frame is everything the renderer needs for one control tick.
type Frame struct {
	State types.ShowState

	// GcsActive selects the ground station override; Gcs is only consulted
	// when it is set.
	GcsActive bool
	Gcs       Evaluator

	// Program is the light program player evaluated while a show is running.
	Program Evaluator

	Summary types.Verdict
	// StartOverride is true when the show may start despite failing checks.
	StartOverride bool

	SecondsSinceStart float64
	PatternMicros     uint64

	// ImminentWindow overrides ImminentStartSeconds when positive.
	ImminentWindow float64
}

// Render returns the color for the frame. drive is false when the LED is
// not controlled in the current state; the color is then black and should
// not be written to the actuator.
func Render(f Frame) (color types.LedColor, drive bool) {
	switch {
	case f.GcsActive && f.Gcs != nil:
		return f.Gcs.Evaluate(), true
	case f.State.RunsPreflightChecks():
		return renderPreflight(f), true
	case f.State.RunsLightProgram():
		if f.Program == nil {
			return types.Black, true
		}
		return f.Program.Evaluate(), true
	default:
		return types.Black, false
	}
}

func renderPreflight(f Frame) types.LedColor {
	canStart := f.Summary == types.VerdictPass || f.StartOverride

	window := ImminentStartSeconds
	if f.ImminentWindow > 0 {
		window = f.ImminentWindow
	}
	if canStart && f.SecondsSinceStart >= -window {
		if f.Summary == types.VerdictPass {
			return Breathe(ColorImminent, f.PatternMicros)
		}
		return ColorImminent
	}

	switch f.Summary {
	case types.VerdictFail:
		return ColorFail
	case types.VerdictWait:
		return Blink(f.PatternMicros)
	case types.VerdictPass:
		return Breathe(ColorPass, f.PatternMicros)
	default:
		return types.Black
	}
}

// Blink alternates amber and red at 2 Hz with a 50% duty cycle.
func Blink(patternMicros uint64) types.LedColor {
	phase := patternMicros % 1_000_000
	if phase%blinkPeriodMicros < blinkPeriodMicros/2 {
		return ColorAmber
	}
	return ColorFail
}

// EffectForState chooses the actuator effect for a state. Error states are
// shown with the siren effect rather than a rendered color.
func EffectForState(s types.ShowState, gcsActive bool) types.LedEffect {
	switch {
	case gcsActive, s.RunsPreflightChecks(), s.RunsLightProgram():
		return types.EffectSolid
	case s.IsError():
		return types.EffectSiren
	default:
		return types.EffectOff
	}
}
