package led

import "show-service/internal/types"

const (
	breathingPeriodMicros = 5_000_000
	breathingStepMicros   = 50_000
)

// Brightness envelope of one breathing cycle, sampled every 50ms.
var breathingTable = [101]float64{
	0.0, 0.037, 0.074, 0.11, 0.145, 0.18, 0.214, 0.248, 0.281, 0.313, 0.345,
	0.376, 0.406, 0.436, 0.465, 0.493, 0.521, 0.548, 0.574, 0.6, 0.625, 0.649,
	0.672, 0.695, 0.716, 0.737, 0.758, 0.777, 0.796, 0.814, 0.831, 0.847,
	0.863, 0.878, 0.891, 0.904, 0.917, 0.928, 0.939, 0.948, 0.957, 0.965,
	0.973, 0.979, 0.985, 0.989, 0.993, 0.996, 0.998, 1.0, 1.0, 1.0, 0.998,
	0.996, 0.993, 0.989, 0.985, 0.979, 0.973, 0.965, 0.957, 0.948, 0.939,
	0.928, 0.917, 0.904, 0.891, 0.878, 0.863, 0.847, 0.831, 0.814, 0.796,
	0.777, 0.758, 0.737, 0.716, 0.695, 0.672, 0.649, 0.625, 0.6, 0.574, 0.548,
	0.521, 0.493, 0.465, 0.436, 0.406, 0.376, 0.345, 0.313, 0.281, 0.248,
	0.214, 0.18, 0.145, 0.11, 0.074, 0.037, 0.0,
}

// BreathingFactor returns the envelope value for a pattern timestamp.
func BreathingFactor(patternMicros uint64) float64 {
	return breathingTable[(patternMicros%breathingPeriodMicros)/breathingStepMicros]
}

// Breathe scales every channel of c by the envelope at patternMicros.
func Breathe(c types.LedColor, patternMicros uint64) types.LedColor {
	f := BreathingFactor(patternMicros)
	return types.LedColor{
		R: uint8(float64(c.R) * f),
		G: uint8(float64(c.G) * f),
		B: uint8(float64(c.B) * f),
	}
}
