// Package monitor holds the safety triggers that are evaluated on every
// control tick regardless of the show phase.
package monitor

import (
	"math"
	"time"

	"show-service/internal/types"
)

// DefaultBatteryMargin is added to the critical voltage to form the abort
// threshold.
const DefaultBatteryMargin = 0.1

// Battery counts consecutive airborne ticks spent below the low voltage
// threshold.
type Battery struct {
	margin   float64
	required int
	counter  int
}

// NewBattery creates a monitor that fires once the voltage has been low for
// duration, sampled every tick.
func NewBattery(duration, tick time.Duration, margin float64) *Battery {
	required := int(math.Ceil(float64(duration) / float64(tick)))
	if required < 1 {
		required = 1
	}
	return &Battery{margin: margin, required: required}
}

// Update feeds one tick worth of data and reports whether the low battery
// landing should be triggered.
func (b *Battery) Update(state types.ShowState, voltage, criticalLow float64) bool {
	if !state.IsAirborne() {
		b.counter = 0
		return false
	}
	if voltage >= criticalLow+b.margin {
		b.counter = 0
		return false
	}
	b.counter++
	return b.counter >= b.required
}

// Reset clears the consecutive low reading count.
func (b *Battery) Reset() {
	b.counter = 0
}

func (b *Battery) Counter() int {
	return b.counter
}


