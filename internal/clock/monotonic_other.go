//go:build !linux

package clock

import "time"

var processStart = time.Now()

// Monotonic falls back to the runtime monotonic clock off Linux.
type Monotonic struct{}

func NewMonotonic() Monotonic {
	return Monotonic{}
}

func (Monotonic) NowMicros() uint64 {
	return uint64(time.Since(processStart).Microseconds()) + 1
}
