//go:build linux

package clock

import (
	"golang.org/x/sys/unix"
)

// Monotonic reads CLOCK_MONOTONIC, which is not affected by wall clock steps
// from NTP or the ground station.
type Monotonic struct{}

func NewMonotonic() Monotonic {
	return Monotonic{}
}

func (Monotonic) NowMicros() uint64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return 0
	}
	return uint64(ts.Nano() / 1000)
}
