package clock

import (
	"math"
	"sync/atomic"
)

// Unscheduled is the start time value meaning no show start is known.
const Unscheduled uint64 = 0

// TimeBase tracks the absolute instant at which the show timeline begins.
// The start time may be written from the link handler while the control
// loop reads it, so it is kept in an atomic.
type TimeBase struct {
	clock     Clock
	startTime atomic.Uint64
}

func NewTimeBase(c Clock) *TimeBase {
	return &TimeBase{clock: c}
}

// Now returns the current monotonic timestamp in microseconds.
func (t *TimeBase) Now() uint64 {
	return t.clock.NowMicros()
}

func (t *TimeBase) StartTime() uint64 {
	return t.startTime.Load()
}

// SetStartTime schedules the show start. Zero is reserved for "unscheduled",
// so a computed start of zero is nudged to one microsecond.
func (t *TimeBase) SetStartTime(micros uint64) {
	if micros == Unscheduled {
		micros = 1
	}
	t.startTime.Store(micros)
}

func (t *TimeBase) ClearStartTime() {
	t.startTime.Store(Unscheduled)
}

func (t *TimeBase) IsScheduled() bool {
	return t.startTime.Load() != Unscheduled
}

// SecondsSinceStart is negative while the start lies in the future and
// -Inf when there is no schedule.
func (t *TimeBase) SecondsSinceStart() float64 {
	return ElapsedSeconds(t.clock.NowMicros(), t.startTime.Load())
}

// HasStartTimePassed reports whether a schedule exists and now is past it.
func (t *TimeBase) HasStartTimePassed() bool {
	start := t.startTime.Load()
	return start != Unscheduled && t.clock.NowMicros() > start
}

// MicrosForPatterns returns the show-relative time when a start is known
// and the raw clock otherwise, so that light patterns keep moving before a
// show is scheduled and are in phase across vehicles once it is. Before the
// start the difference wraps around in the unsigned range.
func (t *TimeBase) MicrosForPatterns() uint64 {
	now := t.clock.NowMicros()
	start := t.startTime.Load()
	if start == Unscheduled {
		return now
	}
	return now - start
}

// ElapsedMicros computes now - start as a signed value, or math.MinInt64
// when start is Unscheduled.
func ElapsedMicros(now, start uint64) int64 {
	if start == Unscheduled {
		return math.MinInt64
	}
	return int64(now - start)
}

// ElapsedSeconds computes now - start in seconds, or -Inf when start is
// Unscheduled.
func ElapsedSeconds(now, start uint64) float64 {
	if start == Unscheduled {
		return math.Inf(-1)
	}
	return float64(int64(now-start)) / 1e6
}
