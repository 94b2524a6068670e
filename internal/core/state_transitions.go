package core

import (
	"math"

	"show-service/internal/command"
	"show-service/internal/types"
)

// Ensure ShowSystem implements command.Handlers
var _ command.Handlers = (*ShowSystem)(nil)

// maxLateMs bounds how late a show can be joined.
const maxLateMs = math.MaxInt32

// RequestStart schedules the show start delayMs milliseconds from now. A
// negative delay joins a show that has already started, which is only
// accepted while no start time is known and the trajectory of this vehicle
// has not begun yet. A Start command is posted once the start time is due.
func (s *ShowSystem) RequestStart(delayMs int) error {
	now := s.timebase.Now()

	var (
		start   uint64
		changed bool
		err     error
	)
	switch {
	case delayMs == 0:
		start, changed = now, true
	case delayMs > 0:
		start, changed = now+uint64(delayMs)*1000, true
		s.logger.Infof("Starting in %.2fs", float64(delayMs)/1000)
	case !s.timebase.IsScheduled() && delayMs < -maxLateMs:
		err = ErrLateStartRejected
	case !s.timebase.IsScheduled():
		late := uint64(-delayMs) * 1000
		if s.TrajectoryOffset()*1000 >= float64(-delayMs) {
			start, changed = 1, true
			if late < now {
				start = now - late
			}
			s.logger.Infof("Catching up, late by %.2fs", float64(-delayMs)/1000)
		} else {
			err = ErrLateStartRejected
		}
	}

	if changed {
		s.timebase.SetStartTime(start)
		s.c.Lights.SchedulePlayFrom(start, 0, 1)
	}

	if s.timebase.IsScheduled() && s.timebase.StartTime() <= now {
		s.commands.Post(command.Start)
	}
	return err
}

// RequestStop stops the show; airborne vehicles land. The schedule is
// dropped right away.
func (s *ShowSystem) RequestStop() {
	s.commands.Post(command.Stop)
	s.timebase.ClearStartTime()
}

// RequestPause is not a real pause; it is handled like a stop.
func (s *ShowSystem) RequestPause() {
	s.commands.Post(command.Pause)
}

func (s *ShowSystem) RequestRestart() {
	s.commands.Post(command.Restart)
}

// === Command Handlers ===

// HandleStart takes the operator triggered start path straight to the
// takeoff wait, bypassing the start signal wait.
func (s *ShowSystem) HandleStart() {
	if s.IsEnabled() && s.machine.CurrentState().IsOnGround() {
		s.machine.SetState(types.StateWaitForTakeoffTime)
	}
}

func (s *ShowSystem) HandlePause() {
	s.HandleStop()
}

func (s *ShowSystem) HandleStop() {
	state := s.machine.CurrentState()
	if state.IsOnGround() {
		s.machine.SetState(types.StateIdle)
	} else if !state.IsLanding() {
		s.machine.SetState(types.StateLanding)
	}
}

func (s *ShowSystem) HandleRestart() {
	if s.machine.CurrentState().IsOnGround() {
		s.machine.SetState(types.StateIdle)
	}
}
