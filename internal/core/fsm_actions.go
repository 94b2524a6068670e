package core

import (
	"fmt"
	"math"

	"show-service/internal/fsm"
	"show-service/internal/types"
)

// Ensure ShowSystem implements fsm.Actions
var _ fsm.Actions = (*ShowSystem)(nil)

// === State Entry Actions ===

func (s *ShowSystem) EnterAnyState(c *fsm.Context) error {
	// Leaving the ground phases hands the vehicle to the high-level commander
	leavingRest := c.FromState == types.StateIdle || c.FromState == types.StateLanded
	if leavingRest {
		switch c.ToState {
		case types.StateError, types.StateIdle, types.StateLanded:
		default:
			s.c.Commander.SetHighLevelEnabled(true)
		}
	}

	s.c.Preflight.SetEnabled(c.ToState.RunsPreflightChecks())
	s.RequestLEDControlModeEvaluation()

	if !c.ToState.KeepsSchedule() {
		s.timebase.ClearStartTime()
		s.c.Lights.Stop()
	}
	return nil
}

func (s *ShowSystem) EnterIdle(c *fsm.Context) error {
	s.stopCommander()
	return nil
}

func (s *ShowSystem) EnterLanded(c *fsm.Context) error {
	s.stopCommander()
	return nil
}

func (s *ShowSystem) stopCommander() {
	s.c.Commander.Stop()
	s.c.Commander.SetHighLevelEnabled(false)
}

func (s *ShowSystem) EnterWaitForPreflightCheck(c *fsm.Context) error {
	if c.FromState == types.StateIdle && !s.c.Preflight.IsPassing(types.CheckKalmanFilter) {
		s.logger.Debugf("Resetting position filter to home")
		s.c.Preflight.ResetPositionFilterToHome()
	}
	return nil
}

// EnterTakeoff starts a vertical takeoff; the trajectory only starts once
// the takeoff phase is over.
func (s *ShowSystem) EnterTakeoff(c *fsm.Context) error {
	if err := s.c.Commander.TakeoffRelative(s.cfg.TakeoffHeight, s.cfg.TakeoffVelocity()); err != nil {
		return fmt.Errorf("takeoff: %w", err)
	}

	ticks := math.Ceil(float64(s.cfg.TakeoffDuration) / float64(s.cfg.TickInterval))
	s.waitCounter = int(ticks) - 1
	s.battery.Reset()
	return nil
}

func (s *ShowSystem) EnterPerformingShow(c *fsm.Context) error {
	if c.FromState != types.StateTakeoff {
		return nil
	}

	offset := s.timebase.SecondsSinceStart() - s.TrajectoryOffset()
	if offset > 0 {
		s.logger.Infof("Offset into trajectory: %.2fs", offset)
	} else {
		offset = 0
	}
	if err := s.c.Commander.StartTrajectoryWithOffset(offset); err != nil {
		return fmt.Errorf("%w: %v", ErrTrajectoryRejected, err)
	}
	return nil
}

// EnterLanding serves both the regular and the low battery landing.
func (s *ShowSystem) EnterLanding(c *fsm.Context) error {
	if c.FromState.IsOnGround() {
		return nil
	}
	if err := s.c.Commander.Land(s.LandingHeight(), s.cfg.LandingVelocity); err != nil {
		// Nothing better to do mid-air than to keep monitoring
		s.logger.Errorf("Land command rejected: %v", err)
	}
	return nil
}

// === Guards ===

func (s *ShowSystem) IsPreflightPassing() bool {
	return s.c.Preflight.Summary() == types.VerdictPass
}

// CanStartWithFailingChecks allows a start without passing checks as long
// as a trajectory and light program are loaded.
func (s *ShowSystem) CanStartWithFailingChecks() bool {
	return s.c.Preflight.IsPassing(types.CheckTrajectoryAndLights)
}

func (s *ShowSystem) HasStartTimePassed() bool {
	return s.timebase.HasStartTimePassed()
}

// HasTakeoffTimePassed reports whether the takeoff must begin so that the
// trajectory starts on time. Takeoff never begins before the show start.
func (s *ShowSystem) HasTakeoffTimePassed() bool {
	if !s.timebase.IsScheduled() {
		return false
	}

	takeoffAt := s.TrajectoryOffset() - s.cfg.TakeoffDuration.Seconds()
	since := s.timebase.SecondsSinceStart()
	if takeoffAt < 0 {
		return since >= 0
	}
	return since >= takeoffAt
}

func (s *ShowSystem) IsTakeoffComplete() bool {
	return s.waitCounter <= 0
}

func (s *ShowSystem) IsTrajectoryFinished() bool {
	return s.c.Commander.IsTrajectoryFinished()
}

func (s *ShowSystem) HasLandedTimeoutElapsed() bool {
	return s.machine.SecondsInState() >= s.cfg.LandedTimeout.Seconds()
}

// === During Actions ===

func (s *ShowSystem) CountDownTakeoff() {
	if s.waitCounter > 0 {
		s.waitCounter--
	}
}
