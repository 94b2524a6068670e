package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"show-service/internal/clock"
	"show-service/internal/command"
	"show-service/internal/config"
	"show-service/internal/fsm"
	"show-service/internal/led"
	"show-service/internal/logger"
	"show-service/internal/monitor"
	"show-service/internal/types"
)

var (
	// ErrTrajectoryRejected is returned by the PerformingShow enter hook when
	// the commander refuses to start the trajectory.
	ErrTrajectoryRejected = errors.New("trajectory start rejected")
	// ErrLateStartRejected is returned by RequestStart when a negative delay
	// cannot be caught up with anymore.
	ErrLateStartRejected = errors.New("too late to join the show")
)

// ShowSystem sequences one vehicle through a show. Tick must only be called
// from a single goroutine; Request*, setters and accessors may be called
// from any goroutine.
type ShowSystem struct {
	cfg      config.ShowConfig
	c        Collaborators
	logger   *logger.Logger
	timebase *clock.TimeBase
	commands *command.Queue
	machine  *fsm.Machine
	battery  *monitor.Battery
	tumble   *monitor.Tumble

	ready    atomic.Bool
	settings MessagingClient

	mu               sync.RWMutex
	enabled          bool
	testing          bool
	trajectoryOffset float64 // seconds after the show start
	landingHeight    float64
	lastColor        types.LedColor

	// Owned by the control loop
	waitCounter      int
	wasInTestingMode bool
	lastGcsActive    bool
}

// NewShowSystem creates a sequencer in the Initializing state. Init must be
// called before the first tick.
func NewShowSystem(c Collaborators, cfg config.ShowConfig, clk clock.Clock, l *logger.Logger) (*ShowSystem, error) {
	s := &ShowSystem{
		cfg:              cfg,
		c:                c,
		logger:           l,
		timebase:         clock.NewTimeBase(clk),
		commands:         command.NewQueue(),
		battery:          monitor.NewBattery(cfg.LowBatteryDuration, cfg.TickInterval, cfg.BatteryMargin),
		tumble:           monitor.NewTumble(),
		enabled:          cfg.Enabled,
		testing:          cfg.Testing,
		trajectoryOffset: cfg.TakeoffTime,
		landingHeight:    cfg.LandingHeight,
	}

	machine, err := fsm.NewShowDefinition(s).Build(clk)
	if err != nil {
		return nil, fmt.Errorf("failed to build show state machine: %w", err)
	}
	machine.OnStateChange(s.onStateChange)
	machine.OnEnterFailed(func(state types.ShowState, err error) {
		s.logger.Errorf("Failed to enter %s: %v", state, err)
	})
	s.machine = machine
	return s, nil
}

// Init checks the collaborators and switches to Idle, running the Idle
// enter actions. If a required collaborator is missing the system stays
// uninitialized and every tick is a no-op.
func (s *ShowSystem) Init() {
	if s.IsReady() {
		return
	}
	if missing := s.c.missing(); len(missing) > 0 {
		s.logger.Errorf("Show module not initialized, missing: %s", strings.Join(missing, ", "))
		return
	}

	s.machine.SetState(types.StateIdle)
	s.ready.Store(true)
	s.logger.Infof("Show module initialized")
}

func (s *ShowSystem) IsReady() bool {
	return s.ready.Load()
}

// Run ticks the sequencer at the configured interval until ctx is done.
func (s *ShowSystem) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	s.logger.Infof("Control loop started (interval %v)", s.cfg.TickInterval)
	for {
		select {
		case <-ctx.Done():
			s.logger.Infof("Control loop stopped")
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick runs one control cycle: abort checks, command drain, state table,
// LED output and testing mode.
func (s *ShowSystem) Tick() {
	if !s.IsReady() {
		return
	}

	enabled := s.IsEnabled()

	state := s.machine.CurrentState()
	if state != types.StateIdle && !enabled {
		if state.IsOnGround() {
			s.machine.SetState(types.StateIdle)
		} else if !state.IsError() {
			s.machine.SetState(types.StateLanding)
		}
	}

	state = s.machine.CurrentState()
	if s.battery.Update(state, s.c.Power.BatteryVoltage(), s.c.Power.CriticalLowVoltage()) {
		if state != types.StateLandingLowBattery {
			s.logger.Warnf("Battery below critical level for %d ticks", s.battery.Counter())
		}
		s.machine.SetState(types.StateLandingLowBattery)
	}

	if s.tumble.Update(enabled, s.machine.CurrentState(), s.c.Supervisor.IsTumbled()) {
		s.logger.Errorf("Tumble detected while airborne")
		s.machine.SetState(types.StateError)
	}

	if cmd := s.commands.DrainAndResolve(s); cmd != 0 {
		s.logger.Debugf("Processed command %s", cmd)
	}

	s.machine.Evaluate()

	s.updateLED()
	s.updateTestingMode()
}

func (s *ShowSystem) onStateChange(from, to types.ShowState) {
	if from != types.StateInitializing {
		s.logger.Infof("%s", to.Message())
	}
	s.logger.Debugf("State transition: %s -> %s", from, to)

	if s.c.Publisher != nil {
		if err := s.c.Publisher.PublishState(to); err != nil {
			s.logger.Warnf("Failed to publish state: %v", err)
		}
	}
}

func (s *ShowSystem) updateLED() {
	state := s.machine.CurrentState()
	gcsActive := s.c.Gcs != nil && s.c.Gcs.IsActive()
	if gcsActive != s.lastGcsActive {
		s.lastGcsActive = gcsActive
		s.RequestLEDControlModeEvaluation()
	}

	frame := led.Frame{
		State:             state,
		GcsActive:         gcsActive,
		Program:           s.c.Lights,
		SecondsSinceStart: s.timebase.SecondsSinceStart(),
		PatternMicros:     s.timebase.MicrosForPatterns(),
		ImminentWindow:    s.cfg.ImminentWindow.Seconds(),
	}
	if s.c.Gcs != nil {
		frame.Gcs = s.c.Gcs
	}
	if state.RunsPreflightChecks() {
		frame.Summary = s.c.Preflight.Summary()
		frame.StartOverride = s.CanStartWithFailingChecks()
	}

	color, drive := led.Render(frame)

	s.mu.Lock()
	changed := color != s.lastColor
	s.lastColor = color
	s.mu.Unlock()

	if drive && s.c.Led != nil {
		s.c.Led.SetColor(color)
	}
	if changed && s.c.Publisher != nil {
		if err := s.c.Publisher.PublishColor(color); err != nil {
			s.logger.Debugf("Failed to publish color: %v", err)
		}
	}
}

// updateTestingMode only acts when the testing mode changes so that the
// emergency stop set by the tumble detector is left alone.
func (s *ShowSystem) updateTestingMode() {
	testing := s.IsInTestingMode()
	if testing == s.wasInTestingMode {
		return
	}
	s.wasInTestingMode = testing
	s.c.Supervisor.SetEmergencyStop(testing)
	if testing {
		s.logger.Infof("Testing mode on, motors locked")
	} else {
		s.logger.Infof("Testing mode off")
	}
}

// RequestLEDControlModeEvaluation selects the LED effect for the current
// state; call it when the ground station override starts or stops.
func (s *ShowSystem) RequestLEDControlModeEvaluation() {
	if s.c.Led == nil {
		return
	}
	gcsActive := s.c.Gcs != nil && s.c.Gcs.IsActive()
	s.c.Led.SetEffect(led.EffectForState(s.machine.CurrentState(), gcsActive))
}

func (s *ShowSystem) CurrentState() types.ShowState {
	return s.machine.CurrentState()
}

func (s *ShowSystem) IsEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enabled
}

// IsProbablyAirborne reports whether the vehicle is in a flight phase.
func (s *ShowSystem) IsProbablyAirborne() bool {
	return s.machine.CurrentState().IsAirborne()
}

// IsInTestingMode is true when testing was requested or the vehicle cannot
// fly anyway.
func (s *ShowSystem) IsInTestingMode() bool {
	s.mu.RLock()
	testing := s.testing
	s.mu.RUnlock()
	return testing || (s.c.Supervisor != nil && !s.c.Supervisor.CanFly())
}

func (s *ShowSystem) LastRenderedColor() types.LedColor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastColor
}

func (s *ShowSystem) StartTime() uint64 {
	return s.timebase.StartTime()
}

func (s *ShowSystem) SetEnabled(enabled bool) {
	s.mu.Lock()
	s.enabled = enabled
	s.mu.Unlock()
}

func (s *ShowSystem) SetTesting(testing bool) {
	s.mu.Lock()
	s.testing = testing
	s.mu.Unlock()
}

// SetTrajectoryOffset sets when this vehicle's trajectory begins, in seconds
// after the show start.
func (s *ShowSystem) SetTrajectoryOffset(seconds float64) {
	s.mu.Lock()
	s.trajectoryOffset = seconds
	s.mu.Unlock()
}

func (s *ShowSystem) TrajectoryOffset() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trajectoryOffset
}

func (s *ShowSystem) SetLandingHeight(meters float64) {
	s.mu.Lock()
	s.landingHeight = meters
	s.mu.Unlock()
}

func (s *ShowSystem) LandingHeight() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.landingHeight
}

// Snapshot returns the current status for the status surfaces.
func (s *ShowSystem) Snapshot() types.Snapshot {
	state := s.machine.CurrentState()

	s.mu.RLock()
	snap := types.Snapshot{
		State:         state,
		Message:       state.Message(),
		Ready:         s.IsReady(),
		Enabled:       s.enabled,
		TakeoffTime:   s.trajectoryOffset,
		LandingHeight: s.landingHeight,
		Color:         s.lastColor,
	}
	s.mu.RUnlock()

	snap.Testing = s.IsInTestingMode()
	snap.Airborne = state.IsAirborne()
	snap.StartTime = s.timebase.StartTime()
	snap.Timestamp = s.timebase.Now()
	if since := s.timebase.SecondsSinceStart(); !math.IsInf(since, -1) {
		snap.SecondsSinceStart = &since
	}
	if state.RunsPreflightChecks() && s.c.Preflight != nil {
		snap.Preflight = s.c.Preflight.Summary()
	}
	return snap
}
