package core

import (
	"show-service/internal/messaging"
	"show-service/internal/types"
)

// Preflight is the preflight check engine
type Preflight interface {
	SetEnabled(enabled bool)
	Summary() types.Verdict
	Check(c types.PreflightCheck) types.Verdict
	IsPassing(c types.PreflightCheck) bool
	ResetPositionFilterToHome()
}

// Commander is the high-level motion commander of the flight controller.
// Motion commands must not block; an error means the command was rejected.
type Commander interface {
	SetHighLevelEnabled(enabled bool)
	TakeoffRelative(height, velocity float64) error
	StartTrajectoryWithOffset(offsetSeconds float64) error
	Land(height, velocity float64) error
	Stop()
	IsTrajectoryFinished() bool
}

// LightProgram is the light program player
type LightProgram interface {
	SchedulePlayFrom(start uint64, programID int, timescale float64)
	Stop()
	Evaluate() types.LedColor
}

// GcsLights is the ground station light override
type GcsLights interface {
	IsActive() bool
	Evaluate() types.LedColor
}

// Supervisor reports flight safety conditions and owns the emergency stop
type Supervisor interface {
	CanFly() bool
	IsTumbled() bool
	SetEmergencyStop(stop bool)
}

type PowerMonitor interface {
	BatteryVoltage() float64
	CriticalLowVoltage() float64
}

// LedOutput drives the status light
type LedOutput interface {
	SetEffect(effect types.LedEffect)
	SetColor(color types.LedColor)
}

// StatePublisher announces state and color changes. Implementations must
// not block the control loop.
type StatePublisher interface {
	PublishState(state types.ShowState) error
	PublishColor(color types.LedColor) error
}

// MessagingClient is the command and settings link used by ShowSystem
type MessagingClient interface {
	SetCallbacks(callbacks messaging.Callbacks)
	StartListening() error
	GetHashField(hash, field string) (string, error)
}

// Collaborators groups the external components driven by ShowSystem.
// Preflight, Commander, Lights, Supervisor and Power are required; the
// others may be nil.
type Collaborators struct {
	Preflight  Preflight
	Commander  Commander
	Lights     LightProgram
	Gcs        GcsLights
	Supervisor Supervisor
	Power      PowerMonitor
	Led        LedOutput
	Publisher  StatePublisher
}

func (c Collaborators) missing() []string {
	var missing []string
	if c.Preflight == nil {
		missing = append(missing, "preflight")
	}
	if c.Commander == nil {
		missing = append(missing, "commander")
	}
	if c.Lights == nil {
		missing = append(missing, "light program")
	}
	if c.Supervisor == nil {
		missing = append(missing, "supervisor")
	}
	if c.Power == nil {
		missing = append(missing, "power monitor")
	}
	return missing
}
