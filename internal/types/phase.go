package types

// IsLanding reports whether the vehicle is descending under a land command.
func (s ShowState) IsLanding() bool {
	return s == StateLanding || s == StateLandingLowBattery
}

// IsAirborne reports whether the vehicle is probably in the air.
func (s ShowState) IsAirborne() bool {
	return s == StateTakeoff || s == StatePerformingShow || s.IsLanding()
}

// IsOnGround reports whether it is safe to drop back to Idle from s.
func (s ShowState) IsOnGround() bool {
	return !s.IsAirborne()
}

// IsError reports whether s is signalled with the siren pattern.
func (s ShowState) IsError() bool {
	return s == StateError || s == StateLandingLowBattery || s == StateExhausted
}

// RunsPreflightChecks reports whether the preflight engine is active in s.
func (s ShowState) RunsPreflightChecks() bool {
	return s == StateWaitForPreflightCheck || s == StateWaitForStartSignal
}

// RunsLightProgram reports whether the light program drives the LED in s.
func (s ShowState) RunsLightProgram() bool {
	switch s {
	case StateWaitForTakeoffTime, StateTakeoff, StatePerformingShow, StateLanding, StateLanded:
		return true
	default:
		return false
	}
}

// KeepsSchedule reports whether entering s preserves the scheduled start.
func (s ShowState) KeepsSchedule() bool {
	return !s.IsOnGround() || s == StateWaitForPreflightCheck || s == StateWaitForTakeoffTime
}
