package types

import "testing"

func TestPreflightSummary(t *testing.T) {
	var status PreflightStatus
	if got := status.Summary(); got != VerdictOff {
		t.Errorf("no enabled checks should be off, got %v", got)
	}

	status[CheckBattery] = VerdictPass
	status[CheckHome] = VerdictPass
	if got := status.Summary(); got != VerdictPass {
		t.Errorf("expected pass, got %v", got)
	}

	status[CheckSensors] = VerdictWait
	if got := status.Summary(); got != VerdictWait {
		t.Errorf("expected wait, got %v", got)
	}

	status[CheckPositioning] = VerdictFail
	if got := status.Summary(); got != VerdictFail {
		t.Errorf("fail must win over wait, got %v", got)
	}
}

func TestAirborneStates(t *testing.T) {
	airborne := map[ShowState]bool{
		StateTakeoff:           true,
		StatePerformingShow:    true,
		StateLanding:           true,
		StateLandingLowBattery: true,
	}
	for _, s := range AllStates {
		if s.IsAirborne() != airborne[s] {
			t.Errorf("IsAirborne(%s) = %v", s, s.IsAirborne())
		}
		if s.IsOnGround() == airborne[s] {
			t.Errorf("IsOnGround(%s) = %v", s, s.IsOnGround())
		}
	}
}

func TestKeepsSchedule(t *testing.T) {
	for _, s := range []ShowState{StateIdle, StateWaitForStartSignal, StateLanded, StateError, StateExhausted} {
		if s.KeepsSchedule() {
			t.Errorf("%s should clear the schedule", s)
		}
	}
	for _, s := range []ShowState{StateWaitForPreflightCheck, StateWaitForTakeoffTime, StateTakeoff, StateLanding} {
		if !s.KeepsSchedule() {
			t.Errorf("%s should keep the schedule", s)
		}
	}
}

func TestLedColorRoundTrip(t *testing.T) {
	c, err := ParseLedColor("0,25,50")
	if err != nil {
		t.Fatalf("ParseLedColor failed: %v", err)
	}
	if c != (LedColor{0, 25, 50}) {
		t.Errorf("unexpected color %v", c)
	}
	if _, err := ParseLedColor("red"); err == nil {
		t.Error("expected error for invalid color")
	}
}

func TestStateMessages(t *testing.T) {
	if msg := StateLandingLowBattery.Message(); msg != "Battery low, landing." {
		t.Errorf("unexpected message %q", msg)
	}
	if msg := ShowState("bogus").Message(); msg != "Switched to state bogus." {
		t.Errorf("unexpected message for an unknown state %q", msg)
	}
}

func TestParsePreflightStatus(t *testing.T) {
	status := ParsePreflightStatus("pass, pass,wait,off,pass")
	if status.Get(CheckBattery) != VerdictPass || status.Get(CheckKalmanFilter) != VerdictWait {
		t.Errorf("unexpected status %v", status)
	}
	if status.Get(CheckTrajectoryAndLights) != VerdictOff {
		t.Errorf("missing entries must be off, got %v", status.Get(CheckTrajectoryAndLights))
	}
	if status.Summary() != VerdictWait {
		t.Errorf("expected wait summary, got %v", status.Summary())
	}
	if ParsePreflightStatus("").Summary() != VerdictOff {
		t.Error("empty status must summarize to off")
	}
}
