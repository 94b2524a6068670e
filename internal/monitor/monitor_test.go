package monitor

import (
	"testing"
	"time"

	"show-service/internal/types"
)

func TestBatteryFiresAfterRequiredTicks(t *testing.T) {
	b := NewBattery(5*time.Second, 50*time.Millisecond, DefaultBatteryMargin)
	if b.required != 100 {
		t.Fatalf("expected 100 ticks, got %d", b.required)
	}

	for i := 1; i < 100; i++ {
		if b.Update(types.StatePerformingShow, 3.05, 3.0) {
			t.Fatalf("fired early at tick %d", i)
		}
	}
	if !b.Update(types.StatePerformingShow, 3.05, 3.0) {
		t.Fatal("expected abort on tick 100")
	}
}

func TestBatteryResetsOnRecovery(t *testing.T) {
	b := NewBattery(5*time.Second, 50*time.Millisecond, DefaultBatteryMargin)
	for i := 0; i < 50; i++ {
		b.Update(types.StateTakeoff, 3.0, 3.0)
	}
	if b.Counter() != 50 {
		t.Fatalf("expected 50, got %d", b.Counter())
	}

	b.Update(types.StateTakeoff, 3.2, 3.0)
	if b.Counter() != 0 {
		t.Errorf("counter must reset when voltage recovers, got %d", b.Counter())
	}
}

func TestBatteryResetsOnGround(t *testing.T) {
	b := NewBattery(5*time.Second, 50*time.Millisecond, DefaultBatteryMargin)
	for i := 0; i < 99; i++ {
		b.Update(types.StateLanding, 2.0, 3.0)
	}
	if b.Update(types.StateLanded, 2.0, 3.0) {
		t.Fatal("must not fire on the ground")
	}
	if b.Counter() != 0 {
		t.Errorf("counter must reset on the ground, got %d", b.Counter())
	}
}

func TestBatteryRoundsUp(t *testing.T) {
	b := NewBattery(120*time.Millisecond, 50*time.Millisecond, 0)
	if b.required != 3 {
		t.Errorf("expected ceil(120/50)=3, got %d", b.required)
	}
}

func TestTumble(t *testing.T) {
	tm := NewTumble()
	if tm.Update(true, types.StateWaitForStartSignal, true) {
		t.Error("tumbling on the ground is not an abort")
	}
	if tm.Update(false, types.StatePerformingShow, true) {
		t.Error("disabled module must not trigger")
	}
	for _, s := range []types.ShowState{types.StateTakeoff, types.StatePerformingShow, types.StateLanding, types.StateLandingLowBattery} {
		if !tm.Update(true, s, true) {
			t.Errorf("expected abort in %s", s)
		}
	}
	if tm.Update(true, types.StatePerformingShow, false)  {
		t.Error("no tumble, no abort")
	}
}
