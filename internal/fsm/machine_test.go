package fsm

import (
	"errors"
	"testing"

	"show-service/internal/clock"
	"show-service/internal/types"
)

func buildMachine(t *testing.T, d *Definition) (*Machine, *clock.Manual) {
	t.Helper()
	c := clock.NewManual(1_000_000)
	m, err := d.Build(c)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return m, c
}

func TestSetStateRunsExitThenEnter(t *testing.T) {
	var calls []string
	d := NewDefinition().
		OnEnterAny(func(c *Context) error {
			calls = append(calls, "any:"+string(c.ToState))
			return nil
		}).
		State(types.StateIdle,
			WithOnExit(func(c *Context) { calls = append(calls, "exit:idle") }),
		).
		State(types.StateTakeoff,
			WithOnEnter(func(c *Context) error {
				if c.FromState != types.StateIdle {
					t.Errorf("unexpected from state %s", c.FromState)
				}
				calls = append(calls, "enter:takeoff")
				return nil
			}),
		).
		State(types.StateError).
		Initial(types.StateIdle).
		Fallback(types.StateError)

	m, c := buildMachine(t, d)
	var changes []string
	m.OnStateChange(func(from, to types.ShowState) {
		changes = append(changes, string(from)+">"+string(to))
	})

	c.Advance(500)
	m.SetState(types.StateTakeoff)

	want := []string{"exit:idle", "any:takeoff", "enter:takeoff"}
	if len(calls) != len(want) {
		t.Fatalf("expected %v, got %v", want, calls)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, calls)
		}
	}
	if len(changes) != 1 || changes[0] != "idle>takeoff" {
		t.Errorf("unexpected change notifications %v", changes)
	}
	if m.LastSwitchAt() != 1_000_500 {
		t.Errorf("switch timestamp not updated: %d", m.LastSwitchAt())
	}
}

func TestSetStateSameStateIsNoop(t *testing.T) {
	entered := 0
	d := NewDefinition().
		State(types.StateIdle, WithOnEnter(func(*Context) error { entered++; return nil })).
		State(types.StateError).
		Initial(types.StateIdle).
		Fallback(types.StateError)

	m, _ := buildMachine(t, d)
	m.SetState(types.StateIdle)
	if entered != 0 {
		t.Errorf("re-entering the current state must not run hooks")
	}
}

func TestEnterFailureFallsBackToError(t *testing.T) {
	rejected := errors.New("rejected")
	var failed []types.ShowState
	d := NewDefinition().
		State(types.StateTakeoff).
		State(types.StatePerformingShow, WithOnEnter(func(*Context) error { return rejected })).
		State(types.StateError).
		Transition(types.StateTakeoff, types.StatePerformingShow).
		Initial(types.StateTakeoff).
		Fallback(types.StateError)

	m, _ := buildMachine(t, d)
	m.OnEnterFailed(func(s types.ShowState, err error) {
		if !errors.Is(err, rejected) {
			t.Errorf("unexpected error %v", err)
		}
		failed = append(failed, s)
	})

	m.Evaluate()

	if m.CurrentState() != types.StateError {
		t.Fatalf("expected error state, got %s", m.CurrentState())
	}
	if len(failed) != 1 || failed[0] != types.StatePerformingShow {
		t.Errorf("unexpected failures %v", failed)
	}
}

func TestFallbackFailureDoesNotRecurse(t *testing.T) {
	d := NewDefinition().
		State(types.StateIdle).
		State(types.StateError, WithOnEnter(func(*Context) error { return errors.New("boom") })).
		Initial(types.StateIdle).
		Fallback(types.StateError)

	m, _ := buildMachine(t, d)
	m.SetState(types.StateError)
	if m.CurrentState() != types.StateError {
		t.Errorf("expected to stay in error, got %s", m.CurrentState())
	}
}

func TestEvaluateUndeclaredStateGoesToFallback(t *testing.T) {
	d := NewDefinition().
		State(types.StateIdle).
		State(types.StateError).
		Initial(types.StateIdle).
		Fallback(types.StateError)

	m, _ := buildMachine(t, d)
	m.Reset(types.ShowState("mystery"))
	m.Evaluate()
	if m.CurrentState() != types.StateError {
		t.Errorf("expected error, got %s", m.CurrentState())
	}
}

func TestEvaluateOrderAndDuring(t *testing.T) {
	first, second := false, false
	ticks := 0
	d := NewDefinition().
		State(types.StateTakeoff, WithDuring(func() { ticks++ })).
		State(types.StateLanding).
		State(types.StatePerformingShow).
		State(types.StateError).
		Transition(types.StateTakeoff, types.StatePerformingShow, WithGuard(func() bool { return first })).
		Transition(types.StateTakeoff, types.StateLanding, WithGuard(func() bool { return second })).
		Initial(types.StateTakeoff).
		Fallback(types.StateError)

	m, _ := buildMachine(t, d)

	m.Evaluate()
	if m.CurrentState() != types.StateTakeoff || ticks != 1 {
		t.Fatalf("expected during action only, state=%s ticks=%d", m.CurrentState(), ticks)
	}

	first, second = true, true
	m.Evaluate()
	if m.CurrentState() != types.StatePerformingShow {
		t.Errorf("first listed transition must win, got %s", m.CurrentState())
	}
	if ticks != 1 {
		t.Errorf("during must not run when a transition fires")
	}
}

func TestBuildRejectsUndeclaredTargets(t *testing.T) {
	d := NewDefinition().
		State(types.StateIdle).
		State(types.StateError).
		Transition(types.StateIdle, types.StateTakeoff).
		Initial(types.StateIdle).
		Fallback(types.StateError)
	if _, err := d.Build(clock.NewManual(1)); err == nil {
		t.Error("expected error for undeclared target")
	}

	d = NewDefinition().Transition(types.StateIdle, types.StateError)
	if _, err := d.Build(clock.NewManual(1)); err == nil {
		t.Error("expected error for transition from undeclared state")
	}
}

func TestGuardCombinators(t *testing.T) {
	yes := func() bool { return true }
	no := func() bool { return false }
	if !All(yes, yes)() || All(yes, no)() {
		t.Error("All broken")
	}
	if Not(yes)() || !Not(no)() {
		t.Error("Not broken")
	}
}

func TestResetMovesTransitionTable(t *testing.T) {
	var entered []types.ShowState
	d := NewDefinition().
		OnEnterAny(func(c *Context) error {
			entered = append(entered, c.ToState)
			return nil
		}).
		State(types.StateIdle).
		State(types.StateLanding).
		State(types.StateLanded).
		State(types.StateError).
		Transition(types.StateIdle, types.StateError).
		Transition(types.StateLanding, types.StateLanded).
		Initial(types.StateIdle).
		Fallback(types.StateError)

	m, _ := buildMachine(t, d)
	m.Reset(types.StateLanding)
	m.Evaluate()
	if m.CurrentState() != types.StateLanded {
		t.Fatalf("expected landed, got %s", m.CurrentState())
	}
	m.SetState(types.StateIdle)
	m.Evaluate()
	if m.CurrentState() != types.StateError {
		t.Fatalf("expected error, got %s", m.CurrentState())
	}
	want := []types.ShowState{types.StateLanded, types.StateIdle, types.StateError}
	if len(entered) != len(want) {
		t.Fatalf("expected %v, got %v", want, entered)
	}
	for i := range want {
		if entered[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, entered)
		}
	}
}
