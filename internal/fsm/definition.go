package fsm

import (
	"show-service/internal/types"
)

// NewShowDefinition creates the show state table. Transitions of a state
// are checked in the order listed; the first passing guard wins.
func NewShowDefinition(actions Actions) *Definition {
	return NewDefinition().
		OnEnterAny(actions.EnterAnyState).

		// States
		State(types.StateInitializing).
		State(types.StateIdle,
			WithOnEnter(actions.EnterIdle),
		).
		State(types.StateWaitForPreflightCheck,
			WithOnEnter(actions.EnterWaitForPreflightCheck),
		).
		State(types.StateWaitForStartSignal).
		State(types.StateWaitForTakeoffTime).
		State(types.StateTakeoff,
			WithOnEnter(actions.EnterTakeoff),
			WithDuring(actions.CountDownTakeoff),
		).
		State(types.StatePerformingShow,
			WithOnEnter(actions.EnterPerformingShow),
		).
		State(types.StateLanding,
			WithOnEnter(actions.EnterLanding),
		).
		State(types.StateLandingLowBattery,
			WithOnEnter(actions.EnterLanding),
		).
		State(types.StateLanded,
			WithOnEnter(actions.EnterLanded),
		).
		State(types.StateExhausted).
		State(types.StateError).

		// === Transitions ===

		// From Idle - once enabled, go straight to the start signal wait if
		// the checks already pass
		Transition(types.StateIdle, types.StateWaitForStartSignal,
			WithGuard(All(actions.IsEnabled, actions.IsPreflightPassing)),
		).
		Transition(types.StateIdle, types.StateWaitForPreflightCheck,
			WithGuard(actions.IsEnabled),
		).

		// From WaitForPreflightCheck
		Transition(types.StateWaitForPreflightCheck, types.StateWaitForStartSignal,
			WithGuard(actions.IsPreflightPassing),
		).
		Transition(types.StateWaitForPreflightCheck, types.StateWaitForTakeoffTime,
			WithGuard(All(actions.HasStartTimePassed, actions.CanStartWithFailingChecks)),
		).

		// From WaitForStartSignal
		Transition(types.StateWaitForStartSignal, types.StateWaitForPreflightCheck,
			WithGuard(Not(actions.IsPreflightPassing)),
		).
		Transition(types.StateWaitForStartSignal, types.StateWaitForTakeoffTime,
			WithGuard(actions.HasStartTimePassed),
		).

		// Flight
		Transition(types.StateWaitForTakeoffTime, types.StateTakeoff,
			WithGuard(actions.HasTakeoffTimePassed),
		).
		Transition(types.StateTakeoff, types.StatePerformingShow,
			WithGuard(actions.IsTakeoffComplete),
		).
		Transition(types.StatePerformingShow, types.StateLanding,
			WithGuard(actions.IsTrajectoryFinished),
		).
		Transition(types.StateLanding, types.StateLanded,
			WithGuard(actions.IsTrajectoryFinished),
		).
		Transition(types.StateLandingLowBattery, types.StateLanded,
			WithGuard(actions.IsTrajectoryFinished),
		).

		// Landed is a sink; Stop/Restart commands or the timeout leave it
		Transition(types.StateLanded, types.StateIdle,
			WithGuard(actions.HasLandedTimeoutElapsed),
		).

		Initial(types.StateInitializing).
		Fallback(types.StateError)
}
