package types

type ShowState string

const (
	StateInitializing          ShowState = "initializing"
	StateIdle                  ShowState = "idle"
	StateWaitForPreflightCheck ShowState = "wait-for-preflight-check"
	StateWaitForStartSignal    ShowState = "wait-for-start-signal"
	StateWaitForTakeoffTime    ShowState = "wait-for-takeoff-time"
	StateTakeoff               ShowState = "takeoff"
	StatePerformingShow        ShowState = "performing-show"
	StateLanding               ShowState = "landing"
	StateLanded                ShowState = "landed"
	StateLandingLowBattery     ShowState = "landing-low-battery"
	StateExhausted             ShowState = "exhausted"
	StateError                 ShowState = "error"
)

// AllStates lists every known show state in declaration order.
var AllStates = []ShowState{
	StateInitializing,
	StateIdle,
	StateWaitForPreflightCheck,
	StateWaitForStartSignal,
	StateWaitForTakeoffTime,
	StateTakeoff,
	StatePerformingShow,
	StateLanding,
	StateLanded,
	StateLandingLowBattery,
	StateExhausted,
	StateError,
}

var stateMessages = map[ShowState]string{
	StateInitializing:          "Initializing.",
	StateIdle:                  "Deactivated.",
	StateWaitForPreflightCheck: "Waiting for preflight checks.",
	StateWaitForStartSignal:    "Waiting for start signal.",
	StateWaitForTakeoffTime:    "Waiting for takeoff time.",
	StateTakeoff:               "Takeoff.",
	StatePerformingShow:        "Performing show.",
	StateLanding:               "Landing.",
	StateLanded:                "Landed.",
	StateLandingLowBattery:     "Battery low, landing.",
	StateExhausted:             "Battery flat.",
	StateError:                 "Unrecoverable error.",
}

// Message returns the human readable description logged when the state is entered.
func (s ShowState) Message() string {
	if msg, ok := stateMessages[s]; ok {
		return msg
	}
	return "Switched to state " + string(s) + "."
}

