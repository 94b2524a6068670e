// Package fsm contains the show state table and the machine that executes
// it once per control tick on a synchronously driven statechartx runtime.
package fsm

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/comalice/statechartx"

	"show-service/internal/clock"
	"show-service/internal/types"
)

// Context is passed to enter and exit hooks.
type Context struct {
	FromState types.ShowState
	ToState   types.ShowState
}

// Action runs when a state is entered. A non-nil error aborts the switch and
// sends the machine to the fallback state.
type Action func(c *Context) error

// Hook runs when a state is left.
type Hook func(c *Context)

// Guard decides whether a transition fires.
type Guard func() bool

// Machine executes a Definition on a statechartx runtime. Each show
// state is a leaf under a common root; tick transitions are guarded
// statechartx transitions and forced switches are per-target events on the
// root. State changes are only made from the control loop; CurrentState may
// be read from any goroutine.
type Machine struct {
	def   *Definition
	clock clock.Clock
	rt    *statechartx.Runtime
	ids   map[types.ShowState]statechartx.StateID
	names map[statechartx.StateID]types.ShowState

	// set while a statechartx step runs
	pending  *Context
	enterErr error

	mu           sync.RWMutex
	state        types.ShowState
	lastSwitchAt uint64

	stateChangeCallback func(from, to types.ShowState)
	enterFailedCallback func(state types.ShowState, err error)
}

const (
	rootStateID statechartx.StateID = 1
	eventTick   statechartx.EventID = 1
	// forced switch to state id N is event gotoBase+N
	gotoBase statechartx.EventID = 1000
)

func newMachine(d *Definition, c clock.Clock) (*Machine, error) {
	m := &Machine{
		def:   d,
		clock: c,
		ids:   make(map[types.ShowState]statechartx.StateID, len(d.states)),
		names: make(map[statechartx.StateID]types.ShowState, len(d.states)),
	}

	// sorted so ids are stable between builds
	declared := make([]types.ShowState, 0, len(d.states))
	for id := range d.states {
		declared = append(declared, id)
	}
	sort.Slice(declared, func(i, j int) bool { return declared[i] < declared[j] })

	root := &statechartx.State{ID: rootStateID, Children: make(map[statechartx.StateID]*statechartx.State)}
	for i, name := range declared {
		id := rootStateID + 1 + statechartx.StateID(i)
		m.ids[name] = id
		m.names[id] = name
	}

	for _, name := range declared {
		id := m.ids[name]
		st := &statechartx.State{
			ID:          id,
			EntryAction: m.enterAction,
			ExitAction:  m.exitAction,
		}
		for _, t := range d.states[name].transitions {
			st.Transitions = append(st.Transitions, &statechartx.Transition{
				Event:  eventTick,
				Target: m.ids[t.to],
				Guard:  chartGuard(t.guard),
				Action: m.switchAction,
			})
		}
		root.Children[id] = st
		root.Transitions = append(root.Transitions, &statechartx.Transition{
			Event:  gotoBase + statechartx.EventID(id),
			Target: id,
			Action: m.switchAction,
		})
	}
	root.Initial = m.ids[d.initial]

	chart, err := statechartx.NewMachine(root)
	if err != nil {
		return nil, fmt.Errorf("failed to build chart: %w", err)
	}
	m.rt = statechartx.NewRuntime(chart, nil)
	m.rt.SetContext(context.Background())
	return m, nil
}

func chartGuard(g Guard) statechartx.Guard {
	if g == nil {
		return nil
	}
	return func(context.Context, *statechartx.Event, statechartx.StateID, statechartx.StateID) (bool, error) {
		return g(), nil
	}
}

// switchContext returns the context of the switch in progress, creating it
// on the first hook of the step.
func (m *Machine) switchContext(to statechartx.StateID) *Context {
	if m.pending == nil {
		m.pending = &Context{FromState: m.CurrentState(), ToState: m.names[to]}
	}
	return m.pending
}

func (m *Machine) exitAction(_ context.Context, _ *statechartx.Event, _, to statechartx.StateID) error {
	c := m.switchContext(to)
	if def, ok := m.def.states[c.FromState]; ok {
		for _, exit := range def.onExit {
			exit(c)
		}
	}
	return nil
}

func (m *Machine) switchAction(_ context.Context, _ *statechartx.Event, _, to statechartx.StateID) error {
	c := m.switchContext(to)
	m.mu.Lock()
	m.state = c.ToState
	m.mu.Unlock()
	return nil
}

func (m *Machine) enterAction(_ context.Context, _ *statechartx.Event, _, to statechartx.StateID) error {
	m.enterErr = m.enter(m.switchContext(to))
	return m.enterErr
}

// step feeds one event to the runtime and reports the switch it made, if
// any, together with the enter error.
func (m *Machine) step(event statechartx.EventID) (*Context, error) {
	m.pending, m.enterErr = nil, nil
	m.rt.ProcessEvent(statechartx.Event{ID: event})
	c, err := m.pending, m.enterErr
	m.pending, m.enterErr = nil, nil
	return c, err
}

// CurrentState returns the active state (thread-safe).
func (m *Machine) CurrentState() types.ShowState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// LastSwitchAt returns the timestamp of the last state switch in microseconds.
func (m *Machine) LastSwitchAt() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastSwitchAt
}

// SecondsInState returns the time spent in the current state.
func (m *Machine) SecondsInState() float64 {
	now := m.clock.NowMicros()
	last := m.LastSwitchAt()
	if now <= last {
		return 0
	}
	return float64(now-last) / 1e6
}

// OnStateChange registers a callback invoked after a successful switch.
func (m *Machine) OnStateChange(fn func(from, to types.ShowState)) {
	m.stateChangeCallback = fn
}

// OnEnterFailed registers a callback invoked when an enter hook rejects a
// switch, before the machine falls back.
func (m *Machine) OnEnterFailed(fn func(state types.ShowState, err error)) {
	m.enterFailedCallback = fn
}

// Reset forces the machine into a state without running any hook.
func (m *Machine) Reset(state types.ShowState) {
	if id, ok := m.ids[state]; ok {
		m.rt.SetCurrentState(id)
	} else {
		m.rt.SetCurrentState(rootStateID)
	}
	m.mu.Lock()
	m.state = state
	m.lastSwitchAt = m.clock.NowMicros()
	m.mu.Unlock()
}

// SetState switches to newState: exit hooks of the old state run first,
// then the enter hooks of the new one, then the switch timestamp is taken.
// If an enter hook fails the machine immediately switches to the fallback
// state within the same call.
func (m *Machine) SetState(newState types.ShowState) {
	oldState := m.CurrentState()
	if oldState == newState {
		return
	}
	id, ok := m.ids[newState]
	if !ok {
		m.mu.Lock()
		m.state = newState
		m.mu.Unlock()
		m.finish(&Context{FromState: oldState, ToState: newState},
			fmt.Errorf("no definition for state %s", newState))
		return
	}
	if _, known := m.ids[oldState]; !known {
		m.rt.SetCurrentState(rootStateID)
	}
	c, err := m.step(gotoBase + statechartx.EventID(id))
	if c == nil {
		return
	}
	m.finish(c, err)
}

// finish completes a switch made by the runtime.
func (m *Machine) finish(c *Context, err error) {
	if err != nil {
		if m.enterFailedCallback != nil {
			m.enterFailedCallback(c.ToState, err)
		}
		if c.ToState != m.def.fallback {
			m.SetState(m.def.fallback)
		}
	} else if m.stateChangeCallback != nil {
		m.stateChangeCallback(c.FromState, c.ToState)
	}

	m.mu.Lock()
	m.lastSwitchAt = m.clock.NowMicros()
	m.mu.Unlock()
}

func (m *Machine) enter(c *Context) error {
	for _, action := range m.def.onEnterAny {
		if err := action(c); err != nil {
			return err
		}
	}
	def, ok := m.def.states[c.ToState]
	if !ok {
		return fmt.Errorf("no definition for state %s", c.ToState)
	}
	for _, action := range def.onEnter {
		if err := action(c); err != nil {
			return err
		}
	}
	return nil
}

// Evaluate runs the transition table for the current state once: the first
// transition whose guard passes is taken; if none does, the state's during
// action runs instead. A state without a definition goes to the fallback.
func (m *Machine) Evaluate() {
	state := m.CurrentState()
	def, ok := m.def.states[state]
	if !ok {
		m.SetState(m.def.fallback)
		return
	}

	if c, err := m.step(eventTick); c != nil {
		m.finish(c, err)
		return
	}

	if def.during != nil {
		def.during()
	}
}
