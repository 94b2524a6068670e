package fsm

import (
	"fmt"

	"show-service/internal/clock"
	"show-service/internal/types"
)

type transition struct {
	to    types.ShowState
	guard Guard
}

type stateDef struct {
	onEnter     []Action
	onExit      []Hook
	during      func()
	transitions []transition
}

// StateOption configures a state.
type StateOption func(*stateDef)

// TransitionOption configures a transition.
type TransitionOption func(*transition)

func WithOnEnter(fn Action) StateOption {
	return func(s *stateDef) { s.onEnter = append(s.onEnter, fn) }
}

func WithOnExit(fn Hook) StateOption {
	return func(s *stateDef) { s.onExit = append(s.onExit, fn) }
}

// WithDuring sets an action run on ticks where no transition fires.
func WithDuring(fn func()) StateOption {
	return func(s *stateDef) { s.during = fn }
}

func WithGuard(g Guard) TransitionOption {
	return func(t *transition) { t.guard = g }
}

// Definition is a state table under construction.
type Definition struct {
	states     map[types.ShowState]*stateDef
	onEnterAny []Action
	initial    types.ShowState
	fallback   types.ShowState
	errs       []error
}

func NewDefinition() *Definition {
	return &Definition{states: make(map[types.ShowState]*stateDef)}
}

// State declares a state. Declaring it again adds to the existing options.
func (d *Definition) State(id types.ShowState, opts ...StateOption) *Definition {
	def, ok := d.states[id]
	if !ok {
		def = &stateDef{}
		d.states[id] = def
	}
	for _, opt := range opts {
		opt(def)
	}
	return d
}

// Transition appends a transition; transitions of a state are evaluated in
// the order they were added.
func (d *Definition) Transition(from, to types.ShowState, opts ...TransitionOption) *Definition {
	def, ok := d.states[from]
	if !ok {
		d.errs = append(d.errs, fmt.Errorf("transition from undeclared state %s", from))
		return d
	}
	t := transition{to: to}
	for _, opt := range opts {
		opt(&t)
	}
	def.transitions = append(def.transitions, t)
	return d
}

// OnEnterAny adds an action that runs before the state specific enter
// actions on every switch.
func (d *Definition) OnEnterAny(fn Action) *Definition {
	d.onEnterAny = append(d.onEnterAny, fn)
	return d
}

func (d *Definition) Initial(id types.ShowState) *Definition {
	d.initial = id
	return d
}

// Fallback sets the state entered when an enter hook fails or the current
// state has no definition.
func (d *Definition) Fallback(id types.ShowState) *Definition {
	d.fallback = id
	return d
}

// Build validates the definition and returns a machine in the initial state.
func (d *Definition) Build(c clock.Clock) (*Machine, error) {
	if len(d.errs) > 0 {
		return nil, d.errs[0]
	}
	for _, id := range []types.ShowState{d.initial, d.fallback} {
		if !d.declared(id) {
			return nil, fmt.Errorf("state %q is not declared", id)
		}
	}
	for from, def := range d.states {
		for _, t := range def.transitions {
			if !d.declared(t.to) {
				return nil, fmt.Errorf("transition %s -> %s targets an undeclared state", from, t.to)
			}
		}
	}

	m, err := newMachine(d, c)
	if err != nil {
		return nil, err
	}
	m.Reset(d.initial)
	return m, nil
}

func (d *Definition) declared(id types.ShowState) bool {
	_, ok := d.states[id]
	return ok
}

// All passes when every guard passes.
func All(guards ...Guard) Guard {
	return func() bool {
		for _, g := range guards {
			if !g() {
				return false
			}
		}
		return true
	}
}

// Not inverts a guard.
func Not(g Guard) Guard {
	return func() bool { return !g() }
}
