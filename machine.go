package childtracker

import (
	"context"
	"errors"
)

// StateID identifies a visibility state.
type StateID int

const (
	StateNotVisible StateID = iota
	StateVisible
)

func (s StateID) String() string {
	switch s {
	case StateNotVisible:
		return "not-visible"
	case StateVisible:
		return "visible"
	default:
		return "unknown"
	}
}

// EventID identifies the classification of a rectangle reply.
type EventID int

const (
	EventRectVisible EventID = iota + 1
	EventRectHidden
)

func (e EventID) String() string {
	switch e {
	case EventRectVisible:
		return "rect-visible"
	case EventRectHidden:
		return "rect-hidden"
	default:
		return "unknown"
	}
}

// Event is fed to a Machine. Payload carries the classified geometry.Rect
// when the event comes from a tracker.
type Event struct {
	ID      EventID
	Payload any
}

// Action runs on state entry, exit, or along a transition.
type Action func(ctx context.Context, evt *Event, from StateID, to StateID) error

type State struct {
	ID          StateID
	Transitions []*Transition
	EntryAction Action
	ExitAction  Action
}

type Transition struct {
	Event  EventID
	Source *State
	Target *State
	Action Action // nil --> do nothing
}

// Machine is a flat chart of States. The first state passed to NewMachine is
// initial. Not safe for concurrent use.
type Machine struct {
	order   []*State
	states  map[StateID]*State
	current *State
}

// On adds a transition from s to target taken on evt.
func (s *State) On(evt EventID, target *State, action Action) {
	s.Transitions = append(s.Transitions, &Transition{
		Event:  evt,
		Source: s,
		Target: target,
		Action: action,
	})
}

func NewMachine(states ...*State) (*Machine, error) {
	if len(states) == 0 {
		return nil, errors.New("no states provided")
	}
	m := &Machine{
		order:  states,
		states: make(map[StateID]*State, len(states)),
	}
	for _, s := range states {
		if s == nil {
			return nil, errors.New("nil state")
		}
		if _, exists := m.states[s.ID]; exists {
			return nil, errors.New("duplicate state ID")
		}
		m.states[s.ID] = s
	}
	for _, s := range states {
		for _, t := range s.Transitions {
			if t.Target == nil {
				return nil, errors.New("transition without target")
			}
			if _, ok := m.states[t.Target.ID]; !ok {
				return nil, errors.New("transition target not in machine")
			}
		}
	}
	m.current = states[0]
	return m, nil
}

// Current returns the active state.
func (m *Machine) Current() StateID {
	return m.current.ID
}

// Send delivers evt to the active state. It reports whether a transition was
// taken; events with no matching transition are ignored.
func (m *Machine) Send(ctx context.Context, evt Event) (bool, error) {
	t := m.pickTransition(m.current, evt.ID)
	if t == nil {
		return false, nil
	}

	next, err := t.doTransition(ctx, &evt)
	m.current = next
	if err != nil {
		return false, err
	}
	return next != t.Source, nil
}

// pickTransition grabs the first transition of s matching id.
func (m *Machine) pickTransition(s *State, id EventID) *Transition {
	for _, t := range s.Transitions {
		if t.Event == id {
			return t
		}
	}
	return nil
}

// doTransition exits the source, runs the transition action and enters the
// target. Any failure leaves the machine in the source state.
func (t *Transition) doTransition(ctx context.Context, evt *Event) (*State, error) {
	from, to := t.Source.ID, t.Target.ID

	if t.Source.ExitAction != nil {
		if err := t.Source.ExitAction(ctx, evt, from, to); err != nil {
			return t.Source, err
		}
	}

	if t.Action != nil {
		if err := t.Action(ctx, evt, from, to); err != nil {
			return t.Source, err
		}
	}

	if t.Target.EntryAction != nil {
		if err := t.Target.EntryAction(ctx, evt, from, to); err != nil {
			return t.Source, err
		}
	}

	return t.Target, nil
}

// VisibilityChart returns the NOT_VISIBLE / VISIBLE chart without actions.
// A VISIBLE state only reacts to hidden rectangles and vice versa, so a
// repeated classification never re-enters the current state.
func VisibilityChart() *Machine {
	return newVisibilityChart(nil, nil)
}

func newVisibilityChart(enterVisible, exitVisible Action) *Machine {
	notVisible := &State{ID: StateNotVisible}
	visible := &State{ID: StateVisible, EntryAction: enterVisible, ExitAction: exitVisible}

	notVisible.On(EventRectVisible, visible, nil)
	visible.On(EventRectHidden, notVisible, nil)

	m, err := NewMachine(notVisible, visible)
	if err != nil {
		panic(err)
	}
	return m
}
