// Package fsm validates wiki lifecycle events with looplab/fsm.
package fsm

import (
	"context"
	"errors"
	"slices"

	loopfsm "github.com/looplab/fsm"

	"github.com/neomorfeo/farmconf/internal/domain"
)

// Compile-time check: Validator implements domain.TransitionValidator.
var _ domain.TransitionValidator = (*Validator)(nil)

// Validator checks wiki lifecycle events against domain.Transitions. A
// looplab/fsm machine tracks one current state, so each call builds a
// machine seeded with the wiki's status.
type Validator struct {
	events loopfsm.Events
}

// New creates a validator for domain.Transitions.
func New() *Validator {
	return &Validator{events: eventTable(domain.Transitions)}
}

// eventTable folds transitions sharing an event and destination into one
// EventDesc with several sources, e.g. delete from active, closed or inactive.
func eventTable(transitions []domain.Transition) loopfsm.Events {
	type edge struct {
		event domain.Event
		dst   domain.Status
	}
	var order []edge
	sources := make(map[edge][]string)
	for _, t := range transitions {
		e := edge{event: t.Event, dst: t.Dst}
		if _, seen := sources[e]; !seen {
			order = append(order, e)
		}
		sources[e] = append(sources[e], string(t.Src))
	}

	table := make(loopfsm.Events, 0, len(order))
	for _, e := range order {
		table = append(table, loopfsm.EventDesc{
			Name: string(e.event),
			Src:  sources[e],
			Dst:  string(e.dst),
		})
	}
	return table
}

func (v *Validator) machine(current domain.Status) *loopfsm.FSM {
	return loopfsm.NewFSM(string(current), v.events, nil)
}

// Apply returns the status event moves a wiki in current to, or a
// *domain.TransitionError when the event is not allowed from current.
func (v *Validator) Apply(ctx context.Context, current domain.Status, event domain.Event) (domain.Status, error) {
	m := v.machine(current)
	if err := m.Event(ctx, string(event)); err != nil {
		var invalid loopfsm.InvalidEventError
		var unknown loopfsm.UnknownEventError
		if errors.As(err, &invalid) || errors.As(err, &unknown) {
			return "", &domain.TransitionError{Event: event, Current: current}
		}
		return "", err
	}
	return domain.Status(m.Current()), nil
}

// Available lists the events allowed from current, sorted.
func (v *Validator) Available(current domain.Status) []domain.Event {
	names := v.machine(current).AvailableTransitions()
	slices.Sort(names)
	out := make([]domain.Event, len(names))
	for i, n := range names {
		out[i] = domain.Event(n)
	}
	return out
}
