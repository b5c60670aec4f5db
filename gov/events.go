package gov

import "github.com/calehh/gov-app/types"

// Emitter receives the events produced by successful operations.
type Emitter interface {
	Emit(ev types.Event)
}

// EventRecorder collects emitted events in order.
type EventRecorder struct {
	events []types.Event
}

func NewEventRecorder() *EventRecorder {
	return &EventRecorder{events: make([]types.Event, 0)}
}

func (r *EventRecorder) Emit(ev types.Event) {
	r.events = append(r.events, ev)
}

func (r *EventRecorder) Events() []types.Event {
	return r.events
}

// Drain returns the recorded events and resets the recorder.
func (r *EventRecorder) Drain() []types.Event {
	evs := r.events
	r.events = make([]types.Event, 0)
	return evs
}
