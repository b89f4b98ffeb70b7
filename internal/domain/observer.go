package domain

import "time"

// EventType names an observable engine event.
type EventType string

const (
	EventSelection   EventType = "selection"    // a new selection key was created
	EventResolved    EventType = "resolved"     // the current key's imagery fetch completed
	EventStale       EventType = "stale"        // a fetch completed for a retired key and was dropped
	EventDetail      EventType = "detail"       // the current detail fetch completed
	EventStaleDetail EventType = "stale_detail" // a detail fetch completed after a newer request
	EventImage       EventType = "image"        // the rendering surface settled the current image
)

// Event is a diagnostic record of engine activity.
type Event struct {
	Type    EventType     `json:"type"`
	Subject string        `json:"subject"`
	Slot    string        `json:"slot"`
	Seq     uint64        `json:"seq"`
	Phase   Phase         `json:"phase,omitempty"`
	Images  int           `json:"images"`
	Kind    FailureKind   `json:"kind,omitempty"`
	Reason  string        `json:"reason,omitempty"`
	Elapsed time.Duration `json:"elapsed_ns,omitempty"`
	At      time.Time     `json:"at"`
}

// NewEvent stamps an event for key with the package clock.
func NewEvent(typ EventType, key SelectionKey) Event {
	return Event{
		Type:    typ,
		Subject: key.Subject.Key(),
		Slot:    key.Slot.String(),
		Seq:     key.Seq,
		At:      clock.Now(),
	}
}

// WithFailure copies the failure kind and reason onto the event.
func (e Event) WithFailure(f *Failure) Event {
	if f != nil {
		e.Kind = f.Kind
		e.Reason = f.Reason
	}
	return e
}

// Observer receives engine events. Implementations must not block.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

// Observers fans an event out to every observer in order.
type Observers []Observer

func (o Observers) Observe(e Event) {
	for _, ob := range o {
		if ob != nil {
			ob.Observe(e)
		}
	}
}

// NopObserver discards events.
type NopObserver struct{}

func (NopObserver) Observe(Event) {}
