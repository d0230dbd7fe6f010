package engine

import "time"

// EventType represents the engine operation an event belongs to
type EventType string

const (
	EventCreate EventType = "create"
	EventDrop   EventType = "drop"
	EventWrite  EventType = "write"
	EventBatch  EventType = "batch"
	EventDelete EventType = "delete"
)

// Event represents a completed engine operation
type Event struct {
	Type      EventType     // Type of event
	Table     string        // Table the operation ran against
	TxID      string        // Transaction or scan ID for tracing
	Timestamp time.Time     // When the event occurred
	Rows      int64         // Rows written, yielded or deleted; -1 if unknown
	Duration  time.Duration // Time spent in the operation
	Err       error         // Non-nil when the operation failed
}

// Observer interface for event subscribers
type Observer interface {
	OnEvent(event Event)
}

// Observers is an ordered observer list that engines embed.
type Observers struct {
	list []Observer
}

// AddObserver registers an observer
func (o *Observers) AddObserver(observer Observer) {
	o.list = append(o.list, observer)
}

// RemoveObserver unregisters an observer
func (o *Observers) RemoveObserver(observer Observer) {
	for i, existing := range o.list {
		if existing == observer {
			o.list = append(o.list[:i], o.list[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered observers
func (o *Observers) Len() int { return len(o.list) }

// Notify sends an event to all registered observers
func (o *Observers) Notify(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	for _, observer := range o.list {
		observer.OnEvent(event)
	}
}
