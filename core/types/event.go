package types

// Event represents a typed event emitted during state transitions.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}

// EventType returns the event name used for routing and subscriptions.
func (e *Event) EventType() string {
	return e.Type
}
