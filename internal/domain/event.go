package domain

type EventKind string

const (
	EventInfo      EventKind = "info"
	EventWarning   EventKind = "warning"
	EventError     EventKind = "error"
	EventRoute     EventKind = "route"
	EventOperation EventKind = "operation"
	EventComplete  EventKind = "complete"
)

// Event is a user-facing progress message emitted while a run executes.
type Event struct {
	Kind    EventKind
	Order   int
	Total   int
	Message string
	Detail  string
}
