// Package model contains domain models passed between pipeline stages.
package model

import "time"

// Reserved node labels.
const (
	StartAction = "Start"       // synthetic first node of every user
	EndAction   = "End"         // terminal label for goal actions
	OtherItems  = "Other items" // bucket for answers beyond the visible top-K

	// DefaultDropPrefix marks synthetic drop-off labels, e.g. "Drop: view".
	DefaultDropPrefix = "Drop: "
)

// Record is one untyped row of the input log as read from a data source.
type Record struct {
	UserID      string // subject identifier
	Action      string // action label
	ActionStart string // timestamp, not yet parsed
	Answer      string // optional; empty means no answer
}

// Event is one typed row of the input log.
type Event struct {
	UserID      string
	Action      string
	ActionStart time.Time
	Answer      string
}

// SecondsUntil returns the seconds from e to next. Unlike time.Time.Sub it
// does not saturate for gaps beyond roughly 292 years.
func (e Event) SecondsUntil(next Event) float64 {
	sec := next.ActionStart.Unix() - e.ActionStart.Unix()
	nsec := next.ActionStart.Nanosecond() - e.ActionStart.Nanosecond()
	if nsec < 0 {
		sec--
		nsec += 1e9
	}
	return float64(sec) + float64(nsec)/1e9
}

// SequencedEvent is an Event placed on its user's timeline.
type SequencedEvent struct {
	Event

	// Order is the 1-based position in the user's timeline; 0 for Start rows.
	Order int
	// FirstAction is the action with Order 1 for this user.
	FirstAction string
	// Next is the successor action label. It is empty until resolved when
	// HasNext is false.
	Next    string
	HasNext bool
	// Duration is the number of seconds until the successor action.
	Duration Number
	// RouteRank is the frequency rank of the user's route (0 until classified).
	RouteRank int
}

// IsStart reports whether the row is a synthetic Start row.
func (e SequencedEvent) IsStart() bool {
	return e.Order == 0 && e.Action == StartAction
}

// DropLabel builds the synthetic drop-off label for action.
func DropLabel(prefix, action string) string {
	return prefix + action
}
