package entity

import (
	"time"

	"github.com/lib/pq"
)

// EventKind is the closed discriminator for an event's candidate-day shape.
type EventKind string

const (
	// EventKindSpecificDates events enumerate concrete ISO dates.
	EventKindSpecificDates EventKind = "specificDays"
	// EventKindWeekdaySet events enumerate weekday labels.
	EventKindWeekdaySet EventKind = "daysOfWeek"
)

func (k EventKind) IsValid() bool {
	return k == EventKindSpecificDates || k == EventKindWeekdaySet
}

// Event is a scheduling poll. Immutable after creation.
type Event struct {
	ID           string         `db:"id" json:"id"`
	Name         string         `db:"name" json:"name"`
	Kind         EventKind      `db:"event_type" json:"event_type"`
	TimeStart    string         `db:"time_start" json:"time_start"`
	TimeEnd      string         `db:"time_end" json:"time_end"`
	SpecificDays pq.StringArray `db:"specific_days" json:"specific_days"`
	DaysOfWeek   pq.StringArray `db:"days_of_week" json:"days_of_week"`
	CreatedBy    *string        `db:"created_by" json:"created_by,omitempty"`
	CreatorName  *string        `db:"creator_name" json:"creator_name,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}

// CandidateDays returns the candidate set matching the event's kind.
func (e *Event) CandidateDays() []string {
	if e.Kind == EventKindSpecificDates {
		return e.SpecificDays
	}
	return e.DaysOfWeek
}
