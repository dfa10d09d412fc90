package entity

// Slot is one selectable time cell of an event, created lazily the first
// time any participant selects it. Exactly one of Date / DayOfWeek is set,
// matching the event's kind. (event_id, date|day_of_week, start_time) is
// the dedup key.
type Slot struct {
	ID        int64   `db:"id" json:"id"`
	EventID   string  `db:"event_id" json:"event_id"`
	Date      *string `db:"date" json:"date,omitempty"`
	DayOfWeek *string `db:"day_of_week" json:"day_of_week,omitempty"`
	StartTime string  `db:"start_time" json:"start_time"`
	EndTime   string  `db:"end_time" json:"end_time"`
}
