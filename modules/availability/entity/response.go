package entity

import "time"

// Response marks one responder as available for one slot.
type Response struct {
	ID          int64     `db:"id" json:"id"`
	EventID     string    `db:"event_id" json:"event_id"`
	SlotID      int64     `db:"slot_id" json:"slot_id"`
	UserID      *string   `db:"user_id" json:"user_id,omitempty"`
	UserName    string    `db:"user_name" json:"user_name"`
	IsAvailable bool      `db:"is_available" json:"is_available"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Responder identifies who is answering. A stable id (signed-in caller) and
// a bare display name are distinct identity domains and are never conflated:
// replace-on-update and uniqueness counting both key on IdentityKey.
type Responder struct {
	UserID *string
	Name   string
}

func (r Responder) IdentityKey() string {
	if r.UserID != nil && *r.UserID != "" {
		return "id:" + *r.UserID
	}
	return "name:" + r.Name
}

// ResponseRow is a Response joined with its slot's structured identity, as
// returned by the read side. The slot key text is never stored; it is
// re-encoded from these fields.
type ResponseRow struct {
	Response
	SlotDate      *string `db:"slot_date"`
	SlotDayOfWeek *string `db:"slot_day_of_week"`
	SlotStartTime string  `db:"slot_start_time"`
}
