package dto

import (
	"time"

	"github.com/JonCoulter/whenly/modules/availability/entity"
)

type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type CreateEventRequest struct {
	EventName    string    `json:"event_name"`
	EventType    string    `json:"event_type"`
	TimeRange    TimeRange `json:"time_range"`
	SpecificDays []string  `json:"specific_days,omitempty"`
	DaysOfWeek   []string  `json:"days_of_week,omitempty"`
}

type EventResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	EventType    string    `json:"event_type"`
	TimeStart    string    `json:"time_start"`
	TimeEnd      string    `json:"time_end"`
	SpecificDays []string  `json:"specific_days,omitempty"`
	DaysOfWeek   []string  `json:"days_of_week,omitempty"`
	CreatedBy    *string   `json:"created_by,omitempty"`
	CreatorName  *string   `json:"creator_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func NewEventResponse(e *entity.Event) *EventResponse {
	return &EventResponse{
		ID:           e.ID,
		Name:         e.Name,
		EventType:    string(e.Kind),
		TimeStart:    e.TimeStart,
		TimeEnd:      e.TimeEnd,
		SpecificDays: e.SpecificDays,
		DaysOfWeek:   e.DaysOfWeek,
		CreatedBy:    e.CreatedBy,
		CreatorName:  e.CreatorName,
		CreatedAt:    e.CreatedAt,
	}
}

type SubmitAvailabilityRequest struct {
	UserName string   `json:"user_name"`
	SlotKeys []string `json:"slot_keys"`
}

type ResponderAvailability struct {
	UserID   *string  `json:"user_id,omitempty"`
	UserName string   `json:"user_name"`
	SlotKeys []string `json:"slot_keys"`
}

// ResponseView is one response row in the flat listing: who, which slot,
// when.
type ResponseView struct {
	UserID      *string   `json:"user_id,omitempty"`
	UserName    string    `json:"user_name"`
	SlotKey     string    `json:"slot_key"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// SlotTally is the aggregate view of one slot: who is available and how many.
type SlotTally struct {
	SlotKey   string   `json:"slot_key"`
	Count     int      `json:"count"`
	Available []string `json:"available"`
}

type EventResponsesResponse struct {
	EventID          string                  `json:"event_id"`
	TotalResponses   int                     `json:"total_responses"`
	UniqueResponders int                     `json:"unique_responders"`
	Responses        []ResponseView          `json:"responses"`
	Responders       []ResponderAvailability `json:"responders"`
	Slots            []SlotTally             `json:"slots"`
}

// TallySummary is the cached aggregate refreshed asynchronously after each
// submission.
type TallySummary struct {
	EventID          string    `json:"event_id"`
	UniqueResponders int       `json:"unique_responders"`
	TotalResponses   int       `json:"total_responses"`
	BestSlotKey      string    `json:"best_slot_key,omitempty"`
	BestSlotCount    int       `json:"best_slot_count"`
	RefreshedAt      time.Time `json:"refreshed_at"`
}
