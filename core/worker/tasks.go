package worker

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// TypeTallyRefresh recomputes and caches an event's aggregate summary after
// a submission.
const TypeTallyRefresh = "availability:refresh_tallies"

type tallyRefreshPayload struct {
	EventID string `json:"event_id"`
}

func NewTallyRefreshTask(eventID string) (*asynq.Task, error) {
	payload, err := json.Marshal(tallyRefreshPayload{EventID: eventID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeTallyRefresh, payload), nil
}
