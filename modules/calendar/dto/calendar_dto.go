package dto

// CalendarEvent is one normalized event from any source. Start and End stay
// textual: RFC3339 when the source carried an offset, the source's raw value
// otherwise. Ordering is decided from the parsed start, not the text.
type CalendarEvent struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Location string `json:"location,omitempty"`
	Start    string `json:"start"`
	End      string `json:"end,omitempty"`
	Source   string `json:"source"`
}

// SourceStatus reports the per-source outcome of a merge.
type SourceStatus struct {
	Label string `json:"label"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type MergedCalendarResponse struct {
	Events  []CalendarEvent `json:"events"`
	Sources []SourceStatus  `json:"sources"`
}

type CalendarConnectionResponse struct {
	ID            string `json:"id"`
	Provider      string `json:"provider"`
	CalendarEmail string `json:"calendar_email"`
	IsActive      bool   `json:"is_active"`
	ConnectedAt   string `json:"connected_at"`
}

type AddICSSubscriptionRequest struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

type ICSSubscriptionResponse struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}
