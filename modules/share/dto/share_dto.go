package dto

import "time"

// ShareMetadataResponse drives link previews and the canonical share URL
// for an event.
type ShareMetadataResponse struct {
	EventID      string `json:"event_id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	CanonicalURL string `json:"canonical_url"`
	ImageURL     string `json:"image_url"`
}

// ExportResponse points at a generated ICS file holding the event's most
// popular slots. The link expires; regenerate on demand.
type ExportResponse struct {
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}
