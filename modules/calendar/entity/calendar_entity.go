package entity

import (
	"time"

	"github.com/google/uuid"
)

const ProviderGoogle = "google"

// CalendarConnection stores the OAuth token handle for a user's provider
// account. Tokens are refreshed in place when close to expiry.
type CalendarConnection struct {
	ID             uuid.UUID `db:"id" json:"id"`
	UserID         uuid.UUID `db:"user_id" json:"user_id"`
	Provider       string    `db:"provider" json:"provider"`
	AccessToken    string    `db:"access_token" json:"-"`
	RefreshToken   string    `db:"refresh_token" json:"-"`
	TokenExpiresAt time.Time `db:"token_expires_at" json:"token_expires_at"`
	CalendarEmail  string    `db:"calendar_email" json:"calendar_email"`
	IsActive       bool      `db:"is_active" json:"is_active"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// ICSSubscription is a user-added ICS feed merged alongside provider
// calendars.
type ICSSubscription struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Label     string    `db:"label" json:"label"`
	URL       string    `db:"url" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
