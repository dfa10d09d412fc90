package repository

import (
	"context"
	"database/sql"

	"github.com/JonCoulter/whenly/core/database"
	"github.com/JonCoulter/whenly/core/logger"
	"github.com/JonCoulter/whenly/modules/calendar/entity"

	"github.com/google/uuid"
)

// CalendarRepository handles connection and subscription persistence
type CalendarRepository struct {
	DB database.IDatabase
}

// NewCalendarRepository creates a new repository instance
func NewCalendarRepository(db database.IDatabase) *CalendarRepository {
	return &CalendarRepository{DB: db}
}

// CalendarRepositoryInterface defines the repository contract
type CalendarRepositoryInterface interface {
	UpsertConnection(ctx context.Context, conn *entity.CalendarConnection) (*entity.CalendarConnection, error)
	GetConnection(ctx context.Context, userID uuid.UUID, provider string) (*entity.CalendarConnection, error)
	UpdateConnectionToken(ctx context.Context, conn *entity.CalendarConnection) error
	DeleteConnection(ctx context.Context, userID uuid.UUID, provider string) error

	AddICSSubscription(ctx context.Context, sub *entity.ICSSubscription) (*entity.ICSSubscription, error)
	GetICSSubscriptions(ctx context.Context, userID uuid.UUID) ([]entity.ICSSubscription, error)
	DeleteICSSubscription(ctx context.Context, userID uuid.UUID, id uuid.UUID) error
}

func (r *CalendarRepository) UpsertConnection(ctx context.Context, conn *entity.CalendarConnection) (*entity.CalendarConnection, error) {
	query := `
		INSERT INTO calendar_connections (user_id, provider, access_token, refresh_token, token_expires_at, calendar_email, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		ON CONFLICT (user_id, provider) DO UPDATE
		SET access_token = $3, refresh_token = $4, token_expires_at = $5, calendar_email = $6, is_active = TRUE
		RETURNING id, user_id, provider, access_token, refresh_token, token_expires_at, calendar_email, is_active, created_at
	`

	var saved entity.CalendarConnection
	err := r.DB.GetContext(ctx, &saved, query,
		conn.UserID, conn.Provider, conn.AccessToken, conn.RefreshToken,
		conn.TokenExpiresAt, conn.CalendarEmail)
	if err != nil {
		logger.Error("CalendarRepository:UpsertConnection", err)
		return nil, err
	}

	return &saved, nil
}

func (r *CalendarRepository) GetConnection(ctx context.Context, userID uuid.UUID, provider string) (*entity.CalendarConnection, error) {
	query := `
		SELECT id, user_id, provider, access_token, refresh_token, token_expires_at, calendar_email, is_active, created_at
		FROM calendar_connections
		WHERE user_id = $1 AND provider = $2 AND is_active = TRUE
	`

	var conn entity.CalendarConnection
	err := r.DB.GetContext(ctx, &conn, query, userID, provider)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("CalendarRepository:GetConnection", err)
		return nil, err
	}

	return &conn, nil
}

func (r *CalendarRepository) UpdateConnectionToken(ctx context.Context, conn *entity.CalendarConnection) error {
	query := `
		UPDATE calendar_connections
		SET access_token = $2, token_expires_at = $3
		WHERE id = $1
	`

	err := r.DB.ExecContext(ctx, query, conn.ID, conn.AccessToken, conn.TokenExpiresAt)
	if err != nil {
		logger.Error("CalendarRepository:UpdateConnectionToken", err)
		return err
	}
	return nil
}

func (r *CalendarRepository) DeleteConnection(ctx context.Context, userID uuid.UUID, provider string) error {
	query := `UPDATE calendar_connections SET is_active = FALSE WHERE user_id = $1 AND provider = $2`
	err := r.DB.ExecContext(ctx, query, userID, provider)
	if err != nil {
		logger.Error("CalendarRepository:DeleteConnection", err)
		return err
	}
	return nil
}

func (r *CalendarRepository) AddICSSubscription(ctx context.Context, sub *entity.ICSSubscription) (*entity.ICSSubscription, error) {
	query := `
		INSERT INTO ics_subscriptions (user_id, label, url)
		VALUES ($1, $2, $3)
		RETURNING id, user_id, label, url, created_at
	`

	var saved entity.ICSSubscription
	err := r.DB.GetContext(ctx, &saved, query, sub.UserID, sub.Label, sub.URL)
	if err != nil {
		logger.Error("CalendarRepository:AddICSSubscription", err)
		return nil, err
	}

	return &saved, nil
}

func (r *CalendarRepository) GetICSSubscriptions(ctx context.Context, userID uuid.UUID) ([]entity.ICSSubscription, error) {
	query := `
		SELECT id, user_id, label, url, created_at
		FROM ics_subscriptions
		WHERE user_id = $1
		ORDER BY created_at ASC
	`

	var subs []entity.ICSSubscription
	err := r.DB.SelectContext(ctx, &subs, query, userID)
	if err != nil {
		logger.Error("CalendarRepository:GetICSSubscriptions", err)
		return nil, err
	}

	return subs, nil
}

func (r *CalendarRepository) DeleteICSSubscription(ctx context.Context, userID uuid.UUID, id uuid.UUID) error {
	query := `DELETE FROM ics_subscriptions WHERE user_id = $1 AND id = $2`
	err := r.DB.ExecContext(ctx, query, userID, id)
	if err != nil {
		logger.Error("CalendarRepository:DeleteICSSubscription", err)
		return err
	}
	return nil
}
