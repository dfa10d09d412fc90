package repository

import (
	"context"
	"database/sql"

	"github.com/JonCoulter/whenly/core/database"
	"github.com/JonCoulter/whenly/core/logger"
	"github.com/JonCoulter/whenly/modules/availability/entity"
	"github.com/JonCoulter/whenly/modules/availability/slotkey"

	"github.com/jmoiron/sqlx"
)

// AvailabilityRepository handles event, slot and response persistence
type AvailabilityRepository struct {
	DB database.IDatabase
}

// NewAvailabilityRepository creates a new repository instance
func NewAvailabilityRepository(db database.IDatabase) *AvailabilityRepository {
	return &AvailabilityRepository{DB: db}
}

// AvailabilityRepositoryInterface defines the repository contract
type AvailabilityRepositoryInterface interface {
	CreateEvent(ctx context.Context, event *entity.Event) (*entity.Event, error)
	GetEventByID(ctx context.Context, id string) (*entity.Event, error)
	GetEventsByCreator(ctx context.Context, userID string) ([]entity.Event, error)
	ReplaceResponses(ctx context.Context, event *entity.Event, responder entity.Responder, selectors []slotkey.Selector, clearExisting bool) error
	ListResponses(ctx context.Context, eventID string) ([]entity.ResponseRow, error)
}

func (r *AvailabilityRepository) CreateEvent(ctx context.Context, event *entity.Event) (*entity.Event, error) {
	query := `
		INSERT INTO events (id, name, event_type, time_start, time_end, specific_days, days_of_week, created_by, creator_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, name, event_type, time_start, time_end, specific_days, days_of_week, created_by, creator_name, created_at
	`

	var created entity.Event
	err := r.DB.GetContext(ctx, &created, query,
		event.ID, event.Name, event.Kind, event.TimeStart, event.TimeEnd,
		event.SpecificDays, event.DaysOfWeek, event.CreatedBy, event.CreatorName)

	if err != nil {
		logger.Error("AvailabilityRepository:CreateEvent", err)
		return nil, err
	}

	return &created, nil
}

func (r *AvailabilityRepository) GetEventByID(ctx context.Context, id string) (*entity.Event, error) {
	query := `
		SELECT id, name, event_type, time_start, time_end, specific_days, days_of_week, created_by, creator_name, created_at
		FROM events WHERE id = $1
	`

	var event entity.Event
	err := r.DB.GetContext(ctx, &event, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("AvailabilityRepository:GetEventByID", err)
		return nil, err
	}

	return &event, nil
}

func (r *AvailabilityRepository) GetEventsByCreator(ctx context.Context, userID string) ([]entity.Event, error) {
	query := `
		SELECT id, name, event_type, time_start, time_end, specific_days, days_of_week, created_by, creator_name, created_at
		FROM events
		WHERE created_by = $1
		ORDER BY created_at DESC
	`

	var events []entity.Event
	err := r.DB.SelectContext(ctx, &events, query, userID)
	if err != nil {
		logger.Error("AvailabilityRepository:GetEventsByCreator", err)
		return nil, err
	}

	return events, nil
}

// ReplaceResponses writes one responder's selections in a single transaction.
// The event row is locked first so concurrent submissions to the same event
// serialize instead of interleaving slot creation. When clearExisting is set
// the responder's previous rows are deleted before the new ones are written,
// scoped to their identity domain only.
func (r *AvailabilityRepository) ReplaceResponses(ctx context.Context, event *entity.Event, responder entity.Responder, selectors []slotkey.Selector, clearExisting bool) error {
	err := r.DB.WithinTx(ctx, func(tx *sqlx.Tx) error {
		var locked string
		if err := tx.GetContext(ctx, &locked, `SELECT id FROM events WHERE id = $1 FOR UPDATE`, event.ID); err != nil {
			return err
		}

		if clearExisting {
			if responder.UserID != nil && *responder.UserID != "" {
				if _, err := tx.ExecContext(ctx,
					`DELETE FROM availability_responses WHERE event_id = $1 AND user_id = $2`,
					event.ID, *responder.UserID); err != nil {
					return err
				}
			} else {
				if _, err := tx.ExecContext(ctx,
					`DELETE FROM availability_responses WHERE event_id = $1 AND user_id IS NULL AND user_name = $2`,
					event.ID, responder.Name); err != nil {
					return err
				}
			}
		}

		for _, sel := range selectors {
			slotID, err := r.findOrCreateSlot(ctx, tx, event.ID, sel)
			if err != nil {
				return err
			}
			// The partial unique indexes keep one row per identity and
			// slot, so a repeated submission of the same slot is a no-op.
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO availability_responses (event_id, slot_id, user_id, user_name, is_available)
				 VALUES ($1, $2, $3, $4, TRUE)
				 ON CONFLICT DO NOTHING`,
				event.ID, slotID, responder.UserID, responder.Name); err != nil {
				return err
			}
		}

		return nil
	})

	if err != nil {
		logger.Error("AvailabilityRepository:ReplaceResponses", err)
		return err
	}

	return nil
}

// findOrCreateSlot resolves a selector to a slot row, creating it on first
// use. The end time echoes the start; the grid step is a client concern.
func (r *AvailabilityRepository) findOrCreateSlot(ctx context.Context, tx *sqlx.Tx, eventID string, sel slotkey.Selector) (int64, error) {
	slot := entity.Slot{
		EventID:   eventID,
		StartTime: sel.StartTime,
		EndTime:   sel.StartTime,
	}
	if sel.Date != "" {
		slot.Date = &sel.Date
	} else {
		slot.DayOfWeek = &sel.Weekday
	}

	err := tx.GetContext(ctx, &slot.ID,
		`SELECT id FROM availability_slots
		 WHERE event_id = $1
		   AND date IS NOT DISTINCT FROM $2
		   AND day_of_week IS NOT DISTINCT FROM $3
		   AND start_time = $4`,
		slot.EventID, slot.Date, slot.DayOfWeek, slot.StartTime)
	if err == nil {
		return slot.ID, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	err = tx.GetContext(ctx, &slot.ID,
		`INSERT INTO availability_slots (event_id, date, day_of_week, start_time, end_time)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		slot.EventID, slot.Date, slot.DayOfWeek, slot.StartTime, slot.EndTime)
	if err != nil {
		return 0, err
	}

	return slot.ID, nil
}

func (r *AvailabilityRepository) ListResponses(ctx context.Context, eventID string) ([]entity.ResponseRow, error) {
	query := `
		SELECT r.id, r.event_id, r.slot_id, r.user_id, r.user_name, r.is_available, r.created_at,
		       s.date AS slot_date, s.day_of_week AS slot_day_of_week, s.start_time AS slot_start_time
		FROM availability_responses r
		JOIN availability_slots s ON s.id = r.slot_id
		WHERE r.event_id = $1
		ORDER BY s.id ASC, r.id ASC
	`

	var rows []entity.ResponseRow
	err := r.DB.SelectContext(ctx, &rows, query, eventID)
	if err != nil {
		logger.Error("AvailabilityRepository:ListResponses", err)
		return nil, err
	}

	return rows, nil
}
