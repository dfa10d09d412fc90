package service

import (
	"context"
	"strings"
	"time"

	"github.com/JonCoulter/whenly/core/cache"
	"github.com/JonCoulter/whenly/core/constants"
	"github.com/JonCoulter/whenly/core/errors"
	"github.com/JonCoulter/whenly/core/logger"
	"github.com/JonCoulter/whenly/core/utils"
	"github.com/JonCoulter/whenly/modules/availability/dto"
	"github.com/JonCoulter/whenly/modules/availability/entity"
	"github.com/JonCoulter/whenly/modules/availability/repository"
	"github.com/JonCoulter/whenly/modules/availability/slotkey"
)

// TallyEnqueuer schedules the background refresh of an event's cached tally.
type TallyEnqueuer interface {
	EnqueueTallyRefresh(ctx context.Context, eventID string) error
}

// AvailabilityService handles event and response business logic
type AvailabilityService struct {
	repo     repository.AvailabilityRepositoryInterface
	cache    cache.Cache
	enqueuer TallyEnqueuer
}

// AvailabilityServiceInterface defines the service contract
type AvailabilityServiceInterface interface {
	CreateEvent(ctx context.Context, creator *entity.Responder, req *dto.CreateEventRequest) (*dto.EventResponse, *errors.AppError)
	GetEvent(ctx context.Context, id string) (*dto.EventResponse, *errors.AppError)
	GetMyEvents(ctx context.Context, userID string) ([]dto.EventResponse, *errors.AppError)
	SubmitAvailability(ctx context.Context, eventID string, responder entity.Responder, slotKeys []string) *errors.AppError
	UpdateAvailability(ctx context.Context, eventID string, responder entity.Responder, slotKeys []string) *errors.AppError
	GetResponses(ctx context.Context, eventID string) (*dto.EventResponsesResponse, *errors.AppError)
	GetTallySummary(ctx context.Context, eventID string) (*dto.TallySummary, *errors.AppError)
	RefreshTally(ctx context.Context, eventID string) error
}

// NewAvailabilityService creates a new availability service
func NewAvailabilityService(repo repository.AvailabilityRepositoryInterface, cache cache.Cache, enqueuer TallyEnqueuer) AvailabilityServiceInterface {
	return &AvailabilityService{
		repo:     repo,
		cache:    cache,
		enqueuer: enqueuer,
	}
}

// CreateEvent creates a new event. Events are immutable once created.
func (s *AvailabilityService) CreateEvent(ctx context.Context, creator *entity.Responder, req *dto.CreateEventRequest) (*dto.EventResponse, *errors.AppError) {
	name := strings.TrimSpace(req.EventName)
	if name == "" {
		return nil, errors.NewAppError(errors.ErrInvalidEventSpec, "Event name is required", nil)
	}

	kind := entity.EventKind(req.EventType)
	if !kind.IsValid() {
		return nil, errors.NewAppError(errors.ErrInvalidEventSpec, "Event type must be specificDays or daysOfWeek", nil)
	}

	if req.TimeRange.Start == "" || req.TimeRange.End == "" {
		return nil, errors.NewAppError(errors.ErrInvalidEventSpec, "Time range is required", nil)
	}

	event := &entity.Event{
		ID:        utils.GenerateID(),
		Name:      name,
		Kind:      kind,
		TimeStart: req.TimeRange.Start,
		TimeEnd:   req.TimeRange.End,
	}

	switch kind {
	case entity.EventKindSpecificDates:
		if len(req.SpecificDays) == 0 {
			return nil, errors.NewAppError(errors.ErrInvalidEventSpec, "specificDays events require at least one date", nil)
		}
		event.SpecificDays = req.SpecificDays
	case entity.EventKindWeekdaySet:
		if len(req.DaysOfWeek) == 0 {
			return nil, errors.NewAppError(errors.ErrInvalidEventSpec, "daysOfWeek events require at least one weekday", nil)
		}
		event.DaysOfWeek = req.DaysOfWeek
	}

	if creator != nil {
		event.CreatedBy = creator.UserID
		if creator.Name != "" {
			creatorName := creator.Name
			event.CreatorName = &creatorName
		}
	}

	created, err := s.repo.CreateEvent(ctx, event)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to create event", err)
	}

	return dto.NewEventResponse(created), nil
}

// GetEvent retrieves an event by ID
func (s *AvailabilityService) GetEvent(ctx context.Context, id string) (*dto.EventResponse, *errors.AppError) {
	event, appErr := s.loadEvent(ctx, id)
	if appErr != nil {
		return nil, appErr
	}
	return dto.NewEventResponse(event), nil
}

// GetMyEvents retrieves all events created by a user
func (s *AvailabilityService) GetMyEvents(ctx context.Context, userID string) ([]dto.EventResponse, *errors.AppError) {
	events, err := s.repo.GetEventsByCreator(ctx, userID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to get events", err)
	}

	result := make([]dto.EventResponse, 0, len(events))
	for i := range events {
		result = append(result, *dto.NewEventResponse(&events[i]))
	}
	return result, nil
}

// SubmitAvailability records a first-time submission. Existing rows for the
// responder are left in place.
func (s *AvailabilityService) SubmitAvailability(ctx context.Context, eventID string, responder entity.Responder, slotKeys []string) *errors.AppError {
	return s.writeResponses(ctx, eventID, responder, slotKeys, false)
}

// UpdateAvailability replaces the responder's previous submission wholesale:
// their old rows are cleared and the new selection written in one
// transaction, so a decode failure leaves the previous submission intact.
func (s *AvailabilityService) UpdateAvailability(ctx context.Context, eventID string, responder entity.Responder, slotKeys []string) *errors.AppError {
	return s.writeResponses(ctx, eventID, responder, slotKeys, true)
}

func (s *AvailabilityService) writeResponses(ctx context.Context, eventID string, responder entity.Responder, slotKeys []string, clearExisting bool) *errors.AppError {
	responder.Name = strings.TrimSpace(responder.Name)
	if responder.Name == "" {
		return errors.NewAppError(errors.ErrInvalidInput, "Responder name is required", nil)
	}

	event, appErr := s.loadEvent(ctx, eventID)
	if appErr != nil {
		return appErr
	}

	// Decode everything up front: a single malformed key rejects the whole
	// submission before any row is touched.
	selectors, appErr := decodeAll(event.Kind, slotKeys)
	if appErr != nil {
		return appErr
	}

	if err := s.repo.ReplaceResponses(ctx, event, responder, selectors, clearExisting); err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "Failed to save availability", err)
	}

	s.scheduleTallyRefresh(ctx, eventID)
	return nil
}

// decodeAll decodes the submitted keys, dropping duplicates while keeping
// the first occurrence's position.
func decodeAll(kind entity.EventKind, slotKeys []string) ([]slotkey.Selector, *errors.AppError) {
	seen := make(map[string]struct{}, len(slotKeys))
	selectors := make([]slotkey.Selector, 0, len(slotKeys))
	for _, raw := range slotKeys {
		sel, err := slotkey.Decode(kind, raw)
		if err != nil {
			return nil, errors.NewAppError(errors.ErrMalformedSlotKey, err.Error(), err)
		}
		canonical := slotkey.Encode(sel)
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		selectors = append(selectors, sel)
	}
	return selectors, nil
}

// GetResponses returns the full aggregate view for an event.
func (s *AvailabilityService) GetResponses(ctx context.Context, eventID string) (*dto.EventResponsesResponse, *errors.AppError) {
	event, appErr := s.loadEvent(ctx, eventID)
	if appErr != nil {
		return nil, appErr
	}

	rows, err := s.repo.ListResponses(ctx, eventID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to get responses", err)
	}

	return buildAggregate(event, rows), nil
}

// GetTallySummary serves the cached summary when fresh and recomputes it
// from the store otherwise.
func (s *AvailabilityService) GetTallySummary(ctx context.Context, eventID string) (*dto.TallySummary, *errors.AppError) {
	var summary dto.TallySummary
	if ok, err := s.cache.GetJSON(ctx, constants.RedisKeyEventTally+eventID, &summary); err == nil && ok {
		return &summary, nil
	}

	if err := s.RefreshTally(ctx, eventID); err != nil {
		if ae, ok := err.(*errors.AppError); ok {
			return nil, ae
		}
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to compute tally", err)
	}

	if ok, err := s.cache.GetJSON(ctx, constants.RedisKeyEventTally+eventID, &summary); err == nil && ok {
		return &summary, nil
	}
	return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to compute tally", nil)
}

// RefreshTally recomputes an event's aggregate summary and caches it. It is
// invoked by the background worker after each submission.
func (s *AvailabilityService) RefreshTally(ctx context.Context, eventID string) error {
	event, appErr := s.loadEvent(ctx, eventID)
	if appErr != nil {
		return appErr
	}

	rows, err := s.repo.ListResponses(ctx, eventID)
	if err != nil {
		return err
	}

	agg := buildAggregate(event, rows)
	summary := dto.TallySummary{
		EventID:          eventID,
		UniqueResponders: agg.UniqueResponders,
		TotalResponses:   agg.TotalResponses,
		RefreshedAt:      time.Now().UTC(),
	}
	for _, slot := range agg.Slots {
		if slot.Count > summary.BestSlotCount {
			summary.BestSlotCount = slot.Count
			summary.BestSlotKey = slot.SlotKey
		}
	}

	if err := s.cache.SetJSON(ctx, constants.RedisKeyEventTally+eventID, &summary, constants.EventTallyTTL); err != nil {
		logger.Error("AvailabilityService:RefreshTally:Cache", err)
	}
	return nil
}

func (s *AvailabilityService) scheduleTallyRefresh(ctx context.Context, eventID string) {
	if s.enqueuer == nil {
		return
	}
	if err := s.enqueuer.EnqueueTallyRefresh(ctx, eventID); err != nil {
		// Submissions never fail because the tally queue is down.
		logger.Error("AvailabilityService:ScheduleTallyRefresh", err)
	}
}

func (s *AvailabilityService) loadEvent(ctx context.Context, eventID string) (*entity.Event, *errors.AppError) {
	event, err := s.repo.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to get event", err)
	}
	if event == nil {
		return nil, errors.NewAppError(errors.ErrEventNotFound, "Event not found", nil)
	}
	return event, nil
}

// buildAggregate folds the joined response rows into the flat, per-responder
// and per-slot views. Rows arrive ordered by slot then response id, so slot
// tallies come out in slot creation order and responders in first-response
// order. Duplicate rows for the same responder and slot count once.
func buildAggregate(event *entity.Event, rows []entity.ResponseRow) *dto.EventResponsesResponse {
	out := &dto.EventResponsesResponse{
		EventID:    event.ID,
		Responses:  []dto.ResponseView{},
		Responders: []dto.ResponderAvailability{},
		Slots:      []dto.SlotTally{},
	}

	responderIdx := make(map[string]int)
	slotIdx := make(map[int64]int)
	counted := make(map[string]struct{})

	for i := range rows {
		row := &rows[i]
		if !row.IsAvailable {
			continue
		}

		responder := entity.Responder{UserID: row.UserID, Name: row.UserName}
		identity := responder.IdentityKey()

		key := slotkey.Encode(selectorFromRow(row))

		pairKey := identity + "\x00" + key
		if _, dup := counted[pairKey]; dup {
			continue
		}
		counted[pairKey] = struct{}{}

		out.Responses = append(out.Responses, dto.ResponseView{
			UserID:      row.UserID,
			UserName:    row.UserName,
			SlotKey:     key,
			SubmittedAt: row.CreatedAt,
		})

		ri, ok := responderIdx[identity]
		if !ok {
			ri = len(out.Responders)
			responderIdx[identity] = ri
			out.Responders = append(out.Responders, dto.ResponderAvailability{
				UserID:   row.UserID,
				UserName: row.UserName,
				SlotKeys: []string{},
			})
		}
		out.Responders[ri].SlotKeys = append(out.Responders[ri].SlotKeys, key)

		si, ok := slotIdx[row.SlotID]
		if !ok {
			si = len(out.Slots)
			slotIdx[row.SlotID] = si
			out.Slots = append(out.Slots, dto.SlotTally{
				SlotKey:   key,
				Available: []string{},
			})
		}
		out.Slots[si].Count++
		out.Slots[si].Available = append(out.Slots[si].Available, row.UserName)
		out.TotalResponses++
	}

	out.UniqueResponders = len(out.Responders)
	return out
}

func selectorFromRow(row *entity.ResponseRow) slotkey.Selector {
	sel := slotkey.Selector{StartTime: row.SlotStartTime}
	if row.SlotDate != nil {
		sel.Date = *row.SlotDate
	} else if row.SlotDayOfWeek != nil {
		sel.Weekday = *row.SlotDayOfWeek
	}
	return sel
}
