package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JonCoulter/whenly/core/config"
	"github.com/JonCoulter/whenly/core/constants"
	"github.com/JonCoulter/whenly/core/errors"
	"github.com/JonCoulter/whenly/core/storage"
	"github.com/JonCoulter/whenly/modules/availability/entity"
	availabilityService "github.com/JonCoulter/whenly/modules/availability/service"
	"github.com/JonCoulter/whenly/modules/availability/slotkey"
	"github.com/JonCoulter/whenly/modules/share/dto"

	ical "github.com/arran4/golang-ical"
	"github.com/gosimple/slug"
)

// consensusSlotLength is the assumed length of an exported slot; the grid
// step is a client concern and is not stored.
const consensusSlotLength = 30 * time.Minute

// ShareService builds share metadata and consensus exports
type ShareService struct {
	availability availabilityService.AvailabilityServiceInterface
	storage      storage.Storage
}

// ShareServiceInterface defines the service contract
type ShareServiceInterface interface {
	GetShareMetadata(ctx context.Context, eventID string) (*dto.ShareMetadataResponse, *errors.AppError)
	ExportConsensus(ctx context.Context, eventID string) (*dto.ExportResponse, *errors.AppError)
}

// NewShareService creates a new share service
func NewShareService(availability availabilityService.AvailabilityServiceInterface, store storage.Storage) ShareServiceInterface {
	return &ShareService{
		availability: availability,
		storage:      store,
	}
}

// GetShareMetadata returns the canonical share link plus preview text built
// from the cached tally.
func (s *ShareService) GetShareMetadata(ctx context.Context, eventID string) (*dto.ShareMetadataResponse, *errors.AppError) {
	event, appErr := s.availability.GetEvent(ctx, eventID)
	if appErr != nil {
		return nil, appErr
	}

	description := "Pick the times that work for you."
	if summary, appErr := s.availability.GetTallySummary(ctx, eventID); appErr == nil && summary.UniqueResponders > 0 {
		noun := "people have"
		if summary.UniqueResponders == 1 {
			noun = "person has"
		}
		description = fmt.Sprintf("%d %s responded so far.", summary.UniqueResponders, noun)
	}

	// PUBLIC_BASE_URL always carries a value once the config is loaded;
	// the viper default is the single source of the fallback.
	base := ""
	if cfg, ok := config.GetSafe(); ok {
		base = strings.TrimSuffix(cfg.Server.PublicBase, "/")
	}

	return &dto.ShareMetadataResponse{
		EventID:      event.ID,
		Title:        event.Name,
		Description:  description,
		CanonicalURL: fmt.Sprintf("%s/event/%s/%s", base, event.ID, slug.Make(event.Name)),
		ImageURL:     base + "/static/og-image.png",
	}, nil
}

// ExportConsensus renders the event's most popular slots as an ICS file,
// uploads it and returns a short-lived download link.
func (s *ShareService) ExportConsensus(ctx context.Context, eventID string) (*dto.ExportResponse, *errors.AppError) {
	if s.storage == nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Exports are not configured", nil)
	}

	event, appErr := s.availability.GetEvent(ctx, eventID)
	if appErr != nil {
		return nil, appErr
	}

	responses, appErr := s.availability.GetResponses(ctx, eventID)
	if appErr != nil {
		return nil, appErr
	}

	best := 0
	for _, slot := range responses.Slots {
		if slot.Count > best {
			best = slot.Count
		}
	}
	if best == 0 {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "No responses to export yet", nil)
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//whenly//consensus export//EN")

	now := time.Now().UTC()
	for i, slot := range responses.Slots {
		if slot.Count != best {
			continue
		}
		start, err := slotStartInstant(entity.EventKind(event.EventType), slot.SlotKey, now)
		if err != nil {
			continue
		}

		ev := cal.AddEvent(fmt.Sprintf("%s-%d@whenly", eventID, i))
		ev.SetDtStampTime(now)
		ev.SetStartAt(start)
		ev.SetEndAt(start.Add(consensusSlotLength))
		ev.SetSummary(event.Name)
		ev.SetDescription(fmt.Sprintf("%d of %d participants are available.", slot.Count, responses.UniqueResponders))
	}

	key := fmt.Sprintf("exports/%s.ics", eventID)
	if err := s.storage.Upload(ctx, key, []byte(cal.Serialize()), "text/calendar"); err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to upload export", err)
	}

	url, err := s.storage.PresignDownload(ctx, key, constants.ShareExportTTL)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to sign download link", err)
	}

	return &dto.ExportResponse{
		DownloadURL: url,
		ExpiresAt:   now.Add(constants.ShareExportTTL),
	}, nil
}

// slotStartInstant resolves a slot key to a concrete UTC instant. Weekday
// slots map to their next occurrence on or after now.
func slotStartInstant(kind entity.EventKind, key string, now time.Time) (time.Time, error) {
	sel, err := slotkey.Decode(kind, key)
	if err != nil {
		return time.Time{}, err
	}

	clock, err := parseClock(sel.StartTime)
	if err != nil {
		return time.Time{}, err
	}

	if sel.Date != "" {
		day, err := time.Parse("2006-01-02", sel.Date)
		if err != nil {
			return time.Time{}, err
		}
		return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, time.UTC), nil
	}

	weekday, ok := weekdayByName(sel.Weekday)
	if !ok {
		return time.Time{}, fmt.Errorf("unknown weekday %q", sel.Weekday)
	}

	day := now
	for day.Weekday() != weekday {
		day = day.AddDate(0, 0, 1)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, time.UTC), nil
}

func parseClock(raw string) (time.Time, error) {
	for _, layout := range []string{"15:04", "3:04 PM", "15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable time %q", raw)
}

func weekdayByName(name string) (time.Weekday, bool) {
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if strings.EqualFold(wd.String(), name) {
			return wd, true
		}
	}
	return time.Sunday, false
}
