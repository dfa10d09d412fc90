package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/JonCoulter/whenly/core/errors"
	availabilityDto "github.com/JonCoulter/whenly/modules/availability/dto"
	"github.com/JonCoulter/whenly/modules/availability/entity"
)

type fakeAvailability struct {
	event     *availabilityDto.EventResponse
	responses *availabilityDto.EventResponsesResponse
	summary   *availabilityDto.TallySummary
}

func (f *fakeAvailability) CreateEvent(context.Context, *entity.Responder, *availabilityDto.CreateEventRequest) (*availabilityDto.EventResponse, *errors.AppError) {
	return nil, nil
}

func (f *fakeAvailability) GetEvent(_ context.Context, id string) (*availabilityDto.EventResponse, *errors.AppError) {
	if f.event == nil || f.event.ID != id {
		return nil, errors.NewAppError(errors.ErrEventNotFound, "Event not found", nil)
	}
	return f.event, nil
}

func (f *fakeAvailability) GetMyEvents(context.Context, string) ([]availabilityDto.EventResponse, *errors.AppError) {
	return nil, nil
}

func (f *fakeAvailability) SubmitAvailability(context.Context, string, entity.Responder, []string) *errors.AppError {
	return nil
}

func (f *fakeAvailability) UpdateAvailability(context.Context, string, entity.Responder, []string) *errors.AppError {
	return nil
}

func (f *fakeAvailability) GetResponses(context.Context, string) (*availabilityDto.EventResponsesResponse, *errors.AppError) {
	return f.responses, nil
}

func (f *fakeAvailability) GetTallySummary(context.Context, string) (*availabilityDto.TallySummary, *errors.AppError) {
	if f.summary == nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "no summary", nil)
	}
	return f.summary, nil
}

func (f *fakeAvailability) RefreshTally(context.Context, string) error { return nil }

type fakeStorage struct {
	uploads map[string][]byte
}

func (s *fakeStorage) Upload(_ context.Context, key string, data []byte, _ string) error {
	if s.uploads == nil {
		s.uploads = make(map[string][]byte)
	}
	s.uploads[key] = data
	return nil
}

func (s *fakeStorage) PresignDownload(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://exports.example.com/" + key + "?signed", nil
}

func TestGetShareMetadata(t *testing.T) {
	avail := &fakeAvailability{
		event:   &availabilityDto.EventResponse{ID: "abc123", Name: "Team Offsite Planning!"},
		summary: &availabilityDto.TallySummary{EventID: "abc123", UniqueResponders: 3},
	}
	svc := NewShareService(avail, nil)

	meta, appErr := svc.GetShareMetadata(context.Background(), "abc123")
	if appErr != nil {
		t.Fatalf("GetShareMetadata: %v", appErr)
	}
	// No config is loaded here, so the URL must stay relative rather than
	// fall back to a baked-in host.
	if meta.CanonicalURL != "/event/abc123/team-offsite-planning" {
		t.Fatalf("canonical URL = %q, want slugged relative path", meta.CanonicalURL)
	}
	if !strings.Contains(meta.Description, "3 people") {
		t.Fatalf("description = %q", meta.Description)
	}
}

func TestGetShareMetadataWithoutResponses(t *testing.T) {
	avail := &fakeAvailability{
		event: &availabilityDto.EventResponse{ID: "abc123", Name: "Sync"},
	}
	svc := NewShareService(avail, nil)

	meta, appErr := svc.GetShareMetadata(context.Background(), "abc123")
	if appErr != nil {
		t.Fatalf("GetShareMetadata: %v", appErr)
	}
	if strings.Contains(meta.Description, "responded") {
		t.Fatalf("description should not mention responders: %q", meta.Description)
	}
}

func TestExportConsensus(t *testing.T) {
	avail := &fakeAvailability{
		event: &availabilityDto.EventResponse{ID: "abc123", Name: "Sync", EventType: "specificDays"},
		responses: &availabilityDto.EventResponsesResponse{
			EventID:          "abc123",
			UniqueResponders: 2,
			Slots: []availabilityDto.SlotTally{
				{SlotKey: "2024-03-15-09:00", Count: 2, Available: []string{"alice", "bob"}},
				{SlotKey: "2024-03-15-10:00", Count: 1, Available: []string{"alice"}},
			},
		},
	}
	store := &fakeStorage{}
	svc := NewShareService(avail, store)

	result, appErr := svc.ExportConsensus(context.Background(), "abc123")
	if appErr != nil {
		t.Fatalf("ExportConsensus: %v", appErr)
	}
	if !strings.Contains(result.DownloadURL, "exports/abc123.ics") {
		t.Fatalf("download URL = %q", result.DownloadURL)
	}

	body := string(store.uploads["exports/abc123.ics"])
	if !strings.Contains(body, "BEGIN:VEVENT") {
		t.Fatal("export is not an ICS payload")
	}
	// Only the winning slot is exported.
	if strings.Count(body, "BEGIN:VEVENT") != 1 {
		t.Fatalf("expected one consensus event, got:\n%s", body)
	}
}

func TestExportConsensusWithoutStorage(t *testing.T) {
	avail := &fakeAvailability{
		event: &availabilityDto.EventResponse{ID: "abc123", Name: "Sync", EventType: "specificDays"},
	}
	svc := NewShareService(avail, nil)

	if _, appErr := svc.ExportConsensus(context.Background(), "abc123"); appErr == nil {
		t.Fatal("ExportConsensus succeeded without storage configured")
	}
}

func TestExportConsensusWithoutResponses(t *testing.T) {
	avail := &fakeAvailability{
		event:     &availabilityDto.EventResponse{ID: "abc123", Name: "Sync", EventType: "specificDays"},
		responses: &availabilityDto.EventResponsesResponse{EventID: "abc123", Slots: []availabilityDto.SlotTally{}},
	}
	svc := NewShareService(avail, &fakeStorage{})

	if _, appErr := svc.ExportConsensus(context.Background(), "abc123"); appErr == nil {
		t.Fatal("ExportConsensus succeeded with no responses")
	}
}
