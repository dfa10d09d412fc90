package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	apperrors "github.com/JonCoulter/whenly/core/errors"
	"github.com/JonCoulter/whenly/modules/availability/dto"
	"github.com/JonCoulter/whenly/modules/availability/entity"
	"github.com/JonCoulter/whenly/modules/availability/slotkey"

	"github.com/redis/go-redis/v9"
)

// fakeRepo is an in-memory stand-in for the postgres repository. Replace
// semantics mirror the real one: clear then write, all or nothing.
type fakeRepo struct {
	events     map[string]*entity.Event
	rows       []entity.ResponseRow
	nextSlotID int64
	slots      map[string]int64
	replaceErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		events: make(map[string]*entity.Event),
		slots:  make(map[string]int64),
	}
}

func (f *fakeRepo) CreateEvent(_ context.Context, event *entity.Event) (*entity.Event, error) {
	event.CreatedAt = time.Now()
	f.events[event.ID] = event
	return event, nil
}

func (f *fakeRepo) GetEventByID(_ context.Context, id string) (*entity.Event, error) {
	return f.events[id], nil
}

func (f *fakeRepo) GetEventsByCreator(_ context.Context, userID string) ([]entity.Event, error) {
	var out []entity.Event
	for _, e := range f.events {
		if e.CreatedBy != nil && *e.CreatedBy == userID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f *fakeRepo) ReplaceResponses(_ context.Context, event *entity.Event, responder entity.Responder, selectors []slotkey.Selector, clearExisting bool) error {
	if f.replaceErr != nil {
		return f.replaceErr
	}

	if clearExisting {
		kept := f.rows[:0]
		for _, row := range f.rows {
			same := row.EventID == event.ID &&
				(entity.Responder{UserID: row.UserID, Name: row.UserName}).IdentityKey() == responder.IdentityKey()
			if !same {
				kept = append(kept, row)
			}
		}
		f.rows = kept
	}

	for _, sel := range selectors {
		key := event.ID + "|" + slotkey.Encode(sel)
		id, ok := f.slots[key]
		if !ok {
			f.nextSlotID++
			id = f.nextSlotID
			f.slots[key] = id
		}
		// One row per (identity, slot), like the partial unique indexes.
		exists := false
		for _, row := range f.rows {
			if row.SlotID == id &&
				(entity.Responder{UserID: row.UserID, Name: row.UserName}).IdentityKey() == responder.IdentityKey() {
				exists = true
				break
			}
		}
		if exists {
			continue
		}
		row := entity.ResponseRow{
			Response: entity.Response{
				ID:          int64(len(f.rows) + 1),
				EventID:     event.ID,
				SlotID:      id,
				UserID:      responder.UserID,
				UserName:    responder.Name,
				IsAvailable: true,
			},
			SlotStartTime: sel.StartTime,
		}
		if sel.Date != "" {
			d := sel.Date
			row.SlotDate = &d
		} else {
			w := sel.Weekday
			row.SlotDayOfWeek = &w
		}
		f.rows = append(f.rows, row)
	}
	return nil
}

func (f *fakeRepo) ListResponses(_ context.Context, eventID string) ([]entity.ResponseRow, error) {
	var out []entity.ResponseRow
	for _, row := range f.rows {
		if row.EventID == eventID {
			out = append(out, row)
		}
	}
	// The real query orders by slot id then response id.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0; j-- {
			a, b := out[j-1], out[j]
			if a.SlotID > b.SlotID || (a.SlotID == b.SlotID && a.ID > b.ID) {
				out[j-1], out[j] = b, a
			}
		}
	}
	return out, nil
}

// fakeCache records SetJSON writes and serves them back.
type fakeCache struct {
	store map[string][]byte
}

func newFakeCache() *fakeCache { return &fakeCache{store: make(map[string][]byte)} }

func (c *fakeCache) SaveOAuthState(context.Context, string) error         { return nil }
func (c *fakeCache) TakeOAuthState(context.Context, string) (bool, error) { return false, nil }
func (c *fakeCache) AddToTokenBlacklist(context.Context, string) error    { return nil }
func (c *fakeCache) IsTokenBlacklisted(context.Context, string) (bool, error) {
	return false, nil
}
func (c *fakeCache) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.store[key] = data
	return nil
}
func (c *fakeCache) GetJSON(_ context.Context, key string, dest any) (bool, error) {
	data, ok := c.store[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}
func (c *fakeCache) Del(_ context.Context, key string) error {
	delete(c.store, key)
	return nil
}
func (c *fakeCache) Client() *redis.Client { return nil }

func newTestService(repo *fakeRepo) AvailabilityServiceInterface {
	return NewAvailabilityService(repo, newFakeCache(), nil)
}

func strPtr(s string) *string { return &s }

func mustCreateEvent(t *testing.T, svc AvailabilityServiceInterface, req *dto.CreateEventRequest) *dto.EventResponse {
	t.Helper()
	created, appErr := svc.CreateEvent(context.Background(), nil, req)
	if appErr != nil {
		t.Fatalf("CreateEvent: %v", appErr)
	}
	return created
}

func dateEventRequest() *dto.CreateEventRequest {
	return &dto.CreateEventRequest{
		EventName:    "Team offsite",
		EventType:    "specificDays",
		TimeRange:    dto.TimeRange{Start: "09:00", End: "17:00"},
		SpecificDays: []string{"2024-03-15", "2024-03-16"},
	}
}

func TestCreateEventValidation(t *testing.T) {
	svc := newTestService(newFakeRepo())
	ctx := context.Background()

	tests := []struct {
		name string
		req  *dto.CreateEventRequest
	}{
		{"missing name", &dto.CreateEventRequest{EventType: "specificDays", TimeRange: dto.TimeRange{Start: "09:00", End: "17:00"}, SpecificDays: []string{"2024-03-15"}}},
		{"unknown kind", &dto.CreateEventRequest{EventName: "x", EventType: "weekly", TimeRange: dto.TimeRange{Start: "09:00", End: "17:00"}}},
		{"missing time range", &dto.CreateEventRequest{EventName: "x", EventType: "specificDays", SpecificDays: []string{"2024-03-15"}}},
		{"empty candidate days", &dto.CreateEventRequest{EventName: "x", EventType: "daysOfWeek", TimeRange: dto.TimeRange{Start: "09:00", End: "17:00"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, appErr := svc.CreateEvent(ctx, nil, tt.req)
			if appErr == nil {
				t.Fatal("CreateEvent succeeded, want invalid spec error")
			}
			if appErr.Code != apperrors.ErrInvalidEventSpec {
				t.Fatalf("code = %s, want %s", appErr.Code, apperrors.ErrInvalidEventSpec)
			}
		})
	}
}

func TestSubmitAndReadBack(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	created := mustCreateEvent(t, svc, dateEventRequest())

	responder := entity.Responder{Name: "alice"}
	keys := []string{"2024-03-15-09:00", "2024-03-15-10:00", "2024-03-15-09:00"}
	if appErr := svc.SubmitAvailability(ctx, created.ID, responder, keys); appErr != nil {
		t.Fatalf("SubmitAvailability: %v", appErr)
	}

	agg, appErr := svc.GetResponses(ctx, created.ID)
	if appErr != nil {
		t.Fatalf("GetResponses: %v", appErr)
	}
	if agg.UniqueResponders != 1 {
		t.Fatalf("unique responders = %d, want 1", agg.UniqueResponders)
	}
	if agg.TotalResponses != 2 {
		t.Fatalf("total responses = %d, want 2", agg.TotalResponses)
	}
	if len(agg.Responses) != 2 || agg.Responses[0].SlotKey != "2024-03-15-09:00" {
		t.Fatalf("flat responses = %+v", agg.Responses)
	}
	if len(agg.Responders) != 1 || len(agg.Responders[0].SlotKeys) != 2 {
		t.Fatalf("duplicate key not deduped: %+v", agg.Responders)
	}
	if len(agg.Slots) != 2 {
		t.Fatalf("slots = %d, want 2", len(agg.Slots))
	}
	if agg.Slots[0].SlotKey != "2024-03-15-09:00" || agg.Slots[0].Count != 1 {
		t.Fatalf("first slot = %+v", agg.Slots[0])
	}
}

func TestRepeatedSubmitStoresSingleRow(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	created := mustCreateEvent(t, svc, dateEventRequest())
	responder := entity.Responder{Name: "alice"}

	for i := 0; i < 2; i++ {
		if appErr := svc.SubmitAvailability(ctx, created.ID, responder, []string{"2024-03-15-09:00"}); appErr != nil {
			t.Fatalf("SubmitAvailability #%d: %v", i+1, appErr)
		}
	}

	// The invariant holds at the row level, not just in the read view.
	if len(repo.rows) != 1 {
		t.Fatalf("stored rows for one responder and slot = %d, want 1", len(repo.rows))
	}

	agg, appErr := svc.GetResponses(ctx, created.ID)
	if appErr != nil {
		t.Fatalf("GetResponses: %v", appErr)
	}
	if agg.TotalResponses != 1 || len(agg.Slots) != 1 || agg.Slots[0].Count != 1 {
		t.Fatalf("aggregate = %+v, want exactly one response", agg)
	}
}

func TestUpdateReplacesWholesale(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	created := mustCreateEvent(t, svc, dateEventRequest())
	responder := entity.Responder{Name: "alice"}

	if appErr := svc.SubmitAvailability(ctx, created.ID, responder, []string{"2024-03-15-09:00", "2024-03-15-10:00"}); appErr != nil {
		t.Fatalf("SubmitAvailability: %v", appErr)
	}
	if appErr := svc.UpdateAvailability(ctx, created.ID, responder, []string{"2024-03-16-11:00"}); appErr != nil {
		t.Fatalf("UpdateAvailability: %v", appErr)
	}

	agg, appErr := svc.GetResponses(ctx, created.ID)
	if appErr != nil {
		t.Fatalf("GetResponses: %v", appErr)
	}
	if len(agg.Responders) != 1 {
		t.Fatalf("responders = %d, want 1", len(agg.Responders))
	}
	got := agg.Responders[0].SlotKeys
	if len(got) != 1 || got[0] != "2024-03-16-11:00" {
		t.Fatalf("slot keys after update = %v, want only the new selection", got)
	}
}

func TestUpdateWithEmptySelectionClears(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	created := mustCreateEvent(t, svc, dateEventRequest())
	responder := entity.Responder{Name: "alice"}

	if appErr := svc.SubmitAvailability(ctx, created.ID, responder, []string{"2024-03-15-09:00"}); appErr != nil {
		t.Fatalf("SubmitAvailability: %v", appErr)
	}
	if appErr := svc.UpdateAvailability(ctx, created.ID, responder, nil); appErr != nil {
		t.Fatalf("UpdateAvailability: %v", appErr)
	}

	agg, _ := svc.GetResponses(ctx, created.ID)
	if agg.UniqueResponders != 0 {
		t.Fatalf("unique responders = %d, want 0 after clearing", agg.UniqueResponders)
	}
}

func TestMalformedKeyRejectsWholeSubmission(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	created := mustCreateEvent(t, svc, dateEventRequest())
	responder := entity.Responder{Name: "alice"}

	if appErr := svc.SubmitAvailability(ctx, created.ID, responder, []string{"2024-03-15-09:00"}); appErr != nil {
		t.Fatalf("SubmitAvailability: %v", appErr)
	}

	appErr := svc.UpdateAvailability(ctx, created.ID, responder, []string{"2024-03-16-10:00", "not-a-key"})
	if appErr == nil || appErr.Code != apperrors.ErrMalformedSlotKey {
		t.Fatalf("appErr = %v, want %s", appErr, apperrors.ErrMalformedSlotKey)
	}

	// The failed update must leave the earlier submission untouched.
	agg, _ := svc.GetResponses(ctx, created.ID)
	if len(agg.Responders) != 1 || len(agg.Responders[0].SlotKeys) != 1 || agg.Responders[0].SlotKeys[0] != "2024-03-15-09:00" {
		t.Fatalf("previous submission lost: %+v", agg.Responders)
	}
}

func TestIdentityDomainsStaySeparate(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	created := mustCreateEvent(t, svc, dateEventRequest())

	signedIn := entity.Responder{UserID: strPtr("u-123"), Name: "alice"}
	anonymous := entity.Responder{Name: "alice"}

	if appErr := svc.SubmitAvailability(ctx, created.ID, signedIn, []string{"2024-03-15-09:00"}); appErr != nil {
		t.Fatalf("SubmitAvailability signed in: %v", appErr)
	}
	if appErr := svc.SubmitAvailability(ctx, created.ID, anonymous, []string{"2024-03-15-09:00"}); appErr != nil {
		t.Fatalf("SubmitAvailability anonymous: %v", appErr)
	}

	agg, _ := svc.GetResponses(ctx, created.ID)
	if agg.UniqueResponders != 2 {
		t.Fatalf("unique responders = %d, want 2 distinct identities", agg.UniqueResponders)
	}

	// Updating the anonymous responder must not disturb the signed-in one.
	if appErr := svc.UpdateAvailability(ctx, created.ID, anonymous, []string{"2024-03-16-10:00"}); appErr != nil {
		t.Fatalf("UpdateAvailability: %v", appErr)
	}
	agg, _ = svc.GetResponses(ctx, created.ID)
	if agg.UniqueResponders != 2 {
		t.Fatalf("unique responders after update = %d, want 2", agg.UniqueResponders)
	}
	for _, r := range agg.Responders {
		if r.UserID != nil && (len(r.SlotKeys) != 1 || r.SlotKeys[0] != "2024-03-15-09:00") {
			t.Fatalf("signed-in responder rows changed: %+v", r)
		}
	}
}

func TestSubmitRequiresName(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	created := mustCreateEvent(t, svc, dateEventRequest())

	appErr := svc.SubmitAvailability(ctx, created.ID, entity.Responder{Name: "   "}, []string{"2024-03-15-09:00"})
	if appErr == nil || appErr.Code != apperrors.ErrInvalidInput {
		t.Fatalf("appErr = %v, want %s", appErr, apperrors.ErrInvalidInput)
	}
}

func TestSubmitToMissingEvent(t *testing.T) {
	svc := newTestService(newFakeRepo())

	appErr := svc.SubmitAvailability(context.Background(), "nope", entity.Responder{Name: "alice"}, []string{"2024-03-15-09:00"})
	if appErr == nil || appErr.Code != apperrors.ErrEventNotFound {
		t.Fatalf("appErr = %v, want %s", appErr, apperrors.ErrEventNotFound)
	}
}

func TestWeekdayEventSubmission(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	created := mustCreateEvent(t, svc, &dto.CreateEventRequest{
		EventName:  "Weekly sync",
		EventType:  "daysOfWeek",
		TimeRange:  dto.TimeRange{Start: "09:00", End: "12:00"},
		DaysOfWeek: []string{"Monday", "Wednesday"},
	})

	if appErr := svc.SubmitAvailability(ctx, created.ID, entity.Responder{Name: "bob"}, []string{"Monday-09:00-undefined"}); appErr != nil {
		t.Fatalf("SubmitAvailability: %v", appErr)
	}

	agg, _ := svc.GetResponses(ctx, created.ID)
	if len(agg.Slots) != 1 || agg.Slots[0].SlotKey != "Monday-09:00" {
		t.Fatalf("slots = %+v, want legacy suffix stripped", agg.Slots)
	}
}

func TestRepositoryFailureSurfacesAsInternal(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	created := mustCreateEvent(t, svc, dateEventRequest())
	repo.replaceErr = errors.New("connection reset")

	appErr := svc.SubmitAvailability(ctx, created.ID, entity.Responder{Name: "alice"}, []string{"2024-03-15-09:00"})
	if appErr == nil || appErr.Code != apperrors.ErrInternalServer {
		t.Fatalf("appErr = %v, want %s", appErr, apperrors.ErrInternalServer)
	}
}

func TestTallySummary(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	created := mustCreateEvent(t, svc, dateEventRequest())

	if appErr := svc.SubmitAvailability(ctx, created.ID, entity.Responder{Name: "alice"}, []string{"2024-03-15-09:00", "2024-03-15-10:00"}); appErr != nil {
		t.Fatalf("SubmitAvailability: %v", appErr)
	}
	if appErr := svc.SubmitAvailability(ctx, created.ID, entity.Responder{Name: "bob"}, []string{"2024-03-15-10:00"}); appErr != nil {
		t.Fatalf("SubmitAvailability: %v", appErr)
	}

	summary, appErr := svc.GetTallySummary(ctx, created.ID)
	if appErr != nil {
		t.Fatalf("GetTallySummary: %v", appErr)
	}
	if summary.UniqueResponders != 2 || summary.TotalResponses != 3 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.BestSlotKey != "2024-03-15-10:00" || summary.BestSlotCount != 2 {
		t.Fatalf("best slot = %q (%d), want 2024-03-15-10:00 (2)", summary.BestSlotKey, summary.BestSlotCount)
	}
}
