package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/JonCoulter/whenly/core/constants"
	apperrors "github.com/JonCoulter/whenly/core/errors"
	"github.com/JonCoulter/whenly/modules/calendar/dto"
	"github.com/JonCoulter/whenly/modules/calendar/source"
)

type stubSource struct {
	label  string
	events []dto.CalendarEvent
	err    error
	delay  time.Duration
}

func (s *stubSource) Label() string { return s.label }

func (s *stubSource) ListEvents(ctx context.Context, _, _ time.Time, _ int) ([]dto.CalendarEvent, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.events, nil
}

type limitRecordingSource struct {
	stubSource
	gotLimit int
}

func (s *limitRecordingSource) ListEvents(ctx context.Context, timeMin, timeMax time.Time, maxResults int) ([]dto.CalendarEvent, error) {
	s.gotLimit = maxResults
	return s.stubSource.ListEvents(ctx, timeMin, timeMax, maxResults)
}

func event(label, id, start string) dto.CalendarEvent {
	return dto.CalendarEvent{ID: id, Title: id, Start: start, Source: label}
}

var (
	windowMin = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	windowMax = time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
)

func TestMergeOrdersChronologically(t *testing.T) {
	svc := NewMergeService()

	sources := []source.CalendarSource{
		&stubSource{label: "work", events: []dto.CalendarEvent{
			event("work", "w1", "2024-03-10T14:00:00Z"),
			event("work", "w2", "2024-03-09T09:00:00Z"),
		}},
		&stubSource{label: "personal", events: []dto.CalendarEvent{
			event("personal", "p1", "2024-03-09T12:00:00+03:00"),
		}},
	}

	resp, appErr := svc.Merge(context.Background(), sources, windowMin, windowMax, 0)
	if appErr != nil {
		t.Fatalf("Merge: %v", appErr)
	}

	got := make([]string, 0, len(resp.Events))
	for _, e := range resp.Events {
		got = append(got, e.ID)
	}
	// p1 is 09:00 UTC, equal to w2; w2 keeps its earlier enumeration slot.
	want := []string{"w2", "p1", "w1"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestMergeTreatsOffsetlessStartAsUTC(t *testing.T) {
	svc := NewMergeService()

	sources := []source.CalendarSource{
		&stubSource{label: "a", events: []dto.CalendarEvent{
			event("a", "later", "2024-03-09T10:00:00"),
			event("a", "earlier", "2024-03-09T08:00:00Z"),
		}},
	}

	resp, appErr := svc.Merge(context.Background(), sources, windowMin, windowMax, 0)
	if appErr != nil {
		t.Fatalf("Merge: %v", appErr)
	}
	if resp.Events[0].ID != "earlier" || resp.Events[1].ID != "later" {
		t.Fatalf("order = %v", resp.Events)
	}
}

func TestMergeKeepsUnparsableStartLast(t *testing.T) {
	svc := NewMergeService()

	sources := []source.CalendarSource{
		&stubSource{label: "a", events: []dto.CalendarEvent{
			event("a", "garbled", "not a timestamp"),
			event("a", "fine", "2024-03-09T08:00:00Z"),
		}},
	}

	resp, appErr := svc.Merge(context.Background(), sources, windowMin, windowMax, 0)
	if appErr != nil {
		t.Fatalf("Merge: %v", appErr)
	}
	if len(resp.Events) != 2 {
		t.Fatalf("events = %d, want the garbled event kept", len(resp.Events))
	}
	if resp.Events[1].ID != "garbled" {
		t.Fatalf("garbled event not sorted last: %v", resp.Events)
	}
}

func TestMergeSurvivesPartialFailure(t *testing.T) {
	svc := NewMergeService()

	sources := []source.CalendarSource{
		&stubSource{label: "broken", err: errors.New("connection refused")},
		&stubSource{label: "ok", events: []dto.CalendarEvent{
			event("ok", "e1", "2024-03-09T08:00:00Z"),
		}},
	}

	resp, appErr := svc.Merge(context.Background(), sources, windowMin, windowMax, 0)
	if appErr != nil {
		t.Fatalf("Merge: %v", appErr)
	}
	if len(resp.Events) != 1 {
		t.Fatalf("events = %d, want 1", len(resp.Events))
	}
	if resp.Sources[0].OK || resp.Sources[0].Error == "" {
		t.Fatalf("broken source not reported: %+v", resp.Sources[0])
	}
	if !resp.Sources[1].OK {
		t.Fatalf("healthy source reported failed: %+v", resp.Sources[1])
	}
}

func TestMergeFailsWhenAllSourcesFail(t *testing.T) {
	svc := NewMergeService()

	sources := []source.CalendarSource{
		&stubSource{label: "a", err: errors.New("boom")},
		&stubSource{label: "b", err: errors.New("boom")},
	}

	_, appErr := svc.Merge(context.Background(), sources, windowMin, windowMax, 0)
	if appErr == nil || appErr.Code != apperrors.ErrAllSourcesUnavailable {
		t.Fatalf("appErr = %v, want %s", appErr, apperrors.ErrAllSourcesUnavailable)
	}
}

func TestMergeTimesOutSlowSource(t *testing.T) {
	svc := &MergeService{
		fanOutLimit:   4,
		perSourceMax:  50,
		sourceTimeout: 20 * time.Millisecond,
	}

	sources := []source.CalendarSource{
		&stubSource{label: "slow", delay: 500 * time.Millisecond, events: []dto.CalendarEvent{
			event("slow", "never", "2024-03-09T08:00:00Z"),
		}},
		&stubSource{label: "fast", events: []dto.CalendarEvent{
			event("fast", "e1", "2024-03-09T09:00:00Z"),
		}},
	}

	resp, appErr := svc.Merge(context.Background(), sources, windowMin, windowMax, 0)
	if appErr != nil {
		t.Fatalf("Merge: %v", appErr)
	}
	if len(resp.Events) != 1 || resp.Events[0].ID != "e1" {
		t.Fatalf("events = %v, want only the fast source", resp.Events)
	}
	if resp.Sources[0].OK {
		t.Fatal("slow source should be reported as failed")
	}
}

func TestMergePassesPerSourceLimit(t *testing.T) {
	svc := NewMergeService()
	src := &limitRecordingSource{stubSource: stubSource{label: "a"}}

	if _, appErr := svc.Merge(context.Background(), []source.CalendarSource{src}, windowMin, windowMax, 7); appErr != nil {
		t.Fatalf("Merge: %v", appErr)
	}
	if src.gotLimit != 7 {
		t.Fatalf("limit seen by source = %d, want 7", src.gotLimit)
	}

	if _, appErr := svc.Merge(context.Background(), []source.CalendarSource{src}, windowMin, windowMax, 0); appErr != nil {
		t.Fatalf("Merge: %v", appErr)
	}
	if src.gotLimit != constants.MergeDefaultPerSourceMax {
		t.Fatalf("limit seen by source = %d, want %d", src.gotLimit, constants.MergeDefaultPerSourceMax)
	}
}

func TestMergeWithNoSources(t *testing.T) {
	resp, appErr := NewMergeService().Merge(context.Background(), nil, windowMin, windowMax, 0)
	if appErr != nil {
		t.Fatalf("Merge: %v", appErr)
	}
	if len(resp.Events) != 0 {
		t.Fatalf("events = %v, want empty", resp.Events)
	}
}
