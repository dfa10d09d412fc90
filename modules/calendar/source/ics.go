package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/JonCoulter/whenly/modules/calendar/dto"

	ical "github.com/arran4/golang-ical"
)

// ICSSource reads a subscribed ICS feed over HTTP.
type ICSSource struct {
	client *http.Client
	url    string
	label  string
}

func NewICSSource(url, label string) *ICSSource {
	return &ICSSource{
		client: &http.Client{Timeout: 15 * time.Second},
		url:    url,
		label:  label,
	}
}

func (s *ICSSource) Label() string { return s.label }

func (s *ICSSource) ListEvents(ctx context.Context, timeMin, timeMax time.Time, maxResults int) ([]dto.CalendarEvent, error) {
	body, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}

	cal, err := ical.ParseCalendar(strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse ICS feed: %w", err)
	}

	events := make([]dto.CalendarEvent, 0)
	for _, ve := range cal.Events() {
		if len(events) >= maxResults {
			break
		}
		ev, ok := s.parseVEvent(ve, timeMin, timeMax)
		if !ok {
			continue
		}
		events = append(events, ev)
	}

	return events, nil
}

func (s *ICSSource) fetch(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return "", err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.New(resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// parseVEvent normalizes one VEVENT. All-day entries (VALUE=DATE or a
// DTSTART without a time component) are skipped. When the start cannot be
// parsed the raw property value is kept so the merge layer can still carry
// the event, sorted last.
func (s *ICSSource) parseVEvent(ve *ical.VEvent, timeMin, timeMax time.Time) (dto.CalendarEvent, bool) {
	out := dto.CalendarEvent{Source: s.label}

	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		out.ID = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Title = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = p.Value
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil || dtStart.Value == "" {
		return out, false
	}
	if isAllDay(dtStart) {
		return out, false
	}

	start, startErr := ve.GetStartAt()
	if startErr == nil {
		if !start.Before(timeMax) || start.Before(timeMin) {
			return out, false
		}
		out.Start = start.Format(time.RFC3339)
	} else {
		// Keep the raw value; window filtering needs a parsed instant.
		out.Start = dtStart.Value
	}

	if end, err := ve.GetEndAt(); err == nil {
		out.End = end.Format(time.RFC3339)
	} else if p := ve.GetProperty(ical.ComponentPropertyDtEnd); p != nil {
		out.End = p.Value
	}

	return out, true
}

func isAllDay(dtStart *ical.IANAProperty) bool {
	if params := dtStart.ICalParameters; params != nil {
		if vs, ok := params["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			return true
		}
	}
	return !strings.Contains(dtStart.Value, "T")
}
