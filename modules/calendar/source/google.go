package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/JonCoulter/whenly/modules/calendar/dto"
)

const googleCalendarAPIBase = "https://www.googleapis.com/calendar/v3"

// GoogleSource reads one calendar from the Google Calendar REST API. A
// signed-in user contributes one GoogleSource per entry in their calendar
// list, all sharing the same access token.
type GoogleSource struct {
	client      *http.Client
	accessToken string
	calendarID  string
	label       string
}

func NewGoogleSource(accessToken, calendarID, label string) *GoogleSource {
	return &GoogleSource{
		client:      &http.Client{Timeout: 30 * time.Second},
		accessToken: accessToken,
		calendarID:  calendarID,
		label:       label,
	}
}

func (g *GoogleSource) Label() string { return g.label }

// ListEvents calls the events endpoint with singleEvents=true so recurring
// series arrive pre-expanded. All-day entries carry a bare date instead of a
// dateTime and are skipped.
func (g *GoogleSource) ListEvents(ctx context.Context, timeMin, timeMax time.Time, maxResults int) ([]dto.CalendarEvent, error) {
	endpoint := fmt.Sprintf("%s/calendars/%s/events", googleCalendarAPIBase, url.PathEscape(g.calendarID))

	params := url.Values{}
	params.Set("timeMin", timeMin.Format(time.RFC3339))
	params.Set("timeMax", timeMax.Format(time.RFC3339))
	params.Set("singleEvents", "true")
	params.Set("orderBy", "startTime")
	params.Set("maxResults", strconv.Itoa(maxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+g.accessToken)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Google Calendar API error (%d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		Items []struct {
			ID       string `json:"id"`
			Summary  string `json:"summary"`
			Location string `json:"location"`
			Start    struct {
				DateTime string `json:"dateTime"`
				Date     string `json:"date"`
			} `json:"start"`
			End struct {
				DateTime string `json:"dateTime"`
				Date     string `json:"date"`
			} `json:"end"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	events := make([]dto.CalendarEvent, 0, len(result.Items))
	for _, item := range result.Items {
		if item.Start.DateTime == "" {
			// All-day event.
			continue
		}
		events = append(events, dto.CalendarEvent{
			ID:       item.ID,
			Title:    item.Summary,
			Location: item.Location,
			Start:    item.Start.DateTime,
			End:      item.End.DateTime,
			Source:   g.label,
		})
	}

	return events, nil
}

// ListCalendars returns the (id, summary) pairs of the user's calendar list,
// used to build one GoogleSource per calendar.
func ListCalendars(ctx context.Context, accessToken string) ([][2]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, googleCalendarAPIBase+"/users/me/calendarList", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Google Calendar API error (%d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		Items []struct {
			ID      string `json:"id"`
			Summary string `json:"summary"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	calendars := make([][2]string, 0, len(result.Items))
	for _, item := range result.Items {
		calendars = append(calendars, [2]string{item.ID, item.Summary})
	}
	return calendars, nil
}
