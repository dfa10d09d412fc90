package service

import (
	"context"
	"sort"
	"time"

	"github.com/JonCoulter/whenly/core/constants"
	"github.com/JonCoulter/whenly/core/errors"
	"github.com/JonCoulter/whenly/core/logger"
	"github.com/JonCoulter/whenly/modules/calendar/dto"
	"github.com/JonCoulter/whenly/modules/calendar/source"

	"golang.org/x/sync/errgroup"
)

// maxInstant sorts events with an unreadable start after everything else.
var maxInstant = time.Unix(1<<62-1, 0)

// MergeService fans out to every calendar source and folds the results into
// one chronologically ordered feed. A failing or slow source degrades the
// feed instead of breaking it; only when every source fails does the merge
// itself fail.
type MergeService struct {
	fanOutLimit   int
	perSourceMax  int
	sourceTimeout time.Duration
}

type MergeServiceInterface interface {
	Merge(ctx context.Context, sources []source.CalendarSource, timeMin, timeMax time.Time, perSourceLimit int) (*dto.MergedCalendarResponse, *errors.AppError)
}

func NewMergeService() MergeServiceInterface {
	return &MergeService{
		fanOutLimit:   constants.MergeFanOutLimit,
		perSourceMax:  constants.MergeDefaultPerSourceMax,
		sourceTimeout: constants.SourceFetchTimeout,
	}
}

func (s *MergeService) Merge(ctx context.Context, sources []source.CalendarSource, timeMin, timeMax time.Time, perSourceLimit int) (*dto.MergedCalendarResponse, *errors.AppError) {
	if perSourceLimit <= 0 {
		perSourceLimit = s.perSourceMax
	}

	if len(sources) == 0 {
		return &dto.MergedCalendarResponse{
			Events:  []dto.CalendarEvent{},
			Sources: []dto.SourceStatus{},
		}, nil
	}

	type outcome struct {
		events []dto.CalendarEvent
		err    error
	}
	outcomes := make([]outcome, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.fanOutLimit)

	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			fetchCtx, cancel := context.WithTimeout(gctx, s.sourceTimeout)
			defer cancel()

			events, err := src.ListEvents(fetchCtx, timeMin, timeMax, perSourceLimit)
			if err != nil {
				logger.Error("MergeService:Merge:Source", "source", src.Label(), "error", err)
				outcomes[i] = outcome{err: err}
				// Source failures are recorded, never propagated: one bad
				// feed must not cancel the siblings.
				return nil
			}
			outcomes[i] = outcome{events: events}
			return nil
		})
	}

	// Goroutines only ever return nil.
	_ = g.Wait()

	resp := &dto.MergedCalendarResponse{
		Events:  []dto.CalendarEvent{},
		Sources: make([]dto.SourceStatus, len(sources)),
	}

	failures := 0
	for i, src := range sources {
		status := dto.SourceStatus{Label: src.Label(), OK: true}
		if outcomes[i].err != nil {
			status.OK = false
			status.Error = outcomes[i].err.Error()
			failures++
		} else {
			resp.Events = append(resp.Events, outcomes[i].events...)
		}
		resp.Sources[i] = status
	}

	if failures == len(sources) {
		return nil, errors.NewAppError(errors.ErrAllSourcesUnavailable, "No calendar source could be reached", nil)
	}

	// Events were appended in source enumeration order, so a stable sort
	// keeps that order for equal start instants.
	sort.SliceStable(resp.Events, func(i, j int) bool {
		return parseStart(resp.Events[i].Start).Before(parseStart(resp.Events[j].Start))
	})

	return resp, nil
}

// parseStart turns an event's textual start into a sortable instant. Values
// without a UTC offset are read as UTC. Unparsable values map to the
// maximum instant so the event survives the merge at the end of the feed.
func parseStart(raw string) time.Time {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", raw, time.UTC); err == nil {
		return t
	}
	return maxInstant
}
