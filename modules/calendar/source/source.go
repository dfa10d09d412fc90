// Package source defines the calendar feeds the merge engine reads from.
// Each source lists its events independently; the merge layer handles
// timeouts, partial failure and ordering.
package source

import (
	"context"
	"time"

	"github.com/JonCoulter/whenly/modules/calendar/dto"
)

// CalendarSource is one independently fetched feed.
type CalendarSource interface {
	// Label names the source in merge output and error reporting.
	Label() string
	// ListEvents returns timed events inside [timeMin, timeMax), at most
	// maxResults of them, in the source's own order.
	ListEvents(ctx context.Context, timeMin, timeMax time.Time, maxResults int) ([]dto.CalendarEvent, error)
}
