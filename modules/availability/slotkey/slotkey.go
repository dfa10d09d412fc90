// Package slotkey encodes and decodes the compact text identifiers that
// clients use to address availability slots. A key is the slot's day part
// and wall-clock start time joined by a dash, e.g. "2024-03-15-09:00" for a
// date-based event or "Monday-09:00" for a weekday-based one. Decoding is
// kind-directed because the date form contains dashes of its own.
package slotkey

import (
	"fmt"
	"strings"
	"time"

	"github.com/JonCoulter/whenly/modules/availability/entity"
)

// legacySuffix is appended by older clients that concatenate a missing end
// marker into the key. At most one trailing occurrence is stripped before
// parsing.
const legacySuffix = "-undefined"

const dateLayout = "2006-01-02"

// Selector is the structured identity of a slot within an event. Exactly one
// of Date / Weekday is set.
type Selector struct {
	Date      string
	Weekday   string
	StartTime string
}

// MalformedKeyError reports a key that cannot be decoded under the event's
// kind. The raw key is preserved for diagnostics.
type MalformedKeyError struct {
	Raw    string
	Reason string
}

func (e *MalformedKeyError) Error() string {
	return fmt.Sprintf("malformed slot key %q: %s", e.Raw, e.Reason)
}

// Encode renders a selector back into key text. Encode(Decode(k)) == k for
// any key Decode accepts, modulo the stripped legacy suffix.
func Encode(sel Selector) string {
	if sel.Weekday != "" {
		return sel.Weekday + "-" + sel.StartTime
	}
	return sel.Date + "-" + sel.StartTime
}

// Decode parses raw into a selector under the given event kind.
func Decode(kind entity.EventKind, raw string) (Selector, error) {
	key := strings.TrimSuffix(raw, legacySuffix)
	if key == "" {
		return Selector{}, &MalformedKeyError{Raw: raw, Reason: "empty key"}
	}

	switch kind {
	case entity.EventKindWeekdaySet:
		return decodeWeekday(raw, key)
	case entity.EventKindSpecificDates:
		return decodeDate(raw, key)
	default:
		return Selector{}, &MalformedKeyError{Raw: raw, Reason: fmt.Sprintf("unknown event kind %q", kind)}
	}
}

// decodeWeekday splits on the first dash only: the weekday label cannot
// contain a dash, so anything after it is the time token verbatim.
func decodeWeekday(raw, key string) (Selector, error) {
	idx := strings.Index(key, "-")
	if idx <= 0 || idx == len(key)-1 {
		return Selector{}, &MalformedKeyError{Raw: raw, Reason: "expected <weekday>-<time>"}
	}
	weekday, start := key[:idx], key[idx+1:]
	if strings.Contains(start, "-") {
		return Selector{}, &MalformedKeyError{Raw: raw, Reason: "time token contains a dash"}
	}
	return Selector{Weekday: weekday, StartTime: start}, nil
}

// decodeDate requires exactly four dash-separated tokens: year, month, day
// and the time. A fifth token (or a missing one) means the key does not
// match the event's kind and is rejected rather than guessed at.
func decodeDate(raw, key string) (Selector, error) {
	parts := strings.SplitN(key, "-", 4)
	if len(parts) != 4 {
		return Selector{}, &MalformedKeyError{Raw: raw, Reason: "expected <yyyy>-<mm>-<dd>-<time>"}
	}
	date := parts[0] + "-" + parts[1] + "-" + parts[2]
	start := parts[3]
	if start == "" || strings.Contains(start, "-") {
		return Selector{}, &MalformedKeyError{Raw: raw, Reason: "expected <yyyy>-<mm>-<dd>-<time>"}
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return Selector{}, &MalformedKeyError{Raw: raw, Reason: fmt.Sprintf("invalid date %q", date)}
	}
	return Selector{Date: date, StartTime: start}, nil
}
