package sequence

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/okian/funnel/internal/domain/model"
)

// timestampLayouts are tried in order; zone-less layouts are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses an action_start value.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty value", model.ErrInvalidTimestamp)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	// Unix seconds, optionally fractional.
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) || f < math.MinInt64 || f >= math.MaxInt64 {
			return time.Time{}, fmt.Errorf("%w: %q out of range", model.ErrInvalidTimestamp, s)
		}
		sec := int64(f)
		nsec := int64((f - float64(sec)) * float64(time.Second))
		return time.Unix(sec, nsec).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", model.ErrInvalidTimestamp, s)
}

// Normalize converts raw records into typed events. A single unparseable
// timestamp rejects the whole log.
func Normalize(records []model.Record) ([]model.Event, error) {
	events := make([]model.Event, len(records))
	for i, r := range records {
		ts, err := ParseTimestamp(r.ActionStart)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		events[i] = model.Event{
			UserID:      r.UserID,
			Action:      r.Action,
			ActionStart: ts,
			Answer:      r.Answer,
		}
	}
	return events, nil
}
