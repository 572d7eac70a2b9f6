package dates

import (
	"fmt"
	"time"
)

// Layouts accepted for incoming date/datetime strings. Zoned layouts are
// tried first so an explicit offset is never reinterpreted as local.
var (
	zonedLayouts = []string{
		time.RFC3339,
		"2006-01-02T15:04:05.999999999Z07:00",
		"2006-01-02T15:04Z07:00",
	}
	naiveLayouts = []string{
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
	}
	dateOnlyLayout = "2006-01-02"
)

const (
	// DisplayDateLayout is the date-only wire format for all-day events.
	DisplayDateLayout = "2006-01-02"
	// DisplayDateTimeLayout is the local wire format for timed events.
	// Deliberately carries no offset suffix so clients render it as-is.
	DisplayDateTimeLayout = "2006-01-02T15:04:05"
)

// NormalizedSpan is the canonical representation of a job's time span:
// UTC instants for storage plus the strings the calendar UI consumes.
type NormalizedSpan struct {
	StartUTC     time.Time
	EndUTC       time.Time
	StartDisplay string
	EndDisplay   string
	AllDay       bool
}

// ParseInput converts a heterogeneous date/datetime input into an
// instant. Accepted inputs: time.Time, date-only strings (YYYY-MM-DD),
// and ISO-8601 datetime strings with or without seconds/offset. Naive
// values are interpreted in loc. dateOnly reports whether the input
// carried no time-of-day component.
func ParseInput(value any, loc *time.Location) (t time.Time, dateOnly bool, err error) {
	switch v := value.(type) {
	case time.Time:
		if v.IsZero() {
			return time.Time{}, false, fmt.Errorf("zero time value")
		}
		return v, false, nil
	case *time.Time:
		if v == nil || v.IsZero() {
			return time.Time{}, false, fmt.Errorf("nil or zero time value")
		}
		return *v, false, nil
	case string:
		if v == "" {
			return time.Time{}, false, fmt.Errorf("empty date string")
		}
		if parsed, perr := time.ParseInLocation(dateOnlyLayout, v, loc); perr == nil {
			return parsed, true, nil
		}
		for _, layout := range zonedLayouts {
			if parsed, perr := time.Parse(layout, v); perr == nil {
				return parsed, false, nil
			}
		}
		for _, layout := range naiveLayouts {
			if parsed, perr := time.ParseInLocation(layout, v, loc); perr == nil {
				return parsed, false, nil
			}
		}
		return time.Time{}, false, fmt.Errorf("cannot parse date/time value %q", v)
	default:
		return time.Time{}, false, fmt.Errorf("unsupported date/time type %T", value)
	}
}

// Normalize converts raw start/end inputs into the canonical span.
//
// All-day: the time-of-day is discarded and each date is anchored at
// local noon before conversion to UTC (midnight anchoring misbehaves
// across DST transitions). A missing end defaults to the start date.
// The stored and displayed end are exclusive: one day past the last
// included day. The +1 happens here, at the parsing boundary, and
// nowhere else.
//
// Timed: naive inputs are interpreted in loc; the stored instant is the
// UTC equivalent. A missing end defaults to the start instant (callers
// validate the strict end > start requirement). Display strings are
// local ISO datetimes without an offset suffix.
func Normalize(startValue, endValue any, allDay bool, loc *time.Location) (NormalizedSpan, error) {
	start, _, err := ParseInput(startValue, loc)
	if err != nil {
		return NormalizedSpan{}, fmt.Errorf("start: %w", err)
	}

	var end time.Time
	if endValue == nil || endValue == "" {
		end = start
	} else {
		end, _, err = ParseInput(endValue, loc)
		if err != nil {
			return NormalizedSpan{}, fmt.Errorf("end: %w", err)
		}
	}

	if allDay {
		startDay := noonOf(start.In(loc))
		endDay := noonOf(end.In(loc)).AddDate(0, 0, 1) // inclusive input -> exclusive storage
		return NormalizedSpan{
			StartUTC:     startDay.UTC(),
			EndUTC:       endDay.UTC(),
			StartDisplay: startDay.Format(DisplayDateLayout),
			EndDisplay:   endDay.Format(DisplayDateLayout),
			AllDay:       true,
		}, nil
	}

	return NormalizedSpan{
		StartUTC:     start.UTC(),
		EndUTC:       end.UTC(),
		StartDisplay: start.In(loc).Format(DisplayDateTimeLayout),
		EndDisplay:   end.In(loc).Format(DisplayDateTimeLayout),
		AllDay:       false,
	}, nil
}

// noonOf returns 12:00 on t's calendar day, in t's location.
func noonOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, t.Location())
}

// DayOf returns midnight on t's calendar day, in t's location.
func DayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
