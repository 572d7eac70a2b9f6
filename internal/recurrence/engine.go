package recurrence

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"trailsched/internal/models"
)

const defaultSafetyCap = 500

// Occurrence is a single computed occurrence of a recurring job. It is
// virtual until materialized into a persisted Job row.
type Occurrence struct {
	Start time.Time
	End   time.Time
}

// Options bounds window-based generation for forever series.
type Options struct {
	// WindowStart / WindowEnd define the inclusive window occurrences
	// must start within.
	WindowStart time.Time
	WindowEnd   time.Time

	// SafetyCap limits occurrences per call so a malformed or extremely
	// frequent rule cannot stall a feed read. Zero means the default.
	SafetyCap int

	// EndRecurrenceDate, when set, truncates generation: occurrences
	// starting on or after it are dropped (series canceled from there).
	EndRecurrenceDate *time.Time
}

// buildRRule translates a stored rule plus the parent's start into an
// RFC 5545 evaluator. Monthly rules preserve nth-weekday-of-month
// semantics: a parent on the 3rd Friday of January recurs on the 3rd
// Friday of later months, never on "the 16th".
func buildRRule(parentStart time.Time, rule *models.RecurrenceRule) (*rrule.RRule, error) {
	opt := rrule.ROption{
		Dtstart:  parentStart,
		Interval: rule.Interval,
	}

	switch rule.Type {
	case models.RuleDaily:
		opt.Freq = rrule.DAILY
	case models.RuleWeekly:
		opt.Freq = rrule.WEEKLY
	case models.RuleMonthly:
		opt.Freq = rrule.MONTHLY
		ordinal := (parentStart.Day()-1)/7 + 1
		wd := rruleWeekday(parentStart.Weekday())
		opt.Byweekday = []rrule.Weekday{wd.Nth(ordinal)}
	case models.RuleYearly:
		opt.Freq = rrule.YEARLY
	default:
		return nil, fmt.Errorf("unsupported recurrence type: %q", rule.Type)
	}

	if rule.Count != nil {
		// The stored count excludes the parent itself; rrule counts the
		// dtstart occurrence, so add it back.
		opt.Count = *rule.Count + 1
	}
	if rule.UntilDate != nil {
		u := *rule.UntilDate
		// Until is an inclusive date: accept occurrences anywhere on it.
		opt.Until = time.Date(u.Year(), u.Month(), u.Day(), 23, 59, 59, 0, parentStart.Location())
	}

	return rrule.NewRRule(opt)
}

func rruleWeekday(wd time.Weekday) rrule.Weekday {
	switch wd {
	case time.Monday:
		return rrule.MO
	case time.Tuesday:
		return rrule.TU
	case time.Wednesday:
		return rrule.WE
	case time.Thursday:
		return rrule.TH
	case time.Friday:
		return rrule.FR
	case time.Saturday:
		return rrule.SA
	default:
		return rrule.SU
	}
}

// GenerateAll computes every occurrence of a bounded (count/until) rule
// after the parent's own start, preserving the parent's duration. The
// jobs service persists these eagerly at creation time. Forever rules
// are rejected: they are only ever evaluated against a window.
func GenerateAll(parentStart, parentEnd time.Time, rule *models.RecurrenceRule, safetyCap int) ([]Occurrence, error) {
	if rule == nil {
		return nil, fmt.Errorf("job has no recurrence rule")
	}
	if rule.IsForever() {
		return nil, fmt.Errorf("forever rules cannot be fully generated; use Generate with a window")
	}
	if safetyCap <= 0 {
		safetyCap = defaultSafetyCap
	}

	r, err := buildRRule(parentStart, rule)
	if err != nil {
		return nil, err
	}

	duration := parentEnd.Sub(parentStart)
	out := make([]Occurrence, 0)
	next := r.Iterator()
	for {
		start, ok := next()
		if !ok {
			break
		}
		if start.Equal(parentStart) {
			continue // the parent row already covers its own start
		}
		out = append(out, Occurrence{Start: start, End: start.Add(duration)})
		if len(out) >= safetyCap {
			break
		}
	}
	return out, nil
}

// Generate computes the occurrences of a rule that start inside
// [opts.WindowStart, opts.WindowEnd], bounded by the safety cap and the
// series' truncation date. Used for forever series at feed-read time;
// works for bounded rules too since rrule applies their terminator.
func Generate(parentStart, parentEnd time.Time, rule *models.RecurrenceRule, opts Options) ([]Occurrence, error) {
	if rule == nil {
		return nil, fmt.Errorf("job has no recurrence rule")
	}
	if opts.WindowEnd.Before(opts.WindowStart) {
		return nil, fmt.Errorf("window end %s is before window start %s",
			opts.WindowEnd.Format(time.RFC3339), opts.WindowStart.Format(time.RFC3339))
	}
	limit := opts.SafetyCap
	if limit <= 0 {
		limit = defaultSafetyCap
	}

	r, err := buildRRule(parentStart, rule)
	if err != nil {
		return nil, err
	}

	starts := r.Between(opts.WindowStart, opts.WindowEnd, true)
	duration := parentEnd.Sub(parentStart)
	out := make([]Occurrence, 0, len(starts))
	for _, start := range starts {
		if start.Equal(parentStart) {
			continue
		}
		if opts.EndRecurrenceDate != nil && !start.Before(*opts.EndRecurrenceDate) {
			break
		}
		out = append(out, Occurrence{Start: start, End: start.Add(duration)})
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// Covers reports whether t is a generated occurrence start of the rule.
// The parent's own start is not an occurrence; the parent row covers it.
func Covers(parentStart time.Time, rule *models.RecurrenceRule, t time.Time) (bool, error) {
	if rule == nil {
		return false, fmt.Errorf("job has no recurrence rule")
	}
	if t.Equal(parentStart) {
		return false, nil
	}
	r, err := buildRRule(parentStart, rule)
	if err != nil {
		return false, err
	}
	return len(r.Between(t, t, true)) > 0, nil
}

// Preview returns the next n occurrences strictly after the given
// reference time. Used for the forever-series preview surface.
func Preview(parentStart, parentEnd time.Time, rule *models.RecurrenceRule, after time.Time, n int) ([]Occurrence, error) {
	if rule == nil {
		return nil, fmt.Errorf("job has no recurrence rule")
	}
	if n <= 0 {
		return nil, fmt.Errorf("preview count must be positive, got %d", n)
	}

	r, err := buildRRule(parentStart, rule)
	if err != nil {
		return nil, err
	}

	duration := parentEnd.Sub(parentStart)
	out := make([]Occurrence, 0, n)
	next := r.Iterator()
	for len(out) < n {
		start, ok := next()
		if !ok {
			break
		}
		if !start.After(after) {
			continue
		}
		out = append(out, Occurrence{Start: start, End: start.Add(duration)})
	}
	return out, nil
}
