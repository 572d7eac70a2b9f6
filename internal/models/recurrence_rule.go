package models

import (
	"fmt"
	"time"
)

// RuleType enumerates supported recurrence frequencies.
type RuleType string

const (
	RuleDaily   RuleType = "daily"
	RuleWeekly  RuleType = "weekly"
	RuleMonthly RuleType = "monthly"
	RuleYearly  RuleType = "yearly"
)

// RecurrenceRule is the structured rule embedded on a recurring parent
// job. It is persisted as a JSON text column (gorm json serializer).
// Exactly one terminator applies: Count, UntilDate, or Forever.
type RecurrenceRule struct {
	Type     RuleType `json:"type"`
	Interval int      `json:"interval"`

	Count     *int       `json:"count,omitempty"`
	UntilDate *time.Time `json:"until_date,omitempty"`
	Forever   bool       `json:"forever,omitempty"`
}

// IsForever reports whether the rule has no bounded terminator.
func (r *RecurrenceRule) IsForever() bool {
	return r != nil && r.Forever
}

// Validate checks structural validity of the rule. maxCount bounds the
// count terminator (500 in the default configuration).
func (r *RecurrenceRule) Validate(maxCount int) error {
	if r == nil {
		return nil
	}
	switch r.Type {
	case RuleDaily, RuleWeekly, RuleMonthly, RuleYearly:
	default:
		return fmt.Errorf("invalid recurrence type: %q", r.Type)
	}
	if r.Interval < 1 {
		return fmt.Errorf("recurrence interval must be positive, got %d", r.Interval)
	}

	terminators := 0
	if r.Count != nil {
		terminators++
		if *r.Count < 1 {
			return fmt.Errorf("recurrence count must be positive, got %d", *r.Count)
		}
		if *r.Count > maxCount {
			return fmt.Errorf("recurrence count %d exceeds maximum %d", *r.Count, maxCount)
		}
	}
	if r.UntilDate != nil {
		terminators++
	}
	if r.Forever {
		terminators++
	}
	if terminators != 1 {
		return fmt.Errorf("recurrence rule requires exactly one of count, until_date, or forever")
	}
	return nil
}
