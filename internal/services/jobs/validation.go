package jobs

import (
	"fmt"

	"trailsched/internal/dates"
	"trailsched/internal/models"
)

// ValidationError represents a validation error with field context
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// StateError represents an operation that is structurally invalid for
// the record's current state (e.g. materializing against a non-parent).
// The message names the required alternative action.
type StateError struct {
	Message string
}

func (e *StateError) Error() string {
	return e.Message
}

// validateSpan enforces the datetime invariants on a normalized span:
// strict ordering for timed jobs, year bounds, and the span ceiling
// that keeps multi-day expansion bounded.
func (s *Service) validateSpan(span dates.NormalizedSpan) error {
	if span.AllDay {
		if span.EndUTC.Before(span.StartUTC) {
			return &ValidationError{"end", "end date must not be before start date"}
		}
	} else {
		if !span.EndUTC.After(span.StartUTC) {
			return &ValidationError{"end", "end must be after start for timed jobs"}
		}
	}

	startLocal := span.StartUTC.In(s.loc)
	endLocal := span.EndUTC.In(s.loc)
	for _, year := range []int{startLocal.Year(), endLocal.Year()} {
		if year < s.cfg.MinValidYear || year > s.cfg.MaxValidYear {
			return &ValidationError{"start", fmt.Sprintf("year %d outside valid range %d-%d",
				year, s.cfg.MinValidYear, s.cfg.MaxValidYear)}
		}
	}

	spanDays := int(span.EndUTC.Sub(span.StartUTC).Hours() / 24)
	if spanDays > s.cfg.MaxJobSpanDays {
		return &ValidationError{"end", fmt.Sprintf("job spans %d days, maximum is %d",
			spanDays, s.cfg.MaxJobSpanDays)}
	}

	return nil
}

// validateCreate checks everything about a create request that does not
// need database access.
func (s *Service) validateCreate(req *CreateJobRequest) error {
	if req.CalendarID == "" {
		return &ValidationError{"calendar_id", "required"}
	}
	if req.Start == "" {
		return &ValidationError{"start", "required"}
	}
	if req.Status == "" {
		req.Status = models.StatusPending
	}
	if !models.ValidStatus(req.Status) {
		return &ValidationError{"status", fmt.Sprintf("unknown status %q", req.Status)}
	}

	if req.HasCallReminder {
		if req.CallReminderWeeksPrior == nil {
			return &ValidationError{"call_reminder_weeks_prior", "required when call reminder is enabled"}
		}
		if !dates.ValidWeeksPrior(*req.CallReminderWeeksPrior) {
			return &ValidationError{"call_reminder_weeks_prior",
				fmt.Sprintf("must be %d or %d", dates.WeeksPriorOne, dates.WeeksPriorTwo)}
		}
	}

	if req.Recurrence != nil {
		if err := req.Recurrence.Validate(s.cfg.MaxRecurrenceCount); err != nil {
			return &ValidationError{"recurrence", err.Error()}
		}
	}

	return nil
}
