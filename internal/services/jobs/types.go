package jobs

import (
	"time"

	"trailsched/internal/models"
)

// Scope selects how far an update or delete reaches across a recurring
// series.
type Scope string

const (
	ScopeThisOnly      Scope = "this_only"
	ScopeThisAndFuture Scope = "this_and_future"
	ScopeAll           Scope = "all"
)

// ValidScope reports whether s is a known scope value.
func ValidScope(s Scope) bool {
	switch s {
	case ScopeThisOnly, ScopeThisAndFuture, ScopeAll:
		return true
	}
	return false
}

// CreateJobRequest is the payload for creating a job, possibly with a
// recurrence rule. Start/End accept date-only strings (YYYY-MM-DD) or
// ISO datetimes; naive values are read in the configured timezone.
type CreateJobRequest struct {
	CalendarID string `json:"calendar_id"`

	BusinessName string `json:"business_name"`
	ContactName  string `json:"contact_name"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`

	Start  string `json:"start"`
	End    string `json:"end"`
	AllDay bool   `json:"all_day"`

	Status string `json:"status"`

	TrailerDetails string  `json:"trailer_details"`
	RepairNotes    string  `json:"repair_notes"`
	TrailerColor   *string `json:"trailer_color,omitempty"`
	Quote          float64 `json:"quote"`

	Recurrence *models.RecurrenceRule `json:"recurrence,omitempty"`

	HasCallReminder        bool `json:"has_call_reminder"`
	CallReminderWeeksPrior *int `json:"call_reminder_weeks_prior,omitempty"`
}

// CreateJobResult reports the persisted parent/job plus whether a
// bounded series was generated alongside it.
type CreateJobResult struct {
	Job               *models.Job `json:"job"`
	RecurrenceCreated bool        `json:"recurrence_created"`
	InstancesCreated  int         `json:"instances_created"`
}

// UpdateJobRequest carries a partial update plus the scope it applies
// to. Nil fields are left untouched. Descriptive fields propagate to
// siblings under this_and_future/all; the time span only ever changes
// on the addressed job.
type UpdateJobRequest struct {
	JobID       string `json:"job_id"`
	UpdateScope Scope  `json:"update_scope"`

	BusinessName *string `json:"business_name,omitempty"`
	ContactName  *string `json:"contact_name,omitempty"`
	Phone        *string `json:"phone,omitempty"`
	Address      *string `json:"address,omitempty"`

	Start  *string `json:"start,omitempty"`
	End    *string `json:"end,omitempty"`
	AllDay *bool   `json:"all_day,omitempty"`

	Status *string `json:"status,omitempty"`

	TrailerDetails *string  `json:"trailer_details,omitempty"`
	RepairNotes    *string  `json:"repair_notes,omitempty"`
	TrailerColor   *string  `json:"trailer_color,omitempty"`
	Quote          *float64 `json:"quote,omitempty"`

	HasCallReminder        *bool `json:"has_call_reminder,omitempty"`
	CallReminderWeeksPrior *int  `json:"call_reminder_weeks_prior,omitempty"`
}

// UpdateJobResult reports the updated job and the sibling fan-out.
type UpdateJobResult struct {
	Job              *models.Job `json:"job"`
	InstancesUpdated int         `json:"instances_updated"`
	UpdateScope      Scope       `json:"update_scope"`
}

// DeleteJobRequest soft-deletes a job with the given scope.
type DeleteJobRequest struct {
	JobID       string `json:"job_id"`
	DeleteScope Scope  `json:"delete_scope"`
}

// DeleteJobResult reports how many rows were soft-deleted.
type DeleteJobResult struct {
	DeletedCount int   `json:"deleted_count"`
	Scope        Scope `json:"scope"`
}

// CancelFutureRequest truncates a series from a given date onward.
type CancelFutureRequest struct {
	ParentID string `json:"parent_id"`
	FromDate string `json:"from_date"` // YYYY-MM-DD, local
}

// CancelFutureResult reports the truncation outcome.
type CancelFutureResult struct {
	CanceledCount     int       `json:"canceled_count"`
	EndRecurrenceDate time.Time `json:"end_recurrence_date"`
	ParentUpdated     bool      `json:"parent_updated"`
}

// MaterializeRequest converts a virtual occurrence into a persisted
// instance, keyed by (parent, original start).
type MaterializeRequest struct {
	ParentID      string `json:"parent_id"`
	OriginalStart string `json:"original_start"`
}

// MaterializeResult reports the instance and whether this call created
// it. Created=false means the occurrence was already materialized.
type MaterializeResult struct {
	JobID   string      `json:"job_id"`
	Created bool        `json:"created"`
	Job     *models.Job `json:"job"`
}

// PreviewRequest asks for the next N virtual occurrences of a forever
// series. From defaults to the current time when empty.
type PreviewRequest struct {
	ParentID string `json:"parent_id"`
	Count    int    `json:"count"`
	From     string `json:"from,omitempty"`
}

// PreviewOccurrence is one non-materialized occurrence for display.
type PreviewOccurrence struct {
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	StartDisplay string    `json:"start_display"`
	EndDisplay   string    `json:"end_display"`
}
