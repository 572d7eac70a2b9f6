package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Job statuses.
const (
	StatusPending     = "pending"
	StatusUncompleted = "uncompleted"
	StatusCompleted   = "completed"
	StatusCanceled    = "canceled"
)

// ValidStatus reports whether s is a known job status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusUncompleted, StatusCompleted, StatusCanceled:
		return true
	}
	return false
}

// Job is a unit of scheduled work: a rental pickup/dropoff or a repair.
// Start/End are stored as UTC instants. For all-day jobs the end is
// stored exclusive (noon anchor on the day after the last included day).
//
// Recurrence linkage: a job with a RecurrenceRule and no parent is a
// recurring parent; a job with RecurrenceParentID set is an instance
// materialized from a parent at RecurrenceOriginalStart. The pair
// (parent, original start) is unique so re-materialization cannot
// duplicate an instance.
type Job struct {
	ID         string   `gorm:"primaryKey" json:"id"`
	CalendarID string   `gorm:"not null;index;column:calendar_id" json:"calendar_id"`
	Calendar   Calendar `gorm:"foreignKey:CalendarID" json:"-"`

	Status string `gorm:"not null;default:pending;index" json:"status"`

	BusinessName string `json:"business_name"`
	ContactName  string `json:"contact_name"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`

	StartDT time.Time `gorm:"not null;index;column:start_dt" json:"start_dt"`
	EndDT   time.Time `gorm:"not null;index;column:end_dt" json:"end_dt"`
	AllDay  bool      `gorm:"default:false;column:all_day" json:"all_day"`

	TrailerDetails string  `gorm:"type:text;column:trailer_details" json:"trailer_details"`
	RepairNotes    string  `gorm:"type:text;column:repair_notes" json:"repair_notes"`
	TrailerColor   *string `gorm:"column:trailer_color" json:"trailer_color,omitempty"` // optional per-job color override
	Quote          float64 `json:"quote"`

	RecurrenceRule          *RecurrenceRule `gorm:"serializer:json;type:text;column:recurrence_rule" json:"recurrence_rule,omitempty"`
	RecurrenceParentID      *string         `gorm:"uniqueIndex:idx_jobs_parent_original;column:recurrence_parent_id" json:"recurrence_parent_id,omitempty"`
	RecurrenceParent        *Job            `gorm:"foreignKey:RecurrenceParentID" json:"-"`
	RecurrenceOriginalStart *time.Time      `gorm:"uniqueIndex:idx_jobs_parent_original;column:recurrence_original_start" json:"recurrence_original_start,omitempty"`
	EndRecurrenceDate       *time.Time      `gorm:"column:end_recurrence_date" json:"end_recurrence_date,omitempty"`

	HasCallReminder        bool `gorm:"default:false;column:has_call_reminder" json:"has_call_reminder"`
	CallReminderWeeksPrior *int `gorm:"column:call_reminder_weeks_prior" json:"call_reminder_weeks_prior,omitempty"` // 2 = "1 week prior", 3 = "2 weeks prior"
	CallReminderCompleted  bool `gorm:"default:false;column:call_reminder_completed" json:"call_reminder_completed"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook to generate UUID before creating record
func (j *Job) BeforeCreate(tx *gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for GORM
func (Job) TableName() string {
	return "jobs"
}

// IsRecurringParent reports whether the job generates occurrences.
func (j *Job) IsRecurringParent() bool {
	return j.RecurrenceRule != nil && j.RecurrenceParentID == nil
}

// IsRecurringInstance reports whether the job was generated from a parent.
func (j *Job) IsRecurringInstance() bool {
	return j.RecurrenceParentID != nil
}

// Duration returns the job's span.
func (j *Job) Duration() time.Duration {
	return j.EndDT.Sub(j.StartDT)
}
