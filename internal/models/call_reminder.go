package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CallReminder is a "call this customer" note placed on a Sunday. It is
// either standalone or linked to a job (created alongside the job when
// call reminders are enabled on it). ReminderDate is a date-only value
// anchored at UTC midnight.
type CallReminder struct {
	ID         string   `gorm:"primaryKey" json:"id"`
	CalendarID string   `gorm:"not null;index;column:calendar_id" json:"calendar_id"`
	Calendar   Calendar `gorm:"foreignKey:CalendarID" json:"-"`

	ReminderDate time.Time `gorm:"not null;index;column:reminder_date" json:"reminder_date"`
	Notes        string    `gorm:"type:text" json:"notes"`
	Completed    bool      `gorm:"default:false" json:"completed"`

	JobID *string `gorm:"index;column:job_id" json:"job_id,omitempty"`
	Job   *Job    `gorm:"foreignKey:JobID" json:"-"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate hook to generate UUID before creating record
func (cr *CallReminder) BeforeCreate(tx *gorm.DB) error {
	if cr.ID == "" {
		cr.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for GORM
func (CallReminder) TableName() string {
	return "call_reminders"
}
