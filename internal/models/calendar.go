package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Calendar groups jobs and reminders and supplies their display colors.
// Active is a pointer: gorm omits zero-valued fields that carry a
// default tag, so a plain bool could never be inserted as false.
type Calendar struct {
	ID                string    `gorm:"primaryKey" json:"id"`
	Name              string    `gorm:"unique;not null" json:"name"`
	Color             string    `gorm:"not null;default:#3788d8" json:"color"` // hex, e.g. #3788d8
	CallReminderColor string    `gorm:"not null;default:#f59e0b;column:call_reminder_color" json:"call_reminder_color"`
	Active            *bool     `gorm:"default:true" json:"active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// IsActive reports whether the calendar is active. Unset means active.
func (c *Calendar) IsActive() bool {
	return c.Active == nil || *c.Active
}

// BeforeCreate hook to generate UUID before creating record
func (c *Calendar) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

// TableName specifies the table name for GORM
func (Calendar) TableName() string {
	return "calendars"
}
