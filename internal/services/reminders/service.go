package reminders

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"trailsched/internal/config"
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

// CreateReminderRequest creates a standalone call reminder (no linked
// job). ReminderDate must be a Sunday.
type CreateReminderRequest struct {
	CalendarID   string `json:"calendar_id"`
	ReminderDate string `json:"reminder_date"` // YYYY-MM-DD
	Notes        string `json:"notes"`
}

// Service owns standalone call-reminder operations. Job-linked
// reminders are created by the jobs service alongside their jobs.
type Service struct {
	db  *gorm.DB
	cfg *config.Config
	loc *time.Location
}

// NewService creates a new reminders service.
func NewService(db *gorm.DB, cfg *config.Config) (*Service, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return &Service{db: db, cfg: cfg, loc: loc}, nil
}

// Create validates and persists a standalone reminder.
func (s *Service) Create(req CreateReminderRequest) (*models.CallReminder, error) {
	if req.CalendarID == "" {
		return nil, &ValidationError{"calendar_id", "required"}
	}

	var cal models.Calendar
	if err := s.db.First(&cal, "id = ?", req.CalendarID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ValidationError{"calendar_id", "calendar does not exist"}
		}
		return nil, fmt.Errorf("failed to load calendar: %w", err)
	}
	if !cal.IsActive() {
		return nil, &ValidationError{"calendar_id", "calendar is inactive"}
	}

	day, err := time.ParseInLocation(dates.DisplayDateLayout, req.ReminderDate, s.loc)
	if err != nil {
		return nil, &ValidationError{"reminder_date", fmt.Sprintf("cannot parse date %q", req.ReminderDate)}
	}
	if !dates.IsSunday(day) {
		return nil, &ValidationError{"reminder_date",
			fmt.Sprintf("%s is a %s; call reminders fall on Sundays", req.ReminderDate, day.Weekday())}
	}

	reminder := models.CallReminder{
		CalendarID:   req.CalendarID,
		ReminderDate: time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC),
		Notes:        req.Notes,
	}
	if err := s.db.Create(&reminder).Error; err != nil {
		return nil, fmt.Errorf("failed to create reminder: %w", err)
	}
	return &reminder, nil
}

// Complete marks a reminder done.
func (s *Service) Complete(id string) (*models.CallReminder, error) {
	var reminder models.CallReminder
	if err := s.db.First(&reminder, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ValidationError{"id", fmt.Sprintf("reminder %s not found", id)}
		}
		return nil, fmt.Errorf("failed to load reminder: %w", err)
	}
	if reminder.Completed {
		return &reminder, nil
	}
	if err := s.db.Model(&reminder).Update("completed", true).Error; err != nil {
		return nil, fmt.Errorf("failed to complete reminder: %w", err)
	}
	return &reminder, nil
}

// Delete soft-deletes a reminder.
func (s *Service) Delete(id string) error {
	res := s.db.Delete(&models.CallReminder{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete reminder: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return &ValidationError{"id", fmt.Sprintf("reminder %s not found", id)}
	}
	return nil
}

// DueOn returns uncompleted reminders (standalone and job-linked)
// scheduled for the given local day. Used by the housekeeping webhook
// ping.
func (s *Service) DueOn(day time.Time) ([]models.CallReminder, error) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	var out []models.CallReminder
	err := s.db.Where("completed = ? AND reminder_date >= ? AND reminder_date < ?", false, from, to).
		Order("id").Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query due reminders: %w", err)
	}
	return out, nil
}
