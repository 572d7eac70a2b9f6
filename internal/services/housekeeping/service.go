package housekeeping

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"trailsched/internal/config"
	"trailsched/internal/dates"
	"trailsched/internal/models"
	"trailsched/internal/notify"
	"trailsched/internal/services/reminders"
)

// Service runs the background maintenance sweeps: purging soft-deleted
// rows past the retention window and pushing the day's due reminders to
// the configured webhook. Both are optional; an empty cron expression
// disables the corresponding sweep.
type Service struct {
	db        *gorm.DB
	cfg       *config.Config
	loc       *time.Location
	cron      *cron.Cron
	reminders *reminders.Service
	webhook   *notify.Client
}

// NewService creates a new housekeeping service.
func NewService(db *gorm.DB, cfg *config.Config, remindersService *reminders.Service, webhook *notify.Client) (*Service, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return &Service{
		db:        db,
		cfg:       cfg,
		loc:       loc,
		cron:      cron.New(cron.WithLocation(loc)),
		reminders: remindersService,
		webhook:   webhook,
	}, nil
}

// Start registers the configured sweeps and starts the cron scheduler.
func (s *Service) Start() error {
	entries := 0

	if expr := s.cfg.Housekeeping.RetentionCron; expr != "" {
		if _, err := s.cron.AddFunc(expr, s.runRetentionSweep); err != nil {
			return fmt.Errorf("invalid retention cron %q: %w", expr, err)
		}
		entries++
	}

	if expr := s.cfg.Housekeeping.ReminderCron; expr != "" && s.webhook.Enabled() {
		if _, err := s.cron.AddFunc(expr, s.runReminderPing); err != nil {
			return fmt.Errorf("invalid reminder cron %q: %w", expr, err)
		}
		entries++
	}

	if entries == 0 {
		log.Println("Housekeeping disabled: no sweeps configured")
		return nil
	}

	s.cron.Start()
	log.Printf("Housekeeping started with %d sweeps", entries)
	return nil
}

// Stop gracefully stops the scheduler, waiting for a running sweep.
func (s *Service) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		log.Println("Housekeeping stopped")
	}
}

// runRetentionSweep hard-deletes rows that were soft-deleted longer ago
// than the retention window.
func (s *Service) runRetentionSweep() {
	cutoff := time.Now().AddDate(0, 0, -s.cfg.Housekeeping.RetentionDays)

	jobs := s.db.Unscoped().
		Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
		Delete(&models.Job{})
	if jobs.Error != nil {
		log.Printf("ERROR: Retention sweep failed on jobs: %v", jobs.Error)
		return
	}

	rems := s.db.Unscoped().
		Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
		Delete(&models.CallReminder{})
	if rems.Error != nil {
		log.Printf("ERROR: Retention sweep failed on reminders: %v", rems.Error)
		return
	}

	if jobs.RowsAffected > 0 || rems.RowsAffected > 0 {
		log.Printf("Retention sweep purged %d jobs and %d reminders older than %d days",
			jobs.RowsAffected, rems.RowsAffected, s.cfg.Housekeeping.RetentionDays)
	}
}

// runReminderPing posts today's uncompleted reminders to the webhook.
func (s *Service) runReminderPing() {
	today := time.Now().In(s.loc)
	due, err := s.reminders.DueOn(today)
	if err != nil {
		log.Printf("ERROR: Failed to load due reminders: %v", err)
		return
	}
	if len(due) == 0 {
		return
	}

	digest := notify.ReminderDigest{
		Date:      today.Format(dates.DisplayDateLayout),
		Reminders: make([]notify.DigestEntry, 0, len(due)),
	}
	for _, r := range due {
		entry := notify.DigestEntry{
			ID:         r.ID,
			CalendarID: r.CalendarID,
			Notes:      r.Notes,
		}
		if r.JobID != nil {
			entry.JobID = *r.JobID
		}
		digest.Reminders = append(digest.Reminders, entry)
	}

	if err := s.webhook.Send(digest); err != nil {
		log.Printf("WARNING: Reminder webhook failed: %v", err)
		return
	}
	log.Printf("Posted %d due reminders to webhook", len(due))
}
