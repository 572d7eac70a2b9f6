package app

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"trailsched/internal/config"
	"trailsched/internal/notify"
	"trailsched/internal/services/feed"
	"trailsched/internal/services/housekeeping"
	"trailsched/internal/services/jobs"
	"trailsched/internal/services/reminders"
)

// App bundles the constructed services behind one wiring point. A
// transport layer mounts on these; the binary itself only runs the
// housekeeping schedules.
type App struct {
	Config *config.Config
	DB     *gorm.DB

	Jobs         *jobs.Service
	Feed         *feed.Service
	Reminders    *reminders.Service
	Housekeeping *housekeeping.Service
	Webhook      *notify.Client
}

// New wires every service against the given database and config.
func New(db *gorm.DB, cfg *config.Config) (*App, error) {
	jobsService, err := jobs.NewService(db, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize jobs service: %w", err)
	}
	feedService, err := feed.NewService(db, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize feed service: %w", err)
	}
	remindersService, err := reminders.NewService(db, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize reminders service: %w", err)
	}
	webhook := notify.NewClient(cfg.Housekeeping.ReminderWebhookURL)
	housekeepingService, err := housekeeping.NewService(db, cfg, remindersService, webhook)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize housekeeping service: %w", err)
	}
	log.Println("Services initialized")

	return &App{
		Config:       cfg,
		DB:           db,
		Jobs:         jobsService,
		Feed:         feedService,
		Reminders:    remindersService,
		Housekeeping: housekeepingService,
		Webhook:      webhook,
	}, nil
}

// Start launches the background sweeps.
func (a *App) Start() error {
	return a.Housekeeping.Start()
}

// Stop drains the background sweeps.
func (a *App) Stop() {
	a.Housekeeping.Stop()
}
