package feed

// EventType distinguishes the three categories a feed can contain.
type EventType string

const (
	EventJob          EventType = "job"
	EventJobReminder  EventType = "job_reminder"
	EventCallReminder EventType = "call_reminder"
)

// FeedRequest is a date window plus optional filters. Start/End are
// local dates (YYYY-MM-DD), both inclusive.
type FeedRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`

	CalendarIDs []string `json:"calendar_ids,omitempty"`
	Status      string   `json:"status,omitempty"`
	Search      string   `json:"search,omitempty"`

	// MaxExpandDays overrides the configured per-job segment cap when
	// positive.
	MaxExpandDays int `json:"max_expand_days,omitempty"`
}

// Event is one displayable calendar entry: a job day-segment, a
// job-derived call reminder, or a standalone call reminder.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	JobID      string    `json:"job_id,omitempty"`
	CalendarID string    `json:"calendar_id"`

	Title  string `json:"title"`
	Start  string `json:"start"`
	End    string `json:"end,omitempty"`
	AllDay bool   `json:"all_day"`
	Color  string `json:"color"`
	Status string `json:"status,omitempty"`

	// Multi-day segment metadata for "Day X of Y" labeling.
	IsMultiDay bool `json:"is_multi_day,omitempty"`
	DayNumber  int  `json:"day_number,omitempty"`
	TotalDays  int  `json:"total_days,omitempty"`

	// IsVirtual marks a forever-series occurrence that has not been
	// materialized; its ID is synthetic.
	IsVirtual bool `json:"is_virtual,omitempty"`

	// OriginalStart carries the materialization key for virtual events.
	OriginalStart string `json:"original_start,omitempty"`

	Notes     string `json:"notes,omitempty"`
	Completed bool   `json:"completed,omitempty"`
}
