package feed

import (
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"trailsched/internal/config"
	"trailsched/internal/dates"
	"trailsched/internal/models"
	"trailsched/internal/recurrence"
)

const notesPreviewRunes = 50

// glyph prefixed onto job-derived reminder titles so they stand apart
// from the job itself on the calendar.
const reminderGlyph = "📞 "

// Service assembles the calendar feed: jobs in a window expanded into
// per-day segments, virtual occurrences of forever series, and both
// kinds of call reminders, merged into one collection.
type Service struct {
	db  *gorm.DB
	cfg *config.Config
	loc *time.Location
}

// NewService creates a new feed service.
func NewService(db *gorm.DB, cfg *config.Config) (*Service, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return &Service{db: db, cfg: cfg, loc: loc}, nil
}

// BuildFeed produces every displayable event for the window.
func (s *Service) BuildFeed(req FeedRequest) ([]Event, error) {
	winStartDay, winEndDay, err := s.parseWindow(req)
	if err != nil {
		return nil, err
	}
	maxExpand := req.MaxExpandDays
	if maxExpand <= 0 {
		maxExpand = s.cfg.MaxExpandDays
	}

	calendars, err := s.loadCalendars()
	if err != nil {
		return nil, err
	}

	winStartUTC := winStartDay.UTC()
	winEndExclusiveUTC := winEndDay.AddDate(0, 0, 1).UTC()

	events := make([]Event, 0)

	jobs, err := s.queryJobs(req, winStartUTC, winEndExclusiveUTC)
	if err != nil {
		return nil, err
	}
	for i := range jobs {
		cal := calendars[jobs[i].CalendarID]
		events = append(events, s.jobEvents(&jobs[i], cal, winStartDay, winEndDay, maxExpand)...)
	}

	virtual, err := s.virtualEvents(req, calendars, winStartDay, winEndDay, maxExpand)
	if err != nil {
		return nil, err
	}
	events = append(events, virtual...)

	jobReminders, err := s.jobReminderEvents(req, calendars, winStartDay, winEndDay)
	if err != nil {
		return nil, err
	}
	events = append(events, jobReminders...)

	standalone, err := s.standaloneReminderEvents(req, calendars, winStartDay, winEndDay)
	if err != nil {
		return nil, err
	}
	events = append(events, standalone...)

	return events, nil
}

/* ---------- window + queries ---------- */

func (s *Service) parseWindow(req FeedRequest) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(dates.DisplayDateLayout, req.Start, s.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid window start %q: %w", req.Start, err)
	}
	end, err := time.ParseInLocation(dates.DisplayDateLayout, req.End, s.loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid window end %q: %w", req.End, err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("window end %s is before window start %s", req.End, req.Start)
	}
	return start, end, nil
}

func (s *Service) loadCalendars() (map[string]models.Calendar, error) {
	var cals []models.Calendar
	if err := s.db.Find(&cals).Error; err != nil {
		return nil, fmt.Errorf("failed to load calendars: %w", err)
	}
	out := make(map[string]models.Calendar, len(cals))
	for _, c := range cals {
		out[c.ID] = c
	}
	return out, nil
}

// applyFilters attaches the optional calendar/status/search filters.
func (s *Service) applyFilters(q *gorm.DB, req FeedRequest) *gorm.DB {
	if len(req.CalendarIDs) > 0 {
		q = q.Where("calendar_id IN ?", req.CalendarIDs)
	}
	if req.Status != "" {
		q = q.Where("status = ?", req.Status)
	}
	if req.Search != "" {
		like := "%" + strings.ToLower(req.Search) + "%"
		q = q.Where(
			"LOWER(business_name) LIKE ? OR LOWER(contact_name) LIKE ? OR LOWER(phone) LIKE ? OR LOWER(trailer_details) LIKE ? OR LOWER(repair_notes) LIKE ?",
			like, like, like, like, like)
	}
	return q
}

func (s *Service) queryJobs(req FeedRequest, winStartUTC, winEndExclusiveUTC time.Time) ([]models.Job, error) {
	var jobs []models.Job
	q := s.db.Where("start_dt < ? AND end_dt >= ?", winEndExclusiveUTC, winStartUTC)
	q = s.applyFilters(q, req)
	if err := q.Order("id").Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	return jobs, nil
}

/* ---------- job segments ---------- */

// segment is one display day of a job, in local time.
type segment struct {
	Start     time.Time
	End       time.Time
	DayNumber int
	TotalDays int
	MultiDay  bool
}

// spanSegments splits a local [start, end] span into per-day display
// segments intersecting [winStart, winEnd] (both local midnights,
// inclusive). A single-day span yields one plain segment. For all-day
// spans the stored end is exclusive, so the last occupied day is the
// day before it. maxExpand caps the number of segments from one span.
func spanSegments(startLocal, endLocal time.Time, allDay bool, winStart, winEnd time.Time, maxExpand int) []segment {
	firstDay := dates.DayOf(startLocal)
	var lastDay time.Time
	if allDay {
		lastDay = dates.DayOf(endLocal).AddDate(0, 0, -1)
	} else {
		lastDay = dates.DayOf(endLocal)
		// A timed job ending exactly at midnight does not occupy that day.
		if endLocal.Equal(lastDay) && endLocal.After(startLocal) {
			lastDay = lastDay.AddDate(0, 0, -1)
		}
	}

	totalDays := calendarDaysBetween(firstDay, lastDay)
	if totalDays <= 0 {
		return []segment{{Start: startLocal, End: endLocal}}
	}

	out := make([]segment, 0, totalDays+1)
	for day := firstDay; !day.After(lastDay); day = day.AddDate(0, 0, 1) {
		if day.Before(winStart) || day.After(winEnd) {
			continue
		}
		if len(out) >= maxExpand {
			break
		}
		seg := segment{
			Start:     day,
			End:       day.AddDate(0, 0, 1),
			DayNumber: calendarDaysBetween(firstDay, day),
			TotalDays: totalDays,
			MultiDay:  true,
		}
		if !allDay {
			if day.Equal(firstDay) {
				seg.Start = startLocal
			}
			if day.Equal(lastDay) {
				seg.End = endLocal
			}
		}
		out = append(out, seg)
	}
	return out
}

// calendarDaysBetween counts whole calendar days from a to b, both
// local midnights. Evaluated through UTC so a DST transition inside the
// span cannot skew the count.
func calendarDaysBetween(a, b time.Time) int {
	au := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bu := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(bu.Sub(au).Hours() / 24)
}

func (s *Service) jobEvents(job *models.Job, cal models.Calendar, winStart, winEnd time.Time, maxExpand int) []Event {
	startLocal := job.StartDT.In(s.loc)
	endLocal := job.EndDT.In(s.loc)
	segs := spanSegments(startLocal, endLocal, job.AllDay, winStart, winEnd, maxExpand)

	title := jobTitle(job.BusinessName, job.ContactName, job.Phone)
	color := eventColor(job, cal)

	out := make([]Event, 0, len(segs))
	for _, seg := range segs {
		ev := Event{
			ID:         job.ID,
			Type:       EventJob,
			JobID:      job.ID,
			CalendarID: job.CalendarID,
			Title:      title,
			Start:      s.displaySegment(seg.Start, job.AllDay),
			End:        s.displaySegment(seg.End, job.AllDay),
			AllDay:     job.AllDay,
			Color:      color,
			Status:     job.Status,
			IsMultiDay: seg.MultiDay,
			DayNumber:  seg.DayNumber,
			TotalDays:  seg.TotalDays,
		}
		if seg.MultiDay {
			ev.ID = fmt.Sprintf("%s_day%d", job.ID, seg.DayNumber)
		}
		out = append(out, ev)
	}
	return out
}

// jobTitle derives the display title, omitting any empty part.
func jobTitle(business, contact, phone string) string {
	title := business
	if contact != "" {
		if title != "" {
			title = fmt.Sprintf("%s (%s)", title, contact)
		} else {
			title = contact
		}
	}
	if title == "" {
		title = "No Name Provided"
	}
	if phone != "" {
		title += " - " + phone
	}
	return title
}

// eventColor picks the calendar color (or the job's trailer override)
// and fades it toward white once the job is completed.
func eventColor(job *models.Job, cal models.Calendar) string {
	color := cal.Color
	if job.TrailerColor != nil && *job.TrailerColor != "" {
		color = *job.TrailerColor
	}
	if job.Status == models.StatusCompleted {
		color = Lighten(color, completedBlend)
	}
	return color
}

func (s *Service) displaySegment(t time.Time, allDay bool) string {
	if allDay {
		return t.Format(dates.DisplayDateLayout)
	}
	return t.Format(dates.DisplayDateTimeLayout)
}

/* ---------- virtual occurrences ---------- */

// virtualEvents computes the window's occurrences of forever series.
// Occurrences already materialized appear as real jobs in the base set
// and are skipped here.
func (s *Service) virtualEvents(req FeedRequest, calendars map[string]models.Calendar, winStart, winEnd time.Time, maxExpand int) ([]Event, error) {
	var parents []models.Job
	q := s.db.Where("recurrence_rule IS NOT NULL AND recurrence_parent_id IS NULL")
	q = s.applyFilters(q, req)
	if err := q.Order("id").Find(&parents).Error; err != nil {
		return nil, fmt.Errorf("failed to query recurring parents: %w", err)
	}

	events := make([]Event, 0)
	for i := range parents {
		parent := &parents[i]
		if !parent.RecurrenceRule.IsForever() {
			continue
		}

		materialized, err := s.materializedStarts(parent.ID)
		if err != nil {
			return nil, err
		}

		occs, err := recurrence.Generate(
			parent.StartDT.In(s.loc), parent.EndDT.In(s.loc), parent.RecurrenceRule,
			recurrence.Options{
				WindowStart:       winStart,
				WindowEnd:         winEnd.AddDate(0, 0, 1).Add(-time.Second),
				SafetyCap:         s.cfg.SafetyCap,
				EndRecurrenceDate: parent.EndRecurrenceDate,
			})
		if err != nil {
			log.Printf("WARNING: Failed to expand series %s: %v", parent.ID, err)
			continue
		}

		cal := calendars[parent.CalendarID]
		title := jobTitle(parent.BusinessName, parent.ContactName, parent.Phone)
		color := eventColor(parent, cal)
		for _, occ := range occs {
			if materialized[occ.Start.UTC().Unix()] {
				continue
			}
			segs := spanSegments(occ.Start, occ.End, parent.AllDay, winStart, winEnd, maxExpand)
			for _, seg := range segs {
				ev := Event{
					ID:            fmt.Sprintf("%s_v%s", parent.ID, occ.Start.Format("20060102T150405")),
					Type:          EventJob,
					JobID:         parent.ID,
					CalendarID:    parent.CalendarID,
					Title:         title,
					Start:         s.displaySegment(seg.Start, parent.AllDay),
					End:           s.displaySegment(seg.End, parent.AllDay),
					AllDay:        parent.AllDay,
					Color:         color,
					Status:        parent.Status,
					IsMultiDay:    seg.MultiDay,
					DayNumber:     seg.DayNumber,
					TotalDays:     seg.TotalDays,
					IsVirtual:     true,
					OriginalStart: occ.Start.UTC().Format(time.RFC3339),
				}
				if seg.MultiDay {
					ev.ID = fmt.Sprintf("%s_day%d", ev.ID, seg.DayNumber)
				}
				events = append(events, ev)
			}
		}
	}
	return events, nil
}

func (s *Service) materializedStarts(parentID string) (map[int64]bool, error) {
	var starts []time.Time
	err := s.db.Model(&models.Job{}).Unscoped().
		Where("recurrence_parent_id = ?", parentID).
		Pluck("recurrence_original_start", &starts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list materialized starts: %w", err)
	}
	out := make(map[int64]bool, len(starts))
	for _, t := range starts {
		out[t.UTC().Unix()] = true
	}
	return out, nil
}

/* ---------- reminders ---------- */

// jobReminderEvents derives call-reminder events from jobs whose
// reminder Sunday lands inside the window. The job itself may start
// after the window; the query reaches forward far enough to catch it.
func (s *Service) jobReminderEvents(req FeedRequest, calendars map[string]models.Calendar, winStart, winEnd time.Time) ([]Event, error) {
	// weeks_prior maxes out at 3, so a qualifying job starts at most
	// three weeks after the window.
	reachEndUTC := winEnd.AddDate(0, 0, 22).UTC()

	var jobs []models.Job
	q := s.db.Where(
		"has_call_reminder = ? AND call_reminder_completed = ? AND call_reminder_weeks_prior IS NOT NULL AND start_dt >= ? AND start_dt < ?",
		true, false, winStart.UTC(), reachEndUTC)
	q = s.applyFilters(q, req)
	if err := q.Order("id").Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("failed to query reminder jobs: %w", err)
	}

	events := make([]Event, 0)
	for i := range jobs {
		job := &jobs[i]
		sunday, err := dates.ReminderSunday(job.StartDT.In(s.loc), *job.CallReminderWeeksPrior)
		if err != nil {
			log.Printf("WARNING: Job %s has invalid weeks_prior: %v", job.ID, err)
			continue
		}
		if sunday.Before(winStart) || sunday.After(winEnd) {
			continue
		}
		cal := calendars[job.CalendarID]
		events = append(events, Event{
			ID:         job.ID + "_reminder",
			Type:       EventJobReminder,
			JobID:      job.ID,
			CalendarID: job.CalendarID,
			Title:      reminderGlyph + jobTitle(job.BusinessName, job.ContactName, job.Phone),
			Start:      sunday.Format(dates.DisplayDateLayout),
			AllDay:     true,
			Color:      cal.CallReminderColor,
		})
	}
	return events, nil
}

// standaloneReminderEvents emits CallReminder rows with no linked job,
// restricted to active, filtered-in calendars.
func (s *Service) standaloneReminderEvents(req FeedRequest, calendars map[string]models.Calendar, winStart, winEnd time.Time) ([]Event, error) {
	fromUTC := time.Date(winStart.Year(), winStart.Month(), winStart.Day(), 0, 0, 0, 0, time.UTC)
	toUTC := time.Date(winEnd.Year(), winEnd.Month(), winEnd.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)

	var reminders []models.CallReminder
	q := s.db.Where("job_id IS NULL AND reminder_date >= ? AND reminder_date < ?", fromUTC, toUTC)
	if len(req.CalendarIDs) > 0 {
		q = q.Where("calendar_id IN ?", req.CalendarIDs)
	}
	if err := q.Order("id").Find(&reminders).Error; err != nil {
		return nil, fmt.Errorf("failed to query call reminders: %w", err)
	}

	events := make([]Event, 0, len(reminders))
	for _, r := range reminders {
		cal, ok := calendars[r.CalendarID]
		if !ok || !cal.IsActive() {
			continue
		}
		events = append(events, Event{
			ID:         r.ID,
			Type:       EventCallReminder,
			CalendarID: r.CalendarID,
			Title:      notesPreview(r.Notes),
			Start:      r.ReminderDate.Format(dates.DisplayDateLayout),
			AllDay:     true,
			Color:      cal.CallReminderColor,
			Notes:      r.Notes,
			Completed:  r.Completed,
		})
	}
	return events, nil
}

// notesPreview truncates reminder notes to a short label.
func notesPreview(notes string) string {
	if notes == "" {
		return "Call reminder"
	}
	runes := []rune(notes)
	if len(runes) <= notesPreviewRunes {
		return notes
	}
	return string(runes[:notesPreviewRunes]) + "..."
}
