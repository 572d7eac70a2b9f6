package jobs

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"trailsched/internal/config"
	"trailsched/internal/dates"
	"trailsched/internal/models"
	"trailsched/internal/recurrence"
)

// Service owns job lifecycle: creation (with eager generation of
// bounded series), scoped updates and deletes, series truncation,
// occurrence materialization, and forever-series previews.
type Service struct {
	db  *gorm.DB
	cfg *config.Config
	loc *time.Location
}

// NewService creates a new jobs service.
func NewService(db *gorm.DB, cfg *config.Config) (*Service, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return &Service{db: db, cfg: cfg, loc: loc}, nil
}

// CreateJob validates and persists a job. A bounded recurrence rule
// (count/until) generates all of its instances, and their paired call
// reminders, inside the same transaction; a forever rule stores only
// the parent and leaves occurrences virtual.
func (s *Service) CreateJob(req CreateJobRequest) (*CreateJobResult, error) {
	if err := s.validateCreate(&req); err != nil {
		return nil, err
	}

	var cal models.Calendar
	if err := s.db.First(&cal, "id = ?", req.CalendarID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ValidationError{"calendar_id", "calendar does not exist"}
		}
		return nil, fmt.Errorf("failed to load calendar: %w", err)
	}

	span, err := dates.Normalize(req.Start, req.End, req.AllDay, s.loc)
	if err != nil {
		return nil, &ValidationError{"datetime", err.Error()}
	}
	if err := s.validateSpan(span); err != nil {
		return nil, err
	}

	job := models.Job{
		CalendarID:             req.CalendarID,
		Status:                 req.Status,
		BusinessName:           req.BusinessName,
		ContactName:            req.ContactName,
		Phone:                  req.Phone,
		Address:                req.Address,
		StartDT:                span.StartUTC,
		EndDT:                  span.EndUTC,
		AllDay:                 span.AllDay,
		TrailerDetails:         req.TrailerDetails,
		RepairNotes:            req.RepairNotes,
		TrailerColor:           req.TrailerColor,
		Quote:                  req.Quote,
		RecurrenceRule:         req.Recurrence,
		HasCallReminder:        req.HasCallReminder,
		CallReminderWeeksPrior: req.CallReminderWeeksPrior,
	}

	instancesCreated := 0
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&job).Error; err != nil {
			return fmt.Errorf("failed to create job: %w", err)
		}
		if job.HasCallReminder {
			if err := tx.Create(s.reminderForJob(&job)).Error; err != nil {
				return fmt.Errorf("failed to create call reminder: %w", err)
			}
		}

		if job.RecurrenceRule == nil || job.RecurrenceRule.IsForever() {
			return nil
		}

		occs, err := recurrence.GenerateAll(
			job.StartDT.In(s.loc), job.EndDT.In(s.loc), job.RecurrenceRule, s.cfg.SafetyCap)
		if err != nil {
			return fmt.Errorf("failed to generate occurrences: %w", err)
		}
		for _, occ := range occs {
			inst := s.instanceFromOccurrence(&job, occ.Start.UTC(), occ.End.UTC())
			if err := tx.Create(inst).Error; err != nil {
				return fmt.Errorf("failed to create recurrence instance: %w", err)
			}
			if job.HasCallReminder {
				if err := tx.Create(s.reminderForJob(inst)).Error; err != nil {
					return fmt.Errorf("failed to create instance call reminder: %w", err)
				}
			}
			instancesCreated++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if instancesCreated > 0 {
		log.Printf("Created job %s with %d recurrence instances", job.ID, instancesCreated)
	}

	return &CreateJobResult{
		Job:               &job,
		RecurrenceCreated: job.RecurrenceRule != nil,
		InstancesCreated:  instancesCreated,
	}, nil
}

// Materialize converts a virtual occurrence into a persisted instance.
// The original start must lie on the parent's rule and before any
// cancellation boundary.
// Idempotent: an occurrence already materialized for the same
// (parent, original start) is returned unchanged with Created=false,
// including when a concurrent double-submit loses the unique-index race.
func (s *Service) Materialize(req MaterializeRequest) (*MaterializeResult, error) {
	parent, err := s.loadJob(req.ParentID)
	if err != nil {
		return nil, err
	}
	if !parent.IsRecurringParent() {
		return nil, &StateError{fmt.Sprintf(
			"job %s is not a recurrence parent; only a job carrying a recurrence rule can be materialized against", parent.ID)}
	}

	origInstant, _, err := dates.ParseInput(req.OriginalStart, s.loc)
	if err != nil {
		return nil, &ValidationError{"original_start", err.Error()}
	}
	orig := origInstant.UTC()

	if existing, err := s.findInstance(parent.ID, orig); err != nil {
		return nil, err
	} else if existing != nil {
		return &MaterializeResult{JobID: existing.ID, Created: false, Job: existing}, nil
	}

	if parent.EndRecurrenceDate != nil && !orig.Before(*parent.EndRecurrenceDate) {
		return nil, &ValidationError{"original_start", fmt.Sprintf(
			"%s falls after the series was canceled", req.OriginalStart)}
	}
	onRule, err := recurrence.Covers(parent.StartDT.In(s.loc), parent.RecurrenceRule, orig)
	if err != nil {
		return nil, fmt.Errorf("failed to check occurrence: %w", err)
	}
	if !onRule {
		return nil, &ValidationError{"original_start", fmt.Sprintf(
			"%s is not an occurrence of this series", req.OriginalStart)}
	}

	inst := s.instanceFromOccurrence(parent, orig, orig.Add(parent.Duration()))
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(inst).Error; err != nil {
			return err
		}
		if parent.HasCallReminder {
			if err := tx.Create(s.reminderForJob(inst)).Error; err != nil {
				return fmt.Errorf("failed to create call reminder: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		// A unique-index violation means another request materialized the
		// same occurrence first; hand back the winner.
		if existing, lookupErr := s.findInstance(parent.ID, orig); lookupErr == nil && existing != nil {
			return &MaterializeResult{JobID: existing.ID, Created: false, Job: existing}, nil
		}
		return nil, fmt.Errorf("failed to materialize occurrence: %w", err)
	}

	return &MaterializeResult{JobID: inst.ID, Created: true, Job: inst}, nil
}

// UpdateJobWithScope applies a partial update. Descriptive fields fan
// out to sibling instances under this_and_future/all; a time-span
// change only ever touches the addressed job.
func (s *Service) UpdateJobWithScope(req UpdateJobRequest) (*UpdateJobResult, error) {
	if !ValidScope(req.UpdateScope) {
		return nil, &ValidationError{"update_scope", fmt.Sprintf("unknown scope %q", req.UpdateScope)}
	}
	job, err := s.loadJob(req.JobID)
	if err != nil {
		return nil, err
	}

	descriptive, err := s.descriptiveUpdates(&req)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]any, len(descriptive)+3)
	for k, v := range descriptive {
		updates[k] = v
	}

	if req.Start != nil || req.End != nil || req.AllDay != nil {
		span, err := s.renormalizeSpan(job, req.Start, req.End, req.AllDay)
		if err != nil {
			return nil, err
		}
		updates["start_dt"] = span.StartUTC
		updates["end_dt"] = span.EndUTC
		updates["all_day"] = span.AllDay
	}

	instancesUpdated := 0
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if len(updates) > 0 {
			if err := tx.Model(job).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update job: %w", err)
			}
		}
		if req.UpdateScope == ScopeThisOnly || len(descriptive) == 0 {
			return nil
		}

		siblings := s.siblingQuery(tx, job, req.UpdateScope)
		if siblings == nil {
			return nil
		}
		res := siblings.Updates(descriptive)
		if res.Error != nil {
			return fmt.Errorf("failed to update siblings: %w", res.Error)
		}
		instancesUpdated = int(res.RowsAffected)
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.loadJob(job.ID)
	if err != nil {
		return nil, err
	}
	return &UpdateJobResult{Job: updated, InstancesUpdated: instancesUpdated, UpdateScope: req.UpdateScope}, nil
}

// DeleteJobWithScope soft-deletes a job. this_only on a parent whose
// series still has live instances is rejected so a series is never
// orphaned; this_and_future truncates the parent's recurrence.
func (s *Service) DeleteJobWithScope(req DeleteJobRequest) (*DeleteJobResult, error) {
	if !ValidScope(req.DeleteScope) {
		return nil, &ValidationError{"delete_scope", fmt.Sprintf("unknown scope %q", req.DeleteScope)}
	}
	job, err := s.loadJob(req.JobID)
	if err != nil {
		return nil, err
	}

	deleted := 0
	err = s.db.Transaction(func(tx *gorm.DB) error {
		switch req.DeleteScope {
		case ScopeThisOnly:
			if job.IsRecurringParent() {
				var live int64
				if err := tx.Model(&models.Job{}).
					Where("recurrence_parent_id = ?", job.ID).Count(&live).Error; err != nil {
					return fmt.Errorf("failed to count instances: %w", err)
				}
				if live > 0 {
					return &StateError{fmt.Sprintf(
						"cannot delete only the parent of a series with %d remaining instances; use delete_scope=all or cancel future recurrences first", live)}
				}
			}
			n, err := s.deleteJobs(tx, []string{job.ID})
			if err != nil {
				return err
			}
			deleted = n
			return nil

		case ScopeThisAndFuture:
			if !job.IsRecurringInstance() {
				// "this and future" from the parent covers the whole series.
				n, err := s.deleteSeries(tx, seriesParentID(job))
				if err != nil {
					return err
				}
				deleted = n
				return nil
			}
			parentID := *job.RecurrenceParentID
			ids, err := s.instanceIDsFrom(tx, parentID, job.StartDT)
			if err != nil {
				return err
			}
			n, err := s.deleteJobs(tx, ids)
			if err != nil {
				return err
			}
			deleted = n
			return s.truncateParent(tx, parentID, job.StartDT)

		default: // ScopeAll
			n, err := s.deleteSeries(tx, seriesParentID(job))
			if err != nil {
				return err
			}
			deleted = n
			return nil
		}
	})
	if err != nil {
		return nil, err
	}

	return &DeleteJobResult{DeletedCount: deleted, Scope: req.DeleteScope}, nil
}

// CancelFutureRecurrences soft-deletes persisted instances starting on
// or after fromDate and truncates the parent's generation boundary.
func (s *Service) CancelFutureRecurrences(req CancelFutureRequest) (*CancelFutureResult, error) {
	parent, err := s.loadJob(req.ParentID)
	if err != nil {
		return nil, err
	}
	if !parent.IsRecurringParent() {
		return nil, &StateError{fmt.Sprintf(
			"job %s is not a recurrence parent; only a parent's series can be canceled", parent.ID)}
	}

	fromInstant, _, err := dates.ParseInput(req.FromDate, s.loc)
	if err != nil {
		return nil, &ValidationError{"from_date", err.Error()}
	}
	boundary := fromInstant.UTC()

	canceled := 0
	parentUpdated := false
	err = s.db.Transaction(func(tx *gorm.DB) error {
		ids, err := s.instanceIDsFrom(tx, parent.ID, boundary)
		if err != nil {
			return err
		}
		n, err := s.deleteJobs(tx, ids)
		if err != nil {
			return err
		}
		canceled = n

		if parent.EndRecurrenceDate == nil || boundary.Before(*parent.EndRecurrenceDate) {
			if err := s.truncateParent(tx, parent.ID, boundary); err != nil {
				return err
			}
			parentUpdated = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	end := boundary
	if !parentUpdated && parent.EndRecurrenceDate != nil {
		end = *parent.EndRecurrenceDate
	}
	return &CancelFutureResult{CanceledCount: canceled, EndRecurrenceDate: end, ParentUpdated: parentUpdated}, nil
}

// PreviewOccurrences returns the next N virtual occurrences of a
// forever series. Bounded series have nothing virtual to preview:
// their instances were persisted at creation time.
func (s *Service) PreviewOccurrences(req PreviewRequest) ([]PreviewOccurrence, error) {
	if req.Count <= 0 {
		return nil, &ValidationError{"count", "must be positive"}
	}
	if req.Count > s.cfg.PreviewMaxCount {
		return nil, &ValidationError{"count", fmt.Sprintf("maximum is %d", s.cfg.PreviewMaxCount)}
	}

	parent, err := s.loadJob(req.ParentID)
	if err != nil {
		return nil, err
	}
	if !parent.IsRecurringParent() {
		return nil, &StateError{fmt.Sprintf("job %s is not a recurrence parent", parent.ID)}
	}
	if !parent.RecurrenceRule.IsForever() {
		return nil, &StateError{
			"preview is only available for open-ended series; bounded series were generated at creation time"}
	}

	after := time.Now().In(s.loc)
	if req.From != "" {
		fromInstant, _, err := dates.ParseInput(req.From, s.loc)
		if err != nil {
			return nil, &ValidationError{"from", err.Error()}
		}
		after = fromInstant.In(s.loc)
	}

	occs, err := recurrence.Preview(
		parent.StartDT.In(s.loc), parent.EndDT.In(s.loc), parent.RecurrenceRule, after, req.Count)
	if err != nil {
		return nil, fmt.Errorf("failed to preview occurrences: %w", err)
	}

	out := make([]PreviewOccurrence, 0, len(occs))
	for _, occ := range occs {
		if parent.EndRecurrenceDate != nil && !occ.Start.UTC().Before(*parent.EndRecurrenceDate) {
			break
		}
		out = append(out, PreviewOccurrence{
			Start:        occ.Start.UTC(),
			End:          occ.End.UTC(),
			StartDisplay: s.displayTime(occ.Start, parent.AllDay),
			EndDisplay:   s.displayTime(occ.End, parent.AllDay),
		})
	}
	return out, nil
}

/* ---------- helpers ---------- */

func (s *Service) loadJob(id string) (*models.Job, error) {
	if id == "" {
		return nil, &ValidationError{"job_id", "required"}
	}
	var job models.Job
	if err := s.db.First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &ValidationError{"job_id", fmt.Sprintf("job %s not found", id)}
		}
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	return &job, nil
}

func (s *Service) findInstance(parentID string, orig time.Time) (*models.Job, error) {
	var existing models.Job
	err := s.db.Where("recurrence_parent_id = ? AND recurrence_original_start = ?", parentID, orig).
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return nil, fmt.Errorf("failed to look up instance: %w", err)
}

// instanceFromOccurrence builds a persisted instance row from a parent
// and an occurrence span. The parent's descriptive fields and reminder
// configuration carry over; the completion flag resets so each instance
// gets its own call.
func (s *Service) instanceFromOccurrence(parent *models.Job, startUTC, endUTC time.Time) *models.Job {
	orig := startUTC
	return &models.Job{
		CalendarID:              parent.CalendarID,
		Status:                  models.StatusPending,
		BusinessName:            parent.BusinessName,
		ContactName:             parent.ContactName,
		Phone:                   parent.Phone,
		Address:                 parent.Address,
		StartDT:                 startUTC,
		EndDT:                   endUTC,
		AllDay:                  parent.AllDay,
		TrailerDetails:          parent.TrailerDetails,
		RepairNotes:             parent.RepairNotes,
		TrailerColor:            parent.TrailerColor,
		Quote:                   parent.Quote,
		RecurrenceParentID:      &parent.ID,
		RecurrenceOriginalStart: &orig,
		HasCallReminder:         parent.HasCallReminder,
		CallReminderWeeksPrior:  parent.CallReminderWeeksPrior,
		CallReminderCompleted:   false,
	}
}

// reminderForJob builds the persisted call reminder paired with a job.
// Assumes the job's reminder configuration was already validated.
func (s *Service) reminderForJob(job *models.Job) *models.CallReminder {
	sunday, err := dates.ReminderSunday(job.StartDT.In(s.loc), *job.CallReminderWeeksPrior)
	if err != nil {
		// Unreachable after validation; fall back to the job's week.
		log.Printf("WARNING: Invalid weeks_prior on job %s: %v", job.ID, err)
		sunday, _ = dates.ReminderSunday(job.StartDT.In(s.loc), dates.WeeksPriorOne)
	}
	return &models.CallReminder{
		CalendarID:   job.CalendarID,
		ReminderDate: time.Date(sunday.Year(), sunday.Month(), sunday.Day(), 0, 0, 0, 0, time.UTC),
		Notes:        fmt.Sprintf("Call ahead for job on %s", job.StartDT.In(s.loc).Format(dates.DisplayDateLayout)),
		JobID:        &job.ID,
	}
}

// descriptiveUpdates collects the fields that may fan out to siblings.
func (s *Service) descriptiveUpdates(req *UpdateJobRequest) (map[string]any, error) {
	updates := map[string]any{}
	if req.BusinessName != nil {
		updates["business_name"] = *req.BusinessName
	}
	if req.ContactName != nil {
		updates["contact_name"] = *req.ContactName
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Address != nil {
		updates["address"] = *req.Address
	}
	if req.TrailerDetails != nil {
		updates["trailer_details"] = *req.TrailerDetails
	}
	if req.RepairNotes != nil {
		updates["repair_notes"] = *req.RepairNotes
	}
	if req.TrailerColor != nil {
		updates["trailer_color"] = *req.TrailerColor
	}
	if req.Quote != nil {
		updates["quote"] = *req.Quote
	}
	if req.Status != nil {
		if !models.ValidStatus(*req.Status) {
			return nil, &ValidationError{"status", fmt.Sprintf("unknown status %q", *req.Status)}
		}
		updates["status"] = *req.Status
	}
	if req.HasCallReminder != nil {
		updates["has_call_reminder"] = *req.HasCallReminder
	}
	if req.CallReminderWeeksPrior != nil {
		if !dates.ValidWeeksPrior(*req.CallReminderWeeksPrior) {
			return nil, &ValidationError{"call_reminder_weeks_prior",
				fmt.Sprintf("must be %d or %d", dates.WeeksPriorOne, dates.WeeksPriorTwo)}
		}
		updates["call_reminder_weeks_prior"] = *req.CallReminderWeeksPrior
	}
	return updates, nil
}

// renormalizeSpan recomputes the stored span when an update touches the
// datetimes, filling unchanged sides from the stored values. A stored
// all-day end is exclusive, so it is walked back a day before being fed
// through the normalizer (which re-applies the +1).
func (s *Service) renormalizeSpan(job *models.Job, start, end *string, allDay *bool) (dates.NormalizedSpan, error) {
	newAllDay := job.AllDay
	if allDay != nil {
		newAllDay = *allDay
	}

	var startVal any = job.StartDT
	if start != nil {
		startVal = *start
	}
	var endVal any = job.EndDT
	if job.AllDay && end == nil {
		endVal = job.EndDT.In(s.loc).AddDate(0, 0, -1)
	}
	if end != nil {
		endVal = *end
	}

	span, err := dates.Normalize(startVal, endVal, newAllDay, s.loc)
	if err != nil {
		return dates.NormalizedSpan{}, &ValidationError{"datetime", err.Error()}
	}
	if err := s.validateSpan(span); err != nil {
		return dates.NormalizedSpan{}, err
	}
	return span, nil
}

// siblingQuery builds the sibling-set query for a scoped update, or nil
// when the job is not part of a series.
func (s *Service) siblingQuery(tx *gorm.DB, job *models.Job, scope Scope) *gorm.DB {
	switch {
	case job.IsRecurringParent():
		return tx.Model(&models.Job{}).Where("recurrence_parent_id = ?", job.ID)
	case job.IsRecurringInstance():
		parentID := *job.RecurrenceParentID
		if scope == ScopeThisAndFuture {
			return tx.Model(&models.Job{}).
				Where("recurrence_parent_id = ? AND id <> ? AND start_dt >= ?", parentID, job.ID, job.StartDT)
		}
		// all: parent plus every other instance
		return tx.Model(&models.Job{}).
			Where("id = ? OR (recurrence_parent_id = ? AND id <> ?)", parentID, parentID, job.ID)
	default:
		return nil
	}
}

// seriesParentID resolves the parent of the series a job belongs to,
// which is the job itself unless it is an instance.
func seriesParentID(job *models.Job) string {
	if job.RecurrenceParentID != nil {
		return *job.RecurrenceParentID
	}
	return job.ID
}

// instanceIDsFrom lists live instance IDs of a parent starting at or
// after the boundary.
func (s *Service) instanceIDsFrom(tx *gorm.DB, parentID string, boundary time.Time) ([]string, error) {
	var ids []string
	err := tx.Model(&models.Job{}).
		Where("recurrence_parent_id = ? AND start_dt >= ?", parentID, boundary).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list instances: %w", err)
	}
	return ids, nil
}

// deleteJobs soft-deletes the given jobs and their linked reminders.
func (s *Service) deleteJobs(tx *gorm.DB, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := tx.Delete(&models.Job{}, "id IN ?", ids)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete jobs: %w", res.Error)
	}
	if err := tx.Delete(&models.CallReminder{}, "job_id IN ?", ids).Error; err != nil {
		return 0, fmt.Errorf("failed to delete linked reminders: %w", err)
	}
	return int(res.RowsAffected), nil
}

// deleteSeries soft-deletes a parent and all of its instances.
func (s *Service) deleteSeries(tx *gorm.DB, parentID string) (int, error) {
	ids := []string{parentID}
	var instanceIDs []string
	if err := tx.Model(&models.Job{}).
		Where("recurrence_parent_id = ?", parentID).
		Pluck("id", &instanceIDs).Error; err != nil {
		return 0, fmt.Errorf("failed to list instances: %w", err)
	}
	ids = append(ids, instanceIDs...)
	return s.deleteJobs(tx, ids)
}

// truncateParent records the series' generation boundary.
func (s *Service) truncateParent(tx *gorm.DB, parentID string, boundary time.Time) error {
	if err := tx.Model(&models.Job{}).Where("id = ?", parentID).
		Update("end_recurrence_date", boundary).Error; err != nil {
		return fmt.Errorf("failed to truncate parent recurrence: %w", err)
	}
	return nil
}

func (s *Service) displayTime(t time.Time, allDay bool) string {
	if allDay {
		return t.In(s.loc).Format(dates.DisplayDateLayout)
	}
	return t.In(s.loc).Format(dates.DisplayDateTimeLayout)
}
