package dates

import (
	"fmt"
	"time"
)

// Weeks-prior settings stored on jobs: 2 renders as "1 week prior" in
// the UI, 3 as "2 weeks prior".
const (
	WeeksPriorOne = 2
	WeeksPriorTwo = 3
)

// ValidWeeksPrior reports whether n is an accepted weeks-prior setting.
func ValidWeeksPrior(n int) bool {
	return n == WeeksPriorOne || n == WeeksPriorTwo
}

// ReminderSunday computes the Sunday a call reminder for a job should
// land on: the most recent Sunday on or before the job's local start
// date, moved back (weeksPrior-1) weeks. The result is midnight on that
// Sunday in jobStartLocal's location.
func ReminderSunday(jobStartLocal time.Time, weeksPrior int) (time.Time, error) {
	if !ValidWeeksPrior(weeksPrior) {
		return time.Time{}, fmt.Errorf("call_reminder_weeks_prior must be %d or %d, got %d",
			WeeksPriorOne, WeeksPriorTwo, weeksPrior)
	}

	day := DayOf(jobStartLocal)
	// time.Weekday numbers Sunday as 0, so the weekday value is exactly
	// the distance back to the week's Sunday.
	sunday := day.AddDate(0, 0, -int(day.Weekday()))
	return sunday.AddDate(0, 0, -7*(weeksPrior-1)), nil
}

// IsSunday reports whether t's calendar day is a Sunday.
func IsSunday(t time.Time) bool {
	return t.Weekday() == time.Sunday
}
