package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trailsched/internal/models"
)

func testLoc(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)
	return loc
}

func intPtr(n int) *int { return &n }

func TestGenerateAllMonthly(t *testing.T) {
	loc := testLoc(t)

	t.Run("Should preserve nth-weekday-of-month semantics", func(t *testing.T) {
		// 2026-01-16 is the 3rd Friday of January 2026.
		start := time.Date(2026, time.January, 16, 10, 0, 0, 0, loc)
		end := start.Add(2 * time.Hour)
		rule := &models.RecurrenceRule{Type: models.RuleMonthly, Interval: 1, Count: intPtr(1)}

		occs, err := GenerateAll(start, end, rule, 0)
		require.NoError(t, err)
		require.Len(t, occs, 1)

		// 3rd Friday of February 2026, not "the 16th".
		assert.Equal(t, time.Date(2026, time.February, 20, 10, 0, 0, 0, loc).Format(time.RFC3339),
			occs[0].Start.Format(time.RFC3339))
		assert.Equal(t, 2*time.Hour, occs[0].End.Sub(occs[0].Start))
	})

	t.Run("Should keep the ordinal for an evening start past the UTC date line", func(t *testing.T) {
		// 20:00 in Chicago is already the next day in UTC; the ordinal
		// must come from the local date, not the UTC one.
		start := time.Date(2026, time.January, 16, 20, 0, 0, 0, loc)
		rule := &models.RecurrenceRule{Type: models.RuleMonthly, Interval: 1, Count: intPtr(1)}

		occs, err := GenerateAll(start, start.Add(time.Hour), rule, 0)
		require.NoError(t, err)
		require.Len(t, occs, 1)

		local := occs[0].Start.In(loc)
		assert.Equal(t, time.February, local.Month())
		assert.Equal(t, 20, local.Day())
		assert.Equal(t, 20, local.Hour())
	})

	t.Run("Should follow the ordinal across several months", func(t *testing.T) {
		// 2026-03-09 is the 2nd Monday of March 2026.
		start := time.Date(2026, time.March, 9, 9, 0, 0, 0, loc)
		rule := &models.RecurrenceRule{Type: models.RuleMonthly, Interval: 1, Count: intPtr(3)}

		occs, err := GenerateAll(start, start.Add(time.Hour), rule, 0)
		require.NoError(t, err)
		require.Len(t, occs, 3)

		// 2nd Mondays of April, May, June 2026.
		assert.Equal(t, time.Date(2026, time.April, 13, 9, 0, 0, 0, loc).Day(), occs[0].Start.Day())
		assert.Equal(t, time.Date(2026, time.May, 11, 9, 0, 0, 0, loc).Day(), occs[1].Start.Day())
		assert.Equal(t, time.Date(2026, time.June, 8, 9, 0, 0, 0, loc).Day(), occs[2].Start.Day())
		for _, occ := range occs {
			assert.Equal(t, time.Monday, occ.Start.Weekday())
			assert.Equal(t, 9, occ.Start.Hour())
		}
	})
}

func TestGenerateAllDailyWeekly(t *testing.T) {
	loc := testLoc(t)

	t.Run("Should step daily by the interval", func(t *testing.T) {
		start := time.Date(2026, time.March, 2, 8, 0, 0, 0, loc)
		rule := &models.RecurrenceRule{Type: models.RuleDaily, Interval: 2, Count: intPtr(3)}

		occs, err := GenerateAll(start, start.Add(30*time.Minute), rule, 0)
		require.NoError(t, err)
		require.Len(t, occs, 3)

		assert.Equal(t, 4, occs[0].Start.Day())
		assert.Equal(t, 6, occs[1].Start.Day())
		assert.Equal(t, 8, occs[2].Start.Day())
	})

	t.Run("Should hold the wall-clock time across spring-forward", func(t *testing.T) {
		// 2026-03-08 is the spring-forward transition in Chicago.
		start := time.Date(2026, time.March, 7, 10, 0, 0, 0, loc)
		rule := &models.RecurrenceRule{Type: models.RuleDaily, Interval: 1, Count: intPtr(2)}

		occs, err := GenerateAll(start, start.Add(time.Hour), rule, 0)
		require.NoError(t, err)
		require.Len(t, occs, 2)

		for i, occ := range occs {
			local := occ.Start.In(loc)
			assert.Equal(t, 8+i, local.Day())
			assert.Equal(t, 10, local.Hour())
		}
	})

	t.Run("Should stop at an inclusive until date", func(t *testing.T) {
		// 2026-03-02 is a Monday.
		start := time.Date(2026, time.March, 2, 10, 0, 0, 0, loc)
		until := time.Date(2026, time.March, 23, 0, 0, 0, 0, loc)
		rule := &models.RecurrenceRule{Type: models.RuleWeekly, Interval: 1, UntilDate: &until}

		occs, err := GenerateAll(start, start.Add(time.Hour), rule, 0)
		require.NoError(t, err)
		require.Len(t, occs, 3)

		assert.Equal(t, 9, occs[0].Start.Day())
		assert.Equal(t, 16, occs[1].Start.Day())
		assert.Equal(t, 23, occs[2].Start.Day())
	})

	t.Run("Should never re-emit the parent's own start", func(t *testing.T) {
		start := time.Date(2026, time.March, 2, 10, 0, 0, 0, loc)
		rule := &models.RecurrenceRule{Type: models.RuleDaily, Interval: 1, Count: intPtr(2)}

		occs, err := GenerateAll(start, start.Add(time.Hour), rule, 0)
		require.NoError(t, err)
		for _, occ := range occs {
			assert.False(t, occ.Start.Equal(start))
		}
	})

	t.Run("Should reject forever rules", func(t *testing.T) {
		start := time.Date(2026, time.March, 2, 10, 0, 0, 0, loc)
		rule := &models.RecurrenceRule{Type: models.RuleDaily, Interval: 1, Forever: true}

		_, err := GenerateAll(start, start.Add(time.Hour), rule, 0)
		assert.Error(t, err)
	})
}

func TestGenerateAllYearly(t *testing.T) {
	loc := testLoc(t)

	t.Run("Should recur on the same month and day", func(t *testing.T) {
		start := time.Date(2026, time.July, 4, 9, 0, 0, 0, loc)
		rule := &models.RecurrenceRule{Type: models.RuleYearly, Interval: 1, Count: intPtr(2)}

		occs, err := GenerateAll(start, start.Add(time.Hour), rule, 0)
		require.NoError(t, err)
		require.Len(t, occs, 2)
		assert.Equal(t, 2027, occs[0].Start.Year())
		assert.Equal(t, 2028, occs[1].Start.Year())
		for _, occ := range occs {
			assert.Equal(t, time.July, occ.Start.Month())
			assert.Equal(t, 4, occ.Start.Day())
		}
	})

	t.Run("Should skip non-leap years for a Feb 29 start", func(t *testing.T) {
		start := time.Date(2024, time.February, 29, 9, 0, 0, 0, loc)
		rule := &models.RecurrenceRule{Type: models.RuleYearly, Interval: 1, Count: intPtr(2)}

		occs, err := GenerateAll(start, start.Add(time.Hour), rule, 0)
		require.NoError(t, err)
		require.Len(t, occs, 2)
		assert.Equal(t, 2028, occs[0].Start.Year())
		assert.Equal(t, 2032, occs[1].Start.Year())
	})
}

func TestGenerateWindow(t *testing.T) {
	loc := testLoc(t)

	t.Run("Should only produce occurrences inside the window", func(t *testing.T) {
		start := time.Date(2026, time.March, 1, 10, 0, 0, 0, loc)
		rule := &models.RecurrenceRule{Type: models.RuleDaily, Interval: 1, Forever: true}

		occs, err := Generate(start, start.Add(time.Hour), rule, Options{
			WindowStart: time.Date(2026, time.April, 1, 0, 0, 0, 0, loc),
			WindowEnd:   time.Date(2026, time.April, 7, 23, 59, 59, 0, loc),
		})
		require.NoError(t, err)
		require.Len(t, occs, 7)
		assert.Equal(t, 1, occs[0].Start.Day())
		assert.Equal(t, 7, occs[6].Start.Day())
	})

	t.Run("Should honor the safety cap", func(t *testing.T) {
		start := time.Date(2026, time.March, 1, 10, 0, 0, 0, loc)
		rule := &models.RecurrenceRule{Type: models.RuleDaily, Interval: 1, Forever: true}

		occs, err := Generate(start, start.Add(time.Hour), rule, Options{
			WindowStart: time.Date(2026, time.April, 1, 0, 0, 0, 0, loc),
			WindowEnd:   time.Date(2026, time.April, 30, 23, 59, 59, 0, loc),
			SafetyCap:   3,
		})
		require.NoError(t, err)
		assert.Len(t, occs, 3)
	})

	t.Run("Should stop at the series truncation date", func(t *testing.T) {
		start := time.Date(2026, time.March, 1, 10, 0, 0, 0, loc)
		rule := &models.RecurrenceRule{Type: models.RuleDaily, Interval: 1, Forever: true}
		cutoff := time.Date(2026, time.April, 4, 0, 0, 0, 0, loc)

		occs, err := Generate(start, start.Add(time.Hour), rule, Options{
			WindowStart:       time.Date(2026, time.April, 1, 0, 0, 0, 0, loc),
			WindowEnd:         time.Date(2026, time.April, 30, 23, 59, 59, 0, loc),
			EndRecurrenceDate: &cutoff,
		})
		require.NoError(t, err)
		require.Len(t, occs, 3)
		assert.Equal(t, 3, occs[2].Start.Day())
	})

	t.Run("Should reject an inverted window", func(t *testing.T) {
		start := time.Date(2026, time.March, 1, 10, 0, 0, 0, loc)
		rule := &models.RecurrenceRule{Type: models.RuleDaily, Interval: 1, Forever: true}

		_, err := Generate(start, start.Add(time.Hour), rule, Options{
			WindowStart: time.Date(2026, time.April, 7, 0, 0, 0, 0, loc),
			WindowEnd:   time.Date(2026, time.April, 1, 0, 0, 0, 0, loc),
		})
		assert.Error(t, err)
	})
}

func TestCovers(t *testing.T) {
	loc := testLoc(t)
	// 2026-03-02 is a Monday.
	start := time.Date(2026, time.March, 2, 10, 0, 0, 0, loc)
	rule := &models.RecurrenceRule{Type: models.RuleWeekly, Interval: 1, Forever: true}

	t.Run("Should accept a start on the rule", func(t *testing.T) {
		ok, err := Covers(start, rule, time.Date(2026, time.March, 9, 10, 0, 0, 0, loc))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Should compare instants, not wall clocks", func(t *testing.T) {
		ok, err := Covers(start, rule, time.Date(2026, time.March, 9, 10, 0, 0, 0, loc).UTC())
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Should reject a start off the rule", func(t *testing.T) {
		for _, candidate := range []time.Time{
			time.Date(2026, time.March, 10, 10, 0, 0, 0, loc), // wrong day
			time.Date(2026, time.March, 9, 11, 0, 0, 0, loc),  // wrong time
		} {
			ok, err := Covers(start, rule, candidate)
			require.NoError(t, err)
			assert.False(t, ok)
		}
	})

	t.Run("Should not treat the parent's own start as an occurrence", func(t *testing.T) {
		ok, err := Covers(start, rule, start)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestPreview(t *testing.T) {
	loc := testLoc(t)

	t.Run("Should return the next N occurrences after the reference", func(t *testing.T) {
		// 2026-03-02 is a Monday.
		start := time.Date(2026, time.March, 2, 10, 0, 0, 0, loc)
		rule := &models.RecurrenceRule{Type: models.RuleWeekly, Interval: 1, Forever: true}

		occs, err := Preview(start, start.Add(time.Hour), rule, start, 4)
		require.NoError(t, err)
		require.Len(t, occs, 4)
		assert.Equal(t, 9, occs[0].Start.Day())
		assert.Equal(t, 30, occs[3].Start.Day())
		for _, occ := range occs {
			assert.Equal(t, time.Monday, occ.Start.Weekday())
		}
	})

	t.Run("Should reject non-positive counts", func(t *testing.T) {
		start := time.Date(2026, time.March, 2, 10, 0, 0, 0, loc)
		rule := &models.RecurrenceRule{Type: models.RuleWeekly, Interval: 1, Forever: true}

		_, err := Preview(start, start.Add(time.Hour), rule, start, 0)
		assert.Error(t, err)
	})
}
