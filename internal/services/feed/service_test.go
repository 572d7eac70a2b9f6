package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLoc(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)
	return loc
}

func TestSpanSegments(t *testing.T) {
	loc := testLoc(t)
	winStart := time.Date(2025, time.October, 1, 0, 0, 0, 0, loc)
	winEnd := time.Date(2025, time.October, 31, 0, 0, 0, 0, loc)

	t.Run("Should split a timed multi-day span into per-day segments", func(t *testing.T) {
		start := time.Date(2025, time.October, 16, 10, 0, 0, 0, loc)
		end := time.Date(2025, time.October, 18, 14, 0, 0, 0, loc)

		segs := spanSegments(start, end, false, winStart, winEnd, 31)
		require.Len(t, segs, 3)

		for i, seg := range segs {
			assert.Equal(t, i, seg.DayNumber)
			assert.Equal(t, 2, seg.TotalDays)
			assert.True(t, seg.MultiDay)
		}

		// First day keeps the real start, last day keeps the real end,
		// the middle day fills midnight to midnight.
		assert.Equal(t, 10, segs[0].Start.Hour())
		assert.Equal(t, 17, segs[1].Start.Day())
		assert.Equal(t, 0, segs[1].Start.Hour())
		assert.Equal(t, 18, segs[1].End.Day())
		assert.Equal(t, 0, segs[1].End.Hour())
		assert.Equal(t, 14, segs[2].End.Hour())
	})

	t.Run("Should return one plain segment for a single-day job", func(t *testing.T) {
		start := time.Date(2025, time.October, 16, 10, 0, 0, 0, loc)
		end := time.Date(2025, time.October, 16, 12, 0, 0, 0, loc)

		segs := spanSegments(start, end, false, winStart, winEnd, 31)
		require.Len(t, segs, 1)
		assert.False(t, segs[0].MultiDay)
		assert.Equal(t, 0, segs[0].DayNumber)
		assert.Equal(t, 0, segs[0].TotalDays)
		assert.True(t, segs[0].Start.Equal(start))
		assert.True(t, segs[0].End.Equal(end))
	})

	t.Run("Should treat the stored all-day end as exclusive", func(t *testing.T) {
		// Inclusive Oct 16-17, stored with end Oct 18.
		start := time.Date(2025, time.October, 16, 12, 0, 0, 0, loc)
		end := time.Date(2025, time.October, 18, 12, 0, 0, 0, loc)

		segs := spanSegments(start, end, true, winStart, winEnd, 31)
		require.Len(t, segs, 2)
		assert.Equal(t, 16, segs[0].Start.Day())
		assert.Equal(t, 17, segs[1].Start.Day())
		assert.Equal(t, 1, segs[1].TotalDays)
	})

	t.Run("Should not give a midnight-ending job an extra day", func(t *testing.T) {
		start := time.Date(2025, time.October, 16, 20, 0, 0, 0, loc)
		end := time.Date(2025, time.October, 17, 0, 0, 0, 0, loc)

		segs := spanSegments(start, end, false, winStart, winEnd, 31)
		require.Len(t, segs, 1)
		assert.False(t, segs[0].MultiDay)
	})

	t.Run("Should clip segments to the window", func(t *testing.T) {
		start := time.Date(2025, time.September, 28, 10, 0, 0, 0, loc)
		end := time.Date(2025, time.October, 3, 14, 0, 0, 0, loc)

		segs := spanSegments(start, end, false, winStart, winEnd, 31)
		require.Len(t, segs, 3)
		// Day numbers stay anchored to the job, not the window.
		assert.Equal(t, 3, segs[0].DayNumber)
		assert.Equal(t, 5, segs[2].TotalDays)
		assert.Equal(t, 1, segs[0].Start.Day())
	})

	t.Run("Should cap expansion at the limit", func(t *testing.T) {
		start := time.Date(2025, time.October, 1, 10, 0, 0, 0, loc)
		end := time.Date(2025, time.October, 30, 14, 0, 0, 0, loc)

		segs := spanSegments(start, end, false, winStart, winEnd, 5)
		assert.Len(t, segs, 5)
	})

	t.Run("Should count days correctly across the DST fall-back", func(t *testing.T) {
		// Nov 2 2025 is the fall-back transition in Chicago.
		start := time.Date(2025, time.November, 1, 10, 0, 0, 0, loc)
		end := time.Date(2025, time.November, 3, 14, 0, 0, 0, loc)

		novEnd := time.Date(2025, time.November, 30, 0, 0, 0, 0, loc)
		segs := spanSegments(start, end, false, winStart, novEnd, 31)
		require.Len(t, segs, 3)
		assert.Equal(t, 2, segs[2].TotalDays)
	})
}

func TestJobTitle(t *testing.T) {
	cases := []struct {
		name                     string
		business, contact, phone string
		want                     string
	}{
		{"all parts", "Acme Hauling", "Dana", "555-0101", "Acme Hauling (Dana) - 555-0101"},
		{"business only", "Acme Hauling", "", "", "Acme Hauling"},
		{"contact only", "", "Dana", "", "Dana"},
		{"phone only", "", "", "555-0101", "No Name Provided - 555-0101"},
		{"nothing", "", "", "", "No Name Provided"},
		{"business and phone", "Acme Hauling", "", "555-0101", "Acme Hauling - 555-0101"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, jobTitle(tc.business, tc.contact, tc.phone))
		})
	}
}

func TestLighten(t *testing.T) {
	t.Run("Should blend each channel toward white", func(t *testing.T) {
		assert.Equal(t, "#73abe3", Lighten("#3788d8", 0.3))
	})

	t.Run("Should reach white at full factor", func(t *testing.T) {
		assert.Equal(t, "#ffffff", Lighten("#000000", 1.0))
	})

	t.Run("Should leave white unchanged", func(t *testing.T) {
		assert.Equal(t, "#ffffff", Lighten("#ffffff", 0.3))
	})

	t.Run("Should expand shorthand hex", func(t *testing.T) {
		assert.Equal(t, Lighten("#aabbcc", 0.3), Lighten("#abc", 0.3))
	})

	t.Run("Should pass unparseable colors through", func(t *testing.T) {
		assert.Equal(t, "teal", Lighten("teal", 0.3))
		assert.Equal(t, "#12345", Lighten("#12345", 0.3))
		assert.Equal(t, "", Lighten("", 0.3))
	})
}

func TestNotesPreview(t *testing.T) {
	t.Run("Should fall back to a generic label", func(t *testing.T) {
		assert.Equal(t, "Call reminder", notesPreview(""))
	})

	t.Run("Should pass short notes through", func(t *testing.T) {
		assert.Equal(t, "Call about brakes", notesPreview("Call about brakes"))
	})

	t.Run("Should truncate long notes", func(t *testing.T) {
		long := ""
		for i := 0; i < 60; i++ {
			long += "x"
		}
		got := notesPreview(long)
		assert.Len(t, []rune(got), notesPreviewRunes+3)
		assert.Equal(t, "...", got[len(got)-3:])
	})
}
