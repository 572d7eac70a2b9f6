package dates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chicago(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)
	return loc
}

func TestNormalizeAllDay(t *testing.T) {
	loc := chicago(t)

	t.Run("Should round-trip a single all-day date with exclusive end", func(t *testing.T) {
		span, err := Normalize("2025-10-16", "2025-10-16", true, loc)
		require.NoError(t, err)

		assert.True(t, span.AllDay)
		assert.Equal(t, "2025-10-16", span.StartUTC.In(loc).Format(DisplayDateLayout))
		assert.Equal(t, "2025-10-17", span.EndUTC.In(loc).Format(DisplayDateLayout))
		assert.Equal(t, "2025-10-16", span.StartDisplay)
		assert.Equal(t, "2025-10-17", span.EndDisplay)
	})

	t.Run("Should anchor all-day dates at local noon", func(t *testing.T) {
		span, err := Normalize("2025-10-16", "", true, loc)
		require.NoError(t, err)

		assert.Equal(t, 12, span.StartUTC.In(loc).Hour())
		assert.Equal(t, 12, span.EndUTC.In(loc).Hour())
	})

	t.Run("Should default a missing end to the start date", func(t *testing.T) {
		span, err := Normalize("2025-10-16", "", true, loc)
		require.NoError(t, err)

		assert.Equal(t, "2025-10-16", span.StartDisplay)
		assert.Equal(t, "2025-10-17", span.EndDisplay)
	})

	t.Run("Should discard the time component of datetime input", func(t *testing.T) {
		span, err := Normalize("2025-10-16T09:30:00", "2025-10-18T18:00:00", true, loc)
		require.NoError(t, err)

		assert.Equal(t, "2025-10-16", span.StartDisplay)
		assert.Equal(t, "2025-10-19", span.EndDisplay)
	})

	t.Run("Should stay on the correct day across the fall DST transition", func(t *testing.T) {
		// 2025-11-02 is the CDT->CST switch; noon anchoring keeps the date.
		span, err := Normalize("2025-11-02", "", true, loc)
		require.NoError(t, err)

		assert.Equal(t, "2025-11-02", span.StartUTC.In(loc).Format(DisplayDateLayout))
		assert.Equal(t, "2025-11-03", span.EndUTC.In(loc).Format(DisplayDateLayout))
	})
}

func TestNormalizeTimed(t *testing.T) {
	loc := chicago(t)

	t.Run("Should interpret naive datetimes in the local timezone", func(t *testing.T) {
		span, err := Normalize("2025-10-16T10:00:00", "2025-10-16T14:00:00", false, loc)
		require.NoError(t, err)

		assert.False(t, span.AllDay)
		assert.Equal(t, "2025-10-16T10:00:00", span.StartDisplay)
		assert.Equal(t, "2025-10-16T14:00:00", span.EndDisplay)
		// CDT is UTC-5 in October.
		assert.Equal(t, 15, span.StartUTC.Hour())
		assert.Equal(t, time.UTC, span.StartUTC.Location())
	})

	t.Run("Should respect an explicit offset", func(t *testing.T) {
		span, err := Normalize("2025-10-16T10:00:00Z", "2025-10-16T12:00:00Z", false, loc)
		require.NoError(t, err)

		assert.Equal(t, 10, span.StartUTC.Hour())
		// Displayed in local time, without an offset suffix.
		assert.Equal(t, "2025-10-16T05:00:00", span.StartDisplay)
	})

	t.Run("Should default a missing end to the start instant", func(t *testing.T) {
		span, err := Normalize("2025-10-16T10:00:00", "", false, loc)
		require.NoError(t, err)

		assert.True(t, span.EndUTC.Equal(span.StartUTC))
	})

	t.Run("Should accept minute precision input", func(t *testing.T) {
		span, err := Normalize("2025-10-16T10:30", "2025-10-16T11:45", false, loc)
		require.NoError(t, err)

		assert.Equal(t, "2025-10-16T10:30:00", span.StartDisplay)
		assert.Equal(t, "2025-10-16T11:45:00", span.EndDisplay)
	})
}

func TestNormalizeErrors(t *testing.T) {
	loc := chicago(t)

	t.Run("Should reject malformed values with the offending input", func(t *testing.T) {
		tests := []struct {
			name  string
			start any
			end   any
		}{
			{"Garbage start", "not-a-date", ""},
			{"US-style date", "10/16/2025", ""},
			{"Garbage end", "2025-10-16", "soon"},
			{"Empty start", "", ""},
			{"Unsupported type", 42, ""},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := Normalize(tt.start, tt.end, false, loc)
				assert.Error(t, err)
			})
		}
	})

	t.Run("Should name the offending value in the error", func(t *testing.T) {
		_, err := Normalize("16 October", "", false, loc)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "16 October")
	})
}

func TestParseInput(t *testing.T) {
	loc := chicago(t)

	t.Run("Should flag date-only input", func(t *testing.T) {
		_, dateOnly, err := ParseInput("2025-10-16", loc)
		require.NoError(t, err)
		assert.True(t, dateOnly)
	})

	t.Run("Should pass through time values", func(t *testing.T) {
		now := time.Now()
		parsed, dateOnly, err := ParseInput(now, loc)
		require.NoError(t, err)
		assert.False(t, dateOnly)
		assert.True(t, parsed.Equal(now))
	})
}
