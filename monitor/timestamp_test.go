package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTimestamp_KnownForms(t *testing.T) {
	now := time.Date(2025, 11, 4, 9, 0, 0, 0, IST)

	got, err := ResolveTimestamp("Just Now", now, IST)
	require.NoError(t, err)
	assert.True(t, got.Equal(now))

	got, err = ResolveTimestamp("15 mins ago", now, IST)
	require.NoError(t, err)
	assert.True(t, got.Equal(now.Add(-15*time.Minute)))

	got, err = ResolveTimestamp("04 Nov 08:26 AM", now, IST)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2025, 11, 4, 8, 26, 0, 0, IST)), "got %s", got)
}

func TestResolveTimestamp_Variants(t *testing.T) {
	now := time.Date(2025, 11, 4, 9, 0, 0, 0, IST)
	cases := []struct {
		raw  string
		want time.Time
	}{
		{"just   now", now},
		{"JUST NOW", now},
		{"1 min ago", now.Add(-time.Minute)},
		{"2 minutes ago", now.Add(-2 * time.Minute)},
		{"1 hour ago", now.Add(-time.Hour)},
		{"3 hours ago", now.Add(-3 * time.Hour)},
		{"2 hrs ago", now.Add(-2 * time.Hour)},
		{"4 Nov 8:26 pm", time.Date(2025, 11, 4, 20, 26, 0, 0, IST)},
		{"03 Nov 12:05 AM", time.Date(2025, 11, 3, 0, 5, 0, 0, IST)},
	}
	for _, tc := range cases {
		got, err := ResolveTimestamp(tc.raw, now, IST)
		require.NoError(t, err, tc.raw)
		assert.True(t, got.Equal(tc.want), "%q: got %s want %s", tc.raw, got, tc.want)
	}
}

func TestResolveTimestamp_UsesZoneOfLocation(t *testing.T) {
	now := time.Date(2025, 11, 4, 3, 30, 0, 0, time.UTC) // 09:00 IST
	got, err := ResolveTimestamp("04 Nov 08:26 AM", now, IST)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2025, 11, 4, 2, 56, 0, 0, time.UTC)))
}

func TestResolveTimestamp_YearRollover(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 10, 0, 0, IST)
	got, err := ResolveTimestamp("31 Dec 11:50 PM", now, IST)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2025, 12, 31, 23, 50, 0, 0, IST)), "got %s", got)

	// Slightly ahead of now stays in the current year.
	now = time.Date(2025, 11, 4, 8, 0, 0, 0, IST)
	got, err = ResolveTimestamp("04 Nov 08:26 AM", now, IST)
	require.NoError(t, err)
	assert.Equal(t, 2025, got.Year())
}

func TestResolveTimestamp_AlwaysCurrentYearOutsideJanuary(t *testing.T) {
	want := time.Date(2025, 11, 4, 8, 26, 0, 0, IST)
	for _, now := range []time.Time{
		time.Date(2025, 6, 1, 9, 0, 0, 0, IST),
		time.Date(2025, 2, 1, 0, 0, 0, 0, IST),
		time.Date(2025, 12, 31, 23, 0, 0, 0, IST),
	} {
		got, err := ResolveTimestamp("04 Nov 08:26 AM", now, IST)
		require.NoError(t, err)
		assert.True(t, got.Equal(want), "now %s: got %s", now, got)
	}

	// Only a December item seen in January moves back a year.
	now := time.Date(2026, 1, 20, 9, 0, 0, 0, IST)
	got, err := ResolveTimestamp("04 Nov 08:26 AM", now, IST)
	require.NoError(t, err)
	assert.Equal(t, 2026, got.Year())
}

func TestResolveTimestamp_Unrecognized(t *testing.T) {
	now := time.Date(2025, 11, 4, 9, 0, 0, 0, IST)
	for _, raw := range []string{"", "yesterday", "04 Nov", "15 days ago", "04 Xyz 08:26 AM", "04 Nov 08:26AM"} {
		_, err := ResolveTimestamp(raw, now, IST)
		assert.ErrorIs(t, err, ErrUnrecognizedTimestamp, raw)
	}
}

func TestIsDisplayTimestamp(t *testing.T) {
	assert.True(t, IsDisplayTimestamp("Just Now"))
	assert.True(t, IsDisplayTimestamp("15 mins ago"))
	assert.True(t, IsDisplayTimestamp(" 04 Nov 08:26 AM "))
	assert.False(t, IsDisplayTimestamp("Result"))
	assert.False(t, IsDisplayTimestamp("ROUTE MOBILE - : Q2 NET LOSS"))
}
