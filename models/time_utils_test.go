package models

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestGameDay(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		zone     InputZone
		expected string
	}{
		{name: "AU day maps to previous ET day", input: "2025-01-07", zone: ZoneAU, expected: "2025-01-06"},
		{name: "AU first of month crosses month", input: "2025-03-01", zone: ZoneAU, expected: "2025-02-28"},
		{name: "AU new year crosses year", input: "2025-01-01", zone: ZoneAU, expected: "2024-12-31"},
		{name: "ET day is unchanged", input: "2025-01-07", zone: ZoneET, expected: "2025-01-07"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GameDay(day(tt.input), tt.zone)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got.Format(DateLayout))

			back, err := DisplayDay(got, tt.zone)
			require.NoError(t, err)
			assert.Equal(t, tt.input, back.Format(DateLayout))
		})
	}
}

func TestGameDayUnknownZone(t *testing.T) {
	_, err := GameDay(day("2025-01-07"), InputZone("PT"))
	assert.Error(t, err)
}

func TestParseZone(t *testing.T) {
	tests := []struct {
		in      string
		want    InputZone
		wantErr bool
	}{
		{in: "au", want: ZoneAU},
		{in: "AEDT", want: ZoneAU},
		{in: " et ", want: ZoneET},
		{in: "US", want: ZoneET},
		{in: "UTC", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseZone(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToday(t *testing.T) {
	// Monday lunchtime in Sydney is Sunday evening in New York.
	now := time.Date(2025, 1, 6, 1, 0, 0, 0, time.UTC)

	au, err := Today(now, ZoneAU)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-06", au.Format(DateLayout))

	et, err := Today(now, ZoneET)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-05", et.Format(DateLayout))

	// the AU calendar day and the current ET day agree on the game day
	gd, err := GameDay(au, ZoneAU)
	require.NoError(t, err)
	assert.Equal(t, et, gd)
}

func TestLastDays(t *testing.T) {
	w := LastDays(day("2025-01-10"), 7)
	assert.Equal(t, "2025-01-03", w.FromKey())
	assert.Equal(t, "2025-01-09", w.ToKey())
	assert.Len(t, w.Days(), 7)

	one := LastDays(day("2025-01-10"), 0)
	assert.Equal(t, one.FromKey(), one.ToKey())
	assert.Equal(t, "2025-01-09", one.ToKey())
}

func TestParseDay(t *testing.T) {
	d, err := ParseDay("2025-02-14")
	require.NoError(t, err)
	assert.Equal(t, time.Friday, d.Weekday())

	_, err = ParseDay("14/02/2025")
	assert.Error(t, err)
}
