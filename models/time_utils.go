package models

import (
	"fmt"
	"strings"
	"time"
)

// InputZone names the calendar a user-supplied date is expressed in.
type InputZone string

const (
	// ZoneAU dates are Australian wall-clock days. US evening games fall on the next AU day.
	ZoneAU InputZone = "AU"
	// ZoneET dates are already the provider's game-day convention.
	ZoneET InputZone = "ET"
)

// ParseZone accepts "AU"/"AEDT"/"AEST" or "ET"/"US".
func ParseZone(s string) (InputZone, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "AU", "AEDT", "AEST", "SYDNEY":
		return ZoneAU, nil
	case "ET", "US", "EST", "EDT":
		return ZoneET, nil
	}
	return "", fmt.Errorf("unknown input zone %q", s)
}

// Location returns the IANA location a zone's wall clock follows.
func (z InputZone) Location() (*time.Location, error) {
	switch z {
	case ZoneAU:
		return time.LoadLocation("Australia/Sydney")
	case ZoneET:
		return time.LoadLocation("America/New_York")
	}
	return nil, fmt.Errorf("unknown input zone %q", z)
}

// GameDay converts a calendar day expressed in zone to the provider's ET game day.
// An AU day maps to the previous ET day; an ET day maps to itself.
// The result is always a UTC midnight.
func GameDay(day time.Time, zone InputZone) (time.Time, error) {
	d := Day(day)
	switch zone {
	case ZoneAU:
		return d.AddDate(0, 0, -1), nil
	case ZoneET:
		return d, nil
	}
	return time.Time{}, fmt.Errorf("unknown input zone %q", zone)
}

// DisplayDay is the inverse of GameDay.
func DisplayDay(gameDay time.Time, zone InputZone) (time.Time, error) {
	d := Day(gameDay)
	switch zone {
	case ZoneAU:
		return d.AddDate(0, 0, 1), nil
	case ZoneET:
		return d, nil
	}
	return time.Time{}, fmt.Errorf("unknown input zone %q", zone)
}

// Day truncates t to its calendar day as a UTC midnight, keeping the wall-clock date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD date.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("date must be YYYY-MM-DD: %w", err)
	}
	return t, nil
}

// Today returns the current calendar day on zone's wall clock.
func Today(now time.Time, zone InputZone) (time.Time, error) {
	loc, err := zone.Location()
	if err != nil {
		return time.Time{}, err
	}
	return Day(now.In(loc)), nil
}

// LastDays returns the n ET game days ending the day before today.
func LastDays(todayET time.Time, n int) DateWindow {
	if n < 1 {
		n = 1
	}
	end := Day(todayET).AddDate(0, 0, -1)
	return DateWindow{From: end.AddDate(0, 0, -(n - 1)), To: end}
}
