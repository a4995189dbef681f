package analytics

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/spice-ledger/internal/service"
)

// Preset names a predefined date range.
type Preset string

// Supported presets.
const (
	PresetLast7Days   Preset = "7days"
	PresetLast30Days  Preset = "30days"
	PresetThisMonth   Preset = "thisMonth"
	PresetLastMonth   Preset = "lastMonth"
	PresetLast3Months Preset = "last3Months"
	PresetThisYear    Preset = "thisYear"
	PresetLastYear    Preset = "lastYear"
	PresetAllTime     Preset = "allTime"
	PresetCustom      Preset = "custom"
)

// Presets lists the presets Resolve accepts.
var Presets = []Preset{
	PresetLast7Days,
	PresetLast30Days,
	PresetThisMonth,
	PresetLastMonth,
	PresetLast3Months,
	PresetThisYear,
	PresetLastYear,
	PresetAllTime,
}

// ErrUnknownPreset is returned for a preset name Resolve does not know.
var ErrUnknownPreset = errors.New("unknown date range preset")

// ParsePreset matches a preset name ignoring case. Empty means all time.
func ParsePreset(name string) (Preset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return PresetAllTime, nil
	}
	for _, p := range Presets {
		if strings.EqualFold(name, string(p)) {
			return p, nil
		}
	}
	if strings.EqualFold(name, string(PresetCustom)) {
		return PresetCustom, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPreset, name)
}

// Resolve returns the inclusive range a preset covers at now, with day
// boundaries taken in loc. All time returns an open range. Custom ranges are
// built with CustomRange instead.
func Resolve(p Preset, now time.Time, loc *time.Location) (service.DateRange, error) {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	today := startOfDay(now)
	endOfToday := endOfDay(now)

	switch p {
	case PresetAllTime, "":
		return service.DateRange{}, nil
	case PresetLast7Days:
		return bounded(today.AddDate(0, 0, -6), endOfToday), nil
	case PresetLast30Days:
		return bounded(today.AddDate(0, 0, -29), endOfToday), nil
	case PresetThisMonth:
		return bounded(startOfMonth(now), endOfToday), nil
	case PresetLastMonth:
		start := startOfMonth(now).AddDate(0, -1, 0)
		return bounded(start, startOfMonth(now).Add(-time.Nanosecond)), nil
	case PresetLast3Months:
		return bounded(today.AddDate(0, -3, 0), endOfToday), nil
	case PresetThisYear:
		return bounded(startOfYear(now), endOfToday), nil
	case PresetLastYear:
		start := startOfYear(now).AddDate(-1, 0, 0)
		return bounded(start, startOfYear(now).Add(-time.Nanosecond)), nil
	case PresetCustom:
		return service.DateRange{}, fmt.Errorf("%w: custom ranges need explicit dates", ErrUnknownPreset)
	}
	return service.DateRange{}, fmt.Errorf("%w: %q", ErrUnknownPreset, p)
}

// CustomRange covers whole days from start through end in loc.
func CustomRange(start, end time.Time, loc *time.Location) (service.DateRange, error) {
	if loc == nil {
		loc = time.UTC
	}
	from := startOfDay(start.In(loc))
	to := endOfDay(end.In(loc))
	if to.Before(from) {
		return service.DateRange{}, fmt.Errorf("range start %s is after end %s",
			from.Format("2006-01-02"), to.Format("2006-01-02"))
	}
	return bounded(from, to), nil
}

// PreviousPeriod returns the equal-length window ending just before r.
// It reports false when r is not bounded on both sides.
func PreviousPeriod(r service.DateRange) (service.DateRange, bool) {
	if r.Start == nil || r.End == nil {
		return service.DateRange{}, false
	}
	length := r.End.Sub(*r.Start)
	end := r.Start.Add(-time.Nanosecond)
	return bounded(end.Add(-length), end), true
}

func bounded(start, end time.Time) service.DateRange {
	return service.DateRange{Start: &start, End: &end}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func startOfYear(t time.Time) time.Time {
	return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, t.Location())
}
