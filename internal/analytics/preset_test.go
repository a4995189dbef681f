package analytics

import (
	"testing"
	"time"

	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolve(t *testing.T) {
	now := time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)
	endOfToday := day(2024, 3, 16).Add(-time.Nanosecond)

	tests := []struct {
		start  time.Time
		end    time.Time
		preset Preset
	}{
		{preset: PresetLast7Days, start: day(2024, 3, 9), end: endOfToday},
		{preset: PresetLast30Days, start: day(2024, 2, 15), end: endOfToday},
		{preset: PresetThisMonth, start: day(2024, 3, 1), end: endOfToday},
		{preset: PresetLastMonth, start: day(2024, 2, 1), end: day(2024, 3, 1).Add(-time.Nanosecond)},
		{preset: PresetLast3Months, start: day(2023, 12, 15), end: endOfToday},
		{preset: PresetThisYear, start: day(2024, 1, 1), end: endOfToday},
		{preset: PresetLastYear, start: day(2023, 1, 1), end: day(2024, 1, 1).Add(-time.Nanosecond)},
	}

	for _, tt := range tests {
		t.Run(string(tt.preset), func(t *testing.T) {
			rng, err := Resolve(tt.preset, now, time.UTC)
			require.NoError(t, err)
			require.NotNil(t, rng.Start)
			require.NotNil(t, rng.End)
			assert.True(t, tt.start.Equal(*rng.Start), "start %s", rng.Start)
			assert.True(t, tt.end.Equal(*rng.End), "end %s", rng.End)
		})
	}
}

func TestResolve_AllTimeAndErrors(t *testing.T) {
	now := time.Now()

	rng, err := Resolve(PresetAllTime, now, nil)
	require.NoError(t, err)
	assert.True(t, rng.IsOpen())

	_, err = Resolve(PresetCustom, now, nil)
	assert.ErrorIs(t, err, ErrUnknownPreset)

	_, err = Resolve("fortnight", now, nil)
	assert.ErrorIs(t, err, ErrUnknownPreset)
}

func TestResolve_UsesLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	// 20:00 UTC on March 15 is already March 16 in Tokyo.
	now := time.Date(2024, 3, 15, 20, 0, 0, 0, time.UTC)

	rng, err := Resolve(PresetThisMonth, now, tokyo)
	require.NoError(t, err)
	assert.True(t, time.Date(2024, 3, 1, 0, 0, 0, 0, tokyo).Equal(*rng.Start))
	assert.True(t, time.Date(2024, 3, 17, 0, 0, 0, 0, tokyo).Add(-time.Nanosecond).Equal(*rng.End))
}

func TestParsePreset(t *testing.T) {
	tests := []struct {
		input   string
		want    Preset
		wantErr bool
	}{
		{input: "", want: PresetAllTime},
		{input: "thismonth", want: PresetThisMonth},
		{input: "7DAYS", want: PresetLast7Days},
		{input: "custom", want: PresetCustom},
		{input: "yesterday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePreset(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownPreset)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCustomRange(t *testing.T) {
	rng, err := CustomRange(time.Date(2024, 3, 1, 15, 0, 0, 0, time.UTC), day(2024, 3, 3), nil)
	require.NoError(t, err)
	assert.True(t, day(2024, 3, 1).Equal(*rng.Start))
	assert.True(t, day(2024, 3, 4).Add(-time.Nanosecond).Equal(*rng.End))

	_, err = CustomRange(day(2024, 3, 5), day(2024, 3, 1), nil)
	assert.Error(t, err)
}

func TestPreviousPeriod(t *testing.T) {
	rng, err := CustomRange(day(2024, 3, 8), day(2024, 3, 14), nil)
	require.NoError(t, err)

	prev, ok := PreviousPeriod(rng)
	require.True(t, ok)
	assert.True(t, day(2024, 3, 1).Equal(*prev.Start), "start %s", prev.Start)
	assert.True(t, day(2024, 3, 8).Add(-time.Nanosecond).Equal(*prev.End), "end %s", prev.End)

	start := day(2024, 1, 1)
	_, ok = PreviousPeriod(service.DateRange{Start: &start})
	assert.False(t, ok)

	_, ok = PreviousPeriod(service.DateRange{})
	assert.False(t, ok)
}
