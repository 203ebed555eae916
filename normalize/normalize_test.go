package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMagnitude(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"15.1K", 15100, true},
		{"6.5k", 6500, true},
		{"2M", 2000000, true},
		{"1.5m", 1500000, true},
		{"101300", 101300, true},
		{"15,100", 15100, true},
		{"170.6K", 170600, true},
		{"103M", 103000000, true},
		{"999", 999, true},
		{"N/A", 0, false},
		{"", 0, false},
		{"lots", 0, false},
		{"K", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseMagnitude(c.in)
		assert.Equal(t, c.ok, ok, "input %q", c.in)
		if c.ok {
			assert.Equal(t, c.want, got, "input %q", c.in)
		}
	}
}

func TestFormatMagnitude(t *testing.T) {
	assert.Equal(t, "170.6K", FormatMagnitude(170600))
	assert.Equal(t, "103M", FormatMagnitude(103000000))
	assert.Equal(t, "103K", FormatMagnitude(103000))
	assert.Equal(t, "1.5K", FormatMagnitude(1500))
	assert.Equal(t, "1K", FormatMagnitude(1000))
	assert.Equal(t, "2.5M", FormatMagnitude(2500000))
	assert.Equal(t, "999", FormatMagnitude(999))
	assert.Equal(t, "N/A", FormatMagnitude(0))
}

// Formatting then parsing must be lossless for values already rounded to the
// displayed precision.
func TestMagnitudeRoundTrip(t *testing.T) {
	for _, n := range []int64{999, 1000, 1500, 103000, 170600, 2500000, 103000000} {
		got, ok := ParseMagnitude(FormatMagnitude(n))
		require.True(t, ok, "value %d", n)
		assert.Equal(t, n, got, "value %d", n)
	}
}

func TestParseCalendarDate(t *testing.T) {
	d, ok := ParseCalendarDate("Oct 27 2025")
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, time.October, 27, 0, 0, 0, 0, time.UTC), d)

	for _, bad := range []string{"Oct 32 2025", "N/A", "", "Foo 10 2025", "Oct 2025", "Feb 30 2025", "Oct 10 2010"} {
		_, ok := ParseCalendarDate(bad)
		assert.False(t, ok, "input %q", bad)
	}
}

func TestFirstDateOfRange(t *testing.T) {
	assert.Equal(t, "Oct 28 2025", FirstDateOfRange("Oct 28 2025 ~ Nov 10 2025"))
	assert.Equal(t, "Nov 02 2025", FirstDateOfRange("Nov 02 2025-Nov 05 2025"))
	assert.Equal(t, "Oct 27 2025", FirstDateOfRange("First seen: Oct 27 2025"))
	assert.Equal(t, "", FirstDateOfRange("no date here"))
}

func TestWithinRecency(t *testing.T) {
	today := time.Now().UTC()
	assert.True(t, WithinRecency(today, 30))
	assert.True(t, WithinRecency(today.AddDate(0, 0, -30), 30))
	assert.False(t, WithinRecency(today.AddDate(0, 0, -31), 30))
}

func TestMeetsImpressionFloor(t *testing.T) {
	assert.True(t, MeetsImpressionFloor(50000, 50000))
	assert.False(t, MeetsImpressionFloor(49999, 50000))
}

func TestFormatAudience(t *testing.T) {
	assert.Equal(t, "35-45 iOS", FormatAudience("35-45", "iOS"))
	assert.Equal(t, "18-24", FormatAudience("18-24", "N/A"))
	assert.Equal(t, "N/A", FormatAudience("", "Android"))
	assert.Equal(t, "N/A", FormatAudience("N/A", ""))
}
