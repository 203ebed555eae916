package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// NA mirrors models.NA; kept local so the package stays dependency free.
const NA = "N/A"

var months = map[string]time.Month{
	"Jan": time.January, "Feb": time.February, "Mar": time.March,
	"Apr": time.April, "May": time.May, "Jun": time.June,
	"Jul": time.July, "Aug": time.August, "Sep": time.September,
	"Oct": time.October, "Nov": time.November, "Dec": time.December,
}

var dateTokenRe = regexp.MustCompile(`([A-Z][a-z]{2}\s+\d{1,2}\s+\d{4})`)

// ParseMagnitude converts a magnitude-suffixed count ("15.1K", "2M", "15,100")
// to its integer value. Returns false for anything unparseable or the sentinel.
func ParseMagnitude(text string) (int64, bool) {
	clean := strings.TrimSpace(text)
	if clean == "" || clean == NA {
		return 0, false
	}
	clean = strings.ReplaceAll(clean, ",", "")
	clean = strings.ReplaceAll(clean, " ", "")

	mult := int64(1)
	switch {
	case strings.HasSuffix(strings.ToUpper(clean), "K"):
		mult = 1_000
		clean = clean[:len(clean)-1]
	case strings.HasSuffix(strings.ToUpper(clean), "M"):
		mult = 1_000_000
		clean = clean[:len(clean)-1]
	}

	n, err := strconv.ParseFloat(clean, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return int64(n * float64(mult)), true
}

// FormatMagnitude is the inverse of ParseMagnitude: one decimal place with
// the trailing ".0" trimmed (170600 -> "170.6K", 103000000 -> "103M"), so a
// format-parse round trip is lossless at the displayed precision.
func FormatMagnitude(n int64) string {
	if n <= 0 {
		return NA
	}
	format := func(v float64, suffix string) string {
		s := strconv.FormatFloat(v, 'f', 1, 64)
		return strings.TrimSuffix(s, ".0") + suffix
	}
	switch {
	case n >= 1_000_000:
		return format(float64(n)/1_000_000, "M")
	case n >= 1_000:
		return format(float64(n)/1_000, "K")
	default:
		return strconv.FormatInt(n, 10)
	}
}

// ParseCalendarDate parses a 3-part "Mon D YYYY" token ("Oct 27 2025").
// Out-of-range days and years are rejected.
func ParseCalendarDate(text string) (time.Time, bool) {
	clean := strings.TrimSpace(text)
	if clean == "" || clean == NA {
		return time.Time{}, false
	}
	parts := strings.Fields(clean)
	if len(parts) != 3 {
		return time.Time{}, false
	}
	month, ok := months[parts[0]]
	if !ok {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return time.Time{}, false
	}
	if day < 1 || day > 31 || year < 2020 || year > 2100 {
		return time.Time{}, false
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes Feb 30 into March; treat that as invalid input.
	if d.Day() != day || d.Month() != month {
		return time.Time{}, false
	}
	return d, true
}

// FirstDateOfRange extracts the first calendar-date token from a possible
// range ("Oct 28 2025 ~ Nov 10 2025" -> "Oct 28 2025").
func FirstDateOfRange(text string) string {
	return dateTokenRe.FindString(text)
}

// WithinRecency reports whether date is on or after today minus the window,
// at day granularity.
func WithinRecency(date time.Time, days int) bool {
	return WithinRecencyAt(date, days, time.Now())
}

// WithinRecencyAt is WithinRecency against an explicit reference time.
func WithinRecencyAt(date time.Time, days int, now time.Time) bool {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	cutoff := today.AddDate(0, 0, -days)
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return !d.Before(cutoff)
}

// MeetsImpressionFloor reports whether count satisfies the configured minimum.
func MeetsImpressionFloor(count, floor int64) bool {
	return count >= floor
}

// FormatAudience joins the age range and platform into the "35-45 iOS" form
// used by the output record.
func FormatAudience(age, platform string) string {
	age = strings.TrimSpace(age)
	if age == "" || age == NA {
		return NA
	}
	platform = strings.TrimSpace(platform)
	if platform == "" || platform == NA {
		return age
	}
	return age + " " + platform
}
