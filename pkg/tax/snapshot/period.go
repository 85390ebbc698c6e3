package snapshot

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var (
	yearPattern    = regexp.MustCompile(`^(\d{4})$`)
	quarterPattern = regexp.MustCompile(`^(\d{4})-?[Qq]([1-4])$`)
	monthPattern   = regexp.MustCompile(`^(\d{4})-?(0[1-9]|1[0-2])$`)
)

// PeriodRange converts a period label into the inclusive UTC interval it
// spans. Accepted forms: "2023", "2023Q2", "2023-Q2", "2023-06", "202306".
func PeriodRange(period string) (time.Time, time.Time, error) {
	if m := yearPattern.FindStringSubmatch(period); m != nil {
		year, _ := strconv.Atoi(m[1])
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(1, 0, 0).Add(-time.Nanosecond), nil
	}
	if m := quarterPattern.FindStringSubmatch(period); m != nil {
		year, _ := strconv.Atoi(m[1])
		q, _ := strconv.Atoi(m[2])
		start := time.Date(year, time.Month(3*(q-1)+1), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 3, 0).Add(-time.Nanosecond), nil
	}
	if m := monthPattern.FindStringSubmatch(period); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0).Add(-time.Nanosecond), nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("unrecognised period %q", period)
}
