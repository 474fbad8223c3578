package notify

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const minutesPerDay = 24 * 60

// ParseClock parses a "HH:MM" (or "HH:MM:SS") time of day into minutes
// after midnight. Seconds are accepted and discarded.
func ParseClock(v string) (int, error) {
	parts := strings.Split(strings.TrimSpace(v), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time of day %q: want HH:MM", v)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 || len(parts[0]) != 2 {
		return 0, fmt.Errorf("invalid hour in %q", v)
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 || len(parts[1]) != 2 {
		return 0, fmt.Errorf("invalid minute in %q", v)
	}

	if len(parts) == 3 {
		sec, err := strconv.Atoi(parts[2])
		if err != nil || sec < 0 || sec > 59 {
			return 0, fmt.Errorf("invalid second in %q", v)
		}
	}

	return hour*60 + minute, nil
}

// FormatClock renders minutes after midnight as "HH:MM".
func FormatClock(minutes int) string {
	minutes = ((minutes % minutesPerDay) + minutesPerDay) % minutesPerDay
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// InQuietHours reports whether now falls inside the closed window
// [start, end]. A window with start > end wraps midnight.
func InQuietHours(start, end, now int) bool {
	if start <= end {
		return start <= now && now <= end
	}
	return now >= start || now <= end
}

// NextQuietHoursEnd returns the first instant strictly after now whose wall
// clock reads end, in now's location.
func NextQuietHoursEnd(now time.Time, end int) time.Time {
	y, m, d := now.Date()
	candidate := time.Date(y, m, d, end/60, end%60, 0, 0, now.Location())
	if !candidate.After(now) {
		candidate = time.Date(y, m, d+1, end/60, end%60, 0, 0, now.Location())
	}
	return candidate
}
