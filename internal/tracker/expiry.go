package tracker

import (
	"regexp"
	"strings"
	"time"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
)

var clockTimeRegex = regexp.MustCompile(`^\d{1,2}:\d{2}$`)

// IsExpired reports whether an event has already started (or its day has
// passed). An unparseable date is never expired. A time that is not H:MM or
// HH:MM (e.g. "Delay") is ignored and only the date counts.
func IsExpired(date, clock string, now time.Time, loc *time.Location) bool {
	day, err := time.ParseInLocation(dateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return false
	}

	now = now.In(loc)
	dayPassed := startOfDay(now).After(day)

	clock = strings.TrimSpace(clock)
	if clock == "" || !clockTimeRegex.MatchString(clock) {
		return dayPassed
	}

	startsAt, err := time.ParseInLocation(dateTimeLayout, day.Format(dateLayout)+" "+clock, loc)
	if err != nil {
		return dayPassed
	}
	return now.After(startsAt)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
