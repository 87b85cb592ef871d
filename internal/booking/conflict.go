package booking

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// conflictPhrase is the literal marker Meevo puts in same-slot conflict
// messages. Matching on message text is brittle; keeping the whole
// classification in one pure function makes it swappable if Meevo ever
// exposes a structured error code.
const conflictPhrase = "already booked on"

var conflictDatePattern = regexp.MustCompile(`(\d{1,2})/(\d{1,2})/(\d{4})`)

// conflictDescriptor identifies a stale-past-appointment conflict parsed
// from an upstream error message.
type conflictDescriptor struct {
	Month int
	Day   int
	Year  int
	Date  time.Time
}

// classifyConflict reports whether an upstream booking error message
// describes a conflict with an appointment on a date strictly before now.
// Future-date conflicts and any other failure shape are not a match.
func classifyConflict(message string, now time.Time) (conflictDescriptor, bool) {
	if !strings.Contains(strings.ToLower(message), conflictPhrase) {
		return conflictDescriptor{}, false
	}

	m := conflictDatePattern.FindStringSubmatch(message)
	if m == nil {
		return conflictDescriptor{}, false
	}

	month, _ := strconv.Atoi(m[1])
	day, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])

	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location())
	if int(date.Month()) != month || date.Day() != day || date.Year() != year {
		return conflictDescriptor{}, false
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if !date.Before(today) {
		return conflictDescriptor{}, false
	}

	return conflictDescriptor{Month: month, Day: day, Year: year, Date: date}, true
}
