// Package timestamp implements the ISO-8601 collaborator: a
// yyyy-mm-ddThh:mm:ss+hh:mm timestamp for every snapshot, using Go's
// standard time package instead of the original tool's libc
// strftime/strptime calls (see DESIGN.md for why no third-party date
// library is warranted here).
package timestamp

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// iso8601Layout matches "%FT%T%z" with the zone offset colon-separated
// (Go's "-07:00" verb already produces that form, unlike C strftime).
const iso8601Layout = "2006-01-02T15:04:05-07:00"

// NowISO8601 formats the current local time as an ISO-8601 timestamp.
func NowISO8601(now time.Time) string {
	return now.Local().Format(iso8601Layout)
}

// ErrOutOfRange means a parsed date/time component was outside the
// range the original tool accepted (year 1970-2100, valid month/day,
// hour<24, minute<60, second<=60 for leap seconds).
var ErrOutOfRange = errors.New("timestamp: date field out of range")

// ErrMalformed means s was not in "yyyy-mm-ddThh:mm[:ss]" shape.
var ErrMalformed = errors.New("timestamp: expected yyyy-mm-ddThh:mm[:ss]")

// ParseDateAndTimeNoTZO parses "yyyy-mm-ddThh:mm" or
// "yyyy-mm-ddThh:mm:ss" (no timezone offset) into a time.Time in UTC,
// replicating the original's range validation including its permissive
// "day <= 29" check for February (it never verified leap years).
func ParseDateAndTimeNoTZO(s string) (time.Time, error) {
	components := strings.Split(s, "T")
	if len(components) != 2 {
		return time.Time{}, ErrMalformed
	}
	ymd := strings.Split(components[0], "-")
	if len(ymd) != 3 {
		return time.Time{}, ErrMalformed
	}
	hms := strings.Split(components[1], ":")
	if len(hms) != 2 && len(hms) != 3 {
		return time.Time{}, ErrMalformed
	}

	yr, err1 := strconv.Atoi(ymd[0])
	mo, err2 := strconv.Atoi(ymd[1])
	dy, err3 := strconv.Atoi(ymd[2])
	hr, err4 := strconv.Atoi(hms[0])
	mi, err5 := strconv.Atoi(hms[1])
	ss := 0
	var err6 error
	if len(hms) == 3 {
		ss, err6 = strconv.Atoi(hms[2])
	}
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil || err6 != nil {
		return time.Time{}, ErrMalformed
	}

	if yr < 1970 || yr > 2100 ||
		mo < 1 || mo > 12 ||
		dy < 1 || (mo == 2 && dy > 29) || (isLongMonth(mo) && dy > 31) || (isShortMonth(mo) && dy > 30) ||
		hr > 23 || mi > 59 || ss > 60 {
		return time.Time{}, ErrOutOfRange
	}

	return time.Date(yr, time.Month(mo), dy, hr, mi, ss, 0, time.UTC), nil
}

func isLongMonth(mo int) bool {
	switch mo {
	case 1, 3, 5, 7, 8, 10, 12:
		return true
	}
	return false
}

func isShortMonth(mo int) bool {
	switch mo {
	case 2, 4, 6, 9, 11:
		return true
	}
	return false
}
