package util

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
)

// ErrDateFormat is returned for spent-on arguments that match no known form.
var ErrDateFormat = errors.New("unrecognized date format")

// Work done after this hour is booked on the same day by default.
const sameDayHour = 16

var (
	offsetRegex  = regexp.MustCompile(`^[+-][0-9]*$`)
	compactRegex = regexp.MustCompile(`^[0-9]{8}$`)
	isoRegex     = regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2}$`)
)

// Day truncates t to local midnight of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DefaultSpentOn returns today once the working day is mostly over,
// yesterday otherwise.
func DefaultSpentOn(now time.Time) time.Time {
	today := Day(now)
	if now.Hour() >= sameDayHour {
		return today
	}
	return today.AddDate(0, 0, -1)
}

// ParseSpentOn interprets a --date argument relative to now. Accepted forms
// are "today", a signed day offset ("-1"), "YYYYMMDD" and "YYYY-MM-DD".
// An empty argument yields DefaultSpentOn.
func ParseSpentOn(arg string, now time.Time) (time.Time, error) {
	today := Day(now)
	switch {
	case arg == "":
		return DefaultSpentOn(now), nil
	case arg == "today":
		return today, nil
	case offsetRegex.MatchString(arg):
		offset, err := strconv.Atoi(arg)
		if err != nil {
			// a bare sign
			offset = 0
		}
		return today.AddDate(0, 0, offset), nil
	case compactRegex.MatchString(arg):
		return time.ParseInLocation("20060102", arg, now.Location())
	case isoRegex.MatchString(arg):
		return time.ParseInLocation("2006-01-02", arg, now.Location())
	}
	return time.Time{}, fmt.Errorf("%w: %s", ErrDateFormat, arg)
}

// FormatSpentTime renders minutes as "H:MM", rounding up to the next full
// minute. Hours are padded to two characters.
func FormatSpentTime(minutes float64) string {
	rounded := math.Ceil(minutes)
	hours := int(rounded / 60.0)
	mins := int(math.Ceil(rounded - float64(hours)*60.0))
	return fmt.Sprintf("%2d:%02d", hours, mins)
}
