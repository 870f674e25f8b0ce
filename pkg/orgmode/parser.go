// Package orgmode reads and writes bookings as an org-mode clocktable so
// they can be reviewed and corrected in a text editor.
package orgmode

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/harrisonrobin/timebook/pkg/model"
)

const summaryPrefix = "Clock summary at ["

var ticketRegex = regexp.MustCompile(`#([A-Z0-9-]+)`)

// TicketNo returns the first #TICKET reference found in strs, or "".
func TicketNo(strs ...string) string {
	for _, s := range strs {
		if m := ticketRegex.FindStringSubmatch(s); m != nil {
			return m[1]
		}
	}
	return ""
}

// Read parses a clocktable written by Write. Rows with fewer cells get the
// default activity and empty values for the missing columns.
func Read(r io.Reader, activities []model.Activity) (time.Time, []model.Booking, error) {
	defaultActivity := model.DefaultActivity(activities).Name
	if defaultActivity == "" {
		defaultActivity = "[noname]"
	}
	defaults := []string{"1", "", "0:0", defaultActivity, "", "", ""}

	var spentOn time.Time
	var bookings []model.Booking
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, summaryPrefix) {
			fields := strings.Fields(strings.TrimPrefix(line, summaryPrefix))
			if len(fields) == 0 {
				return time.Time{}, nil, fmt.Errorf("malformed clock summary line: %q", line)
			}
			date, err := time.ParseInLocation("2006-01-02", fields[0], time.Local)
			if err != nil {
				return time.Time{}, nil, fmt.Errorf("malformed clock summary date: %w", err)
			}
			spentOn = date
			continue
		}
		if !strings.HasPrefix(line, "|") {
			continue
		}

		columns := strings.Split(strings.Trim(strings.TrimSpace(line), "|"), "|")
		for i := range columns {
			columns[i] = strings.TrimSpace(columns[i])
		}
		if columns[0] == "L" || columns[0] == "" {
			continue
		}
		if len(columns) < len(defaults) {
			columns = append(columns, defaults[len(columns):]...)
		}

		minutes, err := parseClock(columns[2])
		if err != nil {
			return time.Time{}, nil, fmt.Errorf("invalid time in row %q: %w", line, err)
		}
		bookings = append(bookings, model.Booking{
			IssueID:     columns[4],
			SpentOn:     spentOn,
			Time:        minutes,
			Description: columns[1],
			Activity:    columns[3],
			Project:     columns[5],
			Comments:    columns[6],
		})
	}
	if err := scanner.Err(); err != nil {
		return time.Time{}, nil, err
	}
	if len(bookings) > 0 && spentOn.IsZero() {
		return time.Time{}, nil, fmt.Errorf("clocktable has no %q line", strings.TrimSuffix(summaryPrefix, " ["))
	}
	return spentOn, bookings, nil
}

func parseClock(s string) (float64, error) {
	hours, mins, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("expected H:MM, got %q", s)
	}
	h, err := strconv.Atoi(strings.TrimSpace(hours))
	if err != nil {
		return 0, err
	}
	m, err := strconv.Atoi(strings.TrimSpace(mins))
	if err != nil {
		return 0, err
	}
	return float64(h*60 + m), nil
}
