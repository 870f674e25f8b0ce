package google

import (
	"context"
	"fmt"
	"regexp"

	"google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/timebook/pkg/auth"
)

// NewClient authorizes against Google and returns the time source for the
// calendar named calendarName. An empty name or "primary" selects the
// user's primary calendar.
func NewClient(ctx context.Context, authDir, calendarName string, patterns []*regexp.Regexp) (*CalendarLog, error) {
	srv, err := auth.GetCalendarService(ctx, authDir)
	if err != nil {
		return nil, err
	}
	calendarID, err := FindCalendar(ctx, srv, calendarName)
	if err != nil {
		return nil, err
	}
	return NewCalendarLog(srv, calendarID, patterns), nil
}

// FindCalendar resolves a calendar summary to its id.
func FindCalendar(ctx context.Context, srv *calendar.Service, calendarName string) (string, error) {
	if calendarName == "" || calendarName == "primary" {
		return "primary", nil
	}

	calendarList, err := srv.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to retrieve calendar list: %w", err)
	}
	for _, item := range calendarList.Items {
		if item.Summary == calendarName {
			return item.Id, nil
		}
	}
	return "", fmt.Errorf("calendar '%s' not found", calendarName)
}
