// Package google uses the events of a Google calendar as a time log.
package google

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/timebook/pkg/clockwork"
	"github.com/harrisonrobin/timebook/pkg/model"
	"github.com/harrisonrobin/timebook/pkg/util"
)

// CalendarLog is a time source reading the timed events of one calendar.
// All-day and declined events are skipped.
type CalendarLog struct {
	srv        *calendar.Service
	calendarID string
	Patterns   []*regexp.Regexp
	Logger     *log.Logger
}

// NewCalendarLog creates a time source for calendarID.
func NewCalendarLog(srv *calendar.Service, calendarID string, patterns []*regexp.Regexp) *CalendarLog {
	return &CalendarLog{srv: srv, calendarID: calendarID, Patterns: patterns}
}

// ListEvents fetches the single events starting in [from, to), following
// result pages.
func (c *CalendarLog) ListEvents(ctx context.Context, from, to time.Time) ([]*calendar.Event, error) {
	var events []*calendar.Event
	call := c.srv.Events.List(c.calendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime")
	err := call.Pages(ctx, func(page *calendar.Events) error {
		events = append(events, page.Items...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve events from calendar: %w", err)
	}
	return events, nil
}

func (c *CalendarLog) TimeInfo(ctx context.Context, date time.Time, loginfo map[string][]string, activities []model.Activity) ([]model.Booking, error) {
	day := util.Day(date)
	events, err := c.ListEvents(ctx, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	return clockwork.Aggregate(c.Facts(events, day), date, loginfo), nil
}

// Facts converts timed events into facts, clipped to the day.
func (c *CalendarLog) Facts(events []*calendar.Event, day time.Time) []model.Fact {
	dayEnd := day.AddDate(0, 0, 1)
	var facts []model.Fact
	for _, event := range events {
		if event.Start == nil || event.End == nil || event.Start.DateTime == "" || declined(event) {
			continue
		}
		start, err := time.Parse(time.RFC3339, event.Start.DateTime)
		if err != nil {
			c.logger().Printf("Warning: could not parse start of event %q: %v", event.Summary, err)
			continue
		}
		end, err := time.Parse(time.RFC3339, event.End.DateTime)
		if err != nil {
			c.logger().Printf("Warning: could not parse end of event %q: %v", event.Summary, err)
			continue
		}
		if start.Before(day) {
			start = day
		}
		if end.After(dayEnd) {
			end = dayEnd
		}
		minutes := end.Sub(start).Minutes()
		if minutes < 0 {
			minutes = 0
		}
		facts = append(facts, model.Fact{
			Description: event.Summary,
			IssueID:     clockwork.IssueID(c.Patterns, event.Summary, event.Description),
			SpentOn:     day,
			Time:        minutes,
		})
	}
	return facts
}

func declined(event *calendar.Event) bool {
	for _, attendee := range event.Attendees {
		if attendee.Self && attendee.ResponseStatus == "declined" {
			return true
		}
	}
	return false
}

func (c *CalendarLog) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}
