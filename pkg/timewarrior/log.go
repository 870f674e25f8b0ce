package timewarrior

import (
	"context"
	"regexp"
	"time"

	"github.com/harrisonrobin/timebook/pkg/clockwork"
	"github.com/harrisonrobin/timebook/pkg/model"
	"github.com/harrisonrobin/timebook/pkg/util"
)

// Log is a time source exporting the intervals of one day from Timewarrior.
type Log struct {
	Client   *Client
	Patterns []*regexp.Regexp
	Now      func() time.Time
}

func NewLog(client *Client, patterns []*regexp.Regexp) *Log {
	return &Log{Client: client, Patterns: patterns}
}

func (l *Log) TimeInfo(ctx context.Context, date time.Time, loginfo map[string][]string, activities []model.Activity) ([]model.Booking, error) {
	day := util.Day(date)
	intervals, err := l.Client.Intervals(ctx, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	return Bookings(intervals, date, loginfo, l.Patterns, l.now()), nil
}

// Bookings aggregates intervals into the bookings of date. Open intervals
// end at now. Interval tags are carried over to the booking.
func Bookings(intervals []Interval, date time.Time, loginfo map[string][]string, patterns []*regexp.Regexp, now time.Time) []model.Booking {
	facts := make([]model.Fact, 0, len(intervals))
	tags := make(map[string][]string)
	for _, interval := range intervals {
		start := interval.Start.In(date.Location())
		end := now
		if interval.End != nil {
			end = interval.End.In(date.Location())
		}
		minutes := end.Sub(start).Minutes()
		if minutes < 0 {
			minutes = 0
		}

		description := interval.Description()
		facts = append(facts, model.Fact{
			Description: description,
			IssueID:     clockwork.IssueID(patterns, description),
			SpentOn:     util.Day(start),
			Time:        minutes,
		})
		tags[description] = appendMissing(tags[description], interval.Tags)
	}

	bookings := clockwork.Aggregate(facts, date, loginfo)
	for i := range bookings {
		bookings[i].Tags = appendMissing(bookings[i].Tags, tags[bookings[i].Description])
	}
	return bookings
}

func appendMissing(dst, src []string) []string {
	for _, s := range src {
		found := false
		for _, d := range dst {
			if d == s {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, s)
		}
	}
	return dst
}

func (l *Log) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}
