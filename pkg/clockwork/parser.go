// Package clockwork reads plain-text clock logs of the form
//
//	2019-11-14:
//	0735 Improve usability CGUI-417
//	08:15 Manual tests CGUI-422
//	0900
//
// and turns them into facts and bookings.
package clockwork

import (
	"bufio"
	"io"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/harrisonrobin/timebook/pkg/model"
	"github.com/harrisonrobin/timebook/pkg/util"
)

var (
	dateRegex = regexp.MustCompile(`^([0-9]{4})-([0-9]{2})-([0-9]{2}):?`)
	timeRegex = regexp.MustCompile(`^([0-9]{2}):?([0-9]{2}) ?(.*)`)
)

// Parser turns clock log lines into facts.
type Parser struct {
	// Patterns are tried in order; the first capture group of the first
	// matching pattern becomes the fact's issue id.
	Patterns []*regexp.Regexp
	// Now reports the wall clock. Tasks left open on the current day run
	// until now. Defaults to time.Now.
	Now    func() time.Time
	// Location is the zone of the log's wall clock. Defaults to time.Local.
	Location *time.Location
	Logger   *log.Logger
}

// openTask is a task line that has not been closed by a successor yet.
type openTask struct {
	clock       time.Time
	description string
	issueID     string
}

// Facts parses lines into facts in the order their tasks were closed.
// Lines that are neither date headers nor time entries are ignored.
func (p *Parser) Facts(lines []string) []model.Fact {
	var facts []model.Fact
	var current *openTask
	var currentDate time.Time

	for _, line := range lines {
		if m := dateRegex.FindStringSubmatch(line); m != nil {
			year, _ := strconv.Atoi(m[1])
			month, _ := strconv.Atoi(m[2])
			day, _ := strconv.Atoi(m[3])
			date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, p.location())
			if date.Year() != year || date.Month() != time.Month(month) || date.Day() != day {
				p.logger().Printf("Warning: skipping invalid date: %s", line)
				continue
			}
			if current != nil && current.description != "" {
				facts = append(facts, p.finalize(current, currentDate, time.Time{}))
			}
			current = nil
			currentDate = date
			continue
		}

		m := timeRegex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour > 23 || minute > 59 {
			p.logger().Printf("Warning: skipping invalid time: %s", line)
			continue
		}
		description := strings.TrimSpace(m[3])
		y, mon, d := currentDate.Date()
		next := &openTask{
			clock:       time.Date(y, mon, d, hour, minute, 0, 0, currentDate.Location()),
			description: description,
			issueID:     p.issueID(description),
		}
		if current != nil && current.description != "" {
			if next.clock.Before(current.clock) {
				// past midnight
				next.clock = next.clock.AddDate(0, 0, 1)
			}
			facts = append(facts, p.finalize(current, currentDate, next.clock))
		}
		current = next
	}

	if current != nil && current.description != "" {
		facts = append(facts, p.finalize(current, currentDate, time.Time{}))
	}
	return facts
}

// finalize closes task at end. A zero end means the task has no successor:
// on the current day it is still running, on a past day it ran until
// midnight. The day is the task's own, which is the one after date for a
// task that started past midnight.
func (p *Parser) finalize(task *openTask, date time.Time, end time.Time) model.Fact {
	if end.IsZero() {
		taskDay := util.Day(task.clock)
		now := p.now()
		if util.SameDay(now, taskDay) {
			end = now
		} else {
			p.logger().Printf("Warning: entry has no end time: %s, %s", task.description, date.Format("2006-01-02"))
			end = taskDay.AddDate(0, 0, 1)
		}
	}
	spent := end.Sub(task.clock)
	if spent < 0 {
		p.logger().Printf("Warning: entry ends before it starts: %s, %s", task.description, date.Format("2006-01-02"))
		spent = 0
	}
	return model.Fact{
		Description: task.description,
		IssueID:     task.issueID,
		SpentOn:     date,
		Time:        spent.Minutes(),
	}
}

func (p *Parser) issueID(description string) string {
	return IssueID(p.Patterns, description)
}

// IssueID returns the first ticket reference found in strs. Each string is
// tried against all patterns before the next one. A pattern with a capture
// group yields its first group.
func IssueID(patterns []*regexp.Regexp, strs ...string) string {
	for _, s := range strs {
		for _, pattern := range patterns {
			if m := pattern.FindStringSubmatch(s); m != nil {
				if len(m) > 1 {
					return m[1]
				}
				return m[0]
			}
		}
	}
	return ""
}

func (p *Parser) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Parser) location() *time.Location {
	if p.Location != nil {
		return p.Location
	}
	return time.Local
}

func (p *Parser) logger() *log.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return log.Default()
}

// ParseLines splits r into lines without their line terminators.
func ParseLines(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
