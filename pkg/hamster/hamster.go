// Package hamster reads time facts from the database of the Hamster time
// tracker.
package hamster

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harrisonrobin/timebook/pkg/clockwork"
	"github.com/harrisonrobin/timebook/pkg/model"
	"github.com/harrisonrobin/timebook/pkg/util"
)

const timeLayout = "2006-01-02 15:04:05"

// tag names are joined with the ASCII unit separator
const tagSep = "\x1f"

const factsQuery = `
	SELECT a.name,
	       COALESCE(f.description, ''),
	       COALESCE(c.name, ''),
	       strftime('%Y-%m-%d %H:%M:%S', f.start_time),
	       COALESCE(strftime('%Y-%m-%d %H:%M:%S', f.end_time), ''),
	       COALESCE((SELECT group_concat(t.name, char(31))
	                 FROM fact_tags ft JOIN tags t ON t.id = ft.tag_id
	                 WHERE ft.fact_id = f.id), '')
	FROM facts f
	JOIN activities a ON a.id = f.activity_id
	LEFT JOIN categories c ON c.id = a.category_id
	WHERE date(f.start_time) = ?
	ORDER BY f.start_time`

// Log is a time source backed by a hamster.db file.
type Log struct {
	Path     string
	Patterns []*regexp.Regexp
	// Now is the end of a running fact. Defaults to time.Now.
	Now func() time.Time
}

// DefaultPath returns the database location of current Hamster releases.
func DefaultPath() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "hamster", "hamster.db"), nil
}

func NewLog(path string, patterns []*regexp.Regexp) *Log {
	return &Log{Path: path, Patterns: patterns}
}

type fact struct {
	activity, description, category string
	start, end                       time.Time
	tags                             []string
}

// TimeInfo returns the facts started on date, summed per activity name.
// Tickets are looked for in the tags, then the activity name, then the
// fact description.
func (l *Log) TimeInfo(ctx context.Context, date time.Time, loginfo map[string][]string, activities []model.Activity) ([]model.Booking, error) {
	facts, err := l.facts(ctx, date)
	if err != nil {
		return nil, err
	}

	activity := model.DefaultActivity(activities).Name
	if activity == "" {
		activity = "none"
	}

	var bookings []model.Booking
	index := make(map[string]int)
	for _, f := range facts {
		minutes := f.end.Sub(f.start).Minutes()
		if minutes < 0 {
			minutes = 0
		}
		if i, ok := index[f.activity]; ok {
			bookings[i].Time += minutes
			continue
		}

		candidates := make([]string, 0, len(f.tags)+2)
		for _, tag := range f.tags {
			candidates = append(candidates, "#"+tag)
		}
		candidates = append(candidates, f.activity, f.description)
		ticket := clockwork.IssueID(l.Patterns, candidates...)

		index[f.activity] = len(bookings)
		bookings = append(bookings, model.Booking{
			IssueID:     ticket,
			SpentOn:     util.Day(f.start),
			Time:        minutes,
			Description: f.activity,
			Activity:    activity,
			Comments:    clockwork.Comments(loginfo, ticket, ". "),
			Category:    f.category,
			Tags:        f.tags,
		})
	}
	return bookings, nil
}

func (l *Log) facts(ctx context.Context, date time.Time) ([]fact, error) {
	source, err := dsn(l.Path, "ro")
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", source)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, factsQuery, date.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to query hamster facts: %w", err)
	}
	defer rows.Close()

	var facts []fact
	for rows.Next() {
		var f fact
		var start, end, tags string
		if err := rows.Scan(&f.activity, &f.description, &f.category, &start, &end, &tags); err != nil {
			return nil, err
		}
		if f.start, err = time.ParseInLocation(timeLayout, start, date.Location()); err != nil {
			return nil, fmt.Errorf("invalid fact start %q: %w", start, err)
		}
		if end == "" {
			f.end = l.now()
		} else if f.end, err = time.ParseInLocation(timeLayout, end, date.Location()); err != nil {
			return nil, fmt.Errorf("invalid fact end %q: %w", end, err)
		}
		if tags != "" {
			f.tags = strings.Split(tags, tagSep)
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

func (l *Log) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// dsn builds a SQLite URI for path, escaping characters the URI form
// reserves.
func dsn(path, mode string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs), RawQuery: "mode=" + mode}
	return u.String(), nil
}
