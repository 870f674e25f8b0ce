// Package session runs one reconciliation: it fetches, enriches and cleans
// up the bookings of a day, keeps them in an editable session file, and
// submits them to the billing backends.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/harrisonrobin/timebook/pkg/booking"
	"github.com/harrisonrobin/timebook/pkg/model"
	"github.com/harrisonrobin/timebook/pkg/orgmode"
	"github.com/harrisonrobin/timebook/pkg/target"
	"github.com/harrisonrobin/timebook/pkg/util"
	"github.com/harrisonrobin/timebook/pkg/vcs"
)

// ErrNoSource is returned when bookings have to be fetched but no time-log
// source is configured.
var ErrNoSource = errors.New("no time-log source configured")

// Source yields the bookings recorded for a day.
type Source interface {
	TimeInfo(ctx context.Context, date time.Time, loginfo map[string][]string, activities []model.Activity) ([]model.Booking, error)
}

// Booker submits bookings to a billing or tracking backend.
type Booker interface {
	Book(ctx context.Context, bookings []model.Booking) error
}

// Backend is a named Booker.
type Backend struct {
	Name   string
	Booker Booker
}

// ActivitySource lists the activities a backend accepts.
type ActivitySource interface {
	Activities(ctx context.Context) ([]model.Activity, error)
}

// ProjectCodes lists the billing project codes bookings may target.
type ProjectCodes interface {
	Codes(ctx context.Context) ([]string, error)
}

// TitleResolver looks up issue titles. *tracker.Resolver satisfies it.
type TitleResolver interface {
	ResolveTitle(ctx context.Context, id string) string
}

type Session struct {
	Source     Source
	VCS        []vcs.Log
	Targeter   *target.Targeter
	Titles     TitleResolver
	Projects   ProjectCodes
	Activity   []ActivitySource
	Backends   []Backend
	File       string
	SearchBack int
	Editor     string
	// New ignores an existing session file.
	New    bool
	Logger *log.Logger

	// SpentOn is the requested day, and after Bookings the day the
	// bookings were found for.
	SpentOn time.Time

	bookings   []model.Booking
	activities []model.Activity
}

// DefaultFile returns the session file location below the data home.
func DefaultFile() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "timebook", "session.org"), nil
}

// Activities returns the activities of all backends. Failing backends are
// reported and skipped.
func (s *Session) Activities(ctx context.Context) []model.Activity {
	if s.activities != nil {
		return s.activities
	}
	activities := []model.Activity{}
	for _, src := range s.Activity {
		acts, err := src.Activities(ctx)
		if err != nil {
			s.logger().Printf("Warning: %v", err)
			continue
		}
		activities = append(activities, acts...)
	}
	s.activities = activities
	return activities
}

// Resumable reports whether Bookings will continue an existing session.
func (s *Session) Resumable() bool {
	if s.New || s.File == "" {
		return false
	}
	_, err := os.Stat(s.File)
	return err == nil
}

// Bookings returns the bookings of the session. An existing session file
// is resumed unless New is set; otherwise the bookings are fetched fresh.
// Issue titles are resolved either way.
func (s *Session) Bookings(ctx context.Context) ([]model.Booking, error) {
	if s.bookings != nil {
		return s.bookings, nil
	}

	var bookings []model.Booking
	var err error
	if s.Resumable() {
		bookings, err = s.readFile(s.Activities(ctx))
	} else {
		bookings, err = s.fetch(ctx)
	}
	if err != nil {
		return nil, err
	}

	for i := range bookings {
		bookings[i].IssueTitle = ""
		if bookings[i].IssueID != "" && s.Titles != nil {
			bookings[i].IssueTitle = s.Titles.ResolveTitle(ctx, bookings[i].IssueID)
		}
	}
	if bookings == nil {
		bookings = []model.Booking{}
	}
	s.bookings = bookings
	return bookings, nil
}

func (s *Session) readFile(activities []model.Activity) ([]model.Booking, error) {
	f, err := os.Open(s.File)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	spentOn, bookings, err := orgmode.Read(f, activities)
	if err != nil {
		return nil, fmt.Errorf("failed to read session %s: %w", s.File, err)
	}
	if !spentOn.IsZero() {
		s.SpentOn = spentOn
	}
	return bookings, nil
}

// fetch walks back from SpentOn until a day with bookings is found.
func (s *Session) fetch(ctx context.Context) ([]model.Booking, error) {
	if s.Source == nil {
		return nil, ErrNoSource
	}
	searchBack := s.SearchBack
	if searchBack < 1 {
		searchBack = 1
	}

	activities := s.Activities(ctx)
	var known []string
	if s.Projects != nil {
		codes, err := s.Projects.Codes(ctx)
		if err != nil {
			s.logger().Printf("Warning: %v", err)
		}
		known = codes
	}

	start := util.Day(s.SpentOn)
	var bookings []model.Booking
	for i := 0; i < searchBack; i++ {
		day := start.AddDate(0, 0, -i)
		var err error
		bookings, err = s.fetchDay(ctx, day, activities, known)
		if err != nil {
			return nil, err
		}
		s.SpentOn = day
		if len(bookings) > 0 {
			break
		}
	}
	return booking.CleanUp(bookings, s.Logger), nil
}

func (s *Session) fetchDay(ctx context.Context, day time.Time, activities []model.Activity, known []string) ([]model.Booking, error) {
	var loginfo vcs.LogInfo
	for _, v := range s.VCS {
		loginfo = v.LogInfo(ctx, day, loginfo)
	}

	bookings, err := s.Source.TimeInfo(ctx, day, loginfo, activities)
	if err != nil {
		return nil, fmt.Errorf("failed to read time log for %s: %w", day.Format("2006-01-02"), err)
	}
	if s.Targeter != nil {
		for i := range bookings {
			project, task := s.Targeter.Target(ctx, bookings[i], known)
			bookings[i].Project = project
			bookings[i].Activity = task
		}
	}
	return bookings, nil
}

// Total returns the unprocessed time of SpentOn.
func (s *Session) Total(ctx context.Context) (float64, error) {
	if s.Source == nil {
		return 0, ErrNoSource
	}
	bookings, err := s.Source.TimeInfo(ctx, s.SpentOn, nil, nil)
	if err != nil {
		return 0, err
	}
	return booking.TimeSum(bookings), nil
}

// Summary returns the total of the session bookings as "total hours:H:MM".
func (s *Session) Summary(ctx context.Context) (string, error) {
	bookings, err := s.Bookings(ctx)
	if err != nil {
		return "", err
	}
	return "total hours:" + util.FormatSpentTime(booking.TimeSum(bookings)), nil
}

// CheckIssueAndComment returns the bookings lacking an issue id or a
// comment.
func CheckIssueAndComment(bookings []model.Booking) []model.Booking {
	var incomplete []model.Booking
	for _, b := range bookings {
		if b.IssueID == "" || b.Comments == "" {
			incomplete = append(incomplete, b)
		}
	}
	return incomplete
}

// Save writes the session bookings to the session file.
func (s *Session) Save(ctx context.Context) error {
	bookings, err := s.Bookings(ctx)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.File), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(s.File, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open session file: %w", err)
	}
	if err := orgmode.Write(f, bookings, s.SpentOn, s.Activities(ctx), time.Now()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Edit saves the session, opens it in the editor and reloads it.
func (s *Session) Edit(ctx context.Context) ([]model.Booking, error) {
	if err := s.Save(ctx); err != nil {
		return nil, err
	}

	args := strings.Fields(s.Editor)
	if len(args) == 0 {
		args = []string{"vi"}
	}
	cmd := exec.CommandContext(ctx, args[0], append(args[1:], s.File)...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	if err := cmd.Run(); err != nil {
		s.logger().Printf("Warning: The editor reported a problem (%v)", err)
	}

	s.bookings = nil
	s.New = false
	return s.Bookings(ctx)
}

// Book submits the session bookings to every backend. A failing backend
// does not stop the others.
func (s *Session) Book(ctx context.Context) error {
	bookings, err := s.Bookings(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, backend := range s.Backends {
		if err := backend.Booker.Book(ctx, bookings); err != nil {
			s.logger().Printf("Error while booking to %s - %v", backend.Name, err)
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Close discards the session file.
func (s *Session) Close() error {
	s.bookings = nil
	if s.File == "" {
		return nil
	}
	if err := os.Remove(s.File); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Session) logger() *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return log.Default()
}
