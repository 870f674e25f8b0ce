package timewarrior

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"testing"
	"time"
)

const export = `[
	{"id": 3, "start": "20240320T080000Z", "end": "20240320T093000Z", "tags": ["DMY-312", "work"], "annotation": "DMY-312 creation script"},
	{"id": 2, "start": "20240320T100000Z", "end": "20240320T101500Z", "tags": ["standup"]},
	{"id": 1, "start": "20240320T130000Z", "tags": ["DMY-312", "review"], "annotation": "DMY-312 creation script"}
]`

var jiraPattern = regexp.MustCompile(`#?([A-Z]+-[0-9]+)`)

func TestParseIntervals(t *testing.T) {
	intervals, err := ParseIntervals(strings.NewReader(export))
	if err != nil {
		t.Fatalf("ParseIntervals failed: %v", err)
	}
	if len(intervals) != 3 {
		t.Fatalf("Expected 3 intervals, got %d", len(intervals))
	}

	expectedStart, _ := time.Parse(time.RFC3339, "2024-03-20T08:00:00Z")
	if !intervals[0].Start.Time.Equal(expectedStart) {
		t.Errorf("Expected Start %v, got %v", expectedStart, intervals[0].Start.Time)
	}
	if intervals[2].End != nil {
		t.Errorf("Expected open interval to have no end, got %v", intervals[2].End)
	}
	if got := intervals[1].Description(); got != "standup" {
		t.Errorf("Expected tags as description, got '%s'", got)
	}
}

func TestBookings(t *testing.T) {
	intervals, err := ParseIntervals(strings.NewReader(export))
	if err != nil {
		t.Fatalf("ParseIntervals failed: %v", err)
	}
	date := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 3, 20, 13, 45, 0, 0, time.UTC)
	loginfo := map[string][]string{"DMY-312": {"Extended creation script"}}

	bookings := Bookings(intervals, date, loginfo, []*regexp.Regexp{jiraPattern}, now)
	if len(bookings) != 2 {
		t.Fatalf("Expected 2 bookings, got %d", len(bookings))
	}
	if bookings[0].Time != 135 || bookings[0].IssueID != "DMY-312" {
		t.Errorf("Expected 135 minutes on DMY-312, got %+v", bookings[0])
	}
	if bookings[0].Comments != "Extended creation script" {
		t.Errorf("Expected commit comments, got '%s'", bookings[0].Comments)
	}
	if strings.Join(bookings[0].Tags, ",") != "DMY-312,work,review" {
		t.Errorf("Expected merged interval tags, got %v", bookings[0].Tags)
	}
	if bookings[1].Time != 15 || bookings[1].IssueID != "" {
		t.Errorf("Unexpected standup booking: %+v", bookings[1])
	}
}

func TestRoundTripTime(t *testing.T) {
	ct := CustomTime{time.Date(2024, 3, 20, 8, 0, 0, 0, time.UTC)}
	b, err := ct.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `"20240320T080000Z"` {
		t.Errorf("Expected \"20240320T080000Z\", got %s", b)
	}
}

func TestLogTimeInfo(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses a shell script as timew")
	}
	dir := t.TempDir()
	data := filepath.Join(dir, "export.json")
	if err := os.WriteFile(data, []byte(export), 0600); err != nil {
		t.Fatal(err)
	}
	script := filepath.Join(dir, "timew")
	if err := os.WriteFile(script, []byte("#!/bin/sh\ncat "+data+"\n"), 0700); err != nil {
		t.Fatal(err)
	}

	l := NewLog(NewClient(script), []*regexp.Regexp{jiraPattern})
	l.Now = func() time.Time { return time.Date(2024, 3, 20, 13, 45, 0, 0, time.UTC) }
	bookings, err := l.TimeInfo(context.Background(), time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC), nil, nil)
	if err != nil {
		t.Fatalf("TimeInfo failed: %v", err)
	}
	if len(bookings) != 2 {
		t.Errorf("Expected 2 bookings, got %d", len(bookings))
	}
}

func TestClientCommandFailure(t *testing.T) {
	c := NewClient(filepath.Join(t.TempDir(), "missing-timew"))
	if _, err := c.Intervals(context.Background(), time.Now(), time.Now()); err == nil {
		t.Error("Expected an error for a missing binary")
	}
}
