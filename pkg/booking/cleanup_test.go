package booking

import (
	"bytes"
	"log"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/harrisonrobin/timebook/pkg/model"
)

var spentOn = time.Date(2016, 5, 31, 0, 0, 0, 0, time.Local)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestCleanUpSingleKept(t *testing.T) {
	bookings := []model.Booking{
		{Description: "book time", Category: "Work", SpentOn: spentOn, Time: 20.0},
		{Description: "Gemeinsame Durchsuchbarkeit", Category: "Work", IssueID: "X", SpentOn: spentOn, Time: 420.0},
	}
	cleaned := CleanUp(bookings, log.New(&bytes.Buffer{}, "", 0))
	if len(cleaned) != 1 {
		t.Fatalf("Expected 1 booking, got %d", len(cleaned))
	}
	if cleaned[0].Time != 440.0 {
		t.Errorf("Expected all removed time on the single entry (440), got %v", cleaned[0].Time)
	}
	if TimeSum(cleaned) != TimeSum(bookings) {
		t.Errorf("Expected work time to be conserved, got %v", TimeSum(cleaned))
	}
}

func TestCleanUpBookings(t *testing.T) {
	bookings := []model.Booking{
		{Activity: "Development", Category: "Work", Description: "book time", SpentOn: spentOn, Time: 20.0},
		{Activity: "Development", Category: "Work", Description: "Gemeinsame Durchsuchbarkeit #toechter", IssueID: "TOE-1", Project: "Töchter", Tags: []string{"toechter"}, SpentOn: spentOn, Time: 420.0},
		{Activity: "Development", Category: "Day-to-day", Description: "break", SpentOn: spentOn, Time: 60.0},
		{Activity: "SCRUM Meetings", Category: "Work", Description: "daily scrum #13572", IssueID: "13572", IssueTitle: "PM KW 34", Project: "Internals", SpentOn: spentOn, Time: 20.0},
		{Activity: "Development", Category: "Work", Description: `Suche liefert "Unzureichende Berechtigungen" #13678`, IssueID: "13678", Project: "Töchter", SpentOn: spentOn, Time: 85.0},
	}
	var buf bytes.Buffer
	cleaned := CleanUp(bookings, log.New(&buf, "", 0))

	wantDesc := []string{
		"Gemeinsame Durchsuchbarkeit #toechter",
		"break",
		"daily scrum #13572",
		`Suche liefert "Unzureichende Berechtigungen" #13678`,
	}
	wantTime := []float64{436.0, 60.0, 20.761904761904762, 88.238095238095238}
	if len(cleaned) != len(wantDesc) {
		t.Fatalf("Expected %d bookings, got %d: %+v", len(wantDesc), len(cleaned), cleaned)
	}
	for i := range wantDesc {
		if cleaned[i].Description != wantDesc[i] {
			t.Errorf("Booking %d: expected %q, got %q", i, wantDesc[i], cleaned[i].Description)
		}
		if !approx(cleaned[i].Time, wantTime[i]) {
			t.Errorf("Booking %d: expected time %v, got %v", i, wantTime[i], cleaned[i].Time)
		}
	}
	if buf.Len() != 0 {
		t.Errorf("Expected no warnings, got %q", buf.String())
	}
	if bookings[1].Time != 420.0 {
		t.Errorf("Expected input bookings to stay untouched, got %v", bookings[1].Time)
	}
}

func TestCleanUpNothingKept(t *testing.T) {
	bookings := []model.Booking{
		{Description: "emails", Category: "Work", Time: 30.0},
		{Description: "lunch", Category: "Day-to-day", Time: 45.0},
	}
	cleaned := CleanUp(bookings, log.New(&bytes.Buffer{}, "", 0))
	if len(cleaned) != 1 || cleaned[0].Description != "emails" || cleaned[0].Time != 30.0 {
		t.Errorf("Expected the removed booking unchanged, got %+v", cleaned)
	}
}

func TestCleanUpWarnings(t *testing.T) {
	bookings := []model.Booking{
		{Description: "small", Category: "Work", Time: 10.0},
		{Description: "big", Category: "Work", Time: 50.0},
		{Description: "ticket", Category: "Work", IssueID: "A-1", Time: 100.0},
		{Description: "sleeping", Category: "Day-to-day", Time: 200.0},
	}
	var buf bytes.Buffer
	cleaned := CleanUp(bookings, log.New(&buf, "", 0))

	out := buf.String()
	if !strings.Contains(out, "Warning: ignored time is 200") {
		t.Errorf("Expected ignored time warning, got %q", out)
	}
	if !strings.Contains(out, "Warning: removed time is 60 ( 1:00) (37.50%)") {
		t.Errorf("Expected removed time warning, got %q", out)
	}
	big, small := strings.Index(out, "Removed big (50)"), strings.Index(out, "Removed small (10)")
	if big < 0 || small < 0 || big > small {
		t.Errorf("Expected removed entries in descending time order, got %q", out)
	}

	if len(cleaned) != 2 || cleaned[0].Time != 160.0 || cleaned[1].Time != 200.0 {
		t.Errorf("Expected ticket 160 and untouched ignored entry, got %+v", cleaned)
	}
}

func TestCleanUpNonWorkKeptNotRedistributed(t *testing.T) {
	bookings := []model.Booking{
		{Description: "misc", Category: "Work", Time: 30.0},
		{Description: "dev", Category: "Work", IssueID: "A-1", Time: 60.0},
		{Description: "meeting", Category: "Internal", IssueID: "A-2", Time: 60.0},
	}
	cleaned := CleanUp(bookings, log.New(&bytes.Buffer{}, "", 0))
	if len(cleaned) != 2 || cleaned[0].Time != 75.0 || cleaned[1].Time != 60.0 {
		t.Errorf("Expected only the work entry to gain time (75, 60), got %+v", cleaned)
	}
}

func TestCleanUpNothingWithIssue(t *testing.T) {
	bookings := []model.Booking{
		{Description: "emails", Category: "Work", SpentOn: spentOn, Time: 30.0},
		{Description: "Lunch", Category: "Day-to-day", SpentOn: spentOn, Time: 45.0},
		{Description: "standup", Category: "Work", SpentOn: spentOn, Time: 15.0},
	}
	cleaned := CleanUp(bookings, log.New(&bytes.Buffer{}, "", 0))
	if len(cleaned) != 2 {
		t.Fatalf("Expected only the work bookings, got %+v", cleaned)
	}
	if cleaned[0].Description != "emails" || cleaned[0].Time != 30.0 || cleaned[1].Description != "standup" || cleaned[1].Time != 15.0 {
		t.Errorf("Expected work bookings unchanged, got %+v", cleaned)
	}
	if len(bookings) != 3 || bookings[1].Description != "Lunch" {
		t.Errorf("Expected input to be left intact, got %+v", bookings)
	}
}
