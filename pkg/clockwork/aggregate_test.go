package clockwork

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/harrisonrobin/timebook/pkg/model"
)

func testFacts() []model.Fact {
	return []model.Fact{
		{Description: "Improve usability #cgui-support", IssueID: "CGUI-417", SpentOn: day(2019, 11, 14), Time: 32.0},
		{Description: "Improve usability #cgui-support", IssueID: "CGUI-417", SpentOn: day(2019, 11, 15), Time: 45.0},
		{Description: "Improve usability #cgui-support", IssueID: "CGUI-417", SpentOn: day(2019, 11, 15), Time: 23.0},
	}
}

func TestAggregate(t *testing.T) {
	loginfo := map[string][]string{"CGUI-417": {"Fix button", "Add tooltip"}}
	bookings := Aggregate(testFacts(), day(2019, 11, 15), loginfo)

	want := []model.Booking{{
		IssueID:     "CGUI-417",
		SpentOn:     day(2019, 11, 15),
		Time:        68.0,
		Description: "Improve usability #cgui-support",
		Activity:    "none",
		Comments:    "Fix button. Add tooltip",
		Category:    "Work",
		Tags:        []string{"cgui-support"},
	}}
	if !reflect.DeepEqual(bookings, want) {
		t.Errorf("Expected %+v, got %+v", want, bookings)
	}
}

func TestAggregateIsIdempotent(t *testing.T) {
	facts := testFacts()
	first := Aggregate(facts, day(2019, 11, 15), nil)
	second := Aggregate(facts, day(2019, 11, 15), nil)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expected identical bookings, got %+v and %+v", first, second)
	}
	if facts[1].Time != 45.0 {
		t.Errorf("Expected facts to stay untouched, got %+v", facts[1])
	}
}

func TestAggregateKeepsDaysApart(t *testing.T) {
	p, _ := newTestParser(day(2020, 1, 1))
	facts := p.Facts(lines("2019-11-14:\n0800 Review\n0900\n2019-11-15:\n0800 Review\n0830\n"))
	bookings := Aggregate(facts, day(2019, 11, 14), nil)
	if len(bookings) != 1 || bookings[0].Time != 60.0 {
		t.Errorf("Expected one booking of 60 minutes, got %+v", bookings)
	}
}

func writeLog(t *testing.T, path, data string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatalf("could not write %s: %v", path, err)
	}
}

func TestReadRawSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "time_log.txt")
	data := "2019-11-15:\n0850 Framework Meeting PLN-159\n0930\n"
	writeLog(t, path, data)

	got, err := ReadRaw(path)
	if err != nil {
		t.Fatalf("ReadRaw failed: %v", err)
	}
	if strings.Join(got, "\n")+"\n" != data {
		t.Errorf("Expected %q, got %q", data, got)
	}
}

func TestReadRawDirectoryAndGlob(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, filepath.Join(dir, "log1.txt"), "2019-11-15:\n0850 Framework Meeting PLN-159\n0930\n")
	writeLog(t, filepath.Join(dir, "log2.org"), "2019-11-16:\n0800 Fix login\n0845\n")

	all, err := ReadRaw(dir)
	if err != nil {
		t.Fatalf("ReadRaw failed: %v", err)
	}
	if len(all) != 6 || all[0] != "2019-11-15:" || all[3] != "2019-11-16:" {
		t.Errorf("Expected both files in name order, got %q", all)
	}

	txt, err := ReadRaw(filepath.Join(dir, "*.txt"))
	if err != nil {
		t.Fatalf("ReadRaw failed: %v", err)
	}
	if len(txt) != 3 || txt[1] != "0850 Framework Meeting PLN-159" {
		t.Errorf("Expected only log1.txt, got %q", txt)
	}
}

func TestLogTimeInfo(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "time_log.txt")
	writeLog(t, path, "2019-11-15:\n0850 Framework Meeting PLN-159\n0930\n")
	p, _ := newTestParser(day(2020, 1, 1))

	bookings, err := NewLog(path, p).TimeInfo(context.Background(), day(2019, 11, 15), nil, nil)
	if err != nil {
		t.Fatalf("TimeInfo failed: %v", err)
	}
	if len(bookings) != 1 || bookings[0].IssueID != "PLN-159" || bookings[0].Time != 40.0 {
		t.Errorf("Expected one 40 minute PLN-159 booking, got %+v", bookings)
	}
}
