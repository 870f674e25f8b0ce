package harvest

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/harrisonrobin/timebook/pkg/history"
	"github.com/harrisonrobin/timebook/pkg/model"
)

type fakeHarvest struct {
	entries []map[string]any
	auth    string
	account string
}

func (f *fakeHarvest) handler(w http.ResponseWriter, r *http.Request) {
	f.auth = r.Header.Get("Authorization")
	f.account = r.Header.Get("Harvest-Account-Id")
	switch {
	case r.URL.Path == "/v2/projects" && r.URL.Query().Get("page") == "1":
		w.Write([]byte(`{"projects": [{"id": 11, "name": "Cynaptic", "code": "cynaptic_3000"}], "next_page": 2}`))
	case r.URL.Path == "/v2/projects" && r.URL.Query().Get("page") == "2":
		w.Write([]byte(`{"projects": [{"id": 12, "name": "R&R", "code": "rrzzaa"}, {"id": 13, "name": "No code", "code": ""}], "next_page": null}`))
	case r.URL.Path == "/v2/tasks":
		w.Write([]byte(`{"tasks": [{"id": 21, "name": "Development"}, {"id": 22, "name": "Meeting"}], "next_page": null}`))
	case r.URL.Path == "/v2/time_entries" && r.Method == http.MethodPost:
		var entry map[string]any
		json.NewDecoder(r.Body).Decode(&entry)
		if entry["task_id"] == float64(22) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"message": "Task is archived"}`))
			return
		}
		f.entries = append(f.entries, entry)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": 1}`))
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T) (*Client, *fakeHarvest, *bytes.Buffer) {
	t.Helper()
	fake := &fakeHarvest{}
	server := httptest.NewServer(http.HandlerFunc(fake.handler))
	t.Cleanup(server.Close)

	c := NewClient(context.Background(), server.URL, "4711", "secret-token")
	var buf bytes.Buffer
	c.Logger = log.New(&buf, "", 0)
	return c, fake, &buf
}

func TestCodes(t *testing.T) {
	c, fake, _ := newTestClient(t)
	codes, err := c.Codes(context.Background())
	if err != nil {
		t.Fatalf("Codes failed: %v", err)
	}
	if strings.Join(codes, ",") != "cynaptic_3000,rrzzaa" {
		t.Errorf("Expected codes of both pages, got %v", codes)
	}
	if fake.auth != "Bearer secret-token" {
		t.Errorf("Expected bearer token, got '%s'", fake.auth)
	}
	if fake.account != "4711" {
		t.Errorf("Expected account header 4711, got '%s'", fake.account)
	}
}

func TestBook(t *testing.T) {
	c, fake, buf := newTestClient(t)
	store := history.NewMemoryStore()
	c.History = store

	spentOn := time.Date(2024, 3, 20, 0, 0, 0, 0, time.Local)
	bookings := []model.Booking{
		{IssueID: "12345", IssueTitle: "Create user list", SpentOn: spentOn, Time: 90, Activity: "Development", Comments: "Added paging", Project: "cynaptic_3000"},
		{SpentOn: spentOn, Time: 30, Activity: "Development", Comments: "Mail", Project: "rrzzaa"},
		{IssueID: "555", SpentOn: spentOn, Time: 15, Activity: "Development", Project: "unknown"},
		{IssueID: "556", SpentOn: spentOn, Time: 15, Activity: "Meeting", Project: "rrzzaa"},
	}
	err := c.Book(context.Background(), bookings)
	if err == nil {
		t.Fatal("Expected an error for the unbookable entries")
	}

	if len(fake.entries) != 2 {
		t.Fatalf("Expected 2 time entries, got %d", len(fake.entries))
	}
	first := fake.entries[0]
	if first["notes"] != "[#12345] Create user list: Added paging" {
		t.Errorf("Unexpected notes: %v", first["notes"])
	}
	if first["hours"] != 1.5 || first["project_id"] != float64(11) || first["task_id"] != float64(21) || first["spent_date"] != "2024-03-20" {
		t.Errorf("Unexpected time entry: %v", first)
	}
	if fake.entries[1]["notes"] != "Mail" {
		t.Errorf("Expected plain comments without issue, got %v", fake.entries[1]["notes"])
	}

	if code, ok := store.Get("12345"); !ok || code != "cynaptic_3000" {
		t.Errorf("Expected booked project to be remembered, got %q", code)
	}
	if _, ok := store.Get("556"); ok {
		t.Error("Expected failed booking not to be remembered")
	}
	if !strings.Contains(buf.String(), "Task is archived (R&R, Meeting)") {
		t.Errorf("Expected harvest message to be logged, got %q", buf.String())
	}
}
