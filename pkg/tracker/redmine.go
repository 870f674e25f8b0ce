package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/harrisonrobin/timebook/pkg/model"
)

var redminePattern = regexp.MustCompile(`#?([0-9]+)`)

// Redmine looks up issues through the Redmine JSON API and books time
// entries. APIKey takes precedence over User/Password.
type Redmine struct {
	URL      string
	User     string
	Password string
	APIKey   string
	Client   *http.Client
	Logger   *log.Logger

	activities []model.Activity
}

func NewRedmine(baseURL, user, password string) *Redmine {
	return &Redmine{URL: strings.TrimRight(baseURL, "/"), User: user, Password: password}
}

func (r *Redmine) Name() string { return "redmine" }

func (r *Redmine) TicketPattern() *regexp.Regexp { return redminePattern }

type redmineIssue struct {
	Issue struct {
		Subject string `json:"subject"`
		Project struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"project"`
		Tracker struct {
			Name string `json:"name"`
		} `json:"tracker"`
		CustomFields []struct {
			Name  string          `json:"name"`
			Value json.RawMessage `json:"value"`
		} `json:"custom_fields"`
	} `json:"issue"`
}

func (r *Redmine) request(method, path string, body any) (*http.Request, error) {
	var req *http.Request
	var err error
	if body != nil {
		b, jerr := jsonBody(body)
		if jerr != nil {
			return nil, jerr
		}
		req, err = http.NewRequest(method, r.URL+path, b)
		if err == nil {
			req.Header.Set("Content-Type", "application/json")
		}
	} else {
		req, err = http.NewRequest(method, r.URL+path, nil)
	}
	if err != nil {
		return nil, err
	}
	if r.APIKey != "" {
		req.Header.Set("X-Redmine-API-Key", r.APIKey)
	} else if r.User != "" {
		req.SetBasicAuth(r.User, r.Password)
	}
	return req, nil
}

func issueNumber(id string) (int64, bool) {
	if !matchesAtStart(redminePattern, id) {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimPrefix(id, "#"), 10, 64)
	return n, err == nil
}

func (r *Redmine) GetIssue(ctx context.Context, id string) (*model.Issue, error) {
	number, ok := issueNumber(id)
	if !ok {
		return nil, nil
	}
	req, err := r.request(http.MethodGet, fmt.Sprintf("/issues/%d.json", number), nil)
	if err != nil {
		return nil, err
	}
	var raw redmineIssue
	if err := doJSON(ctx, r.Client, req, &raw); err != nil {
		return nil, err
	}

	issue := &model.Issue{
		Tracker: raw.Issue.Tracker.Name,
		Title:   raw.Issue.Subject,
	}
	identifier, err := r.projectIdentifier(ctx, raw.Issue.Project.ID)
	if err != nil {
		r.logger().Printf("Warning: could not get project identifier: %s; %v", raw.Issue.Project.Name, err)
	}
	issue.Project = identifier

	for _, field := range raw.Issue.CustomFields {
		if !strings.HasPrefix(field.Name, "Contracts") {
			continue
		}
		issue.Contracts = append(issue.Contracts, customFieldValues(field.Value)...)
	}
	return issue, nil
}

// customFieldValues handles both single and multi-value custom fields.
func customFieldValues(raw json.RawMessage) []string {
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single == "" {
			return nil
		}
		return []string{single}
	}
	var multi []string
	if err := json.Unmarshal(raw, &multi); err == nil {
		return multi
	}
	return nil
}

func (r *Redmine) projectIdentifier(ctx context.Context, projectID int64) (string, error) {
	req, err := r.request(http.MethodGet, fmt.Sprintf("/projects/%d.json", projectID), nil)
	if err != nil {
		return "", err
	}
	var raw struct {
		Project struct {
			Identifier string `json:"identifier"`
		} `json:"project"`
	}
	if err := doJSON(ctx, r.Client, req, &raw); err != nil {
		return "", err
	}
	return raw.Project.Identifier, nil
}

// Activities returns the time entry activities, fetched once.
func (r *Redmine) Activities(ctx context.Context) ([]model.Activity, error) {
	if r.activities != nil {
		return r.activities, nil
	}
	req, err := r.request(http.MethodGet, "/enumerations/time_entry_activities.json", nil)
	if err != nil {
		return nil, err
	}
	var raw struct {
		Activities []struct {
			ID        int64  `json:"id"`
			Name      string `json:"name"`
			IsDefault bool   `json:"is_default"`
		} `json:"time_entry_activities"`
	}
	if err := doJSON(ctx, r.Client, req, &raw); err != nil {
		return nil, fmt.Errorf("could not get redmine activities: %w", err)
	}
	activities := make([]model.Activity, 0, len(raw.Activities))
	for _, act := range raw.Activities {
		activities = append(activities, model.Activity{ID: act.ID, Name: act.Name, IsDefault: act.IsDefault})
	}
	r.activities = activities
	return activities, nil
}

// Book creates a time entry for every booking that references a Redmine
// issue. Unknown activities fall back to the default activity.
func (r *Redmine) Book(ctx context.Context, bookings []model.Booking) error {
	activities, err := r.Activities(ctx)
	if err != nil {
		r.logger().Printf("Warning: %v", err)
	}
	byName := make(map[string]model.Activity, len(activities))
	for _, act := range activities {
		byName[act.Name] = act
	}
	fallback := model.DefaultActivity(activities)

	var errs []error
	for _, entry := range bookings {
		number, ok := issueNumber(entry.IssueID)
		if !ok {
			continue
		}
		act, ok := byName[entry.Activity]
		if !ok {
			act = fallback
		}
		timeEntry := map[string]any{
			"issue_id": number,
			"spent_on": entry.SpentOn.Format("2006-01-02"),
			"hours":    entry.Hours(),
			"comments": entry.Comments,
		}
		if act.ID != 0 {
			timeEntry["activity_id"] = act.ID
		}
		req, err := r.request(http.MethodPost, "/time_entries.json", map[string]any{"time_entry": timeEntry})
		if err == nil {
			err = doJSON(ctx, r.Client, req, nil)
		}
		if err != nil {
			r.logger().Printf("Error booking #%d to redmine: %v (%s)", number, err, entry.Comments)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Redmine) logger() *log.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return log.Default()
}
