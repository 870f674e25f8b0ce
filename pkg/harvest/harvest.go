// Package harvest books time entries to Harvest and supplies the project
// codes bookings are matched against.
package harvest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2"

	"github.com/harrisonrobin/timebook/pkg/history"
	"github.com/harrisonrobin/timebook/pkg/model"
)

// DefaultURL is the Harvest v2 API.
const DefaultURL = "https://api.harvestapp.com"

// Client talks to the Harvest v2 API of one account. Projects and tasks are
// fetched once and cached.
type Client struct {
	URL       string
	AccountID string
	Client    *http.Client
	// History is updated with the project of every booked issue. May be nil.
	History history.Store
	Logger  *log.Logger

	projects []model.Project
	tasks    []model.Task
}

// NewClient authenticates with a personal access token.
func NewClient(ctx context.Context, baseURL, accountID, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return &Client{
		URL:       strings.TrimRight(baseURL, "/"),
		AccountID: accountID,
		Client:    oauth2.NewClient(ctx, ts),
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.URL+path, r)
	if err != nil {
		return err
	}
	req.Header.Set("Harvest-Account-Id", c.AccountID)
	req.Header.Set("User-Agent", "timebook")
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode > 299 {
		var msg struct {
			Message string `json:"message"`
		}
		raw, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(raw, &msg) == nil && msg.Message != "" {
			return fmt.Errorf("%s %s returned %d: %s", method, path, resp.StatusCode, msg.Message)
		}
		return fmt.Errorf("%s %s returned %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Projects returns the active projects of the account.
func (c *Client) Projects(ctx context.Context) ([]model.Project, error) {
	if c.projects != nil {
		return c.projects, nil
	}
	projects := []model.Project{}
	page := 1
	for page != 0 {
		var raw struct {
			Projects []struct {
				ID   int64  `json:"id"`
				Name string `json:"name"`
				Code string `json:"code"`
			} `json:"projects"`
			NextPage *int `json:"next_page"`
		}
		if err := c.do(ctx, http.MethodGet, "/v2/projects?is_active=true&page="+strconv.Itoa(page), nil, &raw); err != nil {
			return nil, fmt.Errorf("could not get harvest projects: %w", err)
		}
		for _, p := range raw.Projects {
			projects = append(projects, model.Project{ID: p.ID, Code: p.Code, Name: p.Name})
		}
		page = 0
		if raw.NextPage != nil {
			page = *raw.NextPage
		}
	}
	c.projects = projects
	return projects, nil
}

// Codes returns the codes of the active projects.
func (c *Client) Codes(ctx context.Context) ([]string, error) {
	projects, err := c.Projects(ctx)
	if err != nil {
		return nil, err
	}
	codes := make([]string, 0, len(projects))
	for _, p := range projects {
		if p.Code != "" {
			codes = append(codes, p.Code)
		}
	}
	return codes, nil
}

// Tasks returns the active tasks of the account.
func (c *Client) Tasks(ctx context.Context) ([]model.Task, error) {
	if c.tasks != nil {
		return c.tasks, nil
	}
	tasks := []model.Task{}
	page := 1
	for page != 0 {
		var raw struct {
			Tasks []struct {
				ID   int64  `json:"id"`
				Name string `json:"name"`
			} `json:"tasks"`
			NextPage *int `json:"next_page"`
		}
		if err := c.do(ctx, http.MethodGet, "/v2/tasks?is_active=true&page="+strconv.Itoa(page), nil, &raw); err != nil {
			return nil, fmt.Errorf("could not get harvest tasks: %w", err)
		}
		for _, t := range raw.Tasks {
			tasks = append(tasks, model.Task{ID: t.ID, Name: t.Name})
		}
		page = 0
		if raw.NextPage != nil {
			page = *raw.NextPage
		}
	}
	c.tasks = tasks
	return tasks, nil
}

// Activities returns the tasks in the shape of booking activities.
func (c *Client) Activities(ctx context.Context) ([]model.Activity, error) {
	tasks, err := c.Tasks(ctx)
	if err != nil {
		return nil, err
	}
	activities := make([]model.Activity, 0, len(tasks))
	for _, t := range tasks {
		activities = append(activities, model.Activity{ID: t.ID, Name: t.Name})
	}
	return activities, nil
}

// Notes formats the time entry notes of b.
func Notes(b model.Booking) string {
	if b.IssueID == "" {
		return b.Comments
	}
	return fmt.Sprintf("[#%s] %s: %s", b.IssueID, b.IssueTitle, b.Comments)
}

// Book creates one time entry per booking. The booking's Project is a
// project code and its Activity a task name. Bookings without a known
// project or task are reported and skipped.
func (c *Client) Book(ctx context.Context, bookings []model.Booking) error {
	projects, err := c.Projects(ctx)
	if err != nil {
		return err
	}
	tasks, err := c.Tasks(ctx)
	if err != nil {
		return err
	}
	projectByCode := make(map[string]model.Project, len(projects))
	for _, p := range projects {
		projectByCode[p.Code] = p
	}
	taskByName := make(map[string]model.Task, len(tasks))
	for _, t := range tasks {
		taskByName[t.Name] = t
	}

	var errs []error
	for _, entry := range bookings {
		project, ok := projectByCode[entry.Project]
		if !ok {
			err := fmt.Errorf("no harvest project %q for %s", entry.Project, entry.Description)
			c.logger().Printf("Error booking to harvest: %v", err)
			errs = append(errs, err)
			continue
		}
		task, ok := taskByName[entry.Activity]
		if !ok {
			err := fmt.Errorf("no harvest task %q for %s", entry.Activity, entry.Description)
			c.logger().Printf("Error booking to harvest: %v", err)
			errs = append(errs, err)
			continue
		}

		timeEntry := map[string]any{
			"project_id": project.ID,
			"task_id":    task.ID,
			"spent_date": entry.SpentOn.Format("2006-01-02"),
			"hours":      entry.Hours(),
			"notes":      Notes(entry),
		}
		if err := c.do(ctx, http.MethodPost, "/v2/time_entries", timeEntry, nil); err != nil {
			c.logger().Printf("%v (%s, %s)", err, project.Name, task.Name)
			errs = append(errs, err)
			continue
		}

		if c.History != nil && entry.IssueID != "" {
			if err := c.History.Set(entry.IssueID, project.Code); err != nil {
				c.logger().Printf("Warning: could not remember project of %s: %v", entry.IssueID, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (c *Client) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.Default()
}
