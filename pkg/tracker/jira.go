package tracker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"

	jira "github.com/andygrunwald/go-jira"

	"github.com/harrisonrobin/timebook/pkg/model"
)

var jiraPattern = regexp.MustCompile(`#?([A-Z]+-[0-9]+)`)

// DefaultJiraContractsField is the cascading select holding contract labels.
const DefaultJiraContractsField = "customfield_10902"

// Jira looks up issues through the Jira REST API v2 and books worklogs.
type Jira struct {
	URL            string
	User           string
	Password       string
	ContractsField string
	Logger         *log.Logger

	client *jira.Client
}

func NewJira(baseURL, user, password string) *Jira {
	return &Jira{
		URL:            strings.TrimRight(baseURL, "/"),
		User:           user,
		Password:       password,
		ContractsField: DefaultJiraContractsField,
	}
}

func (j *Jira) Name() string { return "jira" }

func (j *Jira) TicketPattern() *regexp.Regexp { return jiraPattern }

func (j *Jira) api() (*jira.Client, error) {
	if j.client != nil {
		return j.client, nil
	}
	tp := jira.BasicAuthTransport{Username: j.User, Password: j.Password}
	client, err := jira.NewClient(tp.Client(), j.URL)
	if err != nil {
		return nil, fmt.Errorf("jira client: %w", err)
	}
	j.client = client
	return client, nil
}

// jiraError maps go-jira failures onto the tracker sentinels.
func jiraError(resp *jira.Response, err error) error {
	switch {
	case resp == nil || resp.Response == nil:
		return fmt.Errorf("%w: %v", ErrConnection, err)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

// cascadingChild returns the child value of a cascading select field.
func cascadingChild(value any) string {
	option, ok := value.(map[string]any)
	if !ok {
		return ""
	}
	child, ok := option["child"].(map[string]any)
	if !ok {
		return ""
	}
	s, _ := child["value"].(string)
	return s
}

func (j *Jira) GetIssue(ctx context.Context, id string) (*model.Issue, error) {
	if !matchesAtStart(jiraPattern, id) {
		return nil, nil
	}
	api, err := j.api()
	if err != nil {
		return nil, err
	}
	key := strings.TrimPrefix(id, "#")
	opts := &jira.GetQueryOptions{
		Fields: strings.Join([]string{"summary", "project", "issuetype", j.ContractsField}, ","),
	}
	found, resp, err := api.Issue.GetWithContext(ctx, key, opts)
	if err != nil {
		return nil, jiraError(resp, err)
	}

	issue := &model.Issue{}
	if found.Fields == nil {
		return issue, nil
	}
	issue.Title = found.Fields.Summary
	issue.Project = found.Fields.Project.Key
	issue.Tracker = found.Fields.Type.Name
	if contract := cascadingChild(found.Fields.Unknowns[j.ContractsField]); contract != "" {
		issue.Contracts = []string{contract}
	}
	return issue, nil
}

// Book adds a worklog to every booking that references a Jira issue.
func (j *Jira) Book(ctx context.Context, bookings []model.Booking) error {
	api, err := j.api()
	if err != nil {
		return err
	}
	var errs []error
	for _, entry := range bookings {
		if !matchesAtStart(jiraPattern, entry.IssueID) {
			continue
		}
		started := jira.Time(entry.SpentOn)
		record := &jira.WorklogRecord{
			Comment:          entry.Comments,
			Started:          &started,
			TimeSpentSeconds: int((time.Duration(entry.Time * float64(time.Minute))).Seconds()),
		}
		key := strings.TrimPrefix(entry.IssueID, "#")
		if _, resp, err := api.Issue.AddWorklogRecordWithContext(ctx, key, record); err != nil {
			err = jiraError(resp, err)
			j.logger().Printf("Error booking %s to jira: %v (%s)", entry.IssueID, err, entry.Comments)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (j *Jira) logger() *log.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return log.Default()
}
