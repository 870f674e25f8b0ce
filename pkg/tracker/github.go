package tracker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"

	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/harrisonrobin/timebook/pkg/model"
)

var githubPattern = regexp.MustCompile(`(([^/ ]+)/([^/]+)#([0-9]+))`)

const githubEndpoint = "https://api.github.com/graphql"

// GitHub resolves "owner/repo#123" references against the items of one
// organization project board. The board is loaded once per process.
type GitHub struct {
	Organization string
	ProjectNum   int
	Endpoint     string
	Client       *http.Client

	issues map[string]model.Issue
}

// NewGitHub authenticates requests with a personal access token.
func NewGitHub(ctx context.Context, token, organization string, projectNum int) *GitHub {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return &GitHub{
		Organization: organization,
		ProjectNum:   projectNum,
		Endpoint:     githubEndpoint,
		Client:       oauth2.NewClient(ctx, ts),
	}
}

func (g *GitHub) Name() string { return "github" }

func (g *GitHub) TicketPattern() *regexp.Regexp { return githubPattern }

type projectItem struct {
	FieldValueByName struct {
		TextValue struct {
			Text githubv4.String
		} `graphql:"... on ProjectV2ItemFieldTextValue"`
	} `graphql:"fieldValueByName(name: \"Contracts\")"`
	Content struct {
		Issue struct {
			Number     githubv4.Int
			Title      githubv4.String
			Repository struct {
				Owner struct {
					Login githubv4.String
				}
				Name githubv4.String
			}
		} `graphql:"... on Issue"`
	}
}

type projectItemsQuery struct {
	Organization struct {
		ProjectV2 struct {
			Items struct {
				Nodes    []projectItem
				PageInfo struct {
					EndCursor   githubv4.String
					HasNextPage githubv4.Boolean
				}
			} `graphql:"items(first: 100, after: $cursor)"`
		} `graphql:"projectV2(number: $projectNum)"`
	} `graphql:"organization(login: $organization)"`
}

func issueKey(owner, repo string, number int) string {
	return owner + "/" + repo + "#" + strconv.Itoa(number)
}

func (g *GitHub) load(ctx context.Context) error {
	client := githubv4.NewEnterpriseClient(g.Endpoint, g.Client)
	variables := map[string]any{
		"organization": githubv4.String(g.Organization),
		"projectNum":   githubv4.Int(g.ProjectNum),
		"cursor":       (*githubv4.String)(nil),
	}

	issues := make(map[string]model.Issue)
	for {
		var q projectItemsQuery
		if err := client.Query(ctx, &q, variables); err != nil {
			var urlErr *url.Error
			if errors.As(err, &urlErr) {
				return fmt.Errorf("%w: %v", ErrConnection, err)
			}
			return fmt.Errorf("github graphql: %w", err)
		}

		items := q.Organization.ProjectV2.Items
		for _, node := range items.Nodes {
			content := node.Content.Issue
			// draft cards and pull requests carry no issue repository
			if content.Repository.Name == "" {
				continue
			}
			issue := model.Issue{Tracker: "Development", Title: string(content.Title)}
			if text := string(node.FieldValueByName.TextValue.Text); text != "" {
				issue.Contracts = []string{text}
			}
			key := issueKey(string(content.Repository.Owner.Login), string(content.Repository.Name), int(content.Number))
			issues[key] = issue
		}
		if !items.PageInfo.HasNextPage {
			break
		}
		variables["cursor"] = githubv4.NewString(items.PageInfo.EndCursor)
	}
	g.issues = issues
	return nil
}

func (g *GitHub) GetIssue(ctx context.Context, id string) (*model.Issue, error) {
	if !matchesAtStart(githubPattern, id) {
		return nil, nil
	}
	m := githubPattern.FindStringSubmatch(id)
	number, err := strconv.Atoi(m[4])
	if err != nil {
		return nil, nil
	}
	if g.issues == nil {
		if err := g.load(ctx); err != nil {
			return nil, err
		}
	}
	issue, ok := g.issues[issueKey(m[2], m[3], number)]
	if !ok {
		return nil, fmt.Errorf("%w: %s is not on project %s/%d", ErrNotFound, id, g.Organization, g.ProjectNum)
	}
	return &issue, nil
}
