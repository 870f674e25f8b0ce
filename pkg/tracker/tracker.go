// Package tracker looks up issue metadata in issue trackers.
package tracker

import (
	"context"
	"errors"
	"log"
	"regexp"

	"github.com/harrisonrobin/timebook/pkg/model"
)

var (
	// ErrNotFound means the tracker has no record of the issue.
	ErrNotFound = errors.New("issue not found")
	// ErrConnection means the tracker could not be reached.
	ErrConnection = errors.New("tracker unreachable")
)

// Tracker resolves ticket ids to issue metadata.
//
// GetIssue returns (nil, nil) for ids that are not this tracker's, e.g. a
// Redmine number asked of Jira. Failures wrap ErrNotFound or ErrConnection.
type Tracker interface {
	Name() string
	TicketPattern() *regexp.Regexp
	GetIssue(ctx context.Context, id string) (*model.Issue, error)
}

// Patterns returns the ticket patterns of trackers in order.
func Patterns(trackers []Tracker) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(trackers))
	for _, t := range trackers {
		patterns = append(patterns, t.TicketPattern())
	}
	return patterns
}

// Resolver asks trackers in order and takes the first answer.
type Resolver struct {
	trackers []Tracker
	logger   *log.Logger
}

func NewResolver(trackers []Tracker, logger *log.Logger) *Resolver {
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{trackers: trackers, logger: logger}
}

// ResolveIssue returns the metadata of the first tracker that knows id, or
// nil. Tracker failures are logged and skipped.
func (r *Resolver) ResolveIssue(ctx context.Context, id string) *model.Issue {
	if id == "" {
		return nil
	}
	for _, t := range r.trackers {
		issue, err := t.GetIssue(ctx, id)
		switch {
		case errors.Is(err, ErrNotFound):
			r.logger.Printf("Warning: could not find issue %s in %s: %v", id, t.Name(), err)
			continue
		case errors.Is(err, ErrConnection):
			r.logger.Printf("Warning: could not reach %s for issue %s: %v", t.Name(), id, err)
			continue
		case err != nil:
			r.logger.Printf("Warning: %s failed to look up issue %s: %v", t.Name(), id, err)
			continue
		}
		if issue != nil {
			return issue
		}
	}
	return nil
}

// ResolveTitle returns the issue title, or "" when no tracker knows id.
func (r *Resolver) ResolveTitle(ctx context.Context, id string) string {
	if issue := r.ResolveIssue(ctx, id); issue != nil {
		return issue.Title
	}
	return ""
}
