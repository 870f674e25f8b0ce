package target

import (
	"context"
	"log"

	"github.com/harrisonrobin/timebook/pkg/model"
)

// IssueResolver looks up issue metadata. *tracker.Resolver satisfies it.
type IssueResolver interface {
	ResolveIssue(ctx context.Context, id string) *model.Issue
}

// Targeter combines issue lookups with guessing to find a booking's target.
type Targeter struct {
	Resolver IssueResolver
	Guesser  *Guesser
	Logger   *log.Logger
}

func NewTargeter(resolver IssueResolver, guesser *Guesser, logger *log.Logger) *Targeter {
	if logger == nil {
		logger = log.Default()
	}
	return &Targeter{Resolver: resolver, Guesser: guesser, Logger: logger}
}

// Target returns the billing project code and task for entry. known lists
// the billing backend's project codes. An empty project means no match.
func (t *Targeter) Target(ctx context.Context, entry model.Booking, known []string) (string, string) {
	hint := Hint{IssueID: entry.IssueID, Description: entry.Description}
	if entry.IssueID != "" && t.Resolver != nil {
		if issue := t.Resolver.ResolveIssue(ctx, entry.IssueID); issue != nil {
			hint.Project = issue.Project
			hint.Tracker = issue.Tracker
			hint.Contracts = issue.Contracts
		}
	}

	knownSet := make(map[string]bool, len(known))
	for _, code := range known {
		knownSet[code] = true
	}
	for _, tag := range entry.Tags {
		if knownSet[tag] {
			hint.Project = tag
		}
	}
	if knownSet[entry.Category] {
		hint.Project = entry.Category
	}

	project := t.Guesser.GuessProject(known, hint)
	if project == "" && (hint.Project != "" || hint.Tracker != "" || len(hint.Contracts) > 0) {
		t.Logger.Printf("No project match for %s, %s, %v, %s", hint.Project, hint.Tracker, hint.Contracts, entry.Description)
	}
	return project, t.Guesser.GuessTask(project, entry.Description)
}
