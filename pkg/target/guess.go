// Package target decides which billing project and task a booking goes to.
package target

import (
	"strings"

	"github.com/harrisonrobin/timebook/pkg/history"
)

// TaskRule assigns Task to bookings mentioning Keyword.
type TaskRule struct {
	Keyword string
	Task    string
}

// Hint is what is known about a booking's project before guessing.
type Hint struct {
	IssueID     string
	Project     string // tracker project, or a tag/category override
	Tracker     string
	Contracts   []string
	Description string
}

// Guesser maps hints to billing project codes and task names.
type Guesser struct {
	// ProjectMapping maps tracker project names to billing project codes.
	ProjectMapping map[string]string
	// TaskRules are tried in order.
	TaskRules   []TaskRule
	DefaultTask string
	// History is consulted when nothing else matches. May be nil.
	History history.Store
}

// GuessProject returns the billing project code for hint, or "" when there
// is no match. known lists the codes of the billing backend.
func (g *Guesser) GuessProject(known []string, hint Hint) string {
	project := hint.Project
	if project != "" {
		if code, ok := g.ProjectMapping[project]; ok {
			return code
		}
		for _, code := range known {
			if code == project {
				return code
			}
		}
	}

	for _, contract := range hint.Contracts {
		if contract == "" {
			continue
		}
		for _, code := range known {
			if code == contract {
				return code
			}
		}
		lower := strings.ToLower(contract)
		for _, code := range known {
			if strings.Contains(strings.ToLower(code), lower) {
				return code
			}
		}
	}

	if project != "" {
		lower := strings.ToLower(project)
		for _, code := range known {
			lowerCode := strings.ToLower(code)
			if strings.HasPrefix(lower, lowerCode) || strings.HasPrefix(lowerCode, lower) {
				return code
			}
		}
	}

	if g.History != nil && hint.IssueID != "" {
		if code, ok := g.History.Get(hint.IssueID); ok {
			return code
		}
	}
	return ""
}

// GuessTask returns the task of the first rule whose keyword occurs in the
// description or the project, ignoring case.
func (g *Guesser) GuessTask(project, description string) string {
	project, description = strings.ToLower(project), strings.ToLower(description)
	for _, rule := range g.TaskRules {
		keyword := strings.ToLower(rule.Keyword)
		if keyword == "" {
			continue
		}
		if strings.Contains(description, keyword) || strings.Contains(project, keyword) {
			return rule.Task
		}
	}
	return g.DefaultTask
}
