package tracker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"testing"

	"github.com/harrisonrobin/timebook/pkg/model"
)

type fakeTracker struct {
	name   string
	issues map[string]model.Issue
	err    error
	calls  int
}

func (f *fakeTracker) Name() string                  { return f.name }
func (f *fakeTracker) TicketPattern() *regexp.Regexp { return regexp.MustCompile(`([0-9]+)`) }

func (f *fakeTracker) GetIssue(ctx context.Context, id string) (*model.Issue, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	issue, ok := f.issues[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &issue, nil
}

func TestResolverFallsThroughNotFound(t *testing.T) {
	first := &fakeTracker{name: "first"}
	second := &fakeTracker{name: "second", issues: map[string]model.Issue{
		"12345": {Title: "Create user list", Project: "cynaptic_3000", Tracker: "Support"},
	}}
	var buf bytes.Buffer
	r := NewResolver([]Tracker{first, second}, log.New(&buf, "", 0))

	if title := r.ResolveTitle(context.Background(), "12345"); title != "Create user list" {
		t.Errorf("Expected second tracker's title, got %q", title)
	}
	if !strings.Contains(buf.String(), "could not find issue 12345 in first") {
		t.Errorf("Expected a not found warning, got %q", buf.String())
	}
}

func TestResolverSkipsConnectionErrors(t *testing.T) {
	down := &fakeTracker{name: "down", err: fmt.Errorf("%w: dial tcp: refused", ErrConnection)}
	up := &fakeTracker{name: "up", issues: map[string]model.Issue{"1": {Title: "ok"}}}
	var buf bytes.Buffer
	r := NewResolver([]Tracker{down, up}, log.New(&buf, "", 0))

	issue := r.ResolveIssue(context.Background(), "1")
	if issue == nil || issue.Title != "ok" {
		t.Fatalf("Expected issue from second tracker, got %+v", issue)
	}
	if !strings.Contains(buf.String(), "could not reach down") {
		t.Errorf("Expected a connectivity warning, got %q", buf.String())
	}
}

func TestResolverFirstMatchWins(t *testing.T) {
	a := &fakeTracker{name: "a", issues: map[string]model.Issue{"1": {Title: "from a"}}}
	b := &fakeTracker{name: "b", issues: map[string]model.Issue{"1": {Title: "from b"}}}
	r := NewResolver([]Tracker{a, b}, log.New(&bytes.Buffer{}, "", 0))

	if title := r.ResolveTitle(context.Background(), "1"); title != "from a" {
		t.Errorf("Expected first tracker to win, got %q", title)
	}
	if b.calls != 0 {
		t.Errorf("Expected second tracker not to be asked, got %d calls", b.calls)
	}
}

func TestResolverNothingFound(t *testing.T) {
	r := NewResolver([]Tracker{&fakeTracker{name: "a", err: errors.New("boom")}}, log.New(&bytes.Buffer{}, "", 0))
	if issue := r.ResolveIssue(context.Background(), "55555"); issue != nil {
		t.Errorf("Expected nil issue, got %+v", issue)
	}
	if title := r.ResolveTitle(context.Background(), ""); title != "" {
		t.Errorf("Expected empty title, got %q", title)
	}
}

func TestPatterns(t *testing.T) {
	patterns := Patterns([]Tracker{NewJira("http://jira", "", ""), NewRedmine("http://redmine", "", "")})
	if len(patterns) != 2 || patterns[0] != jiraPattern || patterns[1] != redminePattern {
		t.Errorf("Expected jira and redmine patterns in order, got %v", patterns)
	}
}
