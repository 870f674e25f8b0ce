package vcs

import (
	"context"
	"log"
	"regexp"
	"strings"
	"time"
)

const gitRecordSep = "\x1e"

// GitLog searches the commits of all local branches.
type GitLog struct {
	repoLog
}

func NewGitLog(executable, author string, repos []string, patterns []*regexp.Regexp, logger *log.Logger) *GitLog {
	if executable == "" {
		executable = "git"
	}
	return &GitLog{repoLog{Executable: executable, Author: author, Repos: repos, Patterns: patterns, Logger: logger}}
}

// LogInfo extracts the ticket references of the commits made on date.
func (g *GitLog) LogInfo(ctx context.Context, date time.Time, mergeWith LogInfo) LogInfo {
	const layout = "2006-01-02 15:04:05"
	args := []string{
		"--no-pager", "-c", "color.diff=false", "log",
		"--branches", "--reverse",
		"--since=" + date.Format(layout),
		"--until=" + date.AddDate(0, 0, 1).Format(layout),
		"--format=%B%x1e",
	}
	if g.Author != "" {
		args = append(args, "--author="+g.Author)
	}
	return g.collect(ctx, args, parseGitLog, mergeWith)
}

// parseGitLog splits `git log --format=%B%x1e` output into one line per
// commit.
func parseGitLog(out string) []string {
	var messages []string
	for _, record := range strings.Split(out, gitRecordSep) {
		if msg := joinMessage(strings.Split(record, "\n")); msg != "" {
			messages = append(messages, msg)
		}
	}
	return messages
}
