package vcs

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"
)

var svnDivider = regexp.MustCompile(`(?m)^-{20,}$`)

// SvnLog searches the revisions of Subversion working copies.
type SvnLog struct {
	repoLog
}

func NewSvnLog(executable, author string, repos []string, patterns []*regexp.Regexp, logger *log.Logger) *SvnLog {
	if executable == "" {
		executable = "svn"
	}
	return &SvnLog{repoLog{Executable: executable, Author: author, Repos: repos, Patterns: patterns, Logger: logger}}
}

// LogInfo extracts the ticket references of the revisions made on date.
func (s *SvnLog) LogInfo(ctx context.Context, date time.Time, mergeWith LogInfo) LogInfo {
	const layout = "2006-01-02"
	args := []string{"log", "-r", fmt.Sprintf("{%s}:{%s}", date.Format(layout), date.AddDate(0, 0, 1).Format(layout))}
	if s.Author != "" {
		args = append(args, "--search", s.Author)
	}
	return s.collect(ctx, args, parseSvnLog, mergeWith)
}

// parseSvnLog drops the revision header of every log entry and folds its
// message into one line.
func parseSvnLog(out string) []string {
	var messages []string
	for _, entry := range svnDivider.Split(out, -1) {
		lines := strings.Split(strings.TrimSpace(entry), "\n")
		if len(lines) < 2 {
			continue
		}
		if msg := joinMessage(lines[1:]); msg != "" {
			messages = append(messages, msg)
		}
	}
	return messages
}
