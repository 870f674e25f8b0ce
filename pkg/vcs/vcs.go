// Package vcs collects commit message fragments per ticket from version
// control history. They pre-fill the comments of bookings.
package vcs

import (
	"context"
	"log"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

var keywordRegex = regexp.MustCompile(`([Rr]efs |[Ff]ixes )$`)

// LogInfo maps ticket ids to comment fragments.
type LogInfo map[string][]string

// ExtractLogInfo adds the ticket references of every line to mergeWith,
// which may be nil. The first pattern matching a line decides its tickets.
// Each ticket gets the text in front of the first reference as comment.
func ExtractLogInfo(lines []string, patterns []*regexp.Regexp, mergeWith LogInfo) LogInfo {
	info := mergeWith
	if info == nil {
		info = make(LogInfo)
	}
	for _, line := range lines {
		line = strings.TrimSpace(line)
		for _, pattern := range patterns {
			matches := pattern.FindAllStringSubmatchIndex(line, -1)
			if matches == nil {
				continue
			}
			comment := keywordRegex.ReplaceAllString(line[:matches[0][0]], "")
			comment = strings.Trim(strings.Trim(comment, " ,"), " .")
			if comment == "" {
				break
			}
			seen := make(map[string]bool)
			for _, m := range matches {
				ticket := line[m[0]:m[1]]
				if len(m) >= 4 && m[2] >= 0 {
					ticket = line[m[2]:m[3]]
				}
				if seen[ticket] {
					continue
				}
				seen[ticket] = true
				info[ticket] = append(info[ticket], comment)
			}
			break
		}
	}
	return info
}

// Log is a version control system whose history is searched for ticket
// references.
type Log interface {
	LogInfo(ctx context.Context, date time.Time, mergeWith LogInfo) LogInfo
}

// repoLog runs a log command in every repository and feeds the extracted
// commit messages to ExtractLogInfo. Failing repositories are skipped.
type repoLog struct {
	Executable string
	Author     string
	Repos      []string
	Patterns   []*regexp.Regexp
	Logger     *log.Logger
}

func (r *repoLog) collect(ctx context.Context, args []string, parse func(string) []string, mergeWith LogInfo) LogInfo {
	info := mergeWith
	if info == nil {
		info = make(LogInfo)
	}
	for _, repo := range r.Repos {
		if _, err := os.Stat(repo); err != nil {
			r.logger().Printf("Warning: Repository path not found: %s", repo)
			continue
		}
		cmd := exec.CommandContext(ctx, r.Executable, args...)
		cmd.Dir = repo
		out, err := cmd.Output()
		if err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok {
				r.logger().Printf("Warning: %s returned %d in %s: %s", r.Executable, exitErr.ExitCode(), repo, strings.TrimSpace(string(exitErr.Stderr)))
			} else {
				r.logger().Printf("Warning: could not run %s in %s: %v", r.Executable, repo, err)
			}
			continue
		}
		info = ExtractLogInfo(parse(string(out)), r.Patterns, info)
	}
	return info
}

func (r *repoLog) logger() *log.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return log.Default()
}

// joinMessage folds a multi-line commit message into one line.
func joinMessage(lines []string) string {
	var parts []string
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}
