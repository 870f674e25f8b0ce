package clockwork

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/harrisonrobin/timebook/pkg/model"
)

// Log is a plain-text clock log time source. Path may name a file, a
// directory whose files are all read, or a glob pattern.
type Log struct {
	Path   string
	Parser *Parser
}

// NewLog creates a clock log source reading path.
func NewLog(path string, parser *Parser) *Log {
	if parser == nil {
		parser = &Parser{}
	}
	return &Log{Path: path, Parser: parser}
}

// TimeInfo returns the bookings recorded for date.
func (l *Log) TimeInfo(ctx context.Context, date time.Time, loginfo map[string][]string, activities []model.Activity) ([]model.Booking, error) {
	lines, err := ReadRaw(l.Path)
	if err != nil {
		return nil, err
	}
	return Aggregate(l.Parser.Facts(lines), date, loginfo), nil
}

// ReadRaw returns the lines of the log at path.
func ReadRaw(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err == nil && !info.IsDir() {
		return readFile(path)
	}

	var paths []string
	if err == nil {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("failed to list log directory %s: %w", path, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				paths = append(paths, filepath.Join(path, entry.Name()))
			}
		}
	} else {
		paths, err = filepath.Glob(path)
		if err != nil {
			return nil, fmt.Errorf("invalid log path pattern %s: %w", path, err)
		}
	}
	sort.Strings(paths)

	var lines []string
	for _, p := range paths {
		fileLines, err := readFile(p)
		if err != nil {
			return nil, err
		}
		lines = append(lines, fileLines...)
	}
	return lines, nil
}

func readFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	lines, err := ParseLines(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read log %s: %w", path, err)
	}
	return lines, nil
}
