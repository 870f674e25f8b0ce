package orgmode

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/harrisonrobin/timebook/pkg/model"
)

// Log is a time source reading a hand-maintained clocktable file. Issue ids
// are taken from #TICKET references in the headline.
type Log struct {
	Path string
}

func NewLog(path string) *Log {
	return &Log{Path: path}
}

// TimeInfo returns the rows of the clocktable, dated as the table says.
func (l *Log) TimeInfo(ctx context.Context, date time.Time, loginfo map[string][]string, activities []model.Activity) ([]model.Booking, error) {
	f, err := os.Open(l.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open org time log: %w", err)
	}
	defer f.Close()

	_, bookings, err := Read(f, activities)
	if err != nil {
		return nil, fmt.Errorf("failed to read org time log %s: %w", l.Path, err)
	}
	for i := range bookings {
		b := &bookings[i]
		b.IssueID = TicketNo(b.Description)
		b.Comments = ""
		if b.IssueID != "" {
			b.Comments = strings.Join(loginfo[b.IssueID], "; ")
		}
		b.Project = ""
		b.Category = model.CategoryWork
	}
	return bookings, nil
}
