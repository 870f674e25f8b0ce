package orgmode

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/harrisonrobin/timebook/pkg/booking"
	"github.com/harrisonrobin/timebook/pkg/model"
	"github.com/harrisonrobin/timebook/pkg/util"
)

var header = []string{"L", "Headline", "Time", "Activity", "iss", "Project", "Comments"}

// Write renders bookings as a clocktable for spentOn. The summary timestamp
// is now, capped at the last second of spentOn.
func Write(w io.Writer, bookings []model.Booking, spentOn time.Time, activities []model.Activity, now time.Time) error {
	summary := util.Day(spentOn).AddDate(0, 0, 1).Add(-time.Second)
	if now.Before(summary) {
		summary = now
	}

	rows := [][]string{
		header,
		{" ", "*Total time*", "*" + util.FormatSpentTime(booking.TimeSum(bookings)) + "*", " ", " ", " ", " "},
	}
	for _, b := range bookings {
		rows = append(rows, []string{
			"1",
			b.Description,
			util.FormatSpentTime(b.Time),
			b.Activity,
			b.IssueID,
			b.Project,
			b.Comments,
		})
	}

	names := make([]string, 0, len(activities))
	for _, act := range activities {
		names = append(names, act.Name)
	}

	var sb strings.Builder
	sb.WriteString("#+BEGIN: clocktable :maxlevel 2 :scope file\n")
	fmt.Fprintf(&sb, "%s%s]\n\n", summaryPrefix, summary.Format("2006-01-02 Mon 15:04"))
	sb.WriteString(makeTable(rows))
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "Available activities: %s\n", strings.Join(names, ", "))

	_, err := io.WriteString(w, sb.String())
	return err
}

func makeTable(rows [][]string) string {
	widths := make([]int, len(header))
	for _, row := range rows {
		for i, cell := range row {
			if n := utf8.RuneCountInString(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}

	dashes := make([]string, len(widths))
	for i, width := range widths {
		dashes[i] = strings.Repeat("-", width+2)
	}
	divider := "+" + strings.Join(dashes, "+") + "+"

	var lines []string
	for _, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cell = strings.ReplaceAll(cell, "|", " ")
			cells[i] = " " + cell + strings.Repeat(" ", widths[i]-utf8.RuneCountInString(cell)) + " "
		}
		lines = append(lines, divider, "|"+strings.Join(cells, "|")+"|")
	}
	lines = append(lines, divider)
	return strings.Join(lines, "\n")
}
