package cli

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/harrisonrobin/timebook/pkg/booking"
	"github.com/harrisonrobin/timebook/pkg/model"
	"github.com/harrisonrobin/timebook/pkg/util"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	timeStyle   = cellStyle.Align(lipgloss.Right)
	dimStyle    = cellStyle.Faint(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
)

const (
	colTime = 1
	colIss  = 3
)

// renderBookings draws bookings as a table with a total row.
func renderBookings(bookings []model.Booking) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Faint(true)).
		Headers("Headline", "Time", "Activity", "iss", "Project", "Comments")

	for _, b := range bookings {
		t.Row(b.Description, util.FormatSpentTime(b.Time), b.Activity, b.IssueID, b.Project, b.Comments)
	}
	total := len(bookings)
	t.Row("Total time", util.FormatSpentTime(booking.TimeSum(bookings)), "", "", "", "")

	t.StyleFunc(func(row, col int) lipgloss.Style {
		switch {
		case row == table.HeaderRow:
			return headerStyle
		case row == total:
			return headerStyle.Foreground(lipgloss.NoColor{})
		case col == colTime:
			return timeStyle
		case col == colIss && bookings[row].IssueID == "":
			return dimStyle
		}
		return cellStyle
	})
	return t.Render()
}
