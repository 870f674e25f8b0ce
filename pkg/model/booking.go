package model

import "time"

// Fact is a single raw time interval read from a time log. Facts are not
// deduplicated; several facts may share a description and day.
type Fact struct {
	Description string
	IssueID     string // "" when no ticket reference was found
	SpentOn     time.Time
	Time        float64 // minutes
}

// Booking is the aggregated time spent on one description during one day.
type Booking struct {
	IssueID     string
	IssueTitle  string
	SpentOn     time.Time
	Time        float64 // minutes
	Description string
	Activity    string
	Comments    string
	Category    string // e.g. "Work" or "Day-to-day"
	Tags        []string
	Project     string // billing project code
}

// CategoryWork is the category whose unattributed time gets redistributed.
const CategoryWork = "Work"

// Hours returns the booked time in hours.
func (b Booking) Hours() float64 {
	return b.Time / 60.0
}
