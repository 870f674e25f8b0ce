package clockwork

import (
	"regexp"
	"strings"
	"time"

	"github.com/harrisonrobin/timebook/pkg/model"
	"github.com/harrisonrobin/timebook/pkg/util"
)

var tagRegex = regexp.MustCompile(`#([^ ]*)`)

// Aggregate sums facts sharing a description and day into bookings and
// keeps only those spent on date. loginfo maps issue ids to commit message
// fragments that become the booking comments. facts is not modified.
func Aggregate(facts []model.Fact, date time.Time, loginfo map[string][]string) []model.Booking {
	var bookings []model.Booking
	index := make(map[string]int)

	for _, fact := range facts {
		if !util.SameDay(fact.SpentOn, date) {
			continue
		}
		if i, ok := index[fact.Description]; ok {
			bookings[i].Time += fact.Time
			continue
		}
		index[fact.Description] = len(bookings)
		bookings = append(bookings, model.Booking{
			IssueID:     fact.IssueID,
			SpentOn:     fact.SpentOn,
			Time:        fact.Time,
			Description: fact.Description,
			Activity:    "none",
			Comments:    Comments(loginfo, fact.IssueID, ". "),
			Category:    model.CategoryWork,
			Tags:        Tags(fact.Description),
		})
	}
	return bookings
}

// Tags returns the #tag tokens of description without the leading hash.
func Tags(description string) []string {
	var tags []string
	for _, m := range tagRegex.FindAllStringSubmatch(description, -1) {
		tags = append(tags, m[1])
	}
	return tags
}

// Comments joins the loginfo fragments recorded for issueID.
func Comments(loginfo map[string][]string, issueID, sep string) string {
	if issueID == "" {
		return ""
	}
	return strings.Join(loginfo[issueID], sep)
}
