package booking

import (
	"log"
	"sort"

	"github.com/harrisonrobin/timebook/pkg/model"
	"github.com/harrisonrobin/timebook/pkg/util"
)

const (
	ignoredWarnMinutes = 3.0 * 60.0
	removedWarnRatio   = 0.1
)

// TimeSum returns the total minutes of bookings.
func TimeSum(bookings []model.Booking) float64 {
	var sum float64
	for _, b := range bookings {
		sum += b.Time
	}
	return sum
}

// CleanUp drops work bookings without an issue and spreads their time over
// the remaining work bookings, proportional to each booking's share of the
// tracked time. Non-work bookings without an issue are kept untouched and
// left out of the proportion.
//
// The proportion is taken over all bookings with an issue, but only work
// bookings receive a share.
//
// If nothing has an issue, the dropped work bookings are returned as is and
// the non-work bookings are left out.
func CleanUp(bookings []model.Booking, logger *log.Logger) []model.Booking {
	if logger == nil {
		logger = log.Default()
	}

	var removed, rest []model.Booking
	var removedTime, ignoredTime, sumTime float64
	kept := 0
	for _, b := range bookings {
		switch {
		case b.IssueID == "" && b.Category == model.CategoryWork:
			removed = append(removed, b)
			removedTime += b.Time
		case b.IssueID == "":
			rest = append(rest, b)
			ignoredTime += b.Time
		default:
			rest = append(rest, b)
			sumTime += b.Time
			kept++
		}
	}

	if kept == 0 {
		return removed
	}

	if ignoredTime > ignoredWarnMinutes {
		logger.Printf("Warning: ignored time is %v (%s)", ignoredTime, util.FormatSpentTime(ignoredTime))
	}
	if sumTime != 0 && removedTime/sumTime > removedWarnRatio {
		logger.Printf("Warning: removed time is %v (%s) (%.2f%%)",
			removedTime, util.FormatSpentTime(removedTime), removedTime/(removedTime+sumTime)*100)
		sorted := append([]model.Booking(nil), removed...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time > sorted[j].Time })
		for _, b := range sorted {
			logger.Printf("    Removed %s (%.0f)", b.Description, b.Time)
		}
	}

	if sumTime == 0 {
		return rest
	}
	for i := range rest {
		if rest[i].Category == model.CategoryWork {
			rest[i].Time += removedTime * rest[i].Time / sumTime
		}
	}
	return rest
}
