package domain

import (
	"sort"
	"time"
)

// PartitionByTime buckets auctions relative to now:
//
//	future: not started yet
//	open:   started, nominal end not reached
//	closed: nominal end reached, true end not reached (extension window)
//	past:   true end reached
//
// Open, closed and future are ordered by start time; past by end time, most
// recent first.
func PartitionByTime(auctions []*Auction, now time.Time) *TimeRelativeAuctions {
	out := &TimeRelativeAuctions{
		Open:   []*Auction{},
		Closed: []*Auction{},
		Future: []*Auction{},
		Past:   []*Auction{},
	}

	for _, a := range auctions {
		switch {
		case now.Before(a.StartTime):
			out.Future = append(out.Future, a)
		case now.Before(a.EndTime):
			out.Open = append(out.Open, a)
		case now.Before(a.TrueEnd):
			out.Closed = append(out.Closed, a)
		default:
			out.Past = append(out.Past, a)
		}
	}

	byStart := func(list []*Auction) {
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].StartTime.Before(list[j].StartTime)
		})
	}
	byStart(out.Open)
	byStart(out.Closed)
	byStart(out.Future)
	sort.SliceStable(out.Past, func(i, j int) bool {
		return out.Past[i].EndTime.After(out.Past[j].EndTime)
	})

	return out
}
