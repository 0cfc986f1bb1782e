// Package clustering splits a batch of timestamped photos into probable lots.
//
// Photos are ordered by capture time and chained greedily: a photo joins the
// open lot when it was taken at most the gap threshold after the previous photo
// of that lot, otherwise it starts a new lot. The rule is nearest-neighbour
// chaining, not distance from a lot's first photo, so a long series of closely
// spaced photos stays together however long it runs.
package clustering

import (
	"slices"
	"time"

	"lotsort/internal/groups"
	"lotsort/internal/photo"
)

// DefaultGap is the default maximum delta between consecutive photos of a lot.
const DefaultGap = 5 * time.Minute

// Cluster returns the lots for items using gap as the chaining threshold.
// The input slice is not modified. A negative gap behaves like zero.
func Cluster(items []photo.Item, gap time.Duration) groups.Partition {
	if len(items) == 0 {
		return groups.Partition{}
	}
	if gap < 0 {
		gap = 0
	}

	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b photo.Item) int {
		return a.CapturedAt.Compare(b.CapturedAt)
	})

	var out groups.Partition
	current := groups.Group{sorted[0]}
	for _, item := range sorted[1:] {
		last := current[len(current)-1]
		if item.CapturedAt.Sub(last.CapturedAt) <= gap {
			current = append(current, item)
			continue
		}
		out = append(out, current)
		current = groups.Group{item}
	}
	return append(out, current)
}

// Flatten concatenates the groups of p in order.
func Flatten(p groups.Partition) []photo.Item {
	out := make([]photo.Item, 0, p.ItemCount())
	for _, g := range p {
		out = append(out, g...)
	}
	return out
}
