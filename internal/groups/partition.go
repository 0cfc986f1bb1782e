package groups

import (
	"fmt"
	"slices"

	"lotsort/internal/photo"
)

// Group is one probable lot. Order within a group only matters for display.
type Group []photo.Item

// Partition is the ordered list of lots covering every ingested item once.
// Groups are addressed by index; indices shift whenever an empty group is dropped.
type Partition []Group

// Clone returns a copy of p whose group slices share no backing arrays with p.
func (p Partition) Clone() Partition {
	if p == nil {
		return nil
	}
	out := make(Partition, len(p))
	for i, g := range p {
		out[i] = slices.Clone(g)
		if out[i] == nil {
			out[i] = Group{}
		}
	}
	return out
}

// ItemCount returns the number of items across all groups.
func (p Partition) ItemCount() int {
	total := 0
	for _, g := range p {
		total += len(g)
	}
	return total
}

// EmptyGroups returns the indices of groups without items.
func (p Partition) EmptyGroups() []int {
	var out []int
	for i, g := range p {
		if len(g) == 0 {
			out = append(out, i)
		}
	}
	return out
}

// Validate reports an item that appears in more than one place.
func (p Partition) Validate() error {
	seen := make(map[string][2]int, p.ItemCount())
	for gi, g := range p {
		for ii, item := range g {
			if prev, dup := seen[item.ID]; dup {
				return fmt.Errorf("item %s appears at %d/%d and %d/%d", item.ID, prev[0], prev[1], gi, ii)
			}
			seen[item.ID] = [2]int{gi, ii}
		}
	}
	return nil
}

// withoutEmpty drops every empty group.
func (p Partition) withoutEmpty() Partition {
	out := make(Partition, 0, len(p))
	for _, g := range p {
		if len(g) > 0 {
			out = append(out, g)
		}
	}
	return out
}
