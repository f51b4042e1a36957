package models

import "time"

// MergeGroup is a set of physical tables billed as one unit.
// Groups live only in memory; values handed out are snapshots.
type MergeGroup struct {
	// ID is allocated from a monotonically increasing counter.
	ID int64

	// Label is an optional staff-facing name ("Birthday party").
	Label string

	// Tables holds at least two table IDs, sorted ascending.
	Tables []int64

	CreatedAt time.Time
}

// Contains reports whether the group includes the table.
func (g MergeGroup) Contains(tableID int64) bool {
	for _, t := range g.Tables {
		if t == tableID {
			return true
		}
	}
	return false
}
