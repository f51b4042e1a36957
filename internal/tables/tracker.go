// Package tables tracks which guest sessions sit at each table and which tables are
// merged into one billing group. All state is in memory and safe for concurrent use.
//
// Guest presence is locked per table, so joins at different tables never contend.
// The merge-group registry sits behind one mutex: "check none of the tables is
// merged, then register them" and "remove a table, then maybe dissolve its group"
// must each be atomic over the whole registry.
package tables

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mmynk/tableside/internal/apperr"
	"github.com/mmynk/tableside/internal/models"
)

var (
	ErrInvalidMergeRequest = apperr.Validation(apperr.CodeInvalidMergeRequest, "a merge needs at least two distinct tables")
	ErrTableAlreadyMerged  = apperr.Conflict(apperr.CodeTableAlreadyMerged, "table is already merged")
)

// Tracker is the merge/split and guest-presence registry. Construct one per process
// with NewTracker and share it between request handlers.
type Tracker struct {
	guests sync.Map // int64 -> *presence
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	nextID  int64
	groups  map[int64]*models.MergeGroup
	byTable map[int64]int64
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithGuestTTL expires guest sessions that have not been seen for ttl.
// Zero disables expiry.
func WithGuestTTL(ttl time.Duration) Option {
	return func(t *Tracker) {
		t.ttl = ttl
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// NewTracker creates an empty tracker.
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		now:     time.Now,
		groups:  make(map[int64]*models.MergeGroup),
		byTable: make(map[int64]int64),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Merge fuses the given tables into a new group. Duplicates are ignored; fewer than
// two distinct tables is rejected, as is any table already in a group. Groups are
// never merged implicitly: split first, then merge.
func (t *Tracker) Merge(tableIDs []int64, label string) (models.MergeGroup, error) {
	seen := make(map[int64]bool, len(tableIDs))
	tables := make([]int64, 0, len(tableIDs))
	for _, id := range tableIDs {
		if id <= 0 {
			return models.MergeGroup{}, apperr.Validation(apperr.CodeInvalidMergeRequest, "invalid table id %d", id)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		tables = append(tables, id)
	}
	if len(tables) < 2 {
		return models.MergeGroup{}, ErrInvalidMergeRequest
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i] < tables[j] })

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, id := range tables {
		if groupID, busy := t.byTable[id]; busy {
			return models.MergeGroup{}, apperr.Conflict(apperr.CodeTableAlreadyMerged,
				"table %d is already merged in group %d", id, groupID)
		}
	}

	t.nextID++
	group := &models.MergeGroup{
		ID:        t.nextID,
		Label:     label,
		Tables:    tables,
		CreatedAt: t.now(),
	}
	t.groups[group.ID] = group
	for _, id := range tables {
		t.byTable[id] = group.ID
	}

	slog.Info("Tables merged", "group_id", group.ID, "tables", tables, "label", label)
	return snapshot(group), nil
}

// SplitGroup dissolves a group. It returns false if the group does not exist.
func (t *Tracker) SplitGroup(groupID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	group, ok := t.groups[groupID]
	if !ok {
		return false
	}
	t.dissolve(group)
	slog.Info("Merge group split", "group_id", groupID)
	return true
}

// SplitTable removes one table from its group. When fewer than two tables remain
// the group dissolves and the remaining table becomes unmerged. It returns false if
// the table was not merged.
func (t *Tracker) SplitTable(tableID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	groupID, ok := t.byTable[tableID]
	if !ok {
		return false
	}
	group := t.groups[groupID]
	delete(t.byTable, tableID)

	remaining := make([]int64, 0, len(group.Tables))
	for _, id := range group.Tables {
		if id != tableID {
			remaining = append(remaining, id)
		}
	}
	group.Tables = remaining

	if len(group.Tables) < 2 {
		t.dissolve(group)
		slog.Info("Table split, group dissolved", "table_id", tableID, "group_id", groupID)
		return true
	}
	slog.Info("Table split from group", "table_id", tableID, "group_id", groupID, "remaining", len(remaining))
	return true
}

// dissolve must be called with t.mu held.
func (t *Tracker) dissolve(group *models.MergeGroup) {
	for _, id := range group.Tables {
		delete(t.byTable, id)
	}
	delete(t.groups, group.ID)
}

// ListGroups returns a snapshot of every group, ordered by ID.
func (t *Tracker) ListGroups() []models.MergeGroup {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]models.MergeGroup, 0, len(t.groups))
	for _, g := range t.groups {
		out = append(out, snapshot(g))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// FindGroup returns a snapshot of the group containing the table.
func (t *Tracker) FindGroup(tableID int64) (models.MergeGroup, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	groupID, ok := t.byTable[tableID]
	if !ok {
		return models.MergeGroup{}, false
	}
	return snapshot(t.groups[groupID]), true
}

// GetGroup returns a snapshot of the group with the given ID.
func (t *Tracker) GetGroup(groupID int64) (models.MergeGroup, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	g, ok := t.groups[groupID]
	if !ok {
		return models.MergeGroup{}, false
	}
	return snapshot(g), true
}

// BillingTables returns the tables billed together with tableID: its group's tables,
// or just tableID when it is not merged.
func (t *Tracker) BillingTables(tableID int64) []int64 {
	if g, ok := t.FindGroup(tableID); ok {
		return g.Tables
	}
	return []int64{tableID}
}

func snapshot(g *models.MergeGroup) models.MergeGroup {
	c := *g
	c.Tables = append([]int64(nil), g.Tables...)
	return c
}

// Stats is a point-in-time view used for metrics.
type Stats struct {
	Groups       int
	MergedTables int
	Tables       int // tables with at least one live guest
	Guests       int
}

// Stats counts groups and live guests.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	s := Stats{Groups: len(t.groups), MergedTables: len(t.byTable)}
	t.mu.Unlock()

	now := t.now()
	t.guests.Range(func(_, value any) bool {
		if n := value.(*presence).count(now, t.ttl); n > 0 {
			s.Tables++
			s.Guests += n
		}
		return true
	})
	return s
}

// Run sweeps expired guest sessions every interval until ctx is done.
func (t *Tracker) Run(ctx context.Context, interval time.Duration) error {
	if t.ttl <= 0 || interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := t.Sweep(); n > 0 {
				slog.Debug("Expired guest sessions evicted", "count", n)
			}
		}
	}
}
