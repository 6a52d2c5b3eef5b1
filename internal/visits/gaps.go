package visits

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdesk/console/internal/platform/backend"
)

// RowKind discriminates the day-view row union.
type RowKind string

const (
	RowVisit RowKind = "visit"
	RowGap   RowKind = "gap"
)

// Gap is a synthetic, never-persisted row marking unscheduled time inside a
// displayed day. Recomputed on every render; the key only has to be unique
// within one rendering.
type Gap struct {
	Key   uuid.UUID `json:"key"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Row is one display row: exactly one of Visit or Gap is set, per Kind.
type Row struct {
	Kind  RowKind        `json:"kind"`
	Visit *backend.Visit `json:"visit,omitempty"`
	Gap   *Gap           `json:"gap,omitempty"`
}

// DayRows interleaves the day's visits with the free-slot gaps between them,
// in chronological order. The working window is [minMinute, maxMinute] of
// the given day, in minutes since midnight.
//
// The walk keeps a cursor at the end of covered time: before each visit a
// gap is emitted when the cursor is strictly earlier than the visit's start,
// then the cursor advances to the later of itself and the visit's end (its
// start when no end is set). Overlapping visits are tolerated; a visit
// running past the window is not clipped, which can suppress the trailing
// gap.
func DayRows(day time.Time, visitList []backend.Visit, minMinute, maxMinute int) []Row {
	y, m, d := day.Date()
	windowStart := time.Date(y, m, d, minMinute/60, minMinute%60, 0, 0, day.Location())
	windowEnd := time.Date(y, m, d, maxMinute/60, maxMinute%60, 0, 0, day.Location())

	if len(visitList) == 0 {
		return []Row{gapRow(windowStart, windowEnd)}
	}

	ordered := make([]backend.Visit, len(visitList))
	copy(ordered, visitList)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].StartDate.Before(ordered[j].StartDate)
	})

	rows := make([]Row, 0, 2*len(ordered)+1)
	cursor := windowStart

	for i := range ordered {
		visit := &ordered[i]
		if cursor.Before(visit.StartDate) {
			rows = append(rows, gapRow(cursor, visit.StartDate))
		}
		rows = append(rows, Row{Kind: RowVisit, Visit: visit})
		if end := visit.End(); end.After(cursor) {
			cursor = end
		}
	}

	if cursor.Before(windowEnd) {
		rows = append(rows, gapRow(cursor, windowEnd))
	}

	return rows
}

func gapRow(start, end time.Time) Row {
	return Row{Kind: RowGap, Gap: &Gap{Key: uuid.New(), Start: start, End: end}}
}
