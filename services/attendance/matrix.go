package attendance

import (
	"sort"

	"github.com/google/uuid"
)

// MatrixCell is one user/event intersection.
type MatrixCell struct {
	EventID uuid.UUID  `json:"event_id"`
	Status  CellStatus `json:"status"`
}

// UserRowResult is one row of the dense grid with its per-user aggregates.
type UserRowResult struct {
	UserID          uuid.UUID    `json:"user_id"`
	Username        string       `json:"username"`
	Cells           []MatrixCell `json:"cells"`
	AvailabilityRate float64     `json:"availability_rate"`
	AttendanceRate   float64     `json:"attendance_rate"`
}

// EventAggregate is one event's column aggregate.
type EventAggregate struct {
	EventID        uuid.UUID `json:"event_id"`
	Title          string    `json:"title"`
	AvailableCount int       `json:"available_count"`
	CheckedInCount int       `json:"checked_in_count"`
}

// EventTypeStat aggregates attendance by event_type.
type EventTypeStat struct {
	EventType     EventType `json:"event_type"`
	EventCount    int       `json:"event_count"`
	AvgAttendance float64   `json:"avg_attendance"`
}

// Matrix is the full attendance-dashboard response.
type Matrix struct {
	Events             []EventAggregate `json:"events"`
	Rows               []UserRowResult  `json:"rows"`
	OverallRate        float64          `json:"overall_rate"`
	TopReliableUsers   []UserRowResult  `json:"top_reliable_users"`
	MostAttendedEvent  *EventAggregate  `json:"most_attended_event,omitempty"`
	LeastAttendedEvent *EventAggregate  `json:"least_attended_event,omitempty"`
	EventTypeStats     []EventTypeStat  `json:"event_type_stats"`
}

// cellStatus applies the precedence rule from spec §4.2: checked_in
// wins over available wins over "row exists but neither" (unavailable);
// no row at all is NoResponse.
func cellStatus(rec *AttendanceRecord) CellStatus {
	if rec == nil {
		return CellNoResponse
	}
	if rec.IsCheckedIn {
		return CellCheckedIn
	}
	if rec.IsAvailable {
		return CellAvailable
	}
	return CellUnavailable
}

// BuildMatrix computes the dense grid and every aggregate spec §4.2
// names, from the raw events/users/records already fetched.
func BuildMatrix(events []Event, users []UserRow, records []AttendanceRecord) Matrix {
	sort.Slice(events, func(i, j int) bool { return events[i].EventDate.Before(events[j].EventDate) })
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })

	byKey := make(map[[2]uuid.UUID]*AttendanceRecord, len(records))
	for i := range records {
		r := records[i]
		byKey[[2]uuid.UUID{r.EventID, r.UserID}] = &r
	}

	eventAggs := make([]EventAggregate, len(events))
	for i, e := range events {
		eventAggs[i] = EventAggregate{EventID: e.ID, Title: e.Title}
	}
	eventIndex := make(map[uuid.UUID]int, len(events))
	for i, e := range events {
		eventIndex[e.ID] = i
	}

	rows := make([]UserRowResult, 0, len(users))
	totalRecords := 0
	for _, u := range users {
		cells := make([]MatrixCell, len(events))
		available, checkedIn := 0, 0
		for i, e := range events {
			rec := byKey[[2]uuid.UUID{e.ID, u.ID}]
			status := cellStatus(rec)
			cells[i] = MatrixCell{EventID: e.ID, Status: status}
			switch status {
			case CellCheckedIn:
				checkedIn++
				available++
				eventAggs[eventIndex[e.ID]].CheckedInCount++
				eventAggs[eventIndex[e.ID]].AvailableCount++
				totalRecords++
			case CellAvailable:
				available++
				eventAggs[eventIndex[e.ID]].AvailableCount++
				totalRecords++
			case CellUnavailable:
				totalRecords++
			}
		}

		var availRate, attendRate float64
		if len(events) > 0 {
			availRate = 100 * float64(available) / float64(len(events))
			attendRate = 100 * float64(checkedIn) / float64(len(events))
		}

		rows = append(rows, UserRowResult{
			UserID:           u.ID,
			Username:         u.Username,
			Cells:            cells,
			AvailabilityRate: availRate,
			AttendanceRate:   attendRate,
		})
	}

	// Sorted by attendance_rate desc, ties broken by username asc.
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].AttendanceRate != rows[j].AttendanceRate {
			return rows[i].AttendanceRate > rows[j].AttendanceRate
		}
		return rows[i].Username < rows[j].Username
	})

	var overallRate float64
	if len(users)*len(events) > 0 {
		overallRate = 100 * float64(totalRecords) / float64(len(users)*len(events))
	}

	topN := 5
	if len(rows) < topN {
		topN = len(rows)
	}
	top := make([]UserRowResult, topN)
	copy(top, rows[:topN])

	var most, least *EventAggregate
	if len(eventAggs) > 0 {
		mostIdx, leastIdx := 0, 0
		for i, ea := range eventAggs {
			if ea.CheckedInCount > eventAggs[mostIdx].CheckedInCount {
				mostIdx = i
			}
			if ea.CheckedInCount < eventAggs[leastIdx].CheckedInCount {
				leastIdx = i
			}
		}
		most = &eventAggs[mostIdx]
		least = &eventAggs[leastIdx]
	}

	typeStats := buildEventTypeStats(events, eventAggs, len(users))

	return Matrix{
		Events:             eventAggs,
		Rows:               rows,
		OverallRate:        overallRate,
		TopReliableUsers:   top,
		MostAttendedEvent:  most,
		LeastAttendedEvent: least,
		EventTypeStats:     typeStats,
	}
}

func buildEventTypeStats(events []Event, aggs []EventAggregate, userCount int) []EventTypeStat {
	type acc struct {
		count        int
		checkedInSum int
	}
	byType := map[EventType]*acc{}
	order := []EventType{}
	for i, e := range events {
		a, ok := byType[e.EventType]
		if !ok {
			a = &acc{}
			byType[e.EventType] = a
			order = append(order, e.EventType)
		}
		a.count++
		a.checkedInSum += aggs[i].CheckedInCount
	}

	out := make([]EventTypeStat, 0, len(order))
	for _, t := range order {
		a := byType[t]
		var avg float64
		if a.count > 0 && userCount > 0 {
			avg = 100 * float64(a.checkedInSum) / float64(a.count*userCount)
		}
		out = append(out, EventTypeStat{EventType: t, EventCount: a.count, AvgAttendance: avg})
	}
	return out
}
