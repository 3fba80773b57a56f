package attendance

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCellStatusPrecedence(t *testing.T) {
	assert.Equal(t, CellNoResponse, cellStatus(nil))
	assert.Equal(t, CellUnavailable, cellStatus(&AttendanceRecord{}))
	assert.Equal(t, CellAvailable, cellStatus(&AttendanceRecord{IsAvailable: true}))
	assert.Equal(t, CellCheckedIn, cellStatus(&AttendanceRecord{IsAvailable: true, IsCheckedIn: true}))
	assert.Equal(t, CellCheckedIn, cellStatus(&AttendanceRecord{IsCheckedIn: true}))
}

func TestBuildMatrixAggregatesAndSorting(t *testing.T) {
	e1 := Event{ID: uuid.New(), Title: "Round 1", EventDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	e2 := Event{ID: uuid.New(), Title: "Round 2", EventDate: time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC)}

	alice := UserRow{ID: uuid.New(), Username: "alice"}
	bob := UserRow{ID: uuid.New(), Username: "bob"}

	records := []AttendanceRecord{
		{EventID: e1.ID, UserID: alice.ID, IsAvailable: true, IsCheckedIn: true},
		{EventID: e2.ID, UserID: alice.ID, IsAvailable: true, IsCheckedIn: true},
		{EventID: e1.ID, UserID: bob.ID, IsAvailable: true},
	}

	m := BuildMatrix([]Event{e2, e1}, []UserRow{bob, alice}, records)

	assert.Equal(t, "Round 1", m.Events[0].Title)
	assert.Equal(t, "Round 2", m.Events[1].Title)

	assert.Equal(t, "alice", m.Rows[0].Username)
	assert.InDelta(t, 100.0, m.Rows[0].AttendanceRate, 0.001)
	assert.Equal(t, "bob", m.Rows[1].Username)
	assert.InDelta(t, 0.0, m.Rows[1].AttendanceRate, 0.001)

	assert.Equal(t, 1, m.Events[0].CheckedInCount)
	assert.Equal(t, 1, m.Events[1].CheckedInCount)

	assert.Len(t, m.TopReliableUsers, 2)
	assert.Equal(t, "alice", m.TopReliableUsers[0].Username)
}

func TestBuildMatrixTieBreakByUsername(t *testing.T) {
	e1 := Event{ID: uuid.New(), Title: "Round 1", EventDate: time.Now()}
	alice := UserRow{ID: uuid.New(), Username: "alice"}
	zack := UserRow{ID: uuid.New(), Username: "zack"}

	m := BuildMatrix([]Event{e1}, []UserRow{zack, alice}, nil)

	assert.Equal(t, "alice", m.Rows[0].Username)
	assert.Equal(t, "zack", m.Rows[1].Username)
}

func TestBuildMatrixNoEventsYieldsZeroRates(t *testing.T) {
	alice := UserRow{ID: uuid.New(), Username: "alice"}
	m := BuildMatrix(nil, []UserRow{alice}, nil)
	assert.Equal(t, 0.0, m.Rows[0].AttendanceRate)
	assert.Equal(t, 0.0, m.OverallRate)
}
