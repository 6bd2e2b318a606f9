package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Anushervon04/university-crm-final/internal/models"
)

func TestWeekBounds(t *testing.T) {
	tests := []struct {
		name      string
		date      time.Time
		wantStart time.Time
	}{
		{
			name:      "monday starts its own week",
			date:      time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
			wantStart: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "wednesday maps back to monday",
			date:      time.Date(2026, 3, 4, 15, 30, 0, 0, time.UTC),
			wantStart: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "sunday belongs to the preceding monday",
			date:      time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC),
			wantStart: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "next monday opens a new week",
			date:      time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
			wantStart: time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			start, end := weekBounds(tc.date)
			assert.Equal(t, tc.wantStart, start)
			assert.Equal(t, tc.wantStart.AddDate(0, 0, 7), end)
		})
	}
}

func TestAttendedPointValue(t *testing.T) {
	assert.Equal(t, 1.6, attendedPointValue(1))
	assert.Equal(t, 1.6, attendedPointValue(2))
	assert.Equal(t, 2.0, attendedPointValue(3))
	assert.Equal(t, 1.5, attendedPointValue(4))
	assert.Equal(t, 1.2, attendedPointValue(5))
	assert.Equal(t, 1.0, attendedPointValue(6))
	// 6/7 rounds half-even to two decimals
	assert.Equal(t, 0.86, attendedPointValue(7))
}

func attendedEntry(id string, date time.Time, points float64) models.JournalEntry {
	return models.JournalEntry{
		ID:               id,
		StudentID:        "s1",
		AssignmentID:     "a1",
		Date:             date,
		Attendance:       true,
		AttendancePoints: points,
	}
}

func TestWeekRevaluationAbsenceScoresZero(t *testing.T) {
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	current := models.JournalEntry{StudentID: "s1", AssignmentID: "a1", Date: monday, Attendance: false}
	siblings := []models.JournalEntry{
		attendedEntry("e1", monday.AddDate(0, 0, 1), 1.6),
		attendedEntry("e2", monday.AddDate(0, 0, 2), 1.6),
	}

	changed := weekRevaluation(current, siblings)
	require.Len(t, changed, 1)
	assert.Equal(t, 0.0, changed[0].AttendancePoints)
	assert.False(t, changed[0].Attendance)
}

func TestWeekRevaluationAbsenceRecapsShrunkenWeek(t *testing.T) {
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	// Thursday flips to absent in a four-day week priced at 1.5 each. The
	// three remaining days re-cap to 6/3.
	current := models.JournalEntry{StudentID: "s1", AssignmentID: "a1", Date: monday.AddDate(0, 0, 3), Attendance: false, AttendancePoints: 1.5}
	siblings := []models.JournalEntry{
		attendedEntry("e1", monday, 1.5),
		attendedEntry("e2", monday.AddDate(0, 0, 1), 1.5),
		attendedEntry("e3", monday.AddDate(0, 0, 2), 1.5),
	}

	changed := weekRevaluation(current, siblings)
	require.Len(t, changed, 4)
	assert.Equal(t, 0.0, changed[0].AttendancePoints)
	for _, entry := range changed[1:] {
		assert.Equal(t, 2.0, entry.AttendancePoints)
	}
}

func TestWeekRevaluationFlatBelowThreshold(t *testing.T) {
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	current := attendedEntry("", monday.AddDate(0, 0, 1), 0)
	siblings := []models.JournalEntry{attendedEntry("e1", monday, 1.6)}

	changed := weekRevaluation(current, siblings)
	require.Len(t, changed, 1)
	assert.Equal(t, 1.6, changed[0].AttendancePoints)
}

func TestWeekRevaluationThirdAttendanceRepricesWeek(t *testing.T) {
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	current := attendedEntry("", monday.AddDate(0, 0, 2), 0)
	siblings := []models.JournalEntry{
		attendedEntry("e1", monday, 1.6),
		attendedEntry("e2", monday.AddDate(0, 0, 1), 1.6),
	}

	changed := weekRevaluation(current, siblings)
	require.Len(t, changed, 3)
	for _, entry := range changed {
		assert.Equal(t, 2.0, entry.AttendancePoints)
	}
}

func TestWeekRevaluationFourthAttendanceRepricesAgain(t *testing.T) {
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	current := attendedEntry("", monday.AddDate(0, 0, 3), 0)
	siblings := []models.JournalEntry{
		attendedEntry("e1", monday, 2.0),
		attendedEntry("e2", monday.AddDate(0, 0, 1), 2.0),
		attendedEntry("e3", monday.AddDate(0, 0, 2), 2.0),
	}

	changed := weekRevaluation(current, siblings)
	require.Len(t, changed, 4)
	for _, entry := range changed {
		assert.Equal(t, 1.5, entry.AttendancePoints)
	}

	var sum float64
	for _, entry := range changed {
		sum += entry.AttendancePoints
	}
	assert.InDelta(t, 6.0, sum, 0.02)
}

func TestWeekRevaluationSkipsSiblingsAlreadyPricedRight(t *testing.T) {
	monday := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	// Rewrite of an existing wednesday entry: siblings already carry 2.0.
	current := attendedEntry("e3", monday.AddDate(0, 0, 2), 2.0)
	siblings := []models.JournalEntry{
		attendedEntry("e1", monday, 2.0),
		attendedEntry("e2", monday.AddDate(0, 0, 1), 2.0),
	}

	changed := weekRevaluation(current, siblings)
	require.Len(t, changed, 1)
	assert.Equal(t, 2.0, changed[0].AttendancePoints)
}

func TestLessonEnd(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Dushanbe")
	require.NoError(t, err)

	date := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	end, err := lessonEnd(date, "11:20", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 4, 11, 20, 0, 0, loc), end)

	_, err = lessonEnd(date, "1120", loc)
	assert.Error(t, err)
	_, err = lessonEnd(date, "25:00", loc)
	assert.Error(t, err)
	_, err = lessonEnd(date, "10:73", loc)
	assert.Error(t, err)
}

func TestIsLockedBoundary(t *testing.T) {
	end := time.Date(2026, 3, 4, 11, 20, 0, 0, time.UTC)
	grace := time.Hour

	assert.False(t, isLocked(end, end.Add(59*time.Minute+59*time.Second), grace))
	assert.False(t, isLocked(end, end.Add(time.Hour), grace))
	assert.True(t, isLocked(end, end.Add(time.Hour+time.Second), grace))
	assert.False(t, isLocked(end, end.Add(-time.Hour), grace))
}
