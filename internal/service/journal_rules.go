package service

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Anushervon04/university-crm-final/internal/models"
)

// Attendance point accrual. One attended lesson is worth a flat 1.6 points
// until the student has attended three lessons of the same assignment within
// one calendar week. From the third attendance on, the week is worth exactly
// 6.0 points split evenly across every attended lesson, so earlier entries
// in the same week are re-priced retroactively.
const (
	flatAttendancePoints = 1.6
	weeklyPointCap       = 6.0
	cappedWeekThreshold  = 3
)

// weekBounds returns the Monday-anchored calendar week containing d:
// [Monday 00:00, next Monday 00:00). The bounds carry d's location so
// date-only comparisons stay consistent.
func weekBounds(d time.Time) (time.Time, time.Time) {
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, d.Location())
	offset := (int(day.Weekday()) + 6) % 7
	start := day.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 7)
}

// roundPoints rounds to two decimals, ties to even.
func roundPoints(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}

// attendedPointValue prices one attended lesson given the week's total
// attended count after the write.
func attendedPointValue(count int) float64 {
	if count >= cappedWeekThreshold {
		return roundPoints(weeklyPointCap / float64(count))
	}
	return flatAttendancePoints
}

// weekRevaluation applies the accrual rule to one write. current is the
// entry being stored; siblings are the already-stored attended entries of
// the same (student, assignment) week, excluding current's date. The result
// always starts with current; siblings follow only when their stored points
// no longer match the week's per-lesson value.
//
// An absence zeroes current and revalues the siblings over the shrunken
// attended set: at three or more remaining days they re-cap to 6/count,
// below the threshold they keep their last stored values.
func weekRevaluation(current models.JournalEntry, siblings []models.JournalEntry) []models.JournalEntry {
	count := len(siblings)
	if current.Attendance {
		count++
		current.AttendancePoints = attendedPointValue(count)
	} else {
		current.AttendancePoints = 0
	}
	changed := []models.JournalEntry{current}

	if count < cappedWeekThreshold {
		// Below the threshold earlier entries keep what they have.
		return changed
	}
	value := attendedPointValue(count)
	for _, sibling := range siblings {
		if sibling.AttendancePoints != value {
			sibling.AttendancePoints = value
			changed = append(changed, sibling)
		}
	}
	return changed
}

// lessonEnd combines a lesson date with a "HH:MM" schedule end time in the
// institution's zone.
func lessonEnd(date time.Time, endTime string, loc *time.Location) (time.Time, error) {
	parts := strings.SplitN(endTime, ":", 2)
	if len(parts) != 2 {
		return time.Time{}, fmt.Errorf("malformed schedule time %q", endTime)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return time.Time{}, fmt.Errorf("malformed schedule time %q", endTime)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("malformed schedule time %q", endTime)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, loc), nil
}

// isLocked reports whether a journal cell may no longer be written. The
// boundary is exclusive: at exactly end+grace the cell is still open.
func isLocked(end, now time.Time, grace time.Duration) bool {
	return now.After(end.Add(grace))
}
