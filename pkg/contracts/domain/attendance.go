package domain

import (
	"encoding/json"
	"math"
	"time"
)

// RateValue is an attendance rate fraction in [0,1]. NaN marks a rate
// with a zero denominator (degenerate grouping key) and marshals as
// JSON null instead of failing the encoder.
type RateValue float64

// IsNull reports whether the rate is undefined.
func (v RateValue) IsNull() bool {
	return math.IsNaN(float64(v))
}

// MarshalJSON renders an undefined rate as null.
func (v RateValue) MarshalJSON() ([]byte, error) {
	if v.IsNull() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(v))
}

// UnmarshalJSON accepts null as an undefined rate.
func (v *RateValue) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = RateValue(math.NaN())
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = RateValue(f)
	return nil
}

// Student represents a single roster entry. Reference data only: the
// aggregator never mutates it.
type Student struct {
	ID    string `json:"student_id" csv:"student_id" validate:"required"`
	Name  string `json:"name" csv:"name" validate:"required"`
	Group string `json:"group" csv:"group" validate:"required"`
}

// AttendanceRecord represents one student's presence status for one class
// session. This is the primary input row of the analytics pipeline.
type AttendanceRecord struct {
	StudentID string    `json:"student_id" csv:"student_id" validate:"required"`
	Date      time.Time `json:"date" csv:"date" validate:"required"`
	Subject   string    `json:"subject" csv:"subject" validate:"required"`
	Present   bool      `json:"present" csv:"present"`
}

// DayPattern is the per-calendar-date attendance rate row.
type DayPattern struct {
	Date           time.Time `json:"date"`
	AttendanceRate RateValue `json:"attendance_rate"`
}

// GroupSummary aggregates attendance per roster group. StudentCount is the
// number of distinct students of the group that appear in the attendance log.
// AttendanceRate is NaN when the group has no attendance records.
type GroupSummary struct {
	Group          string    `json:"group"`
	AttendanceRate RateValue `json:"attendance_rate"`
	StudentCount   int       `json:"student_count"`
}

// MonthlySummary is the per-month trend row. Month is formatted YYYY-MM.
type MonthlySummary struct {
	Month          string    `json:"month"`
	AttendanceRate RateValue `json:"attendance_rate"`
}

// Risk labels assigned to students relative to the attendance threshold.
// A rate exactly at the threshold counts as on track.
const (
	RiskAtRisk  = "at risk"
	RiskOnTrack = "on track"
)

// StudentPercentage is the per-student attendance rate row with its risk
// classification.
type StudentPercentage struct {
	StudentID      string    `json:"student_id"`
	Name           string    `json:"name"`
	Group          string    `json:"group"`
	AttendanceRate RateValue `json:"attendance_rate"`
	RiskLabel      string    `json:"risk_label"`
}

// AttendanceFilter represents the dashboard's filter surface. Nil/empty
// fields mean "no restriction". From and To are inclusive date bounds.
type AttendanceFilter struct {
	From      *time.Time `json:"from,omitempty"`
	To        *time.Time `json:"to,omitempty"`
	Groups    []string   `json:"groups,omitempty"`
	Subjects  []string   `json:"subjects,omitempty"`
	StudentID string     `json:"student_id,omitempty" validate:"omitempty,max=32"`
}

// Match reports whether a record (joined to its roster group, which may be
// empty for orphan records) passes the filter.
func (f AttendanceFilter) Match(r AttendanceRecord, group string) bool {
	if f.From != nil && r.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && r.Date.After(*f.To) {
		return false
	}
	if len(f.Groups) > 0 && !contains(f.Groups, group) {
		return false
	}
	if len(f.Subjects) > 0 && !contains(f.Subjects, r.Subject) {
		return false
	}
	if f.StudentID != "" && r.StudentID != f.StudentID {
		return false
	}
	return true
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

// Rate returns present/total as a fraction, or an undefined rate when
// total is zero. A degenerate key is reported, never crashed on.
func Rate(present, total int) RateValue {
	if total == 0 {
		return RateValue(math.NaN())
	}
	return RateValue(float64(present) / float64(total))
}
