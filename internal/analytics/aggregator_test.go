package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CauseofDeathLife/asistencia360-analytics/pkg/contracts/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func record(id string, date time.Time, subject string, present bool) domain.AttendanceRecord {
	return domain.AttendanceRecord{StudentID: id, Date: date, Subject: subject, Present: present}
}

func threshold(v float64) *float64 { return &v }

func TestNew(t *testing.T) {
	t.Run("default threshold", func(t *testing.T) {
		a := New(nil, Config{})
		assert.Equal(t, DefaultRiskThreshold, a.Threshold())
	})

	t.Run("custom threshold", func(t *testing.T) {
		a := New(nil, Config{RiskThreshold: threshold(0.5)})
		assert.Equal(t, 0.5, a.Threshold())
	})

	t.Run("zero is a valid threshold", func(t *testing.T) {
		a := New(nil, Config{RiskThreshold: threshold(0)})
		assert.Equal(t, 0.0, a.Threshold())
	})
}

func TestAggregate_ZeroThreshold(t *testing.T) {
	// With a zero threshold every student is on track, including one who
	// never attended.
	students := []domain.Student{{ID: "S1", Name: "Ana", Group: "G1"}}
	records := []domain.AttendanceRecord{
		record("S1", day(2024, 1, 1), "Math", false),
		record("S1", day(2024, 1, 3), "Math", false),
	}

	summary, err := New(nil, Config{RiskThreshold: threshold(0)}).Aggregate(context.Background(), students, records)
	require.NoError(t, err)
	require.Len(t, summary.StudentPercentages, 1)
	assert.Equal(t, domain.RiskOnTrack, summary.StudentPercentages[0].RiskLabel)
}

func TestAggregate_StudentPercentagesAndGroupSummary(t *testing.T) {
	// Reference scenario: Ana misses one of two sessions, Luis attends both.
	students := []domain.Student{
		{ID: "1", Name: "Ana", Group: "G1"},
		{ID: "2", Name: "Luis", Group: "G1"},
	}
	records := []domain.AttendanceRecord{
		record("1", day(2024, 1, 1), "Math", true),
		record("1", day(2024, 1, 2), "Math", false),
		record("2", day(2024, 1, 1), "Math", true),
		record("2", day(2024, 1, 2), "Math", true),
	}

	summary, err := New(nil, Config{}).Aggregate(context.Background(), students, records)
	require.NoError(t, err)

	require.Len(t, summary.StudentPercentages, 2)
	assert.Equal(t, domain.StudentPercentage{
		StudentID: "1", Name: "Ana", Group: "G1",
		AttendanceRate: 0.5, RiskLabel: domain.RiskAtRisk,
	}, summary.StudentPercentages[0])
	assert.Equal(t, domain.StudentPercentage{
		StudentID: "2", Name: "Luis", Group: "G1",
		AttendanceRate: 1.0, RiskLabel: domain.RiskOnTrack,
	}, summary.StudentPercentages[1])

	require.Len(t, summary.GroupSummary, 1)
	assert.Equal(t, domain.GroupSummary{
		Group: "G1", AttendanceRate: 0.75, StudentCount: 2,
	}, summary.GroupSummary[0])
}

func TestAggregate_RiskThresholdBoundary(t *testing.T) {
	tests := []struct {
		name    string
		present int
		total   int
		want    string
	}{
		{"exactly at threshold is on track", 8, 10, domain.RiskOnTrack},
		{"just below threshold is at risk", 7999, 10000, domain.RiskAtRisk},
		{"full attendance is on track", 10, 10, domain.RiskOnTrack},
		{"zero attendance is at risk", 0, 10, domain.RiskAtRisk},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			students := []domain.Student{{ID: "S1", Name: "Ana", Group: "G1"}}
			var records []domain.AttendanceRecord
			date := day(2024, 1, 1)
			for i := 0; i < tt.total; i++ {
				records = append(records, record("S1", date.AddDate(0, 0, i), "Math", i < tt.present))
			}

			summary, err := New(nil, Config{}).Aggregate(context.Background(), students, records)
			require.NoError(t, err)
			require.Len(t, summary.StudentPercentages, 1)
			assert.Equal(t, tt.want, summary.StudentPercentages[0].RiskLabel)
		})
	}
}

func TestAggregate_OrphanRecords(t *testing.T) {
	students := []domain.Student{{ID: "1", Name: "Ana", Group: "G1"}}
	records := []domain.AttendanceRecord{
		record("1", day(2024, 1, 1), "Math", true),
		record("99", day(2024, 1, 1), "Math", false), // no roster entry
	}

	summary, err := New(nil, Config{}).Aggregate(context.Background(), students, records)
	require.NoError(t, err)

	// Orphans are excluded from the joined tables and counted once.
	assert.Equal(t, 1, summary.Anomalies.OrphanRecords)
	assert.Equal(t, []string{"99"}, summary.Anomalies.OrphanStudentIDs)
	require.Len(t, summary.StudentPercentages, 1)
	assert.Equal(t, "1", summary.StudentPercentages[0].StudentID)
	require.Len(t, summary.GroupSummary, 1)
	assert.Equal(t, 1, summary.GroupSummary[0].StudentCount)
	assert.InDelta(t, 1.0, float64(summary.GroupSummary[0].AttendanceRate), 1e-9)

	// The day table is student independent: the orphan row still counts.
	require.Len(t, summary.DayPattern, 1)
	assert.InDelta(t, 0.5, float64(summary.DayPattern[0].AttendanceRate), 1e-9)
}

func TestAggregate_DayPatternOrdering(t *testing.T) {
	students := []domain.Student{{ID: "1", Name: "Ana", Group: "G1"}}
	records := []domain.AttendanceRecord{
		record("1", day(2024, 2, 5), "Math", true),
		record("1", day(2024, 1, 8), "Math", false),
		record("1", day(2024, 1, 15), "Math", true),
	}

	summary, err := New(nil, Config{}).Aggregate(context.Background(), students, records)
	require.NoError(t, err)

	require.Len(t, summary.DayPattern, 3)
	assert.Equal(t, day(2024, 1, 8), summary.DayPattern[0].Date)
	assert.Equal(t, day(2024, 1, 15), summary.DayPattern[1].Date)
	assert.Equal(t, day(2024, 2, 5), summary.DayPattern[2].Date)

	require.Len(t, summary.MonthlySummary, 2)
	assert.Equal(t, "2024-01", summary.MonthlySummary[0].Month)
	assert.Equal(t, "2024-02", summary.MonthlySummary[1].Month)
	assert.InDelta(t, 0.5, float64(summary.MonthlySummary[0].AttendanceRate), 1e-9)
	assert.InDelta(t, 1.0, float64(summary.MonthlySummary[1].AttendanceRate), 1e-9)
}

func TestAggregate_GroupWithoutRecords(t *testing.T) {
	students := []domain.Student{
		{ID: "1", Name: "Ana", Group: "G1"},
		{ID: "2", Name: "Luis", Group: "G2"},
	}
	records := []domain.AttendanceRecord{
		record("1", day(2024, 1, 1), "Math", true),
	}

	summary, err := New(nil, Config{}).Aggregate(context.Background(), students, records)
	require.NoError(t, err)

	require.Len(t, summary.GroupSummary, 2)
	assert.Equal(t, "G1", summary.GroupSummary[0].Group)
	assert.Equal(t, "G2", summary.GroupSummary[1].Group)
	// G2 has no records: degenerate key, null rate, zero students.
	assert.True(t, summary.GroupSummary[1].AttendanceRate.IsNull())
	assert.Equal(t, 0, summary.GroupSummary[1].StudentCount)
}

func TestAggregate_EmptyInput(t *testing.T) {
	summary, err := New(nil, Config{}).Aggregate(context.Background(), nil, nil)
	require.NoError(t, err)

	assert.True(t, summary.Anomalies.EmptyInput)
	assert.Empty(t, summary.DayPattern)
	assert.Empty(t, summary.GroupSummary)
	assert.Empty(t, summary.MonthlySummary)
	assert.Empty(t, summary.StudentPercentages)
}

func TestAggregate_DuplicateRosterID(t *testing.T) {
	students := []domain.Student{
		{ID: "1", Name: "Ana", Group: "G1"},
		{ID: "1", Name: "Ana B", Group: "G2"},
	}

	_, err := New(nil, Config{}).Aggregate(context.Background(), students, nil)
	assert.Error(t, err)
}

func TestAggregate_Deterministic(t *testing.T) {
	students := []domain.Student{
		{ID: "S1", Name: "Ana", Group: "G1"},
		{ID: "S2", Name: "Luis", Group: "G2"},
		{ID: "S3", Name: "Camila", Group: "G1"},
	}
	var records []domain.AttendanceRecord
	for i := 0; i < 30; i++ {
		id := []string{"S1", "S2", "S3"}[i%3]
		records = append(records, record(id, day(2024, 3, 1).AddDate(0, 0, i%10), "Math", i%4 != 0))
	}

	a := New(nil, Config{})
	first, err := a.Aggregate(context.Background(), students, records)
	require.NoError(t, err)
	second, err := a.Aggregate(context.Background(), students, records)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAggregate_RateBounds(t *testing.T) {
	students := []domain.Student{
		{ID: "S1", Name: "Ana", Group: "G1"},
		{ID: "S2", Name: "Luis", Group: "G2"},
	}
	var records []domain.AttendanceRecord
	for i := 0; i < 20; i++ {
		id := "S1"
		if i%2 == 0 {
			id = "S2"
		}
		records = append(records, record(id, day(2024, 5, 1).AddDate(0, 0, i), "Math", i%3 == 0))
	}

	summary, err := New(nil, Config{}).Aggregate(context.Background(), students, records)
	require.NoError(t, err)

	for _, d := range summary.DayPattern {
		assert.GreaterOrEqual(t, float64(d.AttendanceRate), 0.0)
		assert.LessOrEqual(t, float64(d.AttendanceRate), 1.0)
	}
	for _, g := range summary.GroupSummary {
		if !g.AttendanceRate.IsNull() {
			assert.GreaterOrEqual(t, float64(g.AttendanceRate), 0.0)
			assert.LessOrEqual(t, float64(g.AttendanceRate), 1.0)
		}
	}
	for _, s := range summary.StudentPercentages {
		assert.GreaterOrEqual(t, float64(s.AttendanceRate), 0.0)
		assert.LessOrEqual(t, float64(s.AttendanceRate), 1.0)
	}

	// Sum of per-group counts never exceeds distinct students in the log.
	distinct := map[string]bool{}
	for _, r := range records {
		distinct[r.StudentID] = true
	}
	total := 0
	for _, g := range summary.GroupSummary {
		total += g.StudentCount
	}
	assert.LessOrEqual(t, total, len(distinct))
}
