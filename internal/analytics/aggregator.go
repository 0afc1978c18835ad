// Package analytics computes the four derived attendance tables from the
// raw roster and attendance log. All computations are pure: identical
// inputs produce identical outputs, and inputs are never mutated.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/CauseofDeathLife/asistencia360-analytics/internal/errors"
	"github.com/CauseofDeathLife/asistencia360-analytics/pkg/contracts/domain"
)

// DefaultRiskThreshold is the attendance fraction below which a student
// is classified as at risk. A rate exactly at the threshold is on track.
const DefaultRiskThreshold = 0.80

// Aggregator transforms roster and attendance inputs into the derived
// summary tables.
type Aggregator struct {
	logger    *slog.Logger
	threshold float64
}

// Config holds configuration options for the Aggregator.
type Config struct {
	RiskThreshold *float64 // nil means DefaultRiskThreshold; 0 is a valid threshold
}

// Anomalies reports data-quality findings surfaced by an aggregation run.
// Orphan records reference a student_id with no roster entry; they are
// excluded from the group and student tables but still contribute to the
// student-independent day and month tables.
type Anomalies struct {
	OrphanRecords    int      `json:"orphan_records"`
	OrphanStudentIDs []string `json:"orphan_student_ids,omitempty"`
	EmptyInput       bool     `json:"empty_input"`
}

// Summary holds the four derived tables of one aggregation run.
type Summary struct {
	DayPattern         []domain.DayPattern        `json:"day_pattern"`
	GroupSummary       []domain.GroupSummary      `json:"group_summary"`
	MonthlySummary     []domain.MonthlySummary    `json:"monthly_summary"`
	StudentPercentages []domain.StudentPercentage `json:"student_percentages"`
	Anomalies          Anomalies                  `json:"anomalies"`
}

// New creates an Aggregator with the given configuration.
func New(logger *slog.Logger, cfg Config) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	threshold := DefaultRiskThreshold
	if cfg.RiskThreshold != nil {
		threshold = *cfg.RiskThreshold
	}
	return &Aggregator{logger: logger, threshold: threshold}
}

// Threshold returns the configured risk threshold.
func (a *Aggregator) Threshold() float64 {
	return a.threshold
}

// Aggregate computes the four derived tables. Empty input yields empty
// tables and a warning, not an error. Duplicate roster IDs are a schema
// violation and abort the run.
func (a *Aggregator) Aggregate(ctx context.Context, students []domain.Student, records []domain.AttendanceRecord) (*Summary, error) {
	roster := make(map[string]domain.Student, len(students))
	for _, s := range students {
		if _, dup := roster[s.ID]; dup {
			return nil, errors.NewAppValidationError(fmt.Sprintf("duplicate student_id %q in roster", s.ID))
		}
		roster[s.ID] = s
	}

	summary := &Summary{
		DayPattern:         a.dayPattern(records),
		MonthlySummary:     a.monthlySummary(records),
		StudentPercentages: []domain.StudentPercentage{},
	}

	joined, orphans := splitOrphans(roster, records)
	summary.GroupSummary = a.groupSummary(students, joined)
	summary.StudentPercentages = a.studentPercentages(roster, joined)
	summary.Anomalies = anomalyReport(orphans)

	if len(records) == 0 {
		summary.Anomalies.EmptyInput = true
		a.logger.WarnContext(ctx, "attendance log is empty, derived tables will be empty")
	}

	a.logger.InfoContext(ctx, "aggregation complete",
		slog.Int("attendance_records", len(records)),
		slog.Int("students", len(students)),
		slog.Int("orphan_records", summary.Anomalies.OrphanRecords),
		slog.Int("days", len(summary.DayPattern)),
		slog.Int("groups", len(summary.GroupSummary)),
		slog.Int("months", len(summary.MonthlySummary)))

	return summary, nil
}

type tally struct {
	present int
	total   int
}

func (t *tally) add(present bool) {
	if present {
		t.present++
	}
	t.total++
}

// dayPattern groups records by calendar date. The table is student
// independent: orphan records still count toward it.
func (a *Aggregator) dayPattern(records []domain.AttendanceRecord) []domain.DayPattern {
	byDay := make(map[string]*tally)
	for _, r := range records {
		key := r.Date.Format("2006-01-02")
		t := byDay[key]
		if t == nil {
			t = &tally{}
			byDay[key] = t
		}
		t.add(r.Present)
	}

	out := make([]domain.DayPattern, 0, len(byDay))
	for key, t := range byDay {
		date, _ := time.Parse("2006-01-02", key)
		out = append(out, domain.DayPattern{Date: date, AttendanceRate: domain.Rate(t.present, t.total)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// monthlySummary groups records by truncated month, same orphan rule as
// dayPattern.
func (a *Aggregator) monthlySummary(records []domain.AttendanceRecord) []domain.MonthlySummary {
	byMonth := make(map[string]*tally)
	for _, r := range records {
		key := r.Date.Format("2006-01")
		t := byMonth[key]
		if t == nil {
			t = &tally{}
			byMonth[key] = t
		}
		t.add(r.Present)
	}

	out := make([]domain.MonthlySummary, 0, len(byMonth))
	for key, t := range byMonth {
		out = append(out, domain.MonthlySummary{Month: key, AttendanceRate: domain.Rate(t.present, t.total)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// groupSummary aggregates joined records per roster group. Every roster
// group appears in the output; groups without records get a NaN rate and
// a zero student count so the degenerate key is visible, not hidden.
func (a *Aggregator) groupSummary(students []domain.Student, joined []joinedRecord) []domain.GroupSummary {
	type groupTally struct {
		tally
		students map[string]bool
	}

	byGroup := make(map[string]*groupTally)
	for _, s := range students {
		if byGroup[s.Group] == nil {
			byGroup[s.Group] = &groupTally{students: make(map[string]bool)}
		}
	}
	for _, j := range joined {
		t := byGroup[j.student.Group]
		t.add(j.record.Present)
		t.students[j.student.ID] = true
	}

	out := make([]domain.GroupSummary, 0, len(byGroup))
	for group, t := range byGroup {
		out = append(out, domain.GroupSummary{
			Group:          group,
			AttendanceRate: domain.Rate(t.present, t.total),
			StudentCount:   len(t.students),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Group < out[j].Group })
	return out
}

// studentPercentages aggregates joined records per student and assigns
// the risk label. Only students appearing in the log are listed.
func (a *Aggregator) studentPercentages(roster map[string]domain.Student, joined []joinedRecord) []domain.StudentPercentage {
	byStudent := make(map[string]*tally)
	for _, j := range joined {
		t := byStudent[j.student.ID]
		if t == nil {
			t = &tally{}
			byStudent[j.student.ID] = t
		}
		t.add(j.record.Present)
	}

	out := make([]domain.StudentPercentage, 0, len(byStudent))
	for id, t := range byStudent {
		s := roster[id]
		rate := domain.Rate(t.present, t.total)
		out = append(out, domain.StudentPercentage{
			StudentID:      id,
			Name:           s.Name,
			Group:          s.Group,
			AttendanceRate: rate,
			RiskLabel:      a.riskLabel(rate),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StudentID < out[j].StudentID })
	return out
}

// riskLabel classifies a rate against the threshold. The threshold value
// itself is on track (inclusive upper bound).
func (a *Aggregator) riskLabel(rate domain.RateValue) string {
	if float64(rate) < a.threshold {
		return domain.RiskAtRisk
	}
	return domain.RiskOnTrack
}

type joinedRecord struct {
	record  domain.AttendanceRecord
	student domain.Student
}

// splitOrphans joins records to the roster, separating the rows whose
// student_id has no roster entry.
func splitOrphans(roster map[string]domain.Student, records []domain.AttendanceRecord) ([]joinedRecord, []domain.AttendanceRecord) {
	joined := make([]joinedRecord, 0, len(records))
	var orphans []domain.AttendanceRecord
	for _, r := range records {
		s, ok := roster[r.StudentID]
		if !ok {
			orphans = append(orphans, r)
			continue
		}
		joined = append(joined, joinedRecord{record: r, student: s})
	}
	return joined, orphans
}

func anomalyReport(orphans []domain.AttendanceRecord) Anomalies {
	ids := make(map[string]bool)
	for _, r := range orphans {
		ids[r.StudentID] = true
	}
	report := Anomalies{OrphanRecords: len(orphans)}
	for id := range ids {
		report.OrphanStudentIDs = append(report.OrphanStudentIDs, id)
	}
	sort.Strings(report.OrphanStudentIDs)
	return report
}
