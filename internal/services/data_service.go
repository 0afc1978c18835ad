// Package services holds the dashboard's application services. State is
// loaded once at startup and passed explicitly through every call; there
// is no ambient session holding "the last loaded dataset".
package services

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/CauseofDeathLife/asistencia360-analytics/internal/analytics"
	"github.com/CauseofDeathLife/asistencia360-analytics/internal/dataset"
	"github.com/CauseofDeathLife/asistencia360-analytics/pkg/contracts/domain"
)

// ErrNotLoaded is returned when the service is used before Load succeeded.
var ErrNotLoaded = errors.New("attendance dataset not loaded")

// DataService serves filtered attendance summaries to the dashboard.
// The raw tables are immutable after Load, so concurrent readers are safe.
type DataService struct {
	logger     *slog.Logger
	validate   *validator.Validate
	aggregator *analytics.Aggregator

	loaded   bool
	students []domain.Student
	records  []domain.AttendanceRecord
	groups   map[string]string // student ID -> group
}

// NewDataService creates a data service around the given aggregator.
func NewDataService(logger *slog.Logger, aggregator *analytics.Aggregator) *DataService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DataService{
		logger:     logger.With(slog.String("component", "data_service")),
		validate:   validator.New(),
		aggregator: aggregator,
	}
}

// Load reads the raw tables from disk. Row-level rejects are reported in
// the returned load reports; schema errors fail the load.
func (s *DataService) Load(ctx context.Context, studentsPath, attendancePath string) (*dataset.LoadReport, *dataset.LoadReport, error) {
	students, rosterReport, err := dataset.LoadStudents(s.logger, studentsPath)
	if err != nil {
		return nil, nil, err
	}
	records, logReport, err := dataset.LoadAttendance(s.logger, attendancePath)
	if err != nil {
		return rosterReport, nil, err
	}

	groups := make(map[string]string, len(students))
	for _, st := range students {
		groups[st.ID] = st.Group
	}

	s.students = students
	s.records = records
	s.groups = groups
	s.loaded = true

	s.logger.InfoContext(ctx, "dataset loaded",
		slog.Int("students", len(students)),
		slog.Int("attendance_records", len(records)))

	return rosterReport, logReport, nil
}

// Meta describes the loaded dataset: the values the dashboard's filter
// controls offer, and the date bounds of the log.
type Meta struct {
	Groups     []string        `json:"groups"`
	Subjects   []string        `json:"subjects"`
	Students   []StudentOption `json:"students"`
	DateFrom   string          `json:"date_from,omitempty"`
	DateTo     string          `json:"date_to,omitempty"`
	RecordRows int             `json:"record_rows"`
}

// StudentOption is one entry of the dashboard's student selector.
type StudentOption struct {
	ID   string `json:"student_id"`
	Name string `json:"name"`
}

// Meta returns the filter metadata for the loaded dataset.
func (s *DataService) Meta(ctx context.Context) (*Meta, error) {
	if !s.loaded {
		return nil, ErrNotLoaded
	}

	groupSet := make(map[string]bool)
	for _, st := range s.students {
		groupSet[st.Group] = true
	}
	subjectSet := make(map[string]bool)
	for _, r := range s.records {
		subjectSet[r.Subject] = true
	}

	meta := &Meta{
		Groups:     sortedKeys(groupSet),
		Subjects:   sortedKeys(subjectSet),
		RecordRows: len(s.records),
	}

	for _, st := range s.students {
		meta.Students = append(meta.Students, StudentOption{ID: st.ID, Name: st.Name})
	}
	sort.Slice(meta.Students, func(i, j int) bool { return meta.Students[i].ID < meta.Students[j].ID })

	if from, to, ok := dateBounds(s.records); ok {
		meta.DateFrom = from.Format(dataset.DateLayout)
		meta.DateTo = to.Format(dataset.DateLayout)
	}

	return meta, nil
}

// Summarize applies the filter to the raw log and recomputes the four
// derived tables over the filtered slice. An empty filtered result yields
// empty tables, not an error: the dashboard renders "no data for selected
// filter" from it.
func (s *DataService) Summarize(ctx context.Context, filter domain.AttendanceFilter) (*analytics.Summary, error) {
	if !s.loaded {
		return nil, ErrNotLoaded
	}
	if err := s.validate.Struct(filter); err != nil {
		return nil, err
	}

	var filtered []domain.AttendanceRecord
	for _, r := range s.records {
		if filter.Match(r, s.groups[r.StudentID]) {
			filtered = append(filtered, r)
		}
	}

	students := s.filterRoster(filter)

	s.logger.DebugContext(ctx, "filter applied",
		slog.Int("matched_records", len(filtered)),
		slog.Int("matched_students", len(students)))

	return s.aggregator.Aggregate(ctx, students, filtered)
}

// filterRoster narrows the roster to the filter's groups and student so
// group_summary does not list groups the user filtered away.
func (s *DataService) filterRoster(filter domain.AttendanceFilter) []domain.Student {
	var out []domain.Student
	for _, st := range s.students {
		if len(filter.Groups) > 0 && !containsString(filter.Groups, st.Group) {
			continue
		}
		if filter.StudentID != "" && st.ID != filter.StudentID {
			continue
		}
		out = append(out, st)
	}
	return out
}

func containsString(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func dateBounds(records []domain.AttendanceRecord) (time.Time, time.Time, bool) {
	if len(records) == 0 {
		return time.Time{}, time.Time{}, false
	}
	from, to := records[0].Date, records[0].Date
	for _, r := range records[1:] {
		if r.Date.Before(from) {
			from = r.Date
		}
		if r.Date.After(to) {
			to = r.Date
		}
	}
	return from, to, true
}
