package generator

import (
	"context"
	"strconv"

	"github.com/CauseofDeathLife/asistencia360-analytics/internal/exporter"
	"github.com/CauseofDeathLife/asistencia360-analytics/pkg/contracts/domain"
)

// Input file names inside the data directory.
const (
	StudentsFile   = "students.csv"
	AttendanceFile = "attendance.csv"
)

// WriteCSV writes the generated tables in the aggregator's input schema.
func WriteCSV(ctx context.Context, w *exporter.CSVWriter, students []domain.Student, records []domain.AttendanceRecord) error {
	studentRows := make([][]string, 0, len(students))
	for _, s := range students {
		studentRows = append(studentRows, []string{s.ID, s.Name, s.Group})
	}
	if err := w.WriteCSV(ctx, StudentsFile, exporter.WriteOptions{
		Headers: []string{"student_id", "name", "group"},
		Records: studentRows,
	}); err != nil {
		return err
	}

	recordRows := make([][]string, 0, len(records))
	for _, r := range records {
		recordRows = append(recordRows, []string{
			r.StudentID,
			r.Date.Format("2006-01-02"),
			r.Subject,
			strconv.FormatBool(r.Present),
		})
	}
	return w.WriteCSV(ctx, AttendanceFile, exporter.WriteOptions{
		Headers: []string{"student_id", "date", "subject", "present"},
		Records: recordRows,
	})
}
