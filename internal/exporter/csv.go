// Package exporter writes the derived attendance tables to disk. Each
// run truncates and rewrites its output files; concurrent runs against
// the same outputs directory are last-writer-wins and must be serialized
// by the caller.
package exporter

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/CauseofDeathLife/asistencia360-analytics/internal/analytics"
	"github.com/CauseofDeathLife/asistencia360-analytics/internal/errors"
	"github.com/CauseofDeathLife/asistencia360-analytics/pkg/contracts/domain"
)

// Output file names inside the outputs directory.
const (
	DayPatternFile         = "day_pattern.csv"
	GroupSummaryFile       = "group_summary.csv"
	MonthlySummaryFile     = "monthly_summary.csv"
	StudentPercentagesFile = "student_percentages.csv"
	WorkbookFile           = "attendance_report.xlsx"
)

// CSVWriter writes derived tables as CSV files into a fixed directory.
type CSVWriter struct {
	logger *slog.Logger
	outDir string
}

// NewCSVWriter creates a CSV writer rooted at the given outputs directory.
func NewCSVWriter(logger *slog.Logger, outDir string) *CSVWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVWriter{logger: logger, outDir: outDir}
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes data to a CSV file with the given options
func (w *CSVWriter) WriteCSV(ctx context.Context, name string, options WriteOptions) error {
	fullPath := filepath.Join(w.outDir, name)

	w.logger.InfoContext(ctx, "writing CSV file",
		slog.String("path", fullPath),
		slog.Int("record_count", len(options.Records)))

	if err := os.MkdirAll(w.outDir, 0755); err != nil {
		return errors.NewStorageError("failed to create outputs directory", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return errors.NewStorageError(fmt.Sprintf("failed to create %s", name), err)
	}
	defer file.Close()

	// BOM helps Excel recognize UTF-8
	if options.BOMPrefix {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return errors.NewStorageError("failed to write BOM", err)
		}
	}

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return errors.NewStorageError("failed to write CSV header row", err)
		}
	}

	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return errors.NewStorageError(fmt.Sprintf("failed to write CSV row %d", i), err)
		}
	}

	writer.Flush()
	return writer.Error()
}

// WriteSummary writes all four derived tables as separate CSV files.
func (w *CSVWriter) WriteSummary(ctx context.Context, summary *analytics.Summary) error {
	tables := []struct {
		name    string
		headers []string
		records [][]string
	}{
		{DayPatternFile, []string{"date", "attendance_rate"}, dayPatternRows(summary.DayPattern)},
		{GroupSummaryFile, []string{"group", "attendance_rate", "student_count"}, groupSummaryRows(summary.GroupSummary)},
		{MonthlySummaryFile, []string{"month", "attendance_rate"}, monthlySummaryRows(summary.MonthlySummary)},
		{StudentPercentagesFile, []string{"student_id", "name", "group", "attendance_rate", "risk_label"}, studentPercentageRows(summary.StudentPercentages)},
	}

	for _, t := range tables {
		opts := WriteOptions{Headers: t.headers, Records: t.records, BOMPrefix: true}
		if err := w.WriteCSV(ctx, t.name, opts); err != nil {
			return err
		}
	}
	return nil
}

func dayPatternRows(rows []domain.DayPattern) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{r.Date.Format("2006-01-02"), formatRate(r.AttendanceRate)})
	}
	return out
}

func groupSummaryRows(rows []domain.GroupSummary) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{r.Group, formatRate(r.AttendanceRate), strconv.Itoa(r.StudentCount)})
	}
	return out
}

func monthlySummaryRows(rows []domain.MonthlySummary) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{r.Month, formatRate(r.AttendanceRate)})
	}
	return out
}

func studentPercentageRows(rows []domain.StudentPercentage) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, []string{r.StudentID, r.Name, r.Group, formatRate(r.AttendanceRate), r.RiskLabel})
	}
	return out
}

// formatRate renders an attendance fraction with fixed precision so that
// repeated runs produce byte-identical files. An undefined rate
// (degenerate grouping key) renders as an empty field.
func formatRate(rate domain.RateValue) string {
	if rate.IsNull() {
		return ""
	}
	return strconv.FormatFloat(float64(rate), 'f', 4, 64)
}
