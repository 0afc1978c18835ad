package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/CauseofDeathLife/asistencia360-analytics/internal/analytics"
	"github.com/CauseofDeathLife/asistencia360-analytics/internal/errors"
	"github.com/CauseofDeathLife/asistencia360-analytics/pkg/contracts/domain"
)

// WorkbookWriter writes all derived tables as sheets of a single XLSX
// workbook, one report file per aggregation run.
type WorkbookWriter struct {
	logger *slog.Logger
	outDir string
}

// NewWorkbookWriter creates a workbook writer rooted at the outputs directory.
func NewWorkbookWriter(logger *slog.Logger, outDir string) *WorkbookWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookWriter{logger: logger, outDir: outDir}
}

// WriteSummary writes the four derived tables into attendance_report.xlsx,
// one sheet per table, plus an Anomalies sheet with the run's data-quality
// counters.
func (w *WorkbookWriter) WriteSummary(ctx context.Context, summary *analytics.Summary) error {
	fullPath := filepath.Join(w.outDir, WorkbookFile)

	w.logger.InfoContext(ctx, "writing XLSX report",
		slog.String("path", fullPath))

	if err := os.MkdirAll(w.outDir, 0755); err != nil {
		return errors.NewStorageError("failed to create outputs directory", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheets := []struct {
		name    string
		headers []string
		rows    [][]interface{}
	}{
		{"Day Pattern", []string{"date", "attendance_rate"}, dayPatternCells(summary)},
		{"Group Summary", []string{"group", "attendance_rate", "student_count"}, groupSummaryCells(summary)},
		{"Monthly Summary", []string{"month", "attendance_rate"}, monthlySummaryCells(summary)},
		{"Student Percentages", []string{"student_id", "name", "group", "attendance_rate", "risk_label"}, studentPercentageCells(summary)},
		{"Anomalies", []string{"metric", "value"}, anomalyCells(summary)},
	}

	for i, sheet := range sheets {
		if i == 0 {
			// First sheet replaces the workbook's default sheet.
			if err := f.SetSheetName(f.GetSheetName(0), sheet.name); err != nil {
				return errors.NewStorageError("failed to rename workbook sheet", err)
			}
		} else {
			if _, err := f.NewSheet(sheet.name); err != nil {
				return errors.NewStorageError("failed to add workbook sheet", err)
			}
		}

		if err := writeSheet(f, sheet.name, sheet.headers, sheet.rows); err != nil {
			return err
		}
	}

	if err := f.SaveAs(fullPath); err != nil {
		return errors.NewStorageError("failed to save XLSX report", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, rows [][]interface{}) error {
	headerCells := make([]interface{}, len(headers))
	for i, h := range headers {
		headerCells[i] = h
	}
	if err := setRow(f, sheet, 1, headerCells); err != nil {
		return err
	}
	for i, row := range rows {
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return errors.NewStorageError("failed to compute cell coordinates", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return errors.NewStorageError(fmt.Sprintf("failed to write row %d of sheet %s", row, sheet), err)
	}
	return nil
}

// rateCell renders a rate for a worksheet cell: numeric when defined,
// blank for a degenerate key, mirroring the CSV rendering.
func rateCell(rate domain.RateValue) interface{} {
	if rate.IsNull() {
		return ""
	}
	return float64(rate)
}

func dayPatternCells(summary *analytics.Summary) [][]interface{} {
	out := make([][]interface{}, 0, len(summary.DayPattern))
	for _, r := range summary.DayPattern {
		out = append(out, []interface{}{r.Date.Format("2006-01-02"), rateCell(r.AttendanceRate)})
	}
	return out
}

func groupSummaryCells(summary *analytics.Summary) [][]interface{} {
	out := make([][]interface{}, 0, len(summary.GroupSummary))
	for _, r := range summary.GroupSummary {
		out = append(out, []interface{}{r.Group, rateCell(r.AttendanceRate), r.StudentCount})
	}
	return out
}

func monthlySummaryCells(summary *analytics.Summary) [][]interface{} {
	out := make([][]interface{}, 0, len(summary.MonthlySummary))
	for _, r := range summary.MonthlySummary {
		out = append(out, []interface{}{r.Month, rateCell(r.AttendanceRate)})
	}
	return out
}

func studentPercentageCells(summary *analytics.Summary) [][]interface{} {
	out := make([][]interface{}, 0, len(summary.StudentPercentages))
	for _, r := range summary.StudentPercentages {
		out = append(out, []interface{}{r.StudentID, r.Name, r.Group, rateCell(r.AttendanceRate), r.RiskLabel})
	}
	return out
}

func anomalyCells(summary *analytics.Summary) [][]interface{} {
	return [][]interface{}{
		{"orphan_records", summary.Anomalies.OrphanRecords},
		{"orphan_student_ids", len(summary.Anomalies.OrphanStudentIDs)},
		{"empty_input", summary.Anomalies.EmptyInput},
	}
}
