package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/CauseofDeathLife/asistencia360-analytics/internal/errors"
	"github.com/CauseofDeathLife/asistencia360-analytics/pkg/contracts/domain"
)

// DateLayout is the ISO-8601 calendar date format used across all tables.
const DateLayout = "2006-01-02"

// RowError records one rejected input row. Rows are 1-based and count the
// header, matching what a reader sees in a spreadsheet.
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// LoadReport accumulates row-level data-quality findings for one file.
// Schema errors abort the load; everything reported here was excluded
// from the returned rows while the load continued.
type LoadReport struct {
	Path         string     `json:"path"`
	TotalRows    int        `json:"total_rows"`
	AcceptedRows int        `json:"accepted_rows"`
	RowErrors    []RowError `json:"row_errors,omitempty"`
}

// Rejected returns the number of rows excluded by the load.
func (r *LoadReport) Rejected() int {
	return len(r.RowErrors)
}

func (r *LoadReport) reject(row int, reason string) {
	r.RowErrors = append(r.RowErrors, RowError{Row: row, Reason: reason})
}

// LoadStudents reads the roster CSV. Required columns: student_id, name,
// group. A missing column is a schema error and fails the whole load;
// blank fields and duplicate IDs reject the row and continue.
func LoadStudents(logger *slog.Logger, path string) ([]domain.Student, *LoadReport, error) {
	if logger == nil {
		logger = slog.Default()
	}

	rows, header, err := readTable(path)
	if err != nil {
		return nil, nil, err
	}

	cols, err := mapColumns(path, header, []string{"student_id", "name", "group"})
	if err != nil {
		return nil, nil, err
	}

	report := &LoadReport{Path: path, TotalRows: len(rows)}
	seen := make(map[string]bool, len(rows))
	students := make([]domain.Student, 0, len(rows))

	for i, row := range rows {
		rowNum := i + 2 // header is row 1
		id := cell(row, cols["student_id"])
		name := cell(row, cols["name"])
		group := cell(row, cols["group"])

		switch {
		case id == "":
			report.reject(rowNum, "blank student_id")
		case name == "":
			report.reject(rowNum, "blank name")
		case group == "":
			report.reject(rowNum, "blank group")
		case seen[id]:
			report.reject(rowNum, fmt.Sprintf("duplicate student_id %q", id))
		default:
			seen[id] = true
			students = append(students, domain.Student{ID: id, Name: name, Group: group})
		}
	}

	report.AcceptedRows = len(students)
	logLoad(logger, "roster loaded", report)
	return students, report, nil
}

// LoadAttendance reads the attendance log CSV. Required columns:
// student_id, date, subject, present. Unparseable dates and booleans are
// row-level data-quality errors: the row is rejected and counted, the
// load continues.
func LoadAttendance(logger *slog.Logger, path string) ([]domain.AttendanceRecord, *LoadReport, error) {
	if logger == nil {
		logger = slog.Default()
	}

	rows, header, err := readTable(path)
	if err != nil {
		return nil, nil, err
	}

	cols, err := mapColumns(path, header, []string{"student_id", "date", "subject", "present"})
	if err != nil {
		return nil, nil, err
	}

	report := &LoadReport{Path: path, TotalRows: len(rows)}
	records := make([]domain.AttendanceRecord, 0, len(rows))

	for i, row := range rows {
		rowNum := i + 2
		id := cell(row, cols["student_id"])
		rawDate := cell(row, cols["date"])
		subject := cell(row, cols["subject"])
		rawPresent := cell(row, cols["present"])

		if id == "" {
			report.reject(rowNum, "blank student_id")
			continue
		}
		if subject == "" {
			report.reject(rowNum, "blank subject")
			continue
		}

		date, err := time.Parse(DateLayout, rawDate)
		if err != nil {
			report.reject(rowNum, fmt.Sprintf("unparseable date %q", rawDate))
			continue
		}

		present, ok := parsePresent(rawPresent)
		if !ok {
			report.reject(rowNum, fmt.Sprintf("unparseable present value %q", rawPresent))
			continue
		}

		records = append(records, domain.AttendanceRecord{
			StudentID: id,
			Date:      date,
			Subject:   subject,
			Present:   present,
		})
	}

	report.AcceptedRows = len(records)
	logLoad(logger, "attendance log loaded", report)
	return records, report, nil
}

// parsePresent accepts the boolean-like values of the input contract:
// true/false and 1/0, case-insensitive.
func parsePresent(raw string) (bool, bool) {
	switch strings.ToLower(raw) {
	case "true", "1":
		return true, true
	case "false", "0":
		return false, true
	default:
		return false, false
	}
}

// readTable reads a whole CSV file, returning the data rows and the header.
// Inputs are expected to fit in memory; there is no streaming mode.
func readTable(path string) ([][]string, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.NewStorageError(fmt.Sprintf("failed to open %s", path), err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // ragged rows are handled per cell
	reader.TrimLeadingSpace = true

	var header []string
	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, errors.NewParsingError(fmt.Sprintf("failed to read %s", path), err)
		}
		if header == nil {
			header = row
			continue
		}
		rows = append(rows, row)
	}

	if header == nil {
		return nil, nil, errors.NewAppValidationError(fmt.Sprintf("%s is empty: missing header row", path))
	}
	return rows, header, nil
}

// mapColumns maps required column names to their positions in the header.
// Matching is case-insensitive and ignores surrounding whitespace and a
// UTF-8 BOM, so files written for Excel load cleanly.
func mapColumns(path string, header []string, required []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\uFEFF")))
		if name != "" {
			cols[name] = i
		}
	}

	var missing []string
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, errors.NewAppValidationError(
			fmt.Sprintf("%s is missing required columns: %s", path, strings.Join(missing, ", ")))
	}
	return cols, nil
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func logLoad(logger *slog.Logger, msg string, report *LoadReport) {
	logger.Info(msg,
		slog.String("path", report.Path),
		slog.Int("total_rows", report.TotalRows),
		slog.Int("accepted_rows", report.AcceptedRows),
		slog.Int("rejected_rows", report.Rejected()))
	for _, re := range report.RowErrors {
		logger.Warn("row rejected",
			slog.String("path", report.Path),
			slog.Int("row", re.Row),
			slog.String("reason", re.Reason))
	}
}
