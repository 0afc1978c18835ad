package exporter

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWorkbookWriteSummary(t *testing.T) {
	dir := t.TempDir()
	w := NewWorkbookWriter(nil, dir)

	require.NoError(t, w.WriteSummary(context.Background(), sampleSummary()))

	f, err := excelize.OpenFile(filepath.Join(dir, WorkbookFile))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{
		"Day Pattern", "Group Summary", "Monthly Summary", "Student Percentages", "Anomalies",
	}, f.GetSheetList())

	rows, err := f.GetRows("Student Percentages")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"student_id", "name", "group", "attendance_rate", "risk_label"}, rows[0])
	assert.Equal(t, "S001", rows[1][0])
	assert.Equal(t, "at risk", rows[1][4])

	rows, err = f.GetRows("Group Summary")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	// Undefined rate stays blank in the sheet.
	assert.Equal(t, "", rows[2][1])
}
