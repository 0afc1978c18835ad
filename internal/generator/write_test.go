package generator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CauseofDeathLife/asistencia360-analytics/internal/dataset"
	"github.com/CauseofDeathLife/asistencia360-analytics/internal/exporter"
)

// Generated files must load back through the dataset loader without a
// single rejected row.
func TestWriteCSV_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	g := New(nil, Config{
		Seed:             42,
		StudentsPerGroup: 3,
		Groups:           []string{"G1", "G2"},
		StartDate:        time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		EndDate:          time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC),
	})
	students, records := g.Generate()

	w := exporter.NewCSVWriter(nil, dir)
	require.NoError(t, WriteCSV(context.Background(), w, students, records))

	loadedStudents, rosterReport, err := dataset.LoadStudents(nil, dir+"/"+StudentsFile)
	require.NoError(t, err)
	assert.Equal(t, 0, rosterReport.Rejected())
	assert.Equal(t, students, loadedStudents)

	loadedRecords, logReport, err := dataset.LoadAttendance(nil, dir+"/"+AttendanceFile)
	require.NoError(t, err)
	assert.Equal(t, 0, logReport.Rejected())
	require.Len(t, loadedRecords, len(records))
	assert.Equal(t, records[0].StudentID, loadedRecords[0].StudentID)
	assert.Equal(t, records[0].Present, loadedRecords[0].Present)
	assert.True(t, records[0].Date.Equal(loadedRecords[0].Date))
}
