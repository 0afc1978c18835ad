// Command aggregator runs the batch attendance analytics: it loads the
// roster and attendance log, computes the four derived tables and writes
// them to the outputs directory as CSV plus one XLSX report.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/CauseofDeathLife/asistencia360-analytics/internal/analytics"
	"github.com/CauseofDeathLife/asistencia360-analytics/internal/config"
	"github.com/CauseofDeathLife/asistencia360-analytics/internal/dataset"
	"github.com/CauseofDeathLife/asistencia360-analytics/internal/exporter"
	"github.com/CauseofDeathLife/asistencia360-analytics/internal/infrastructure"
)

func main() {
	studentsPath := flag.String("students", "", "roster csv path (defaults to data/students.csv)")
	attendancePath := flag.String("attendance", "", "attendance log csv path (defaults to data/attendance.csv, ASISTENCIA_INPUT overrides)")
	outDir := flag.String("out", "", "outputs directory (defaults to outputs, ASISTENCIA_OUTDIR overrides)")
	threshold := flag.Float64("risk", analytics.DefaultRiskThreshold, "risk threshold as a fraction (ASISTENCIA_RISK overrides the config default)")
	skipWorkbook := flag.Bool("no-xlsx", false, "skip writing the XLSX report")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}

	// Flags win over config and env.
	if *studentsPath == "" {
		*studentsPath = cfg.Paths.StudentsCSV
	}
	if *attendancePath == "" {
		*attendancePath = cfg.Paths.AttendanceCSV
	}
	if *outDir == "" {
		*outDir = cfg.Paths.OutputsDir
	}
	// An explicit -risk wins over config and env, even -risk 0.
	risk := cfg.Analytics.RiskThreshold
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "risk" {
			risk = *threshold
		}
	})

	logger.Info("starting attendance aggregation",
		slog.String("students", *studentsPath),
		slog.String("attendance", *attendancePath),
		slog.String("outputs", *outDir),
		slog.Float64("risk_threshold", risk))

	ctx := context.Background()

	students, rosterReport, err := dataset.LoadStudents(logger, *studentsPath)
	if err != nil {
		logger.Error("failed to load roster", slog.String("error", err.Error()))
		os.Exit(1)
	}
	records, logReport, err := dataset.LoadAttendance(logger, *attendancePath)
	if err != nil {
		logger.Error("failed to load attendance log", slog.String("error", err.Error()))
		os.Exit(1)
	}

	aggregator := analytics.New(logger, analytics.Config{RiskThreshold: &risk})
	summary, err := aggregator.Aggregate(ctx, students, records)
	if err != nil {
		logger.Error("aggregation failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	csvWriter := exporter.NewCSVWriter(logger, *outDir)
	if err := csvWriter.WriteSummary(ctx, summary); err != nil {
		logger.Error("failed to write derived tables", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if !*skipWorkbook {
		wb := exporter.NewWorkbookWriter(logger, *outDir)
		if err := wb.WriteSummary(ctx, summary); err != nil {
			logger.Error("failed to write XLSX report", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	rejected := rosterReport.Rejected() + logReport.Rejected()
	fmt.Printf("OK: derived tables written to %s (%d rows rejected, %d orphan records)\n",
		*outDir, rejected, summary.Anomalies.OrphanRecords)
}
