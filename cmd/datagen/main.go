// Command datagen generates a synthetic roster and attendance log in the
// aggregator's input schema. The same seed always produces identical
// files, so demo data is reproducible.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/CauseofDeathLife/asistencia360-analytics/internal/config"
	"github.com/CauseofDeathLife/asistencia360-analytics/internal/exporter"
	"github.com/CauseofDeathLife/asistencia360-analytics/internal/generator"
	"github.com/CauseofDeathLife/asistencia360-analytics/internal/infrastructure"
)

func main() {
	seed := flag.Int64("seed", 42, "random seed")
	perGroup := flag.Int("students", 32, "students per group")
	start := flag.String("start", "2025-07-01", "first class date (YYYY-MM-DD)")
	end := flag.String("end", "2025-10-31", "last class date (YYYY-MM-DD)")
	outDir := flag.String("out", "", "data directory (defaults to data)")
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

	if *outDir == "" {
		*outDir = cfg.Paths.DataDir
	}

	startDate, err := time.Parse("2006-01-02", *start)
	if err != nil {
		logger.Error("invalid -start date", slog.String("value", *start))
		os.Exit(1)
	}
	endDate, err := time.Parse("2006-01-02", *end)
	if err != nil {
		logger.Error("invalid -end date", slog.String("value", *end))
		os.Exit(1)
	}
	if endDate.Before(startDate) {
		logger.Error("-end must not be before -start")
		os.Exit(1)
	}

	gen := generator.New(logger, generator.Config{
		Seed:             *seed,
		StudentsPerGroup: *perGroup,
		StartDate:        startDate,
		EndDate:          endDate,
	})
	students, records := gen.Generate()

	writer := exporter.NewCSVWriter(logger, *outDir)
	if err := generator.WriteCSV(context.Background(), writer, students, records); err != nil {
		logger.Error("failed to write dataset", slog.String("error", err.Error()))
		os.Exit(1)
	}

	fmt.Printf("OK: %s and %s written to %s\n", generator.StudentsFile, generator.AttendanceFile, *outDir)
}
