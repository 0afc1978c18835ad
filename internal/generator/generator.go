// Package generator produces schema-valid synthetic roster and attendance
// datasets for demos and testing. Generation is fully determined by the
// seed: the same configuration always yields the same tables.
package generator

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/CauseofDeathLife/asistencia360-analytics/pkg/contracts/domain"
)

// Config holds the generation parameters.
type Config struct {
	Seed             int64
	StudentsPerGroup int
	Groups           []string
	Subjects         []string
	StartDate        time.Time
	EndDate          time.Time
}

// DefaultConfig returns the demo dataset parameters: three groups on a
// Monday/Wednesday/Friday schedule over one term.
func DefaultConfig() Config {
	return Config{
		Seed:             42,
		StudentsPerGroup: 32,
		Groups:           []string{"G1", "G2", "G3"},
		Subjects:         []string{"Frontend 2", "Backend 2", "Nuevas Tecnologias"},
		StartDate:        time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		EndDate:          time.Date(2025, 10, 31, 0, 0, 0, 0, time.UTC),
	}
}

// Attendance probability model: a per-group base, adjusted per subject and
// weekday, plus a stable per-student bias, clamped to a plausible band.
var (
	groupBase    = []float64{0.90, 0.84, 0.78}
	subjectDelta = []float64{0.03, -0.03, 0.00}
	weekdayDelta = map[time.Weekday]float64{
		time.Monday:    -0.02,
		time.Wednesday: 0.00,
		time.Friday:    0.01,
	}
)

const (
	clampMin = 0.55
	clampMax = 0.98
)

var firstNames = []string{
	"Juan", "Carlos", "Andres", "Felipe", "Santiago", "Sebastian", "Luis", "Jorge",
	"Maria", "Ana", "Camila", "Valentina", "Daniela", "Laura", "Carolina", "Sofia",
	"Diego", "Paula", "Andrea", "Diana", "Nicolas", "David", "Gabriela", "Tatiana",
}

var surnames = []string{
	"Garcia", "Rodriguez", "Martinez", "Lopez", "Gonzalez", "Perez", "Sanchez",
	"Ramirez", "Torres", "Alvarez", "Romero", "Herrera", "Vargas", "Castro",
	"Jimenez", "Rojas", "Navarro", "Ortiz", "Gomez", "Morales", "Vega", "Guzman",
	"Castillo", "Reyes", "Cabrera", "Flores", "Mendez", "Pineda", "Salazar", "Delgado",
}

// Generator produces synthetic datasets from a seeded random source.
type Generator struct {
	logger *slog.Logger
	cfg    Config
	rng    *rand.Rand
}

// New creates a Generator. Zero-valued config fields fall back to the
// defaults so partial overrides stay convenient.
func New(logger *slog.Logger, cfg Config) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.StudentsPerGroup <= 0 {
		cfg.StudentsPerGroup = def.StudentsPerGroup
	}
	if len(cfg.Groups) == 0 {
		cfg.Groups = def.Groups
	}
	if len(cfg.Subjects) == 0 {
		cfg.Subjects = def.Subjects
	}
	if cfg.StartDate.IsZero() {
		cfg.StartDate = def.StartDate
	}
	if cfg.EndDate.IsZero() {
		cfg.EndDate = def.EndDate
	}
	if cfg.Seed == 0 {
		cfg.Seed = def.Seed
	}
	return &Generator{
		logger: logger,
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Generate produces a roster and its matching attendance log.
func (g *Generator) Generate() ([]domain.Student, []domain.AttendanceRecord) {
	students := g.roster()
	records := g.attendance(students)

	g.logger.Info("synthetic dataset generated",
		slog.Int64("seed", g.cfg.Seed),
		slog.Int("students", len(students)),
		slog.Int("attendance_records", len(records)),
		slog.String("start", g.cfg.StartDate.Format("2006-01-02")),
		slog.String("end", g.cfg.EndDate.Format("2006-01-02")))

	return students, records
}

// roster builds the student table: StudentsPerGroup students per group,
// sequential IDs, names drawn from the shuffled name pool.
func (g *Generator) roster() []domain.Student {
	pool := g.namePool()

	var students []domain.Student
	sid := 1
	for _, group := range g.cfg.Groups {
		for i := 0; i < g.cfg.StudentsPerGroup; i++ {
			students = append(students, domain.Student{
				ID:    fmt.Sprintf("S%03d", sid),
				Name:  pool[(sid-1)%len(pool)],
				Group: group,
			})
			sid++
		}
	}
	return students
}

// attendance builds one record per student per scheduled session. Classes
// run Monday, Wednesday and Friday; each group takes a different subject
// on each class day, rotated by group index.
func (g *Generator) attendance(students []domain.Student) []domain.AttendanceRecord {
	byGroup := make(map[string][]domain.Student)
	for _, s := range students {
		byGroup[s.Group] = append(byGroup[s.Group], s)
	}

	bias := make(map[string]float64, len(students))
	for _, s := range students {
		bias[s.ID] = g.rng.Float64()*0.16 - 0.08
	}

	var records []domain.AttendanceRecord
	for date := g.cfg.StartDate; !date.After(g.cfg.EndDate); date = date.AddDate(0, 0, 1) {
		day, class := classDayIndex(date.Weekday())
		if !class {
			continue
		}
		for gi, group := range g.cfg.Groups {
			si := (day + gi) % len(g.cfg.Subjects)
			subject := g.cfg.Subjects[si]
			for _, s := range byGroup[group] {
				p := groupBase[gi%len(groupBase)] +
					subjectDelta[si%len(subjectDelta)] +
					weekdayDelta[date.Weekday()] +
					bias[s.ID]
				p = clamp(p, clampMin, clampMax)

				records = append(records, domain.AttendanceRecord{
					StudentID: s.ID,
					Date:      date,
					Subject:   subject,
					Present:   g.rng.Float64() < p,
				})
			}
		}
	}
	return records
}

// namePool returns a deterministic shuffled pool of full names.
func (g *Generator) namePool() []string {
	pool := make([]string, 0, len(firstNames)*len(surnames))
	for _, fn := range firstNames {
		for _, sn := range surnames {
			pool = append(pool, fn+" "+sn)
		}
	}
	g.rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	return pool
}

// classDayIndex maps a weekday to its class-day index (Mon=0, Wed=1,
// Fri=2) and reports whether classes run that day.
func classDayIndex(wd time.Weekday) (int, bool) {
	switch wd {
	case time.Monday:
		return 0, true
	case time.Wednesday:
		return 1, true
	case time.Friday:
		return 2, true
	default:
		return 0, false
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
