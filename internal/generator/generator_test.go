package generator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Roster(t *testing.T) {
	g := New(nil, Config{
		Seed:             7,
		StudentsPerGroup: 4,
		Groups:           []string{"G1", "G2"},
		StartDate:        time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		EndDate:          time.Date(2025, 7, 7, 0, 0, 0, 0, time.UTC),
	})
	students, _ := g.Generate()

	require.Len(t, students, 8)
	assert.Equal(t, "S001", students[0].ID)
	assert.Equal(t, "S008", students[7].ID)
	assert.Equal(t, "G1", students[0].Group)
	assert.Equal(t, "G2", students[4].Group)

	seen := map[string]bool{}
	for _, s := range students {
		assert.NotEmpty(t, s.Name)
		assert.False(t, seen[s.ID], "duplicate id %s", s.ID)
		seen[s.ID] = true
	}
}

func TestGenerate_Schedule(t *testing.T) {
	// 2025-07-01 is a Tuesday: the first week holds Wed 2, Fri 4, Mon 7.
	g := New(nil, Config{
		Seed:             42,
		StudentsPerGroup: 2,
		Groups:           []string{"G1"},
		Subjects:         []string{"A", "B", "C"},
		StartDate:        time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		EndDate:          time.Date(2025, 7, 7, 0, 0, 0, 0, time.UTC),
	})
	_, records := g.Generate()

	// 3 class days x 2 students.
	require.Len(t, records, 6)
	for _, r := range records {
		switch r.Date.Weekday() {
		case time.Monday, time.Wednesday, time.Friday:
		default:
			t.Errorf("record on non-class day %s", r.Date.Weekday())
		}
		assert.Contains(t, []string{"A", "B", "C"}, r.Subject)
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	cfg := Config{Seed: 42, StudentsPerGroup: 3, Groups: []string{"G1", "G2"},
		StartDate: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC)}

	s1, r1 := New(nil, cfg).Generate()
	s2, r2 := New(nil, cfg).Generate()

	assert.Equal(t, s1, s2)
	assert.Equal(t, r1, r2)
}

func TestGenerate_SeedChangesOutcomes(t *testing.T) {
	cfg := Config{StudentsPerGroup: 8, Groups: []string{"G1"},
		StartDate: time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC)}

	cfg.Seed = 1
	_, r1 := New(nil, cfg).Generate()
	cfg.Seed = 2
	_, r2 := New(nil, cfg).Generate()

	require.Equal(t, len(r1), len(r2))
	diff := 0
	for i := range r1 {
		if r1[i].Present != r2[i].Present {
			diff++
		}
	}
	assert.Greater(t, diff, 0, "different seeds should change attendance outcomes")
}

func TestNew_DefaultsFillZeroFields(t *testing.T) {
	g := New(nil, Config{})
	def := DefaultConfig()

	assert.Equal(t, def.Seed, g.cfg.Seed)
	assert.Equal(t, def.StudentsPerGroup, g.cfg.StudentsPerGroup)
	assert.Equal(t, def.Groups, g.cfg.Groups)
	assert.Equal(t, def.Subjects, g.cfg.Subjects)
	assert.Equal(t, def.StartDate, g.cfg.StartDate)
	assert.Equal(t, def.EndDate, g.cfg.EndDate)
}

func TestClassDayIndex(t *testing.T) {
	tests := []struct {
		wd    time.Weekday
		index int
		class bool
	}{
		{time.Monday, 0, true},
		{time.Tuesday, 0, false},
		{time.Wednesday, 1, true},
		{time.Thursday, 0, false},
		{time.Friday, 2, true},
		{time.Saturday, 0, false},
		{time.Sunday, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.wd.String(), func(t *testing.T) {
			idx, class := classDayIndex(tt.wd)
			assert.Equal(t, tt.class, class)
			if class {
				assert.Equal(t, tt.index, idx)
			}
		})
	}
}
