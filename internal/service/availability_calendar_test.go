package service

import (
	"slices"
	"testing"
	"time"

	"clinic-scheduling/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func strPtr(s string) *string { return &s }

// monday 09:00-13:00 with a 12:00-12:30 break
func mondayWindow() entity.AvailabilityWindow {
	return entity.AvailabilityWindow{
		DayOfWeek:  int(time.Monday),
		StartTime:  "09:00",
		EndTime:    "13:00",
		BreakStart: strPtr("12:00"),
		BreakEnd:   strPtr("12:30"),
	}
}

func mustParse(t *testing.T, windows ...entity.AvailabilityWindow) []entity.ParsedWindow {
	t.Helper()
	parsed, err := ParseWindows(windows)
	require.NoError(t, err)
	return parsed
}

func clock(slots []Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Start.Format("Mon 15:04"))
	}
	return out
}

var monday = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

func TestGenerateSlots_SkipsBreak(t *testing.T) {
	slots := slices.Collect(GenerateSlots(mustParse(t, mondayWindow()), SlotQuery{
		From:     monday,
		To:       monday,
		Duration: 30,
		Step:     15,
		Location: time.UTC,
	}))

	got := clock(slots)
	assert.Contains(t, got, "Mon 11:30")
	assert.Contains(t, got, "Mon 12:30")
	assert.NotContains(t, got, "Mon 11:45")
	assert.NotContains(t, got, "Mon 12:00")
	assert.NotContains(t, got, "Mon 12:15")
	assert.Equal(t, "Mon 09:00", got[0])
	assert.Equal(t, "Mon 12:30", got[len(got)-1])
}

func TestGenerateSlots_NeverExceedsWindowEnd(t *testing.T) {
	slots := slices.Collect(GenerateSlots(mustParse(t, mondayWindow()), SlotQuery{
		From:     monday,
		To:       monday,
		Duration: 45,
		Step:     30,
		Location: time.UTC,
	}))

	end := monday.Add(13 * time.Hour)
	for _, s := range slots {
		assert.False(t, s.End().After(end), "slot %s runs past window end", s.Start)
	}
	// 12:30 + 45 would end at 13:15
	assert.NotContains(t, clock(slots), "Mon 12:30")
}

func TestGenerateSlots_ChronologicalAcrossDaysAndWindows(t *testing.T) {
	evening := entity.AvailabilityWindow{DayOfWeek: int(time.Monday), StartTime: "17:00", EndTime: "18:00"}
	tuesday := entity.AvailabilityWindow{DayOfWeek: int(time.Tuesday), StartTime: "08:00", EndTime: "09:00"}

	slots := slices.Collect(GenerateSlots(mustParse(t, evening, mondayWindow(), tuesday), SlotQuery{
		From:     monday,
		To:       monday.AddDate(0, 0, 2),
		Duration: 30,
		Location: time.UTC,
	}))

	require.NotEmpty(t, slots)
	assert.True(t, slices.IsSortedFunc(slots, func(a, b Slot) int { return a.Start.Compare(b.Start) }))
	assert.Equal(t, "Tue 08:30", clock(slots)[len(slots)-1])
}

func TestGenerateSlots_EarliestCutoff(t *testing.T) {
	slots := slices.Collect(GenerateSlots(mustParse(t, mondayWindow()), SlotQuery{
		From:     monday,
		To:       monday,
		Duration: 30,
		Earliest: monday.Add(11 * time.Hour),
		Location: time.UTC,
	}))

	assert.Equal(t, []string{"Mon 11:00", "Mon 11:30", "Mon 12:30"}, clock(slots))
}

func TestGenerateSlots_EmptyWhenNoWindowForDay(t *testing.T) {
	sunday := monday.AddDate(0, 0, -1)
	slots := slices.Collect(GenerateSlots(mustParse(t, mondayWindow()), SlotQuery{
		From:     sunday,
		To:       sunday,
		Duration: 30,
		Location: time.UTC,
	}))
	assert.Empty(t, slots)
}

func TestGenerateSlots_StopsEarly(t *testing.T) {
	seq := GenerateSlots(mustParse(t, mondayWindow()), SlotQuery{
		From:     monday,
		To:       monday.AddDate(0, 0, 70),
		Duration: 30,
		Location: time.UTC,
	})

	var n int
	for range seq {
		n++
		if n == 3 {
			break
		}
	}
	assert.Equal(t, 3, n)
}

func TestGenerateSlots_ClinicLocation(t *testing.T) {
	loc := time.FixedZone("clinic", 7*60*60)
	// 02:00 UTC Monday is 09:00 Monday in the clinic zone
	from := time.Date(2026, 10, 19, 2, 0, 0, 0, time.UTC)

	slots := slices.Collect(GenerateSlots(mustParse(t, mondayWindow()), SlotQuery{
		From:     from,
		To:       from,
		Duration: 30,
		Location: loc,
	}))

	require.NotEmpty(t, slots)
	assert.True(t, slots[0].Start.Equal(from))
}

type stubAvailabilityRepo struct {
	windows []entity.AvailabilityWindow
}

func (s *stubAvailabilityRepo) FindByDoctorID(_ *gorm.DB, _ uuid.UUID) ([]entity.AvailabilityWindow, error) {
	return s.windows, nil
}

func (s *stubAvailabilityRepo) FindByDoctorAndDay(_ *gorm.DB, _ uuid.UUID, day int) ([]entity.AvailabilityWindow, error) {
	var out []entity.AvailabilityWindow
	for _, w := range s.windows {
		if w.DayOfWeek == day {
			out = append(out, w)
		}
	}
	return out, nil
}

func (s *stubAvailabilityRepo) ReplaceForDoctor(_ *gorm.DB, _ uuid.UUID, windows []entity.AvailabilityWindow) error {
	s.windows = windows
	return nil
}

func TestAvailabilityCalendar_Slots(t *testing.T) {
	calendar := NewAvailabilityCalendar(&stubAvailabilityRepo{windows: []entity.AvailabilityWindow{mondayWindow()}}, time.UTC)

	seq, err := calendar.Slots(nil, uuid.New(), SlotQuery{From: monday, To: monday, Duration: 60})
	require.NoError(t, err)
	assert.Equal(t, []string{"Mon 09:00", "Mon 09:30", "Mon 10:00", "Mon 10:30", "Mon 11:00"}, clock(slices.Collect(seq)))
}

func TestAvailabilityCalendar_MalformedWindow(t *testing.T) {
	bad := entity.AvailabilityWindow{DayOfWeek: 1, StartTime: "13:00", EndTime: "09:00"}
	calendar := NewAvailabilityCalendar(&stubAvailabilityRepo{windows: []entity.AvailabilityWindow{bad}}, time.UTC)

	_, err := calendar.Slots(nil, uuid.New(), SlotQuery{From: monday, To: monday, Duration: 30})
	assert.ErrorIs(t, err, entity.ErrInvalidWindow)
}
