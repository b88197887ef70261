package service

import (
	"iter"
	"sort"
	"time"

	"clinic-scheduling/internal/domain/entity"
	"clinic-scheduling/internal/domain/repository"
	"clinic-scheduling/pkg/timeslot"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultSlotStep is the granularity of generated candidate slots
const DefaultSlotStep = 30

// Slot is a bookable candidate interval
type Slot struct {
	Start    time.Time
	Duration int
}

// End returns the exclusive end of the slot
func (s Slot) End() time.Time {
	return s.Start.Add(time.Duration(s.Duration) * time.Minute)
}

// SlotQuery describes a slot enumeration. From and To are calendar days
// (inclusive) read in Location; Earliest is now plus the caller's lead time.
type SlotQuery struct {
	From     time.Time
	To       time.Time
	Duration int
	Step     int
	Earliest time.Time
	Location *time.Location
}

// GenerateSlots lazily enumerates candidate slots in chronological order.
// Slots never extend past a window's end, never touch its break and never
// start before q.Earliest. Days without a window yield nothing.
// The returned sequence can be ranged over any number of times.
func GenerateSlots(windows []entity.ParsedWindow, q SlotQuery) iter.Seq[Slot] {
	step := q.Step
	if step <= 0 {
		step = DefaultSlotStep
	}
	loc := q.Location
	if loc == nil {
		loc = time.UTC
	}

	byDay := make(map[time.Weekday][]entity.ParsedWindow)
	for _, w := range windows {
		byDay[w.DayOfWeek] = append(byDay[w.DayOfWeek], w)
	}

	first := timeslot.StartOfDay(q.From, loc)
	last := timeslot.StartOfDay(q.To, loc)

	return func(yield func(Slot) bool) {
		if q.Duration <= 0 {
			return
		}
		for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
			for _, slot := range slotsForDay(day, byDay[day.Weekday()], q.Duration, step, q.Earliest) {
				if !yield(slot) {
					return
				}
			}
		}
	}
}

func slotsForDay(day time.Time, windows []entity.ParsedWindow, duration, step int, earliest time.Time) []Slot {
	if len(windows) == 0 {
		return nil
	}

	starts := make(map[int]struct{})
	for _, w := range windows {
		for m := w.Span.Start; m+duration <= w.Span.End; m += step {
			if !w.Admits(m, m+duration) {
				continue
			}
			if timeslot.At(day, m).Before(earliest) {
				continue
			}
			starts[m] = struct{}{}
		}
	}

	minutes := make([]int, 0, len(starts))
	for m := range starts {
		minutes = append(minutes, m)
	}
	sort.Ints(minutes)

	slots := make([]Slot, len(minutes))
	for i, m := range minutes {
		slots[i] = Slot{Start: timeslot.At(day, m), Duration: duration}
	}
	return slots
}

// ParseWindows resolves stored windows, failing on the first malformed one
func ParseWindows(windows []entity.AvailabilityWindow) ([]entity.ParsedWindow, error) {
	parsed := make([]entity.ParsedWindow, 0, len(windows))
	for i := range windows {
		p, err := windows[i].Parse()
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, p)
	}
	return parsed, nil
}

// AvailabilityCalendar reads a doctor's weekly template and produces slots
type AvailabilityCalendar struct {
	availabilityRepo repository.AvailabilityRepository
	location         *time.Location
}

func NewAvailabilityCalendar(availabilityRepo repository.AvailabilityRepository, location *time.Location) *AvailabilityCalendar {
	return &AvailabilityCalendar{
		availabilityRepo: availabilityRepo,
		location:         location,
	}
}

// Location returns the clinic-local zone used for weekday resolution
func (c *AvailabilityCalendar) Location() *time.Location {
	return c.location
}

// Slots loads the doctor's template once and returns the lazy slot sequence
func (c *AvailabilityCalendar) Slots(db *gorm.DB, doctorID uuid.UUID, q SlotQuery) (iter.Seq[Slot], error) {
	windows, err := c.availabilityRepo.FindByDoctorID(db, doctorID)
	if err != nil {
		return nil, err
	}
	parsed, err := ParseWindows(windows)
	if err != nil {
		return nil, err
	}
	q.Location = c.location
	return GenerateSlots(parsed, q), nil
}
