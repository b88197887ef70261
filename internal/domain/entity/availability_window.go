package entity

import (
	"errors"
	"time"

	"clinic-scheduling/pkg/timeslot"

	"github.com/google/uuid"
)

var ErrInvalidWindow = errors.New("invalid availability window")

// AvailabilityWindow is one weekly recurring block of a doctor's working hours.
// A doctor may have several windows on the same weekday (morning and evening).
type AvailabilityWindow struct {
	ID         int       `gorm:"primaryKey;autoIncrement" json:"id"`
	DoctorID   uuid.UUID `gorm:"type:uuid;not null;index:idx_availability_doctor_day" json:"doctor_id"`
	DayOfWeek  int       `gorm:"not null;index:idx_availability_doctor_day" json:"day_of_week"`
	StartTime  string    `gorm:"type:varchar(5);not null" json:"start_time"`
	EndTime    string    `gorm:"type:varchar(5);not null" json:"end_time"`
	BreakStart *string   `gorm:"type:varchar(5)" json:"break_start,omitempty"`
	BreakEnd   *string   `gorm:"type:varchar(5)" json:"break_end,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (AvailabilityWindow) TableName() string {
	return "availability_windows"
}

// ParsedWindow is an AvailabilityWindow resolved to minutes since midnight.
type ParsedWindow struct {
	DayOfWeek time.Weekday
	Span      timeslot.Window
	Break     *timeslot.Window
}

// Parse validates the window and resolves its times.
// The break, when present, must lie within [start, end).
func (w *AvailabilityWindow) Parse() (ParsedWindow, error) {
	if w.DayOfWeek < 0 || w.DayOfWeek > 6 {
		return ParsedWindow{}, ErrInvalidWindow
	}
	start, err := timeslot.ParseTimeOfDay(w.StartTime)
	if err != nil {
		return ParsedWindow{}, err
	}
	end, err := timeslot.ParseTimeOfDay(w.EndTime)
	if err != nil {
		return ParsedWindow{}, err
	}
	if end <= start {
		return ParsedWindow{}, ErrInvalidWindow
	}

	parsed := ParsedWindow{
		DayOfWeek: time.Weekday(w.DayOfWeek),
		Span:      timeslot.Window{Start: start, End: end},
	}

	if (w.BreakStart == nil) != (w.BreakEnd == nil) {
		return ParsedWindow{}, ErrInvalidWindow
	}
	if w.BreakStart != nil {
		bs, err := timeslot.ParseTimeOfDay(*w.BreakStart)
		if err != nil {
			return ParsedWindow{}, err
		}
		be, err := timeslot.ParseTimeOfDay(*w.BreakEnd)
		if err != nil {
			return ParsedWindow{}, err
		}
		if be <= bs || bs < start || be > end {
			return ParsedWindow{}, ErrInvalidWindow
		}
		parsed.Break = &timeslot.Window{Start: bs, End: be}
	}

	return parsed, nil
}

// Admits reports whether [start, end) fits inside the window without touching the break.
func (p ParsedWindow) Admits(start, end int) bool {
	if !p.Span.Contains(start, end) {
		return false
	}
	if p.Break != nil && p.Break.Overlaps(start, end) {
		return false
	}
	return true
}
