package service

import (
	"time"

	"clinic-scheduling/internal/domain/entity"
	"clinic-scheduling/internal/domain/repository"
	"clinic-scheduling/pkg/timeslot"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ConflictResolver answers the two questions every booking and reschedule
// asks. Callers pass the transaction that will perform the write so the
// check and the write see the same state.
type ConflictResolver struct {
	availabilityRepo repository.AvailabilityRepository
	appointmentRepo  repository.AppointmentRepository
	location         *time.Location
}

func NewConflictResolver(
	availabilityRepo repository.AvailabilityRepository,
	appointmentRepo repository.AppointmentRepository,
	location *time.Location,
) *ConflictResolver {
	return &ConflictResolver{
		availabilityRepo: availabilityRepo,
		appointmentRepo:  appointmentRepo,
		location:         location,
	}
}

// IsWithinAvailability reports whether [start, start+duration) lies inside one
// of the doctor's windows for that weekday without intersecting its break.
// Intervals crossing local midnight are never inside a window.
func (r *ConflictResolver) IsWithinAvailability(db *gorm.DB, doctorID uuid.UUID, start time.Time, duration int) (bool, error) {
	local := start.In(r.location)
	from := timeslot.MinuteOfDay(local)
	to := from + duration
	if to > timeslot.MinutesPerDay {
		return false, nil
	}

	windows, err := r.availabilityRepo.FindByDoctorAndDay(db, doctorID, int(local.Weekday()))
	if err != nil {
		return false, err
	}

	for i := range windows {
		parsed, err := windows[i].Parse()
		if err != nil {
			return false, err
		}
		if parsed.Admits(from, to) {
			return true, nil
		}
	}
	return false, nil
}

// FindConflicts returns the doctor's active appointments overlapping
// [start, start+duration), ignoring excludeID when set.
func (r *ConflictResolver) FindConflicts(db *gorm.DB, doctorID uuid.UUID, start time.Time, duration int, excludeID *uuid.UUID) ([]entity.Appointment, error) {
	end := start.Add(time.Duration(duration) * time.Minute)
	candidates, err := r.appointmentRepo.FindActiveOverlapping(db, doctorID, start, end, excludeID)
	if err != nil {
		return nil, err
	}

	// Re-apply the half-open rule in memory so every repository behaves the same.
	conflicts := make([]entity.Appointment, 0, len(candidates))
	for _, a := range candidates {
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if a.IsActive() && timeslot.Overlaps(start, end, a.DateTime, a.EndTime()) {
			conflicts = append(conflicts, a)
		}
	}
	return conflicts, nil
}
