package service

import (
	"testing"
	"time"

	"clinic-scheduling/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// stubAppointmentRepo returns every stored appointment as a candidate and
// leaves overlap filtering to the resolver.
type stubAppointmentRepo struct {
	appointments []entity.Appointment
}

func (s *stubAppointmentRepo) Create(_ *gorm.DB, a *entity.Appointment) error {
	s.appointments = append(s.appointments, *a)
	return nil
}

func (s *stubAppointmentRepo) FindByID(_ *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	for i := range s.appointments {
		if s.appointments[i].ID == id {
			return &s.appointments[i], nil
		}
	}
	return nil, nil
}

func (s *stubAppointmentRepo) FindByIDForUpdate(db *gorm.DB, id uuid.UUID) (*entity.Appointment, error) {
	return s.FindByID(db, id)
}

func (s *stubAppointmentRepo) FindActiveOverlapping(_ *gorm.DB, doctorID uuid.UUID, _, _ time.Time, _ *uuid.UUID) ([]entity.Appointment, error) {
	var out []entity.Appointment
	for _, a := range s.appointments {
		if a.DoctorID == doctorID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *stubAppointmentRepo) FindByPatientID(_ *gorm.DB, _ uuid.UUID) ([]entity.Appointment, error) {
	return nil, nil
}

func (s *stubAppointmentRepo) FindByDoctorID(_ *gorm.DB, _ uuid.UUID) ([]entity.Appointment, error) {
	return nil, nil
}

func (s *stubAppointmentRepo) Update(_ *gorm.DB, _ *entity.Appointment) error {
	return nil
}

func TestConflictResolver_IsWithinAvailability(t *testing.T) {
	doctorID := uuid.New()
	resolver := NewConflictResolver(
		&stubAvailabilityRepo{windows: []entity.AvailabilityWindow{mondayWindow()}},
		&stubAppointmentRepo{},
		time.UTC,
	)

	tests := []struct {
		name     string
		start    time.Time
		duration int
		want     bool
	}{
		{"inside morning", monday.Add(10 * time.Hour), 30, true},
		{"ends at break start", monday.Add(11*time.Hour + 30*time.Minute), 30, true},
		{"starts in break", monday.Add(12 * time.Hour), 30, false},
		{"straddles break", monday.Add(11*time.Hour + 45*time.Minute), 30, false},
		{"after break", monday.Add(12*time.Hour + 30*time.Minute), 30, true},
		{"past window end", monday.Add(12*time.Hour + 45*time.Minute), 30, false},
		{"before window", monday.Add(8*time.Hour + 30*time.Minute), 60, false},
		{"no window that day", monday.AddDate(0, 0, 1).Add(10 * time.Hour), 30, false},
		{"crosses midnight", monday.Add(23*time.Hour + 45*time.Minute), 30, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := resolver.IsWithinAvailability(nil, doctorID, tt.start, tt.duration)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestConflictResolver_FindConflicts(t *testing.T) {
	doctorID := uuid.New()
	booked := entity.Appointment{
		ID:       uuid.New(),
		DoctorID: doctorID,
		DateTime: monday.Add(10 * time.Hour),
		Duration: 30,
		Status:   entity.AppointmentStatusAccepted,
	}
	cancelled := entity.Appointment{
		ID:       uuid.New(),
		DoctorID: doctorID,
		DateTime: monday.Add(11 * time.Hour),
		Duration: 30,
		Status:   entity.AppointmentStatusCancelled,
	}
	otherDoctor := entity.Appointment{
		ID:       uuid.New(),
		DoctorID: uuid.New(),
		DateTime: monday.Add(10 * time.Hour),
		Duration: 30,
		Status:   entity.AppointmentStatusPending,
	}

	resolver := NewConflictResolver(&stubAvailabilityRepo{}, &stubAppointmentRepo{
		appointments: []entity.Appointment{booked, cancelled, otherDoctor},
	}, time.UTC)

	t.Run("overlapping start conflicts", func(t *testing.T) {
		conflicts, err := resolver.FindConflicts(nil, doctorID, monday.Add(10*time.Hour+15*time.Minute), 30, nil)
		require.NoError(t, err)
		require.Len(t, conflicts, 1)
		assert.Equal(t, booked.ID, conflicts[0].ID)
	})

	t.Run("back to back is free", func(t *testing.T) {
		conflicts, err := resolver.FindConflicts(nil, doctorID, monday.Add(10*time.Hour+30*time.Minute), 30, nil)
		require.NoError(t, err)
		assert.Empty(t, conflicts)
	})

	t.Run("ending at start is free", func(t *testing.T) {
		conflicts, err := resolver.FindConflicts(nil, doctorID, monday.Add(9*time.Hour+30*time.Minute), 30, nil)
		require.NoError(t, err)
		assert.Empty(t, conflicts)
	})

	t.Run("cancelled appointments release the slot", func(t *testing.T) {
		conflicts, err := resolver.FindConflicts(nil, doctorID, monday.Add(11*time.Hour), 30, nil)
		require.NoError(t, err)
		assert.Empty(t, conflicts)
	})

	t.Run("excluded appointment ignored", func(t *testing.T) {
		conflicts, err := resolver.FindConflicts(nil, doctorID, monday.Add(10*time.Hour+15*time.Minute), 30, &booked.ID)
		require.NoError(t, err)
		assert.Empty(t, conflicts)
	})
}
