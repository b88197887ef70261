package usecase

import (
	"testing"

	"clinic-scheduling/internal/delivery/dto"
	"clinic-scheduling/internal/domain/entity"
	"clinic-scheduling/pkg/timeslot"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func window(day int, start, end string) dto.AvailabilityWindowRequest {
	return dto.AvailabilityWindowRequest{DayOfWeek: &day, StartTime: start, EndTime: end}
}

func TestReplaceWindows(t *testing.T) {
	h := newHarness(t, sundayMorning)
	doctorID := uuid.New()
	ctx := doctorCtx(doctorID)

	morning := window(1, "09:00", "13:00")
	breakStart, breakEnd := "12:00", "12:30"
	morning.BreakStart, morning.BreakEnd = &breakStart, &breakEnd

	resp, err := h.availability.ReplaceWindows(ctx, &dto.ReplaceAvailabilityRequest{
		Windows: []dto.AvailabilityWindowRequest{morning, window(1, "16:00", "19:00"), window(3, "09:00", "12:00")},
	})
	require.NoError(t, err)
	assert.Len(t, resp.Windows, 3)

	got, err := h.availability.GetWindows(patientCtx(uuid.New()), doctorID)
	require.NoError(t, err)
	assert.Len(t, got.Windows, 3)

	// The new template drives booking immediately.
	_, err = h.appointments.Create(patientCtx(uuid.New()), createRequest(doctorID, monday(16, 30)))
	assert.NoError(t, err)

	resp, err = h.availability.ReplaceWindows(ctx, &dto.ReplaceAvailabilityRequest{})
	require.NoError(t, err)
	assert.Empty(t, resp.Windows)

	trail, err := h.audit.GetEntityTrail(ctx, "availability", doctorID.String())
	require.NoError(t, err)
	assert.Equal(t, 2, trail.Total)
}

func TestReplaceWindows_Rejects(t *testing.T) {
	h := newHarness(t, sundayMorning)
	doctorID := uuid.New()
	ctx := doctorCtx(doctorID)

	tests := []struct {
		name    string
		windows []dto.AvailabilityWindowRequest
		wantErr error
	}{
		{
			name:    "overlap on same day",
			windows: []dto.AvailabilityWindowRequest{window(1, "09:00", "12:00"), window(1, "11:30", "14:00")},
			wantErr: ErrOverlappingWindows,
		},
		{
			name:    "end before start",
			windows: []dto.AvailabilityWindowRequest{window(2, "12:00", "09:00")},
			wantErr: entity.ErrInvalidWindow,
		},
		{
			name:    "bad time format",
			windows: []dto.AvailabilityWindowRequest{window(2, "9am", "12:00")},
			wantErr: timeslot.ErrInvalidTimeFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.availability.ReplaceWindows(ctx, &dto.ReplaceAvailabilityRequest{Windows: tt.windows})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := h.availability.ReplaceWindows(patientCtx(uuid.New()), &dto.ReplaceAvailabilityRequest{})
	assert.ErrorIs(t, err, ErrForbiddenRole)

	// Back-to-back windows on one day are fine.
	_, err = h.availability.ReplaceWindows(ctx, &dto.ReplaceAvailabilityRequest{
		Windows: []dto.AvailabilityWindowRequest{window(1, "09:00", "12:00"), window(1, "12:00", "14:00")},
	})
	assert.NoError(t, err)
}
