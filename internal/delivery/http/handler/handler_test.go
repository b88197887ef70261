package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"clinic-scheduling/internal/delivery/dto"
	"clinic-scheduling/internal/delivery/http/middleware"
	"clinic-scheduling/internal/domain/entity"
	"clinic-scheduling/internal/realtime"
	"clinic-scheduling/internal/usecase"
	"clinic-scheduling/pkg/response"
	"clinic-scheduling/pkg/retry"
	"clinic-scheduling/pkg/timeslot"
	"clinic-scheduling/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubAppointments implements only what a test sets; other methods panic
type stubAppointments struct {
	usecase.AppointmentUsecase
	create func(ctx context.Context, req *dto.CreateBookingRequest) (*dto.AppointmentResponse, error)
	accept func(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error)
	slots  func(ctx context.Context, doctorID uuid.UUID, from, to string, duration int, forReschedule bool) (*dto.SlotListResponse, error)
}

func (s *stubAppointments) Create(ctx context.Context, req *dto.CreateBookingRequest) (*dto.AppointmentResponse, error) {
	return s.create(ctx, req)
}

func (s *stubAppointments) Accept(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error) {
	return s.accept(ctx, id)
}

func (s *stubAppointments) AvailableSlots(ctx context.Context, doctorID uuid.UUID, from, to string, duration int, forReschedule bool) (*dto.SlotListResponse, error) {
	return s.slots(ctx, doctorID, from, to, duration, forReschedule)
}

type stubSnapshots struct{}

func (stubSnapshots) Resync(context.Context, entity.Actor) ([]realtime.Event, error) {
	return nil, nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func fastRetry() retry.Config {
	return NewRetryConfig(retry.Config{
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      time.Millisecond,
		BackoffFactor: 1,
	}, quietLogger())
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var body response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func createBody(t *testing.T) *bytes.Reader {
	t.Helper()
	raw, err := json.Marshal(dto.CreateBookingRequest{
		DoctorID: uuid.New(),
		DateTime: time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC),
		Duration: 30,
		Reason:   "checkup",
	})
	require.NoError(t, err)
	return bytes.NewReader(raw)
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{usecase.ErrUserNotInContext, http.StatusUnauthorized},
		{usecase.ErrForbiddenRole, http.StatusForbidden},
		{usecase.ErrAppointmentNotOwned, http.StatusForbidden},
		{usecase.ErrAppointmentNotFound, http.StatusNotFound},
		{usecase.ErrQueueEntryNotFound, http.StatusNotFound},
		{usecase.ErrInvalidDuration, http.StatusBadRequest},
		{timeslot.ErrInvalidTimeFormat, http.StatusBadRequest},
		{entity.ErrInvalidWindow, http.StatusBadRequest},
		{&usecase.SlotConflictError{}, http.StatusConflict},
		{usecase.ErrAlreadyInProgress, http.StatusConflict},
		{usecase.ErrQueueEmpty, http.StatusConflict},
		{usecase.ErrSlotUnavailable, http.StatusUnprocessableEntity},
		{usecase.ErrTooManyReschedules, http.StatusUnprocessableEntity},
		{usecase.ErrTooSoonToReschedule, http.StatusUnprocessableEntity},
		{usecase.ErrCheckInNotToday, http.StatusUnprocessableEntity},
		{entity.ErrInvalidTransition, http.StatusUnprocessableEntity},
		{errors.New("connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondError(rec, tt.err, "fallback")
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestCreateBooking(t *testing.T) {
	conflictID := uuid.New()

	tests := []struct {
		name       string
		body       func(t *testing.T) io.Reader
		create     func(ctx context.Context, req *dto.CreateBookingRequest) (*dto.AppointmentResponse, error)
		wantStatus int
	}{
		{
			name:       "malformed body",
			body:       func(*testing.T) io.Reader { return bytes.NewBufferString("{") },
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "fails validation",
			body:       func(*testing.T) io.Reader { return bytes.NewBufferString(`{"duration": 5}`) },
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "slot conflict",
			body: func(t *testing.T) io.Reader { return createBody(t) },
			create: func(context.Context, *dto.CreateBookingRequest) (*dto.AppointmentResponse, error) {
				return nil, &usecase.SlotConflictError{ConflictingIDs: []uuid.UUID{conflictID}}
			},
			wantStatus: http.StatusConflict,
		},
		{
			name: "created",
			body: func(t *testing.T) io.Reader { return createBody(t) },
			create: func(_ context.Context, req *dto.CreateBookingRequest) (*dto.AppointmentResponse, error) {
				return &dto.AppointmentResponse{ID: uuid.New(), DoctorID: req.DoctorID, Status: "pending"}, nil
			},
			wantStatus: http.StatusCreated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewBookingHandler(&stubAppointments{create: tt.create}, nil, validator.NewValidator(), fastRetry())

			rec := httptest.NewRecorder()
			h.CreateBooking(rec, httptest.NewRequest(http.MethodPost, "/api/v1/bookings", tt.body(t)))

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestCreateBooking_ConflictDetail(t *testing.T) {
	conflictID := uuid.New()
	h := NewBookingHandler(&stubAppointments{
		create: func(context.Context, *dto.CreateBookingRequest) (*dto.AppointmentResponse, error) {
			return nil, &usecase.SlotConflictError{ConflictingIDs: []uuid.UUID{conflictID}}
		},
	}, nil, validator.NewValidator(), fastRetry())

	rec := httptest.NewRecorder()
	h.CreateBooking(rec, httptest.NewRequest(http.MethodPost, "/api/v1/bookings", createBody(t)))

	require.Equal(t, http.StatusConflict, rec.Code)
	body := decode(t, rec)
	assert.False(t, body.Success)
	detail, ok := body.Error.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, []interface{}{conflictID.String()}, detail["conflicting_appointment_ids"])
}

func TestRetryOnlyFatalErrors(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		cancel       bool
		wantStatus   int
		wantAttempts int32
	}{
		{"store unreachable", errors.New("connection reset by peer"), false, http.StatusInternalServerError, 3},
		{"transaction timeout", fmt.Errorf("commit: %w", context.DeadlineExceeded), false, http.StatusInternalServerError, 3},
		{"business outcome", usecase.ErrSlotUnavailable, false, http.StatusUnprocessableEntity, 1},
		{"request cancelled", errors.New("connection reset by peer"), true, http.StatusInternalServerError, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			var attempts atomic.Int32
			h := NewBookingHandler(&stubAppointments{
				create: func(context.Context, *dto.CreateBookingRequest) (*dto.AppointmentResponse, error) {
					attempts.Add(1)
					if tt.cancel {
						cancel()
					}
					return nil, tt.err
				},
			}, nil, validator.NewValidator(), fastRetry())

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", createBody(t)).WithContext(ctx)
			h.CreateBooking(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantAttempts, attempts.Load())
		})
	}
}

func TestAcceptBooking_PathID(t *testing.T) {
	id := uuid.New()
	h := NewBookingHandler(&stubAppointments{
		accept: func(_ context.Context, got uuid.UUID) (*dto.AppointmentResponse, error) {
			if got != id {
				return nil, usecase.ErrAppointmentNotFound
			}
			return &dto.AppointmentResponse{ID: got, Status: "accepted"}, nil
		},
	}, nil, validator.NewValidator(), fastRetry())

	router := mux.NewRouter()
	router.HandleFunc("/bookings/{id}/accept", h.AcceptBooking)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bookings/"+id.String()+"/accept", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bookings/not-a-uuid/accept", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/bookings/"+uuid.NewString()+"/accept", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetAvailableSlots_Query(t *testing.T) {
	doctorID := uuid.New()
	type call struct {
		from, to      string
		duration      int
		forReschedule bool
	}
	var got call

	h := NewBookingHandler(&stubAppointments{
		slots: func(_ context.Context, id uuid.UUID, from, to string, duration int, forReschedule bool) (*dto.SlotListResponse, error) {
			got = call{from, to, duration, forReschedule}
			return &dto.SlotListResponse{DoctorID: id}, nil
		},
	}, nil, validator.NewValidator(), fastRetry())

	router := mux.NewRouter()
	router.HandleFunc("/doctors/{doctorId}/slots", h.GetAvailableSlots)
	base := "/doctors/" + doctorID.String() + "/slots"

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, base+"?from=2026-10-19&reschedule=true", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, call{"2026-10-19", "2026-10-19", 30, true}, got)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, base, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, base+"?from=2026-10-19&duration=half", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServeWS_RejectsWithoutSubscriberRole(t *testing.T) {
	h := NewRealtimeHandler(realtime.NewHub(quietLogger(), 0), stubSnapshots{}, nil, quietLogger())

	rec := httptest.NewRecorder()
	h.ServeWS(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ws", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	admin := middleware.WithActor(context.Background(), entity.Actor{UserID: uuid.New(), RoleID: entity.RoleIDAdmin})
	rec = httptest.NewRecorder()
	h.ServeWS(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ws", nil).WithContext(admin))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
