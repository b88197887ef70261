package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"clinic-scheduling/internal/delivery/dto"
	"clinic-scheduling/internal/usecase"
	"clinic-scheduling/pkg/response"
	"clinic-scheduling/pkg/retry"
	"clinic-scheduling/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type BookingHandler struct {
	appointmentUsecase usecase.AppointmentUsecase
	queueUsecase       usecase.QueueUsecase
	validator          *validator.CustomValidator
	retry              retry.Config
}

func NewBookingHandler(
	appointmentUsecase usecase.AppointmentUsecase,
	queueUsecase usecase.QueueUsecase,
	validator *validator.CustomValidator,
	retryConfig retry.Config,
) *BookingHandler {
	return &BookingHandler{
		appointmentUsecase: appointmentUsecase,
		queueUsecase:       queueUsecase,
		validator:          validator,
		retry:              retryConfig,
	}
}

func (h *BookingHandler) ValidateBooking(w http.ResponseWriter, r *http.Request) {
	var req dto.ValidateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	result, err := withRetry(r.Context(), h.retry, func() (*dto.ValidateBookingResponse, error) {
		return h.appointmentUsecase.Validate(r.Context(), &req)
	})
	if err != nil {
		respondError(w, err, "Failed to validate booking")
		return
	}

	response.Success(w, http.StatusOK, "Booking validated", result)
}

func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	appointment, err := withRetry(r.Context(), h.retry, func() (*dto.AppointmentResponse, error) {
		return h.appointmentUsecase.Create(r.Context(), &req)
	})
	if err != nil {
		respondError(w, err, "Failed to create booking")
		return
	}

	response.Success(w, http.StatusCreated, "Booking created successfully", appointment)
}

func (h *BookingHandler) RescheduleBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "Invalid booking ID")
	if !ok {
		return
	}

	var req dto.RescheduleBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	result, err := withRetry(r.Context(), h.retry, func() (*dto.RescheduleResponse, error) {
		return h.appointmentUsecase.Reschedule(r.Context(), id, &req)
	})
	if err != nil {
		respondError(w, err, "Failed to reschedule booking")
		return
	}

	response.Success(w, http.StatusOK, "Booking rescheduled successfully", result)
}

func (h *BookingHandler) AcceptBooking(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.appointmentUsecase.Accept, "Booking accepted")
}

func (h *BookingHandler) RejectBooking(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.appointmentUsecase.Reject, "Booking rejected")
}

func (h *BookingHandler) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.appointmentUsecase.Confirm, "Booking confirmed")
}

func (h *BookingHandler) CompleteBooking(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.appointmentUsecase.Complete, "Booking completed")
}

func (h *BookingHandler) MarkNoShow(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.appointmentUsecase.MarkNoShow, "Booking marked as no-show")
}

func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.appointmentUsecase.Cancel, "Booking cancelled successfully")
}

func (h *BookingHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "Invalid booking ID")
	if !ok {
		return
	}

	entry, err := withRetry(r.Context(), h.retry, func() (*dto.QueueEntryResponse, error) {
		return h.queueUsecase.CheckIn(r.Context(), id)
	})
	if err != nil {
		respondError(w, err, "Failed to check in")
		return
	}

	response.Success(w, http.StatusCreated, "Checked in successfully", entry)
}

func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "id", "Invalid booking ID")
	if !ok {
		return
	}

	appointment, err := h.appointmentUsecase.Get(r.Context(), id)
	if err != nil {
		respondError(w, err, "Failed to get booking")
		return
	}

	response.Success(w, http.StatusOK, "Booking retrieved successfully", appointment)
}

func (h *BookingHandler) GetMyBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.appointmentUsecase.ListMine(r.Context())
	if err != nil {
		respondError(w, err, "Failed to get bookings")
		return
	}

	response.Success(w, http.StatusOK, "Bookings retrieved successfully", bookings)
}

// GetAvailableSlots serves ?from=YYYY-MM-DD&to=YYYY-MM-DD&duration=30&reschedule=true
func (h *BookingHandler) GetAvailableSlots(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := pathUUID(w, r, "doctorId", "Invalid doctor ID")
	if !ok {
		return
	}

	query := r.URL.Query()
	from, to := query.Get("from"), query.Get("to")
	if from == "" {
		response.BadRequest(w, "from is required")
		return
	}
	if to == "" {
		to = from
	}

	duration := 30
	if raw := query.Get("duration"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(w, "duration must be a number of minutes")
			return
		}
		duration = d
	}
	forReschedule, _ := strconv.ParseBool(query.Get("reschedule"))

	slots, err := h.appointmentUsecase.AvailableSlots(r.Context(), doctorID, from, to, duration, forReschedule)
	if err != nil {
		respondError(w, err, "Failed to get available slots")
		return
	}

	response.Success(w, http.StatusOK, "Available slots retrieved successfully", slots)
}

func (h *BookingHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, id uuid.UUID) (*dto.AppointmentResponse, error),
	message string,
) {
	id, ok := pathUUID(w, r, "id", "Invalid booking ID")
	if !ok {
		return
	}

	appointment, err := withRetry(r.Context(), h.retry, func() (*dto.AppointmentResponse, error) {
		return apply(r.Context(), id)
	})
	if err != nil {
		respondError(w, err, "Failed to update booking")
		return
	}

	response.Success(w, http.StatusOK, message, appointment)
}

// pathUUID parses a uuid route variable, writing a 400 when it is malformed
func pathUUID(w http.ResponseWriter, r *http.Request, name string, message string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		response.Error(w, http.StatusBadRequest, message, nil)
		return uuid.Nil, false
	}
	return id, true
}
