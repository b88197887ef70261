package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"clinic-scheduling/internal/delivery/dto"
	"clinic-scheduling/internal/usecase"
	"clinic-scheduling/pkg/response"
	"clinic-scheduling/pkg/retry"
	"clinic-scheduling/pkg/validator"

	"github.com/google/uuid"
)

type QueueHandler struct {
	queueUsecase usecase.QueueUsecase
	validator    *validator.CustomValidator
	retry        retry.Config
}

func NewQueueHandler(queueUsecase usecase.QueueUsecase, validator *validator.CustomValidator, retryConfig retry.Config) *QueueHandler {
	return &QueueHandler{
		queueUsecase: queueUsecase,
		validator:    validator,
		retry:        retryConfig,
	}
}

func (h *QueueHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := pathUUID(w, r, "doctorId", "Invalid doctor ID")
	if !ok {
		return
	}

	entry, err := withRetry(r.Context(), h.retry, func() (*dto.QueueEntryResponse, error) {
		return h.queueUsecase.Enqueue(r.Context(), doctorID)
	})
	if err != nil {
		respondError(w, err, "Failed to join queue")
		return
	}

	response.Success(w, http.StatusCreated, "Joined queue successfully", entry)
}

func (h *QueueHandler) GetQueue(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := pathUUID(w, r, "doctorId", "Invalid doctor ID")
	if !ok {
		return
	}

	snapshot, err := h.queueUsecase.Snapshot(r.Context(), doctorID)
	if err != nil {
		respondError(w, err, "Failed to get queue")
		return
	}

	response.Success(w, http.StatusOK, "Queue retrieved successfully", snapshot)
}

func (h *QueueHandler) CallNext(w http.ResponseWriter, r *http.Request) {
	entry, err := withRetry(r.Context(), h.retry, func() (*dto.QueueEntryResponse, error) {
		return h.queueUsecase.CallNext(r.Context())
	})
	if err != nil {
		respondError(w, err, "Failed to call next patient")
		return
	}

	response.Success(w, http.StatusOK, "Next patient called", entry)
}

func (h *QueueHandler) CompleteEntry(w http.ResponseWriter, r *http.Request) {
	h.entryTransition(w, r, h.queueUsecase.Complete, "Consultation completed")
}

func (h *QueueHandler) NoShowEntry(w http.ResponseWriter, r *http.Request) {
	h.entryTransition(w, r, h.queueUsecase.NoShow, "Queue entry marked as no-show")
}

func (h *QueueHandler) CancelEntry(w http.ResponseWriter, r *http.Request) {
	h.entryTransition(w, r, h.queueUsecase.Cancel, "Left queue successfully")
}

func (h *QueueHandler) GetDoctorStatus(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := pathUUID(w, r, "doctorId", "Invalid doctor ID")
	if !ok {
		return
	}

	status, err := h.queueUsecase.GetDoctorStatus(r.Context(), doctorID)
	if err != nil {
		respondError(w, err, "Failed to get doctor status")
		return
	}

	response.Success(w, http.StatusOK, "Doctor status retrieved successfully", status)
}

func (h *QueueHandler) UpdateDoctorStatus(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateDoctorStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body", nil)
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		response.ValidationError(w, h.validator.FormatValidationErrors(err))
		return
	}

	status, err := withRetry(r.Context(), h.retry, func() (*dto.DoctorStatusResponse, error) {
		return h.queueUsecase.SetDoctorStatus(r.Context(), &req)
	})
	if err != nil {
		respondError(w, err, "Failed to update doctor status")
		return
	}

	response.Success(w, http.StatusOK, "Doctor status updated successfully", status)
}

func (h *QueueHandler) entryTransition(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, id uuid.UUID) (*dto.QueueEntryResponse, error),
	message string,
) {
	id, ok := pathUUID(w, r, "id", "Invalid queue entry ID")
	if !ok {
		return
	}

	entry, err := withRetry(r.Context(), h.retry, func() (*dto.QueueEntryResponse, error) {
		return apply(r.Context(), id)
	})
	if err != nil {
		respondError(w, err, "Failed to update queue entry")
		return
	}

	response.Success(w, http.StatusOK, message, entry)
}
