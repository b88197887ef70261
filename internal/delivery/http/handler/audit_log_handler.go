package handler

import (
	"net/http"
	"strconv"

	"clinic-scheduling/internal/usecase"
	"clinic-scheduling/pkg/response"

	"github.com/gorilla/mux"
)

type AuditLogHandler struct {
	auditLogUsecase usecase.AuditLogUsecase
}

func NewAuditLogHandler(auditLogUsecase usecase.AuditLogUsecase) *AuditLogHandler {
	return &AuditLogHandler{
		auditLogUsecase: auditLogUsecase,
	}
}

func (h *AuditLogHandler) GetAuditLog(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	auditLogID, err := strconv.ParseInt(vars["id"], 10, 64)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid audit log ID", nil)
		return
	}

	auditLog, err := h.auditLogUsecase.GetAuditLog(r.Context(), auditLogID)
	if err != nil {
		respondError(w, err, "Failed to get audit log")
		return
	}

	response.Success(w, http.StatusOK, "Audit log retrieved successfully", auditLog)
}

// GetEntityTrail serves ?entity=appointment&entity_id=<id>
func (h *AuditLogHandler) GetEntityTrail(w http.ResponseWriter, r *http.Request) {
	entityName := r.URL.Query().Get("entity")
	entityID := r.URL.Query().Get("entity_id")
	if entityName == "" || entityID == "" {
		response.BadRequest(w, "entity and entity_id are required")
		return
	}

	auditLogs, err := h.auditLogUsecase.GetEntityTrail(r.Context(), entityName, entityID)
	if err != nil {
		respondError(w, err, "Failed to get audit logs")
		return
	}

	response.Success(w, http.StatusOK, "Audit logs retrieved successfully", auditLogs)
}
