package handler

import (
	"encoding/json"
	"net/http"

	"urutibiz/internal/settings/service"
	apperrors "urutibiz/pkg/errors"
	httputil "urutibiz/pkg/http"
	"urutibiz/pkg/logger"
	"urutibiz/pkg/model"

	"github.com/julienschmidt/httprouter"
)

const expirationHoursPath = "/system-settings/" + model.SettingBookingExpirationHours

type SettingsHandler struct {
	service service.SettingsService
	log     *logger.Logger
}

func NewSettingsHandler(service service.SettingsService, log *logger.Logger) *SettingsHandler {
	return &SettingsHandler{
		service: service,
		log:     log,
	}
}

func (h *SettingsHandler) GetExpirationHours(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	policy, err := h.service.ExpirationPolicy(r.Context())
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetExpirationHours", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, policy); err != nil {
		h.log.Error("failed to write success response", "handler", "GetExpirationHours", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SettingsHandler) SetExpirationHours(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.SetExpirationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("Invalid request body")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "SetExpirationHours", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	policy, err := h.service.SetExpirationHours(r.Context(), req.Hours)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "SetExpirationHours", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, policy); err != nil {
		h.log.Error("failed to write success response", "handler", "SetExpirationHours", "operation", "WriteSuccess", "error", err)
	}
}

func (h *SettingsHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET(expirationHoursPath, h.GetExpirationHours)
	router.PUT(expirationHoursPath, h.SetExpirationHours)
	router.GET("/api/v1"+expirationHoursPath, h.GetExpirationHours)
	router.PUT("/api/v1"+expirationHoursPath, h.SetExpirationHours)
}
