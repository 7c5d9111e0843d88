package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"urutibiz/internal/bookings/service"
	apperrors "urutibiz/pkg/errors"
	httputil "urutibiz/pkg/http"
	"urutibiz/pkg/logger"
	"urutibiz/pkg/model"
	"urutibiz/pkg/money"

	"github.com/julienschmidt/httprouter"
)

// RenterHeader carries the authenticated renter set by the gateway.
const RenterHeader = "X-Renter-ID"

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, money.ErrPrecision) || errors.Is(err, money.ErrOverflow) {
			h.writeError(w, "Create", apperrors.AmountOverflow(err.Error(), map[string]any{
				"max":             money.DefaultMax,
				"fraction_digits": money.FractionDigits,
			}))
			return
		}
		h.writeError(w, "Create", apperrors.InvalidInput("Invalid request body"))
		return
	}
	if req.RenterID == "" {
		req.RenterID = strings.TrimSpace(r.Header.Get(RenterHeader))
	}

	booking, err := h.service.Create(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	query := r.URL.Query()
	filter := model.BookingFilter{
		Status:   model.BookingStatus(strings.ToLower(strings.TrimSpace(query.Get("status")))),
		RenterID: strings.TrimSpace(query.Get("renter_id")),
	}

	bookings, totalCount, err := h.service.GetAll(r.Context(), filter, limit, offset)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, totalCount, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) Confirm(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.ConfirmBookingRequest
	if !h.decodeOptional(w, r, "Confirm", &req) {
		return
	}

	booking, err := h.service.Confirm(r.Context(), ps.ByName("id"), req.PaymentReference)
	if err != nil {
		h.writeError(w, "Confirm", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Confirm", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var req model.CancelBookingRequest
	if !h.decodeOptional(w, r, "Cancel", &req) {
		return
	}

	booking, err := h.service.Cancel(r.Context(), ps.ByName("id"), req.Reason)
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Cancel", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Complete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.Complete(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Complete", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Complete", "operation", "WriteSuccess", "error", err)
	}
}

type sweepResponse struct {
	Count   int              `json:"count"`
	Expired []*model.Booking `json:"expired"`
}

func (h *BookingHandler) SweepExpired(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	// zero time lets the service read its own clock
	expired, err := h.service.SweepExpired(r.Context(), time.Time{})
	if err != nil {
		h.log.Warn("Manual sweep interrupted", "expired", len(expired), "error", err)
		h.writeError(w, "SweepExpired", err)
		return
	}
	if expired == nil {
		expired = []*model.Booking{}
	}

	if err := httputil.WriteSuccess(w, sweepResponse{Count: len(expired), Expired: expired}); err != nil {
		h.log.Error("failed to write success response", "handler", "SweepExpired", "operation", "WriteSuccess", "error", err)
	}
}

// decodeOptional accepts an empty body for endpoints whose fields are all optional.
func (h *BookingHandler) decodeOptional(w http.ResponseWriter, r *http.Request, handler string, v any) bool {
	if r.Body == nil {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		h.writeError(w, handler, apperrors.InvalidInput("Invalid request body"))
		return false
	}
	return true
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/bookings", h.Create)
	router.POST("/bookings/:id/confirm", h.Confirm)
	router.POST("/bookings/:id/cancel", h.Cancel)

	router.POST("/api/v1/bookings", h.Create)
	router.GET("/api/v1/bookings", h.GetAll)
	router.GET("/api/v1/bookings/:id", h.GetByID)
	router.POST("/api/v1/bookings/:id/confirm", h.Confirm)
	router.POST("/api/v1/bookings/:id/cancel", h.Cancel)
	router.POST("/api/v1/bookings/:id/complete", h.Complete)

	router.POST("/api/v1/maintenance/sweep-expired", h.SweepExpired)
}
