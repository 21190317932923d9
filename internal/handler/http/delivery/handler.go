package delivery

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/exrev201-arch/freshed-fulfillment/internal/app/delivery"
	"github.com/exrev201-arch/freshed-fulfillment/internal/domain"
)

type DeliveryHandler struct {
	service delivery.DeliveryService
	logger  *zap.Logger
}

func NewDeliveryHandler(s delivery.DeliveryService, l *zap.Logger) *DeliveryHandler {
	return &DeliveryHandler{service: s, logger: l}
}

func (h *DeliveryHandler) AssignDelivery(w http.ResponseWriter, r *http.Request) {
	var req delivery.AssignDeliveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid request body for AssignDelivery", zap.Error(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.OrderID == "" || req.DeliveryPersonName == "" {
		http.Error(w, "Order ID and delivery person name are required", http.StatusBadRequest)
		return
	}

	res, err := h.service.AssignDelivery(r.Context(), &req)
	if err != nil {
		h.writeDeliveryError(w, req.OrderID, err)
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

func (h *DeliveryHandler) StartRoute(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	res, err := h.service.StartRoute(r.Context(), orderID)
	if err != nil {
		h.writeDeliveryError(w, orderID, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *DeliveryHandler) ReportLocation(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var report delivery.LocationReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		h.logger.Warn("Invalid request body for ReportLocation", zap.Error(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	res, err := h.service.ReportLocation(r.Context(), orderID, &report)
	if err != nil {
		h.writeDeliveryError(w, orderID, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *DeliveryHandler) UpdateEta(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var eta delivery.EtaUpdate
	if err := json.NewDecoder(r.Body).Decode(&eta); err != nil {
		h.logger.Warn("Invalid request body for UpdateEta", zap.Error(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	res, err := h.service.UpdateEta(r.Context(), orderID, &eta)
	if err != nil {
		h.writeDeliveryError(w, orderID, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *DeliveryHandler) CompleteDelivery(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	// The body is optional; agents without GPS fix send an empty one.
	var req delivery.CompleteDeliveryRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			h.logger.Warn("Invalid request body for CompleteDelivery", zap.Error(err))
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}

	res, err := h.service.CompleteDelivery(r.Context(), orderID, req.FinalLocation)
	if err != nil {
		h.writeDeliveryError(w, orderID, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *DeliveryHandler) FailDelivery(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	var req delivery.FailDeliveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid request body for FailDelivery", zap.Error(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	res, err := h.service.FailDelivery(r.Context(), orderID, req.Reason)
	if err != nil {
		h.writeDeliveryError(w, orderID, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *DeliveryHandler) GetOrderDelivery(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")

	res, err := h.service.GetOrderDelivery(r.Context(), orderID)
	if err != nil {
		h.writeDeliveryError(w, orderID, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *DeliveryHandler) writeDeliveryError(w http.ResponseWriter, orderID string, err error) {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrTrackerNotFound):
		h.logger.Info("Delivery resource not found", zap.String("order_id", orderID), zap.Error(err))
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrAlreadyAssigned),
		errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrInvalidTransition):
		h.logger.Warn("Rejected delivery request", zap.String("order_id", orderID), zap.Error(err))
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.logger.Error("Delivery operation failed", zap.String("order_id", orderID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
