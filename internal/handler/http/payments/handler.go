package payments

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/exrev201-arch/freshed-fulfillment/internal/app/payments"
	"github.com/exrev201-arch/freshed-fulfillment/internal/domain"
	"github.com/exrev201-arch/freshed-fulfillment/internal/gateway"
)

const signatureHeader = "X-Webhook-Signature"

type PaymentHandler struct {
	service       payments.PaymentService
	webhookSecret string
	logger        *zap.Logger
}

func NewPaymentHandler(s payments.PaymentService, webhookSecret string, l *zap.Logger) *PaymentHandler {
	return &PaymentHandler{service: s, webhookSecret: webhookSecret, logger: l}
}

func (h *PaymentHandler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	var req payments.InitiatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid request body for InitiatePayment", zap.Error(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.OrderID == "" {
		http.Error(w, "Order ID is required", http.StatusBadRequest)
		return
	}

	res, err := h.service.InitiatePayment(r.Context(), &req)
	if err != nil {
		h.writePaymentError(w, req.OrderID, err)
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

func (h *PaymentHandler) QueryPaymentStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	if orderID == "" {
		http.Error(w, "Order ID is required", http.StatusBadRequest)
		return
	}

	res, err := h.service.QueryPaymentStatus(r.Context(), orderID)
	if err != nil {
		h.writePaymentError(w, orderID, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// HandleWebhook acknowledges every structurally readable notification
// with 200 so the provider stops retrying. The only rejection is a bad
// signature, which means the sender does not hold the shared secret.
func (h *PaymentHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Warn("Failed to read webhook body", zap.Error(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if h.webhookSecret != "" {
		signature := r.Header.Get(signatureHeader)
		if !gateway.VerifySignature(h.webhookSecret, body, signature) {
			h.logger.Warn("Webhook signature verification failed",
				zap.Int("body_bytes", len(body)))
			http.Error(w, "Invalid signature", http.StatusUnauthorized)
			return
		}
	}

	var payload payments.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.logger.Warn("Malformed webhook payload", zap.Error(err))
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.service.HandleWebhook(r.Context(), &payload); err != nil {
		h.logger.Error("Error handling webhook",
			zap.String("order_reference", payload.OrderReference),
			zap.Error(err))
	}
	w.WriteHeader(http.StatusOK)
}

func (h *PaymentHandler) RefundPayment(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	if orderID == "" {
		http.Error(w, "Order ID is required", http.StatusBadRequest)
		return
	}

	res, err := h.service.RefundPayment(r.Context(), orderID)
	if err != nil {
		h.writePaymentError(w, orderID, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *PaymentHandler) writePaymentError(w http.ResponseWriter, orderID string, err error) {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrPaymentNotFound):
		h.logger.Info("Payment resource not found", zap.String("order_id", orderID), zap.Error(err))
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrPaymentInProgress):
		h.logger.Warn("Rejected payment request", zap.String("order_id", orderID), zap.Error(err))
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrGatewayValidation):
		h.logger.Warn("Gateway rejected payment request", zap.String("order_id", orderID), zap.Error(err))
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, domain.ErrGatewayUnavailable):
		h.logger.Error("Gateway unavailable", zap.String("order_id", orderID), zap.Error(err))
		http.Error(w, "Payment gateway unavailable", http.StatusServiceUnavailable)
	default:
		h.logger.Error("Payment operation failed", zap.String("order_id", orderID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
