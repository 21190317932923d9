package payments

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/exrev201-arch/freshed-fulfillment/internal/app/payments"
)

func RegisterRoutes(r chi.Router, s payments.PaymentService, webhookSecret string, l *zap.Logger) {
	handler := NewPaymentHandler(s, webhookSecret, l.With(zap.String("component", "PaymentHTTPHandler")))

	r.Route("/payments", func(r chi.Router) {
		r.Post("/initiate", handler.InitiatePayment)
		r.Post("/webhook", handler.HandleWebhook)
		r.Get("/{orderID}/status", handler.QueryPaymentStatus)
		r.Post("/{orderID}/refund", handler.RefundPayment)
	})
}
