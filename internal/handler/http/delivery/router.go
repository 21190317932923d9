package delivery

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/exrev201-arch/freshed-fulfillment/internal/app/delivery"
)

func RegisterRoutes(r chi.Router, s delivery.DeliveryService, l *zap.Logger) {
	handler := NewDeliveryHandler(s, l.With(zap.String("component", "DeliveryHTTPHandler")))

	r.Route("/delivery", func(r chi.Router) {
		r.Post("/assign", handler.AssignDelivery)
		r.Get("/{orderID}", handler.GetOrderDelivery)
		r.Post("/{orderID}/pickup", handler.StartRoute)
		r.Post("/{orderID}/location", handler.ReportLocation)
		r.Post("/{orderID}/eta", handler.UpdateEta)
		r.Post("/{orderID}/complete", handler.CompleteDelivery)
		r.Post("/{orderID}/fail", handler.FailDelivery)
	})
}
