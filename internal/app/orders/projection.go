package orders

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/exrev201-arch/freshed-fulfillment/internal/domain"
	"github.com/exrev201-arch/freshed-fulfillment/internal/repository/order_repo"
	"github.com/exrev201-arch/freshed-fulfillment/internal/store"
)

// ListOrders returns one logical view over two write paths: the
// normalized orders collection and the legacy flat-record store the web
// checkout still writes. Records are merged by id with normalized
// precedence and sorted newest first. This is a read-time shim only; it
// never writes either store.
func (s *orderService) ListOrders(ctx context.Context, userID string) ([]*OrderResponse, error) {
	var (
		normalized []*domain.Order
		err        error
	)
	if userID != "" {
		normalized, err = s.orderRepo.ListByUserID(ctx, userID)
	} else {
		normalized, err = s.orderRepo.ListAll(ctx)
	}
	if err != nil {
		s.logger.Error("Failed to list normalized orders", zap.Error(err))
		return nil, err
	}

	legacy := s.legacyOrders(ctx, userID)

	merged := make([]*domain.Order, 0, len(normalized)+len(legacy))
	seen := make(map[string]bool, len(normalized))
	for _, order := range normalized {
		merged = append(merged, order)
		seen[order.ID] = true
	}
	for _, order := range legacy {
		if !seen[order.ID] {
			merged = append(merged, order)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})

	responses := make([]*OrderResponse, 0, len(merged))
	for _, order := range merged {
		responses = append(responses, s.toResponse(order, nil))
	}
	return responses, nil
}

func (s *orderService) legacyOrders(ctx context.Context, userID string) []*domain.Order {
	recs, err := s.legacyStore.Find(ctx, order_repo.CollectionLegacyOrders, store.Query{})
	if err != nil {
		// The legacy store being unreadable should not take the whole
		// listing down with it.
		s.logger.Error("Failed to read legacy orders, serving normalized only", zap.Error(err))
		return nil
	}

	orders := make([]*domain.Order, 0, len(recs))
	for _, rec := range recs {
		order := normalizeLegacyOrder(rec)
		if order == nil {
			s.logger.Warn("Skipping legacy order record without id")
			continue
		}
		if userID != "" && order.UserID != userID {
			continue
		}
		orders = append(orders, order)
	}
	return orders
}

// normalizeLegacyOrder maps the legacy flat field names onto the
// canonical order shape. The legacy writer went through several naming
// generations, so each field checks the variants in the order they
// appeared.
func normalizeLegacyOrder(rec store.Record) *domain.Order {
	id := firstString(rec, "id", "order_id")
	if id == "" {
		return nil
	}
	return &domain.Order{
		ID:               id,
		OrderNumber:      firstString(rec, "order_number", "order_no"),
		UserID:           firstString(rec, "user_id", "customer_id"),
		Status:           domain.OrderStatus(firstString(rec, "status", "order_status")),
		PaymentStatus:    domain.PaymentStatus(firstString(rec, "payment_status")),
		PaymentMethod:    domain.PaymentMethod(firstString(rec, "payment_method", "method")),
		TotalAmount:      firstFloat(rec, "total_amount", "total"),
		Currency:         firstString(rec, "currency"),
		DeliveryAddress:  firstString(rec, "delivery_address", "address"),
		DeliveryPhone:    firstString(rec, "delivery_phone", "phone"),
		DeliveryDate:     firstString(rec, "delivery_date"),
		DeliveryTimeSlot: firstString(rec, "delivery_time_slot", "time_slot"),
		CreatedAt:        firstTime(rec, "created_at", "created"),
		UpdatedAt:        firstTime(rec, "updated_at", "updated"),
	}
}

func firstString(rec store.Record, keys ...string) string {
	for _, key := range keys {
		if v, ok := rec[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

func firstFloat(rec store.Record, keys ...string) float64 {
	for _, key := range keys {
		if v, ok := rec[key].(float64); ok {
			return v
		}
	}
	return 0
}

func firstTime(rec store.Record, keys ...string) time.Time {
	for _, key := range keys {
		v, ok := rec[key].(string)
		if !ok {
			continue
		}
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
