package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"go.uber.org/zap"
)

// demoClient short-circuits the provider with deterministic synthetic
// responses so the full payment pipeline can run without a live gateway.
// It is selected only by explicit configuration, never as a fallback on
// error.
type demoClient struct {
	logger *zap.Logger
}

func NewDemoClient(logger *zap.Logger) Client {
	return &demoClient{logger: logger}
}

func (c *demoClient) PreviewPush(ctx context.Context, req PushRequest) (*PreviewResponse, error) {
	c.logger.Info("Demo gateway: preview push",
		zap.String("order_reference", req.OrderReference),
		zap.Float64("amount", req.Amount))
	return &PreviewResponse{
		TransactionID: demoTransactionID(req.OrderReference),
		Charge:        0,
		Currency:      req.Currency,
	}, nil
}

func (c *demoClient) InitiatePush(ctx context.Context, req PushRequest, transactionID string) (*InitiateResponse, error) {
	c.logger.Info("Demo gateway: initiate push",
		zap.String("order_reference", req.OrderReference),
		zap.String("transaction_id", transactionID))
	return &InitiateResponse{
		PaymentReference: "DEMO-" + req.OrderReference,
		TransactionID:    transactionID,
		Status:           StatusPending,
	}, nil
}

// QueryStatus always reports success so a demo checkout completes on the
// first poll.
func (c *demoClient) QueryStatus(ctx context.Context, orderReference string) (*StatusResponse, error) {
	c.logger.Info("Demo gateway: query status", zap.String("order_reference", orderReference))
	return &StatusResponse{
		PaymentReference: "DEMO-" + orderReference,
		Status:           StatusSuccess,
		TransactionDate:  time.Now().Format(time.RFC3339),
	}, nil
}

func demoTransactionID(orderReference string) string {
	sum := sha256.Sum256([]byte(orderReference))
	return "DEMO-TX-" + hex.EncodeToString(sum[:8])
}
