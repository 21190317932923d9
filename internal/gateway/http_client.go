package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/exrev201-arch/freshed-fulfillment/internal/domain"
)

const defaultTimeout = 30 * time.Second

type httpClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &httpClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (c *httpClient) PreviewPush(ctx context.Context, req PushRequest) (*PreviewResponse, error) {
	var resp PreviewResponse
	if err := c.post(ctx, "/push/preview", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *httpClient) InitiatePush(ctx context.Context, req PushRequest, transactionID string) (*InitiateResponse, error) {
	body := struct {
		PushRequest
		TransactionID string `json:"transaction_id"`
	}{PushRequest: req, TransactionID: transactionID}

	var resp InitiateResponse
	if err := c.post(ctx, "/push/initiate", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *httpClient) QueryStatus(ctx context.Context, orderReference string) (*StatusResponse, error) {
	endpoint := c.baseURL + "/payments/status?order_reference=" + url.QueryEscape(orderReference)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build status request: %w", err)
	}
	httpReq.Header.Set("x-api-key", c.apiKey)

	var resp StatusResponse
	if err := c.do(httpReq, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *httpClient) post(ctx context.Context, path string, body, out any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal gateway request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	return c.do(httpReq, out)
}

func (c *httpClient) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		// Timeouts and transport failures leave local state untouched;
		// the caller can still resolve the payment via a later query.
		c.logger.Warn("Gateway call failed",
			zap.String("url", req.URL.Path),
			zap.Error(err))
		return fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading response: %v", domain.ErrGatewayUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode gateway response: %w", err)
		}
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		var rejection struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(raw, &rejection)
		if rejection.Message == "" {
			rejection.Message = http.StatusText(resp.StatusCode)
		}
		c.logger.Warn("Gateway rejected request",
			zap.String("url", req.URL.Path),
			zap.Int("status_code", resp.StatusCode),
			zap.String("message", rejection.Message))
		return fmt.Errorf("%w: %s", domain.ErrGatewayValidation, rejection.Message)
	default:
		c.logger.Error("Gateway returned server error",
			zap.String("url", req.URL.Path),
			zap.Int("status_code", resp.StatusCode))
		return fmt.Errorf("%w: status %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	}
}
