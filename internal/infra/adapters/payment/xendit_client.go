// File: internal/infra/adapters/payment/xendit_client.go
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"membership-checkout/internal/config"
	"membership-checkout/internal/domain"
)

const ProviderXendit = "xendit"

// XenditClient is a thin REST client for the Xendit API. Auth is HTTP basic
// with the secret key as user name and an empty password.
type XenditClient struct {
	baseURL   string
	secretKey string
	client    *http.Client
}

func NewXenditClient(cfg config.XenditConfig, httpClient *http.Client) *XenditClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &XenditClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		secretKey: cfg.SecretKey,
		client:    httpClient,
	}
}

// xenditError is the error envelope of every Xendit endpoint.
type xenditError struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

func (c *XenditClient) post(ctx context.Context, op, path, idempotencyKey string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request data: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.secretKey, "")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("X-IDEMPOTENCY-KEY", idempotencyKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.Provider(op, "xendit unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.Provider(op, "failed to read xendit response", err)
	}

	if resp.StatusCode >= 300 {
		var xe xenditError
		_ = json.Unmarshal(body, &xe)
		if xe.ErrorCode == "" {
			xe.ErrorCode = http.StatusText(resp.StatusCode)
		}
		return domain.Provider(op, "xendit rejected the request",
			fmt.Errorf("status %d: %s: %s", resp.StatusCode, xe.ErrorCode, xe.Message))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return domain.Provider(op, "unexpected xendit response", fmt.Errorf("unmarshal: %w, body: %s", err, string(body)))
	}
	return nil
}
