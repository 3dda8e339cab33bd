package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"membership-checkout/internal/domain"
)

const maxResponseBody = 1 << 20

func defaultClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: 10 * time.Second}
}

// postJSON sends in as JSON and decodes a 2xx reply into out (if non-nil).
func postJSON(ctx context.Context, client *http.Client, op, endpoint string, headers map[string]string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: marshal: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return do(client, op, req, out)
}

func postForm(ctx context.Context, client *http.Client, op, endpoint string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return do(client, op, req, out)
}

func do(client *http.Client, op string, req *http.Request, out any) error {
	resp, err := client.Do(req)
	if err != nil {
		return domain.Provider(op, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return domain.Provider(op, "read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.Provider(op, fmt.Sprintf("status %d: %s", resp.StatusCode, truncate(string(body), 200)), nil)
	}
	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return domain.Provider(op, "decode response", err)
		}
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
