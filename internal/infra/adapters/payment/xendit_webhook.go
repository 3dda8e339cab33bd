package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"membership-checkout/internal/domain"
	"membership-checkout/internal/domain/model"
	"membership-checkout/internal/domain/ports/adapter"
)

var _ adapter.WebhookDecoder = (*XenditWebhook)(nil)

const XenditSignatureHeader = "x-callback-token"

var xenditEvents = map[string]model.ProviderEventType{
	"invoice.paid":              model.ProviderEventPaid,
	"va.payment.complete":       model.ProviderEventPaid,
	"payment_request.succeeded": model.ProviderEventPaid,
	"payment_request.captured":  model.ProviderEventPaid,
	"ewallet.capture.completed": model.ProviderEventPaid,
	"invoice.expired":           model.ProviderEventExpired,
	"payment_request.failed":    model.ProviderEventFailed,
}

// XenditWebhook checks HMAC-SHA256(body, token) against the callback header.
// An empty token disables the check (dev mode only; config refuses it otherwise).
type XenditWebhook struct {
	token string
}

func NewXenditWebhook(token string) *XenditWebhook {
	return &XenditWebhook{token: token}
}

func SignXendit(token string, body []byte) string {
	h := hmac.New(sha256.New, []byte(token))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func (w *XenditWebhook) Verify(body []byte, signature string) error {
	if w.token == "" {
		return nil
	}
	expected := SignXendit(w.token, body)
	got := strings.ToLower(strings.TrimSpace(signature))
	if !hmac.Equal([]byte(expected), []byte(got)) {
		return domain.ErrInvalidSignature
	}
	return nil
}

// xenditPayload covers the flat invoice/VA callbacks and the payment_request envelope.
type xenditPayload struct {
	Event              string          `json:"event"`
	Type               string          `json:"type"`
	ID                 string          `json:"id"`
	PaymentID          string          `json:"payment_id"`
	ExternalID         string          `json:"external_id"`
	ReferenceID        string          `json:"reference_id"`
	Status             string          `json:"status"`
	Amount             float64         `json:"amount"`
	PaidAmount         float64         `json:"paid_amount"`
	CapturedAmount     float64         `json:"captured_amount"`
	PaymentChannel     string          `json:"payment_channel"`
	BankCode           string          `json:"bank_code"`
	ChannelCode        string          `json:"channel_code"`
	PaymentDestination string          `json:"payment_destination"`
	FailureCode        string          `json:"failure_code"`
	PaidAt             *time.Time      `json:"paid_at"`
	Data               json.RawMessage `json:"data"`
}

func (w *XenditWebhook) Decode(body []byte) (*model.ProviderEvent, error) {
	const op = "xendit.DecodeWebhook"
	var p xenditPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, domain.Validation(op, "malformed webhook body")
	}
	name := p.Event
	if name == "" {
		name = p.Type
	}
	// payment_request callbacks wrap the payment in "data"
	if len(p.Data) > 0 && p.Data[0] == '{' {
		var inner xenditPayload
		if err := json.Unmarshal(p.Data, &inner); err == nil {
			inner.Event = name
			p = inner
		}
	}

	ev := &model.ProviderEvent{
		Name:        name,
		Type:        model.ProviderEventIgnored,
		ExternalID:  firstNonEmpty(p.ExternalID, p.ReferenceID),
		ProviderRef: firstNonEmpty(p.PaymentID, p.ID),
		PaidAmount:  int64(firstPositive(p.PaidAmount, p.CapturedAmount, p.Amount)),
		Channel:     strings.ToUpper(firstNonEmpty(p.PaymentChannel, p.BankCode, p.ChannelCode)),
		Destination: p.PaymentDestination,
		FailureCode: p.FailureCode,
	}
	if t, ok := xenditEvents[name]; ok {
		ev.Type = t
	}
	if p.PaidAt != nil {
		ev.PaidAt = *p.PaidAt
	}
	return ev, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(vals ...float64) float64 {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
