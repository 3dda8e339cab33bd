package adapter

import (
	"context"
	"time"

	"membership-checkout/internal/domain/model"
)

// InstrumentRequest carries what a provider needs to issue a payment instrument.
type InstrumentRequest struct {
	TransactionID string
	ExternalID    string
	InvoiceNumber string
	Amount        int64
	Channel       model.PaymentChannel
	Description   string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	ExpiresIn     time.Duration
}

// PaymentGateway is the hex port for payment instruments. Every implementation
// returns the same normalized result.
type PaymentGateway interface {
	Name() string
	Method() model.PaymentMethod
	CreateInstrument(ctx context.Context, req InstrumentRequest) (*model.PaymentInstrument, error)
}

// UniqueCodeSource draws the manual-transfer disambiguation code.
type UniqueCodeSource interface {
	Next(ctx context.Context) (int64, error)
}

// WebhookDecoder authenticates and decodes provider callbacks.
type WebhookDecoder interface {
	// Verify fails with domain.ErrInvalidSignature when signature does not match body.
	Verify(body []byte, signature string) error
	Decode(body []byte) (*model.ProviderEvent, error)
}
