package payment

import (
	"context"
	"time"

	"membership-checkout/internal/config"
	"membership-checkout/internal/domain"
	"membership-checkout/internal/domain/model"
	"membership-checkout/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*XenditInvoiceGateway)(nil)

// XenditInvoiceGateway issues hosted checkout pages (POST /v2/invoices).
type XenditInvoiceGateway struct {
	client     *XenditClient
	successURL string
	failureURL string
	now        func() time.Time
}

func NewXenditInvoiceGateway(client *XenditClient, cfg config.XenditConfig) *XenditInvoiceGateway {
	return &XenditInvoiceGateway{client: client, successURL: cfg.SuccessURL, failureURL: cfg.FailureURL, now: time.Now}
}

func (g *XenditInvoiceGateway) Name() string                { return "xendit_invoice" }
func (g *XenditInvoiceGateway) Method() model.PaymentMethod { return model.MethodInvoice }

type invoiceCustomer struct {
	GivenNames   string `json:"given_names,omitempty"`
	Email        string `json:"email,omitempty"`
	MobileNumber string `json:"mobile_number,omitempty"`
}

type invoiceRequest struct {
	ExternalID         string           `json:"external_id"`
	Amount             int64            `json:"amount"`
	Description        string           `json:"description"`
	InvoiceDuration    int64            `json:"invoice_duration"`
	Currency           string           `json:"currency"`
	PayerEmail         string           `json:"payer_email,omitempty"`
	Customer           *invoiceCustomer `json:"customer,omitempty"`
	SuccessRedirectURL string           `json:"success_redirect_url,omitempty"`
	FailureRedirectURL string           `json:"failure_redirect_url,omitempty"`
	PaymentMethods     []string         `json:"payment_methods,omitempty"`
}

type invoiceResponse struct {
	ID         string    `json:"id"`
	InvoiceURL string    `json:"invoice_url"`
	Status     string    `json:"status"`
	ExpiryDate time.Time `json:"expiry_date"`
}

func (g *XenditInvoiceGateway) CreateInstrument(ctx context.Context, req adapter.InstrumentRequest) (*model.PaymentInstrument, error) {
	const op = "xendit.CreateInvoice"
	if req.Amount <= 0 {
		return nil, domain.Validation(op, "invoice amount must be positive")
	}
	body := invoiceRequest{
		ExternalID:         req.ExternalID,
		Amount:             req.Amount,
		Description:        req.Description,
		InvoiceDuration:    int64(req.ExpiresIn / time.Second),
		Currency:           model.CurrencyIDR,
		PayerEmail:         req.CustomerEmail,
		SuccessRedirectURL: g.successURL,
		FailureRedirectURL: g.failureURL,
		Customer: &invoiceCustomer{
			GivenNames:   req.CustomerName,
			Email:        req.CustomerEmail,
			MobileNumber: req.CustomerPhone,
		},
	}
	if req.Channel != "" {
		body.PaymentMethods = []string{string(req.Channel)}
	}

	var resp invoiceResponse
	if err := g.client.post(ctx, op, "/v2/invoices", req.ExternalID, body, &resp); err != nil {
		return nil, err
	}
	if resp.InvoiceURL == "" {
		return nil, domain.Provider(op, "xendit returned no invoice url", nil)
	}

	expires := resp.ExpiryDate
	if expires.IsZero() {
		expires = g.now().Add(req.ExpiresIn)
	}
	return &model.PaymentInstrument{
		Provider:    ProviderXendit,
		ProviderRef: resp.ID,
		Method:      model.MethodInvoice,
		Channel:     req.Channel,
		PaymentURL:  resp.InvoiceURL,
		ExpiresAt:   expires,
	}, nil
}
