package payment

import (
	"context"
	"strings"
	"time"

	"membership-checkout/internal/config"
	"membership-checkout/internal/domain"
	"membership-checkout/internal/domain/model"
	"membership-checkout/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*XenditVAGateway)(nil)

// XenditVAGateway creates closed, single-use fixed virtual accounts
// (POST /callback_virtual_accounts).
type XenditVAGateway struct {
	client       *XenditClient
	companyCode  string
	instructions string // base url of the payment instructions page
	now          func() time.Time
}

func NewXenditVAGateway(client *XenditClient, cfg config.XenditConfig, publicBaseURL string) *XenditVAGateway {
	return &XenditVAGateway{
		client:       client,
		companyCode:  cfg.CompanyCode,
		instructions: strings.TrimRight(publicBaseURL, "/") + "/checkout/va/",
		now:          time.Now,
	}
}

func (g *XenditVAGateway) Name() string                { return "xendit_va" }
func (g *XenditVAGateway) Method() model.PaymentMethod { return model.MethodVirtualAccount }

type vaRequest struct {
	ExternalID     string    `json:"external_id"`
	BankCode       string    `json:"bank_code"`
	Name           string    `json:"name"`
	ExpectedAmount int64     `json:"expected_amount"`
	IsClosed       bool      `json:"is_closed"`
	IsSingleUse    bool      `json:"is_single_use"`
	ExpirationDate time.Time `json:"expiration_date"`
}

type vaResponse struct {
	ID             string    `json:"id"`
	AccountNumber  string    `json:"account_number"`
	MerchantCode   string    `json:"merchant_code"`
	BankCode       string    `json:"bank_code"`
	Status         string    `json:"status"`
	ExpirationDate time.Time `json:"expiration_date"`
}

func (g *XenditVAGateway) CreateInstrument(ctx context.Context, req adapter.InstrumentRequest) (*model.PaymentInstrument, error) {
	const op = "xendit.CreateVA"
	if !req.Channel.SupportsVirtualAccount() {
		return nil, domain.Validation(op, "channel %s does not support virtual accounts", req.Channel)
	}
	expires := g.now().Add(req.ExpiresIn)
	body := vaRequest{
		ExternalID:     req.ExternalID,
		BankCode:       string(req.Channel),
		Name:           vaHolderName(req.CustomerName),
		ExpectedAmount: req.Amount,
		IsClosed:       true,
		IsSingleUse:    true,
		ExpirationDate: expires.UTC(),
	}

	var resp vaResponse
	if err := g.client.post(ctx, op, "/callback_virtual_accounts", req.ExternalID, body, &resp); err != nil {
		return nil, err
	}
	if resp.AccountNumber == "" {
		return nil, domain.Provider(op, "xendit returned no account number", nil)
	}
	if !resp.ExpirationDate.IsZero() {
		expires = resp.ExpirationDate
	}

	return &model.PaymentInstrument{
		Provider:    ProviderXendit,
		ProviderRef: resp.ID,
		Method:      model.MethodVirtualAccount,
		Channel:     req.Channel,
		PaymentURL:  g.instructions + req.TransactionID,
		VANumber:    g.fullNumber(resp),
		ExpiresAt:   expires,
	}, nil
}

// fullNumber prefixes the company code when the provider returned only the suffix.
func (g *XenditVAGateway) fullNumber(resp vaResponse) string {
	prefix := resp.MerchantCode
	if prefix == "" {
		prefix = g.companyCode
	}
	if prefix == "" || strings.HasPrefix(resp.AccountNumber, prefix) {
		return resp.AccountNumber
	}
	return prefix + resp.AccountNumber
}

// Banks reject holder names that are empty or contain digits and punctuation.
func vaHolderName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r == ' ' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "Customer"
	}
	return out
}
