package payment

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"membership-checkout/internal/config"
	"membership-checkout/internal/domain"
	"membership-checkout/internal/domain/model"
	"membership-checkout/internal/domain/ports/adapter"
)

var (
	_ adapter.PaymentGateway   = (*ManualTransferGateway)(nil)
	_ adapter.UniqueCodeSource = (*RandomUniqueCode)(nil)
)

const ProviderManual = "manual"

// ManualTransferGateway makes no external call. The customer transfers to the
// company account and uploads a proof on the returned page.
type ManualTransferGateway struct {
	proofPage string
	now       func() time.Time
}

func NewManualTransferGateway(publicBaseURL string) *ManualTransferGateway {
	return &ManualTransferGateway{
		proofPage: strings.TrimRight(publicBaseURL, "/") + "/checkout/manual/",
		now:       time.Now,
	}
}

func (g *ManualTransferGateway) Name() string                { return ProviderManual }
func (g *ManualTransferGateway) Method() model.PaymentMethod { return model.MethodManual }

func (g *ManualTransferGateway) CreateInstrument(ctx context.Context, req adapter.InstrumentRequest) (*model.PaymentInstrument, error) {
	if req.Amount <= 0 {
		return nil, domain.Validation("manual.CreateInstrument", "transfer amount must be positive")
	}
	return &model.PaymentInstrument{
		Provider:    ProviderManual,
		ProviderRef: req.ExternalID,
		Method:      model.MethodManual,
		Channel:     req.Channel,
		PaymentURL:  g.proofPage + req.TransactionID,
		ExpiresAt:   g.now().Add(req.ExpiresIn),
	}, nil
}

// RandomUniqueCode draws the code added to (or subtracted from) a manual
// transfer so that incoming payments of the same price can be told apart.
type RandomUniqueCode struct {
	cfg  config.UniqueCodeConfig
	intn func(n int64) int64
}

func NewRandomUniqueCode(cfg config.UniqueCodeConfig) *RandomUniqueCode {
	return &RandomUniqueCode{cfg: cfg, intn: rand.Int63n}
}

// Next returns 0 when disabled, a negative code in subtract mode.
func (u *RandomUniqueCode) Next(ctx context.Context) (int64, error) {
	if !u.cfg.Enabled {
		return 0, nil
	}
	lo, hi := u.cfg.Min, u.cfg.Max
	if hi < lo {
		return 0, domain.Validation("unique_code.Next", "min %d exceeds max %d", lo, hi)
	}
	code := lo + u.intn(hi-lo+1)
	if strings.EqualFold(u.cfg.Type, "subtract") {
		return -code, nil
	}
	return code, nil
}
