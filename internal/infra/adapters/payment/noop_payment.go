package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"membership-checkout/internal/domain/model"
	"membership-checkout/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopPaymentGateway)(nil)

// NoopPaymentGateway is a simple in-memory gateway to use in dev and tests.
// FailNext makes the next call fail, which exercises the invoice fallback.
type NoopPaymentGateway struct {
	mu       sync.Mutex
	seq      int64
	method   model.PaymentMethod
	FailNext error
	Requests []adapter.InstrumentRequest
}

func NewNoopPaymentGateway(method model.PaymentMethod) *NoopPaymentGateway {
	return &NoopPaymentGateway{method: method}
}

func (g *NoopPaymentGateway) Name() string                { return "noop_" + string(g.method) }
func (g *NoopPaymentGateway) Method() model.PaymentMethod { return g.method }

func (g *NoopPaymentGateway) CreateInstrument(ctx context.Context, req adapter.InstrumentRequest) (*model.PaymentInstrument, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.Requests = append(g.Requests, req)
	if err := g.FailNext; err != nil {
		g.FailNext = nil
		return nil, err
	}
	g.seq++
	ref := fmt.Sprintf("noop-%d", g.seq)
	in := &model.PaymentInstrument{
		Provider:    "noop",
		ProviderRef: ref,
		Method:      g.method,
		Channel:     req.Channel,
		PaymentURL:  "https://example.test/pay/" + ref,
		ExpiresAt:   time.Now().Add(req.ExpiresIn),
	}
	if g.method == model.MethodVirtualAccount {
		in.VANumber = fmt.Sprintf("88088%07d", g.seq)
	}
	return in, nil
}
