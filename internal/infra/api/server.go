package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"membership-checkout/internal/domain/model"
	"membership-checkout/internal/usecase"
)

type Checkouter interface {
	Checkout(ctx context.Context, id usecase.Identity, req usecase.CheckoutRequest) (*usecase.CheckoutResult, error)
}

type TransactionService interface {
	GetForUser(ctx context.Context, userID, id string) (*model.Transaction, error)
	SubmitProof(ctx context.Context, userID, id, proofURL string) (*model.Transaction, error)
	Approve(ctx context.Context, id, note string) (*model.TransitionResult, error)
	Reject(ctx context.Context, id, note string) (*model.TransitionResult, error)
}

type WebhookIngestor interface {
	Ingest(ctx context.Context, body []byte, signature string) (*usecase.WebhookAck, error)
}

type BulkProcessor interface {
	Apply(ctx context.Context, actor usecase.Actor, ids []string, action string) (*model.BulkResult, error)
}

type RealtimeServer interface {
	Serve(w http.ResponseWriter, r *http.Request, userID string)
}

type Deps struct {
	Checkout     Checkouter
	Transactions TransactionService
	Webhooks     WebhookIngestor
	Bulk         BulkProcessor
	Realtime     RealtimeServer
	Auth         *Authenticator
	// Health is optional; a failing check turns /health into a 503.
	Health func(ctx context.Context) error
}

type Options struct {
	RequestTimeout time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
}

// Server exposes the checkout API over chi.
type Server struct {
	checkout     Checkouter
	transactions TransactionService
	webhooks     WebhookIngestor
	bulk         BulkProcessor
	realtime     RealtimeServer
	auth         *Authenticator
	health       func(ctx context.Context) error
	limiter      *IPRateLimiter
	opts         Options
	log          *zerolog.Logger
}

func NewServer(d Deps, opts Options, logger *zerolog.Logger) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	l := logger.With().Str("component", "api").Logger()
	s := &Server{
		checkout:     d.Checkout,
		transactions: d.Transactions,
		webhooks:     d.Webhooks,
		bulk:         d.Bulk,
		realtime:     d.Realtime,
		auth:         d.Auth,
		health:       d.Health,
		opts:         opts,
		log:          &l,
	}
	if opts.RateLimitRPS > 0 {
		s.limiter = NewIPRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst)
	}
	return s
}

// Limiter returns the per-IP limiter so the caller can run its pruning loop; nil when disabled.
func (s *Server) Limiter() *IPRateLimiter { return s.limiter }

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(Recover(s.log), TraceID(), RequestLog(s.log))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.limiter.Middleware())
		}

		// Authenticated by its callback token, not a JWT.
		r.With(Timeout(s.opts.RequestTimeout)).Post("/webhooks/xendit", s.handleXenditWebhook)

		// The websocket outlives any request timeout.
		r.With(s.auth.RequiredWithQuery()).Get("/realtime", s.handleRealtime)

		r.Group(func(r chi.Router) {
			r.Use(Timeout(s.opts.RequestTimeout), s.auth.Required())

			r.Post("/checkout", s.handleCheckout)
			r.Get("/transactions/{id}", s.handleGetTransaction)
			r.Post("/transactions/{id}/proof", s.handleSubmitProof)

			r.Route("/admin", func(r chi.Router) {
				r.Use(AdminOnly)
				r.Post("/transactions/bulk", s.handleBulk)
				r.Post("/transactions/{id}/approve", s.handleApprove)
				r.Post("/transactions/{id}/reject", s.handleReject)
			})
		})
	})
	return r
}
