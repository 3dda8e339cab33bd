package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"membership-checkout/internal/domain"
	"membership-checkout/internal/domain/model"
	"membership-checkout/internal/infra/adapters/payment"
	"membership-checkout/internal/usecase"
)

type checkoutRequest struct {
	Kind          string `json:"kind"`
	TargetID      string `json:"targetId"`
	Variant       string `json:"variant"`
	CouponCode    string `json:"couponCode"`
	AffiliateCode string `json:"affiliateCode"`
	PaymentMethod string `json:"paymentMethod"`
	Channel       string `json:"channel"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	WhatsApp      string `json:"whatsapp"`
}

type checkoutResponse struct {
	TransactionID string     `json:"transactionId"`
	InvoiceNumber string     `json:"invoiceNumber"`
	Status        string     `json:"status"`
	PaymentURL    string     `json:"paymentUrl,omitempty"`
	Amount        int64      `json:"amount"`
	PaymentType   string     `json:"paymentType"`
	VANumber      string     `json:"vaNumber,omitempty"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	FellBack      bool       `json:"fellBack,omitempty"`
}

type transactionView struct {
	ID             string     `json:"id"`
	InvoiceNumber  string     `json:"invoiceNumber"`
	Kind           string     `json:"kind"`
	TargetID       string     `json:"targetId"`
	Variant        string     `json:"variant,omitempty"`
	Status         string     `json:"status"`
	OriginalAmount int64      `json:"originalAmount"`
	DiscountAmount int64      `json:"discountAmount"`
	UniqueCode     int64      `json:"uniqueCode,omitempty"`
	Amount         int64      `json:"amount"`
	Currency       string     `json:"currency"`
	PaymentType    string     `json:"paymentType"`
	Channel        string     `json:"channel,omitempty"`
	PaymentURL     string     `json:"paymentUrl,omitempty"`
	VANumber       string     `json:"vaNumber,omitempty"`
	CouponCode     string     `json:"couponCode,omitempty"`
	ProofURL       string     `json:"proofUrl,omitempty"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	PaidAt         *time.Time `json:"paidAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

func viewOf(t *model.Transaction) transactionView {
	return transactionView{
		ID:             t.ID,
		InvoiceNumber:  t.InvoiceNumber,
		Kind:           string(t.Kind),
		TargetID:       t.TargetID,
		Variant:        string(t.Variant),
		Status:         string(t.Status),
		OriginalAmount: t.OriginalAmount,
		DiscountAmount: t.DiscountAmount,
		UniqueCode:     t.UniqueCode,
		Amount:         t.Amount,
		Currency:       t.Currency,
		PaymentType:    string(t.Method),
		Channel:        string(t.Channel),
		PaymentURL:     t.PaymentURL,
		VANumber:       t.VANumber,
		CouponCode:     t.CouponCode,
		ProofURL:       t.ProofURL,
		ExpiresAt:      t.ExpiresAt,
		PaidAt:         t.PaidAt,
		CreatedAt:      t.CreatedAt,
	}
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	var req checkoutRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, r, s.log, err)
		return
	}

	res, err := s.checkout.Checkout(r.Context(), id, usecase.CheckoutRequest{
		Kind:          model.TransactionKind(req.Kind),
		TargetID:      req.TargetID,
		Variant:       model.Duration(req.Variant),
		CouponCode:    req.CouponCode,
		AffiliateCode: req.AffiliateCode,
		PaymentMethod: model.PaymentMethod(req.PaymentMethod),
		Channel:       req.Channel,
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		WhatsApp:      req.WhatsApp,
	})
	if err != nil {
		Error(w, r, s.log, err)
		return
	}
	JSON(w, http.StatusCreated, checkoutResponse{
		TransactionID: res.TransactionID,
		InvoiceNumber: res.InvoiceNumber,
		Status:        string(res.Status),
		PaymentURL:    res.PaymentURL,
		Amount:        res.Amount,
		PaymentType:   string(res.PaymentType),
		VANumber:      res.VANumber,
		ExpiresAt:     res.ExpiresAt,
		FellBack:      res.FellBack,
	})
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	txn, err := s.transactions.GetForUser(r.Context(), id.UserID, chi.URLParam(r, "id"))
	if err != nil {
		Error(w, r, s.log, err)
		return
	}
	JSON(w, http.StatusOK, viewOf(txn))
}

func (s *Server) handleSubmitProof(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	var req struct {
		ProofURL string `json:"proofUrl"`
	}
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, r, s.log, err)
		return
	}
	txn, err := s.transactions.SubmitProof(r.Context(), id.UserID, chi.URLParam(r, "id"), req.ProofURL)
	if err != nil {
		Error(w, r, s.log, err)
		return
	}
	JSON(w, http.StatusOK, viewOf(txn))
}

// handleXenditWebhook acknowledges with 200 whenever the provider must not retry.
func (s *Server) handleXenditWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, s.log, http.StatusBadRequest, domain.Validation("api.webhook", "unreadable body"))
		return
	}

	ack, err := s.webhooks.Ingest(r.Context(), body, r.Header.Get(payment.XenditSignatureHeader))
	switch {
	case err == nil:
		JSON(w, http.StatusOK, map[string]string{
			"status":        "received",
			"event":         ack.Event,
			"result":        ack.Result,
			"transactionId": ack.TransactionID,
		})
	case errors.Is(err, domain.ErrInvalidSignature):
		writeError(w, r, s.log, http.StatusUnauthorized, err)
	case domain.KindOf(err) == domain.KindValidation:
		writeError(w, r, s.log, http.StatusUnprocessableEntity, err)
	default:
		writeError(w, r, s.log, http.StatusInternalServerError, err)
	}
}

type bulkRequest struct {
	TransactionIDs []string `json:"transactionIds"`
	Action         string   `json:"action"`
}

type bulkResponse struct {
	Action    string            `json:"action"`
	Requested int               `json:"requested"`
	Succeeded int               `json:"succeeded"`
	Failures  map[string]string `json:"failures"`
}

func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	var req bulkRequest
	if err := DecodeJSON(r, &req); err != nil {
		Error(w, r, s.log, err)
		return
	}
	res, err := s.bulk.Apply(r.Context(), usecase.Actor{UserID: id.UserID, Role: id.Role}, req.TransactionIDs, req.Action)
	if err != nil {
		Error(w, r, s.log, err)
		return
	}
	failures := res.Failures
	if failures == nil {
		failures = map[string]string{}
	}
	JSON(w, http.StatusOK, bulkResponse{
		Action:    string(res.Action),
		Requested: res.Requested,
		Succeeded: res.Succeeded,
		Failures:  failures,
	})
}

type reviewRequest struct {
	Note string `json:"note"`
}

type transitionResponse struct {
	Transaction transactionView `json:"transaction"`
	Changed     bool            `json:"changed"`
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	s.review(w, r, s.transactions.Approve)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	s.review(w, r, s.transactions.Reject)
}

func (s *Server) review(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, id, note string) (*model.TransitionResult, error)) {
	var req reviewRequest
	if r.ContentLength != 0 {
		if err := DecodeJSON(r, &req); err != nil {
			Error(w, r, s.log, err)
			return
		}
	}
	res, err := apply(r.Context(), chi.URLParam(r, "id"), req.Note)
	if err != nil {
		Error(w, r, s.log, err)
		return
	}
	JSON(w, http.StatusOK, transitionResponse{Transaction: viewOf(res.Transaction), Changed: res.Changed})
}

func (s *Server) handleRealtime(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	s.realtime.Serve(w, r, id.UserID)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
