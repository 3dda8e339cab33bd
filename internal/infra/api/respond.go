package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"membership-checkout/internal/domain"
	"membership-checkout/internal/infra/logging"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error         string `json:"error"`
	Kind          string `json:"kind"`
	Message       string `json:"message"`
	WaitMinutes   int    `json:"waitMinutes,omitempty"`
	TransactionID string `json:"transactionId,omitempty"`
}

// JSON writes data with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// DecodeJSON reads a bounded JSON body into v and rejects unknown fields.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.Validation("api.DecodeJSON", "invalid JSON body")
	}
	return nil
}

// statusOf maps the error taxonomy onto HTTP.
func statusOf(err error) int {
	var ce *domain.CooldownError
	switch {
	case errors.As(err, &ce):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrInvalidSignature):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	}
	switch domain.KindOf(err) {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindProvider:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func codeOf(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "unprocessable"
	case http.StatusTooManyRequests:
		return "cooldown"
	case http.StatusBadGateway:
		return "provider_unavailable"
	}
	return "internal_error"
}

// Error writes err with the status its kind maps to.
func Error(w http.ResponseWriter, r *http.Request, logger *zerolog.Logger, err error) {
	writeError(w, r, logger, statusOf(err), err)
}

func writeError(w http.ResponseWriter, r *http.Request, logger *zerolog.Logger, status int, err error) {
	body := errorBody{
		Error:   codeOf(status),
		Kind:    string(domain.KindOf(err)),
		Message: domain.MessageOf(err),
	}
	var ce *domain.CooldownError
	if errors.As(err, &ce) {
		body.WaitMinutes = ce.WaitMinutes()
		body.TransactionID = ce.TransactionID
	}
	if status >= http.StatusInternalServerError {
		l := logging.With(r.Context(), logger)
		l.Error().Err(err).Int("status", status).Msg("request failed")
	}
	JSON(w, status, body)
}
