package domain

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies every error that crosses a use-case boundary.
type Kind string

const (
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
	KindProvider   Kind = "provider"
	KindConflict   Kind = "conflict"
	KindIntegrity  Kind = "integrity"
)

// Kind sentinels; match with errors.Is(err, domain.ErrConflict). NotFound matches ErrNotFound.
var (
	ErrValidation = errors.New("validation error")
	ErrProvider   = errors.New("provider error")
	ErrConflict   = errors.New("conflict")
	ErrIntegrity  = errors.New("integrity error")
)

var kindSentinels = map[Kind]error{
	KindValidation: ErrValidation,
	KindNotFound:   ErrNotFound,
	KindProvider:   ErrProvider,
	KindConflict:   ErrConflict,
	KindIntegrity:  ErrIntegrity,
}

// Error is the typed domain error. Op names the failing operation, Message is safe to show to a caller.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Op != "":
		return e.Op + ": " + e.Message
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// Repository-level sentinels. They carry a kind so callers can branch on the taxonomy.
var (
	ErrNotFound           = &Error{Kind: KindNotFound, Message: "entity not found"}
	ErrAlreadyExists      = &Error{Kind: KindConflict, Message: "entity already exists"}
	ErrInvalidArgument    = &Error{Kind: KindValidation, Message: "invalid argument"}
	ErrOperationFailed    = &Error{Kind: KindIntegrity, Message: "database operation failed"}
	ErrReadDatabaseRow    = &Error{Kind: KindIntegrity, Message: "failed to read database row"}
	ErrInvalidExecContext = &Error{Kind: KindIntegrity, Message: "invalid execution context"}
)

// Checkout and lifecycle sentinels.
var (
	ErrInvalidCoupon      = &Error{Kind: KindValidation, Message: "invalid coupon"}
	ErrCouponExhausted    = &Error{Kind: KindConflict, Message: "coupon usage limit reached"}
	ErrInvalidTransition  = &Error{Kind: KindConflict, Message: "transaction status transition not allowed"}
	ErrActivationInFlight = &Error{Kind: KindConflict, Message: "activation already in progress"}
	ErrInvalidSignature   = &Error{Kind: KindValidation, Message: "invalid webhook signature"}
	ErrTransactionExpired = &Error{Kind: KindConflict, Message: "transaction has expired"}
	ErrForbidden          = &Error{Kind: KindValidation, Message: "operation not permitted for this caller"}
	ErrNoRecipient        = &Error{Kind: KindValidation, Message: "no recipient on file for this channel"}
)

func Validation(op, format string, args ...any) error {
	return &Error{Kind: KindValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

func NotFound(op, entity string) error {
	return &Error{Kind: KindNotFound, Op: op, Message: entity + " not found"}
}

func Provider(op, message string, err error) error {
	return &Error{Kind: KindProvider, Op: op, Message: message, Err: err}
}

func Conflict(op, format string, args ...any) error {
	return &Error{Kind: KindConflict, Op: op, Message: fmt.Sprintf(format, args...)}
}

func Integrity(op string, err error) error {
	return &Error{Kind: KindIntegrity, Op: op, Message: "persistence failure", Err: err}
}

// Wrap attaches an operation and message to a sentinel while keeping its kind.
func Wrap(sentinel *Error, op, format string, args ...any) error {
	return &Error{Kind: sentinel.Kind, Op: op, Message: fmt.Sprintf(format, args...), Err: sentinel}
}

// KindOf returns the taxonomy kind of err. Unclassified errors count as integrity failures.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var ce *CooldownError
	if errors.As(err, &ce) {
		return KindConflict
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindIntegrity
}

// MessageOf returns the caller-safe message of err.
func MessageOf(err error) string {
	var ce *CooldownError
	if errors.As(err, &ce) {
		return fmt.Sprintf("please wait %d minutes or complete your pending transaction", ce.WaitMinutes())
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}

// CooldownError rejects a new checkout while a recent PENDING transaction exists.
type CooldownError struct {
	Wait          time.Duration
	TransactionID string
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("checkout cooldown: wait %s or complete transaction %s", e.Wait.Round(time.Second), e.TransactionID)
}

func (e *CooldownError) Is(target error) bool { return target == ErrConflict }

// WaitMinutes rounds the remaining cooldown up to whole minutes.
func (e *CooldownError) WaitMinutes() int {
	m := int(e.Wait / time.Minute)
	if e.Wait%time.Minute > 0 {
		m++
	}
	return m
}
