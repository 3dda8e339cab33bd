package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"membership-checkout/internal/domain/model"
	"membership-checkout/internal/infra/logging"
	"membership-checkout/internal/usecase"
)

var errMissingToken = errors.New("missing token")

// Claims is the bearer token issued by the storefront's auth service.
type Claims struct {
	Role  string `json:"role"`
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

type Authenticator struct {
	secret []byte
	issuer string
}

func NewAuthenticator(secret, issuer string) *Authenticator {
	return &Authenticator{secret: []byte(secret), issuer: issuer}
}

// Mint signs a token for id. Used by the seed tool and tests.
func (a *Authenticator) Mint(id usecase.Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role:  string(id.Role),
		Email: id.Email,
		Name:  id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Parse validates tok and returns the caller it identifies.
func (a *Authenticator) Parse(tok string) (usecase.Identity, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}
	tkn, err := jwt.ParseWithClaims(tok, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	}, opts...)
	if err != nil || !tkn.Valid {
		return usecase.Identity{}, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return usecase.Identity{}, errors.New("token has no subject")
	}
	return usecase.Identity{
		UserID: claims.Subject,
		Email:  claims.Email,
		Name:   claims.Name,
		Role:   model.Role(claims.Role),
	}, nil
}

// fromRequest reads "Authorization: Bearer <jwt>" or, for browsers opening a websocket, ?token=.
func (a *Authenticator) fromRequest(r *http.Request, allowQuery bool) (usecase.Identity, error) {
	if hdr := r.Header.Get("Authorization"); hdr != "" {
		scheme, tok, ok := strings.Cut(hdr, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") {
			return usecase.Identity{}, errors.New("invalid authorization header")
		}
		return a.Parse(strings.TrimSpace(tok))
	}
	if allowQuery {
		if tok := r.URL.Query().Get("token"); tok != "" {
			return a.Parse(tok)
		}
	}
	return usecase.Identity{}, errMissingToken
}

type identityKey struct{}

func identityFrom(ctx context.Context) (usecase.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(usecase.Identity)
	return id, ok
}

func (a *Authenticator) require(allowQuery bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := a.fromRequest(r, allowQuery)
			if err != nil {
				JSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized", Kind: "validation", Message: err.Error()})
				return
			}
			ctx := context.WithValue(r.Context(), identityKey{}, id)
			ctx = logging.WithUserID(ctx, id.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Required rejects requests without a valid bearer token.
func (a *Authenticator) Required() Middleware { return a.require(false) }

// RequiredWithQuery also accepts the token as a query parameter.
func (a *Authenticator) RequiredWithQuery() Middleware { return a.require(true) }

// AdminOnly must run after Required.
func AdminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := identityFrom(r.Context())
		if !ok || !id.Role.IsAdmin() {
			JSON(w, http.StatusForbidden, errorBody{Error: "forbidden", Kind: "validation", Message: "admin access required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
