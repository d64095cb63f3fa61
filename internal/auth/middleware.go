package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tickerql/tickerql/internal/observability"
)

type identityKey struct{}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(Identity)
	return identity, ok
}

const (
	headerAPIKey   = "X-API-Key"
	challenge      = `Bearer realm="tickerql"`
	reasonMissing  = "missing API key"
	reasonRejected = "invalid API key"
)

type authenticator struct {
	logger    *slog.Logger
	validator APIKeyValidator
}

// Middleware rejects requests without a valid X-API-Key or bearer token
// and stores the resolved Identity on the request context.
func Middleware(logger *slog.Logger, validator APIKeyValidator) func(http.Handler) http.Handler {
	a := authenticator{logger: logger, validator: validator}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, reason := a.authenticate(r)
			if reason != "" {
				a.reject(w, r, reason)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func (a authenticator) authenticate(r *http.Request) (Identity, string) {
	key := credentials(r)
	if key == "" {
		return Identity{}, reasonMissing
	}
	identity, ok := a.validator.Validate(r.Context(), key)
	if !ok {
		return Identity{}, reasonRejected
	}
	return identity, ""
}

func (a authenticator) reject(w http.ResponseWriter, r *http.Request, reason string) {
	ctx := r.Context()
	if a.logger != nil {
		a.logger.WarnContext(ctx, "request unauthenticated",
			slog.String("reason", reason),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("trace_id", observability.TraceIDFromContext(ctx)),
		)
	}
	w.Header().Set("WWW-Authenticate", challenge)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error_code": "UNAUTHORIZED",
		"message":    reason,
		"retryable":  false,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}

// credentials prefers X-API-Key; the Authorization scheme match is
// case-insensitive.
func credentials(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get(headerAPIKey)); key != "" {
		return key
	}
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
