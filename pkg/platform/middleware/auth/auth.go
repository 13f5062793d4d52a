// Package auth authenticates bearer tokens and puts the caller identity on
// the request context.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/httputil"
	"kycgate/pkg/requestcontext"
)

// JWTValidator parses and verifies a raw bearer token.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// TokenRevocationChecker reports whether a token id was revoked by logout.
type TokenRevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// JWTClaims is what the middleware needs from a validated token.
type JWTClaims struct {
	Caller    domain.Identity
	JTI       string
	ExpiresAt time.Time
}

type contextKeyExpiresAt struct{}

// ExpiresAt returns the expiry of the token that authenticated the request.
func ExpiresAt(ctx context.Context) time.Time {
	if t, ok := ctx.Value(contextKeyExpiresAt{}).(time.Time); ok {
		return t
	}
	return time.Time{}
}

// rejection carries the client facing error plus what gets logged.
type rejection struct {
	err    error
	reason string
	cause  error
}

type authenticator struct {
	validator JWTValidator
	revoked   TokenRevocationChecker
}

// RequireAuth rejects requests without a valid, unrevoked bearer token.
// revocationChecker may be nil, in which case logout has no effect.
func RequireAuth(validator JWTValidator, revocationChecker TokenRevocationChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	a := authenticator{validator: validator, revoked: revocationChecker}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			claims, rej := a.authenticate(ctx, r.Header.Get("Authorization"))
			if rej != nil {
				level := slog.LevelWarn
				if dErrors.HasCode(rej.err, dErrors.CodeInternal) {
					level = slog.LevelError
				}
				logger.Log(ctx, level, "request not authenticated",
					"reason", rej.reason,
					"error", rej.cause,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, rej.err)
				return
			}

			ctx = requestcontext.WithCaller(ctx, claims.Caller)
			ctx = requestcontext.WithTokenID(ctx, claims.JTI)
			ctx = context.WithValue(ctx, contextKeyExpiresAt{}, claims.ExpiresAt)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (a authenticator) authenticate(ctx context.Context, header string) (*JWTClaims, *rejection) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return nil, &rejection{
			err:    dErrors.New(dErrors.CodeUnauthenticated, "missing or invalid Authorization header"),
			reason: "missing_token",
		}
	}
	invalid := dErrors.New(dErrors.CodeUnauthenticated, "invalid or expired token")

	claims, err := a.validator.ValidateToken(token)
	if err != nil {
		return nil, &rejection{err: invalid, reason: "invalid_token", cause: err}
	}
	if a.revoked == nil {
		return claims, nil
	}
	if claims.JTI == "" {
		return nil, &rejection{err: invalid, reason: "missing_jti"}
	}
	revoked, err := a.revoked.IsRevoked(ctx, claims.JTI)
	if err != nil {
		return nil, &rejection{
			err:    dErrors.Wrap(err, dErrors.CodeInternal, "failed to validate token"),
			reason: "revocation_check_failed",
			cause:  err,
		}
	}
	if revoked {
		return nil, &rejection{
			err:    dErrors.New(dErrors.CodeUnauthenticated, "token has been revoked"),
			reason: "token_revoked",
		}
	}
	return claims, nil
}
