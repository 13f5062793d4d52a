package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/requestcontext"
)

var caller = domain.MustParseIdentity("0x00000000000000000000000000000000000a11ce")

type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (*JWTClaims, error) {
	switch token {
	case "good":
		return &JWTClaims{Caller: caller, JTI: "jti-good"}, nil
	case "revoked":
		return &JWTClaims{Caller: caller, JTI: "jti-revoked"}, nil
	case "no-jti":
		return &JWTClaims{Caller: caller}, nil
	case "broken-store":
		return &JWTClaims{Caller: caller, JTI: "jti-broken"}, nil
	}
	return nil, dErrors.New(dErrors.CodeUnauthenticated, "invalid token")
}

type stubRevocations struct{}

func (stubRevocations) IsRevoked(_ context.Context, jti string) (bool, error) {
	if jti == "jti-broken" {
		return false, errors.New("redis down")
	}
	return jti == "jti-revoked", nil
}

func TestRequireAuth(t *testing.T) {
	var seen domain.Identity
	var seenJTI string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestcontext.Caller(r.Context())
		seenJTI = requestcontext.TokenID(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	mw := RequireAuth(stubValidator{}, stubRevocations{}, slog.New(slog.NewTextHandler(io.Discard, nil)))(next)

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"valid token", "Bearer good", http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", http.StatusUnauthorized},
		{"invalid token", "Bearer nope", http.StatusUnauthorized},
		{"revoked token", "Bearer revoked", http.StatusUnauthorized},
		{"token without jti", "Bearer no-jti", http.StatusUnauthorized},
		{"revocation store failure", "Bearer broken-store", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			seen, seenJTI = domain.NilIdentity, ""
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			mw.ServeHTTP(w, req)

			assert.Equal(t, tc.want, w.Code)
			if tc.want == http.StatusOK {
				assert.Equal(t, caller, seen)
				assert.Equal(t, "jti-good", seenJTI)
			} else {
				assert.True(t, seen.IsNil())
			}
		})
	}
}
