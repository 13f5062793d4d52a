// Package metadata records client network metadata on the request context.
package metadata

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	"kycgate/pkg/requestcontext"
)

const unknownIP = "unknown"

// ClientMetadata stores the client IP on the context. The audit trail and the
// rate limiter's anonymous bucket both read it, so it runs before either.
func ClientMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithClientIP(r.Context(), ClientIPFromRequest(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ClientIPFromRequest prefers proxy headers and falls back to the socket
// address. Header values that do not parse as an IP are skipped.
func ClientIPFromRequest(r *http.Request) string {
	candidates := []string{
		firstHop(r.Header.Get("X-Forwarded-For")),
		r.Header.Get("X-Real-IP"),
		hostOnly(r.RemoteAddr),
	}
	for _, c := range candidates {
		if addr, err := netip.ParseAddr(strings.TrimSpace(c)); err == nil {
			return addr.String()
		}
	}
	return unknownIP
}

// firstHop returns the originating client of an "client, proxy1, proxy2" list.
func firstHop(xff string) string {
	first, _, _ := strings.Cut(xff, ",")
	return first
}

func hostOnly(remote string) string {
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		return remote
	}
	return host
}
