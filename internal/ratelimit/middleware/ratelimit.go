// Package middleware throttles API calls per authenticated caller.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"kycgate/internal/ratelimit/metrics"
	"kycgate/internal/ratelimit/models"
	"kycgate/pkg/platform/httputil"
	"kycgate/pkg/requestcontext"
)

// Limiter counts a request against key and reports whether it fits.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.Result, error)
}

type Middleware struct {
	limiter Limiter
	limits  map[models.Class]int
	window  time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Middleware)

func WithMetrics(m *metrics.Metrics) Option {
	return func(mw *Middleware) {
		mw.metrics = m
	}
}

// WithWindow overrides the one-minute window.
func WithWindow(d time.Duration) Option {
	return func(mw *Middleware) {
		if d > 0 {
			mw.window = d
		}
	}
}

// New builds a limiter allowing read and write requests per window. A limit
// of zero disables that class.
func New(limiter Limiter, read, write int, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		limiter: limiter,
		limits:  map[models.Class]int{models.ClassRead: read, models.ClassWrite: write},
		window:  time.Minute,
		logger:  logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Limit applies the class budget of the request method. Mount it after the
// auth middleware so the key is the caller; anonymous requests fall back to
// the client IP. Limiter failures let the request through.
func (m *Middleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		class := classify(r.Method)
		limit := m.limits[class]
		if limit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		key := string(class) + ":" + subject(ctx)
		result, err := m.limiter.Allow(ctx, key, limit, m.window)
		if err != nil {
			m.logger.ErrorContext(ctx, "rate limit check failed",
				"request_id", requestcontext.RequestID(ctx),
				"class", class,
				"error", err,
			)
			if m.metrics != nil {
				m.metrics.IncCheckFailure()
			}
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			if m.metrics != nil {
				m.metrics.IncRejected(string(class))
			}
			w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
			httputil.WriteJSON(w, http.StatusTooManyRequests, &models.ExceededResponse{
				Error:       "rate_limit_exceeded",
				Description: "too many requests; retry later",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func classify(method string) models.Class {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return models.ClassRead
	default:
		return models.ClassWrite
	}
}

func subject(ctx context.Context) string {
	if caller := requestcontext.Caller(ctx); !caller.IsNil() {
		return "caller:" + caller.String()
	}
	return "ip:" + requestcontext.ClientIP(ctx)
}
