package middleware

import (
	"context"
	"net/http"

	apierrors "github.com/hometasks/auth-service/internal/errors"
	"github.com/hometasks/auth-service/internal/limiter"
)

// RequestLimiter — контракт троттлинга запросов (см. limiter.Limiter).
type RequestLimiter interface {
	Allow(ctx context.Context, clientID string) limiter.Verdict
}

// RateLimit ставит общий per-client троттлинг перед всеми маршрутами:
// превышение любого из окон даёт 429 с Retry-After, не доходя до
// нижележащей логики. Политика отказа стора — fail-open внутри лимитера.
func RateLimit(l RequestLimiter) Middleware {
	return func(next http.Handler) http.Handler {
		if l == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			verdict := l.Allow(r.Context(), limiter.ClientIP(r))
			if !verdict.Allowed {
				apierrors.WriteTooManyRequests(w, r, verdict.RetryAfter)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
