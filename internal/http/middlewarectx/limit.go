package middlewarectx

import (
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/go-chi/render"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/beatstore/internal/http/response"
)

// RateLimiter выдаёт отдельный token bucket каждому пользователю,
// а без пользователя в контексте — каждому IP.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// NewRateLimiter создаёт RateLimiter на rps запросов в секунду с запасом burst.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (l *RateLimiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.rps, l.burst)
		l.limiters[key] = lim
	}
	return lim
}

// RateLimitMiddleware отвечает 429, когда клиент превысил лимит.
func RateLimitMiddleware(l *RateLimiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := GetUserID(r.Context())
			if key == "" {
				key = clientIP(r)
			}
			if !l.get(key).Allow() {
				log.Warn("too many requests", slog.String("client", key))
				render.Status(r, http.StatusTooManyRequests)
				render.JSON(w, r, response.ErrorWithCode(response.CodeTooManyRequest, "too many requests", nil))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
