package v1

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// OwnerLimiter applies a token bucket per owner to turn requests.
type OwnerLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
}

// NewOwnerLimiter allows perMinute turns per owner with the given burst.
// It returns nil, which disables limiting, when perMinute is not positive.
func NewOwnerLimiter(perMinute, burst int) *OwnerLimiter {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &OwnerLimiter{
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow reports whether owner may start another turn now.
func (l *OwnerLimiter) Allow(owner string) bool {
	return l.get(owner).Allow()
}

func (l *OwnerLimiter) get(owner string) *rate.Limiter {
	l.mu.RLock()
	limiter, ok := l.limiters[owner]
	l.mu.RUnlock()
	if ok {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, ok = l.limiters[owner]; ok {
		return limiter
	}
	limiter = rate.NewLimiter(l.limit, l.burst)
	l.limiters[owner] = limiter
	return limiter
}

// Middleware rejects requests over the owner's budget with 429.
func (l *OwnerLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if l == nil {
			return next
		}
		return func(c echo.Context) error {
			owner := ownerID(c)
			if !l.Allow(owner) {
				slog.Warn("turn rate limit exceeded", "owner_id", owner)
				return c.JSON(http.StatusTooManyRequests, errorBody("rate limit exceeded"))
			}
			return next(c)
		}
	}
}
