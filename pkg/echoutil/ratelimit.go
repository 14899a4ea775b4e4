package echoutil

import (
	"net/http"
	"sync"
	"time"

	apierr "github.com/glasswall/icap-management-ui/pkg/api/types/errors"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

// RateLimiter limits requests per client, keyed by echo.Context.RealIP.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*entry
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing perSecond requests per client,
// with burst.
//
// When perSecond is zero or less, it does not limit.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	return &RateLimiter{
		limiters: map[string]*entry{},
		limit:    limit,
		burst:    max(1, burst),
		now:      time.Now,
	}
}

func (rl *RateLimiter) get(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	e, ok := rl.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[key] = e
	}
	e.lastSeen = rl.now()
	return e.limiter
}

// Middleware rejects requests over the limit with 429 Too Many Requests.
func (rl *RateLimiter) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if rl.limit == rate.Inf {
			return next(c)
		}
		key := c.RealIP()
		if !rl.get(key).Allow() {
			c.Logger().Warnf("rate limit exceeded: %s %s %s", key, c.Request().Method, c.Request().URL.Path)
			return apierr.NewErrorMessage(
				http.StatusTooManyRequests, "too many requests",
				apierr.WithAdvice("slow down, and retry later."),
			)
		}
		return next(c)
	}
}

// Forget removes limiters of clients not seen for idle or longer.
//
// It returns the number of removed limiters.
func (rl *RateLimiter) Forget(idle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	threshold := rl.now().Add(-idle)
	n := 0
	for k, e := range rl.limiters {
		if e.lastSeen.Before(threshold) {
			delete(rl.limiters, k)
			n++
		}
	}
	return n
}
