package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

// clientIdleTTL is how long a client's bucket is kept after its last request.
const clientIdleTTL = 3 * time.Minute

// RateLimitMiddleware gives every client IP its own token bucket of rps
// requests per second with a burst of rps.
func RateLimitMiddleware(rps int) gin.HandlerFunc {
	return newClientLimiter(rps, clockwork.NewRealClock()).middleware()
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clientLimiter holds one bucket per client IP and drops buckets that have
// been idle for clientIdleTTL.
type clientLimiter struct {
	rps   int
	clock clockwork.Clock

	mu        sync.Mutex
	clients   map[string]*clientBucket
	lastSweep time.Time
}

func newClientLimiter(rps int, clock clockwork.Clock) *clientLimiter {
	if rps < 1 {
		rps = 1
	}
	return &clientLimiter{
		rps:       rps,
		clock:     clock,
		clients:   make(map[string]*clientBucket),
		lastSweep: clock.Now(),
	}
}

func (l *clientLimiter) allow(ip string) bool {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= clientIdleTTL {
		for key, b := range l.clients {
			if now.Sub(b.lastSeen) >= clientIdleTTL {
				delete(l.clients, key)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.clients[ip]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(rate.Limit(l.rps), l.rps)}
		l.clients[ip] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

func (l *clientLimiter) tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func (l *clientLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.allow(c.ClientIP()) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
