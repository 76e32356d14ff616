package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// bucketTTL is how long an idle client's bucket survives before eviction.
const bucketTTL = 10 * time.Minute

// clientLimiter keys token buckets by client IP so one noisy client cannot
// exhaust the budget of the others. Idle buckets are evicted lazily during
// Allow once bucketTTL has passed since the last sweep.
type clientLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientBucket
	limit     rate.Limit
	burst     int
	lastSweep time.Time
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newClientLimiter creates a limiter granting each client maxRequests per
// second with an equal burst.
func newClientLimiter(maxRequests int) *clientLimiter {
	return &clientLimiter{
		clients:   make(map[string]*clientBucket),
		limit:     rate.Limit(maxRequests),
		burst:     maxRequests,
		lastSweep: time.Now(),
	}
}

// Allow reports whether the client may proceed, creating its bucket on first
// contact.
func (l *clientLimiter) Allow(client string) bool {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > bucketTTL {
		for key, b := range l.clients {
			if now.Sub(b.lastSeen) > bucketTTL {
				delete(l.clients, key)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.clients[client]
	if !ok {
		b = &clientBucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[client] = b
	}
	b.lastSeen = now
	return b.limiter.Allow()
}

// clientIP extracts the bucket key for a request. The port is stripped so a
// client reconnecting from an ephemeral port keeps its bucket.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
