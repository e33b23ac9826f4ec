package handler

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimits sets per-client budgets. Submissions mine a block under the
// ledger's write lock, so they draw from their own, much smaller bucket.
// A zero rate disables that bucket.
type RateLimits struct {
	ReadRPS         int
	ReadBurst       int
	SubmitPerMinute int
	SubmitBurst     int
}

const (
	submitRoute     = "/transaction"
	clientIdleAfter = 10 * time.Minute
	sweepEvery      = 5 * time.Minute
)

// unlimitedRoutes are never throttled so health checks and scrapes keep
// working while a client is over budget.
var unlimitedRoutes = map[string]bool{
	"/healthz": true,
	"/metrics": true,
}

type clientBuckets struct {
	read     *rate.Limiter
	submit   *rate.Limiter
	lastSeen time.Time
}

type clientTable struct {
	limits  RateLimits
	mu      sync.Mutex
	clients map[string]*clientBuckets
}

func (t *clientTable) get(ip string, now time.Time) *clientBuckets {
	t.mu.Lock()
	defer t.mu.Unlock()
	cb, ok := t.clients[ip]
	if !ok {
		cb = &clientBuckets{}
		if t.limits.ReadRPS > 0 {
			cb.read = rate.NewLimiter(rate.Limit(t.limits.ReadRPS), max(t.limits.ReadBurst, 1))
		}
		if t.limits.SubmitPerMinute > 0 {
			cb.submit = rate.NewLimiter(rate.Limit(float64(t.limits.SubmitPerMinute)/60), max(t.limits.SubmitBurst, 1))
		}
		t.clients[ip] = cb
	}
	cb.lastSeen = now
	return cb
}

func (t *clientTable) sweep(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for ip, cb := range t.clients {
		if now.Sub(cb.lastSeen) > clientIdleAfter {
			delete(t.clients, ip)
		}
	}
}

// RateLimiter returns a Gin middleware that throttles each client IP with
// token buckets. POST /transaction is charged to the submit bucket and every
// other route to the read bucket. Rejections carry a Retry-After computed
// from the bucket's refill time. Idle clients are swept until ctx is done.
func RateLimiter(ctx context.Context, limits RateLimits) gin.HandlerFunc {
	table := &clientTable{limits: limits, clients: make(map[string]*clientBuckets)}

	go func() {
		ticker := time.NewTicker(sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				table.sweep(now)
			case <-ctx.Done():
				return
			}
		}
	}()

	return func(c *gin.Context) {
		route := c.FullPath()
		if unlimitedRoutes[route] {
			c.Next()
			return
		}

		now := time.Now()
		cb := table.get(c.ClientIP(), now)
		lim, bucket := cb.read, "read"
		if c.Request.Method == http.MethodPost && route == submitRoute {
			lim, bucket = cb.submit, "submit"
		}
		if lim == nil {
			c.Next()
			return
		}

		if wait, ok := take(lim, now); !ok {
			c.Header("Retry-After", strconv.Itoa(retryAfterSeconds(wait)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":  "rate limit exceeded",
				"bucket": bucket,
			})
			return
		}
		c.Next()
	}
}

// take consumes a token if one is available now. Otherwise it returns how
// long until one would be.
func take(lim *rate.Limiter, now time.Time) (time.Duration, bool) {
	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return time.Minute, false
	}
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return d, false
	}
	return 0, true
}

func retryAfterSeconds(d time.Duration) int {
	return max(int(math.Ceil(d.Seconds())), 1)
}
