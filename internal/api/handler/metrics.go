package handler

import (
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/powchain/internal/chain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	powRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "powchain_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	powRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "powchain_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	powBlocksAppendedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "powchain_blocks_appended_total",
		Help: "Total blocks appended to the ledger.",
	})

	powChainLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "powchain_chain_length",
		Help: "Number of blocks in the ledger, genesis included.",
	})

	powMiningDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "powchain_mining_duration_seconds",
		Help:    "Wall time spent searching for a nonce.",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	})

	powMiningAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "powchain_mining_attempts",
		Help:    "Hashes evaluated per mined block.",
		Buckets: prometheus.ExponentialBuckets(16, 4, 10),
	})
)

// unmatchedRoute labels requests that hit no registered route, keeping the
// path label bounded.
const unmatchedRoute = "unmatched"

// chainLength is the largest length reported so far. Appends are observed
// from several goroutines, and the gauge must never move backwards.
var chainLength atomic.Int64

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = unmatchedRoute
		}

		powRequestsTotal.WithLabelValues(method, path, status).Inc()
		powRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordBlockAppend records a mined and appended block. It matches
// node.AppendFunc.
func RecordBlockAppend(b chain.Block, mining time.Duration) {
	powBlocksAppendedTotal.Inc()
	raiseChainLength(int64(b.Index) + 1)
	powMiningDuration.Observe(mining.Seconds())
	powMiningAttempts.Observe(float64(b.Attempts()))
}

// SetChainLength raises the chain length gauge to n. Smaller values are
// ignored since the ledger only grows.
func SetChainLength(n int) {
	raiseChainLength(int64(n))
}

func raiseChainLength(n int64) {
	for {
		cur := chainLength.Load()
		if n <= cur {
			return
		}
		if chainLength.CompareAndSwap(cur, n) {
			powChainLength.Set(float64(n))
			return
		}
	}
}
