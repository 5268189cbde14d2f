package metrics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/mbeoliero/kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus collectors for the major operations.
var (
	OpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "marketchat",
		Name:      "operation_duration_seconds",
		Help:      "Duration of chat core operations",
		Buckets:   prometheus.DefBuckets,
	}, []string{"op"})

	OpTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marketchat",
		Name:      "operation_total",
		Help:      "Count of chat core operations by result",
	}, []string{"op", "result"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "marketchat",
		Name:      "cache_lookups_total",
		Help:      "Cache lookups by result",
	}, []string{"kind", "result"})
)

// Handler returns an http.Handler for Prometheus scraping
func Handler() http.Handler {
	return promhttp.Handler()
}

// opStat keeps a running count and max duration for one operation.
type opStat struct {
	Count int64
	Max   time.Duration
}

// Reporter aggregates per-operation duration samples and periodically
// logs and resets them.
type Reporter struct {
	mu    sync.Mutex
	stats map[string]*opStat
}

// NewReporter creates a new Reporter
func NewReporter() *Reporter {
	return &Reporter{stats: make(map[string]*opStat)}
}

// Observe records one duration sample for op, feeding both the running
// aggregate and the Prometheus collectors.
func (r *Reporter) Observe(op string, d time.Duration, err error) {
	OpDuration.WithLabelValues(op).Observe(d.Seconds())
	result := "ok"
	if err != nil {
		result = "error"
	}
	OpTotal.WithLabelValues(op, result).Inc()

	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.stats[op]
	if !ok {
		st = &opStat{}
		r.stats[op] = st
	}
	st.Count++
	if d > st.Max {
		st.Max = d
	}
}

// Snapshot returns the current aggregates and resets them.
func (r *Reporter) Snapshot() map[string]opStat {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]opStat, len(r.stats))
	for op, st := range r.stats {
		out[op] = *st
	}
	r.stats = make(map[string]*opStat)
	return out
}

// Run logs and resets the aggregates every interval until ctx is done.
func (r *Reporter) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for op, st := range r.Snapshot() {
				log.CtxInfo(ctx, "op stats: op=%s, count=%d, max=%s", op, st.Count, st.Max)
			}
		}
	}
}
