// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package metrics

import (
	"context"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/danielhkuo/cipher-draw/ledger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "cipherdraw"

var weiPerEther = new(big.Float).SetInt(big.NewInt(1_000_000_000_000_000_000))

// RoundLister is the read side of the ledger the collector scrapes.
type RoundLister interface {
	Rounds() []ledger.Round
}

// Collector owns a private registry with ledger, payout and HTTP metrics.
// It is a ledger.EventSink.
type Collector struct {
	registry *prometheus.Registry

	events   *prometheus.CounterVec
	payouts  *prometheus.CounterVec
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

var _ ledger.EventSink = (*Collector)(nil)

func New(rounds RoundLister) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Committed ledger events by kind.",
		}, []string{"kind"}),
		payouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payouts_ether_total",
			Help:      "Ether paid out by the ledger.",
		}, []string{"kind"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	c.registry.MustRegister(
		c.events,
		c.payouts,
		c.requests,
		c.latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if rounds != nil {
		c.registry.MustRegister(newRoundCollector(rounds))
	}
	return c
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

func (c *Collector) Publish(_ context.Context, ev ledger.Event) {
	c.events.WithLabelValues(string(ev.Kind)).Inc()
	switch ev.Kind {
	case ledger.EventPrizeClaimed:
		c.payouts.WithLabelValues("prize").Add(Ether(ev.Amount))
	case ledger.EventRefundClaimed:
		c.payouts.WithLabelValues("refund").Add(Ether(ev.Amount))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Instrument wraps a handler with request count and latency metrics under
// the given route label.
func (c *Collector) Instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next(sw, r)

		c.requests.WithLabelValues(route, r.Method, strconv.Itoa(sw.status)).Inc()
		c.latency.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer, which
// the websocket upgrade needs for hijacking.
func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// Ether converts a wei amount to ether. Precision beyond float64 is lost,
// which is fine for metrics.
func Ether(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), weiPerEther).Float64()
	return f
}

// roundCollector reports round gauges from a ledger snapshot at scrape time.
type roundCollector struct {
	src          RoundLister
	rounds       *prometheus.Desc
	participants *prometheus.Desc
	prizePool    *prometheus.Desc
}

func newRoundCollector(src RoundLister) *roundCollector {
	return &roundCollector{
		src: src,
		rounds: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "rounds"),
			"Rounds by status.",
			[]string{"status"}, nil,
		),
		participants: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "participants"),
			"Entries across rounds by round status.",
			[]string{"status"}, nil,
		),
		prizePool: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "prize_pool_ether"),
			"Prize pools across rounds by round status.",
			[]string{"status"}, nil,
		),
	}
}

func (rc *roundCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- rc.rounds
	ch <- rc.participants
	ch <- rc.prizePool
}

func (rc *roundCollector) Collect(ch chan<- prometheus.Metric) {
	statuses := []ledger.Status{
		ledger.StatusActive,
		ledger.StatusDrawing,
		ledger.StatusRevealing,
		ledger.StatusSettled,
		ledger.StatusCancelled,
	}
	count := make(map[ledger.Status]float64)
	entrants := make(map[ledger.Status]float64)
	pool := make(map[ledger.Status]*big.Int)
	for _, s := range statuses {
		pool[s] = new(big.Int)
	}

	for _, r := range rc.src.Rounds() {
		count[r.Status]++
		entrants[r.Status] += float64(r.ParticipantCount)
		if p, ok := pool[r.Status]; ok {
			p.Add(p, r.PrizePool)
		}
	}

	for _, s := range statuses {
		ch <- prometheus.MustNewConstMetric(rc.rounds, prometheus.GaugeValue, count[s], s.String())
		ch <- prometheus.MustNewConstMetric(rc.participants, prometheus.GaugeValue, entrants[s], s.String())
		ch <- prometheus.MustNewConstMetric(rc.prizePool, prometheus.GaugeValue, Ether(pool[s]), s.String())
	}
}
