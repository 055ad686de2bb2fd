// Package metrics exposes console activity as Prometheus metrics. All
// methods are safe on a nil *Recorder, which records nothing.
package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rmfconsole"

type Recorder struct {
	reg              *prom.Registry
	relaySessions    prom.Gauge
	relayEvents      *prom.CounterVec
	relayDropped     prom.Counter
	upstreamRequests *prom.CounterVec
	upstreamLatency  *prom.HistogramVec
	upstreamUp       prom.Gauge
	processStarts    *prom.CounterVec
	processRunning   *prom.GaugeVec
	buildResults     *prom.CounterVec
	configWrites     *prom.CounterVec
}

// New builds a Recorder on a private registry that also carries the Go
// runtime and process collectors.
func New() *Recorder {
	r := &Recorder{reg: prom.NewRegistry()}
	r.relaySessions = prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "relay_sessions",
		Help:      "Browser sessions currently relaying upstream events",
	})
	r.relayEvents = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "relay_events_total",
		Help:      "Upstream events forwarded to browsers by kind",
	}, []string{"kind"})
	r.relayDropped = prom.NewCounter(prom.CounterOpts{
		Namespace: namespace,
		Name:      "relay_events_dropped_total",
		Help:      "Events dropped because of invalid payloads or full browser buffers",
	})
	r.upstreamRequests = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_requests_total",
		Help:      "REST calls made to the RMF API server by endpoint and result",
	}, []string{"endpoint", "result"})
	r.upstreamLatency = prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "upstream_request_duration_seconds",
		Help:      "Latency of REST calls to the RMF API server",
		Buckets:   prom.DefBuckets,
	}, []string{"endpoint"})
	r.upstreamUp = prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "upstream_up",
		Help:      "1 when the last upstream health check succeeded",
	})
	r.processStarts = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "process_starts_total",
		Help:      "Processes spawned per launch target",
	}, []string{"target"})
	r.processRunning = prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "process_running",
		Help:      "1 while a launch target has a live process",
	}, []string{"target"})
	r.buildResults = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "build_results_total",
		Help:      "colcon build outcomes",
	}, []string{"result"})
	r.configWrites = prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "config_writes_total",
		Help:      "Fleet config writes by action",
	}, []string{"action"})

	r.reg.MustRegister(
		r.relaySessions, r.relayEvents, r.relayDropped,
		r.upstreamRequests, r.upstreamLatency, r.upstreamUp,
		r.processStarts, r.processRunning, r.buildResults, r.configWrites,
		promcollect.NewGoCollector(),
		promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}),
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

func (r *Recorder) SessionOpened() {
	if r == nil {
		return
	}
	r.relaySessions.Inc()
}

func (r *Recorder) SessionClosed() {
	if r == nil {
		return
	}
	r.relaySessions.Dec()
}

func (r *Recorder) EventRelayed(kind string) {
	if r == nil {
		return
	}
	r.relayEvents.WithLabelValues(kind).Inc()
}

func (r *Recorder) EventDropped() {
	if r == nil {
		return
	}
	r.relayDropped.Inc()
}

func (r *Recorder) ObserveUpstream(endpoint string, d time.Duration, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.upstreamRequests.WithLabelValues(endpoint, result).Inc()
	r.upstreamLatency.WithLabelValues(endpoint).Observe(d.Seconds())
}

func (r *Recorder) SetUpstreamUp(up bool) {
	if r == nil {
		return
	}
	if up {
		r.upstreamUp.Set(1)
	} else {
		r.upstreamUp.Set(0)
	}
}

func (r *Recorder) ProcessStarted(target string) {
	if r == nil {
		return
	}
	r.processStarts.WithLabelValues(target).Inc()
	r.processRunning.WithLabelValues(target).Set(1)
}

func (r *Recorder) ProcessEnded(target string) {
	if r == nil {
		return
	}
	r.processRunning.WithLabelValues(target).Set(0)
}

func (r *Recorder) BuildFinished(code int) {
	if r == nil {
		return
	}
	result := "success"
	if code != 0 {
		result = "failure"
	}
	r.buildResults.WithLabelValues(result).Inc()
}

func (r *Recorder) ConfigWritten(action string) {
	if r == nil {
		return
	}
	r.configWrites.WithLabelValues(action).Inc()
}
