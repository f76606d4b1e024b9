// Package metrics 以 prometheus 暴露调度循环指标
package metrics

import (
	"net/http"
	"time"

	"github.com/gowvp/autoinput/internal/core/automation"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "autoinput"

var _ automation.Observer = (*Observer)(nil)

// Observer 调度循环的 prometheus 观察者，使用独立 Registry
type Observer struct {
	registry *prometheus.Registry

	cycleDuration prometheus.Histogram
	detections    prometheus.Counter
	presses       *prometheus.CounterVec
	timingError   prometheus.Histogram
	state         prometheus.Gauge
	transitions   *prometheus.CounterVec
}

// NewObserver 注册全部指标，并附带 go 运行时与进程指标
func NewObserver() *Observer {
	reg := prometheus.NewRegistry()
	o := Observer{
		registry: reg,
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of one capture, detect and dispatch cycle",
			Buckets:   []float64{.001, .002, .005, .01, .016, .025, .033, .05, .1, .25},
		}),
		detections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_total",
			Help:      "Notes detected above the confidence threshold",
		}),
		presses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "presses_total",
			Help:      "Dispatched presses by result",
		}, []string{"result"}),
		timingError: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "timing_error_seconds",
			Help:      "Absolute difference between scheduled and actual press time",
			Buckets:   []float64{.0005, .001, .002, .005, .01, .02, .05, .1},
		}),
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_state",
			Help:      "Scheduler state: 0 idle, 1 running, 2 paused, 3 stopping",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "Scheduler state transitions by target state",
		}, []string{"state"}),
	}
	reg.MustRegister(
		o.cycleDuration, o.detections, o.presses, o.timingError, o.state, o.transitions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &o
}

// ObserveCycle implements [automation.Observer].
func (o *Observer) ObserveCycle(cost time.Duration, detections int) {
	o.cycleDuration.Observe(cost.Seconds())
	o.detections.Add(float64(detections))
}

// ObservePress implements [automation.Observer].
func (o *Observer) ObservePress(hit bool, timingError time.Duration) {
	if !hit {
		o.presses.WithLabelValues("miss").Inc()
		return
	}
	o.presses.WithLabelValues("hit").Inc()
	o.timingError.Observe(timingError.Abs().Seconds())
}

// ObserveState implements [automation.Observer].
func (o *Observer) ObserveState(st automation.RunState) {
	o.state.Set(float64(st))
	o.transitions.WithLabelValues(st.String()).Inc()
}

// Registry 供测试或额外 collector 注册
func (o *Observer) Registry() *prometheus.Registry {
	return o.registry
}

// Handler /metrics 处理器
func (o *Observer) Handler() http.Handler {
	return promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
