package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// Simulation metrics
	backtestsTotal   *prometheus.CounterVec
	backtestDuration prometheus.Histogram
	tradesTotal      *prometheus.CounterVec
	signalsGenerated *prometheus.CounterVec

	// Optimizer metrics
	optimizerEvaluations *prometheus.CounterVec
	optimizerBestScore   *prometheus.GaugeVec
	optimizerDuration    *prometheus.HistogramVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		backtestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wealthsim_backtests_total",
				Help: "Total number of backtests",
			},
			[]string{"strategy", "status"},
		),
		backtestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "wealthsim_backtest_duration_seconds",
				Help:    "Backtest duration in seconds",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30},
			},
		),
		tradesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wealthsim_trades_total",
				Help: "Total number of simulated trades by exit reason",
			},
			[]string{"strategy", "exit_reason"},
		),
		signalsGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wealthsim_signals_generated_total",
				Help: "Total number of non-hold signals generated",
			},
			[]string{"strategy", "action"},
		),
	}

	reg.MustRegister(r.backtestsTotal)
	reg.MustRegister(r.backtestDuration)
	reg.MustRegister(r.tradesTotal)
	reg.MustRegister(r.signalsGenerated)

	r.optimizerEvaluations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wealthsim_optimizer_evaluations_total",
			Help: "Total number of objective evaluations",
		},
		[]string{"method"},
	)
	r.optimizerBestScore = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wealthsim_optimizer_best_score",
			Help: "Best objective score of the last optimization run",
		},
		[]string{"method"},
	)
	r.optimizerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wealthsim_optimizer_duration_seconds",
			Help:    "Optimization run duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 900},
		},
		[]string{"method"},
	)

	reg.MustRegister(r.optimizerEvaluations)
	reg.MustRegister(r.optimizerBestScore)
	reg.MustRegister(r.optimizerDuration)

	return r
}

// RecordBacktest records a backtest completion.
func (r *Registry) RecordBacktest(strategy, status string, duration float64) {
	r.backtestsTotal.WithLabelValues(strategy, status).Inc()
	r.backtestDuration.Observe(duration)
}

// RecordTrade records a closed trade.
func (r *Registry) RecordTrade(strategy, exitReason string) {
	r.tradesTotal.WithLabelValues(strategy, exitReason).Inc()
}

// RecordSignal records a generated signal.
func (r *Registry) RecordSignal(strategy, action string) {
	r.signalsGenerated.WithLabelValues(strategy, action).Inc()
}

// RecordEvaluations adds n objective evaluations for an optimizer method.
func (r *Registry) RecordEvaluations(method string, n int) {
	r.optimizerEvaluations.WithLabelValues(method).Add(float64(n))
}

// RecordOptimization records a finished optimization run.
func (r *Registry) RecordOptimization(method string, bestScore, duration float64) {
	r.optimizerBestScore.WithLabelValues(method).Set(bestScore)
	r.optimizerDuration.WithLabelValues(method).Observe(duration)
}

// WriteTextfile writes all gathered metrics in the text exposition format,
// for pickup by the node exporter's textfile collector.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.Registry)
}
