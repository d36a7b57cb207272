package telemetry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/shaiso/LocalAutomator/internal/domain"
)

// Metrics — Prometheus метрики выполнения flow.
//
// Реализует наблюдатель runner'а: счётчики обновляются
// по событиям начала и завершения run и шагов.
type Metrics struct {
	runsTotal    *prometheus.CounterVec
	runsActive   prometheus.Gauge
	runDuration  prometheus.Histogram
	stepsTotal   *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
}

// NewMetrics регистрирует метрики в reg.
// Если reg == nil, используется prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "automator_runs_total",
			Help: "Total number of finished runs by status",
		}, []string{"status"}),
		runsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "automator_runs_active",
			Help: "Number of runs currently executing",
		}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "automator_run_duration_seconds",
			Help:    "Run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 4, 8),
		}),
		stepsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "automator_steps_total",
			Help: "Total number of processed steps by type and status",
		}, []string{"type", "status"}),
		stepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "automator_step_duration_seconds",
			Help:    "Step execution time in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"type"}),
	}
}

// RunStarted увеличивает число активных run.
func (m *Metrics) RunStarted(_ context.Context, _ *domain.Run) {
	m.runsActive.Inc()
}

// StepStarted ничего не делает: шаг учитывается по завершении.
func (m *Metrics) StepStarted(context.Context, *domain.Run, *domain.Step, int) {}

// StepCompleted учитывает результат шага.
func (m *Metrics) StepCompleted(_ context.Context, _ *domain.Run, rec domain.StepRecord) {
	status := domain.StepStatusPending
	if rec.Result != nil {
		status = rec.Result.Status
	}
	m.stepsTotal.WithLabelValues(rec.Type, string(status)).Inc()

	// Пропущенные шаги не выполнялись
	if status != domain.StepStatusSkipped {
		m.stepDuration.WithLabelValues(rec.Type).Observe(rec.Duration.Seconds())
	}
}

// RunFinished учитывает итоговый статус run.
func (m *Metrics) RunFinished(_ context.Context, run *domain.Run) {
	m.runsActive.Dec()
	m.runsTotal.WithLabelValues(string(run.Status)).Inc()
	m.runDuration.Observe(run.Duration().Seconds())
}
