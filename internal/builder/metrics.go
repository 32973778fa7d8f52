package builder

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	StatusRunning  = "running"
	StatusSuccess  = "success"
	StatusFailed   = "failed"
	StatusCanceled = "canceled"
)

type PassMetrics struct {
	Project      string
	Kind         string
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
	Status       string
	JobCount     int
	FailedJobs   int
	ErrorCount   int
	WarningCount int
}

// MetricsCollector keeps the metrics of recent passes and mirrors them into
// Prometheus collectors.
type MetricsCollector struct {
	metrics map[string]*PassMetrics
	order   []string
	limit   int
	mu      sync.RWMutex

	passes      *prometheus.CounterVec
	passSeconds *prometheus.HistogramVec
	jobs        *prometheus.CounterVec
	diagnostics *prometheus.CounterVec
}

// NewMetricsCollector registers its collectors with reg. A nil registry uses a
// private one.
func NewMetricsCollector(reg prometheus.Registerer) *MetricsCollector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	mc := &MetricsCollector{
		metrics: make(map[string]*PassMetrics),
		limit:   100,
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "erlbuild",
			Name:      "passes_total",
			Help:      "Build passes by kind and final status",
		}, []string{"kind", "status"}),
		passSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "erlbuild",
			Name:      "pass_duration_seconds",
			Help:      "Duration of build passes",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "erlbuild",
			Name:      "compile_jobs_total",
			Help:      "Compile jobs by outcome",
		}, []string{"outcome"}),
		diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "erlbuild",
			Name:      "diagnostics_total",
			Help:      "Diagnostics emitted by severity",
		}, []string{"severity"}),
	}
	reg.MustRegister(mc.passes, mc.passSeconds, mc.jobs, mc.diagnostics)
	return mc
}

func (mc *MetricsCollector) StartPass(passID, project, kind string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.metrics[passID] = &PassMetrics{
		Project:   project,
		Kind:      kind,
		StartTime: time.Now(),
		Status:    StatusRunning,
	}
	mc.order = append(mc.order, passID)
	for len(mc.order) > mc.limit {
		delete(mc.metrics, mc.order[0])
		mc.order = mc.order[1:]
	}
}

func (mc *MetricsCollector) EndPass(passID string, status string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	m, exists := mc.metrics[passID]
	if !exists {
		return
	}
	m.EndTime = time.Now()
	m.Duration = m.EndTime.Sub(m.StartTime)
	m.Status = status
	mc.passes.WithLabelValues(m.Kind, status).Inc()
	mc.passSeconds.WithLabelValues(m.Kind).Observe(m.Duration.Seconds())
}

func (mc *MetricsCollector) RecordJob(passID, outcome string) {
	mc.jobs.WithLabelValues(outcome).Inc()

	mc.mu.Lock()
	defer mc.mu.Unlock()
	if m, ok := mc.metrics[passID]; ok {
		m.JobCount++
		if outcome == "failed" {
			m.FailedJobs++
		}
	}
}

func (mc *MetricsCollector) RecordDiagnostic(passID string, isError bool) {
	severity := "warning"
	if isError {
		severity = "error"
	}
	mc.diagnostics.WithLabelValues(severity).Inc()

	mc.mu.Lock()
	defer mc.mu.Unlock()
	if m, ok := mc.metrics[passID]; ok {
		if isError {
			m.ErrorCount++
		} else {
			m.WarningCount++
		}
	}
}

// Get returns a copy of the metrics of a pass.
func (mc *MetricsCollector) Get(passID string) (PassMetrics, bool) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	m, ok := mc.metrics[passID]
	if !ok {
		return PassMetrics{}, false
	}
	return *m, true
}

// Last returns the most recently started pass, if any.
func (mc *MetricsCollector) Last() (string, PassMetrics, bool) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	if len(mc.order) == 0 {
		return "", PassMetrics{}, false
	}
	id := mc.order[len(mc.order)-1]
	return id, *mc.metrics[id], true
}
