// Package metrics exposes the tracker's prometheus metrics and persists the
// counters across restarts.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	log "github.com/sirupsen/logrus"

	"price-drop-tracker/internal/types"
)

const (
	namespace = "price_drop_tracker"

	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// Store is where counters are kept between restarts
type Store interface {
	GetMetric(metricName string) (float64, error)
	SaveMetric(metricName string, value float64) error
	GetMetricsWithLabels(metricName string) (map[string]map[string]float64, error)
	SaveMetricWithLabels(metricName, labelKey, labelValue string, value float64) error
}

type Metrics struct {
	Cycles        *prometheus.CounterVec
	AlertsSent    *prometheus.CounterVec
	FetchErrors   *prometheus.CounterVec
	NotifyErrors  prometheus.Counter
	ChangePercent *prometheus.GaugeVec
	LastCycle     prometheus.Gauge

	registry *prometheus.Registry
	mutex    sync.Mutex
}

func New() *Metrics {
	m := &Metrics{
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "The total number of check cycles by outcome",
		}, []string{"outcome"}),
		AlertsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_sent_total",
			Help:      "The total number of price drop alerts per symbol",
		}, []string{"symbol"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_errors_total",
			Help:      "The total number of failed quote fetches per symbol",
		}, []string{"symbol"}),
		NotifyErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_errors_total",
			Help:      "The total number of alerts that could not be delivered",
		}),
		ChangePercent: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "change_percent",
			Help:      "The last observed change versus previous close per symbol",
		}, []string{"symbol"}),
		LastCycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_cycle_timestamp_seconds",
			Help:      "Unix time of the last finished check cycle",
		}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(m.Cycles, m.AlertsSent, m.FetchErrors, m.NotifyErrors, m.ChangePercent, m.LastCycle)
	return m
}

// Restore creates the metrics starting from the counters persisted in store.
// Save writes absolute values, so any process that saves must be restored first.
func Restore(store Store) *Metrics {
	m := New()
	m.Load(store)
	return m
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveResult(r types.CheckResult) {
	if !r.Checked() {
		m.FetchErrors.WithLabelValues(r.Symbol).Inc()
		return
	}

	m.ChangePercent.WithLabelValues(r.Symbol).Set(r.ChangePct)
	if r.AlertSent {
		m.AlertsSent.WithLabelValues(r.Symbol).Inc()
	}
	if r.NotifyError != "" {
		m.NotifyErrors.Inc()
	}
}

func (m *Metrics) ObserveCycle(s *types.Snapshot) {
	outcome := OutcomeSuccess
	if !s.Success {
		outcome = OutcomeFailed
	}
	m.Cycles.WithLabelValues(outcome).Inc()
	m.LastCycle.Set(float64(s.Timestamp.Unix()))
}

// Load adds the persisted counter values to the live counters
func (m *Metrics) Load(store Store) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	notifyErrors, err := store.GetMetric("notify_errors_total")
	if err != nil {
		log.Warnf("Failed to load notify_errors_total: %v", err)
	}
	m.NotifyErrors.Add(notifyErrors)

	loadLabeledMetrics(store, "cycles_total", "outcome", m.Cycles)
	loadLabeledMetrics(store, "alerts_sent_total", "symbol", m.AlertsSent)
	loadLabeledMetrics(store, "fetch_errors_total", "symbol", m.FetchErrors)

	log.Info("Metrics loaded from database.")
}

func loadLabeledMetrics(store Store, metricName, labelName string, vec *prometheus.CounterVec) {
	metricsWithLabels, err := store.GetMetricsWithLabels(metricName)
	if err != nil {
		log.Warnf("Failed to load %s: %v", metricName, err)
		return
	}
	for labelValue, value := range metricsWithLabels[labelName] {
		vec.WithLabelValues(labelValue).Add(value)
	}
}

// Save writes the current counter values to store
func (m *Metrics) Save(store Store) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if err := store.SaveMetric("notify_errors_total", GetMetricValue(m.NotifyErrors)); err != nil {
		return err
	}
	for name, vec := range map[string]*prometheus.CounterVec{
		"cycles_total":       m.Cycles,
		"alerts_sent_total":  m.AlertsSent,
		"fetch_errors_total": m.FetchErrors,
	} {
		if err := saveLabeledMetrics(store, name, vec); err != nil {
			return err
		}
	}

	log.Info("Metrics saved to database.")
	return nil
}

func saveLabeledMetrics(store Store, metricName string, vec *prometheus.CounterVec) error {
	metricChan := make(chan prometheus.Metric)
	go func() {
		vec.Collect(metricChan)
		close(metricChan)
	}()

	var firstErr error
	for metric := range metricChan {
		metricProto := &dto.Metric{}
		if err := metric.Write(metricProto); err != nil {
			log.Warnf("Failed to read %s metric: %v", metricName, err)
			continue
		}
		if firstErr != nil {
			continue
		}
		for _, label := range metricProto.Label {
			err := store.SaveMetricWithLabels(metricName, label.GetName(), label.GetValue(), metricProto.Counter.GetValue())
			if err != nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// GetMetricValue reads the current value of a single counter or gauge
func GetMetricValue(metric prometheus.Collector) float64 {
	metricChan := make(chan prometheus.Metric, 1)
	metric.Collect(metricChan)
	close(metricChan)

	metricProto := &dto.Metric{}
	if err := (<-metricChan).Write(metricProto); err != nil {
		log.Warnf("Failed to read metric value: %v", err)
		return 0
	}

	if metricProto.Counter != nil {
		return metricProto.Counter.GetValue()
	} else if metricProto.Gauge != nil {
		return metricProto.Gauge.GetValue()
	}
	return 0
}
