package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RewardsMetrics tracks refreshes of the guest reward evaluation.
type RewardsMetrics struct {
	refreshDuration *prometheus.HistogramVec
	refreshTotal    *prometheus.CounterVec
	skippedRecords  *prometheus.CounterVec
	customers       prometheus.Gauge
	loyalCustomers  prometheus.Gauge
	discountGiven   prometheus.Gauge
}

var (
	rewardsMetricsOnce sync.Once
	rewardsMetrics     *RewardsMetrics
)

// Rewards returns the process-wide reward metrics, or nil when metrics are
// disabled. A nil *RewardsMetrics is safe to use.
func Rewards(cfg Config) *RewardsMetrics {
	if !cfg.Enabled {
		return nil
	}
	rewardsMetricsOnce.Do(func() {
		rewardsMetrics = newRewardsMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return rewardsMetrics
}

func ResetRewardsMetricsForTest() {
	rewardsMetricsOnce = sync.Once{}
	rewardsMetrics = nil
}

// NewRewardsMetricsWithRegisterer registers on a caller-owned registry.
func NewRewardsMetricsWithRegisterer(registerer prometheus.Registerer, cfg Config) *RewardsMetrics {
	return newRewardsMetrics(registerer, cfg)
}

func newRewardsMetrics(registerer prometheus.Registerer, cfg Config) *RewardsMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "hospitality"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	refreshDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        "hospitality_rewards_refresh_duration_seconds",
			Help:        "Duration of a full reward refresh including the bulk fetches.",
			Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			ConstLabels: constLabels,
		},
		[]string{"result"}, // success | failed
	)

	refreshTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "hospitality_rewards_refresh_total",
			Help:        "Total reward refreshes by result.",
			ConstLabels: constLabels,
		},
		[]string{"result"},
	)

	skippedRecords := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "hospitality_rewards_skipped_records_total",
			Help:        "Malformed input records skipped during evaluation.",
			ConstLabels: constLabels,
		},
		[]string{"kind"}, // customer | order | promotion_rule
	)

	customers := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "hospitality_rewards_customers",
		Help:        "Customers covered by the latest evaluation.",
		ConstLabels: constLabels,
	})

	loyalCustomers := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "hospitality_rewards_loyal_customers",
		Help:        "Loyal customers in the latest evaluation.",
		ConstLabels: constLabels,
	})

	discountGiven := prometheus.NewGauge(prometheus.GaugeOpts{
		Name:        "hospitality_rewards_discount_given",
		Help:        "Total discount granted by the latest evaluation.",
		ConstLabels: constLabels,
	})

	registerer.MustRegister(
		refreshDuration,
		refreshTotal,
		skippedRecords,
		customers,
		loyalCustomers,
		discountGiven,
	)

	return &RewardsMetrics{
		refreshDuration: refreshDuration,
		refreshTotal:    refreshTotal,
		skippedRecords:  skippedRecords,
		customers:       customers,
		loyalCustomers:  loyalCustomers,
		discountGiven:   discountGiven,
	}
}

func (m *RewardsMetrics) ObserveRefresh(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.refreshDuration.WithLabelValues(result).Observe(duration.Seconds())
	m.refreshTotal.WithLabelValues(result).Inc()
}

func (m *RewardsMetrics) AddSkipped(kind string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.skippedRecords.WithLabelValues(kind).Add(float64(count))
}

func (m *RewardsMetrics) SetSummary(customers, loyal int, discount float64) {
	if m == nil {
		return
	}
	m.customers.Set(float64(customers))
	m.loyalCustomers.Set(float64(loyal))
	m.discountGiven.Set(discount)
}
