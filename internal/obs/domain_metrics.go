package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// SettlementTotal counts settlement attempts by outcome code.
	SettlementTotal *prometheus.CounterVec
	// SettlementDuration records settlement latency in milliseconds by outcome.
	SettlementDuration *prometheus.HistogramVec
	// PointsSpentTotal accumulates points debited through settlements.
	PointsSpentTotal prometheus.Counter
	// PaymentSessionTotal counts external payment session creation outcomes.
	PaymentSessionTotal *prometheus.CounterVec
	// PaymentWebhookTotal counts inbound payment webhook processing outcomes.
	PaymentWebhookTotal *prometheus.CounterVec
	// NotifyDispatchTotal counts confirmation notification dispatch outcomes.
	NotifyDispatchTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		SettlementTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlement_total",
			Help:      "Count of settlement attempts by outcome.",
		}, []string{"result"})
		SettlementDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "settlement_duration_ms",
			Help:      "Settlement latency distribution in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000},
		}, []string{"result"})
		PointsSpentTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_spent_total",
			Help:      "Total points debited by successful settlements.",
		})
		PaymentSessionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_session_total",
			Help:      "Count of external payment session creation outcomes.",
		}, []string{"provider", "result"})
		PaymentWebhookTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_webhook_total",
			Help:      "Count of processed payment webhooks by outcome.",
		}, []string{"provider", "result"})
		NotifyDispatchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notify_dispatch_total",
			Help:      "Count of confirmation notification dispatch outcomes.",
		}, []string{"result"})

		reg.MustRegister(
			SettlementTotal,
			SettlementDuration,
			PointsSpentTotal,
			PaymentSessionTotal,
			PaymentWebhookTotal,
			NotifyDispatchTotal,
		)
	})
}
