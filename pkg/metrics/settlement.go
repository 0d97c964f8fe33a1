package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	KindWinner = "winner"
	KindBidder = "bidder"
)

// SettlementMetrics records scheduler and settlement outcomes. A nil
// *SettlementMetrics is valid and records nothing.
type SettlementMetrics struct {
	armed            prometheus.Gauge
	fired            prometheus.Counter
	invoicesCreated  prometheus.Counter
	invoicesRejected prometheus.Counter
	sent             *prometheus.CounterVec
	failed           *prometheus.CounterVec
}

// NewSettlementMetrics registers the settlement metrics on the provided registerer.
func NewSettlementMetrics(reg prometheus.Registerer) *SettlementMetrics {
	if reg == nil {
		return &SettlementMetrics{}
	}
	m := &SettlementMetrics{
		armed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "settlements_armed",
			Help: "Auctions with an armed settlement timer.",
		}),
		fired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "settlements_fired_total",
			Help: "Settlement timers that fired.",
		}),
		invoicesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "invoices_created_total",
			Help: "Invoices created by the payment processor.",
		}),
		invoicesRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "invoices_rejected_total",
			Help: "Invoice requests that returned no created invoice.",
		}),
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_sent_total",
			Help: "Settlement notices sent.",
		}, []string{"kind"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_failed_total",
			Help: "Settlement notices that could not be completed.",
		}, []string{"kind"}),
	}
	reg.MustRegister(m.armed, m.fired, m.invoicesCreated, m.invoicesRejected, m.sent, m.failed)
	return m
}

func (m *SettlementMetrics) SetArmed(n int) {
	if m == nil || m.armed == nil {
		return
	}
	m.armed.Set(float64(n))
}

func (m *SettlementMetrics) IncFired() {
	if m == nil || m.fired == nil {
		return
	}
	m.fired.Inc()
}

func (m *SettlementMetrics) IncInvoiceCreated() {
	if m == nil || m.invoicesCreated == nil {
		return
	}
	m.invoicesCreated.Inc()
}

func (m *SettlementMetrics) IncInvoiceRejected() {
	if m == nil || m.invoicesRejected == nil {
		return
	}
	m.invoicesRejected.Inc()
}

func (m *SettlementMetrics) IncSent(kind string) {
	if m == nil || m.sent == nil {
		return
	}
	m.sent.WithLabelValues(kind).Inc()
}

func (m *SettlementMetrics) IncFailed(kind string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(kind).Inc()
}
